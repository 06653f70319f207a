package repository

import (
	"fmt"

	"medishare/internal/domain/donation"
	"medishare/internal/domain/user"

	"gorm.io/gorm"
)

// InitSchema migrates tables and adds the constraints gorm tags cannot express.
func InitSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&user.User{},
		&donation.Donation{},
	); err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}

	statements := []string{
		`CREATE INDEX IF NOT EXISTS idx_users_role_city_lower ON users (role, LOWER(TRIM(address_city)));`,
		`CREATE INDEX IF NOT EXISTS idx_donations_status_created ON donations (status, created_at DESC);`,
		// receiver_id is bound exactly when the record sits in a receiver-held status
		`DO $$ BEGIN
			ALTER TABLE donations ADD CONSTRAINT chk_donations_receiver_status
			CHECK ((receiver_id IS NOT NULL) = (status IN ('requested', 'collected', 'delivered')));
		EXCEPTION
			WHEN duplicate_object THEN null;
		END $$;`,
		`DO $$ BEGIN
			ALTER TABLE donations ADD CONSTRAINT chk_donations_status
			CHECK (status IN ('pending_approval', 'approved', 'rejected', 'requested', 'collected', 'delivered'));
		EXCEPTION
			WHEN duplicate_object THEN null;
		END $$;`,
		`DO $$ BEGIN
			ALTER TABLE donations ADD CONSTRAINT fk_donations_donor
			FOREIGN KEY (donor_id) REFERENCES users (id) ON DELETE CASCADE;
		EXCEPTION
			WHEN duplicate_object THEN null;
		END $$;`,
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
