package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"medishare/internal/domain/user"
	"medishare/internal/repository"
	medishare_errors "medishare/pkg/errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrSeedSkipped is returned when no admin credentials are configured.
var ErrSeedSkipped = errors.New("admin seed skipped: credentials not configured")

// SeedAdmin creates the initial administrator when none exists yet.
// It returns the existing or new admin and whether one was created.
func SeedAdmin(ctx context.Context, users repository.UserRepository, email, password string) (user.User, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return user.User{}, false, ErrSeedSkipped
	}

	exists, err := users.ExistsByRole(ctx, user.RoleAdmin)
	if err != nil {
		return user.User{}, false, err
	}
	if exists {
		admins, err := users.ListByRole(ctx, user.RoleAdmin)
		if err != nil {
			return user.User{}, false, err
		}
		log.Println("Admin user already exists, skipping creation")
		return admins[0], false, nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, false, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	admin := user.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         user.RoleAdmin,
		FullName:     "System Administrator",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.Create(ctx, &admin); err != nil {
		if errors.Is(err, medishare_errors.ErrAlreadyExists) {
			return user.User{}, false, fmt.Errorf("email %s is already registered to a non-admin user: %w", email, err)
		}
		return user.User{}, false, err
	}

	log.Printf("Admin user seeded: %s (%s)", email, admin.ID)
	return admin, true, nil
}
