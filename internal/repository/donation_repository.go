package repository

import (
	"context"
	"errors"
	"time"

	"medishare/internal/domain/donation"
	medishare_errors "medishare/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresDonationRepository struct {
	db *gorm.DB
}

func NewDonationRepository(db *gorm.DB) DonationRepository {
	return &PostgresDonationRepository{db: db}
}

func (r *PostgresDonationRepository) Create(ctx context.Context, d *donation.Donation) error {
	res := r.db.WithContext(ctx).Create(d)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) || isUniqueViolation(res.Error) {
			return medishare_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresDonationRepository) GetByID(ctx context.Context, id uuid.UUID) (donation.Donation, error) {
	var d donation.Donation
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return donation.Donation{}, medishare_errors.ErrNotFound
		}
		return donation.Donation{}, err
	}
	return d, nil
}

func (r *PostgresDonationRepository) List(ctx context.Context, filter DonationFilter) ([]donation.Donation, error) {
	if filter.DonorIDs != nil && len(filter.DonorIDs) == 0 {
		return []donation.Donation{}, nil
	}

	q := r.db.WithContext(ctx).Model(&donation.Donation{})
	if filter.DonorID != nil {
		q = q.Where("donor_id = ?", *filter.DonorID)
	}
	if filter.ReceiverID != nil {
		q = q.Where("receiver_id = ?", *filter.ReceiverID)
	}
	if len(filter.DonorIDs) > 0 {
		q = q.Where("donor_id IN ?", filter.DonorIDs)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}

	var list []donation.Donation
	if err := q.Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *PostgresDonationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, change StatusChange) (donation.Donation, error) {
	updates := map[string]interface{}{
		"status":     change.To,
		"updated_at": time.Now().UTC(),
	}

	var updated []donation.Donation
	q := r.db.WithContext(ctx).
		Model(&updated).
		Clauses(clause.Returning{}).
		Where("id = ?", id)

	if len(change.From) > 0 {
		q = q.Where("status IN ?", change.From)
	}
	if change.DonorID != nil {
		q = q.Where("donor_id = ?", *change.DonorID)
	}
	if change.AssignReceiver != nil {
		q = q.Where("receiver_id IS NULL")
		updates["receiver_id"] = *change.AssignReceiver
	} else if change.ClearReceiver {
		updates["receiver_id"] = nil
	}
	if change.RequireReceiver {
		q = q.Where("receiver_id IS NOT NULL")
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return donation.Donation{}, res.Error
	}
	if res.RowsAffected == 0 || len(updated) == 0 {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return donation.Donation{}, err
		}
		return current, medishare_errors.ErrConflict
	}
	return updated[0], nil
}

func (r *PostgresDonationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&donation.Donation{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return medishare_errors.ErrNotFound
	}
	return nil
}
