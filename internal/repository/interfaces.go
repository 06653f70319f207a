package repository

import (
	"context"

	"github.com/google/uuid"

	"medishare/internal/domain/donation"
	"medishare/internal/domain/user"
)

type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	GetByID(ctx context.Context, id uuid.UUID) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Update(ctx context.Context, u user.User) error

	ListByRole(ctx context.Context, role user.Role) ([]user.User, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]user.User, error)
	// ListIDsByRoleAndCity matches the address city case-insensitively.
	ListIDsByRoleAndCity(ctx context.Context, role user.Role, city string) ([]uuid.UUID, error)
	ExistsByRole(ctx context.Context, role user.Role) (bool, error)
}

// DonationFilter combines equality and set-membership conditions with AND.
// A nil DonorIDs slice means no restriction; an empty non-nil slice matches nothing.
type DonationFilter struct {
	DonorID    *uuid.UUID
	ReceiverID *uuid.UUID
	DonorIDs   []uuid.UUID
	Statuses   []donation.Status
}

// StatusChange is a single conditional update of a donation's status.
// Every guard is checked in the same statement as the write.
type StatusChange struct {
	To donation.Status
	// From restricts the current status. Empty means any status.
	From []donation.Status
	// DonorID restricts the update to records owned by this donor.
	DonorID *uuid.UUID
	// AssignReceiver binds a receiver; the record must not have one yet.
	AssignReceiver *uuid.UUID
	// RequireReceiver fails the update when no receiver is bound.
	RequireReceiver bool
	ClearReceiver   bool
}

type DonationRepository interface {
	Create(ctx context.Context, d *donation.Donation) error
	GetByID(ctx context.Context, id uuid.UUID) (donation.Donation, error)
	// List returns matching donations, newest first.
	List(ctx context.Context, filter DonationFilter) ([]donation.Donation, error)
	// UpdateStatus applies change atomically. It returns ErrNotFound when the
	// record is absent and ErrConflict, with the current record, when a guard fails.
	UpdateStatus(ctx context.Context, id uuid.UUID, change StatusChange) (donation.Donation, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
