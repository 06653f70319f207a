package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"medishare/internal/domain/user"
	"medishare/internal/repository"
	medishare_errors "medishare/pkg/errors"
)

type UserService struct {
	repo repository.UserRepository
	now  func() time.Time
}

func NewUserService(repo repository.UserRepository) *UserService {
	return &UserService{repo: repo, now: time.Now}
}

// UpdateProfileInput is a partial update. Nil fields are left untouched and an
// empty string clears the field.
type UpdateProfileInput struct {
	Email              *string
	FullName           *string
	MobileNumber       *string
	OrganizationName   *string
	Address            *user.AddressPatch
	ContactPerson      *user.ContactPersonPatch
	RegistrationNumber *string
	Website            *string
}

func (s *UserService) Profile(ctx context.Context, actor Actor) (user.User, error) {
	if err := requireActor(actor); err != nil {
		return user.User{}, err
	}
	u, err := s.repo.GetByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, medishare_errors.ErrNotFound) {
			return user.User{}, medishare_errors.NotFound("User not found")
		}
		return user.User{}, err
	}
	return u, nil
}

// UpdateProfile applies only the fields that belong to the actor's role.
func (s *UserService) UpdateProfile(ctx context.Context, actor Actor, in UpdateProfileInput) (user.User, error) {
	u, err := s.Profile(ctx, actor)
	if err != nil {
		return user.User{}, err
	}

	if in.Email != nil {
		email := user.NormalizeEmail(*in.Email)
		if email != "" && email != u.Email {
			if err := user.ValidateEmail(email); err != nil {
				return user.User{}, err
			}
			existing, err := s.repo.GetByEmail(ctx, email)
			switch {
			case err == nil && existing.ID != u.ID:
				return user.User{}, medishare_errors.Conflict("Email already in use")
			case err != nil && !errors.Is(err, medishare_errors.ErrNotFound):
				return user.User{}, err
			}
			u.Email = email
		}
	}

	if in.Address != nil && (u.Role == user.RoleDonor || u.Role == user.RoleReceiver) {
		if in.Address.Pincode != nil {
			if err := user.ValidatePincode(strings.TrimSpace(*in.Address.Pincode)); err != nil {
				return user.User{}, err
			}
		}
		u.Address.Merge(*in.Address)
	}

	switch u.Role {
	case user.RoleDonor, user.RoleAdmin:
		if in.FullName != nil {
			u.FullName = strings.TrimSpace(*in.FullName)
		}
		if in.MobileNumber != nil {
			mobile := strings.TrimSpace(*in.MobileNumber)
			if err := user.ValidateMobile(mobile); err != nil {
				return user.User{}, err
			}
			u.MobileNumber = mobile
		}
	case user.RoleReceiver:
		if in.OrganizationName != nil {
			u.OrganizationName = strings.TrimSpace(*in.OrganizationName)
		}
		if in.ContactPerson != nil {
			u.ContactPerson.Merge(*in.ContactPerson)
		}
		if in.RegistrationNumber != nil {
			u.RegistrationNumber = strings.TrimSpace(*in.RegistrationNumber)
		}
		if in.Website != nil {
			website := strings.TrimSpace(*in.Website)
			if err := user.ValidateWebsite(website); err != nil {
				return user.User{}, err
			}
			u.Website = website
		}
	}

	u.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, u); err != nil {
		if errors.Is(err, medishare_errors.ErrAlreadyExists) {
			return user.User{}, medishare_errors.Conflict("Email already in use")
		}
		return user.User{}, err
	}
	return u, nil
}

func (s *UserService) ListDonors(ctx context.Context, actor Actor) ([]user.User, error) {
	return s.listByRole(ctx, actor, user.RoleDonor)
}

func (s *UserService) ListReceivers(ctx context.Context, actor Actor) ([]user.User, error) {
	return s.listByRole(ctx, actor, user.RoleReceiver)
}

func (s *UserService) listByRole(ctx context.Context, actor Actor, role user.Role) ([]user.User, error) {
	if err := requireRole(actor, "Not authorized as an admin", user.RoleAdmin); err != nil {
		return nil, err
	}
	return s.repo.ListByRole(ctx, role)
}
