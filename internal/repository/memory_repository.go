package repository

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"medishare/internal/domain/donation"
	"medishare/internal/domain/user"
	medishare_errors "medishare/pkg/errors"

	"github.com/google/uuid"
)

// InMemoryDonationRepository implements DonationRepository behind a single mutex.
// Conditional updates hold the lock across check and write.
type InMemoryDonationRepository struct {
	mu        sync.RWMutex
	donations map[uuid.UUID]donation.Donation
}

func NewInMemoryDonationRepository() *InMemoryDonationRepository {
	return &InMemoryDonationRepository{
		donations: make(map[uuid.UUID]donation.Donation),
	}
}

func (r *InMemoryDonationRepository) Create(_ context.Context, d *donation.Donation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.donations[d.ID]; exists {
		return medishare_errors.ErrAlreadyExists
	}
	r.donations[d.ID] = copyDonation(*d)
	return nil
}

func (r *InMemoryDonationRepository) GetByID(_ context.Context, id uuid.UUID) (donation.Donation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.donations[id]
	if !ok {
		return donation.Donation{}, medishare_errors.ErrNotFound
	}
	return copyDonation(d), nil
}

func (r *InMemoryDonationRepository) List(_ context.Context, filter DonationFilter) ([]donation.Donation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]donation.Donation, 0)
	for _, d := range r.donations {
		if matchesFilter(d, filter) {
			list = append(list, copyDonation(d))
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID.String() > list[j].ID.String()
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

func matchesFilter(d donation.Donation, filter DonationFilter) bool {
	if filter.DonorID != nil && d.DonorID != *filter.DonorID {
		return false
	}
	if filter.ReceiverID != nil && (d.ReceiverID == nil || *d.ReceiverID != *filter.ReceiverID) {
		return false
	}
	if filter.DonorIDs != nil && !slices.Contains(filter.DonorIDs, d.DonorID) {
		return false
	}
	if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, d.Status) {
		return false
	}
	return true
}

func (r *InMemoryDonationRepository) UpdateStatus(_ context.Context, id uuid.UUID, change StatusChange) (donation.Donation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.donations[id]
	if !ok {
		return donation.Donation{}, medishare_errors.ErrNotFound
	}

	if len(change.From) > 0 && !slices.Contains(change.From, d.Status) {
		return copyDonation(d), medishare_errors.ErrConflict
	}
	if change.DonorID != nil && d.DonorID != *change.DonorID {
		return copyDonation(d), medishare_errors.ErrConflict
	}
	if change.AssignReceiver != nil && d.ReceiverID != nil {
		return copyDonation(d), medishare_errors.ErrConflict
	}
	if change.RequireReceiver && d.ReceiverID == nil {
		return copyDonation(d), medishare_errors.ErrConflict
	}

	d.Status = change.To
	if change.AssignReceiver != nil {
		receiverID := *change.AssignReceiver
		d.ReceiverID = &receiverID
	} else if change.ClearReceiver {
		d.ReceiverID = nil
	}
	d.UpdatedAt = time.Now().UTC()
	r.donations[id] = d

	return copyDonation(d), nil
}

func (r *InMemoryDonationRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.donations[id]; !ok {
		return medishare_errors.ErrNotFound
	}
	delete(r.donations, id)
	return nil
}

func copyDonation(d donation.Donation) donation.Donation {
	if d.ReceiverID != nil {
		receiverID := *d.ReceiverID
		d.ReceiverID = &receiverID
	}
	return d
}

// InMemoryUserRepository implements UserRepository for tests and the memory driver.
type InMemoryUserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]user.User
}

func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		users: make(map[uuid.UUID]user.User),
	}
}

func (r *InMemoryUserRepository) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[u.ID]; exists {
		return medishare_errors.ErrAlreadyExists
	}
	if r.emailTaken(u.Email, uuid.Nil) {
		return medishare_errors.ErrAlreadyExists
	}
	r.users[u.ID] = *u
	return nil
}

func (r *InMemoryUserRepository) GetByID(_ context.Context, id uuid.UUID) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return user.User{}, medishare_errors.ErrNotFound
	}
	return u, nil
}

func (r *InMemoryUserRepository) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.TrimSpace(email)
	for _, u := range r.users {
		if strings.EqualFold(u.Email, needle) {
			return u, nil
		}
	}
	return user.User{}, medishare_errors.ErrNotFound
}

func (r *InMemoryUserRepository) Update(_ context.Context, u user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[u.ID]; !ok {
		return medishare_errors.ErrNotFound
	}
	if r.emailTaken(u.Email, u.ID) {
		return medishare_errors.ErrAlreadyExists
	}
	r.users[u.ID] = u
	return nil
}

func (r *InMemoryUserRepository) ListByRole(_ context.Context, role user.Role) ([]user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]user.User, 0)
	for _, u := range r.users {
		if u.Role == role {
			list = append(list, u)
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

func (r *InMemoryUserRepository) ListByIDs(_ context.Context, ids []uuid.UUID) ([]user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]user.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			list = append(list, u)
		}
	}
	return list, nil
}

func (r *InMemoryUserRepository) ListIDsByRoleAndCity(_ context.Context, role user.Role, city string) ([]uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.TrimSpace(city)
	ids := []uuid.UUID{}
	for _, u := range r.users {
		if u.Role == role && strings.EqualFold(u.City(), needle) {
			ids = append(ids, u.ID)
		}
	}
	return ids, nil
}

func (r *InMemoryUserRepository) ExistsByRole(_ context.Context, role user.Role) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Role == role {
			return true, nil
		}
	}
	return false, nil
}

// emailTaken must be called with the lock held.
func (r *InMemoryUserRepository) emailTaken(email string, except uuid.UUID) bool {
	for id, u := range r.users {
		if id != except && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}
