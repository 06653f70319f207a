package repository

import (
	"context"
	"testing"
	"time"

	"medishare/internal/domain/donation"
	"medishare/internal/domain/user"
	medishare_errors "medishare/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

// contract tests shared by the memory and postgres implementations

func seedUser(t *testing.T, repo UserRepository, role user.Role, email, city string) user.User {
	t.Helper()
	u := user.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "hash",
		Role:         role,
		FullName:     email,
		Address:      user.Address{City: city},
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	require.NoError(t, repo.Create(context.Background(), &u))
	return u
}

func seedDonation(t *testing.T, repo DonationRepository, donorID uuid.UUID, status donation.Status, createdAt time.Time) donation.Donation {
	t.Helper()
	d := donation.Donation{
		ID:              uuid.New(),
		DonorID:         donorID,
		ItemType:        donation.ItemTypeDevice,
		DeviceType:      "wheelchair",
		Description:     "folding",
		Condition:       donation.ConditionGood,
		ImageURL:        "https://cdn.example/donated_devices/x.jpg",
		ImageStorageKey: "donated_devices/x",
		Status:          status,
		AIValidation:    datatypes.NewJSONType(donation.AIValidation{Status: donation.AIStatusSkipped, ValidatedAt: createdAt}),
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
	require.NoError(t, repo.Create(context.Background(), &d))
	return d
}

func runUserRepositoryContract(t *testing.T, repo UserRepository) {
	ctx := context.Background()

	pune := seedUser(t, repo, user.RoleDonor, "a@example.com", "Pune")
	_ = seedUser(t, repo, user.RoleDonor, "b@example.com", "Mumbai")
	recv := seedUser(t, repo, user.RoleReceiver, "c@example.com", "pune")

	t.Run("duplicate email", func(t *testing.T) {
		dup := user.User{ID: uuid.New(), Email: "a@example.com", PasswordHash: "h", Role: user.RoleDonor, CreatedAt: time.Now(), UpdatedAt: time.Now()}
		assert.ErrorIs(t, repo.Create(ctx, &dup), medishare_errors.ErrAlreadyExists)
	})

	t.Run("lookup by email is case-insensitive", func(t *testing.T) {
		got, err := repo.GetByEmail(ctx, "A@EXAMPLE.com")
		require.NoError(t, err)
		assert.Equal(t, pune.ID, got.ID)

		_, err = repo.GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, medishare_errors.ErrNotFound)
	})

	t.Run("city match is case-insensitive and role scoped", func(t *testing.T) {
		ids, err := repo.ListIDsByRoleAndCity(ctx, user.RoleDonor, "PUNE")
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{pune.ID}, ids)
	})

	t.Run("update", func(t *testing.T) {
		recv.OrganizationName = "City Clinic"
		require.NoError(t, repo.Update(ctx, recv))
		got, err := repo.GetByID(ctx, recv.ID)
		require.NoError(t, err)
		assert.Equal(t, "City Clinic", got.OrganizationName)
	})

	t.Run("exists by role", func(t *testing.T) {
		ok, err := repo.ExistsByRole(ctx, user.RoleAdmin)
		require.NoError(t, err)
		assert.False(t, ok)
		ok, err = repo.ExistsByRole(ctx, user.RoleReceiver)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func runDonationRepositoryContract(t *testing.T, repo DonationRepository, users UserRepository) {
	ctx := context.Background()
	donor := seedUser(t, users, user.RoleDonor, "donor-"+uuid.NewString()+"@example.com", "Pune")
	receiver := seedUser(t, users, user.RoleReceiver, "recv-"+uuid.NewString()+"@example.com", "Pune")
	other := seedUser(t, users, user.RoleReceiver, "other-"+uuid.NewString()+"@example.com", "Pune")

	base := time.Now().UTC().Truncate(time.Millisecond)
	older := seedDonation(t, repo, donor.ID, donation.StatusApproved, base.Add(-time.Hour))
	newer := seedDonation(t, repo, donor.ID, donation.StatusPendingApproval, base)

	t.Run("list newest first", func(t *testing.T) {
		list, err := repo.List(ctx, DonationFilter{DonorID: &donor.ID})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, newer.ID, list[0].ID)
		assert.Equal(t, older.ID, list[1].ID)
	})

	t.Run("status and donor set filters", func(t *testing.T) {
		list, err := repo.List(ctx, DonationFilter{DonorIDs: []uuid.UUID{donor.ID}, Statuses: []donation.Status{donation.StatusApproved}})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, older.ID, list[0].ID)

		list, err = repo.List(ctx, DonationFilter{DonorIDs: []uuid.UUID{}})
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("assign receiver once", func(t *testing.T) {
		change := StatusChange{
			To:             donation.StatusRequested,
			From:           []donation.Status{donation.StatusApproved},
			AssignReceiver: &receiver.ID,
		}
		updated, err := repo.UpdateStatus(ctx, older.ID, change)
		require.NoError(t, err)
		assert.Equal(t, donation.StatusRequested, updated.Status)
		require.NotNil(t, updated.ReceiverID)
		assert.Equal(t, receiver.ID, *updated.ReceiverID)

		second := change
		second.AssignReceiver = &other.ID
		current, err := repo.UpdateStatus(ctx, older.ID, second)
		assert.ErrorIs(t, err, medishare_errors.ErrConflict)
		assert.Equal(t, donation.StatusRequested, current.Status)
		assert.Equal(t, receiver.ID, *current.ReceiverID)

		list, err := repo.List(ctx, DonationFilter{ReceiverID: &receiver.ID})
		require.NoError(t, err)
		require.Len(t, list, 1)
	})

	t.Run("guarded donor step", func(t *testing.T) {
		_, err := repo.UpdateStatus(ctx, newer.ID, StatusChange{
			To:      donation.StatusCollected,
			From:    []donation.Status{donation.StatusRequested},
			DonorID: &donor.ID,
		})
		assert.ErrorIs(t, err, medishare_errors.ErrConflict)

		stored, err := repo.GetByID(ctx, newer.ID)
		require.NoError(t, err)
		assert.Equal(t, donation.StatusPendingApproval, stored.Status)
		assert.Equal(t, donation.AIStatusSkipped, stored.AI().Status)
	})

	t.Run("clear receiver", func(t *testing.T) {
		updated, err := repo.UpdateStatus(ctx, older.ID, StatusChange{To: donation.StatusApproved, ClearReceiver: true})
		require.NoError(t, err)
		assert.Nil(t, updated.ReceiverID)
	})

	t.Run("missing record", func(t *testing.T) {
		_, err := repo.UpdateStatus(ctx, uuid.New(), StatusChange{To: donation.StatusApproved})
		assert.ErrorIs(t, err, medishare_errors.ErrNotFound)
		_, err = repo.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, medishare_errors.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, newer.ID))
		assert.ErrorIs(t, repo.Delete(ctx, newer.ID), medishare_errors.ErrNotFound)
	})
}
