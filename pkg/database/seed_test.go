package database

import (
	"context"
	"testing"

	"medishare/internal/domain/user"
	"medishare/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSeedAdmin(t *testing.T) {
	ctx := context.Background()
	users := repository.NewInMemoryUserRepository()

	_, _, err := SeedAdmin(ctx, users, "", "secret")
	assert.ErrorIs(t, err, ErrSeedSkipped)

	admin, created, err := SeedAdmin(ctx, users, " Admin@Medishare.org ", "s3cret-pass")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, user.RoleAdmin, admin.Role)
	assert.Equal(t, "admin@medishare.org", admin.Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("s3cret-pass")))

	again, created, err := SeedAdmin(ctx, users, "other@medishare.org", "x")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, admin.ID, again.ID)
}
