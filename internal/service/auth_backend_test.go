package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/estudaia-api/internal/models"
	"github.com/noah-isme/estudaia-api/internal/repository"
	appErrors "github.com/noah-isme/estudaia-api/pkg/errors"
	"github.com/noah-isme/estudaia-api/pkg/kv"
)

func newLocalBackend(t *testing.T, store kv.Store) (*LocalAuthBackend, *repository.LocalAccountRepository) {
	t.Helper()
	if store == nil {
		store = kv.NewMemoryStore()
	}
	accounts := repository.NewLocalAccountRepository(store, nil)
	backend := NewLocalAuthBackend(accounts, LocalAuthConfig{
		AdminEmail:    "admin@estuda.ia",
		AdminPassword: "admin123",
		AdminName:     "Administrador",
		BcryptCost:    bcrypt.MinCost,
	}, nil)
	return backend, accounts
}

func TestLocalAuthBackendSeedsAdminOnce(t *testing.T) {
	ctx := context.Background()
	backend, accounts := newLocalBackend(t, nil)

	require.NoError(t, backend.Seed(ctx))
	require.NoError(t, backend.Seed(ctx))

	count, err := accounts.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	admin, err := accounts.FindByEmail(ctx, "admin@estuda.ia")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.NotEqual(t, "admin123", admin.PasswordHash)
}

func TestLocalAuthBackendSignIn(t *testing.T) {
	ctx := context.Background()
	backend, accounts := newLocalBackend(t, nil)

	profile, err := backend.SignIn(ctx, "admin@estuda.ia", "admin123")
	require.NoError(t, err)
	assert.True(t, profile.IsAdmin())
	assert.Equal(t, "Administrador", profile.Name())

	current, err := accounts.LoadCurrent(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, profile.ID, current.ID)

	_, err = backend.SignIn(ctx, "admin@estuda.ia", "wrong")
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = backend.SignIn(ctx, "ghost@estuda.ia", "admin123")
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestLocalAuthBackendSignUp(t *testing.T) {
	ctx := context.Background()
	backend, _ := newLocalBackend(t, nil)

	profile, err := backend.SignUp(ctx, "Ana", "ana@estuda.ia", "segredo")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.True(t, profile.IsStudent())
	assert.Equal(t, "Ana", profile.DisplayName)

	_, err = backend.SignUp(ctx, "Outra Ana", "ana@estuda.ia", "segredo2")
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))

	_, err = backend.SignUp(ctx, "Impostor", "ADMIN@estuda.ia", "x123456")
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict), "seeded admin e-mail is taken too")
}
