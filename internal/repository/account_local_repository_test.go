package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/estudaia-api/internal/models"
	"github.com/noah-isme/estudaia-api/pkg/kv"
)

func TestLocalAccountRepositoryRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewLocalAccountRepository(kv.NewMemoryStore(), nil)

	account := MockAccount{ID: "u1", Email: "ana@estuda.ia", PasswordHash: "h", Role: models.RoleStudent, CreatedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, account))

	dup := account
	dup.ID = "u2"
	dup.Email = " ANA@estuda.ia "
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrDuplicateEmail)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	found, err := repo.FindByEmail(ctx, "Ana@Estuda.IA")
	require.NoError(t, err)
	assert.Equal(t, "u1", found.ID)

	_, err = repo.FindByEmail(ctx, "nobody@estuda.ia")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalAccountRepositoryCurrentUser(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	repo := NewLocalAccountRepository(store, nil)

	current, err := repo.LoadCurrent(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)

	profile := &models.UserProfile{ID: "u1", Email: "ana@estuda.ia", Role: models.RoleAdmin, DisplayName: "Ana"}
	require.NoError(t, repo.SaveCurrent(ctx, profile))

	current, err = repo.LoadCurrent(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "ana@estuda.ia", current.Email)
	assert.True(t, current.IsAdmin())

	require.NoError(t, repo.ClearCurrent(ctx))
	require.NoError(t, repo.ClearCurrent(ctx))
	current, err = repo.LoadCurrent(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)

	require.NoError(t, store.Set(ctx, currentUserKey, "garbage"))
	current, err = repo.LoadCurrent(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)
	_, err = store.Get(ctx, currentUserKey)
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestLocalAccountRepositoryReadsLegacyUserKey(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	repo := NewLocalAccountRepository(store, nil)

	require.NoError(t, store.Set(ctx, legacyUserKey, `{"id":"u7","email":"bia@estuda.ia","role":"student"}`))
	current, err := repo.LoadCurrent(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "u7", current.ID)
	assert.True(t, current.IsStudent())

	require.NoError(t, repo.SaveCurrent(ctx, &models.UserProfile{ID: "u1", Role: models.RoleAdmin}))
	current, err = repo.LoadCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", current.ID, "the current key wins over the legacy one")

	require.NoError(t, repo.ClearCurrent(ctx))
	current, err = repo.LoadCurrent(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)
}
