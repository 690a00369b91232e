package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/estudaia-api/pkg/kv"
	"github.com/noah-isme/estudaia-api/pkg/supabase"
)

func TestKVSessionStorage(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	storage := NewKVSessionStorage(store, nil)

	session, err := storage.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, session)

	require.NoError(t, storage.Save(ctx, &supabase.Session{AccessToken: "a", RefreshToken: "r", User: supabase.User{ID: "u1"}}))
	session, err = storage.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "u1", session.User.ID)

	require.NoError(t, store.Set(ctx, remoteSessionKey, "{}"))
	session, err = storage.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, session, "session without refresh token is discarded")

	require.NoError(t, storage.Clear(ctx))
}
