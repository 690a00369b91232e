package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsToLocalMockMode(t *testing.T) {
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_ANON_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.RemoteConfigured())
	assert.Equal(t, StoreDriverSQLite, cfg.LocalStore.Driver)
	assert.Equal(t, "admin@estuda.ia", cfg.MockAuth.AdminEmail)
	assert.Equal(t, "admin123", cfg.MockAuth.AdminPassword)
	assert.Equal(t, time.Minute, cfg.Supabase.RefreshLeeway)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
}

func TestLoadRemoteRequiresBothSettings(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://project.supabase.co/")
	t.Setenv("SUPABASE_ANON_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.RemoteConfigured())

	t.Setenv("SUPABASE_ANON_KEY", "anon")
	cfg, err = Load()
	require.NoError(t, err)
	assert.True(t, cfg.RemoteConfigured())
	assert.Equal(t, "https://project.supabase.co", cfg.Supabase.URL)
}

func TestLoadParsesListsAndDurations(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:5173, https://estuda.ia ,")
	t.Setenv("SUPABASE_REFRESH_LEEWAY", "not-a-duration")
	t.Setenv("LOCAL_STORE_DRIVER", "REDIS")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"http://localhost:5173", "https://estuda.ia"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, time.Minute, cfg.Supabase.RefreshLeeway)
	assert.Equal(t, StoreDriverRedis, cfg.LocalStore.Driver)
}
