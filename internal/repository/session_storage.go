package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/estudaia-api/pkg/kv"
	"github.com/noah-isme/estudaia-api/pkg/supabase"
)

const remoteSessionKey = "sb-session"

// KVSessionStorage persists the hosted-auth session in the key-value store.
type KVSessionStorage struct {
	store  kv.Store
	logger *zap.Logger
}

// NewKVSessionStorage constructs the storage.
func NewKVSessionStorage(store kv.Store, logger *zap.Logger) *KVSessionStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KVSessionStorage{store: store, logger: logger}
}

// Load returns the stored session or nil.
func (s *KVSessionStorage) Load(ctx context.Context) (*supabase.Session, error) {
	raw, err := s.store.Get(ctx, remoteSessionKey)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var session supabase.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil || session.RefreshToken == "" {
		s.logger.Warn("malformed persisted session, clearing", zap.Error(err))
		return nil, s.Clear(ctx)
	}
	return &session, nil
}

// Save replaces the stored session.
func (s *KVSessionStorage) Save(ctx context.Context, session *supabase.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.store.Set(ctx, remoteSessionKey, string(payload))
}

// Clear removes the stored session.
func (s *KVSessionStorage) Clear(ctx context.Context) error {
	return s.store.Delete(ctx, remoteSessionKey)
}
