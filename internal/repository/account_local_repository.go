package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/estudaia-api/internal/models"
	"github.com/noah-isme/estudaia-api/pkg/kv"
)

const (
	accountsKey    = "users"
	currentUserKey = "mockUser"
	legacyUserKey  = "user"
)

// MockAccount is one entry of the local-mock account registry.
type MockAccount struct {
	ID           string      `json:"id"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"password_hash"`
	Role         models.Role `json:"role"`
	FullName     string      `json:"full_name"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Profile projects the account onto the canonical profile shape.
func (a MockAccount) Profile() *models.UserProfile {
	return &models.UserProfile{
		ID:          a.ID,
		Email:       a.Email,
		Role:        a.Role,
		DisplayName: a.FullName,
		UpdatedAt:   a.CreatedAt,
	}
}

// LocalAccountRepository persists the mock account registry and the logged-in profile.
type LocalAccountRepository struct {
	store  kv.Store
	logger *zap.Logger

	mu sync.Mutex
}

// NewLocalAccountRepository constructs the registry.
func NewLocalAccountRepository(store kv.Store, logger *zap.Logger) *LocalAccountRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalAccountRepository{store: store, logger: logger}
}

// FindByEmail looks an account up case-insensitively, returning ErrNotFound when absent.
func (r *LocalAccountRepository) FindByEmail(ctx context.Context, email string) (*MockAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	accounts, err := loadCollection[MockAccount](ctx, r.store, accountsKey, r.logger)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		if sameEmail(accounts[i].Email, email) {
			return &accounts[i], nil
		}
	}
	return nil, ErrNotFound
}

// Create appends an account unless its e-mail is already registered.
func (r *LocalAccountRepository) Create(ctx context.Context, account MockAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	accounts, err := loadCollection[MockAccount](ctx, r.store, accountsKey, r.logger)
	if err != nil {
		return err
	}
	for _, existing := range accounts {
		if sameEmail(existing.Email, account.Email) {
			return ErrDuplicateEmail
		}
	}
	payload, err := encodeCollection(append(accounts, account))
	if err != nil {
		return fmt.Errorf("encode accounts: %w", err)
	}
	if err := r.store.Set(ctx, accountsKey, payload); err != nil {
		return fmt.Errorf("write accounts: %w", err)
	}
	return nil
}

// Count returns the registry size.
func (r *LocalAccountRepository) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	accounts, err := loadCollection[MockAccount](ctx, r.store, accountsKey, r.logger)
	if err != nil {
		return 0, err
	}
	return len(accounts), nil
}

// SaveCurrent persists the logged-in profile so a restart keeps the login.
func (r *LocalAccountRepository) SaveCurrent(ctx context.Context, profile *models.UserProfile) error {
	payload, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode current user: %w", err)
	}
	if err := r.store.Set(ctx, currentUserKey, string(payload)); err != nil {
		return fmt.Errorf("write current user: %w", err)
	}
	return nil
}

// LoadCurrent returns the persisted profile, falling back to the legacy key, or nil when
// nobody is logged in. A corrupt entry is dropped and treated as logged out.
func (r *LocalAccountRepository) LoadCurrent(ctx context.Context) (*models.UserProfile, error) {
	raw, err := r.store.Get(ctx, currentUserKey)
	if errors.Is(err, kv.ErrNotFound) {
		raw, err = r.store.Get(ctx, legacyUserKey)
	}
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read current user: %w", err)
	}

	var profile models.UserProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil || profile.ID == "" {
		r.logger.Warn("malformed persisted user, clearing", zap.Error(err))
		return nil, r.ClearCurrent(ctx)
	}
	return &profile, nil
}

// ClearCurrent removes the persisted session marker, including the legacy key.
func (r *LocalAccountRepository) ClearCurrent(ctx context.Context) error {
	for _, key := range []string{currentUserKey, legacyUserKey} {
		if err := r.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return nil
}

func sameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
