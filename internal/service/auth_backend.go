package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/estudaia-api/internal/models"
	"github.com/noah-isme/estudaia-api/internal/repository"
	appErrors "github.com/noah-isme/estudaia-api/pkg/errors"
)

// AuthBackend is one operating mode of the session manager. Implementations signal a
// credential mismatch with ErrInvalidCredentials, a taken e-mail with ErrConflict and an
// unusable backend with ErrConfiguration.
type AuthBackend interface {
	Mode() models.AuthMode
	SignIn(ctx context.Context, email, password string) (*models.UserProfile, error)
	// SignUp registers a student. A nil profile with a nil error means the account exists
	// but is not signed in yet (e-mail confirmation pending).
	SignUp(ctx context.Context, name, email, password string) (*models.UserProfile, error)
	SignOut(ctx context.Context) error
	// Restore returns the persisted login from a previous run, or nil.
	Restore(ctx context.Context) (*models.UserProfile, error)
	// CurrentProfile re-derives the profile from the backend's current session, or nil.
	CurrentProfile(ctx context.Context) (*models.UserProfile, error)
}

// AuthEventSource is implemented by backends whose identity provider reports changes
// out of band. The channel is closed by the returned unsubscribe func.
type AuthEventSource interface {
	Subscribe() (<-chan models.AuthEvent, func())
}

// SessionLiveness is implemented by backends whose provider session can end without an
// event reaching the manager, for example when a refresh fails while events are dropped.
type SessionLiveness interface {
	SessionAlive() bool
}

type mockAccountRepository interface {
	FindByEmail(ctx context.Context, email string) (*repository.MockAccount, error)
	Create(ctx context.Context, account repository.MockAccount) error
	SaveCurrent(ctx context.Context, profile *models.UserProfile) error
	LoadCurrent(ctx context.Context) (*models.UserProfile, error)
	ClearCurrent(ctx context.Context) error
}

// LocalAuthConfig seeds the local-mock registry.
type LocalAuthConfig struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// LocalAuthBackend checks credentials against the persisted mock account registry.
type LocalAuthBackend struct {
	accounts mockAccountRepository
	config   LocalAuthConfig
	logger   *zap.Logger
	now      func() time.Time

	seedMu sync.Mutex
	seeded bool
}

// NewLocalAuthBackend constructs the local-mock backend.
func NewLocalAuthBackend(accounts mockAccountRepository, config LocalAuthConfig, logger *zap.Logger) *LocalAuthBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &LocalAuthBackend{accounts: accounts, config: config, logger: logger, now: time.Now}
}

// Mode implements AuthBackend.
func (b *LocalAuthBackend) Mode() models.AuthMode {
	return models.ModeLocalMock
}

// Seed makes sure the administrator account exists. It runs once per backend.
func (b *LocalAuthBackend) Seed(ctx context.Context) error {
	b.seedMu.Lock()
	defer b.seedMu.Unlock()
	if b.seeded || strings.TrimSpace(b.config.AdminEmail) == "" {
		return nil
	}

	_, err := b.accounts.FindByEmail(ctx, b.config.AdminEmail)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		hash, hashErr := bcrypt.GenerateFromPassword([]byte(b.config.AdminPassword), b.config.BcryptCost)
		if hashErr != nil {
			return appErrors.Wrap(hashErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash admin password")
		}
		createErr := b.accounts.Create(ctx, repository.MockAccount{
			ID:           uuid.NewString(),
			Email:        strings.TrimSpace(b.config.AdminEmail),
			PasswordHash: string(hash),
			Role:         models.RoleAdmin,
			FullName:     b.config.AdminName,
			CreatedAt:    b.now().UTC(),
		})
		if createErr != nil && !errors.Is(createErr, repository.ErrDuplicateEmail) {
			return appErrors.Wrap(createErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed admin account")
		}
		b.logger.Info("seeded local admin account", zap.String("email", b.config.AdminEmail))
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read account registry")
	}
	b.seeded = true
	return nil
}

// SignIn implements AuthBackend.
func (b *LocalAuthBackend) SignIn(ctx context.Context, email, password string) (*models.UserProfile, error) {
	if err := b.Seed(ctx); err != nil {
		return nil, err
	}
	account, err := b.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read account registry")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	profile := account.Profile()
	if err := b.accounts.SaveCurrent(ctx, profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist login")
	}
	return profile, nil
}

// SignUp implements AuthBackend. New accounts are students and are signed in immediately.
func (b *LocalAuthBackend) SignUp(ctx context.Context, name, email, password string) (*models.UserProfile, error) {
	if err := b.Seed(ctx); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.config.BcryptCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	account := repository.MockAccount{
		ID:           uuid.NewString(),
		Email:        strings.TrimSpace(email),
		PasswordHash: string(hash),
		Role:         models.RoleStudent,
		FullName:     strings.TrimSpace(name),
		CreatedAt:    b.now().UTC(),
	}
	if err := b.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register account")
	}

	profile := account.Profile()
	if err := b.accounts.SaveCurrent(ctx, profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist login")
	}
	return profile, nil
}

// SignOut implements AuthBackend.
func (b *LocalAuthBackend) SignOut(ctx context.Context) error {
	return b.accounts.ClearCurrent(ctx)
}

// Restore implements AuthBackend.
func (b *LocalAuthBackend) Restore(ctx context.Context) (*models.UserProfile, error) {
	if err := b.Seed(ctx); err != nil {
		return nil, err
	}
	return b.accounts.LoadCurrent(ctx)
}

// CurrentProfile implements AuthBackend.
func (b *LocalAuthBackend) CurrentProfile(ctx context.Context) (*models.UserProfile, error) {
	return b.accounts.LoadCurrent(ctx)
}
