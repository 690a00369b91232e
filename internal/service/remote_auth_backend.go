package service

import (
	"context"
	"errors"
	"net"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/estudaia-api/internal/models"
	appErrors "github.com/noah-isme/estudaia-api/pkg/errors"
	"github.com/noah-isme/estudaia-api/pkg/supabase"
)

type remoteAuthClient interface {
	Initialize(ctx context.Context) (*supabase.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*supabase.Session, error)
	SignUp(ctx context.Context, email, password string, data map[string]interface{}) (*supabase.User, *supabase.Session, error)
	SignOut(ctx context.Context) error
	Session() *supabase.Session
	OnAuthStateChange() (<-chan supabase.AuthChangeEvent, func())
}

type profileGateway interface {
	GetCurrentUser(ctx context.Context) (*models.UserProfile, error)
}

// RemoteAuthBackend delegates credentials to the hosted identity provider and derives the
// profile through the remote gateway.
type RemoteAuthBackend struct {
	auth    remoteAuthClient
	gateway profileGateway
	logger  *zap.Logger
}

// NewRemoteAuthBackend constructs the remote backend.
func NewRemoteAuthBackend(auth remoteAuthClient, gateway profileGateway, logger *zap.Logger) *RemoteAuthBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteAuthBackend{auth: auth, gateway: gateway, logger: logger}
}

// Mode implements AuthBackend.
func (b *RemoteAuthBackend) Mode() models.AuthMode {
	return models.ModeRemote
}

// SignIn implements AuthBackend.
func (b *RemoteAuthBackend) SignIn(ctx context.Context, email, password string) (*models.UserProfile, error) {
	if _, err := b.auth.SignInWithPassword(ctx, strings.TrimSpace(email), password); err != nil {
		return nil, b.classify(err, "sign in")
	}
	return b.profileAfterAuth(ctx)
}

// SignUp implements AuthBackend. The display name travels as full_name metadata so the
// lazily provisioned profile picks it up.
func (b *RemoteAuthBackend) SignUp(ctx context.Context, name, email, password string) (*models.UserProfile, error) {
	data := map[string]interface{}{"full_name": strings.TrimSpace(name)}
	_, session, err := b.auth.SignUp(ctx, strings.TrimSpace(email), password, data)
	if err != nil {
		if supabase.IsDuplicateUser(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		}
		return nil, b.classify(err, "sign up")
	}
	if session == nil {
		b.logger.Info("sign up pending e-mail confirmation", zap.String("email", email))
		return nil, nil
	}
	return b.profileAfterAuth(ctx)
}

// SignOut implements AuthBackend.
func (b *RemoteAuthBackend) SignOut(ctx context.Context) error {
	return b.auth.SignOut(ctx)
}

// Restore implements AuthBackend.
func (b *RemoteAuthBackend) Restore(ctx context.Context) (*models.UserProfile, error) {
	session, err := b.auth.Initialize(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrBackend.Code, appErrors.ErrBackend.Status, "failed to restore session")
	}
	if session == nil {
		return nil, nil
	}
	return b.gateway.GetCurrentUser(ctx)
}

// SessionAlive implements SessionLiveness from the provider's current session.
func (b *RemoteAuthBackend) SessionAlive() bool {
	return b.auth.Session() != nil
}

// CurrentProfile implements AuthBackend.
func (b *RemoteAuthBackend) CurrentProfile(ctx context.Context) (*models.UserProfile, error) {
	return b.gateway.GetCurrentUser(ctx)
}

// Subscribe implements AuthEventSource by translating provider events.
func (b *RemoteAuthBackend) Subscribe() (<-chan models.AuthEvent, func()) {
	source, unsubscribe := b.auth.OnAuthStateChange()
	out := make(chan models.AuthEvent, cap(source))
	go func() {
		defer close(out)
		for event := range source {
			translated := models.AuthEvent{Type: models.AuthEventType(event.Type)}
			if event.Session != nil {
				translated.UserID = event.Session.Subject()
			}
			out <- translated
		}
	}()
	return out, unsubscribe
}

// profileAfterAuth loads the profile for a fresh session. A session without a usable
// profile is signed out again so the provider and the manager agree.
func (b *RemoteAuthBackend) profileAfterAuth(ctx context.Context) (*models.UserProfile, error) {
	profile, err := b.gateway.GetCurrentUser(ctx)
	if err == nil && profile == nil {
		err = appErrors.Clone(appErrors.ErrBackend, "signed in but no identity was returned")
	}
	if err != nil {
		if signOutErr := b.auth.SignOut(ctx); signOutErr != nil {
			b.logger.Warn("sign out after profile failure", zap.Error(signOutErr))
		}
		return nil, err
	}
	return profile, nil
}

// classify maps provider failures onto the credential / configuration / backend taxonomy.
func (b *RemoteAuthBackend) classify(err error, op string) error {
	switch {
	case supabase.IsCredentialError(err):
		return appErrors.Wrap(err, appErrors.ErrInvalidCredentials.Code, appErrors.ErrInvalidCredentials.Status, "invalid email or password")
	case errors.Is(err, supabase.ErrNotConfigured), supabase.IsKeyRejected(err):
		return appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, "authentication service rejected the configured key")
	case unreachable(err):
		return appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, "authentication service unreachable")
	default:
		return appErrors.Wrap(err, appErrors.ErrBackend.Code, appErrors.ErrBackend.Status, op+" failed")
	}
}

// unreachable reports a transport failure that was not caused by the caller giving up.
func unreachable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
