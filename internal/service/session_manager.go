package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/estudaia-api/internal/models"
	appErrors "github.com/noah-isme/estudaia-api/pkg/errors"
)

// SessionManager is the single source of truth for who is logged in and with what role.
// The operating mode is the backend's and never changes after construction.
type SessionManager struct {
	backend AuthBackend
	metrics *MetricsService
	logger  *zap.Logger

	mu    sync.RWMutex
	user  *models.UserProfile
	alive bool

	lifecycle   sync.Mutex
	started     bool
	cancel      context.CancelFunc
	unsubscribe func()
	done        chan struct{}
}

// NewSessionManager constructs a manager around one auth backend.
func NewSessionManager(backend AuthBackend, metrics *MetricsService, logger *zap.Logger) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{backend: backend, metrics: metrics, logger: logger}
}

// Start restores a persisted login and, for backends that report changes out of band,
// subscribes to them until Close. A restore failure leaves the manager logged out.
func (m *SessionManager) Start(ctx context.Context) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	if m.started {
		return nil
	}

	profile, err := m.backend.Restore(ctx)
	if err != nil {
		m.logger.Warn("could not restore previous session", zap.Error(err))
		profile = nil
	}
	m.setUser(profile)
	if profile != nil {
		m.logger.Info("session restored", zap.String("user_id", profile.ID), zap.String("role", string(profile.Role)))
	}

	if source, ok := m.backend.(AuthEventSource); ok {
		eventCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		events, unsubscribe := source.Subscribe()
		m.cancel = cancel
		m.unsubscribe = unsubscribe
		m.done = make(chan struct{})
		go m.watch(eventCtx, events)
	}
	m.started = true
	return nil
}

// Close unsubscribes from auth events and waits for the event loop to drain.
func (m *SessionManager) Close() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	if !m.started {
		return
	}
	if m.unsubscribe != nil {
		m.cancel()
		m.unsubscribe()
		<-m.done
	}
	m.started = false
}

// Mode reports the operating mode.
func (m *SessionManager) Mode() models.AuthMode {
	return m.backend.Mode()
}

// Login returns false for wrong credentials and for backend failures; it only returns an
// error when the backend itself is misconfigured or unreachable.
func (m *SessionManager) Login(ctx context.Context, email, password string) (bool, error) {
	profile, err := m.backend.SignIn(ctx, email, password)
	if err != nil {
		return false, m.credentialOutcome("login", email, err)
	}
	m.setUser(profile)
	m.logger.Info("user logged in", zap.String("user_id", profile.ID), zap.String("role", string(profile.Role)))
	return true, nil
}

// Register creates a student account and logs it in when the backend issues a session.
// The password length and confirmation rules are enforced by the caller.
func (m *SessionManager) Register(ctx context.Context, name, email, password string) (bool, error) {
	profile, err := m.backend.SignUp(ctx, name, email, password)
	if err != nil {
		return false, m.credentialOutcome("register", email, err)
	}
	if profile != nil {
		m.setUser(profile)
		m.logger.Info("user registered", zap.String("user_id", profile.ID))
	}
	return true, nil
}

// Logout clears the session. It is safe to call without an active session.
func (m *SessionManager) Logout(ctx context.Context) {
	if err := m.backend.SignOut(ctx); err != nil {
		m.logger.Warn("sign out reported an error, local session cleared anyway", zap.Error(err))
	}
	m.setUser(nil)
}

// Refresh re-derives the profile from the backend's current session.
func (m *SessionManager) Refresh(ctx context.Context) (*models.UserProfile, error) {
	profile, err := m.backend.CurrentProfile(ctx)
	if err != nil {
		return nil, err
	}
	m.setUser(profile)
	return profile.Clone(), nil
}

// CurrentUser returns a copy of the logged-in profile, or nil.
func (m *SessionManager) CurrentUser() *models.UserProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user.Clone()
}

// IsAdmin reports whether the current user is an administrator.
func (m *SessionManager) IsAdmin() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.authenticated() && m.user.IsAdmin()
}

// IsStudent reports whether the current user is a student.
func (m *SessionManager) IsStudent() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.authenticated() && m.user.IsStudent()
}

// IsAuthenticated needs a user and, in remote mode, a live provider session. Backends that
// expose SessionLiveness are asked directly so a missed SIGNED_OUT cannot keep a user in.
func (m *SessionManager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.authenticated()
}

// State returns every derived flag under one lock.
func (m *SessionManager) State() models.SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	authenticated := m.authenticated()
	state := models.SessionState{Mode: m.backend.Mode(), Authenticated: authenticated}
	if authenticated {
		state.User = m.user.Clone()
		state.IsAdmin = m.user.IsAdmin()
		state.IsStudent = m.user.IsStudent()
	}
	return state
}

func (m *SessionManager) authenticated() bool {
	if m.user == nil {
		return false
	}
	if m.backend.Mode() == models.ModeLocalMock {
		return true
	}
	if live, ok := m.backend.(SessionLiveness); ok && !live.SessionAlive() {
		return false
	}
	return m.alive
}

func (m *SessionManager) setUser(profile *models.UserProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = profile.Clone()
	m.alive = profile != nil
}

// credentialOutcome turns a backend error into Login/Register's (false, err) contract.
func (m *SessionManager) credentialOutcome(op, email string, err error) error {
	switch {
	case appErrors.Is(err, appErrors.ErrConfiguration):
		m.logger.Error(op+" failed: backend misconfigured", zap.Error(err))
		return err
	case appErrors.Is(err, appErrors.ErrInvalidCredentials), appErrors.Is(err, appErrors.ErrConflict):
		m.logger.Info(op+" rejected", zap.String("email", email), zap.String("reason", appErrors.FromError(err).Message))
	default:
		m.logger.Warn(op+" failed", zap.String("email", email), zap.Error(err))
	}
	return nil
}

func (m *SessionManager) watch(ctx context.Context, events <-chan models.AuthEvent) {
	defer close(m.done)
	for event := range events {
		m.metrics.RecordAuthEvent(event.Type)
		switch event.Type {
		case models.AuthEventSignedOut:
			m.logger.Info("session ended by identity provider")
			m.setUser(nil)
		case models.AuthEventSignedIn, models.AuthEventTokenRefreshed:
			profile, err := m.backend.CurrentProfile(ctx)
			if err != nil {
				m.logger.Warn("could not re-derive user after auth event", zap.String("event", string(event.Type)), zap.Error(err))
				continue
			}
			m.setUser(profile)
		}
	}
}
