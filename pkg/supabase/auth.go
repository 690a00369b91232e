package supabase

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// AuthEventType names an auth-state transition.
type AuthEventType string

const (
	EventSignedIn       AuthEventType = "SIGNED_IN"
	EventTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
	EventSignedOut      AuthEventType = "SIGNED_OUT"
)

const (
	subscriberBuffer = 8
	idleRefreshWait  = time.Hour
)

// User is the identity returned by the auth endpoints.
type User struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
}

// FullName reads the full_name metadata written at sign-up.
func (u *User) FullName() string {
	if u == nil || u.UserMetadata == nil {
		return ""
	}
	name, _ := u.UserMetadata["full_name"].(string)
	return name
}

// Session is an issued token pair.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	User         User   `json:"user"`
}

// Expiry returns when the access token stops being valid. expires_at wins; otherwise
// the token's own exp claim is read without verifying the signature, which only the
// service can do.
func (s *Session) Expiry() time.Time {
	if s == nil {
		return time.Time{}
	}
	if s.ExpiresAt > 0 {
		return time.Unix(s.ExpiresAt, 0)
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.AccessToken, claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	return time.Time{}
}

// Subject returns the user id, falling back to the token's sub claim.
func (s *Session) Subject() string {
	if s == nil {
		return ""
	}
	if s.User.ID != "" {
		return s.User.ID
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.AccessToken, claims); err == nil {
		return claims.Subject
	}
	return ""
}

// AuthChangeEvent is delivered to subscribers on every auth-state transition.
// Session is nil for EventSignedOut.
type AuthChangeEvent struct {
	Type    AuthEventType
	Session *Session
}

// SessionStorage persists the current session across restarts.
type SessionStorage interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Clear(ctx context.Context) error
}

// AuthClient owns the current session, persists it, refreshes it and broadcasts changes.
type AuthClient struct {
	client  *Client
	storage SessionStorage
	leeway  time.Duration
	logger  *zap.Logger
	now     func() time.Time

	mu          sync.RWMutex
	session     *Session
	subscribers map[int]chan AuthChangeEvent
	nextID      int
	kick        chan struct{}
}

func newAuthClient(c *Client, storage SessionStorage, leeway time.Duration, logger *zap.Logger) *AuthClient {
	if leeway <= 0 {
		leeway = time.Minute
	}
	return &AuthClient{
		client:      c,
		storage:     storage,
		leeway:      leeway,
		logger:      logger,
		now:         time.Now,
		subscribers: make(map[int]chan AuthChangeEvent),
		kick:        make(chan struct{}, 1),
	}
}

// Initialize restores a persisted session, refreshing it when the access token expired.
// It returns nil when there is nothing to restore.
func (a *AuthClient) Initialize(ctx context.Context) (*Session, error) {
	if a.storage == nil {
		return nil, nil
	}
	stored, err := a.storage.Load(ctx)
	if err != nil || stored == nil {
		return nil, err
	}
	a.mu.Lock()
	a.session = stored
	a.mu.Unlock()

	if a.now().Before(stored.Expiry()) {
		a.wake()
		return stored, nil
	}
	refreshed, err := a.RefreshSession(ctx)
	if err != nil {
		a.logger.Info("persisted session could not be refreshed", zap.Error(err))
		a.clear(ctx)
		return nil, nil
	}
	return refreshed, nil
}

// Session returns the current session or nil.
func (a *AuthClient) Session() *Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.session == nil {
		return nil
	}
	s := *a.session
	return &s
}

// AccessToken returns the current access token, or "" when signed out.
func (a *AuthClient) AccessToken() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.session == nil {
		return ""
	}
	return a.session.AccessToken
}

type signUpResponse struct {
	Session
	ID    string `json:"id"`
	Email string `json:"email"`
}

// SignUp creates an account. The session is nil when the service requires e-mail confirmation.
func (a *AuthClient) SignUp(ctx context.Context, email, password string, data map[string]interface{}) (*User, *Session, error) {
	body := map[string]interface{}{"email": email, "password": password}
	if len(data) > 0 {
		body["data"] = data
	}
	var resp signUpResponse
	if err := a.client.do(ctx, request{method: http.MethodPost, path: "/auth/v1/signup", body: body}, &resp); err != nil {
		return nil, nil, err
	}

	if resp.AccessToken == "" {
		user := resp.User
		if user.ID == "" {
			user = User{ID: resp.ID, Email: resp.Email}
		}
		return &user, nil, nil
	}
	session := resp.Session
	a.setSession(ctx, &session, EventSignedIn)
	return &session.User, &session, nil
}

// SignInWithPassword exchanges credentials for a session.
func (a *AuthClient) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var session Session
	req := request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"password"}},
		body:   map[string]string{"email": email, "password": password},
	}
	if err := a.client.do(ctx, req, &session); err != nil {
		return nil, err
	}
	a.setSession(ctx, &session, EventSignedIn)
	return a.Session(), nil
}

// RefreshSession rotates the token pair using the refresh token.
func (a *AuthClient) RefreshSession(ctx context.Context) (*Session, error) {
	current := a.Session()
	if current == nil || current.RefreshToken == "" {
		return nil, &APIError{Status: http.StatusUnauthorized, Code: "session_missing", Message: "no session to refresh"}
	}
	var session Session
	req := request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"refresh_token"}},
		body:   map[string]string{"refresh_token": current.RefreshToken},
	}
	if err := a.client.do(ctx, req, &session); err != nil {
		return nil, err
	}
	a.setSession(ctx, &session, EventTokenRefreshed)
	return a.Session(), nil
}

// GetUser returns the identity behind the current session, or nil when signed out.
func (a *AuthClient) GetUser(ctx context.Context) (*User, error) {
	token := a.AccessToken()
	if token == "" {
		return nil, nil
	}
	var user User
	if err := a.client.do(ctx, request{method: http.MethodGet, path: "/auth/v1/user", accessToken: token}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SignOut revokes the session remotely and always clears it locally.
func (a *AuthClient) SignOut(ctx context.Context) error {
	token := a.AccessToken()
	if token == "" {
		return nil
	}
	err := a.client.do(ctx, request{method: http.MethodPost, path: "/auth/v1/logout", accessToken: token}, nil)
	a.clear(ctx)
	return err
}

// OnAuthStateChange subscribes to auth events until the returned func is called.
func (a *AuthClient) OnAuthStateChange() (<-chan AuthChangeEvent, func()) {
	ch := make(chan AuthChangeEvent, subscriberBuffer)
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.subscribers[id] = ch
	a.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.subscribers, id)
			a.mu.Unlock()
			close(ch)
		})
	}
}

// StartAutoRefresh refreshes the access token ahead of expiry until ctx is done.
// A failed refresh signs the session out.
func (a *AuthClient) StartAutoRefresh(ctx context.Context) {
	go func() {
		for {
			timer := time.NewTimer(a.nextRefreshIn())
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-a.kick:
				timer.Stop()
				continue
			case <-timer.C:
			}

			if a.Session() == nil {
				continue
			}
			if _, err := a.RefreshSession(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				a.logger.Warn("token refresh failed, signing out", zap.Error(err))
				a.clear(ctx)
			}
		}
	}()
}

func (a *AuthClient) nextRefreshIn() time.Duration {
	session := a.Session()
	if session == nil {
		return idleRefreshWait
	}
	expiry := session.Expiry()
	if expiry.IsZero() {
		return idleRefreshWait
	}
	wait := expiry.Add(-a.leeway).Sub(a.now())
	if wait < 0 {
		return 0
	}
	return wait
}

func (a *AuthClient) setSession(ctx context.Context, session *Session, event AuthEventType) {
	if session.ExpiresAt == 0 && session.ExpiresIn > 0 {
		session.ExpiresAt = a.now().Add(time.Duration(session.ExpiresIn) * time.Second).Unix()
	}
	if session.User.ID == "" {
		session.User.ID = session.Subject()
	}
	a.mu.Lock()
	stored := *session
	a.session = &stored
	a.mu.Unlock()

	if a.storage != nil {
		if err := a.storage.Save(ctx, &stored); err != nil {
			a.logger.Warn("persist session failed", zap.Error(err))
		}
	}
	a.wake()
	snapshot := stored
	a.broadcast(AuthChangeEvent{Type: event, Session: &snapshot})
}

func (a *AuthClient) clear(ctx context.Context) {
	a.mu.Lock()
	hadSession := a.session != nil
	a.session = nil
	a.mu.Unlock()

	if a.storage != nil {
		if err := a.storage.Clear(ctx); err != nil {
			a.logger.Warn("clear persisted session failed", zap.Error(err))
		}
	}
	if hadSession {
		a.broadcast(AuthChangeEvent{Type: EventSignedOut})
	}
}

func (a *AuthClient) broadcast(event AuthChangeEvent) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for id, ch := range a.subscribers {
		select {
		case ch <- event:
		default:
			a.logger.Warn("auth subscriber is not keeping up, event dropped",
				zap.Int("subscriber", id), zap.String("event", string(event.Type)))
		}
	}
}

func (a *AuthClient) wake() {
	select {
	case a.kick <- struct{}{}:
	default:
	}
}

// IsCredentialError reports whether err is the service rejecting the supplied credentials
// (as opposed to the service being unreachable or misconfigured).
func IsCredentialError(err error) bool {
	status := StatusOf(err)
	if status != http.StatusBadRequest && status != http.StatusUnprocessableEntity {
		return false
	}
	return true
}

// IsDuplicateUser reports whether a sign-up failed because the e-mail is taken.
func IsDuplicateUser(err error) bool {
	var apiErr *APIError
	if !asAPIError(err, &apiErr) {
		return false
	}
	if apiErr.Code == "user_already_exists" || apiErr.Code == "email_exists" {
		return true
	}
	return strings.Contains(strings.ToLower(apiErr.Message), "already registered")
}

// IsKeyRejected reports whether the service refused the public key itself.
func IsKeyRejected(err error) bool {
	var apiErr *APIError
	if !asAPIError(err, &apiErr) {
		return false
	}
	if apiErr.Status != http.StatusUnauthorized && apiErr.Status != http.StatusForbidden {
		return false
	}
	msg := strings.ToLower(apiErr.Message)
	return strings.Contains(msg, "api key") || strings.Contains(msg, "apikey")
}
