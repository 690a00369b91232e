package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/estudaia-api/internal/models"
	appErrors "github.com/noah-isme/estudaia-api/pkg/errors"
	"github.com/noah-isme/estudaia-api/pkg/supabase"
)

type fakeRemoteAuth struct {
	signInErr   error
	signUpErr   error
	signUpSess  *supabase.Session
	initSession *supabase.Session
	signOuts    int
	lastData    map[string]interface{}
	events      chan supabase.AuthChangeEvent
	session     *supabase.Session
}

func (f *fakeRemoteAuth) Session() *supabase.Session {
	return f.session
}

func (f *fakeRemoteAuth) Initialize(context.Context) (*supabase.Session, error) {
	return f.initSession, nil
}

func (f *fakeRemoteAuth) SignInWithPassword(context.Context, string, string) (*supabase.Session, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return &supabase.Session{AccessToken: "token"}, nil
}

func (f *fakeRemoteAuth) SignUp(_ context.Context, _, _ string, data map[string]interface{}) (*supabase.User, *supabase.Session, error) {
	f.lastData = data
	if f.signUpErr != nil {
		return nil, nil, f.signUpErr
	}
	return &supabase.User{ID: "u1"}, f.signUpSess, nil
}

func (f *fakeRemoteAuth) SignOut(context.Context) error {
	f.signOuts++
	return nil
}

func (f *fakeRemoteAuth) OnAuthStateChange() (<-chan supabase.AuthChangeEvent, func()) {
	return f.events, func() { close(f.events) }
}

type fakeProfileGateway struct {
	profile *models.UserProfile
	err     error
}

func (f *fakeProfileGateway) GetCurrentUser(context.Context) (*models.UserProfile, error) {
	return f.profile, f.err
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "dial tcp: i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestRemoteAuthBackendSignInClassification(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name string
		err  error
		want *appErrors.Error
	}{
		{name: "bad credentials", err: &supabase.APIError{Status: http.StatusBadRequest, Message: "Invalid login credentials"}, want: appErrors.ErrInvalidCredentials},
		{name: "rejected key", err: &supabase.APIError{Status: http.StatusUnauthorized, Message: "Invalid API key"}, want: appErrors.ErrConfiguration},
		{name: "not configured", err: supabase.ErrNotConfigured, want: appErrors.ErrConfiguration},
		{name: "unreachable", err: &net.OpError{Op: "dial", Err: timeoutErr{}}, want: appErrors.ErrConfiguration},
		{name: "server failure", err: &supabase.APIError{Status: http.StatusInternalServerError, Message: "boom"}, want: appErrors.ErrBackend},
		{name: "caller gave up", err: context.Canceled, want: appErrors.ErrBackend},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := NewRemoteAuthBackend(&fakeRemoteAuth{signInErr: tc.err}, &fakeProfileGateway{}, nil)
			_, err := backend.SignIn(ctx, "ana@estuda.ia", "x")
			require.Error(t, err)
			assert.True(t, appErrors.Is(err, tc.want), "got %v", err)
			assert.True(t, errors.Is(err, tc.err))
		})
	}
}

func TestRemoteAuthBackendSignInLoadsProfile(t *testing.T) {
	auth := &fakeRemoteAuth{}
	profile := &models.UserProfile{ID: "u1", Role: models.RoleAdmin}
	backend := NewRemoteAuthBackend(auth, &fakeProfileGateway{profile: profile}, nil)

	got, err := backend.SignIn(context.Background(), " ana@estuda.ia ", "x")
	require.NoError(t, err)
	assert.True(t, got.IsAdmin())
	assert.Zero(t, auth.signOuts)
}

func TestRemoteAuthBackendSignsOutWhenProfileFails(t *testing.T) {
	auth := &fakeRemoteAuth{}
	backend := NewRemoteAuthBackend(auth, &fakeProfileGateway{err: appErrors.Clone(appErrors.ErrBackend, "profiles down")}, nil)

	_, err := backend.SignIn(context.Background(), "ana@estuda.ia", "x")
	assert.True(t, appErrors.Is(err, appErrors.ErrBackend))
	assert.Equal(t, 1, auth.signOuts)

	backend = NewRemoteAuthBackend(auth, &fakeProfileGateway{}, nil)
	_, err = backend.SignIn(context.Background(), "ana@estuda.ia", "x")
	assert.True(t, appErrors.Is(err, appErrors.ErrBackend))
	assert.Equal(t, 2, auth.signOuts)
}

func TestRemoteAuthBackendSignUp(t *testing.T) {
	ctx := context.Background()

	pending := &fakeRemoteAuth{}
	backend := NewRemoteAuthBackend(pending, &fakeProfileGateway{}, nil)
	profile, err := backend.SignUp(ctx, " Ana ", "ana@estuda.ia", "segredo")
	require.NoError(t, err)
	assert.Nil(t, profile, "no session until the e-mail is confirmed")
	assert.Equal(t, "Ana", pending.lastData["full_name"])

	active := &fakeRemoteAuth{signUpSess: &supabase.Session{AccessToken: "token"}}
	backend = NewRemoteAuthBackend(active, &fakeProfileGateway{profile: &models.UserProfile{ID: "u1", Role: models.RoleStudent}}, nil)
	profile, err = backend.SignUp(ctx, "Ana", "ana@estuda.ia", "segredo")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.True(t, profile.IsStudent())

	taken := &fakeRemoteAuth{signUpErr: &supabase.APIError{Status: http.StatusUnprocessableEntity, Code: "user_already_exists", Message: "User already registered"}}
	backend = NewRemoteAuthBackend(taken, &fakeProfileGateway{}, nil)
	_, err = backend.SignUp(ctx, "Ana", "ana@estuda.ia", "segredo")
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestRemoteAuthBackendRestore(t *testing.T) {
	ctx := context.Background()
	backend := NewRemoteAuthBackend(&fakeRemoteAuth{}, &fakeProfileGateway{profile: &models.UserProfile{ID: "u1"}}, nil)
	profile, err := backend.Restore(ctx)
	require.NoError(t, err)
	assert.Nil(t, profile, "no stored session means nobody to restore")

	backend = NewRemoteAuthBackend(&fakeRemoteAuth{initSession: &supabase.Session{AccessToken: "t"}}, &fakeProfileGateway{profile: &models.UserProfile{ID: "u1"}}, nil)
	profile, err = backend.Restore(ctx)
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "u1", profile.ID)
}

func TestRemoteAuthBackendSessionAliveFollowsProvider(t *testing.T) {
	auth := &fakeRemoteAuth{session: &supabase.Session{AccessToken: "t"}}
	backend := NewRemoteAuthBackend(auth, &fakeProfileGateway{}, nil)
	assert.True(t, backend.SessionAlive())

	auth.session = nil
	assert.False(t, backend.SessionAlive())
}

func TestRemoteAuthBackendTranslatesEvents(t *testing.T) {
	auth := &fakeRemoteAuth{events: make(chan supabase.AuthChangeEvent, 2)}
	backend := NewRemoteAuthBackend(auth, &fakeProfileGateway{}, nil)

	events, unsubscribe := backend.Subscribe()
	auth.events <- supabase.AuthChangeEvent{Type: supabase.EventSignedOut}
	event := <-events
	assert.Equal(t, models.AuthEventSignedOut, event.Type)
	assert.Empty(t, event.UserID)

	unsubscribe()
	_, open := <-events
	assert.False(t, open)
}
