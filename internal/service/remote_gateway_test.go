package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/estudaia-api/internal/models"
	"github.com/noah-isme/estudaia-api/internal/repository"
	appErrors "github.com/noah-isme/estudaia-api/pkg/errors"
	"github.com/noah-isme/estudaia-api/pkg/kv"
	"github.com/noah-isme/estudaia-api/pkg/supabase"
)

type identityStub struct {
	user *supabase.User
	err  error
}

func (s identityStub) GetUser(context.Context) (*supabase.User, error) { return s.user, s.err }

type profileRepoStub struct {
	profiles map[string]models.UserProfile
	created  []models.UserProfile
	findErr  error
}

func (s *profileRepoStub) FindByID(_ context.Context, id string) (*models.UserProfile, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	profile, ok := s.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &profile, nil
}

func (s *profileRepoStub) Create(_ context.Context, profile models.UserProfile) (*models.UserProfile, error) {
	s.created = append(s.created, profile)
	if s.profiles == nil {
		s.profiles = map[string]models.UserProfile{}
	}
	s.profiles[profile.ID] = profile
	return &profile, nil
}

func TestRemoteGatewayProvisionsMissingProfile(t *testing.T) {
	ctx := context.Background()
	identity := identityStub{user: &supabase.User{ID: "u1", Email: "ana@estuda.ia", UserMetadata: map[string]interface{}{"full_name": "Ana"}}}
	profiles := &profileRepoStub{}
	gateway := NewRemoteGateway(identity, profiles, nil, NewMetricsService(), nil)

	profile, err := gateway.GetCurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, profile.Role)
	assert.Equal(t, "Ana", profile.DisplayName)
	assert.Equal(t, "ana@estuda.ia", profile.Email)

	_, err = gateway.GetCurrentUser(ctx)
	require.NoError(t, err)
	assert.Len(t, profiles.created, 1, "profile is created only once")
}

func TestRemoteGatewayNormalisesUnknownRole(t *testing.T) {
	identity := identityStub{user: &supabase.User{ID: "u1"}}
	profiles := &profileRepoStub{profiles: map[string]models.UserProfile{"u1": {ID: "u1", Role: "guest"}}}
	gateway := NewRemoteGateway(identity, profiles, nil, nil, nil)

	profile, err := gateway.GetCurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, profile.Role)
}

func TestRemoteGatewayCurrentUserWithoutSession(t *testing.T) {
	for _, identity := range []identityStub{
		{},
		{err: &supabase.APIError{Status: http.StatusUnauthorized, Message: "JWT expired"}},
	} {
		gateway := NewRemoteGateway(identity, &profileRepoStub{}, nil, nil, nil)
		profile, err := gateway.GetCurrentUser(context.Background())
		assert.NoError(t, err)
		assert.Nil(t, profile)
	}
}

func TestRemoteGatewayWrapsFailures(t *testing.T) {
	cause := errors.New("connection reset")
	gateway := NewRemoteGateway(identityStub{err: cause}, &profileRepoStub{}, nil, nil, nil)
	_, err := gateway.GetCurrentUser(context.Background())
	assert.True(t, appErrors.Is(err, appErrors.ErrBackend))
	assert.ErrorIs(t, err, cause)

	profiles := &profileRepoStub{findErr: cause}
	gateway = NewRemoteGateway(identityStub{user: &supabase.User{ID: "u1"}}, profiles, nil, nil, nil)
	_, err = gateway.GetCurrentUser(context.Background())
	assert.True(t, appErrors.Is(err, appErrors.ErrBackend))
	assert.Empty(t, profiles.created)
}

func TestRemoteGatewayCatalogErrors(t *testing.T) {
	ctx := context.Background()
	catalog := repository.NewLocalCatalogRepository(kv.NewMemoryStore(), nil)
	gateway := NewRemoteGateway(identityStub{}, &profileRepoStub{}, catalog, NewMetricsService(), nil)

	_, err := gateway.GetCourse(ctx, "missing")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	course, err := gateway.CreateCourse(ctx, models.Course{Name: "Engenharia"})
	require.NoError(t, err)
	_, err = gateway.CreateDiscipline(ctx, models.Discipline{Name: "Cálculo", CourseID: course.ID, FolderRef: "f1"})
	require.NoError(t, err)

	require.NoError(t, gateway.DeleteCourse(ctx, course.ID))
	items, err := gateway.ListDisciplines(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}
