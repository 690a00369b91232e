package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/estudaia-api/internal/models"
	"github.com/noah-isme/estudaia-api/internal/repository"
	appErrors "github.com/noah-isme/estudaia-api/pkg/errors"
	"github.com/noah-isme/estudaia-api/pkg/supabase"
)

// CatalogStore is the storage contract shared by the local catalog and the remote gateway.
// DeleteCourse always cascades to the course's disciplines.
type CatalogStore interface {
	ListCourses(ctx context.Context) ([]models.Course, error)
	GetCourse(ctx context.Context, id string) (*models.Course, error)
	CreateCourse(ctx context.Context, course models.Course) (*models.Course, error)
	UpdateCourse(ctx context.Context, course models.Course) (*models.Course, error)
	DeleteCourse(ctx context.Context, id string) error
	ListDisciplines(ctx context.Context) ([]models.Discipline, error)
	ListDisciplinesByCourse(ctx context.Context, courseID string) ([]models.Discipline, error)
	GetDiscipline(ctx context.Context, id string) (*models.Discipline, error)
	CreateDiscipline(ctx context.Context, discipline models.Discipline) (*models.Discipline, error)
	UpdateDiscipline(ctx context.Context, discipline models.Discipline) (*models.Discipline, error)
	DeleteDiscipline(ctx context.Context, id string) error
}

type identityProvider interface {
	GetUser(ctx context.Context) (*supabase.User, error)
}

// ProfileStore reads and provisions rows of the profiles table.
type ProfileStore interface {
	FindByID(ctx context.Context, id string) (*models.UserProfile, error)
	Create(ctx context.Context, profile models.UserProfile) (*models.UserProfile, error)
}

// RemoteGateway is the typed surface over the hosted service. Every failure is returned
// as BACKEND_ERROR carrying the cause; a missing record is NOT_FOUND.
type RemoteGateway struct {
	identity identityProvider
	profiles ProfileStore
	catalog  CatalogStore
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewRemoteGateway constructs the gateway.
func NewRemoteGateway(identity identityProvider, profiles ProfileStore, catalog CatalogStore, metrics *MetricsService, logger *zap.Logger) *RemoteGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteGateway{identity: identity, profiles: profiles, catalog: catalog, metrics: metrics, logger: logger}
}

// GetCurrentUser returns the profile of the signed-in identity, creating a default student
// profile when the identity has none yet. It returns nil when nobody is signed in.
func (g *RemoteGateway) GetCurrentUser(ctx context.Context) (profile *models.UserProfile, err error) {
	defer g.observe("get_current_user", time.Now(), &err)

	user, err := g.identity.GetUser(ctx)
	if err != nil {
		if status := supabase.StatusOf(err); status == http.StatusUnauthorized || status == http.StatusForbidden {
			return nil, nil
		}
		return nil, g.backendError(err, "failed to fetch current identity")
	}
	if user == nil {
		return nil, nil
	}

	profile, err = g.profiles.FindByID(ctx, user.ID)
	if errors.Is(err, repository.ErrNotFound) {
		g.logger.Info("provisioning default profile", zap.String("user_id", user.ID))
		profile, err = g.profiles.Create(ctx, models.UserProfile{
			ID:          user.ID,
			Role:        models.RoleStudent,
			DisplayName: user.FullName(),
		})
	}
	if err != nil {
		return nil, g.backendError(err, "failed to load profile")
	}
	if !profile.Role.Valid() {
		profile.Role = models.RoleStudent
	}
	profile.Email = user.Email
	return profile, nil
}

// ListCourses implements CatalogStore.
func (g *RemoteGateway) ListCourses(ctx context.Context) (courses []models.Course, err error) {
	defer g.observe("list_courses", time.Now(), &err)
	courses, err = g.catalog.ListCourses(ctx)
	return courses, g.backendError(err, "failed to list courses")
}

// GetCourse implements CatalogStore.
func (g *RemoteGateway) GetCourse(ctx context.Context, id string) (course *models.Course, err error) {
	defer g.observe("get_course", time.Now(), &err)
	course, err = g.catalog.GetCourse(ctx, id)
	return course, g.backendError(err, "failed to load course")
}

// CreateCourse implements CatalogStore.
func (g *RemoteGateway) CreateCourse(ctx context.Context, in models.Course) (course *models.Course, err error) {
	defer g.observe("create_course", time.Now(), &err)
	course, err = g.catalog.CreateCourse(ctx, in)
	return course, g.backendError(err, "failed to create course")
}

// UpdateCourse implements CatalogStore.
func (g *RemoteGateway) UpdateCourse(ctx context.Context, in models.Course) (course *models.Course, err error) {
	defer g.observe("update_course", time.Now(), &err)
	course, err = g.catalog.UpdateCourse(ctx, in)
	return course, g.backendError(err, "failed to update course")
}

// DeleteCourse implements CatalogStore.
func (g *RemoteGateway) DeleteCourse(ctx context.Context, id string) (err error) {
	defer g.observe("delete_course", time.Now(), &err)
	return g.backendError(g.catalog.DeleteCourse(ctx, id), "failed to delete course")
}

// ListDisciplines implements CatalogStore.
func (g *RemoteGateway) ListDisciplines(ctx context.Context) (items []models.Discipline, err error) {
	defer g.observe("list_disciplines", time.Now(), &err)
	items, err = g.catalog.ListDisciplines(ctx)
	return items, g.backendError(err, "failed to list disciplines")
}

// ListDisciplinesByCourse implements CatalogStore.
func (g *RemoteGateway) ListDisciplinesByCourse(ctx context.Context, courseID string) (items []models.Discipline, err error) {
	defer g.observe("list_disciplines_by_course", time.Now(), &err)
	items, err = g.catalog.ListDisciplinesByCourse(ctx, courseID)
	return items, g.backendError(err, "failed to list disciplines")
}

// GetDiscipline implements CatalogStore.
func (g *RemoteGateway) GetDiscipline(ctx context.Context, id string) (item *models.Discipline, err error) {
	defer g.observe("get_discipline", time.Now(), &err)
	item, err = g.catalog.GetDiscipline(ctx, id)
	return item, g.backendError(err, "failed to load discipline")
}

// CreateDiscipline implements CatalogStore.
func (g *RemoteGateway) CreateDiscipline(ctx context.Context, in models.Discipline) (item *models.Discipline, err error) {
	defer g.observe("create_discipline", time.Now(), &err)
	item, err = g.catalog.CreateDiscipline(ctx, in)
	return item, g.backendError(err, "failed to create discipline")
}

// UpdateDiscipline implements CatalogStore.
func (g *RemoteGateway) UpdateDiscipline(ctx context.Context, in models.Discipline) (item *models.Discipline, err error) {
	defer g.observe("update_discipline", time.Now(), &err)
	item, err = g.catalog.UpdateDiscipline(ctx, in)
	return item, g.backendError(err, "failed to update discipline")
}

// DeleteDiscipline implements CatalogStore.
func (g *RemoteGateway) DeleteDiscipline(ctx context.Context, id string) (err error) {
	defer g.observe("delete_discipline", time.Now(), &err)
	return g.backendError(g.catalog.DeleteDiscipline(ctx, id), "failed to delete discipline")
}

func (g *RemoteGateway) backendError(err error, message string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "resource not found")
	}
	if errors.Is(err, repository.ErrMissingCourse) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "referenced course does not exist")
	}
	g.logger.Warn(message, zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrBackend.Code, appErrors.ErrBackend.Status, message)
}

func (g *RemoteGateway) observe(operation string, start time.Time, err *error) {
	g.metrics.ObserveBackend(operation, time.Since(start), *err)
}
