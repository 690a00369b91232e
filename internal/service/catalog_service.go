package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/estudaia-api/internal/dto"
	"github.com/noah-isme/estudaia-api/internal/models"
	"github.com/noah-isme/estudaia-api/internal/repository"
	appErrors "github.com/noah-isme/estudaia-api/pkg/errors"
)

// CatalogService exposes course and discipline use cases over whichever store is active.
type CatalogService struct {
	store     CatalogStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService constructs a CatalogService instance.
func NewCatalogService(store CatalogStore, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CatalogService{store: store, validator: validate, logger: logger}
}

// ListCourses returns every course.
func (s *CatalogService) ListCourses(ctx context.Context) ([]models.Course, error) {
	courses, err := s.store.ListCourses(ctx)
	if err != nil {
		return nil, s.storeError(err, "failed to list courses")
	}
	return courses, nil
}

// GetCourse returns one course.
func (s *CatalogService) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.store.GetCourse(ctx, id)
	if err != nil {
		return nil, s.storeError(err, "failed to load course")
	}
	return course, nil
}

// CreateCourse validates and stores a new course.
func (s *CatalogService) CreateCourse(ctx context.Context, req dto.CourseRequest) (*models.Course, error) {
	course, err := s.courseFromRequest(req)
	if err != nil {
		return nil, err
	}
	created, err := s.store.CreateCourse(ctx, course)
	if err != nil {
		return nil, s.storeError(err, "failed to create course")
	}
	return created, nil
}

// UpdateCourse validates and rewrites an existing course.
func (s *CatalogService) UpdateCourse(ctx context.Context, id string, req dto.CourseRequest) (*models.Course, error) {
	course, err := s.courseFromRequest(req)
	if err != nil {
		return nil, err
	}
	course.ID = id
	updated, err := s.store.UpdateCourse(ctx, course)
	if err != nil {
		return nil, s.storeError(err, "failed to update course")
	}
	return updated, nil
}

// DeleteCourse removes the course together with all of its disciplines.
func (s *CatalogService) DeleteCourse(ctx context.Context, id string) error {
	if err := s.store.DeleteCourse(ctx, id); err != nil {
		return s.storeError(err, "failed to delete course")
	}
	s.logger.Info("course deleted with its disciplines", zap.String("course_id", id))
	return nil
}

// ListDisciplines returns every discipline.
func (s *CatalogService) ListDisciplines(ctx context.Context) ([]models.Discipline, error) {
	items, err := s.store.ListDisciplines(ctx)
	if err != nil {
		return nil, s.storeError(err, "failed to list disciplines")
	}
	return items, nil
}

// ListDisciplinesByCourse returns one course's disciplines; the course must exist.
func (s *CatalogService) ListDisciplinesByCourse(ctx context.Context, courseID string) ([]models.Discipline, error) {
	if _, err := s.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	items, err := s.store.ListDisciplinesByCourse(ctx, courseID)
	if err != nil {
		return nil, s.storeError(err, "failed to list disciplines")
	}
	return items, nil
}

// GetDiscipline returns one discipline.
func (s *CatalogService) GetDiscipline(ctx context.Context, id string) (*models.Discipline, error) {
	item, err := s.store.GetDiscipline(ctx, id)
	if err != nil {
		return nil, s.storeError(err, "failed to load discipline")
	}
	return item, nil
}

// CreateDiscipline validates, checks the referenced course and stores a new discipline.
func (s *CatalogService) CreateDiscipline(ctx context.Context, req dto.DisciplineRequest) (*models.Discipline, error) {
	discipline, err := s.disciplineFromRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	created, err := s.store.CreateDiscipline(ctx, discipline)
	if err != nil {
		return nil, s.storeError(err, "failed to create discipline")
	}
	return created, nil
}

// UpdateDiscipline validates and rewrites an existing discipline.
func (s *CatalogService) UpdateDiscipline(ctx context.Context, id string, req dto.DisciplineRequest) (*models.Discipline, error) {
	discipline, err := s.disciplineFromRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	discipline.ID = id
	updated, err := s.store.UpdateDiscipline(ctx, discipline)
	if err != nil {
		return nil, s.storeError(err, "failed to update discipline")
	}
	return updated, nil
}

// DeleteDiscipline removes one discipline.
func (s *CatalogService) DeleteDiscipline(ctx context.Context, id string) error {
	if err := s.store.DeleteDiscipline(ctx, id); err != nil {
		return s.storeError(err, "failed to delete discipline")
	}
	return nil
}

func (s *CatalogService) courseFromRequest(req dto.CourseRequest) (models.Course, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if err := s.validator.Struct(req); err != nil {
		return models.Course{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "course name is required")
	}
	return models.Course{Name: req.Name, Description: req.Description}, nil
}

func (s *CatalogService) disciplineFromRequest(ctx context.Context, req dto.DisciplineRequest) (models.Discipline, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.CourseID = strings.TrimSpace(req.CourseID)
	req.FolderRef = strings.TrimSpace(req.FolderRef)
	req.ShortDescription = strings.TrimSpace(req.ShortDescription)
	if err := s.validator.Struct(req); err != nil {
		return models.Discipline{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "name, course and folder reference are required")
	}

	if _, err := s.store.GetCourse(ctx, req.CourseID); err != nil {
		if isNotFound(err) {
			return models.Discipline{}, appErrors.Clone(appErrors.ErrValidation, "referenced course does not exist")
		}
		return models.Discipline{}, s.storeError(err, "failed to load course")
	}
	return models.Discipline{
		Name:             req.Name,
		CourseID:         req.CourseID,
		FolderRef:        req.FolderRef,
		ShortDescription: req.ShortDescription,
	}, nil
}

// storeError keeps typed errors from the remote gateway and maps local ones.
func (s *CatalogService) storeError(err error, message string) error {
	if errors.Is(err, repository.ErrMissingCourse) {
		return appErrors.Clone(appErrors.ErrValidation, "referenced course does not exist")
	}
	if isNotFound(err) {
		return appErrors.Clone(appErrors.ErrNotFound, "resource not found")
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	s.logger.Error(message, zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound) || appErrors.Is(err, appErrors.ErrNotFound)
}
