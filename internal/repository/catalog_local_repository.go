package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/estudaia-api/internal/models"
	"github.com/noah-isme/estudaia-api/pkg/kv"
)

const (
	coursesKey     = "cursos"
	disciplinesKey = "disciplinas"
)

// LocalCatalogRepository keeps courses and disciplines as two JSON arrays in the
// key-value store. Every write replaces a whole collection.
type LocalCatalogRepository struct {
	store  kv.Store
	logger *zap.Logger
	now    func() time.Time

	mu sync.Mutex
}

// NewLocalCatalogRepository constructs the local catalog.
func NewLocalCatalogRepository(store kv.Store, logger *zap.Logger) *LocalCatalogRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalCatalogRepository{store: store, logger: logger, now: time.Now}
}

// ListCourses returns courses in storage order.
func (r *LocalCatalogRepository) ListCourses(ctx context.Context) ([]models.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return loadCollection[models.Course](ctx, r.store, coursesKey, r.logger)
}

// GetCourse returns one course or ErrNotFound.
func (r *LocalCatalogRepository) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	courses, err := r.ListCourses(ctx)
	if err != nil {
		return nil, err
	}
	for i := range courses {
		if courses[i].ID == id {
			return &courses[i], nil
		}
	}
	return nil, ErrNotFound
}

// UpsertCourse replaces the course with the same id in place, or appends it.
// Missing id and created_at are generated.
func (r *LocalCatalogRepository) UpsertCourse(ctx context.Context, course models.Course) (*models.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.upsertCourseLocked(ctx, course, false)
}

// CreateCourse stores a new course.
func (r *LocalCatalogRepository) CreateCourse(ctx context.Context, course models.Course) (*models.Course, error) {
	course.ID = ""
	course.CreatedAt = time.Time{}
	return r.UpsertCourse(ctx, course)
}

// UpdateCourse replaces an existing course, keeping its creation time.
func (r *LocalCatalogRepository) UpdateCourse(ctx context.Context, course models.Course) (*models.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.upsertCourseLocked(ctx, course, true)
}

// upsertCourseLocked must be called with r.mu held. With mustExist a missing id is
// ErrNotFound and the stored creation time is kept.
func (r *LocalCatalogRepository) upsertCourseLocked(ctx context.Context, course models.Course, mustExist bool) (*models.Course, error) {
	courses, err := loadCollection[models.Course](ctx, r.store, coursesKey, r.logger)
	if err != nil {
		return nil, err
	}
	if mustExist {
		existing := find(courses, func(c models.Course) bool { return c.ID == course.ID })
		if existing == nil {
			return nil, ErrNotFound
		}
		course.CreatedAt = existing.CreatedAt
	}
	r.stamp(&course.ID, &course.CreatedAt)
	courses = upsert(courses, course, func(c models.Course) string { return c.ID })

	payload, err := encodeCollection(courses)
	if err != nil {
		return nil, fmt.Errorf("encode courses: %w", err)
	}
	if err := r.store.Set(ctx, coursesKey, payload); err != nil {
		return nil, fmt.Errorf("write courses: %w", err)
	}
	return &course, nil
}

// DeleteCourse removes the course and every discipline that references it in one
// atomic write of both collections.
func (r *LocalCatalogRepository) DeleteCourse(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	courses, err := loadCollection[models.Course](ctx, r.store, coursesKey, r.logger)
	if err != nil {
		return err
	}
	disciplines, err := loadCollection[models.Discipline](ctx, r.store, disciplinesKey, r.logger)
	if err != nil {
		return err
	}

	courses = filter(courses, func(c models.Course) bool { return c.ID != id })
	disciplines = filter(disciplines, func(d models.Discipline) bool { return d.CourseID != id })

	coursesPayload, err := encodeCollection(courses)
	if err != nil {
		return fmt.Errorf("encode courses: %w", err)
	}
	disciplinesPayload, err := encodeCollection(disciplines)
	if err != nil {
		return fmt.Errorf("encode disciplines: %w", err)
	}
	if err := r.store.SetMany(ctx, map[string]string{
		coursesKey:     coursesPayload,
		disciplinesKey: disciplinesPayload,
	}); err != nil {
		return fmt.Errorf("cascade delete course %s: %w", id, err)
	}
	return nil
}

// ListDisciplines returns every discipline in storage order with its course embedded.
func (r *LocalCatalogRepository) ListDisciplines(ctx context.Context) ([]models.Discipline, error) {
	return r.listDisciplines(ctx, func(models.Discipline) bool { return true })
}

// ListDisciplinesByCourse returns the course's disciplines in storage order.
func (r *LocalCatalogRepository) ListDisciplinesByCourse(ctx context.Context, courseID string) ([]models.Discipline, error) {
	return r.listDisciplines(ctx, func(d models.Discipline) bool { return d.CourseID == courseID })
}

// GetDiscipline returns one discipline or ErrNotFound.
func (r *LocalCatalogRepository) GetDiscipline(ctx context.Context, id string) (*models.Discipline, error) {
	items, err := r.listDisciplines(ctx, func(d models.Discipline) bool { return d.ID == id })
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return &items[0], nil
}

// UpsertDiscipline replaces the discipline with the same id in place, or appends it.
func (r *LocalCatalogRepository) UpsertDiscipline(ctx context.Context, discipline models.Discipline) (*models.Discipline, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.upsertDisciplineLocked(ctx, discipline, false, false)
}

// CreateDiscipline stores a new discipline. The referenced course must exist.
func (r *LocalCatalogRepository) CreateDiscipline(ctx context.Context, discipline models.Discipline) (*models.Discipline, error) {
	discipline.ID = ""
	discipline.CreatedAt = time.Time{}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.upsertDisciplineLocked(ctx, discipline, false, true)
}

// UpdateDiscipline replaces an existing discipline, keeping its creation time. The
// referenced course must exist.
func (r *LocalCatalogRepository) UpdateDiscipline(ctx context.Context, discipline models.Discipline) (*models.Discipline, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.upsertDisciplineLocked(ctx, discipline, true, true)
}

// upsertDisciplineLocked must be called with r.mu held, so a concurrent course delete
// either runs first and is seen here or runs after and removes this write too.
func (r *LocalCatalogRepository) upsertDisciplineLocked(ctx context.Context, discipline models.Discipline, mustExist, requireCourse bool) (*models.Discipline, error) {
	if requireCourse {
		courses, err := loadCollection[models.Course](ctx, r.store, coursesKey, r.logger)
		if err != nil {
			return nil, err
		}
		if find(courses, func(c models.Course) bool { return c.ID == discipline.CourseID }) == nil {
			return nil, ErrMissingCourse
		}
	}
	disciplines, err := loadCollection[models.Discipline](ctx, r.store, disciplinesKey, r.logger)
	if err != nil {
		return nil, err
	}
	if mustExist {
		existing := find(disciplines, func(d models.Discipline) bool { return d.ID == discipline.ID })
		if existing == nil {
			return nil, ErrNotFound
		}
		discipline.CreatedAt = existing.CreatedAt
	}
	r.stamp(&discipline.ID, &discipline.CreatedAt)
	discipline.Course = nil
	disciplines = upsert(disciplines, discipline, func(d models.Discipline) string { return d.ID })

	payload, err := encodeCollection(disciplines)
	if err != nil {
		return nil, fmt.Errorf("encode disciplines: %w", err)
	}
	if err := r.store.Set(ctx, disciplinesKey, payload); err != nil {
		return nil, fmt.Errorf("write disciplines: %w", err)
	}
	return &discipline, nil
}

// DeleteDiscipline removes only that discipline.
func (r *LocalCatalogRepository) DeleteDiscipline(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	disciplines, err := loadCollection[models.Discipline](ctx, r.store, disciplinesKey, r.logger)
	if err != nil {
		return err
	}
	payload, err := encodeCollection(filter(disciplines, func(d models.Discipline) bool { return d.ID != id }))
	if err != nil {
		return fmt.Errorf("encode disciplines: %w", err)
	}
	if err := r.store.Set(ctx, disciplinesKey, payload); err != nil {
		return fmt.Errorf("write disciplines: %w", err)
	}
	return nil
}

func (r *LocalCatalogRepository) listDisciplines(ctx context.Context, keep func(models.Discipline) bool) ([]models.Discipline, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	disciplines, err := loadCollection[models.Discipline](ctx, r.store, disciplinesKey, r.logger)
	if err != nil {
		return nil, err
	}
	courses, err := loadCollection[models.Course](ctx, r.store, coursesKey, r.logger)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(courses))
	for _, c := range courses {
		names[c.ID] = c.Name
	}

	result := filter(disciplines, keep)
	for i := range result {
		if name, ok := names[result[i].CourseID]; ok {
			result[i].Course = &models.CourseRef{ID: result[i].CourseID, Name: name}
		}
	}
	return result, nil
}

func (r *LocalCatalogRepository) stamp(id *string, createdAt *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	if createdAt.IsZero() {
		*createdAt = r.now().UTC()
	}
}

func upsert[T any](items []T, item T, idOf func(T) string) []T {
	id := idOf(item)
	for i := range items {
		if idOf(items[i]) == id {
			items[i] = item
			return items
		}
	}
	return append(items, item)
}

func find[T any](items []T, match func(T) bool) *T {
	for i := range items {
		if match(items[i]) {
			return &items[i]
		}
	}
	return nil
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}
