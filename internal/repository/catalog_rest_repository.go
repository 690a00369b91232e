package repository

import (
	"context"
	"fmt"

	"github.com/noah-isme/estudaia-api/internal/models"
	"github.com/noah-isme/estudaia-api/pkg/config"
	"github.com/noah-isme/estudaia-api/pkg/supabase"
)

const (
	coursesTable     = "courses"
	disciplinesTable = "disciplinas"
	disciplineSelect = "*,courses(id,nome)"
)

// RESTCatalogRepository reads and writes the hosted courses and disciplinas tables over HTTPS.
type RESTCatalogRepository struct {
	client *supabase.Client
	order  string
}

// NewRESTCatalogRepository constructs the repository. order is config.CatalogOrder*.
func NewRESTCatalogRepository(client *supabase.Client, order string) *RESTCatalogRepository {
	return &RESTCatalogRepository{client: client, order: order}
}

type courseRow struct {
	Name        string `json:"nome"`
	Description string `json:"descricao"`
}

type disciplineRow struct {
	Name             string `json:"nome"`
	CourseID         string `json:"curso_id"`
	FolderRef        string `json:"google_drive_folder_id"`
	ShortDescription string `json:"descricao_breve"`
}

func (r *RESTCatalogRepository) ordered(q *supabase.Query) *supabase.Query {
	if r.order == config.CatalogOrderCreatedAt {
		return q.Order("created_at", false)
	}
	return q.Order("nome", true)
}

// ListCourses returns every course in the configured order.
func (r *RESTCatalogRepository) ListCourses(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	if err := r.ordered(r.client.From(coursesTable).Select("*")).Execute(ctx, &courses); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return nonNil(courses), nil
}

// GetCourse returns one course or ErrNotFound.
func (r *RESTCatalogRepository) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	var courses []models.Course
	if err := r.client.From(coursesTable).Select("*").Eq("id", id).Limit(1).Execute(ctx, &courses); err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	if len(courses) == 0 {
		return nil, ErrNotFound
	}
	return &courses[0], nil
}

// CreateCourse inserts a course and returns the stored row.
func (r *RESTCatalogRepository) CreateCourse(ctx context.Context, course models.Course) (*models.Course, error) {
	var rows []models.Course
	body := []courseRow{{Name: course.Name, Description: course.Description}}
	if err := r.client.From(coursesTable).Insert(ctx, body, &rows); err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	return single(rows)
}

// UpdateCourse patches a course and returns the stored row.
func (r *RESTCatalogRepository) UpdateCourse(ctx context.Context, course models.Course) (*models.Course, error) {
	var rows []models.Course
	body := courseRow{Name: course.Name, Description: course.Description}
	if err := r.client.From(coursesTable).Eq("id", course.ID).Update(ctx, body, &rows); err != nil {
		return nil, fmt.Errorf("update course: %w", err)
	}
	return single(rows)
}

// DeleteCourse removes the course's disciplines first, then the course, so an
// interrupted cascade never leaves disciplines pointing at a missing course.
func (r *RESTCatalogRepository) DeleteCourse(ctx context.Context, id string) error {
	if err := r.client.From(disciplinesTable).Eq("curso_id", id).Delete(ctx); err != nil {
		return fmt.Errorf("delete disciplines of course %s: %w", id, err)
	}
	if err := r.client.From(coursesTable).Eq("id", id).Delete(ctx); err != nil {
		return fmt.Errorf("delete course %s: %w", id, err)
	}
	return nil
}

// ListDisciplines returns every discipline with its course embedded.
func (r *RESTCatalogRepository) ListDisciplines(ctx context.Context) ([]models.Discipline, error) {
	var disciplines []models.Discipline
	if err := r.ordered(r.client.From(disciplinesTable).Select(disciplineSelect)).Execute(ctx, &disciplines); err != nil {
		return nil, fmt.Errorf("list disciplines: %w", err)
	}
	return nonNil(disciplines), nil
}

// ListDisciplinesByCourse returns one course's disciplines.
func (r *RESTCatalogRepository) ListDisciplinesByCourse(ctx context.Context, courseID string) ([]models.Discipline, error) {
	var disciplines []models.Discipline
	q := r.client.From(disciplinesTable).Select(disciplineSelect).Eq("curso_id", courseID)
	if err := r.ordered(q).Execute(ctx, &disciplines); err != nil {
		return nil, fmt.Errorf("list disciplines by course: %w", err)
	}
	return nonNil(disciplines), nil
}

// GetDiscipline returns one discipline or ErrNotFound.
func (r *RESTCatalogRepository) GetDiscipline(ctx context.Context, id string) (*models.Discipline, error) {
	var disciplines []models.Discipline
	if err := r.client.From(disciplinesTable).Select(disciplineSelect).Eq("id", id).Limit(1).Execute(ctx, &disciplines); err != nil {
		return nil, fmt.Errorf("get discipline: %w", err)
	}
	if len(disciplines) == 0 {
		return nil, ErrNotFound
	}
	return &disciplines[0], nil
}

// CreateDiscipline inserts a discipline and returns the stored row.
func (r *RESTCatalogRepository) CreateDiscipline(ctx context.Context, discipline models.Discipline) (*models.Discipline, error) {
	var rows []models.Discipline
	body := []disciplineRow{toDisciplineRow(discipline)}
	if err := r.client.From(disciplinesTable).Insert(ctx, body, &rows); err != nil {
		return nil, fmt.Errorf("create discipline: %w", err)
	}
	return single(rows)
}

// UpdateDiscipline patches a discipline and returns the stored row.
func (r *RESTCatalogRepository) UpdateDiscipline(ctx context.Context, discipline models.Discipline) (*models.Discipline, error) {
	var rows []models.Discipline
	if err := r.client.From(disciplinesTable).Eq("id", discipline.ID).Update(ctx, toDisciplineRow(discipline), &rows); err != nil {
		return nil, fmt.Errorf("update discipline: %w", err)
	}
	return single(rows)
}

// DeleteDiscipline removes one discipline.
func (r *RESTCatalogRepository) DeleteDiscipline(ctx context.Context, id string) error {
	if err := r.client.From(disciplinesTable).Eq("id", id).Delete(ctx); err != nil {
		return fmt.Errorf("delete discipline %s: %w", id, err)
	}
	return nil
}

func toDisciplineRow(d models.Discipline) disciplineRow {
	return disciplineRow{
		Name:             d.Name,
		CourseID:         d.CourseID,
		FolderRef:        d.FolderRef,
		ShortDescription: d.ShortDescription,
	}
}

// single returns the only row of a return=representation write, or ErrNotFound when
// the filter matched nothing.
func single[T any](rows []T) (*T, error) {
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
