package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/estudaia-api/internal/models"
	"github.com/noah-isme/estudaia-api/pkg/config"
)

const (
	courseColumns     = `id, nome, COALESCE(descricao, '') AS descricao, created_at`
	disciplineColumns = `d.id, d.nome, d.curso_id, d.google_drive_folder_id, COALESCE(d.descricao_breve, '') AS descricao_breve, d.created_at, c.nome AS course_name`
	disciplineFrom    = `FROM disciplinas d LEFT JOIN courses c ON c.id = d.curso_id`
)

// PostgresCatalogRepository talks to the hosted schema directly over SQL.
type PostgresCatalogRepository struct {
	db    *sqlx.DB
	order string
}

// NewPostgresCatalogRepository constructs the repository. order is config.CatalogOrder*.
func NewPostgresCatalogRepository(db *sqlx.DB, order string) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{db: db, order: order}
}

type disciplineRecord struct {
	models.Discipline
	CourseName sql.NullString `db:"course_name"`
}

func (r disciplineRecord) toModel() models.Discipline {
	d := r.Discipline
	if r.CourseName.Valid {
		d.Course = &models.CourseRef{ID: d.CourseID, Name: r.CourseName.String}
	}
	return d
}

func (r *PostgresCatalogRepository) orderBy(prefix string) string {
	if r.order == config.CatalogOrderCreatedAt {
		return " ORDER BY " + prefix + "created_at DESC"
	}
	return " ORDER BY " + prefix + "nome ASC"
}

// ListCourses returns every course in the configured order.
func (r *PostgresCatalogRepository) ListCourses(ctx context.Context) ([]models.Course, error) {
	courses := []models.Course{}
	if err := r.db.SelectContext(ctx, &courses, "SELECT "+courseColumns+" FROM courses"+r.orderBy("")); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// GetCourse returns one course or ErrNotFound.
func (r *PostgresCatalogRepository) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	var course models.Course
	if err := r.db.GetContext(ctx, &course, "SELECT "+courseColumns+" FROM courses WHERE id = $1", id); err != nil {
		return nil, notFound(err, "get course")
	}
	return &course, nil
}

// CreateCourse inserts a course; id and created_at come from column defaults.
func (r *PostgresCatalogRepository) CreateCourse(ctx context.Context, course models.Course) (*models.Course, error) {
	const query = `INSERT INTO courses (nome, descricao) VALUES ($1, NULLIF($2, '')) RETURNING ` + courseColumns
	var stored models.Course
	if err := r.db.GetContext(ctx, &stored, query, course.Name, course.Description); err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	return &stored, nil
}

// UpdateCourse rewrites a course.
func (r *PostgresCatalogRepository) UpdateCourse(ctx context.Context, course models.Course) (*models.Course, error) {
	const query = `UPDATE courses SET nome = $1, descricao = NULLIF($2, '') WHERE id = $3 RETURNING ` + courseColumns
	var stored models.Course
	if err := r.db.GetContext(ctx, &stored, query, course.Name, course.Description, course.ID); err != nil {
		return nil, notFound(err, "update course")
	}
	return &stored, nil
}

// DeleteCourse removes the course and its disciplines in one transaction.
func (r *PostgresCatalogRepository) DeleteCourse(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cascade delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM disciplinas WHERE curso_id = $1`, id); err != nil {
		return fmt.Errorf("delete disciplines of course %s: %w", id, err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete course %s: %w", id, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit cascade delete: %w", err)
	}
	return nil
}

// ListDisciplines returns every discipline with its course name.
func (r *PostgresCatalogRepository) ListDisciplines(ctx context.Context) ([]models.Discipline, error) {
	return r.selectDisciplines(ctx, "SELECT "+disciplineColumns+" "+disciplineFrom+r.orderBy("d."))
}

// ListDisciplinesByCourse returns one course's disciplines.
func (r *PostgresCatalogRepository) ListDisciplinesByCourse(ctx context.Context, courseID string) ([]models.Discipline, error) {
	return r.selectDisciplines(ctx, "SELECT "+disciplineColumns+" "+disciplineFrom+" WHERE d.curso_id = $1"+r.orderBy("d."), courseID)
}

// GetDiscipline returns one discipline or ErrNotFound.
func (r *PostgresCatalogRepository) GetDiscipline(ctx context.Context, id string) (*models.Discipline, error) {
	var record disciplineRecord
	if err := r.db.GetContext(ctx, &record, "SELECT "+disciplineColumns+" "+disciplineFrom+" WHERE d.id = $1", id); err != nil {
		return nil, notFound(err, "get discipline")
	}
	d := record.toModel()
	return &d, nil
}

// CreateDiscipline inserts a discipline.
func (r *PostgresCatalogRepository) CreateDiscipline(ctx context.Context, d models.Discipline) (*models.Discipline, error) {
	const query = `INSERT INTO disciplinas (nome, curso_id, google_drive_folder_id, descricao_breve)
VALUES ($1, $2, $3, NULLIF($4, ''))
RETURNING id, nome, curso_id, google_drive_folder_id, COALESCE(descricao_breve, '') AS descricao_breve, created_at`
	var stored models.Discipline
	if err := r.db.GetContext(ctx, &stored, query, d.Name, d.CourseID, d.FolderRef, d.ShortDescription); err != nil {
		return nil, fmt.Errorf("create discipline: %w", err)
	}
	return &stored, nil
}

// UpdateDiscipline rewrites a discipline.
func (r *PostgresCatalogRepository) UpdateDiscipline(ctx context.Context, d models.Discipline) (*models.Discipline, error) {
	const query = `UPDATE disciplinas
SET nome = $1, curso_id = $2, google_drive_folder_id = $3, descricao_breve = NULLIF($4, '')
WHERE id = $5
RETURNING id, nome, curso_id, google_drive_folder_id, COALESCE(descricao_breve, '') AS descricao_breve, created_at`
	var stored models.Discipline
	if err := r.db.GetContext(ctx, &stored, query, d.Name, d.CourseID, d.FolderRef, d.ShortDescription, d.ID); err != nil {
		return nil, notFound(err, "update discipline")
	}
	return &stored, nil
}

// DeleteDiscipline removes one discipline.
func (r *PostgresCatalogRepository) DeleteDiscipline(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM disciplinas WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete discipline %s: %w", id, err)
	}
	return nil
}

func (r *PostgresCatalogRepository) selectDisciplines(ctx context.Context, query string, args ...interface{}) ([]models.Discipline, error) {
	var records []disciplineRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list disciplines: %w", err)
	}
	disciplines := make([]models.Discipline, 0, len(records))
	for _, record := range records {
		disciplines = append(disciplines, record.toModel())
	}
	return disciplines, nil
}

func notFound(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
