package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/estudaia-api/internal/models"
	"github.com/noah-isme/estudaia-api/pkg/config"
)

func newCatalogRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

func TestPostgresCatalogDeleteCourseCascadesInTransaction(t *testing.T) {
	db, mock, cleanup := newCatalogRepoMock(t)
	defer cleanup()
	repo := NewPostgresCatalogRepository(db, config.CatalogOrderName)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM disciplinas WHERE curso_id = $1`)).WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM courses WHERE id = $1`)).WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteCourse(context.Background(), "c1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCatalogDeleteCourseRollsBack(t *testing.T) {
	db, mock, cleanup := newCatalogRepoMock(t)
	defer cleanup()
	repo := NewPostgresCatalogRepository(db, config.CatalogOrderName)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM disciplinas`).WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM courses`).WithArgs("c1").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := repo.DeleteCourse(context.Background(), "c1")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCatalogListDisciplinesEmbedsCourse(t *testing.T) {
	db, mock, cleanup := newCatalogRepoMock(t)
	defer cleanup()
	repo := NewPostgresCatalogRepository(db, config.CatalogOrderCreatedAt)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "nome", "curso_id", "google_drive_folder_id", "descricao_breve", "created_at", "course_name"}).
		AddRow("d1", "Algoritmos", "c1", "abc123", "", now, "Engenharia").
		AddRow("d2", "Órfã", "gone", "x", "", now, nil)
	mock.ExpectQuery(`FROM disciplinas d LEFT JOIN courses c .* WHERE d.curso_id = \$1 ORDER BY d.created_at DESC`).
		WithArgs("c1").
		WillReturnRows(rows)

	items, err := repo.ListDisciplinesByCourse(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.NotNil(t, items[0].Course)
	assert.Equal(t, "Engenharia", items[0].Course.Name)
	assert.Nil(t, items[1].Course)
}

func TestPostgresCatalogGetCourseNotFound(t *testing.T) {
	db, mock, cleanup := newCatalogRepoMock(t)
	defer cleanup()
	repo := NewPostgresCatalogRepository(db, config.CatalogOrderName)

	mock.ExpectQuery(`FROM courses WHERE id = \$1`).WithArgs("nope").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetCourse(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresCatalogCreateCourse(t *testing.T) {
	db, mock, cleanup := newCatalogRepoMock(t)
	defer cleanup()
	repo := NewPostgresCatalogRepository(db, config.CatalogOrderName)

	rows := sqlmock.NewRows([]string{"id", "nome", "descricao", "created_at"}).AddRow("c1", "Engenharia", "", time.Now())
	mock.ExpectQuery(`INSERT INTO courses \(nome, descricao\)`).WithArgs("Engenharia", "").WillReturnRows(rows)

	course, err := repo.CreateCourse(context.Background(), models.Course{Name: "Engenharia"})
	require.NoError(t, err)
	assert.Equal(t, "c1", course.ID)
}

func TestPostgresProfileRepository(t *testing.T) {
	db, mock, cleanup := newCatalogRepoMock(t)
	defer cleanup()
	repo := NewPostgresProfileRepository(db)

	mock.ExpectQuery(`FROM profiles WHERE id = \$1`).WithArgs("u1").WillReturnError(sql.ErrNoRows)
	_, err := repo.FindByID(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	rows := sqlmock.NewRows([]string{"id", "role", "full_name", "updated_at"}).AddRow("u1", "student", "Ana", time.Now())
	mock.ExpectQuery(`INSERT INTO profiles`).WithArgs("u1", "student", "Ana").WillReturnRows(rows)
	profile, err := repo.Create(context.Background(), models.UserProfile{ID: "u1", Role: models.RoleStudent, DisplayName: "Ana"})
	require.NoError(t, err)
	assert.True(t, profile.IsStudent())
	require.NoError(t, mock.ExpectationsWereMet())
}
