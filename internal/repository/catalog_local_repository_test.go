package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/estudaia-api/internal/models"
	"github.com/noah-isme/estudaia-api/pkg/kv"
)

func TestLocalCatalogCascadeDelete(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	repo := NewLocalCatalogRepository(store, nil)

	course, err := repo.CreateCourse(ctx, models.Course{Name: "Engenharia"})
	require.NoError(t, err)
	other, err := repo.CreateCourse(ctx, models.Course{Name: "Medicina"})
	require.NoError(t, err)

	algoritmos, err := repo.CreateDiscipline(ctx, models.Discipline{Name: "Algoritmos", CourseID: course.ID, FolderRef: "abc123"})
	require.NoError(t, err)
	_, err = repo.CreateDiscipline(ctx, models.Discipline{Name: "Anatomia", CourseID: other.ID, FolderRef: "def456"})
	require.NoError(t, err)

	byCourse, err := repo.ListDisciplinesByCourse(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, byCourse, 1)
	assert.Equal(t, algoritmos.ID, byCourse[0].ID)
	require.NotNil(t, byCourse[0].Course)
	assert.Equal(t, "Engenharia", byCourse[0].Course.Name)

	require.NoError(t, repo.DeleteCourse(ctx, course.ID))

	byCourse, err = repo.ListDisciplinesByCourse(ctx, course.ID)
	require.NoError(t, err)
	assert.Empty(t, byCourse)

	all, err := repo.ListDisciplines(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Anatomia", all[0].Name)

	courses, err := repo.ListCourses(ctx)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, other.ID, courses[0].ID)

	_, err = repo.GetCourse(ctx, course.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalCatalogUpsertIsIdempotentAndKeepsPosition(t *testing.T) {
	ctx := context.Background()
	repo := NewLocalCatalogRepository(kv.NewMemoryStore(), nil)

	first, err := repo.CreateCourse(ctx, models.Course{Name: "A"})
	require.NoError(t, err)
	_, err = repo.CreateCourse(ctx, models.Course{Name: "B"})
	require.NoError(t, err)

	_, err = repo.UpsertCourse(ctx, *first)
	require.NoError(t, err)
	_, err = repo.UpsertCourse(ctx, *first)
	require.NoError(t, err)

	courses, err := repo.ListCourses(ctx)
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, *first, courses[0])

	renamed := *first
	renamed.Name = "A2"
	_, err = repo.UpdateCourse(ctx, renamed)
	require.NoError(t, err)
	courses, err = repo.ListCourses(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A2", courses[0].Name, "updated in place")
	assert.Equal(t, first.CreatedAt, courses[0].CreatedAt)

	_, err = repo.UpdateCourse(ctx, models.Course{ID: "missing", Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalCatalogMalformedStateResetsToEmpty(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	require.NoError(t, store.Set(ctx, coursesKey, "{not json"))
	repo := NewLocalCatalogRepository(store, nil)

	courses, err := repo.ListCourses(ctx)
	require.NoError(t, err)
	assert.Empty(t, courses)

	raw, err := store.Get(ctx, coursesKey)
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)

	_, err = repo.CreateCourse(ctx, models.Course{Name: "Engenharia"})
	require.NoError(t, err)
	courses, err = repo.ListCourses(ctx)
	require.NoError(t, err)
	assert.Len(t, courses, 1)
}

func TestLocalCatalogDeleteDisciplineOnlyRemovesThatRecord(t *testing.T) {
	ctx := context.Background()
	repo := NewLocalCatalogRepository(kv.NewMemoryStore(), nil)

	course, err := repo.CreateCourse(ctx, models.Course{Name: "Engenharia"})
	require.NoError(t, err)
	d1, err := repo.CreateDiscipline(ctx, models.Discipline{Name: "Cálculo", CourseID: course.ID, FolderRef: "f1"})
	require.NoError(t, err)
	d2, err := repo.CreateDiscipline(ctx, models.Discipline{Name: "Física", CourseID: course.ID, FolderRef: "f2"})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteDiscipline(ctx, d1.ID))

	items, err := repo.ListDisciplinesByCourse(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, d2.ID, items[0].ID)

	_, err = repo.GetCourse(ctx, course.ID)
	assert.NoError(t, err)
}

type slowStore struct {
	kv.Store
}

func (s slowStore) Get(ctx context.Context, key string) (string, error) {
	time.Sleep(time.Millisecond)
	return s.Store.Get(ctx, key)
}

func TestLocalCatalogConcurrentUpdateDoesNotResurrectCascadedDisciplines(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		repo := NewLocalCatalogRepository(slowStore{Store: kv.NewMemoryStore()}, nil)
		course, err := repo.CreateCourse(ctx, models.Course{Name: "Engenharia"})
		require.NoError(t, err)
		discipline, err := repo.CreateDiscipline(ctx, models.Discipline{Name: "Cálculo", CourseID: course.ID, FolderRef: "f1"})
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer wg.Done()
			renamed := *course
			renamed.Name = "Engenharia Civil"
			_, _ = repo.UpdateCourse(ctx, renamed)
		}()
		go func() {
			defer wg.Done()
			renamed := *discipline
			renamed.Name = "Cálculo I"
			_, _ = repo.UpdateDiscipline(ctx, renamed)
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.DeleteCourse(ctx, course.ID))
		}()
		wg.Wait()

		courses, err := repo.ListCourses(ctx)
		require.NoError(t, err)
		items, err := repo.ListDisciplines(ctx)
		require.NoError(t, err)
		if len(courses) == 0 {
			assert.Empty(t, items, "run %d left an orphan discipline", i)
		} else {
			for _, item := range items {
				assert.Equal(t, courses[0].ID, item.CourseID)
			}
		}
	}
}

func TestLocalCatalogDisciplineWriteNeedsExistingCourse(t *testing.T) {
	ctx := context.Background()
	repo := NewLocalCatalogRepository(kv.NewMemoryStore(), nil)

	_, err := repo.CreateDiscipline(ctx, models.Discipline{Name: "Cálculo", CourseID: "ghost", FolderRef: "f1"})
	assert.ErrorIs(t, err, ErrMissingCourse)

	course, err := repo.CreateCourse(ctx, models.Course{Name: "Engenharia"})
	require.NoError(t, err)
	discipline, err := repo.CreateDiscipline(ctx, models.Discipline{Name: "Cálculo", CourseID: course.ID, FolderRef: "f1"})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteCourse(ctx, course.ID))
	_, err = repo.UpdateDiscipline(ctx, *discipline)
	assert.ErrorIs(t, err, ErrMissingCourse)

	items, err := repo.ListDisciplines(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}
