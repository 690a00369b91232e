package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/estudaia-api/internal/dto"
	"github.com/noah-isme/estudaia-api/internal/repository"
	appErrors "github.com/noah-isme/estudaia-api/pkg/errors"
	"github.com/noah-isme/estudaia-api/pkg/kv"
)

func newLocalCatalogService() *CatalogService {
	store := repository.NewLocalCatalogRepository(kv.NewMemoryStore(), nil)
	return NewCatalogService(store, nil, nil)
}

func TestCatalogServiceCascadeDelete(t *testing.T) {
	ctx := context.Background()
	svc := newLocalCatalogService()

	course, err := svc.CreateCourse(ctx, dto.CourseRequest{Name: " Engenharia ", Description: "Exatas"})
	require.NoError(t, err)
	assert.Equal(t, "Engenharia", course.Name)
	other, err := svc.CreateCourse(ctx, dto.CourseRequest{Name: "Direito"})
	require.NoError(t, err)

	for _, name := range []string{"Cálculo", "Física"} {
		_, err := svc.CreateDiscipline(ctx, dto.DisciplineRequest{Name: name, CourseID: course.ID, FolderRef: "folder-" + name})
		require.NoError(t, err)
	}
	kept, err := svc.CreateDiscipline(ctx, dto.DisciplineRequest{Name: "Constitucional", CourseID: other.ID, FolderRef: "folder-c"})
	require.NoError(t, err)

	items, err := svc.ListDisciplinesByCourse(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.NotNil(t, items[0].Course)
	assert.Equal(t, "Engenharia", items[0].Course.Name)

	require.NoError(t, svc.DeleteCourse(ctx, course.ID))

	_, err = svc.GetCourse(ctx, course.ID)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	all, err := svc.ListDisciplines(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, kept.ID, all[0].ID)

	_, err = svc.ListDisciplinesByCourse(ctx, course.ID)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestCatalogServiceValidation(t *testing.T) {
	ctx := context.Background()
	svc := newLocalCatalogService()

	_, err := svc.CreateCourse(ctx, dto.CourseRequest{Name: "   "})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.CreateDiscipline(ctx, dto.DisciplineRequest{Name: "Cálculo", CourseID: "ghost", FolderRef: "f"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Equal(t, "referenced course does not exist", appErrors.FromError(err).Message)

	course, err := svc.CreateCourse(ctx, dto.CourseRequest{Name: "Engenharia"})
	require.NoError(t, err)
	_, err = svc.CreateDiscipline(ctx, dto.DisciplineRequest{Name: "Cálculo", CourseID: course.ID})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation), "folder reference is required")
}

func TestCatalogServiceUpdate(t *testing.T) {
	ctx := context.Background()
	svc := newLocalCatalogService()

	course, err := svc.CreateCourse(ctx, dto.CourseRequest{Name: "Engenharia"})
	require.NoError(t, err)

	updated, err := svc.UpdateCourse(ctx, course.ID, dto.CourseRequest{Name: "Engenharia Civil"})
	require.NoError(t, err)
	assert.Equal(t, course.ID, updated.ID)
	assert.Equal(t, "Engenharia Civil", updated.Name)
	assert.Equal(t, course.CreatedAt, updated.CreatedAt)

	_, err = svc.UpdateCourse(ctx, "ghost", dto.CourseRequest{Name: "X"})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	_, err = svc.UpdateDiscipline(ctx, "ghost", dto.DisciplineRequest{Name: "X", CourseID: course.ID, FolderRef: "f"})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	assert.NoError(t, svc.DeleteDiscipline(ctx, "ghost"))
}

func TestCatalogServiceKeepsGatewayErrors(t *testing.T) {
	ctx := context.Background()
	gateway := NewRemoteGateway(identityStub{}, &profileRepoStub{}, failingCatalog{}, nil, nil)
	svc := NewCatalogService(gateway, nil, nil)

	_, err := svc.ListCourses(ctx)
	assert.True(t, appErrors.Is(err, appErrors.ErrBackend))
}
