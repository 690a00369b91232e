package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/estudaia-api/internal/dto"
	"github.com/noah-isme/estudaia-api/internal/models"
	appErrors "github.com/noah-isme/estudaia-api/pkg/errors"
	"github.com/noah-isme/estudaia-api/pkg/response"
)

type catalogService interface {
	ListCourses(ctx context.Context) ([]models.Course, error)
	GetCourse(ctx context.Context, id string) (*models.Course, error)
	CreateCourse(ctx context.Context, req dto.CourseRequest) (*models.Course, error)
	UpdateCourse(ctx context.Context, id string, req dto.CourseRequest) (*models.Course, error)
	DeleteCourse(ctx context.Context, id string) error
	ListDisciplines(ctx context.Context) ([]models.Discipline, error)
	ListDisciplinesByCourse(ctx context.Context, courseID string) ([]models.Discipline, error)
	GetDiscipline(ctx context.Context, id string) (*models.Discipline, error)
	CreateDiscipline(ctx context.Context, req dto.DisciplineRequest) (*models.Discipline, error)
	UpdateDiscipline(ctx context.Context, id string, req dto.DisciplineRequest) (*models.Discipline, error)
	DeleteDiscipline(ctx context.Context, id string) error
}

// CourseHandler manages course endpoints.
type CourseHandler struct {
	service catalogService
}

// NewCourseHandler constructs the handler.
func NewCourseHandler(svc catalogService) *CourseHandler {
	return &CourseHandler{service: svc}
}

// List godoc
// @Summary List courses
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	courses, err := h.service.ListCourses(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, map[string]interface{}{"total": len(courses)})
}

// Get godoc
// @Summary Get course
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.service.GetCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course)
}

// Disciplines godoc
// @Summary List a course's disciplines
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/disciplines [get]
func (h *CourseHandler) Disciplines(c *gin.Context) {
	items, err := h.service.ListDisciplinesByCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, map[string]interface{}{"total": len(items)})
}

// Create godoc
// @Summary Create course
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body dto.CourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req dto.CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course payload"))
		return
	}
	course, err := h.service.CreateCourse(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update godoc
// @Summary Update course
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body dto.CourseRequest true "Course payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	var req dto.CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course payload"))
		return
	}
	course, err := h.service.UpdateCourse(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course)
}

// Delete godoc
// @Summary Delete course
// @Description Deletes the course and every discipline that belongs to it
// @Tags Courses
// @Param id path string true "Course ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteCourse(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DisciplineHandler manages discipline endpoints.
type DisciplineHandler struct {
	service catalogService
}

// NewDisciplineHandler constructs the handler.
func NewDisciplineHandler(svc catalogService) *DisciplineHandler {
	return &DisciplineHandler{service: svc}
}

// List godoc
// @Summary List disciplines
// @Tags Disciplines
// @Produce json
// @Param curso_id query string false "Filter by course"
// @Success 200 {object} response.Envelope
// @Router /disciplines [get]
func (h *DisciplineHandler) List(c *gin.Context) {
	var (
		items []models.Discipline
		err   error
	)
	if courseID := c.Query("curso_id"); courseID != "" {
		items, err = h.service.ListDisciplinesByCourse(c.Request.Context(), courseID)
	} else {
		items, err = h.service.ListDisciplines(c.Request.Context())
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, map[string]interface{}{"total": len(items)})
}

// Get godoc
// @Summary Get discipline
// @Tags Disciplines
// @Produce json
// @Param id path string true "Discipline ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /disciplines/{id} [get]
func (h *DisciplineHandler) Get(c *gin.Context) {
	item, err := h.service.GetDiscipline(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item)
}

// Create godoc
// @Summary Create discipline
// @Tags Disciplines
// @Accept json
// @Produce json
// @Param payload body dto.DisciplineRequest true "Discipline payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /disciplines [post]
func (h *DisciplineHandler) Create(c *gin.Context) {
	var req dto.DisciplineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid discipline payload"))
		return
	}
	item, err := h.service.CreateDiscipline(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update discipline
// @Tags Disciplines
// @Accept json
// @Produce json
// @Param id path string true "Discipline ID"
// @Param payload body dto.DisciplineRequest true "Discipline payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /disciplines/{id} [put]
func (h *DisciplineHandler) Update(c *gin.Context) {
	var req dto.DisciplineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid discipline payload"))
		return
	}
	item, err := h.service.UpdateDiscipline(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item)
}

// Delete godoc
// @Summary Delete discipline
// @Tags Disciplines
// @Param id path string true "Discipline ID"
// @Success 204
// @Router /disciplines/{id} [delete]
func (h *DisciplineHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteDiscipline(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
