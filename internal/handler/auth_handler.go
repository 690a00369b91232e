package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/estudaia-api/internal/models"
	appErrors "github.com/noah-isme/estudaia-api/pkg/errors"
	"github.com/noah-isme/estudaia-api/pkg/response"
)

type sessionService interface {
	Login(ctx context.Context, email, password string) (bool, error)
	Register(ctx context.Context, name, email, password string) (bool, error)
	Logout(ctx context.Context)
	Refresh(ctx context.Context) (*models.UserProfile, error)
	State() models.SessionState
}

// AuthHandler wires HTTP endpoints to the session manager.
type AuthHandler struct {
	sessions  sessionService
	validator *validator.Validate
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(sessions sessionService, validate *validator.Validate) *AuthHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &AuthHandler{sessions: sessions, validator: validate}
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate by email and password against the active backend
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "email and password are required"))
		return
	}

	ok, err := h.sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !ok {
		response.Error(c, appErrors.ErrInvalidCredentials)
		return
	}

	response.JSON(c, http.StatusOK, h.sessions.State())
}

// Register godoc
// @Summary Register student
// @Description Create a student account; signs in immediately unless the backend requires e-mail confirmation
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, registrationMessage(err)))
		return
	}

	ok, err := h.sessions.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrConflict, "could not register account"))
		return
	}

	// A pending sign-up leaves any earlier session in place, so only a session for the
	// registered e-mail counts as signed in.
	state := h.sessions.State()
	if !state.Authenticated || state.User == nil || !strings.EqualFold(state.User.Email, strings.TrimSpace(req.Email)) {
		pending := models.SessionState{Mode: state.Mode}
		response.JSON(c, http.StatusAccepted, pending, map[string]interface{}{"message": "confirm your e-mail to finish signing up"})
		return
	}
	response.Created(c, state)
}

// Logout godoc
// @Summary Logout
// @Description Clear the current session; safe to call when logged out
// @Tags Authentication
// @Success 204
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	h.sessions.Logout(c.Request.Context())
	response.NoContent(c)
}

// Session godoc
// @Summary Current session
// @Description Returns mode, authentication flags and the current user
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auth/session [get]
func (h *AuthHandler) Session(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.sessions.State())
}

// Refresh godoc
// @Summary Re-derive current user
// @Description Reloads the profile from the backend's active session
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	profile, err := h.sessions.Refresh(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	if profile == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "no active session"))
		return
	}
	response.JSON(c, http.StatusOK, h.sessions.State())
}

func registrationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "invalid registration payload"
	}
	switch verrs[0].Field() {
	case "Name":
		return "name is required"
	case "Email":
		return "a valid e-mail is required"
	case "Password":
		return "password must have at least 6 characters"
	case "ConfirmPassword":
		return "passwords do not match"
	}
	return "invalid registration payload"
}
