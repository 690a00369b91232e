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

type chatService interface {
	Start(user *models.UserProfile) *models.Conversation
	Get(user *models.UserProfile, sessionID string) (*models.Conversation, error)
	Send(ctx context.Context, user *models.UserProfile, sessionID, content string) ([]models.ChatMessage, error)
	Close(user *models.UserProfile, sessionID string) error
}

// ChatHandler exposes the chat conversations of the logged-in user.
type ChatHandler struct {
	service chatService
}

// NewChatHandler constructs the handler.
func NewChatHandler(svc chatService) *ChatHandler {
	return &ChatHandler{service: svc}
}

// Start godoc
// @Summary Open conversation
// @Description Opens a conversation with a fresh relay session id and a welcome message
// @Tags Chat
// @Produce json
// @Success 201 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /chat/sessions [post]
func (h *ChatHandler) Start(c *gin.Context) {
	user := userFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.Created(c, h.service.Start(user))
}

// Get godoc
// @Summary Get conversation
// @Tags Chat
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /chat/sessions/{id} [get]
func (h *ChatHandler) Get(c *gin.Context) {
	conv, err := h.service.Get(userFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conv)
}

// Send godoc
// @Summary Send message
// @Description Relays one turn. On relay failure the response is 502 and still carries the user message plus one error bubble.
// @Tags Chat
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.SendChatMessageRequest true "Message"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /chat/sessions/{id}/messages [post]
func (h *ChatHandler) Send(c *gin.Context) {
	var req dto.SendChatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid message payload"))
		return
	}

	sessionID := c.Param("id")
	messages, err := h.service.Send(c.Request.Context(), userFromContext(c), sessionID, req.Message)
	turn := dto.ChatTurnResponse{SessionID: sessionID, Messages: messages}
	if err != nil {
		if len(messages) > 0 {
			response.ErrorWithData(c, err, turn)
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, turn)
}

// Close godoc
// @Summary Close conversation
// @Tags Chat
// @Param id path string true "Session ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /chat/sessions/{id} [delete]
func (h *ChatHandler) Close(c *gin.Context) {
	if err := h.service.Close(userFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
