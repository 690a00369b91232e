package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/estudaia-api/internal/middleware"
	"github.com/noah-isme/estudaia-api/internal/models"
	appErrors "github.com/noah-isme/estudaia-api/pkg/errors"
)

type chatServiceMock struct {
	messages []models.ChatMessage
	err      error
}

func (m *chatServiceMock) Start(user *models.UserProfile) *models.Conversation {
	return &models.Conversation{SessionID: "s1"}
}

func (m *chatServiceMock) Get(*models.UserProfile, string) (*models.Conversation, error) {
	return nil, appErrors.ErrNotFound
}

func (m *chatServiceMock) Send(context.Context, *models.UserProfile, string, string) ([]models.ChatMessage, error) {
	return m.messages, m.err
}

func (m *chatServiceMock) Close(*models.UserProfile, string) error { return nil }

func sendChat(t *testing.T, svc *chatServiceMock, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/chat/sessions/s1/messages", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "s1"}}
	c.Set(middleware.ContextUserKey, &models.UserProfile{ID: "u1", Role: models.RoleStudent})
	NewChatHandler(svc).Send(c)
	return w
}

func TestChatHandlerRelayFailureKeepsTranscript(t *testing.T) {
	svc := &chatServiceMock{
		messages: []models.ChatMessage{{Content: "oi", IsFromUser: true}, {Content: "Ops!"}},
		err:      appErrors.Clone(appErrors.ErrRelayUnreachable, ""),
	}
	w := sendChat(t, svc, `{"message":"oi"}`)
	require.Equal(t, http.StatusBadGateway, w.Code)

	var payload struct {
		Data struct {
			Messages []models.ChatMessage `json:"messages"`
		} `json:"data"`
		Error appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Len(t, payload.Data.Messages, 2)
	assert.Equal(t, "RELAY_UNREACHABLE", payload.Error.Code)
	assert.Equal(t, "Erro ao comunicar com o serviço de IA. Tente novamente.", payload.Error.Message)
}

func TestChatHandlerSend(t *testing.T) {
	w := sendChat(t, &chatServiceMock{messages: []models.ChatMessage{{Content: "oi", IsFromUser: true}, {Content: "olá"}}}, `{"message":"oi"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = sendChat(t, &chatServiceMock{err: appErrors.Clone(appErrors.ErrConflict, "")}, `{"message":"oi"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.NotContains(t, w.Body.String(), `"data"`)

	w = sendChat(t, &chatServiceMock{}, `{`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
