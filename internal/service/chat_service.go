package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/estudaia-api/internal/models"
	appErrors "github.com/noah-isme/estudaia-api/pkg/errors"
	"github.com/noah-isme/estudaia-api/pkg/relay"
)

const welcomeTemplate = `Olá, %s! 👋

Eu sou o **Estuda.ia**, seu assistente de estudos com inteligência artificial!

Posso te ajudar com:
- Explicações sobre conteúdos das suas disciplinas
- Esclarecimento de dúvidas
- Resumos de matérias
- Exercícios e exemplos práticos

O que você gostaria de aprender hoje?`

// ErrorBubbleText is appended to the transcript in place of a reply when the relay fails.
const ErrorBubbleText = `Ops! Não consegui processar sua mensagem no momento. 😔

**Possíveis causas:**
- Problema de conexão com o servidor
- Serviço temporariamente indisponível

Tente novamente em alguns instantes ou entre em contato com o suporte.`

type conversation struct {
	models.Conversation
	ownerID string
	pending bool
}

// ChatService holds chat transcripts in memory and relays user turns to the assistant.
type ChatService struct {
	relay   relay.Sender
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time

	mu            sync.Mutex
	conversations map[string]*conversation
}

// NewChatService constructs a ChatService instance.
func NewChatService(sender relay.Sender, metrics *MetricsService, logger *zap.Logger) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		relay:         sender,
		metrics:       metrics,
		logger:        logger,
		now:           time.Now,
		conversations: make(map[string]*conversation),
	}
}

// Start opens a conversation for user with a fresh relay session id and a welcome message.
func (s *ChatService) Start(user *models.UserProfile) *models.Conversation {
	now := s.now().UTC()
	conv := &conversation{
		Conversation: models.Conversation{
			SessionID: uuid.NewString(),
			StartedAt: now,
			Messages: []models.ChatMessage{{
				ID:        uuid.NewString(),
				Content:   fmt.Sprintf(welcomeTemplate, user.Name()),
				Timestamp: now,
			}},
		},
		ownerID: user.ID,
	}

	s.mu.Lock()
	s.conversations[conv.SessionID] = conv
	open := len(s.conversations)
	s.mu.Unlock()

	s.metrics.SetOpenConversations(open)
	return snapshot(conv)
}

// Get returns a copy of the transcript.
func (s *ChatService) Get(user *models.UserProfile, sessionID string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, err := s.lookup(user, sessionID)
	if err != nil {
		return nil, err
	}
	return snapshot(conv), nil
}

// Send appends the user's message, relays it and appends either the reply or exactly one
// error bubble. Only one turn per conversation may be in flight. The relay call is not
// cancelled with ctx; if the conversation is closed meanwhile the result is discarded.
func (s *ChatService) Send(ctx context.Context, user *models.UserProfile, sessionID, content string) ([]models.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "message must not be empty")
	}

	s.mu.Lock()
	conv, err := s.lookup(user, sessionID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if conv.pending {
		s.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrConflict, "a reply is still pending for this conversation")
	}
	userMessage := models.ChatMessage{ID: uuid.NewString(), Content: content, IsFromUser: true, Timestamp: s.now().UTC()}
	conv.Messages = append(conv.Messages, userMessage)
	conv.pending = true
	s.mu.Unlock()

	start := time.Now()
	reply, relayErr := s.relay.SendMessage(context.WithoutCancel(ctx), content, sessionID)
	s.metrics.ObserveRelay(time.Since(start), relayErr)

	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.conversations[sessionID]; !ok || current != conv {
		s.logger.Info("discarding late chat reply for closed conversation", zap.String("session_id", sessionID))
		return nil, appErrors.Clone(appErrors.ErrNotFound, "conversation was closed")
	}
	conv.pending = false

	answer := models.ChatMessage{ID: uuid.NewString(), Timestamp: s.now().UTC()}
	if relayErr != nil {
		answer.Content = ErrorBubbleText
		conv.Messages = append(conv.Messages, answer)
		return []models.ChatMessage{userMessage, answer}, relayErr
	}
	answer.Content = reply
	conv.Messages = append(conv.Messages, answer)
	return []models.ChatMessage{userMessage, answer}, nil
}

// Close drops a conversation. An in-flight reply for it will be discarded.
func (s *ChatService) Close(user *models.UserProfile, sessionID string) error {
	s.mu.Lock()
	if _, err := s.lookup(user, sessionID); err != nil {
		s.mu.Unlock()
		return err
	}
	delete(s.conversations, sessionID)
	open := len(s.conversations)
	s.mu.Unlock()

	s.metrics.SetOpenConversations(open)
	return nil
}

// lookup must be called with s.mu held. Another user's conversation reads as missing.
func (s *ChatService) lookup(user *models.UserProfile, sessionID string) (*conversation, error) {
	conv, ok := s.conversations[sessionID]
	if !ok || user == nil || conv.ownerID != user.ID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "conversation not found")
	}
	return conv, nil
}

func snapshot(conv *conversation) *models.Conversation {
	out := conv.Conversation
	out.Messages = append([]models.ChatMessage(nil), conv.Messages...)
	return &out
}
