package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/estudaia-api/internal/models"
	appErrors "github.com/noah-isme/estudaia-api/pkg/errors"
)

type relayStub struct {
	reply   string
	err     error
	release chan struct{}
	entered chan struct{}

	mu    sync.Mutex
	calls []string
}

func (r *relayStub) SendMessage(ctx context.Context, content, sessionID string) (string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, sessionID+":"+content)
	r.mu.Unlock()
	if r.entered != nil {
		r.entered <- struct{}{}
	}
	if r.release != nil {
		<-r.release
	}
	return r.reply, r.err
}

var chatUser = &models.UserProfile{ID: "u1", Role: models.RoleStudent, DisplayName: "Ana"}

func TestChatServiceWelcomeAndReply(t *testing.T) {
	relay := &relayStub{reply: "Derivada é a taxa de variação."}
	svc := NewChatService(relay, NewMetricsService(), nil)

	conv := svc.Start(chatUser)
	require.Len(t, conv.Messages, 1)
	assert.True(t, strings.HasPrefix(conv.Messages[0].Content, "Olá, Ana!"))
	assert.False(t, conv.Messages[0].IsFromUser)

	turn, err := svc.Send(context.Background(), chatUser, conv.SessionID, "  O que é derivada?  ")
	require.NoError(t, err)
	require.Len(t, turn, 2)
	assert.True(t, turn[0].IsFromUser)
	assert.Equal(t, "O que é derivada?", turn[0].Content)
	assert.Equal(t, "Derivada é a taxa de variação.", turn[1].Content)
	assert.Equal(t, []string{conv.SessionID + ":O que é derivada?"}, relay.calls)

	got, err := svc.Get(chatUser, conv.SessionID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 3)
}

func TestChatServiceRelayFailureAppendsOneBubble(t *testing.T) {
	relayErr := appErrors.Clone(appErrors.ErrRelayUnreachable, "")
	svc := NewChatService(&relayStub{err: relayErr}, nil, nil)
	conv := svc.Start(chatUser)

	turn, err := svc.Send(context.Background(), chatUser, conv.SessionID, "oi")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrRelayUnreachable))
	require.Len(t, turn, 2)
	assert.Equal(t, ErrorBubbleText, turn[1].Content)

	got, err := svc.Get(chatUser, conv.SessionID)
	require.NoError(t, err)
	bubbles := 0
	for _, m := range got.Messages {
		if m.Content == ErrorBubbleText {
			bubbles++
		}
	}
	assert.Equal(t, 1, bubbles)
	assert.Len(t, got.Messages, 3)
}

func TestChatServiceRejectsEmptyAndForeignTurns(t *testing.T) {
	svc := NewChatService(&relayStub{reply: "ok"}, nil, nil)
	conv := svc.Start(chatUser)

	_, err := svc.Send(context.Background(), chatUser, conv.SessionID, "   ")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	stranger := &models.UserProfile{ID: "u2", Role: models.RoleStudent}
	_, err = svc.Send(context.Background(), stranger, conv.SessionID, "oi")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	_, err = svc.Get(stranger, conv.SessionID)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	assert.True(t, appErrors.Is(svc.Close(stranger, conv.SessionID), appErrors.ErrNotFound))
}

func TestChatServiceSingleTurnInFlight(t *testing.T) {
	relay := &relayStub{reply: "ok", release: make(chan struct{}), entered: make(chan struct{}, 1)}
	svc := NewChatService(relay, nil, nil)
	conv := svc.Start(chatUser)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Send(context.Background(), chatUser, conv.SessionID, "primeira")
		done <- err
	}()
	<-relay.entered

	_, err := svc.Send(context.Background(), chatUser, conv.SessionID, "segunda")
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))

	close(relay.release)
	require.NoError(t, <-done)
}

func TestChatServiceDiscardsLateReplyAfterClose(t *testing.T) {
	relay := &relayStub{reply: "tarde demais", release: make(chan struct{}), entered: make(chan struct{}, 1)}
	svc := NewChatService(relay, nil, nil)
	conv := svc.Start(chatUser)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := svc.Send(ctx, chatUser, conv.SessionID, "oi")
		done <- err
	}()
	<-relay.entered
	cancel()
	require.NoError(t, svc.Close(chatUser, conv.SessionID))
	close(relay.release)

	select {
	case err := <-done:
		assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	case <-time.After(time.Second):
		t.Fatal("send did not return")
	}
	_, err := svc.Get(chatUser, conv.SessionID)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestChatServiceRelayIgnoresCallerCancellation(t *testing.T) {
	var seen error
	relay := relayFunc(func(ctx context.Context, _, _ string) (string, error) {
		seen = ctx.Err()
		return "ok", nil
	})
	svc := NewChatService(relay, nil, nil)
	conv := svc.Start(chatUser)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Send(ctx, chatUser, conv.SessionID, "oi")
	require.NoError(t, err)
	assert.False(t, errors.Is(seen, context.Canceled))
}

type relayFunc func(ctx context.Context, content, sessionID string) (string, error)

func (f relayFunc) SendMessage(ctx context.Context, content, sessionID string) (string, error) {
	return f(ctx, content, sessionID)
}
