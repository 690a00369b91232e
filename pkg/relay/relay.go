// Package relay posts chat turns to the external assistant webhook.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/estudaia-api/pkg/errors"
)

// FallbackReply is returned when the webhook answers without a reply field.
const FallbackReply = "Resposta não encontrada"

// Sender sends one chat turn and returns the assistant's reply.
type Sender interface {
	SendMessage(ctx context.Context, content, sessionID string) (string, error)
}

// Client talks to one webhook URL. It never retries and sets no timeout of its own.
type Client struct {
	url    string
	http   *http.Client
	logger *zap.Logger
}

// NewClient constructs a relay client. An empty url yields a client whose every call fails
// with the relay error, so chat stays usable as a surface even when unconfigured.
func NewClient(url string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{url: strings.TrimSpace(url), http: httpClient, logger: logger}
}

// Configured reports whether a webhook URL is set.
func (c *Client) Configured() bool {
	return c.url != ""
}

type payload struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

// SendMessage posts {message, sessionId} and returns reply, else message, else FallbackReply.
func (c *Client) SendMessage(ctx context.Context, content, sessionID string) (string, error) {
	text, err := c.send(ctx, content, sessionID)
	if err != nil {
		c.logger.Warn("chat relay failed", zap.String("session_id", sessionID), zap.Error(err))
		return "", appErrors.Wrap(err, appErrors.ErrRelayUnreachable.Code, appErrors.ErrRelayUnreachable.Status, appErrors.ErrRelayUnreachable.Message)
	}
	return text, nil
}

func (c *Client) send(ctx context.Context, content, sessionID string) (string, error) {
	if c.url == "" {
		return "", fmt.Errorf("chat webhook url not configured")
	}
	body, err := json.Marshal(payload{Message: content, SessionID: sessionID})
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	var out interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode reply: %w", err)
	}
	return replyText(out), nil
}

// replyText picks a non-empty string reply, then message, from an object body. Any other
// shape gets FallbackReply.
func replyText(body interface{}) string {
	fields, ok := body.(map[string]interface{})
	if !ok {
		return FallbackReply
	}
	for _, key := range []string{"reply", "message"} {
		if text, ok := fields[key].(string); ok && text != "" {
			return text
		}
	}
	return FallbackReply
}
