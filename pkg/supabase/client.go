// Package supabase is a small HTTPS client for a hosted auth + table service
// (GoTrue-style auth endpoints under /auth/v1, PostgREST-style tables under /rest/v1).
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrNotConfigured is returned when the service URL or public key is missing or unusable.
var ErrNotConfigured = errors.New("supabase: service url and public key are required")

// Config configures a Client.
type Config struct {
	URL           string
	AnonKey       string
	HTTPClient    *http.Client
	Storage       SessionStorage
	RefreshLeeway time.Duration
	Logger        *zap.Logger
}

// Client talks to one hosted project.
type Client struct {
	baseURL *url.URL
	apiKey  string
	http    *http.Client
	logger  *zap.Logger

	Auth *AuthClient
}

// NewClient validates the configuration and builds the auth sub-client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" || strings.TrimSpace(cfg.AnonKey) == "" {
		return nil, ErrNotConfigured
	}
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: invalid url %q", ErrNotConfigured, cfg.URL)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{baseURL: base, apiKey: cfg.AnonKey, http: httpClient, logger: logger}
	c.Auth = newAuthClient(c, cfg.Storage, cfg.RefreshLeeway, logger)
	return c, nil
}

// APIError is a non-2xx answer from the service.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase: status %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase: status %d: %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by an *APIError, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if asAPIError(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func asAPIError(err error, target **APIError) bool {
	return err != nil && errors.As(err, target)
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        interface{}
	accessToken string
	headers     map[string]string
}

func (c *Client) do(ctx context.Context, req request, dest interface{}) error {
	endpoint := *c.baseURL
	endpoint.Path = strings.TrimRight(endpoint.Path, "/") + req.path
	if len(req.query) > 0 {
		endpoint.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("supabase: encode body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint.String(), body)
	if err != nil {
		return fmt.Errorf("supabase: build request: %w", err)
	}
	token := req.accessToken
	if token == "" {
		token = c.apiKey
	}
	httpReq.Header.Set("apikey", c.apiKey)
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for key, value := range req.headers {
		httpReq.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("supabase: %s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("supabase: read response: %w", err)
	}
	c.logger.Debug("supabase request",
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp.StatusCode, raw)
	}
	if dest == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("supabase: decode response: %w", err)
	}
	return nil
}

type errorBody struct {
	Msg              string          `json:"msg"`
	Message          string          `json:"message"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
	ErrorCode        string          `json:"error_code"`
	Code             json.RawMessage `json:"code"`
}

func decodeAPIError(status int, raw []byte) *APIError {
	apiErr := &APIError{Status: status, Message: http.StatusText(status)}
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		if text := strings.TrimSpace(string(raw)); text != "" {
			apiErr.Message = text
		}
		return apiErr
	}

	for _, msg := range []string{body.Msg, body.Message, body.ErrorDescription, body.Error} {
		if msg != "" {
			apiErr.Message = msg
			break
		}
	}
	switch {
	case body.ErrorCode != "":
		apiErr.Code = body.ErrorCode
	case len(body.Code) > 0 && body.Code[0] == '"':
		if unquoted, err := strconv.Unquote(string(body.Code)); err == nil {
			apiErr.Code = unquoted
		}
	case body.Error != "":
		apiErr.Code = body.Error
	}
	return apiErr
}
