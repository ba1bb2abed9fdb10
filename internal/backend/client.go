package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"checkout-service/internal/logging"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 64 << 10
)

// ErrMalformedResponse marks a 2xx answer that does not have the expected shape.
var ErrMalformedResponse = errors.New("backend: malformed response")

// APIError is a non-2xx answer from the shop backend.
type APIError struct {
	Status  int
	Code    string
	Message string
	Path    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend: %s status %d: %s", e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("backend: %s status %d", e.Path, e.Status)
}

// UserMessage is the server-provided message meant for the shopper.
func (e *APIError) UserMessage() string { return e.Message }

// Client calls the shop REST API on behalf of a shopper.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// New builds a client for baseURL. Requests are traced through otelhttp.
func New(baseURL string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, errors.New("backend base url required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger = logging.OrNop(logger)
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}, nil
}

// do sends body as JSON (when non-nil) and decodes a 2xx answer into out
// (when non-nil).
func (c *Client) do(ctx context.Context, method, token string, body, out any, segments ...string) error {
	endpoint, err := url.JoinPath(c.baseURL, segments...)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("backend call",
		zap.String("method", method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode >= 300 {
		return decodeError(resp, req.URL.Path)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, req.URL.Path, err)
	}
	return nil
}

type errorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func decodeError(resp *http.Response, path string) error {
	apiErr := &APIError{Status: resp.StatusCode, Path: path}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload errorPayload
	if err := json.Unmarshal(raw, &payload); err == nil {
		apiErr.Code = strings.TrimSpace(payload.Error)
		apiErr.Message = strings.TrimSpace(payload.Message)
	}
	return apiErr
}

func statusIs(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
