// Package rest is the client of the backend's live-fixture REST API.
//
// Every endpoint answers with the envelope {success, data, message, total}.
// A success=false answer becomes an *Error of kind ErrBackend carrying the
// backend message verbatim.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/matchday/pkg/logger"
	"github.com/okian/matchday/pkg/metrics"
)

const (
	defaultTimeout = 10 * time.Second
	maxBody        = 8 << 20
	maxLoggedBody  = 512
)

// Client talks to the backend REST API.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	http    *http.Client
	log     logger.Logger
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Total   *int            `json:"total,omitempty"`
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		timeout: defaultTimeout,
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get().Named("rest")
	}
	return c
}

// do sends one request and decodes the envelope's data into out when out is
// non-nil. It returns the envelope total, or -1 when the backend sent none.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	total, err := c.roundTrip(ctx, op, method, path, body, out)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.RecordRESTRequest(op, result, float64(time.Since(start).Milliseconds()))
	return total, err
}

func (c *Client) roundTrip(ctx context.Context, op, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return -1, &Error{Op: op, Kind: ErrDecode, Err: err}
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return -1, &Error{Op: op, Kind: ErrTransport, Err: err}
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn(ctx, "request failed", logger.String("op", op), logger.String("requestId", requestID), logger.Error(err))
		return -1, &Error{Op: op, Kind: ErrTransport, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return -1, &Error{Op: op, Status: resp.StatusCode, Kind: ErrTransport, Err: err}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			c.log.Warn(ctx, "backend error without envelope",
				logger.String("op", op), logger.Int("status", resp.StatusCode), logger.String("body", truncate(raw, maxLoggedBody)))
			return -1, &Error{Op: op, Status: resp.StatusCode, Kind: ErrBackend, Message: http.StatusText(resp.StatusCode)}
		}
		return -1, &Error{Op: op, Status: resp.StatusCode, Kind: ErrDecode, Err: err}
	}

	if !env.Success || resp.StatusCode >= http.StatusBadRequest {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		c.log.Info(ctx, "backend rejected request",
			logger.String("op", op), logger.String("requestId", requestID), logger.Int("status", resp.StatusCode), logger.String("message", msg))
		return -1, &Error{Op: op, Status: resp.StatusCode, Kind: ErrBackend, Message: msg}
	}

	total := -1
	if env.Total != nil {
		total = *env.Total
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return total, nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return total, &Error{Op: op, Status: resp.StatusCode, Kind: ErrDecode, Err: fmt.Errorf("data: %w", err)}
	}
	return total, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
