// Package crosssystem talks to the master dashboard's notification endpoint.
package crosssystem

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Transition types understood by the master dashboard.
const (
	TypeCorrection = "correction"
	TypeReady      = "ready"
)

// ErrDisabled is returned when no endpoint is configured.
var ErrDisabled = errors.New("cross-system notifications disabled")

// Payload is the body posted for one transition.
type Payload struct {
	UserEmail       string `json:"user_email"`
	RequestID       string `json:"request_id"`
	RequestUUID     string `json:"request_uuid"`
	Type            string `json:"type"`
	ProductName     string `json:"product_name"`
	DashboardSource string `json:"dashboard_source"`
}

// Result is the decoded acknowledgement. Acknowledged is false when the
// endpoint answered 2xx without a success flag.
type Result struct {
	Success      bool
	Message      string
	Acknowledged bool
}

// RecipientMissing reports an explicit success=false, which the master
// dashboard sends when it does not know the recipient.
func (r Result) RecipientMissing() bool {
	return r.Acknowledged && !r.Success
}

type acknowledgement struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
}

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("cross-system endpoint returned %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether sending the same payload again may succeed.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Config configures Client.
type Config struct {
	URL           string
	Token         string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
}

// Client posts transition notifications, throttled by a token bucket.
type Client struct {
	url     string
	token   string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient builds a client. httpClient may be nil.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &Client{
		url:     cfg.URL,
		token:   cfg.Token,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, cfg.Burst),
	}
}

// Enabled reports whether an endpoint is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.url != ""
}

// Notify sends one payload and waits for the acknowledgement.
func (c *Client) Notify(ctx context.Context, payload Payload) (Result, error) {
	if !c.Enabled() {
		return Result{}, ErrDisabled
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("wait for rate limiter: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("post notification: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return Result{}, nil
	}
	var ack acknowledgement
	if err := json.Unmarshal(raw, &ack); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}
	if ack.Success == nil {
		return Result{Message: ack.Message}, nil
	}
	return Result{Success: *ack.Success, Message: ack.Message, Acknowledged: true}, nil
}
