// Package announce implements the messaging-webhook client that
// delivers status updates.
//
// Posts a JSON message to a configurable incoming-webhook URL. One
// attempt per update: a failed post is logged by the caller and the
// update goes out again on a later invocation.
package announce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pithecene-io/crier/runner"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// DefaultUsername is the sender name attached to each post.
const DefaultUsername = "crier"

// AckToken is the response body an incoming webhook returns when it
// accepted the message. Anything else means the post did not land.
const AckToken = "ok"

// maxAckBytes bounds how much of the response body is read for the
// acknowledgement check.
const maxAckBytes = 4096

// Config configures the webhook client.
type Config struct {
	// URL is the incoming-webhook endpoint to POST to (required).
	URL string
	// Username is the sender name. Empty means DefaultUsername.
	Username string
	// Channel optionally overrides the webhook's default channel.
	Channel string
	// Timeout is the per-request timeout (default 10s).
	Timeout time.Duration
}

// Client posts status updates to a messaging webhook.
type Client struct {
	config Config
	client *http.Client
}

// message is the webhook payload.
type message struct {
	Username string `json:"username"`
	Text     string `json:"text"`
	Channel  string `json:"channel,omitempty"`
}

// New creates a webhook client from the given config.
// Returns an error if the URL is empty.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("announce: webhook URL is required")
	}
	if cfg.Username == "" {
		cfg.Username = DefaultUsername
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Post sends one update text as a JSON POST request. Success requires
// both a 2xx status and the affirmative acknowledgement token in the
// response body.
func (c *Client) Post(ctx context.Context, text string) error {
	body, err := json.Marshal(message{
		Username: c.config.Username,
		Text:     text,
		Channel:  c.config.Channel,
	})
	if err != nil {
		return fmt.Errorf("announce: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("announce: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("announce: request failed: %w", err)
	}
	defer func() {
		// Drain whatever the ack read left so the connection can be
		// reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	ack, err := io.ReadAll(io.LimitReader(resp.Body, maxAckBytes))
	if err != nil {
		return fmt.Errorf("announce: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode}
	}
	if got := strings.TrimSpace(string(ack)); got != AckToken {
		return fmt.Errorf("announce: webhook did not acknowledge: %q", truncate(got, 64))
	}
	return nil
}

// StatusError is returned for non-2xx webhook responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Close releases client resources.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Verify Client satisfies the lifecycle engine's poster contract.
var _ runner.Poster = (*Client)(nil)
