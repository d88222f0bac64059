// Package redis implements the Redis pub/sub event adapter.
//
// Each runner completion is published as a single JSON message so
// downstream consumers (dashboards, alerting) can follow announcement
// activity without polling the posts table.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pithecene-io/crier/adapter"
)

// DefaultChannel is the pub/sub channel runner events are published on.
const DefaultChannel = "crier:runner_completed"

// DefaultTimeout bounds a single PUBLISH round trip.
const DefaultTimeout = 5 * time.Second

// DefaultRetries is the retry count applied by the config layer when
// the events section leaves it unset.
const DefaultRetries = 3

// backoffBase is the delay before the first retry. It doubles on each
// subsequent attempt.
const backoffBase = 500 * time.Millisecond

// Config configures the Redis event adapter.
type Config struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Channel overrides DefaultChannel when set.
	Channel string
	// Timeout overrides DefaultTimeout when positive.
	Timeout time.Duration
	// Retries is the number of extra attempts after a failed publish.
	// Zero means a single attempt.
	Retries int
}

// Adapter publishes runner completion events via Redis PUBLISH.
type Adapter struct {
	client  *goredis.Client
	channel string
	timeout time.Duration
	retries int
}

// New creates a Redis event adapter from the given config.
// Returns an error if the URL is empty or invalid.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis adapter requires a URL")
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis adapter: invalid URL: %w", err)
	}

	a := &Adapter{
		client:  goredis.NewClient(opts),
		channel: cfg.Channel,
		timeout: cfg.Timeout,
		retries: cfg.Retries,
	}
	if a.channel == "" {
		a.channel = DefaultChannel
	}
	if a.timeout <= 0 {
		a.timeout = DefaultTimeout
	}
	return a, nil
}

// Publish sends the event as a JSON PUBLISH on the configured channel,
// retrying with exponential backoff until the attempts are exhausted or
// the context is canceled.
func (a *Adapter) Publish(ctx context.Context, event *adapter.RunnerCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: marshal event: %w", err)
	}

	attempts := 1 + a.retries
	var lastErr error
	for i := range attempts {
		if i > 0 {
			delay := backoffBase << uint(i-1)
			select {
			case <-ctx.Done():
				return fmt.Errorf("redis: canceled during backoff: %w", ctx.Err())
			case <-time.After(delay):
			}
		} else if err := ctx.Err(); err != nil {
			return fmt.Errorf("redis: context canceled: %w", err)
		}

		if lastErr = a.publishOnce(ctx, body); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("redis: failed after %d attempts: %w", attempts, lastErr)
}

func (a *Adapter) publishOnce(ctx context.Context, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.client.Publish(ctx, a.channel, body).Err()
}

// Close releases the underlying client connection.
func (a *Adapter) Close() error {
	return a.client.Close()
}

// Verify Adapter satisfies the adapter interface.
var _ adapter.Adapter = (*Adapter)(nil)
