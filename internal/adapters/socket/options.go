package socket

import (
	"time"

	"github.com/okian/matchday/internal/domain/dedupe"
	"github.com/okian/matchday/pkg/logger"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithToken sends the bearer token on the websocket handshake.
func WithToken(token string) Option {
	return func(c *Client) {
		if token != "" {
			c.header.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithReconnectAttempts bounds consecutive failed connection attempts.
func WithReconnectAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithBackoff sets the exponential reconnect backoff range.
func WithBackoff(minBackoff, maxBackoff time.Duration) Option {
	return func(c *Client) {
		if minBackoff > 0 {
			c.minBackoff = minBackoff
		}
		if maxBackoff >= c.minBackoff {
			c.maxBackoff = maxBackoff
		}
	}
}

// WithReadTimeout sets how long the connection may stay silent.
func WithReadTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.readTimeout = d
		}
	}
}

// WithWriteTimeout bounds every control frame write.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.writeTimeout = d
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithReplayWindow sets how many recent timestamped frames are remembered to
// drop replays after a rejoin.
func WithReplayWindow(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.seen = dedupe.NewWindow(dedupe.WithMaxSize(n))
		}
	}
}
