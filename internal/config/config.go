// Package config defines live desk configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers defaults, an optional YAML file and MATCHDAY_* env vars.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address of the view API, e.g. ":9080".
	Addr string `koanf:"addr"`

	// APIBaseURL is the REST collaborator root, e.g. "http://backend:5000/api".
	APIBaseURL string `koanf:"api_base_url"`

	// APIToken is forwarded as a bearer token; authorization stays with the backend.
	APIToken string `koanf:"api_token"`

	// SocketURL is the websocket endpoint of the live channel.
	SocketURL string `koanf:"socket_url"`

	// RequestTimeoutMS bounds a single REST call.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// ReconnectAttempts bounds consecutive socket reconnects before giving up.
	ReconnectAttempts int `koanf:"reconnect_attempts"`

	// ReconnectMinBackoffMS and ReconnectMaxBackoffMS bound the exponential backoff.
	ReconnectMinBackoffMS int `koanf:"reconnect_min_backoff_ms"`
	ReconnectMaxBackoffMS int `koanf:"reconnect_max_backoff_ms"`

	// DispatchQueueSize bounds patches waiting for the dispatcher.
	DispatchQueueSize int `koanf:"dispatch_queue_size"`

	// PendingPatchLimit bounds patches buffered while a snapshot load is in flight.
	PendingPatchLimit int `koanf:"pending_patch_limit"`

	// DefaultPageLimit and MaxPageLimit shape GET /fixtures paging.
	DefaultPageLimit int `koanf:"default_page_limit"`
	MaxPageLimit     int `koanf:"max_page_limit"`

	// CORSAllowedOrigins lists origins allowed to call the view API.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// MetricsNamespace and MetricsSubsystem prefix every exported metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// MetricsLatencyBuckets are the upper bounds, in milliseconds, of latency histograms.
	MetricsLatencyBuckets []float64 `koanf:"metrics_latency_buckets"`

	// MetricsEnvironment, when set, is attached to every metric as the "environment" label.
	MetricsEnvironment string `koanf:"metrics_environment"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":9080",
		APIBaseURL:            "http://localhost:5000/api",
		SocketURL:             "ws://localhost:5000/ws",
		RequestTimeoutMS:      10_000,
		ReconnectAttempts:     5,
		ReconnectMinBackoffMS: 1_000,
		ReconnectMaxBackoffMS: 30_000,
		DispatchQueueSize:     10_000,
		PendingPatchLimit:     256,
		DefaultPageLimit:      10,
		MaxPageLimit:          100,
		CORSAllowedOrigins:    []string{"*"},
		MetricsNamespace:      "matchday",
		MetricsSubsystem:      "livedesk",
		MetricsLatencyBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	}
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// ReconnectBackoff returns the backoff bounds as durations.
func (c *Config) ReconnectBackoff() (time.Duration, time.Duration) {
	return time.Duration(c.ReconnectMinBackoffMS) * time.Millisecond,
		time.Duration(c.ReconnectMaxBackoffMS) * time.Millisecond
}

// Validate checks the fields the process cannot start without.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.APIBaseURL) == "":
		return fmt.Errorf("%w: api_base_url must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.SocketURL) == "":
		return fmt.Errorf("%w: socket_url must not be empty", ErrInvalidConfig)
	case c.RequestTimeoutMS <= 0:
		return fmt.Errorf("%w: request_timeout_ms must be positive", ErrInvalidConfig)
	case c.ReconnectAttempts <= 0:
		return fmt.Errorf("%w: reconnect_attempts must be positive", ErrInvalidConfig)
	case c.ReconnectMinBackoffMS <= 0 || c.ReconnectMaxBackoffMS < c.ReconnectMinBackoffMS:
		return fmt.Errorf("%w: reconnect backoff bounds are inconsistent", ErrInvalidConfig)
	case c.DispatchQueueSize <= 0:
		return fmt.Errorf("%w: dispatch_queue_size must be positive", ErrInvalidConfig)
	case c.PendingPatchLimit < 0:
		return fmt.Errorf("%w: pending_patch_limit must not be negative", ErrInvalidConfig)
	case c.DefaultPageLimit <= 0 || c.MaxPageLimit < c.DefaultPageLimit:
		return fmt.Errorf("%w: page limits are inconsistent", ErrInvalidConfig)
	case strings.TrimSpace(c.MetricsNamespace) == "":
		return fmt.Errorf("%w: metrics_namespace must not be empty", ErrInvalidConfig)
	case !increasing(c.MetricsLatencyBuckets):
		return fmt.Errorf("%w: metrics_latency_buckets must be strictly increasing", ErrInvalidConfig)
	}
	return nil
}

func increasing(bounds []float64) bool {
	for i := 1; i < len(bounds); i++ {
		if bounds[i] <= bounds[i-1] {
			return false
		}
	}
	return true
}
