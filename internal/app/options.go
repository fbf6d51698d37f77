package service

import (
	"time"

	"github.com/okian/matchday/internal/config"
	"github.com/okian/matchday/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig copies connection and sizing settings from cfg.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg == nil {
			return
		}
		s.apiBaseURL = cfg.APIBaseURL
		s.apiToken = cfg.APIToken
		s.socketURL = cfg.SocketURL
		s.requestTimeout = cfg.RequestTimeout()
		s.reconnectAttempts = cfg.ReconnectAttempts
		s.minBackoff, s.maxBackoff = cfg.ReconnectBackoff()
		if cfg.DispatchQueueSize > 0 {
			s.queueSize = cfg.DispatchQueueSize
		}
		if cfg.PendingPatchLimit > 0 {
			s.pendingLimit = cfg.PendingPatchLimit
		}
		if cfg.MaxPageLimit > 0 {
			s.pageLimit = cfg.MaxPageLimit
		}
	}
}

// WithBackend replaces the REST client built at start.
func WithBackend(b Backend) Option {
	return func(s *Service) {
		if b != nil {
			s.backend = b
		}
	}
}

// WithTransport replaces the socket client built at start.
func WithTransport(t Transport) Option {
	return func(s *Service) {
		if t != nil {
			s.transport = t
		}
	}
}

// WithQueueSize sets the capacity of the dispatch queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithPendingLimit bounds patches buffered per fixture while it loads.
func WithPendingLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pendingLimit = n
		}
	}
}

// WithShutdownTimeout bounds how long Stop waits for the dispatcher.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
