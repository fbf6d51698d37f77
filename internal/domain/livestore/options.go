package livestore

import (
	"github.com/okian/matchday/internal/domain/model"
	"github.com/okian/matchday/pkg/logger"
)

const defaultPendingLimit = 256

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithPendingLimit bounds how many patches are buffered while a load is in flight.
func WithPendingLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.pendingLimit = n
		}
	}
}

// OnLoad is called with a copy of every snapshot a load commits.
func OnLoad(fn func(*model.LiveFixtureSnapshot)) Option {
	return func(s *Store) { s.onLoad = fn }
}

// OnError is called when a load fails.
func OnError(fn func(id string, err error)) Option {
	return func(s *Store) { s.onError = fn }
}

// OnChange is called with a copy of the snapshot after every applied change.
func OnChange(fn func(kind model.PatchKind, snap *model.LiveFixtureSnapshot)) Option {
	return func(s *Store) { s.onChange = fn }
}

// BoardOption applies a configuration option to the Board.
type BoardOption func(*Board)

// WithBoardLogger sets the board logger.
func WithBoardLogger(l logger.Logger) BoardOption {
	return func(b *Board) {
		if l != nil {
			b.log = l
		}
	}
}

// WithPageLimit sets the page size used when seeding the board.
func WithPageLimit(n int) BoardOption {
	return func(b *Board) {
		if n > 0 {
			b.pageLimit = n
		}
	}
}
