// Package livestore keeps the client-side copy of one in-progress fixture in
// sync with the backend.
//
// A Store is seeded by a REST load and then mutated only by socket patches
// scoped to its fixture, or by operator writes after the backend accepted
// them. Readers always receive deep copies.
package livestore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/matchday/internal/domain/model"
	"github.com/okian/matchday/pkg/logger"
	"github.com/okian/matchday/pkg/metrics"
)

// Store holds the live snapshot of one fixture.
type Store struct {
	backend Backend
	channel Channel
	log     logger.Logger

	pendingLimit int
	onLoad       func(*model.LiveFixtureSnapshot)
	onError      func(id string, err error)
	onChange     func(model.PatchKind, *model.LiveFixtureSnapshot)

	mu        sync.Mutex
	snap      *model.LiveFixtureSnapshot
	loadSeq   uint64
	loadingID string
	pending   []model.Patch
	gen       uint64
}

// New creates an empty store. A nil backend or channel makes the matching
// operations fail with ErrNoBackend or ErrNoChannel.
func New(backend Backend, channel Channel, opts ...Option) *Store {
	s := &Store{
		backend:      backend,
		channel:      channel,
		pendingLimit: defaultPendingLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("livestore")
	}
	return s
}

// Load fetches the fixture and replaces the current snapshot with it.
// On failure the previous snapshot is kept and the error is returned and
// reported through OnError. Only the most recently started load commits;
// an overtaken load returns ErrSuperseded. Patches for id that arrive while
// the load is in flight are replayed on top of the fetched snapshot.
func (s *Store) Load(ctx context.Context, id string) error {
	if s.backend == nil {
		return ErrNoBackend
	}

	s.mu.Lock()
	s.loadSeq++
	seq := s.loadSeq
	s.loadingID = id
	s.pending = nil
	s.mu.Unlock()

	start := time.Now()
	snap, err := s.backend.GetByID(ctx, id)
	if err == nil && snap == nil {
		err = ErrEmptySnapshot
	}
	latency := float64(time.Since(start).Milliseconds())

	s.mu.Lock()
	if seq != s.loadSeq {
		s.mu.Unlock()
		metrics.RecordSnapshotLoad("superseded", latency)
		return ErrSuperseded
	}
	s.loadingID = ""
	if err != nil {
		dropped := len(s.pending)
		s.pending = nil
		s.mu.Unlock()
		metrics.UpdatePatchesPending(0)
		metrics.RecordSnapshotLoad("error", latency)
		s.log.Error(ctx, "fixture load failed", logger.FixtureID(id), logger.Int("droppedPatches", dropped), logger.Error(err))
		if s.onError != nil {
			s.onError(id, err)
		}
		return err
	}

	if snap.ID == "" {
		snap.ID = id
	}
	normalize(snap)
	s.snap = snap
	pending := s.pending
	s.pending = nil
	for _, p := range pending {
		s.applyLocked(ctx, p)
	}
	out := s.snap.Clone()
	s.mu.Unlock()

	metrics.UpdatePatchesPending(0)
	metrics.RecordSnapshotLoad("ok", latency)
	s.log.Debug(ctx, "fixture loaded", logger.FixtureID(id), logger.Int("replayed", len(pending)))
	if s.onLoad != nil {
		s.onLoad(out)
	}
	return nil
}

// Subscribe joins the fixture room and binds a handler for every patch kind.
// The returned leave is idempotent. It first invalidates this subscription
// so handlers still queued for delivery become no-ops, then unregisters the
// handlers and leaves the room.
func (s *Store) Subscribe(ctx context.Context, id string) (func(), error) {
	if s.channel == nil {
		return nil, ErrNoChannel
	}

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	if err := s.channel.JoinFixture(ctx, id); err != nil {
		return nil, fmt.Errorf("join fixture %s: %w", id, err)
	}

	kinds := model.PatchKinds()
	offs := make([]func(), 0, len(kinds))
	for _, kind := range kinds {
		offs = append(offs, s.channel.On(kind, func(p model.Patch) {
			if !s.current(gen) {
				return
			}
			s.ApplyPatch(p)
		}))
	}

	var once sync.Once
	leave := func() {
		once.Do(func() {
			s.mu.Lock()
			if s.gen == gen {
				s.gen++
			}
			s.mu.Unlock()

			for _, off := range offs {
				off()
			}
			if err := s.channel.LeaveFixture(context.Background(), id); err != nil {
				s.log.Warn(context.Background(), "leave fixture room failed", logger.FixtureID(id), logger.Error(err))
			}
		})
	}
	return leave, nil
}

func (s *Store) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}

// ApplyPatch applies one socket patch and reports whether the snapshot changed.
// Patches for other fixtures, unknown kinds and malformed payloads are ignored.
func (s *Store) ApplyPatch(p model.Patch) bool {
	ctx := context.Background()

	s.mu.Lock()
	if s.loadingID != "" && p.FixtureID == s.loadingID {
		reason := reasonBuffered
		if len(s.pending) >= s.pendingLimit {
			reason = reasonBufferFull
		} else {
			s.pending = append(s.pending, p)
		}
		n := len(s.pending)
		s.mu.Unlock()

		metrics.UpdatePatchesPending(n)
		if reason == reasonBufferFull {
			metrics.RecordPatchIgnored(string(p.Kind), reason)
			s.log.Warn(ctx, "patch buffer full, dropping patch", logger.FixtureID(p.FixtureID), logger.String("kind", string(p.Kind)))
		}
		return false
	}

	applied := s.applyLocked(ctx, p)
	var out *model.LiveFixtureSnapshot
	if applied && s.onChange != nil {
		out = s.snap.Clone()
	}
	s.mu.Unlock()

	if out != nil {
		s.onChange(p.Kind, out)
	}
	return applied
}

// applyLocked must be called with s.mu held.
func (s *Store) applyLocked(ctx context.Context, p model.Patch) bool {
	reason := s.tryApply(p)
	if reason != "" {
		metrics.RecordPatchIgnored(string(p.Kind), reason)
		switch reason {
		case reasonOtherFixture, reasonNoSnapshot:
			s.log.Debug(ctx, "patch ignored", logger.FixtureID(p.FixtureID), logger.String("kind", string(p.Kind)), logger.String("reason", reason))
		default:
			s.log.Warn(ctx, "patch rejected", logger.FixtureID(p.FixtureID), logger.String("kind", string(p.Kind)), logger.String("reason", reason))
		}
		return false
	}
	metrics.RecordPatchApplied(string(p.Kind))
	return true
}

func (s *Store) tryApply(p model.Patch) string {
	if s.snap == nil {
		return reasonNoSnapshot
	}
	if p.FixtureID != s.snap.ID {
		return reasonOtherFixture
	}

	full, body, reason := decodePatch(p)
	if reason != "" {
		return reason
	}
	if full != nil {
		normalize(full)
		s.snap = full
		return ""
	}

	return applyBody(s.snap, p.Kind, body, true)
}

// Snapshot returns a copy of the current snapshot, or nil before the first load.
func (s *Store) Snapshot() *model.LiveFixtureSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone()
}

// FixtureID returns the id of the loaded fixture, or "".
func (s *Store) FixtureID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return ""
	}
	return s.snap.ID
}

// Release drops all state. In-flight loads and live subscriptions can no
// longer modify the store afterwards.
func (s *Store) Release() {
	s.mu.Lock()
	s.snap = nil
	s.pending = nil
	s.loadingID = ""
	s.loadSeq++
	s.gen++
	s.mu.Unlock()
	metrics.UpdatePatchesPending(0)
}
