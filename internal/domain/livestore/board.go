package livestore

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/okian/matchday/internal/domain/model"
	"github.com/okian/matchday/pkg/logger"
	"github.com/okian/matchday/pkg/metrics"
)

const defaultBoardPageLimit = 50

// Board keeps a summary of every live fixture for list views. It is fed by
// the all-active room: lifecycle events add and remove fixtures, while
// status, score and full-update patches refresh them.
type Board struct {
	lister    Lister
	channel   ActiveChannel
	log       logger.Logger
	pageLimit int
	now       func() time.Time

	mu    sync.RWMutex
	items map[string]model.Summary
}

// NewBoard creates an empty board.
func NewBoard(lister Lister, channel ActiveChannel, opts ...BoardOption) *Board {
	b := &Board{
		lister:    lister,
		channel:   channel,
		pageLimit: defaultBoardPageLimit,
		now:       time.Now,
		items:     make(map[string]model.Summary),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.log == nil {
		b.log = logger.Get().Named("board")
	}
	return b
}

// Start joins the all-active room, binds handlers and seeds the board from
// the backend. The returned stop unregisters the handlers and leaves the room.
func (b *Board) Start(ctx context.Context) (func(), error) {
	if b.channel == nil {
		return nil, ErrNoChannel
	}
	if err := b.channel.JoinAllActive(ctx); err != nil {
		return nil, fmt.Errorf("join all-active room: %w", err)
	}

	kinds := []model.PatchKind{
		model.PatchStatus, model.PatchScore, model.PatchFull,
		model.EventFixtureCreated, model.EventFixtureDeleted, model.EventFixtureEnded,
	}
	offs := make([]func(), 0, len(kinds))
	for _, kind := range kinds {
		offs = append(offs, b.channel.On(kind, func(p model.Patch) { b.Apply(p) }))
	}

	var once sync.Once
	stop := func() {
		once.Do(func() {
			for _, off := range offs {
				off()
			}
			if err := b.channel.LeaveAllActive(context.Background()); err != nil {
				b.log.Warn(context.Background(), "leave all-active room failed", logger.Error(err))
			}
		})
	}

	if err := b.Seed(ctx); err != nil {
		b.log.Error(ctx, "seeding live board failed", logger.Error(err))
	}
	return stop, nil
}

// Seed pages through the backend's live fixtures and adds every one of them.
// Entries already on the board are replaced. Without a reported total,
// paging stops at the first short page.
func (b *Board) Seed(ctx context.Context) error {
	if b.lister == nil {
		return ErrNoBackend
	}
	seen := 0
	for page := 1; ; page++ {
		fixtures, total, err := b.lister.GetAll(ctx, page, b.pageLimit)
		if err != nil {
			return fmt.Errorf("list live fixtures page %d: %w", page, err)
		}
		b.mu.Lock()
		for i := range fixtures {
			b.items[fixtures[i].ID] = b.summarize(&fixtures[i], time.Time{})
		}
		n := len(b.items)
		b.mu.Unlock()
		metrics.UpdateLiveFixtures(n)

		seen += len(fixtures)
		switch {
		case len(fixtures) == 0:
			return nil
		case total < 0 && len(fixtures) < b.pageLimit:
			return nil
		case total >= 0 && seen >= total:
			return nil
		}
	}
}

func (b *Board) summarize(s *model.LiveFixtureSnapshot, at time.Time) model.Summary {
	sum := s.Summarize()
	if at.IsZero() {
		at = b.now()
	}
	sum.UpdatedAt = at
	return sum
}

// Apply folds one all-active event into the board and reports whether it changed.
func (b *Board) Apply(p model.Patch) bool {
	ctx := context.Background()
	if p.FixtureID == "" {
		return false
	}

	b.mu.Lock()
	changed, reason := b.applyLocked(p)
	n := len(b.items)
	b.mu.Unlock()

	if !changed {
		if reason != "" {
			b.log.Warn(ctx, "board event rejected", logger.FixtureID(p.FixtureID), logger.String("kind", string(p.Kind)), logger.String("reason", reason))
		}
		return false
	}
	metrics.UpdateLiveFixtures(n)
	return true
}

func (b *Board) applyLocked(p model.Patch) (bool, string) {
	switch p.Kind {
	case model.EventFixtureDeleted, model.EventFixtureEnded:
		if _, ok := b.items[p.FixtureID]; !ok {
			return false, ""
		}
		delete(b.items, p.FixtureID)
		return true, ""

	case model.EventFixtureCreated, model.PatchFull:
		var s model.LiveFixtureSnapshot
		if len(p.Data) == 0 || json.Unmarshal(p.Data, &s) != nil {
			return false, reasonMalformed
		}
		if s.ID == "" {
			s.ID = p.FixtureID
		}
		if p.Kind == model.PatchFull {
			if _, ok := b.items[s.ID]; !ok {
				return false, ""
			}
		}
		b.items[s.ID] = b.summarize(&s, p.Timestamp)
		return true, ""
	}

	cur, ok := b.items[p.FixtureID]
	if !ok {
		return false, ""
	}
	var body model.PatchBody
	if len(p.Data) == 0 || json.Unmarshal(p.Data, &body) != nil {
		return false, reasonMalformed
	}

	// Reuse the store's guarded slice logic on a minimal snapshot.
	tmp := model.LiveFixtureSnapshot{
		ID: cur.ID, Status: cur.Status, Result: cur.Result, CurrentMinute: cur.CurrentMinute,
	}
	if reason := applyBody(&tmp, p.Kind, body, true); reason != "" {
		if reason == reasonUnknownKind {
			return false, ""
		}
		return false, reason
	}
	cur.Status, cur.Result, cur.CurrentMinute = tmp.Status, tmp.Result, tmp.CurrentMinute
	cur.UpdatedAt = p.Timestamp
	if cur.UpdatedAt.IsZero() {
		cur.UpdatedAt = b.now()
	}
	b.items[cur.ID] = cur
	return true, ""
}

// List returns the live fixtures ordered by competition, then id.
func (b *Board) List() []model.Summary {
	b.mu.RLock()
	out := make([]model.Summary, 0, len(b.items))
	for _, s := range b.items {
		out = append(out, s)
	}
	b.mu.RUnlock()

	slices.SortFunc(out, func(x, y model.Summary) int {
		if c := strings.Compare(x.Competition, y.Competition); c != 0 {
			return c
		}
		return strings.Compare(x.ID, y.ID)
	})
	return out
}

// Len returns the number of live fixtures on the board.
func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}
