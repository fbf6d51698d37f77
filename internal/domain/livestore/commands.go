package livestore

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/okian/matchday/internal/domain/model"
	"github.com/okian/matchday/internal/domain/votes"
	"github.com/okian/matchday/pkg/logger"
)

type call func(ctx context.Context, id string) (*model.LiveFixtureSnapshot, error)

// commit runs a backend write for the loaded fixture and, once it succeeded,
// copies the slice the write touched from the returned fixture into the
// snapshot. A failed write leaves the snapshot unchanged, and so does a
// write that returns no resource.
func (s *Store) commit(ctx context.Context, kind model.PatchKind, op string, fn call, merge func(dst, src *model.LiveFixtureSnapshot)) error {
	if s.backend == nil {
		return ErrNoBackend
	}
	id := s.FixtureID()
	if id == "" {
		return ErrNotLoaded
	}

	res, err := fn(ctx, id)
	if err != nil {
		s.log.Warn(ctx, "fixture write failed", logger.FixtureID(id), logger.String("op", op), logger.Error(err))
		return err
	}
	if res == nil {
		// Void response: the socket patch that follows carries the change.
		s.log.Debug(ctx, "fixture write returned no resource", logger.FixtureID(id), logger.String("op", op))
		return nil
	}

	s.mu.Lock()
	if s.snap == nil || s.snap.ID != id {
		s.mu.Unlock()
		return nil
	}
	merge(s.snap, res)
	var out *model.LiveFixtureSnapshot
	if s.onChange != nil {
		out = s.snap.Clone()
	}
	s.mu.Unlock()

	if out != nil {
		s.onChange(kind, out)
	}
	return nil
}

// mergeKind copies the slice owned by kind without the monotonicity guards.
func mergeKind(kind model.PatchKind) func(dst, src *model.LiveFixtureSnapshot) {
	return func(dst, src *model.LiveFixtureSnapshot) {
		applyBody(dst, kind, model.BodyFromSnapshot(kind, src), false)
	}
}

// UpdateStatus moves the fixture to status and sets the current minute.
func (s *Store) UpdateStatus(ctx context.Context, status model.Status, minute int) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", model.ErrInvalidStatus, status)
	}
	if minute < 0 {
		return fmt.Errorf("%w: minute must not be negative", model.ErrInvalidStatus)
	}
	return s.commit(ctx, model.PatchStatus, "update_status", func(ctx context.Context, id string) (*model.LiveFixtureSnapshot, error) {
		return s.backend.UpdateStatus(ctx, id, status, minute)
	}, mergeKind(model.PatchStatus))
}

// UpdateScore replaces the result block.
func (s *Store) UpdateScore(ctx context.Context, result model.Result) error {
	if err := result.Validate(); err != nil {
		return err
	}
	return s.commit(ctx, model.PatchScore, "update_score", func(ctx context.Context, id string) (*model.LiveFixtureSnapshot, error) {
		return s.backend.UpdateScore(ctx, id, result)
	}, mergeKind(model.PatchScore))
}

// AddGoal records a goal. The backend updates both the scorer list and the score.
func (s *Store) AddGoal(ctx context.Context, goal model.GoalScorer) error {
	if err := goal.Validate(); err != nil {
		return err
	}
	return s.commit(ctx, model.PatchScore, "add_goal", func(ctx context.Context, id string) (*model.LiveFixtureSnapshot, error) {
		return s.backend.AddGoal(ctx, id, goal)
	}, func(dst, src *model.LiveFixtureSnapshot) {
		mergeKind(model.PatchScore)(dst, src)
		mergeKind(model.PatchTimeline)(dst, src)
	})
}

// AddTimelineEvent appends a discrete match event.
func (s *Store) AddTimelineEvent(ctx context.Context, ev model.TimelineEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	return s.commit(ctx, model.PatchTimeline, "add_timeline_event", func(ctx context.Context, id string) (*model.LiveFixtureSnapshot, error) {
		return s.backend.AddTimelineEvent(ctx, id, ev)
	}, mergeKind(model.PatchTimeline))
}

// AddSubstitution records a substitution.
func (s *Store) AddSubstitution(ctx context.Context, sub model.Substitution) error {
	if err := sub.Validate(); err != nil {
		return err
	}
	return s.commit(ctx, model.PatchSubstitution, "add_substitution", func(ctx context.Context, id string) (*model.LiveFixtureSnapshot, error) {
		return s.backend.AddSubstitution(ctx, id, sub)
	}, func(dst, src *model.LiveFixtureSnapshot) {
		mergeKind(model.PatchSubstitution)(dst, src)
		mergeKind(model.PatchTimeline)(dst, src)
	})
}

// AddCommentary appends a commentary line.
func (s *Store) AddCommentary(ctx context.Context, entry model.CommentaryEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	return s.commit(ctx, model.PatchCommentary, "add_commentary", func(ctx context.Context, id string) (*model.LiveFixtureSnapshot, error) {
		return s.backend.AddCommentary(ctx, id, entry)
	}, mergeKind(model.PatchCommentary))
}

// SaveStatistics replaces both teams' statistics.
func (s *Store) SaveStatistics(ctx context.Context, stats model.Statistics) error {
	if err := stats.Validate(); err != nil {
		return err
	}
	return s.commit(ctx, model.PatchStatistics, "save_statistics", func(ctx context.Context, id string) (*model.LiveFixtureSnapshot, error) {
		return s.backend.SaveStatistics(ctx, id, stats)
	}, mergeKind(model.PatchStatistics))
}

// SaveLineups replaces both lineups.
func (s *Store) SaveLineups(ctx context.Context, lineups model.Lineups) error {
	if err := lineups.Validate(); err != nil {
		return err
	}
	return s.commit(ctx, model.PatchLineup, "save_lineups", func(ctx context.Context, id string) (*model.LiveFixtureSnapshot, error) {
		return s.backend.SaveLineups(ctx, id, lineups)
	}, mergeKind(model.PatchLineup))
}

// SetOfficialPOTM records the official player of the match.
func (s *Store) SetOfficialPOTM(ctx context.Context, playerID string) error {
	if strings.TrimSpace(playerID) == "" {
		return fmt.Errorf("%w: player is required", model.ErrInvalidVote)
	}
	return s.commit(ctx, model.PatchPOTM, "set_official_potm", func(ctx context.Context, id string) (*model.LiveFixtureSnapshot, error) {
		return s.backend.SetOfficialPOTM(ctx, id, playerID)
	}, mergeKind(model.PatchPOTM))
}

// VotePOTM submits a fan vote. A resubmission by the same user replaces
// the earlier vote.
func (s *Store) VotePOTM(ctx context.Context, vote model.POTMVote) error {
	if err := vote.Validate(); err != nil {
		return err
	}
	return s.commit(ctx, model.PatchPOTM, "vote_potm", func(ctx context.Context, id string) (*model.LiveFixtureSnapshot, error) {
		return s.backend.VotePOTM(ctx, id, vote)
	}, mergeKind(model.PatchPOTM))
}

// Cheer submits a fan cheer for one side.
func (s *Store) Cheer(ctx context.Context, vote model.CheerVote) error {
	if err := vote.Validate(); err != nil {
		return err
	}
	return s.commit(ctx, model.PatchCheer, "cheer", func(ctx context.Context, id string) (*model.LiveFixtureSnapshot, error) {
		return s.backend.Cheer(ctx, id, vote)
	}, mergeKind(model.PatchCheer))
}

// SaveRatings stores player ratings. Every rating must be within 1..10 and
// name a player; nothing is sent otherwise.
func (s *Store) SaveRatings(ctx context.Context, ratings []model.PlayerRating) error {
	for _, r := range ratings {
		if strings.TrimSpace(r.Player.ID) == "" {
			return fmt.Errorf("%w: rated player is required", model.ErrInvalidVote)
		}
		if err := votes.ValidateRating(r.Rating); err != nil {
			return err
		}
	}
	ratings = slices.Clone(ratings)
	return s.commit(ctx, model.PatchFull, "save_ratings", func(ctx context.Context, id string) (*model.LiveFixtureSnapshot, error) {
		return s.backend.SaveRatings(ctx, id, ratings)
	}, func(dst, src *model.LiveFixtureSnapshot) {
		dst.Ratings = slices.Clone(src.Ratings)
	})
}
