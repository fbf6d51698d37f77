package service

import (
	"context"
	"fmt"

	"github.com/okian/matchday/internal/domain/model"
	"github.com/okian/matchday/internal/domain/possession"
	"github.com/okian/matchday/internal/domain/types"
)

// POTM returns the player-of-the-match panel of a watched fixture.
func (s *Service) POTM(id string) (types.POTMView, error) {
	snap, err := s.Fixture(id)
	if err != nil {
		return types.POTMView{}, err
	}
	return types.POTMFromSnapshot(snap), nil
}

// SetOfficialPOTM records the official pick.
func (s *Service) SetOfficialPOTM(ctx context.Context, id, playerID string) (types.POTMView, error) {
	sess, err := s.session(id)
	if err != nil {
		return types.POTMView{}, err
	}
	if err := sess.store.SetOfficialPOTM(ctx, playerID); err != nil {
		return types.POTMView{}, err
	}
	return s.POTM(id)
}

// VotePOTM submits a fan vote.
func (s *Service) VotePOTM(ctx context.Context, id string, vote model.POTMVote) (types.POTMView, error) {
	sess, err := s.session(id)
	if err != nil {
		return types.POTMView{}, err
	}
	if err := sess.store.VotePOTM(ctx, vote); err != nil {
		return types.POTMView{}, err
	}
	return s.POTM(id)
}

// Cheers returns the cheer meter panel of a watched fixture.
func (s *Service) Cheers(id string) (types.CheerView, error) {
	snap, err := s.Fixture(id)
	if err != nil {
		return types.CheerView{}, err
	}
	return types.CheerFromSnapshot(snap), nil
}

// Cheer submits a fan cheer.
func (s *Service) Cheer(ctx context.Context, id string, vote model.CheerVote) (types.CheerView, error) {
	sess, err := s.session(id)
	if err != nil {
		return types.CheerView{}, err
	}
	if err := sess.store.Cheer(ctx, vote); err != nil {
		return types.CheerView{}, err
	}
	return s.Cheers(id)
}

// Ratings returns the average rating per player.
func (s *Service) Ratings(id string) (types.RatingsView, error) {
	snap, err := s.Fixture(id)
	if err != nil {
		return types.RatingsView{}, err
	}
	return types.RatingsFromSnapshot(snap), nil
}

// SaveRatings stores player ratings.
func (s *Service) SaveRatings(ctx context.Context, id string, ratings []model.PlayerRating) (types.RatingsView, error) {
	sess, err := s.session(id)
	if err != nil {
		return types.RatingsView{}, err
	}
	if err := sess.store.SaveRatings(ctx, ratings); err != nil {
		return types.RatingsView{}, err
	}
	return s.Ratings(id)
}

// SaveStatistics stores both teams' statistics. With fromClock set the
// possession split is taken from the fixture's possession clock.
func (s *Service) SaveStatistics(ctx context.Context, id string, stats model.Statistics, fromClock bool) (*model.LiveFixtureSnapshot, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	if fromClock {
		stats.Home.Possession, stats.Away.Possession = sess.clock.Percentages()
	}
	if err := sess.store.SaveStatistics(ctx, stats); err != nil {
		return nil, err
	}
	return s.Fixture(id)
}

// Possession returns the possession clock of a watched fixture.
func (s *Service) Possession(id string) (possession.Totals, error) {
	sess, err := s.session(id)
	if err != nil {
		return possession.Totals{}, err
	}
	return sess.clock.Totals(), nil
}

// StartPossession gives the ball to side.
func (s *Service) StartPossession(id string, side model.Side) (possession.Totals, error) {
	sess, err := s.session(id)
	if err != nil {
		return possession.Totals{}, err
	}
	if !sess.clock.Start(side) {
		if active := sess.clock.Active(); active != "" {
			return possession.Totals{}, fmt.Errorf("%w: %s already has the ball", ErrPossessionRejected, active)
		}
		return possession.Totals{}, fmt.Errorf("%w: unknown side %q", ErrPossessionRejected, side)
	}
	return sess.clock.Totals(), nil
}

// StopPossession closes the running interval. Stopping an idle clock is a no-op.
func (s *Service) StopPossession(id string) (possession.Totals, error) {
	sess, err := s.session(id)
	if err != nil {
		return possession.Totals{}, err
	}
	sess.clock.Stop()
	return sess.clock.Totals(), nil
}
