package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Validation error kinds. Anything failing these is never sent to the backend.
var (
	ErrInvalidStatistics = errors.New("invalid statistics")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidScore      = errors.New("invalid score")
	ErrInvalidEvent      = errors.New("invalid match event")
	ErrInvalidVote       = errors.New("invalid vote")
	ErrInvalidLineup     = errors.New("invalid lineup")
)

const possessionTolerance = 0.01

// Validate checks the team statistics for negative counters.
func (t TeamStatistics) Validate() error {
	for name, v := range map[string]int{
		"shotsOnTarget":  t.ShotsOnTarget,
		"shotsOffTarget": t.ShotsOffTarget,
		"fouls":          t.Fouls,
		"yellowCards":    t.YellowCards,
		"redCards":       t.RedCards,
		"corners":        t.Corners,
		"offsides":       t.Offsides,
	} {
		if v < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidStatistics, name)
		}
	}
	if t.Possession < 0 || t.Possession > 100 {
		return fmt.Errorf("%w: possession must be within 0..100", ErrInvalidStatistics)
	}
	return nil
}

// Validate checks both teams and that a recorded possession split sums to 100.
func (s Statistics) Validate() error {
	if err := s.Home.Validate(); err != nil {
		return fmt.Errorf("home: %w", err)
	}
	if err := s.Away.Validate(); err != nil {
		return fmt.Errorf("away: %w", err)
	}
	sum := s.Home.Possession + s.Away.Possession
	if sum != 0 && math.Abs(sum-100) > possessionTolerance {
		return fmt.Errorf("%w: possession must sum to 100, got %.2f", ErrInvalidStatistics, sum)
	}
	return nil
}

// Validate checks a score block.
func (r Result) Validate() error {
	if r.HomeScore < 0 || r.AwayScore < 0 {
		return fmt.Errorf("%w: scores must not be negative", ErrInvalidScore)
	}
	for _, p := range []*ScorePair{r.HalfTime, r.Penalties} {
		if p != nil && (p.Home < 0 || p.Away < 0) {
			return fmt.Errorf("%w: scores must not be negative", ErrInvalidScore)
		}
	}
	return nil
}

// Validate checks a goal entry.
func (g GoalScorer) Validate() error {
	switch {
	case strings.TrimSpace(g.Player.ID) == "":
		return fmt.Errorf("%w: goal scorer is required", ErrInvalidEvent)
	case !g.Team.Valid():
		return fmt.Errorf("%w: goal team must be home or away", ErrInvalidEvent)
	case g.Minute < 0:
		return fmt.Errorf("%w: minute must not be negative", ErrInvalidEvent)
	}
	return nil
}

// Validate checks a timeline entry.
func (e TimelineEvent) Validate() error {
	switch {
	case strings.TrimSpace(string(e.Kind)) == "":
		return fmt.Errorf("%w: event type is required", ErrInvalidEvent)
	case !e.Team.Valid():
		return fmt.Errorf("%w: event team must be home or away", ErrInvalidEvent)
	case e.Minute < 0:
		return fmt.Errorf("%w: minute must not be negative", ErrInvalidEvent)
	}
	return nil
}

// Validate checks a substitution.
func (s Substitution) Validate() error {
	switch {
	case !s.Team.Valid():
		return fmt.Errorf("%w: substitution team must be home or away", ErrInvalidEvent)
	case s.PlayerIn.ID == "" || s.PlayerOut.ID == "":
		return fmt.Errorf("%w: both players are required", ErrInvalidEvent)
	case s.PlayerIn.ID == s.PlayerOut.ID:
		return fmt.Errorf("%w: player cannot replace themselves", ErrInvalidEvent)
	}
	return nil
}

// Validate checks a commentary line.
func (c CommentaryEntry) Validate() error {
	if strings.TrimSpace(c.Text) == "" {
		return fmt.Errorf("%w: commentary text is required", ErrInvalidEvent)
	}
	if c.Minute < 0 {
		return fmt.Errorf("%w: minute must not be negative", ErrInvalidEvent)
	}
	return nil
}

// Validate checks a lineup pair.
func (l Lineups) Validate() error {
	for side, lineup := range map[Side]Lineup{Home: l.Home, Away: l.Away} {
		if len(lineup.StartingXI) > 11 {
			return fmt.Errorf("%w: %s starting XI has %d players", ErrInvalidLineup, side, len(lineup.StartingXI))
		}
	}
	return nil
}

// Validate checks a POTM vote.
func (v POTMVote) Validate() error {
	if strings.TrimSpace(v.UserID) == "" || strings.TrimSpace(v.Player.ID) == "" {
		return fmt.Errorf("%w: user and player are required", ErrInvalidVote)
	}
	return nil
}

// Validate checks a cheer vote.
func (v CheerVote) Validate() error {
	if strings.TrimSpace(v.UserID) == "" || !v.Team.Valid() {
		return fmt.Errorf("%w: user and team are required", ErrInvalidVote)
	}
	return nil
}
