package livestore

import (
	"context"

	"github.com/okian/matchday/internal/domain/model"
)

// Fetcher loads one live fixture from the backend.
type Fetcher interface {
	GetByID(ctx context.Context, id string) (*model.LiveFixtureSnapshot, error)
}

// Lister pages through the live fixtures known to the backend. A negative
// total means the backend did not report one.
type Lister interface {
	GetAll(ctx context.Context, page, limit int) ([]model.LiveFixtureSnapshot, int, error)
}

// Commands are the backend writes an operator can trigger. Each returns the
// updated fixture as the backend stored it.
type Commands interface {
	UpdateStatus(ctx context.Context, id string, status model.Status, minute int) (*model.LiveFixtureSnapshot, error)
	UpdateScore(ctx context.Context, id string, result model.Result) (*model.LiveFixtureSnapshot, error)
	AddGoal(ctx context.Context, id string, goal model.GoalScorer) (*model.LiveFixtureSnapshot, error)
	AddTimelineEvent(ctx context.Context, id string, ev model.TimelineEvent) (*model.LiveFixtureSnapshot, error)
	AddSubstitution(ctx context.Context, id string, sub model.Substitution) (*model.LiveFixtureSnapshot, error)
	AddCommentary(ctx context.Context, id string, entry model.CommentaryEntry) (*model.LiveFixtureSnapshot, error)
	SaveStatistics(ctx context.Context, id string, stats model.Statistics) (*model.LiveFixtureSnapshot, error)
	SaveLineups(ctx context.Context, id string, lineups model.Lineups) (*model.LiveFixtureSnapshot, error)
	SetOfficialPOTM(ctx context.Context, id, playerID string) (*model.LiveFixtureSnapshot, error)
	VotePOTM(ctx context.Context, id string, vote model.POTMVote) (*model.LiveFixtureSnapshot, error)
	Cheer(ctx context.Context, id string, vote model.CheerVote) (*model.LiveFixtureSnapshot, error)
	SaveRatings(ctx context.Context, id string, ratings []model.PlayerRating) (*model.LiveFixtureSnapshot, error)
}

// Backend is the REST collaborator of a fixture store.
type Backend interface {
	Fetcher
	Commands
}

// Handler receives one patch.
type Handler func(model.Patch)

// Channel is the socket collaborator: room membership plus handler registration.
// On returns a function that unregisters the handler.
type Channel interface {
	JoinFixture(ctx context.Context, id string) error
	LeaveFixture(ctx context.Context, id string) error
	On(kind model.PatchKind, h Handler) func()
}

// ActiveChannel is the socket collaborator of the live board.
type ActiveChannel interface {
	JoinAllActive(ctx context.Context) error
	LeaveAllActive(ctx context.Context) error
	On(kind model.PatchKind, h Handler) func()
}
