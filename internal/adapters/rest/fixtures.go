package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/okian/matchday/internal/domain/model"
)

const livePath = "/live-fixtures"

func fixturePath(id string, parts ...string) string {
	p := livePath + "/" + url.PathEscape(id)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

// GetByID fetches one live fixture.
func (c *Client) GetByID(ctx context.Context, id string) (*model.LiveFixtureSnapshot, error) {
	var out model.LiveFixtureSnapshot
	if _, err := c.do(ctx, "get_by_id", http.MethodGet, fixturePath(id), nil, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, &Error{Op: "get_by_id", Kind: ErrDecode, Err: fmt.Errorf("fixture %s: empty data", id)}
	}
	return &out, nil
}

// UnknownTotal is the total reported when the backend sent none.
const UnknownTotal = -1

// GetAll fetches one page of live fixtures and the total across all pages.
// When the backend omits the total, UnknownTotal is returned instead.
func (c *Client) GetAll(ctx context.Context, page, limit int) ([]model.LiveFixtureSnapshot, int, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(max(page, 1)))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	out := []model.LiveFixtureSnapshot{}
	total, err := c.do(ctx, "get_all", http.MethodGet, livePath+"?"+q.Encode(), nil, &out)
	if err != nil {
		return nil, 0, err
	}
	if total < 0 {
		total = UnknownTotal
	}
	return out, total, nil
}

// write sends a command and decodes the updated fixture, if any.
func (c *Client) write(ctx context.Context, op, method, path string, body any) (*model.LiveFixtureSnapshot, error) {
	var out model.LiveFixtureSnapshot
	if _, err := c.do(ctx, op, method, path, body, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, nil
	}
	return &out, nil
}

// UpdateStatus sets the fixture status and current minute.
func (c *Client) UpdateStatus(ctx context.Context, id string, status model.Status, minute int) (*model.LiveFixtureSnapshot, error) {
	return c.write(ctx, "update_status", http.MethodPut, fixturePath(id, "status"), map[string]any{
		"status": status, "currentMinute": minute,
	})
}

// UpdateScore replaces the result block.
func (c *Client) UpdateScore(ctx context.Context, id string, result model.Result) (*model.LiveFixtureSnapshot, error) {
	return c.write(ctx, "update_score", http.MethodPut, fixturePath(id, "score"), result)
}

// AddGoal records a goal.
func (c *Client) AddGoal(ctx context.Context, id string, goal model.GoalScorer) (*model.LiveFixtureSnapshot, error) {
	return c.write(ctx, "add_goal", http.MethodPost, fixturePath(id, "goals"), goal)
}

// AddTimelineEvent appends a timeline event.
func (c *Client) AddTimelineEvent(ctx context.Context, id string, ev model.TimelineEvent) (*model.LiveFixtureSnapshot, error) {
	return c.write(ctx, "add_timeline_event", http.MethodPost, fixturePath(id, "timeline"), ev)
}

// AddSubstitution records a substitution.
func (c *Client) AddSubstitution(ctx context.Context, id string, sub model.Substitution) (*model.LiveFixtureSnapshot, error) {
	return c.write(ctx, "add_substitution", http.MethodPost, fixturePath(id, "substitutions"), sub)
}

// AddCommentary appends a commentary line.
func (c *Client) AddCommentary(ctx context.Context, id string, entry model.CommentaryEntry) (*model.LiveFixtureSnapshot, error) {
	return c.write(ctx, "add_commentary", http.MethodPost, fixturePath(id, "commentary"), entry)
}

// SaveStatistics replaces the statistics pair.
func (c *Client) SaveStatistics(ctx context.Context, id string, stats model.Statistics) (*model.LiveFixtureSnapshot, error) {
	return c.write(ctx, "save_statistics", http.MethodPut, fixturePath(id, "statistics"), stats)
}

// SaveLineups replaces both lineups.
func (c *Client) SaveLineups(ctx context.Context, id string, lineups model.Lineups) (*model.LiveFixtureSnapshot, error) {
	return c.write(ctx, "save_lineups", http.MethodPut, fixturePath(id, "lineups"), lineups)
}

// SetOfficialPOTM records the official player of the match.
func (c *Client) SetOfficialPOTM(ctx context.Context, id, playerID string) (*model.LiveFixtureSnapshot, error) {
	return c.write(ctx, "set_official_potm", http.MethodPut, fixturePath(id, "potm", "official"), map[string]string{
		"playerId": playerID,
	})
}

// VotePOTM submits a fan vote for player of the match.
func (c *Client) VotePOTM(ctx context.Context, id string, vote model.POTMVote) (*model.LiveFixtureSnapshot, error) {
	return c.write(ctx, "vote_potm", http.MethodPost, fixturePath(id, "potm", "vote"), map[string]string{
		"userId": vote.UserID, "playerId": vote.Player.ID,
	})
}

// Cheer submits a fan cheer.
func (c *Client) Cheer(ctx context.Context, id string, vote model.CheerVote) (*model.LiveFixtureSnapshot, error) {
	return c.write(ctx, "cheer", http.MethodPost, fixturePath(id, "cheer"), map[string]string{
		"userId": vote.UserID, "team": string(vote.Team),
	})
}

// SaveRatings stores player ratings.
func (c *Client) SaveRatings(ctx context.Context, id string, ratings []model.PlayerRating) (*model.LiveFixtureSnapshot, error) {
	return c.write(ctx, "save_ratings", http.MethodPut, fixturePath(id, "ratings"), map[string]any{
		"ratings": ratings,
	})
}
