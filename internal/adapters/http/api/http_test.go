package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/matchday/internal/adapters/http/api"
	"github.com/okian/matchday/internal/adapters/rest"
	service "github.com/okian/matchday/internal/app"
	"github.com/okian/matchday/internal/domain/livestore"
	"github.com/okian/matchday/internal/domain/model"
	"github.com/okian/matchday/internal/domain/possession"
	"github.com/okian/matchday/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDeps is a canned service.
type mockDeps struct {
	watched   map[string]*model.LiveFixtureSnapshot
	listErr   error
	lastPage  [2]int
	lastVote  model.POTMVote
	lastCheer model.CheerVote
	fromClock bool
	ratings   []model.PlayerRating
	clock     *possession.Clock
}

func newMockDeps() *mockDeps {
	return &mockDeps{
		watched: map[string]*model.LiveFixtureSnapshot{
			"fx-1": {ID: "fx-1", Status: model.StatusFirstHalf, Result: model.Result{HomeScore: 1}},
		},
		clock: possession.New(),
	}
}

func (m *mockDeps) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true, "watchedFixtures": len(m.watched)}
}

func (m *mockDeps) Watch(_ context.Context, id string) (*model.LiveFixtureSnapshot, error) {
	if id == "fx-down" {
		return nil, &rest.Error{Op: "get_fixture", Status: http.StatusNotFound, Message: "fixture not live", Kind: rest.ErrBackend}
	}
	if id == "fx-gone" {
		cause := &rest.Error{Op: "get_fixture", Status: http.StatusGone, Message: "fixture finished", Kind: rest.ErrBackend}
		return nil, fmt.Errorf("watch %s: %w", id, cause)
	}
	m.watched[id] = &model.LiveFixtureSnapshot{ID: id}
	return m.watched[id], nil
}

func (m *mockDeps) Unwatch(_ context.Context, id string) error {
	if _, ok := m.watched[id]; !ok {
		return service.ErrNotWatched
	}
	delete(m.watched, id)
	return nil
}

func (m *mockDeps) Fixture(id string) (*model.LiveFixtureSnapshot, error) {
	if id == "fx-loading" {
		return nil, livestore.ErrNotLoaded
	}
	snap, ok := m.watched[id]
	if !ok {
		return nil, service.ErrNotWatched
	}
	return snap, nil
}

func (m *mockDeps) Fixtures(_ context.Context, page, limit int) ([]model.Summary, int, error) {
	m.lastPage = [2]int{page, limit}
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	return []model.Summary{{ID: "fx-1"}, {ID: "fx-2"}}, 12, nil
}

func (m *mockDeps) Live() []model.Summary {
	return []model.Summary{{ID: "fx-1", Status: model.StatusHalfTime}}
}

func (m *mockDeps) POTM(id string) (types.POTMView, error) {
	snap, err := m.Fixture(id)
	if err != nil {
		return types.POTMView{}, err
	}
	return types.POTMFromSnapshot(snap), nil
}

func (m *mockDeps) SetOfficialPOTM(_ context.Context, id, playerID string) (types.POTMView, error) {
	if playerID == "" {
		return types.POTMView{}, fmt.Errorf("%w: player is required", model.ErrInvalidVote)
	}
	m.watched[id].PlayerOfTheMatch.Official = &model.PlayerRef{ID: playerID}
	return m.POTM(id)
}

func (m *mockDeps) VotePOTM(_ context.Context, id string, vote model.POTMVote) (types.POTMView, error) {
	m.lastVote = vote
	if err := vote.Validate(); err != nil {
		return types.POTMView{}, err
	}
	m.watched[id].PlayerOfTheMatch.Votes = append(m.watched[id].PlayerOfTheMatch.Votes, vote)
	return m.POTM(id)
}

func (m *mockDeps) Cheers(id string) (types.CheerView, error) {
	snap, err := m.Fixture(id)
	if err != nil {
		return types.CheerView{}, err
	}
	return types.CheerFromSnapshot(snap), nil
}

func (m *mockDeps) Cheer(_ context.Context, id string, vote model.CheerVote) (types.CheerView, error) {
	m.lastCheer = vote
	if err := vote.Validate(); err != nil {
		return types.CheerView{}, err
	}
	m.watched[id].CheerMeter.Votes = append(m.watched[id].CheerMeter.Votes, vote)
	return m.Cheers(id)
}

func (m *mockDeps) Ratings(id string) (types.RatingsView, error) {
	snap, err := m.Fixture(id)
	if err != nil {
		return types.RatingsView{}, err
	}
	return types.RatingsFromSnapshot(snap), nil
}

func (m *mockDeps) SaveRatings(_ context.Context, id string, ratings []model.PlayerRating) (types.RatingsView, error) {
	m.ratings = ratings
	m.watched[id].Ratings = append(m.watched[id].Ratings, ratings...)
	return m.Ratings(id)
}

func (m *mockDeps) SaveStatistics(_ context.Context, id string, stats model.Statistics, fromClock bool) (*model.LiveFixtureSnapshot, error) {
	m.fromClock = fromClock
	if err := stats.Validate(); err != nil {
		return nil, err
	}
	m.watched[id].Statistics = stats
	return m.watched[id], nil
}

func (m *mockDeps) Possession(string) (possession.Totals, error) {
	return m.clock.Totals(), nil
}

func (m *mockDeps) StartPossession(_ string, side model.Side) (possession.Totals, error) {
	if !m.clock.Start(side) {
		return possession.Totals{}, service.ErrPossessionRejected
	}
	return m.clock.Totals(), nil
}

func (m *mockDeps) StopPossession(string) (possession.Totals, error) {
	m.clock.Stop()
	return m.clock.Totals(), nil
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func errorBody(w *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body
}

func TestFixtureRoutes(t *testing.T) {
	Convey("Given the view API", t, func() {
		deps := newMockDeps()
		h := api.NewServer(deps, api.WithPageLimits(5, 20)).Handler()

		Convey("When listing fixtures without paging", func() {
			w := do(h, http.MethodGet, "/fixtures", "")

			Convey("Then the defaults are applied", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastPage, ShouldResemble, [2]int{1, 5})

				var page types.Page
				So(json.Unmarshal(w.Body.Bytes(), &page), ShouldBeNil)
				So(page.Total, ShouldEqual, 12)
				So(page.Items, ShouldHaveLength, 2)
			})
		})

		Convey("When the limit is above the maximum it is capped", func() {
			w := do(h, http.MethodGet, "/fixtures?page=2&limit=500", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastPage, ShouldResemble, [2]int{2, 20})
		})

		Convey("When paging is malformed", func() {
			w := do(h, http.MethodGet, "/fixtures?page=zero", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorBody(w)["code"], ShouldEqual, "bad_request")
		})

		Convey("When the backend rejects the listing", func() {
			deps.listErr = &rest.Error{Op: "list", Status: http.StatusUnauthorized, Message: "token expired", Kind: rest.ErrBackend}
			w := do(h, http.MethodGet, "/fixtures", "")

			Convey("Then the backend message is passed through", func() {
				So(w.Code, ShouldEqual, http.StatusBadGateway)
				So(errorBody(w)["message"], ShouldEqual, "token expired")
			})
		})

		Convey("When reading the live board", func() {
			w := do(h, http.MethodGet, "/fixtures/live", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"half-time"`)
		})

		Convey("When reading a watched fixture", func() {
			w := do(h, http.MethodGet, "/fixtures/fx-1", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var snap model.LiveFixtureSnapshot
			So(json.Unmarshal(w.Body.Bytes(), &snap), ShouldBeNil)
			So(snap.Result.HomeScore, ShouldEqual, 1)
		})

		Convey("When reading a fixture nobody watches", func() {
			w := do(h, http.MethodGet, "/fixtures/fx-9", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(errorBody(w)["code"], ShouldEqual, "not_watched")
		})

		Convey("When reading a fixture that is still loading", func() {
			w := do(h, http.MethodGet, "/fixtures/fx-loading", "")
			So(w.Code, ShouldEqual, http.StatusConflict)
		})

		Convey("When watching and unwatching", func() {
			So(do(h, http.MethodPost, "/fixtures/fx-3/watch", "").Code, ShouldEqual, http.StatusOK)
			So(do(h, http.MethodDelete, "/fixtures/fx-3/watch", "").Code, ShouldEqual, http.StatusNoContent)
			So(do(h, http.MethodDelete, "/fixtures/fx-3/watch", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the backend cannot load a fixture", func() {
			w := do(h, http.MethodPost, "/fixtures/fx-down/watch", "")
			So(w.Code, ShouldEqual, http.StatusBadGateway)
			So(errorBody(w)["message"], ShouldEqual, "fixture not live")
		})

		Convey("When a wrapped backend failure reaches the handler", func() {
			w := do(h, http.MethodPost, "/fixtures/fx-gone/watch", "")
			So(w.Code, ShouldEqual, http.StatusBadGateway)
			So(errorBody(w)["message"], ShouldEqual, "fixture finished")
		})

		Convey("When asking for stats and metrics", func() {
			So(do(h, http.MethodGet, "/stats", "").Body.String(), ShouldContainSubstring, `"started":true`)
			So(do(h, http.MethodGet, "/healthz", "").Code, ShouldEqual, http.StatusOK)
		})

		Convey("When a cross-origin preflight arrives", func() {
			req := httptest.NewRequest(http.MethodOptions, "/fixtures/fx-1/cheer", http.NoBody)
			req.Header.Set("Origin", "https://desk.example")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
		})
	})
}

func TestVoteRoutes(t *testing.T) {
	Convey("Given a watched fixture", t, func() {
		deps := newMockDeps()
		h := api.NewServer(deps).Handler()

		Convey("When fans vote for the player of the match", func() {
			w := do(h, http.MethodPost, "/fixtures/fx-1/potm/votes", `{"userId":"u1","playerId":"p7","playerName":"Seven"}`)

			Convey("Then the vote is stamped and the panel returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastVote.Timestamp.IsZero(), ShouldBeFalse)

				var view types.POTMView
				So(json.Unmarshal(w.Body.Bytes(), &view), ShouldBeNil)
				So(view.TotalVotes, ShouldEqual, 1)
				So(view.Players[0].Name, ShouldEqual, "Seven")
				So(view.Players[0].Percentage, ShouldEqual, 100)
			})
		})

		Convey("When a vote names no player", func() {
			w := do(h, http.MethodPost, "/fixtures/fx-1/potm/votes", `{"userId":"u1"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the body is not JSON", func() {
			w := do(h, http.MethodPost, "/fixtures/fx-1/potm/votes", `{`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the official pick is set", func() {
			w := do(h, http.MethodPut, "/fixtures/fx-1/potm/official", `{"playerId":"p4"}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(do(h, http.MethodGet, "/fixtures/fx-1/potm", "").Body.String(), ShouldContainSubstring, `"p4"`)
		})

		Convey("When fans cheer", func() {
			So(do(h, http.MethodPost, "/fixtures/fx-1/cheer", `{"userId":"u1","team":"away"}`).Code, ShouldEqual, http.StatusOK)
			w := do(h, http.MethodGet, "/fixtures/fx-1/cheer", "")

			var view types.CheerView
			So(json.Unmarshal(w.Body.Bytes(), &view), ShouldBeNil)
			So(view.Fans.Away, ShouldEqual, 1)
			So(view.AwayPercentage, ShouldEqual, 100)
			So(deps.lastCheer.Team, ShouldEqual, model.Away)
		})

		Convey("When ratings are saved", func() {
			w := do(h, http.MethodPut, "/fixtures/fx-1/ratings",
				`{"ratings":[{"userId":"u1","playerId":"p1","rating":7},{"userId":"u1","playerId":"p2","rating":9}]}`)

			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.ratings, ShouldHaveLength, 2)
			So(deps.ratings[1].Player.ID, ShouldEqual, "p2")

			var view types.RatingsView
			So(json.Unmarshal(do(h, http.MethodGet, "/fixtures/fx-1/ratings", "").Body.Bytes(), &view), ShouldBeNil)
			So(view.Players[0].ID, ShouldEqual, "p2")
		})

		Convey("When no ratings are sent", func() {
			So(do(h, http.MethodPut, "/fixtures/fx-1/ratings", `{"ratings":[]}`).Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestPossessionRoutes(t *testing.T) {
	Convey("Given a watched fixture", t, func() {
		deps := newMockDeps()
		h := api.NewServer(deps).Handler()

		Convey("When the home side takes the ball", func() {
			w := do(h, http.MethodPost, "/fixtures/fx-1/possession/start", `{"side":"home"}`)
			So(w.Code, ShouldEqual, http.StatusOK)

			Convey("Then a second start is a conflict", func() {
				w := do(h, http.MethodPost, "/fixtures/fx-1/possession/start", `{"side":"away"}`)
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(errorBody(w)["code"], ShouldEqual, "possession_rejected")
			})

			Convey("And stopping reports the totals", func() {
				w := do(h, http.MethodPost, "/fixtures/fx-1/possession/stop", "")
				So(w.Code, ShouldEqual, http.StatusOK)

				var totals possession.Totals
				So(json.Unmarshal(do(h, http.MethodGet, "/fixtures/fx-1/possession", "").Body.Bytes(), &totals), ShouldBeNil)
				So(totals.Active, ShouldEqual, model.Side(""))
				So(totals.HomePercentage+totals.AwayPercentage, ShouldAlmostEqual, 100, 1e-9)
			})
		})

		Convey("When statistics are saved from the clock", func() {
			w := do(h, http.MethodPut, "/fixtures/fx-1/statistics?possession=clock", `{"home":{"corners":4},"away":{}}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.fromClock, ShouldBeTrue)
		})

		Convey("When statistics are invalid", func() {
			w := do(h, http.MethodPut, "/fixtures/fx-1/statistics", `{"home":{"corners":-1},"away":{}}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(deps.fromClock, ShouldBeFalse)
		})
	})
}
