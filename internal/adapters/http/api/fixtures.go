package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/matchday/internal/domain/model"
	"github.com/okian/matchday/internal/domain/types"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// FixtureDependencies defines the fixture reads and the watch lifecycle.
type FixtureDependencies interface {
	Watch(ctx context.Context, id string) (*model.LiveFixtureSnapshot, error)
	Unwatch(ctx context.Context, id string) error
	Fixture(id string) (*model.LiveFixtureSnapshot, error)
	Fixtures(ctx context.Context, page, limit int) ([]model.Summary, int, error)
	Live() []model.Summary
}

// FixturesHandler handles fixture requests.
type FixturesHandler struct {
	deps         FixtureDependencies
	defaultLimit int
	maxLimit     int
}

// NewFixturesHandler creates a new fixtures handler.
func NewFixturesHandler(deps FixtureDependencies) *FixturesHandler {
	return &FixturesHandler{deps: deps, defaultLimit: defaultPageLimit, maxLimit: maxPageLimit}
}

// HandleList handles GET /fixtures?page=P&limit=N requests.
func (h *FixturesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_fixtures"
	page, limit, err := h.paging(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	items, total, err := h.deps.Fixtures(r.Context(), page, limit)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, types.Page{Items: items, Page: page, Limit: limit, Total: total})
}

func (h *FixturesHandler) paging(r *http.Request) (int, int, error) {
	q := r.URL.Query()
	page, limit := 1, h.defaultLimit
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return 0, 0, NewKind("page", ErrBadRequest)
		}
		page = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return 0, 0, NewKind("limit", ErrBadRequest)
		}
		limit = min(n, h.maxLimit)
	}
	return page, limit, nil
}

// HandleLive handles GET /fixtures/live requests.
func (h *FixturesHandler) HandleLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Live())
}

// HandleGet handles GET /fixtures/{id} requests.
func (h *FixturesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_fixture"
	id, ok := fixtureID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	snap, err := h.deps.Fixture(id)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleWatch handles POST /fixtures/{id}/watch requests.
func (h *FixturesHandler) HandleWatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.watch_fixture"
	id, ok := fixtureID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	snap, err := h.deps.Watch(r.Context(), id)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleUnwatch handles DELETE /fixtures/{id}/watch requests.
func (h *FixturesHandler) HandleUnwatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.unwatch_fixture"
	id, ok := fixtureID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if err := h.deps.Unwatch(r.Context(), id); err != nil {
		writeFailure(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
