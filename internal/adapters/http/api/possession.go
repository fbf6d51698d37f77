package api

import (
	"context"
	"net/http"

	"github.com/okian/matchday/internal/domain/model"
	"github.com/okian/matchday/internal/domain/possession"
)

// PossessionDependencies defines the possession clock and statistics operations.
type PossessionDependencies interface {
	Possession(id string) (possession.Totals, error)
	StartPossession(id string, side model.Side) (possession.Totals, error)
	StopPossession(id string) (possession.Totals, error)
	SaveStatistics(ctx context.Context, id string, stats model.Statistics, fromClock bool) (*model.LiveFixtureSnapshot, error)
}

type startRequest struct {
	Side model.Side `json:"side"`
}

// PossessionHandler handles possession clock and statistics requests.
type PossessionHandler struct {
	deps PossessionDependencies
}

// NewPossessionHandler creates a new possession handler.
func NewPossessionHandler(deps PossessionDependencies) *PossessionHandler {
	return &PossessionHandler{deps: deps}
}

// HandleGet handles GET /fixtures/{id}/possession requests.
func (h *PossessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_possession"
	id, _ := fixtureID(r)
	totals, err := h.deps.Possession(id)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// HandleStart handles POST /fixtures/{id}/possession/start requests.
func (h *PossessionHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	const op = "api.start_possession"
	id, _ := fixtureID(r)
	var req startRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	totals, err := h.deps.StartPossession(id, req.Side)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// HandleStop handles POST /fixtures/{id}/possession/stop requests.
func (h *PossessionHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	const op = "api.stop_possession"
	id, _ := fixtureID(r)
	totals, err := h.deps.StopPossession(id)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// HandleSaveStatistics handles PUT /fixtures/{id}/statistics requests.
// With ?possession=clock the split is taken from the possession clock.
func (h *PossessionHandler) HandleSaveStatistics(w http.ResponseWriter, r *http.Request) {
	const op = "api.save_statistics"
	id, _ := fixtureID(r)
	var stats model.Statistics
	if err := decode(r, &stats); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	fromClock := r.URL.Query().Get("possession") == "clock"
	snap, err := h.deps.SaveStatistics(r.Context(), id, stats, fromClock)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
