package api

import (
	"context"
	"net/http"
	"time"

	"github.com/okian/matchday/internal/domain/model"
	"github.com/okian/matchday/internal/domain/types"
)

// VoteDependencies defines the fan vote and rating operations.
type VoteDependencies interface {
	POTM(id string) (types.POTMView, error)
	SetOfficialPOTM(ctx context.Context, id, playerID string) (types.POTMView, error)
	VotePOTM(ctx context.Context, id string, vote model.POTMVote) (types.POTMView, error)
	Cheers(id string) (types.CheerView, error)
	Cheer(ctx context.Context, id string, vote model.CheerVote) (types.CheerView, error)
	Ratings(id string) (types.RatingsView, error)
	SaveRatings(ctx context.Context, id string, ratings []model.PlayerRating) (types.RatingsView, error)
}

type officialRequest struct {
	PlayerID string `json:"playerId"`
}

type voteRequest struct {
	UserID     string `json:"userId"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type cheerRequest struct {
	UserID string     `json:"userId"`
	Team   model.Side `json:"team"`
}

type ratingRequest struct {
	UserID     string  `json:"userId"`
	PlayerID   string  `json:"playerId"`
	PlayerName string  `json:"playerName"`
	Rating     float64 `json:"rating"`
	Official   bool    `json:"official"`
}

type ratingsRequest struct {
	Ratings []ratingRequest `json:"ratings"`
}

// VotesHandler handles player-of-the-match, cheer and rating requests.
type VotesHandler struct {
	deps VoteDependencies
	now  func() time.Time
}

// NewVotesHandler creates a new votes handler.
func NewVotesHandler(deps VoteDependencies) *VotesHandler {
	return &VotesHandler{deps: deps, now: time.Now}
}

// HandleGetPOTM handles GET /fixtures/{id}/potm requests.
func (h *VotesHandler) HandleGetPOTM(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_potm"
	id, _ := fixtureID(r)
	view, err := h.deps.POTM(id)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleSetOfficial handles PUT /fixtures/{id}/potm/official requests.
func (h *VotesHandler) HandleSetOfficial(w http.ResponseWriter, r *http.Request) {
	const op = "api.set_official_potm"
	id, _ := fixtureID(r)
	var req officialRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	view, err := h.deps.SetOfficialPOTM(r.Context(), id, req.PlayerID)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleVote handles POST /fixtures/{id}/potm/votes requests.
func (h *VotesHandler) HandleVote(w http.ResponseWriter, r *http.Request) {
	const op = "api.vote_potm"
	id, _ := fixtureID(r)
	var req voteRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	view, err := h.deps.VotePOTM(r.Context(), id, model.POTMVote{
		UserID:    req.UserID,
		Player:    model.PlayerRef{ID: req.PlayerID, Name: req.PlayerName},
		Timestamp: h.now().UTC(),
	})
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleGetCheer handles GET /fixtures/{id}/cheer requests.
func (h *VotesHandler) HandleGetCheer(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_cheer"
	id, _ := fixtureID(r)
	view, err := h.deps.Cheers(id)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleCheer handles POST /fixtures/{id}/cheer requests.
func (h *VotesHandler) HandleCheer(w http.ResponseWriter, r *http.Request) {
	const op = "api.cheer"
	id, _ := fixtureID(r)
	var req cheerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	view, err := h.deps.Cheer(r.Context(), id, model.CheerVote{
		UserID:    req.UserID,
		Team:      req.Team,
		Timestamp: h.now().UTC(),
	})
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleGetRatings handles GET /fixtures/{id}/ratings requests.
func (h *VotesHandler) HandleGetRatings(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_ratings"
	id, _ := fixtureID(r)
	view, err := h.deps.Ratings(id)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleSaveRatings handles PUT /fixtures/{id}/ratings requests.
func (h *VotesHandler) HandleSaveRatings(w http.ResponseWriter, r *http.Request) {
	const op = "api.save_ratings"
	id, _ := fixtureID(r)
	var req ratingsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if len(req.Ratings) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	at := h.now().UTC()
	ratings := make([]model.PlayerRating, 0, len(req.Ratings))
	for _, rr := range req.Ratings {
		ratings = append(ratings, model.PlayerRating{
			UserID:    rr.UserID,
			Player:    model.PlayerRef{ID: rr.PlayerID, Name: rr.PlayerName},
			Rating:    rr.Rating,
			Official:  rr.Official,
			Timestamp: at,
		})
	}
	view, err := h.deps.SaveRatings(r.Context(), id, ratings)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
