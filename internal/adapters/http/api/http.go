// Package api declares the HTTP view API of the live desk and its routes.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/okian/matchday/internal/adapters/rest"
	service "github.com/okian/matchday/internal/app"
	"github.com/okian/matchday/internal/domain/livestore"
	"github.com/okian/matchday/internal/domain/model"
	"github.com/okian/matchday/internal/domain/votes"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	StatsProvider
	FixtureDependencies
	VoteDependencies
	PossessionDependencies
}

// Server wires HTTP routes for the view API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	fixturesHandler   *FixturesHandler
	votesHandler      *VotesHandler
	possessionHandler *PossessionHandler

	allowedOrigins []string
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithAllowedOrigins sets the CORS origins. Empty means any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.allowedOrigins = origins
		}
	}
}

// WithPageLimits sets the default and maximum page size of GET /fixtures.
func WithPageLimits(defaultLimit, maxLimit int) Option {
	return func(s *Server) {
		if defaultLimit > 0 && maxLimit >= defaultLimit {
			s.fixturesHandler.defaultLimit = defaultLimit
			s.fixturesHandler.maxLimit = maxLimit
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(deps),
		fixturesHandler:   NewFixturesHandler(deps),
		votesHandler:      NewVotesHandler(deps),
		possessionHandler: NewPossessionHandler(deps),
		allowedOrigins:    []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to router.
func (s *Server) Register(router *mux.Router) {
	router.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz")).Methods(http.MethodGet)
	router.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats")).Methods(http.MethodGet)

	f := router.PathPrefix("/fixtures").Subrouter()
	f.HandleFunc("", MetricsMiddleware(s.fixturesHandler.HandleList, "fixtures")).Methods(http.MethodGet)
	f.HandleFunc("/live", MetricsMiddleware(s.fixturesHandler.HandleLive, "fixtures_live")).Methods(http.MethodGet)
	f.HandleFunc("/{id}", MetricsMiddleware(s.fixturesHandler.HandleGet, "fixture")).Methods(http.MethodGet)
	f.HandleFunc("/{id}/watch", MetricsMiddleware(s.fixturesHandler.HandleWatch, "watch")).Methods(http.MethodPost)
	f.HandleFunc("/{id}/watch", MetricsMiddleware(s.fixturesHandler.HandleUnwatch, "watch")).Methods(http.MethodDelete)
	f.HandleFunc("/{id}/statistics", MetricsMiddleware(s.possessionHandler.HandleSaveStatistics, "statistics")).Methods(http.MethodPut)

	f.HandleFunc("/{id}/potm", MetricsMiddleware(s.votesHandler.HandleGetPOTM, "potm")).Methods(http.MethodGet)
	f.HandleFunc("/{id}/potm/official", MetricsMiddleware(s.votesHandler.HandleSetOfficial, "potm_official")).Methods(http.MethodPut)
	f.HandleFunc("/{id}/potm/votes", MetricsMiddleware(s.votesHandler.HandleVote, "potm_votes")).Methods(http.MethodPost)
	f.HandleFunc("/{id}/cheer", MetricsMiddleware(s.votesHandler.HandleGetCheer, "cheer")).Methods(http.MethodGet)
	f.HandleFunc("/{id}/cheer", MetricsMiddleware(s.votesHandler.HandleCheer, "cheer")).Methods(http.MethodPost)
	f.HandleFunc("/{id}/ratings", MetricsMiddleware(s.votesHandler.HandleGetRatings, "ratings")).Methods(http.MethodGet)
	f.HandleFunc("/{id}/ratings", MetricsMiddleware(s.votesHandler.HandleSaveRatings, "ratings")).Methods(http.MethodPut)

	f.HandleFunc("/{id}/possession", MetricsMiddleware(s.possessionHandler.HandleGet, "possession")).Methods(http.MethodGet)
	f.HandleFunc("/{id}/possession/start", MetricsMiddleware(s.possessionHandler.HandleStart, "possession_start")).Methods(http.MethodPost)
	f.HandleFunc("/{id}/possession/stop", MetricsMiddleware(s.possessionHandler.HandleStop, "possession_stop")).Methods(http.MethodPost)
}

// Handler returns the routes, plus any extra registrations, wrapped in
// CORS handling.
func (s *Server) Handler(extra ...func(*mux.Router)) http.Handler {
	router := mux.NewRouter()
	s.Register(router)
	for _, register := range extra {
		register(router)
	}
	return s.wrap(router)
}

// wrap applies the CORS policy to h.
func (s *Server) wrap(h http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(h)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps an error from the service layer to a status and code.
// Backend messages are passed through verbatim.
func writeFailure(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrEmptyFixtureID),
		errors.Is(err, model.ErrInvalidStatistics),
		errors.Is(err, model.ErrInvalidStatus),
		errors.Is(err, model.ErrInvalidScore),
		errors.Is(err, model.ErrInvalidEvent),
		errors.Is(err, model.ErrInvalidVote),
		errors.Is(err, model.ErrInvalidLineup),
		errors.Is(err, votes.ErrRatingOutOfRange):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, service.ErrNotWatched):
		writeError(w, http.StatusNotFound, "not_watched", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, service.ErrPossessionRejected):
		writeError(w, http.StatusConflict, "possession_rejected", WrapKind(op, ErrConflict, err))
	case errors.Is(err, livestore.ErrNotLoaded), errors.Is(err, livestore.ErrSuperseded):
		writeError(w, http.StatusConflict, "not_loaded", WrapKind(op, ErrConflict, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	case errors.Is(err, rest.ErrBackend):
		var be *rest.Error
		if errors.As(err, &be) {
			err = be
		}
		writeError(w, http.StatusBadGateway, "backend_error", WrapKind(op, ErrUnavailable, err))
	case errors.Is(err, rest.ErrTransport), errors.Is(err, rest.ErrDecode):
		writeError(w, http.StatusBadGateway, "backend_unreachable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

// decode reads a JSON request body into v.
func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// fixtureID returns the {id} path variable.
func fixtureID(r *http.Request) (string, bool) {
	id := strings.TrimSpace(mux.Vars(r)["id"])
	return id, id != ""
}
