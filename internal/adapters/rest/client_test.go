package rest_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/okian/matchday/internal/adapters/rest"
	"github.com/okian/matchday/internal/domain/model"
	"github.com/okian/matchday/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.InitWithWriter(io.Discard); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type recorded struct {
	method, path, auth, requestID string
	body                          map[string]any
}

// backend is a fake REST API built on a mux router.
type backend struct {
	mu    sync.Mutex
	calls []recorded
	srv   *httptest.Server
}

func writeEnvelope(w http.ResponseWriter, status int, env map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func newBackend() *backend {
	b := &backend{}
	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			rec := recorded{
				method:    req.Method,
				path:      req.URL.RequestURI(),
				auth:      req.Header.Get("Authorization"),
				requestID: req.Header.Get("X-Request-ID"),
			}
			if req.Body != nil {
				_ = json.NewDecoder(req.Body).Decode(&rec.body)
			}
			b.mu.Lock()
			b.calls = append(b.calls, rec)
			b.mu.Unlock()
			next.ServeHTTP(w, req)
		})
	})

	r.HandleFunc("/live-fixtures/{id}", func(w http.ResponseWriter, req *http.Request) {
		id := mux.Vars(req)["id"]
		switch id {
		case "fx-1":
			writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "data": model.LiveFixtureSnapshot{
				ID: "fx-1", Status: model.StatusFirstHalf, Result: model.Result{HomeScore: 2},
			}})
		case "html":
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("<html>bad gateway</html>"))
		case "garbled":
			_, _ = w.Write([]byte(`{"success": true, "data": {"_id": 42}}`))
		case "slow":
			time.Sleep(200 * time.Millisecond)
			writeEnvelope(w, http.StatusOK, map[string]any{"success": true})
		default:
			writeEnvelope(w, http.StatusNotFound, map[string]any{"success": false, "message": "fixture not live"})
		}
	}).Methods(http.MethodGet)

	r.HandleFunc("/live-fixtures", func(w http.ResponseWriter, req *http.Request) {
		env := map[string]any{
			"success": true,
			"total":   7,
			"data":    []model.LiveFixtureSnapshot{{ID: "fx-1"}, {ID: "fx-2"}},
		}
		if req.URL.Query().Get("page") == "2" {
			delete(env, "total")
		}
		writeEnvelope(w, http.StatusOK, env)
	}).Methods(http.MethodGet)

	r.HandleFunc("/live-fixtures/{id}/statistics", func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "data": model.LiveFixtureSnapshot{
			ID: "fx-1", Statistics: model.Statistics{Home: model.TeamStatistics{Corners: 3}},
		}})
	}).Methods(http.MethodPut)

	r.HandleFunc("/live-fixtures/{id}/cheer", func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "data": nil})
	}).Methods(http.MethodPost)

	r.HandleFunc("/live-fixtures/{id}/potm/official", func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, http.StatusForbidden, map[string]any{"success": false, "message": "unauthorized"})
	}).Methods(http.MethodPut)

	r.HandleFunc("/live-fixtures/{id}/score", func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string]any{"success": false, "message": "fixture not live"})
	}).Methods(http.MethodPut)

	b.srv = httptest.NewServer(r)
	return b
}

func (b *backend) last() recorded {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[len(b.calls)-1]
}

func TestClient(t *testing.T) {
	Convey("Given a REST client with a token", t, func() {
		b := newBackend()
		defer b.srv.Close()
		c := rest.New(b.srv.URL+"/", rest.WithToken("secret"), rest.WithTimeout(100*time.Millisecond))
		ctx := context.Background()

		Convey("When fetching a live fixture", func() {
			snap, err := c.GetByID(ctx, "fx-1")

			Convey("Then the envelope data is decoded", func() {
				So(err, ShouldBeNil)
				So(snap.ID, ShouldEqual, "fx-1")
				So(snap.Result.HomeScore, ShouldEqual, 2)
			})

			Convey("And the request carries auth and a request id", func() {
				call := b.last()
				So(call.path, ShouldEqual, "/live-fixtures/fx-1")
				So(call.auth, ShouldEqual, "Bearer secret")
				_, perr := uuid.Parse(call.requestID)
				So(perr, ShouldBeNil)
			})
		})

		Convey("When the backend says success=false", func() {
			_, err := c.GetByID(ctx, "fx-404")

			Convey("Then the message surfaces verbatim", func() {
				So(errors.Is(err, rest.ErrBackend), ShouldBeTrue)
				So(err.Error(), ShouldEqual, "fixture not live")
				var restErr *rest.Error
				So(errors.As(err, &restErr), ShouldBeTrue)
				So(restErr.Status, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the backend rejects with a 200 status", func() {
			_, err := c.UpdateScore(ctx, "fx-1", model.Result{HomeScore: 1})
			So(errors.Is(err, rest.ErrBackend), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "fixture not live")
		})

		Convey("When the backend answers with a non-JSON error page", func() {
			_, err := c.GetByID(ctx, "html")
			So(errors.Is(err, rest.ErrBackend), ShouldBeTrue)
			So(err.Error(), ShouldEqual, http.StatusText(http.StatusBadGateway))
		})

		Convey("When the data does not match the fixture shape", func() {
			_, err := c.GetByID(ctx, "garbled")
			So(errors.Is(err, rest.ErrDecode), ShouldBeTrue)
		})

		Convey("When the backend is slower than the timeout", func() {
			_, err := c.GetByID(ctx, "slow")
			So(errors.Is(err, rest.ErrTransport), ShouldBeTrue)
		})

		Convey("When listing live fixtures", func() {
			list, total, err := c.GetAll(ctx, 0, 2)

			So(err, ShouldBeNil)
			So(list, ShouldHaveLength, 2)
			So(total, ShouldEqual, 7)
			So(b.last().path, ShouldEqual, "/live-fixtures?limit=2&page=1")
		})

		Convey("When the backend omits the total", func() {
			list, total, err := c.GetAll(ctx, 2, 2)

			So(err, ShouldBeNil)
			So(list, ShouldHaveLength, 2)
			So(total, ShouldEqual, rest.UnknownTotal)
		})

		Convey("When saving statistics", func() {
			stats := model.Statistics{Home: model.TeamStatistics{Corners: 3}}
			snap, err := c.SaveStatistics(ctx, "fx-1", stats)

			So(err, ShouldBeNil)
			So(snap.Statistics.Home.Corners, ShouldEqual, 3)
			call := b.last()
			So(call.method, ShouldEqual, http.MethodPut)
			So(call.body["home"], ShouldNotBeNil)
		})

		Convey("When a command returns no resource", func() {
			snap, err := c.Cheer(ctx, "fx-1", model.CheerVote{UserID: "u1", Team: model.Away})

			So(err, ShouldBeNil)
			So(snap, ShouldBeNil)
			So(b.last().body["team"], ShouldEqual, "away")
		})

		Convey("When the backend forbids a write", func() {
			_, err := c.SetOfficialPOTM(ctx, "fx-1", "p9")
			So(err.Error(), ShouldEqual, "unauthorized")
			So(b.last().body["playerId"], ShouldEqual, "p9")
		})
	})

	Convey("Given an unreachable backend", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		c := rest.New(url)

		_, err := c.GetByID(context.Background(), "fx-1")
		So(errors.Is(err, rest.ErrTransport), ShouldBeTrue)
	})
}
