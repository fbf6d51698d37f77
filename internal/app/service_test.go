package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	service "github.com/okian/matchday/internal/app"
	"github.com/okian/matchday/internal/domain/livestore"
	"github.com/okian/matchday/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func startService(backend *fakeBackend, transport *fakeTransport) *service.Service {
	svc := service.New(
		service.WithBackend(backend),
		service.WithTransport(transport),
		service.WithQueueSize(16),
		service.WithShutdownTimeout(time.Second),
	)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service that has not been started", t, func() {
		svc := service.New(service.WithBackend(newFakeBackend("fx-1")), service.WithTransport(&fakeTransport{}))

		Convey("Then watching is refused", func() {
			_, err := svc.Watch(context.Background(), "fx-1")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})

		Convey("And frames cannot be enqueued", func() {
			So(svc.Enqueue(context.Background(), model.Patch{Kind: model.PatchStatus}), ShouldBeFalse)
		})
	})

	Convey("Given a started service", t, func() {
		backend := newFakeBackend("fx-1", "fx-2")
		transport := &fakeTransport{}
		svc := startService(backend, transport)
		defer svc.Stop()

		Convey("Then the live board is joined and seeded", func() {
			So(transport.Joins(), ShouldResemble, []string{"all-active"})
			So(svc.Live(), ShouldHaveLength, 2)

			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["liveFixtures"], ShouldEqual, 2)
			So(stats["watchedFixtures"], ShouldEqual, 0)
		})

		Convey("When the service is stopped twice", func() {
			svc.Stop()
			svc.Stop()

			Convey("Then the board room is left", func() {
				So(transport.Leaves(), ShouldResemble, []string{"all-active"})
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_Watch(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		backend := newFakeBackend("fx-1")
		transport := &fakeTransport{}
		svc := startService(backend, transport)
		defer svc.Stop()

		Convey("When two viewers watch the same fixture", func() {
			a, err := svc.Watch(ctx, "fx-1")
			So(err, ShouldBeNil)
			b, err := svc.Watch(ctx, "fx-1")
			So(err, ShouldBeNil)

			Convey("Then they share one subscription", func() {
				So(a.Result.HomeScore, ShouldEqual, 1)
				So(b.ID, ShouldEqual, "fx-1")
				So(svc.Viewers("fx-1"), ShouldEqual, 2)
				So(transport.Joins(), ShouldResemble, []string{"all-active", "fx-1"})
			})

			Convey("And only the last viewer leaves the room", func() {
				So(svc.Unwatch(ctx, "fx-1"), ShouldBeNil)
				So(transport.Leaves(), ShouldBeEmpty)
				So(svc.Unwatch(ctx, "fx-1"), ShouldBeNil)
				So(transport.Leaves(), ShouldResemble, []string{"fx-1"})

				_, err := svc.Fixture("fx-1")
				So(errors.Is(err, service.ErrNotWatched), ShouldBeTrue)
				So(errors.Is(svc.Unwatch(ctx, "fx-1"), service.ErrNotWatched), ShouldBeTrue)
			})
		})

		Convey("When a patch arrives on the socket for a watched fixture", func() {
			_, err := svc.Watch(ctx, "fx-1")
			So(err, ShouldBeNil)

			data, _ := json.Marshal(map[string]any{"result": model.Result{HomeScore: 2, AwayScore: 1}})
			So(svc.Enqueue(ctx, model.Patch{Kind: model.PatchScore, FixtureID: "fx-1", Data: data}), ShouldBeTrue)

			Convey("Then the snapshot and the board both follow", func() {
				So(eventually(func() bool {
					snap, err := svc.Fixture("fx-1")
					return err == nil && snap.Result.HomeScore == 2
				}), ShouldBeTrue)
				So(eventually(func() bool { return svc.Live()[0].Result.AwayScore == 1 }), ShouldBeTrue)
			})
		})

		Convey("When the fixture cannot be loaded", func() {
			_, err := svc.Watch(ctx, "fx-404")

			Convey("Then the error surfaces and the viewer is not counted", func() {
				So(errors.Is(err, errUnavailable), ShouldBeTrue)
				So(svc.Viewers("fx-404"), ShouldEqual, 0)
				So(transport.Leaves(), ShouldResemble, []string{"fx-404"})
			})
		})

		Convey("When the fixture id is blank", func() {
			_, err := svc.Watch(ctx, " ")
			So(errors.Is(err, service.ErrEmptyFixtureID), ShouldBeTrue)
		})

		Convey("When listing fixtures from the backend", func() {
			list, total, err := svc.Fixtures(ctx, 1, 10)
			So(err, ShouldBeNil)
			So(total, ShouldEqual, 1)
			So(list[0].Competition, ShouldEqual, "League")
		})

		Convey("When the backend does not report a total", func() {
			backend.mu.Lock()
			backend.noTotal = true
			backend.mu.Unlock()

			list, total, err := svc.Fixtures(ctx, 1, 10)
			So(err, ShouldBeNil)
			So(list, ShouldHaveLength, 1)
			So(total, ShouldEqual, 1)
		})
	})
}

func TestService_Views(t *testing.T) {
	Convey("Given a watched fixture", t, func() {
		ctx := context.Background()
		backend := newFakeBackend("fx-1")
		svc := startService(backend, &fakeTransport{})
		defer svc.Stop()

		_, err := svc.Watch(ctx, "fx-1")
		So(err, ShouldBeNil)

		Convey("When fans vote for the player of the match", func() {
			_, err := svc.VotePOTM(ctx, "fx-1", model.POTMVote{UserID: "u1", Player: model.PlayerRef{ID: "p7", Name: "Seven"}})
			So(err, ShouldBeNil)
			_, err = svc.VotePOTM(ctx, "fx-1", model.POTMVote{UserID: "u2", Player: model.PlayerRef{ID: "p9"}})
			So(err, ShouldBeNil)
			view, err := svc.VotePOTM(ctx, "fx-1", model.POTMVote{UserID: "u3", Player: model.PlayerRef{ID: "p7"}})
			So(err, ShouldBeNil)

			Convey("Then the panel ranks players with their share", func() {
				So(view.TotalVotes, ShouldEqual, 3)
				So(view.Players[0].ID, ShouldEqual, "p7")
				So(view.Players[0].Name, ShouldEqual, "Seven")
				So(view.Players[0].Percentage, ShouldAlmostEqual, 200.0/3, 1e-9)
			})
		})

		Convey("When a vote is invalid", func() {
			_, err := svc.VotePOTM(ctx, "fx-1", model.POTMVote{UserID: "u1"})
			So(errors.Is(err, model.ErrInvalidVote), ShouldBeTrue)
		})

		Convey("When the official pick is set", func() {
			view, err := svc.SetOfficialPOTM(ctx, "fx-1", "p4")
			So(err, ShouldBeNil)
			So(view.Official.ID, ShouldEqual, "p4")
			So(view.Players, ShouldBeEmpty)
		})

		Convey("When fans cheer", func() {
			_, err := svc.Cheer(ctx, "fx-1", model.CheerVote{UserID: "u1", Team: model.Home})
			So(err, ShouldBeNil)
			view, err := svc.Cheer(ctx, "fx-1", model.CheerVote{UserID: "u2", Team: model.Away})
			So(err, ShouldBeNil)
			_, err = svc.Cheer(ctx, "fx-1", model.CheerVote{UserID: "u3", Team: model.Home})
			So(err, ShouldBeNil)
			view, err = svc.Cheers("fx-1")
			So(err, ShouldBeNil)

			So(view.Fans, ShouldResemble, model.CheerCount{Home: 2, Away: 1})
			So(view.HomePercentage+view.AwayPercentage, ShouldAlmostEqual, 100, 1e-9)
		})

		Convey("When nobody has cheered", func() {
			view, err := svc.Cheers("fx-1")
			So(err, ShouldBeNil)
			So(view.HomePercentage, ShouldEqual, 50)
		})

		Convey("When ratings are saved", func() {
			view, err := svc.SaveRatings(ctx, "fx-1", []model.PlayerRating{
				{UserID: "u1", Player: model.PlayerRef{ID: "p1"}, Rating: 6},
				{UserID: "u1", Player: model.PlayerRef{ID: "p2"}, Rating: 9},
				{UserID: "u2", Player: model.PlayerRef{ID: "p1"}, Rating: 8},
			})
			So(err, ShouldBeNil)
			So(view.Players[0].ID, ShouldEqual, "p2")
			So(view.Players[1].Average, ShouldEqual, 7)
		})

		Convey("When a rating is out of range nothing is sent", func() {
			_, err := svc.SaveRatings(ctx, "fx-1", []model.PlayerRating{{Player: model.PlayerRef{ID: "p1"}, Rating: 11}})
			So(err, ShouldNotBeNil)
			view, _ := svc.Ratings("fx-1")
			So(view.Players, ShouldBeEmpty)
		})

		Convey("When the possession clock runs", func() {
			totals, err := svc.StartPossession("fx-1", model.Home)
			So(err, ShouldBeNil)
			So(totals.Active, ShouldEqual, model.Home)

			_, err = svc.StartPossession("fx-1", model.Away)
			So(errors.Is(err, service.ErrPossessionRejected), ShouldBeTrue)

			totals, err = svc.StopPossession("fx-1")
			So(err, ShouldBeNil)
			So(totals.Active, ShouldEqual, model.Side(""))

			Convey("Then statistics can take their split from the clock", func() {
				_, err := svc.SaveStatistics(ctx, "fx-1", model.Statistics{Home: model.TeamStatistics{Corners: 2}}, true)
				So(err, ShouldBeNil)

				saved := backend.savedStats()
				So(saved, ShouldHaveLength, 1)
				So(saved[0].Home.Corners, ShouldEqual, 2)
				So(saved[0].Home.Possession+saved[0].Away.Possession, ShouldAlmostEqual, 100, 1e-9)

				snap, _ := svc.Fixture("fx-1")
				So(snap.Statistics.Home.Corners, ShouldEqual, 2)
			})
		})

		Convey("When an unknown side takes the ball", func() {
			_, err := svc.StartPossession("fx-1", model.Side("middle"))
			So(errors.Is(err, service.ErrPossessionRejected), ShouldBeTrue)
		})

		Convey("When a fixture is not watched", func() {
			_, err := svc.Possession("fx-2")
			So(errors.Is(err, service.ErrNotWatched), ShouldBeTrue)
			_, err = svc.POTM("fx-2")
			So(errors.Is(err, service.ErrNotWatched), ShouldBeTrue)
			So(errors.Is(err, livestore.ErrNotLoaded), ShouldBeFalse)
		})
	})
}

// returnsWithin reports whether fn finishes before d elapses.
func returnsWithin(d time.Duration, fn func()) bool {
	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}

func TestService_SlowLoads(t *testing.T) {
	Convey("Given a watch whose snapshot load is still in flight", t, func() {
		ctx := context.Background()
		backend := newFakeBackend("fx-1", "fx-2")
		backend.gate = make(chan struct{})
		backend.entered = make(chan string, 1)
		var once sync.Once
		release := func() { once.Do(func() { close(backend.gate) }) }

		transport := &fakeTransport{}
		svc := startService(backend, transport)
		defer svc.Stop()
		defer release()

		watched := make(chan error, 1)
		go func() {
			_, err := svc.Watch(ctx, "fx-1")
			watched <- err
		}()
		So(<-backend.entered, ShouldEqual, "fx-1")

		Convey("When the last viewer leaves before the load finishes", func() {
			unwatched := make(chan error, 1)
			go func() { unwatched <- svc.Unwatch(ctx, "fx-1") }()
			So(eventually(func() bool { return svc.Viewers("fx-1") == 0 }), ShouldBeTrue)

			Convey("Then reads and the live feed are not held up", func() {
				So(returnsWithin(200*time.Millisecond, func() {
					svc.Live()
					svc.GetStats()
					svc.Enqueue(ctx, model.Patch{Kind: model.PatchStatus, FixtureID: "fx-2"})
				}), ShouldBeTrue)

				Convey("And the room is left once the load settles", func() {
					release()
					So(<-unwatched, ShouldBeNil)
					<-watched
					So(eventually(func() bool { return slices.Contains(transport.Leaves(), "fx-1") }), ShouldBeTrue)
				})
			})
		})

		Convey("When the service stops before the load finishes", func() {
			stopped := make(chan struct{})
			go func() {
				svc.Stop()
				close(stopped)
			}()
			So(eventually(func() bool { return svc.GetStats()["started"] == false }), ShouldBeTrue)

			Convey("Then reads still answer while the session drains", func() {
				So(returnsWithin(200*time.Millisecond, func() {
					svc.Live()
					svc.Viewers("fx-1")
				}), ShouldBeTrue)

				release()
				<-stopped
				<-watched
				So(transport.Leaves(), ShouldContain, "fx-1")
			})
		})
	})
}
