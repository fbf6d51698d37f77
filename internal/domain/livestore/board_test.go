package livestore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/matchday/internal/domain/livestore"
	"github.com/okian/matchday/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBoard(t *testing.T) {
	Convey("Given three live fixtures and a page size of two", t, func() {
		ctx := context.Background()
		backend := newFakeBackend(fixture("fx-1"), fixture("fx-2"), fixture("fx-3"))
		channel := newFakeChannel()
		board := livestore.NewBoard(backend, channel, livestore.WithPageLimit(2))

		stop, err := board.Start(ctx)
		So(err, ShouldBeNil)

		Convey("Then the all-active room is joined and every page is seeded", func() {
			So(channel.Joins(), ShouldResemble, []string{"all-active"})
			So(board.Len(), ShouldEqual, 3)
			list := board.List()
			So(list[0].ID, ShouldEqual, "fx-1")
			So(list[2].ID, ShouldEqual, "fx-3")
		})

		Convey("When a fixture is created and another ends", func() {
			created := fixture("fx-4")
			created.Competition = "Cup"
			channel.Deliver(patch(model.EventFixtureCreated, "fx-4", created))
			channel.Deliver(patch(model.EventFixtureEnded, "fx-2", nil))
			channel.Deliver(patch(model.EventFixtureDeleted, "fx-404", nil))

			Convey("Then the board follows", func() {
				list := board.List()
				So(list, ShouldHaveLength, 3)
				So(list[0].ID, ShouldEqual, "fx-4")
				So(list[0].Competition, ShouldEqual, "Cup")
			})
		})

		Convey("When status and score patches arrive", func() {
			channel.Deliver(patch(model.PatchScore, "fx-1", map[string]any{"result": model.Result{HomeScore: 2, AwayScore: 1}}))
			channel.Deliver(patch(model.PatchStatus, "fx-1", map[string]any{"status": model.StatusHalfTime, "currentMinute": 45}))

			Convey("Then the summary is refreshed", func() {
				s := board.List()[0]
				So(s.Result.HomeScore, ShouldEqual, 2)
				So(s.Status, ShouldEqual, model.StatusHalfTime)
				So(s.CurrentMinute, ShouldEqual, 45)
				So(s.UpdatedAt.Equal(kickoff), ShouldBeTrue)
			})
		})

		Convey("When patches would move a summary backwards", func() {
			So(board.Apply(patch(model.PatchScore, "fx-1", map[string]any{"result": model.Result{}})), ShouldBeFalse)
			So(board.Apply(patch(model.PatchStatus, "fx-1", map[string]any{"status": model.StatusPreMatch})), ShouldBeFalse)
			So(board.List()[0].Result.HomeScore, ShouldEqual, 1)
		})

		Convey("When a full-update names an unknown fixture", func() {
			So(board.Apply(patch(model.PatchFull, "fx-9", fixture("fx-9"))), ShouldBeFalse)
			So(board.Len(), ShouldEqual, 3)
		})

		Convey("When the board is stopped", func() {
			stop()
			stop()

			Convey("Then handlers are gone and the room is left once", func() {
				So(channel.Count(), ShouldEqual, 0)
				So(channel.Leaves(), ShouldResemble, []string{"all-active"})
			})
		})
	})

	Convey("Given a backend that reports no total", t, func() {
		backend := newFakeBackend(fixture("fx-1"), fixture("fx-2"), fixture("fx-3"), fixture("fx-4"), fixture("fx-5"))
		backend.noTotal = true
		board := livestore.NewBoard(backend, newFakeChannel(), livestore.WithPageLimit(2))

		So(board.Seed(context.Background()), ShouldBeNil)

		Convey("Then paging continues until a short page", func() {
			So(board.Len(), ShouldEqual, 5)
			So(backend.pagesServed(), ShouldEqual, 3)
		})
	})

	Convey("Given a backend that cannot list fixtures", t, func() {
		backend := newFakeBackend()
		backend.fetchErr = errBackend
		board := livestore.NewBoard(backend, newFakeChannel())

		So(errors.Is(board.Seed(context.Background()), errBackend), ShouldBeTrue)

		Convey("Start still joins the room so events keep flowing", func() {
			stop, err := board.Start(context.Background())
			So(err, ShouldBeNil)
			So(stop, ShouldNotBeNil)
			So(board.Len(), ShouldEqual, 0)
		})
	})
}
