package dedupe_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/matchday/internal/domain/dedupe"
	"github.com/okian/matchday/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestWindow(t *testing.T) {
	Convey("Given a window of three keys", t, func() {
		ctx := context.Background()
		d := dedupe.NewWindow(dedupe.WithMaxSize(3))

		Convey("When a key is recorded twice", func() {
			first := d.SeenAndRecord(ctx, "a")
			second := d.SeenAndRecord(ctx, "a")

			Convey("Then only the second call reports it as seen", func() {
				So(first, ShouldBeFalse)
				So(second, ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When more keys arrive than fit", func() {
			for _, k := range []string{"a", "b", "c", "d"} {
				So(d.SeenAndRecord(ctx, k), ShouldBeFalse)
			}

			Convey("Then the oldest key is forgotten first", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "d"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "b"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
			})
		})

		Convey("When a key is unrecorded", func() {
			d.SeenAndRecord(ctx, "a")
			d.Unrecord(ctx, "a")
			d.Unrecord(ctx, "missing")

			Convey("Then it is processed again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
			})
		})
	})

	Convey("Given concurrent callers", t, func() {
		ctx := context.Background()
		d := dedupe.NewWindow(dedupe.WithMaxSize(1000))

		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			fresh int
		)
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					if !d.SeenAndRecord(ctx, fmt.Sprintf("k-%d", i)) {
						mu.Lock()
						fresh++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then every key is fresh exactly once", func() {
			So(fresh, ShouldEqual, 100)
			So(d.Size(), ShouldEqual, 100)
		})
	})
}

func TestPatchKey(t *testing.T) {
	Convey("Given a timestamped frame", t, func() {
		at := time.Date(2026, 5, 1, 15, 4, 5, 0, time.UTC)
		data, _ := json.Marshal(map[string]int{"currentMinute": 12})
		p := model.Patch{Kind: model.PatchScore, FixtureID: "fx-1", Timestamp: at, Data: data}

		key, ok := dedupe.PatchKey(p)
		So(ok, ShouldBeTrue)

		Convey("Then a replay has the same key", func() {
			replay, _ := dedupe.PatchKey(p)
			So(replay, ShouldEqual, key)
		})

		Convey("And a different payload changes the key", func() {
			p.Data = json.RawMessage(`{"currentMinute":13}`)
			other, _ := dedupe.PatchKey(p)
			So(other, ShouldNotEqual, key)
		})

		Convey("And the same instant in another zone keeps the key", func() {
			p.Timestamp = at.In(time.FixedZone("x", 3600))
			other, _ := dedupe.PatchKey(p)
			So(other, ShouldEqual, key)
		})
	})

	Convey("Given a frame without a timestamp", t, func() {
		_, ok := dedupe.PatchKey(model.Patch{Kind: model.PatchScore, FixtureID: "fx-1"})
		So(ok, ShouldBeFalse)
	})
}
