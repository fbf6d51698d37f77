package api

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestOpError(t *testing.T) {
	Convey("Given an error wrapped with a kind", t, func() {
		cause := errors.New("boom")
		err := WrapKind("api.test", ErrConflict, cause)

		Convey("Then both the kind and the cause match", func() {
			So(errors.Is(err, ErrConflict), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(errors.Is(err, ErrNotFound), ShouldBeFalse)
			So(err.Error(), ShouldEqual, "boom")
		})

		Convey("And a bare kind reports the kind", func() {
			So(NewKind("api.test", ErrBadRequest).Error(), ShouldEqual, "bad request")
		})

		Convey("And Wrap prefixes the operation", func() {
			So(Wrap("api.test", cause).Error(), ShouldEqual, "api.test: boom")
			So(errors.Is(Wrap("api.test", cause), cause), ShouldBeTrue)
			So(Wrap("api.test", nil), ShouldBeNil)
		})
	})
}
