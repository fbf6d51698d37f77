package socket

import "time"

// ControlEvent is a client-to-server room command.
type ControlEvent string

// Room commands understood by the backend.
const (
	ControlJoinFixture    ControlEvent = "join-fixture"
	ControlLeaveFixture   ControlEvent = "leave-fixture"
	ControlJoinAllActive  ControlEvent = "join-all-active"
	ControlLeaveAllActive ControlEvent = "leave-all-active"
)

// room identifies a membership. The all-active feed never collides with a
// fixture room, whatever the fixture id.
type room struct {
	fixtureID string
	allActive bool
}

var allActiveRoom = room{allActive: true}

func fixtureRoom(id string) room { return room{fixtureID: id} }

func (r room) String() string {
	if r.allActive {
		return "all-active"
	}
	return "fixture:" + r.fixtureID
}

// ControlFrame is the wire form of a room command.
type ControlFrame struct {
	Event     ControlEvent `json:"event"`
	FixtureID string       `json:"fixtureId,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

func joinFrame(r room, at time.Time) ControlFrame {
	if r.allActive {
		return ControlFrame{Event: ControlJoinAllActive, Timestamp: at}
	}
	return ControlFrame{Event: ControlJoinFixture, FixtureID: r.fixtureID, Timestamp: at}
}

func leaveFrame(r room, at time.Time) ControlFrame {
	if r.allActive {
		return ControlFrame{Event: ControlLeaveAllActive, Timestamp: at}
	}
	return ControlFrame{Event: ControlLeaveFixture, FixtureID: r.fixtureID, Timestamp: at}
}
