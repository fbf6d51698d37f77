package model

// Status is the lifecycle phase of a fixture.
type Status string

// Fixture statuses. Postponed and abandoned are absorbing failure states.
const (
	StatusPreMatch   Status = "pre-match"
	StatusFirstHalf  Status = "first-half"
	StatusHalfTime   Status = "half-time"
	StatusSecondHalf Status = "second-half"
	StatusExtraTime  Status = "extra-time"
	StatusPenalties  Status = "penalties"
	StatusFinished   Status = "finished"
	StatusPostponed  Status = "postponed"
	StatusAbandoned  Status = "abandoned"
)

// phaseRank orders the forward path; failure states have no rank.
var phaseRank = map[Status]int{ //nolint:gochecknoglobals // immutable lookup
	StatusPreMatch:   0,
	StatusFirstHalf:  1,
	StatusHalfTime:   2,
	StatusSecondHalf: 3,
	StatusExtraTime:  4,
	StatusPenalties:  5,
	StatusFinished:   6,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	if s == StatusPostponed || s == StatusAbandoned {
		return true
	}
	_, ok := phaseRank[s]
	return ok
}

// IsTerminal reports whether no further transition may leave s.
func (s Status) IsTerminal() bool {
	return s == StatusFinished || s == StatusPostponed || s == StatusAbandoned
}

// IsActive reports whether the match clock runs in s.
func (s Status) IsActive() bool {
	switch s {
	case StatusFirstHalf, StatusSecondHalf, StatusExtraTime, StatusPenalties:
		return true
	}
	return false
}

// HasStarted reports whether kickoff has happened.
func (s Status) HasStarted() bool {
	rank, ok := phaseRank[s]
	return ok && rank >= phaseRank[StatusFirstHalf]
}

// CanTransition reports whether a fixture may move from one status to another.
// Re-applying the current status is allowed so patches stay idempotent.
// Phases may be skipped (second-half -> finished) but never revisited.
func CanTransition(from, to Status) bool {
	if !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	if from == "" {
		return true
	}
	if from.IsTerminal() {
		return false
	}
	if to == StatusPostponed || to == StatusAbandoned {
		return true
	}
	return phaseRank[to] > phaseRank[from]
}
