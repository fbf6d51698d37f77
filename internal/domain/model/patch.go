package model

import (
	"encoding/json"
	"time"
)

// PatchKind names a server-to-client socket event.
type PatchKind string

// Slice patches, each replacing one named part of a snapshot.
const (
	PatchStatus       PatchKind = "status-update"
	PatchScore        PatchKind = "score-update"
	PatchTimeline     PatchKind = "timeline-update"
	PatchGoalScorer   PatchKind = "goal-scorer-update"
	PatchSubstitution PatchKind = "substitution-update"
	PatchCommentary   PatchKind = "commentary-update"
	PatchStatistics   PatchKind = "statistics-update"
	PatchLineup       PatchKind = "lineup-update"
	PatchPOTM         PatchKind = "potm-update"
	PatchCheer        PatchKind = "cheer-update"
	PatchFull         PatchKind = "full-update"
)

// Lifecycle and error events.
const (
	EventFixtureCreated PatchKind = "fixture-created"
	EventFixtureDeleted PatchKind = "fixture-deleted"
	EventFixtureEnded   PatchKind = "fixture-ended"
	EventError          PatchKind = "error"
)

// PatchKinds lists every kind a fixture store binds a handler for.
func PatchKinds() []PatchKind {
	return []PatchKind{
		PatchStatus, PatchScore, PatchTimeline, PatchGoalScorer, PatchSubstitution,
		PatchCommentary, PatchStatistics, PatchLineup, PatchPOTM, PatchCheer, PatchFull,
	}
}

// Patch is one scoped socket event.
type Patch struct {
	Kind      PatchKind       `json:"event"`
	FixtureID string          `json:"fixtureId"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// PatchBody carries every slice a patch may replace. Each kind reads only
// its own fields; a full-update carries a whole snapshot instead.
type PatchBody struct {
	Status           *Status            `json:"status,omitempty"`
	CurrentMinute    *int               `json:"currentMinute,omitempty"`
	InjuryTime       *int               `json:"injuryTime,omitempty"`
	Result           *Result            `json:"result,omitempty"`
	GoalScorers      *[]GoalScorer      `json:"goalScorers,omitempty"`
	Timeline         *[]TimelineEvent   `json:"timeline,omitempty"`
	Substitutions    *[]Substitution    `json:"substitutions,omitempty"`
	Commentary       *[]CommentaryEntry `json:"commentary,omitempty"`
	Statistics       *Statistics        `json:"statistics,omitempty"`
	Lineups          *Lineups           `json:"lineups,omitempty"`
	PlayerOfTheMatch *PlayerOfTheMatch  `json:"playerOfTheMatch,omitempty"`
	CheerMeter       *CheerMeter        `json:"cheerMeter,omitempty"`
}

// BodyFromSnapshot extracts the slice a kind owns from a full snapshot.
// Used to apply a REST write result through the same path as a socket patch.
func BodyFromSnapshot(kind PatchKind, s *LiveFixtureSnapshot) PatchBody {
	var b PatchBody
	if s == nil {
		return b
	}
	switch kind {
	case PatchStatus:
		b.Status, b.CurrentMinute, b.InjuryTime = &s.Status, &s.CurrentMinute, &s.InjuryTime
	case PatchScore:
		b.Result, b.GoalScorers = &s.Result, &s.GoalScorers
	case PatchTimeline:
		b.Timeline = &s.Timeline
	case PatchGoalScorer:
		b.GoalScorers = &s.GoalScorers
	case PatchSubstitution:
		b.Substitutions = &s.Substitutions
	case PatchCommentary:
		b.Commentary = &s.Commentary
	case PatchStatistics:
		b.Statistics = &s.Statistics
	case PatchLineup:
		b.Lineups = &s.Lineups
	case PatchPOTM:
		b.PlayerOfTheMatch = &s.PlayerOfTheMatch
	case PatchCheer:
		b.CheerMeter = &s.CheerMeter
	}
	return b
}

// Summary is the list-view projection of a live fixture.
type Summary struct {
	ID            string    `json:"_id"`
	Competition   string    `json:"competition"`
	HomeTeam      TeamRef   `json:"homeTeam"`
	AwayTeam      TeamRef   `json:"awayTeam"`
	Status        Status    `json:"status"`
	Result        Result    `json:"result"`
	CurrentMinute int       `json:"currentMinute"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Summarize projects a snapshot onto its list-view summary.
func (s *LiveFixtureSnapshot) Summarize() Summary {
	return Summary{
		ID:            s.ID,
		Competition:   s.Competition,
		HomeTeam:      s.HomeTeam,
		AwayTeam:      s.AwayTeam,
		Status:        s.Status,
		Result:        s.Result.clone(),
		CurrentMinute: s.CurrentMinute,
	}
}
