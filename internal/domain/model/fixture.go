// Package model contains the live fixture domain types shared across layers.
package model

import (
	"slices"
	"time"
)

// Side identifies one of the two teams in a fixture.
type Side string

// Fixture sides.
const (
	Home Side = "home"
	Away Side = "away"
)

// Valid reports whether s names a team.
func (s Side) Valid() bool { return s == Home || s == Away }

// TeamRef is a lightweight team reference.
type TeamRef struct {
	ID        string `json:"_id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName,omitempty"`
	Logo      string `json:"logo,omitempty"`
}

// PlayerRef is a lightweight player reference with display attributes.
type PlayerRef struct {
	ID           string `json:"_id"`
	Name         string `json:"name"`
	Position     string `json:"position,omitempty"`
	JerseyNumber int    `json:"jerseyNumber,omitempty"`
	Team         string `json:"team,omitempty"`
}

// ScorePair is a home/away score.
type ScorePair struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// Result is the score block. Halftime and penalties stay nil until applicable.
type Result struct {
	HomeScore int        `json:"homeScore"`
	AwayScore int        `json:"awayScore"`
	HalfTime  *ScorePair `json:"halftime,omitempty"`
	Penalties *ScorePair `json:"penalties,omitempty"`
}

// Regresses reports whether next lowers any score already present in r.
func (r Result) Regresses(next Result) bool {
	if next.HomeScore < r.HomeScore || next.AwayScore < r.AwayScore {
		return true
	}
	if r.Penalties != nil && next.Penalties != nil &&
		(next.Penalties.Home < r.Penalties.Home || next.Penalties.Away < r.Penalties.Away) {
		return true
	}
	return false
}

// GoalScorer is one goal, ordered by minute in the scorer list.
type GoalScorer struct {
	Player  PlayerRef  `json:"player"`
	Assist  *PlayerRef `json:"assist,omitempty"`
	Team    Side       `json:"team"`
	Minute  int        `json:"minute"`
	OwnGoal bool       `json:"ownGoal,omitempty"`
	Penalty bool       `json:"penalty,omitempty"`
}

// TimelineKind classifies a discrete match event.
type TimelineKind string

// Timeline event kinds.
const (
	TimelineGoal         TimelineKind = "goal"
	TimelineYellowCard   TimelineKind = "yellow-card"
	TimelineRedCard      TimelineKind = "red-card"
	TimelineSubstitution TimelineKind = "substitution"
	TimelineInjury       TimelineKind = "injury"
	TimelineVAR          TimelineKind = "var"
	TimelinePenaltyMiss  TimelineKind = "penalty-miss"
	TimelineOther        TimelineKind = "other"
)

// TimelineEvent is one entry of the match timeline.
type TimelineEvent struct {
	ID          string       `json:"_id,omitempty"`
	Kind        TimelineKind `json:"type"`
	Minute      int          `json:"minute"`
	Team        Side         `json:"team"`
	Description string       `json:"description"`
	Player      *PlayerRef   `json:"player,omitempty"`
	Related     *PlayerRef   `json:"relatedPlayer,omitempty"`
}

// Importance tags a commentary line.
type Importance string

// Commentary importance levels.
const (
	ImportanceLow    Importance = "low"
	ImportanceNormal Importance = "normal"
	ImportanceHigh   Importance = "high"
)

// CommentaryEntry is one line of the commentary log.
type CommentaryEntry struct {
	Minute     int        `json:"minute"`
	Text       string     `json:"text"`
	Importance Importance `json:"importance"`
}

// TeamStatistics are the per-team match statistics.
type TeamStatistics struct {
	ShotsOnTarget  int     `json:"shotsOnTarget"`
	ShotsOffTarget int     `json:"shotsOffTarget"`
	Fouls          int     `json:"fouls"`
	YellowCards    int     `json:"yellowCards"`
	RedCards       int     `json:"redCards"`
	Corners        int     `json:"corners"`
	Offsides       int     `json:"offsides"`
	Possession     float64 `json:"possession"`
}

// Statistics pairs both teams' statistics.
type Statistics struct {
	Home TeamStatistics `json:"home"`
	Away TeamStatistics `json:"away"`
}

// LineupPlayer is one player in a lineup.
type LineupPlayer struct {
	Player       PlayerRef `json:"player"`
	Position     string    `json:"position,omitempty"`
	JerseyNumber int       `json:"jerseyNumber,omitempty"`
	Captain      bool      `json:"captain,omitempty"`
}

// Lineup is one team's sheet.
type Lineup struct {
	Formation   string         `json:"formation"`
	Coach       string         `json:"coach"`
	StartingXI  []LineupPlayer `json:"startingXI"`
	Substitutes []LineupPlayer `json:"substitutes"`
}

// Lineups pairs both teams' sheets.
type Lineups struct {
	Home Lineup `json:"home"`
	Away Lineup `json:"away"`
}

// Substitution records one player change.
type Substitution struct {
	Team      Side      `json:"team"`
	Minute    int       `json:"minute"`
	PlayerOut PlayerRef `json:"playerOut"`
	PlayerIn  PlayerRef `json:"playerIn"`
	Reason    string    `json:"reason,omitempty"`
}

// StreamLink is a broadcast link.
type StreamLink struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// CheerCount is a home-vs-away tally.
type CheerCount struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// CheerVote is one user's cheer.
type CheerVote struct {
	UserID    string    `json:"userId"`
	Team      Side      `json:"team"`
	Timestamp time.Time `json:"timestamp"`
}

// CheerMeter aggregates fan sentiment.
type CheerMeter struct {
	Official   CheerCount  `json:"official"`
	Unofficial CheerCount  `json:"unofficial"`
	Votes      []CheerVote `json:"userVotes"`
}

// POTMVote is one user's player-of-the-match vote.
type POTMVote struct {
	UserID    string    `json:"userId"`
	Player    PlayerRef `json:"playerId"`
	Timestamp time.Time `json:"timestamp"`
}

// PlayerTally is an aggregated vote count for one player.
type PlayerTally struct {
	PlayerRef
	TotalVotes int `json:"totalVotes"`
}

// PlayerOfTheMatch holds the official pick and the fan vote.
type PlayerOfTheMatch struct {
	Official *PlayerRef    `json:"official,omitempty"`
	FanVotes []PlayerTally `json:"fanVotes"`
	Votes    []POTMVote    `json:"userVotes"`
}

// PlayerRating is one rating of a player, official or from a fan.
type PlayerRating struct {
	UserID    string    `json:"userId,omitempty"`
	Player    PlayerRef `json:"playerId"`
	Rating    float64   `json:"rating"`
	Official  bool      `json:"official,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// LiveFixtureSnapshot is the client-side copy of one live fixture.
type LiveFixtureSnapshot struct {
	ID               string            `json:"_id"`
	Competition      string            `json:"competition"`
	HomeTeam         TeamRef           `json:"homeTeam"`
	AwayTeam         TeamRef           `json:"awayTeam"`
	ScheduledDate    time.Time         `json:"date"`
	KickoffTime      string            `json:"kickoffTime"`
	CurrentMinute    int               `json:"currentMinute"`
	InjuryTime       int               `json:"injuryTime"`
	Status           Status            `json:"status"`
	Result           Result            `json:"result"`
	GoalScorers      []GoalScorer      `json:"goalScorers"`
	Timeline         []TimelineEvent   `json:"timeline"`
	Commentary       []CommentaryEntry `json:"commentary"`
	Statistics       Statistics        `json:"statistics"`
	Lineups          Lineups           `json:"lineups"`
	Substitutions    []Substitution    `json:"substitutions"`
	StreamLinks      []StreamLink      `json:"streamLinks"`
	CheerMeter       CheerMeter        `json:"cheerMeter"`
	PlayerOfTheMatch PlayerOfTheMatch  `json:"playerOfTheMatch"`
	Ratings          []PlayerRating    `json:"ratings,omitempty"`
}

// Clone returns a deep copy so readers never share slices with the owner.
func (s *LiveFixtureSnapshot) Clone() *LiveFixtureSnapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.Result = s.Result.clone()
	c.GoalScorers = cloneGoalScorers(s.GoalScorers)
	c.Timeline = cloneTimeline(s.Timeline)
	c.Commentary = slices.Clone(s.Commentary)
	c.Lineups = Lineups{Home: s.Lineups.Home.clone(), Away: s.Lineups.Away.clone()}
	c.Substitutions = slices.Clone(s.Substitutions)
	c.StreamLinks = slices.Clone(s.StreamLinks)
	c.CheerMeter.Votes = slices.Clone(s.CheerMeter.Votes)
	c.PlayerOfTheMatch = s.PlayerOfTheMatch.clone()
	c.Ratings = slices.Clone(s.Ratings)
	return &c
}

func (r Result) clone() Result {
	if r.HalfTime != nil {
		ht := *r.HalfTime
		r.HalfTime = &ht
	}
	if r.Penalties != nil {
		p := *r.Penalties
		r.Penalties = &p
	}
	return r
}

func (l Lineup) clone() Lineup {
	l.StartingXI = slices.Clone(l.StartingXI)
	l.Substitutes = slices.Clone(l.Substitutes)
	return l
}

func (p PlayerOfTheMatch) clone() PlayerOfTheMatch {
	if p.Official != nil {
		o := *p.Official
		p.Official = &o
	}
	p.FanVotes = slices.Clone(p.FanVotes)
	p.Votes = slices.Clone(p.Votes)
	return p
}

func cloneGoalScorers(in []GoalScorer) []GoalScorer {
	out := slices.Clone(in)
	for i := range out {
		if out[i].Assist != nil {
			a := *out[i].Assist
			out[i].Assist = &a
		}
	}
	return out
}

func cloneTimeline(in []TimelineEvent) []TimelineEvent {
	out := slices.Clone(in)
	for i := range out {
		if out[i].Player != nil {
			p := *out[i].Player
			out[i].Player = &p
		}
		if out[i].Related != nil {
			p := *out[i].Related
			out[i].Related = &p
		}
	}
	return out
}
