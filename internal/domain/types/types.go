// Package types contains the view shapes shared by the service and the HTTP API.
package types

import (
	"github.com/okian/matchday/internal/domain/model"
	"github.com/okian/matchday/internal/domain/votes"
)

// PlayerShare is one player's fan vote count and share of all votes.
type PlayerShare struct {
	model.PlayerTally
	Percentage float64 `json:"percentage"`
}

// POTMView is the player-of-the-match panel.
type POTMView struct {
	Official   *model.PlayerRef `json:"official,omitempty"`
	TotalVotes int              `json:"totalVotes"`
	Players    []PlayerShare    `json:"players"`
}

// CheerView is the cheer meter panel.
type CheerView struct {
	Official       model.CheerCount `json:"official"`
	Fans           model.CheerCount `json:"fans"`
	HomePercentage float64          `json:"homePercentage"`
	AwayPercentage float64          `json:"awayPercentage"`
}

// RatingsView lists average player ratings, best first.
type RatingsView struct {
	Players []votes.PlayerAverage `json:"players"`
}

// Page is one page of fixture summaries.
type Page struct {
	Items []model.Summary `json:"items"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
	Total int             `json:"total"`
}

// POTMFromSnapshot builds the panel from the raw vote log, falling back to
// the backend's aggregated counts when the log is absent.
func POTMFromSnapshot(snap *model.LiveFixtureSnapshot) POTMView {
	potm := snap.PlayerOfTheMatch
	tally := votes.Aggregate(potm.Votes)
	if len(potm.Votes) == 0 && len(potm.FanVotes) > 0 {
		tally.Players = potm.FanVotes
		for _, p := range potm.FanVotes {
			tally.TotalVotes += p.TotalVotes
		}
	}

	view := POTMView{
		Official:   potm.Official,
		TotalVotes: tally.TotalVotes,
		Players:    make([]PlayerShare, 0, len(tally.Players)),
	}
	for _, p := range tally.Players {
		view.Players = append(view.Players, PlayerShare{
			PlayerTally: p,
			Percentage:  votes.Percent(p.TotalVotes, tally.TotalVotes),
		})
	}
	return view
}

// CheerFromSnapshot builds the cheer panel. Fan counts come from the vote
// log when there is one.
func CheerFromSnapshot(snap *model.LiveFixtureSnapshot) CheerView {
	fans := snap.CheerMeter.Unofficial
	if len(snap.CheerMeter.Votes) > 0 {
		fans = votes.CheerTally(snap.CheerMeter.Votes)
	}
	home, away := votes.CheerSplit(fans)
	return CheerView{
		Official:       snap.CheerMeter.Official,
		Fans:           fans,
		HomePercentage: home,
		AwayPercentage: away,
	}
}

// RatingsFromSnapshot averages every rating on the snapshot.
func RatingsFromSnapshot(snap *model.LiveFixtureSnapshot) RatingsView {
	return RatingsView{Players: votes.AverageRatings(snap.Ratings)}
}
