// Package votes folds raw fan vote and rating logs into ranked tallies.
// Every function here is total: empty input yields an empty, non-nil result.
package votes

import (
	"slices"

	"github.com/okian/matchday/internal/domain/model"
)

// Tally is the aggregated player-of-the-match vote.
type Tally struct {
	TotalVotes int                 `json:"totalVotes"`
	Players    []model.PlayerTally `json:"players"`
}

// Aggregate counts one vote per event, keyed by player id.
// The first occurrence of a player seeds its display attributes; later
// occurrences only add to the count. Players are sorted by count descending
// and ties keep first-seen order.
func Aggregate(events []model.POTMVote) Tally {
	players := make([]model.PlayerTally, 0, len(events))
	index := make(map[string]int, len(events))

	for _, ev := range events {
		i, ok := index[ev.Player.ID]
		if !ok {
			i = len(players)
			index[ev.Player.ID] = i
			players = append(players, model.PlayerTally{PlayerRef: ev.Player})
		}
		players[i].TotalVotes++
	}

	slices.SortStableFunc(players, func(a, b model.PlayerTally) int {
		return b.TotalVotes - a.TotalVotes
	})
	return Tally{TotalVotes: len(events), Players: players}
}

// Percent returns part as a percentage of total, or 0 when total is not positive.
func Percent(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// LatestPOTM keeps one vote per user, the most recent by timestamp.
// A resubmission with an equal timestamp replaces the earlier entry.
// The result keeps the position at which each user first voted.
func LatestPOTM(events []model.POTMVote) []model.POTMVote {
	return latest(events, func(v model.POTMVote) string { return v.UserID },
		func(old, next model.POTMVote) bool { return !next.Timestamp.Before(old.Timestamp) })
}

// LatestCheer keeps one cheer per user with the same rules as LatestPOTM.
func LatestCheer(events []model.CheerVote) []model.CheerVote {
	return latest(events, func(v model.CheerVote) string { return v.UserID },
		func(old, next model.CheerVote) bool { return !next.Timestamp.Before(old.Timestamp) })
}

func latest[T any](events []T, key func(T) string, replaces func(old, next T) bool) []T {
	out := make([]T, 0, len(events))
	index := make(map[string]int, len(events))
	for _, ev := range events {
		k := key(ev)
		if i, ok := index[k]; ok {
			if replaces(out[i], ev) {
				out[i] = ev
			}
			continue
		}
		index[k] = len(out)
		out = append(out, ev)
	}
	return out
}
