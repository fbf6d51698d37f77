package votes

import (
	"fmt"
	"math"
	"slices"

	"github.com/okian/matchday/internal/domain/model"
)

// Rating bounds, inclusive.
const (
	MinRating = 1.0
	MaxRating = 10.0
)

// ValidateRating rejects NaN and values outside MinRating..MaxRating.
func ValidateRating(r float64) error {
	if math.IsNaN(r) || r < MinRating || r > MaxRating {
		return fmt.Errorf("%w: %v not within %v..%v", ErrRatingOutOfRange, r, MinRating, MaxRating)
	}
	return nil
}

// PlayerAverage is the mean rating of one player.
type PlayerAverage struct {
	model.PlayerRef
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// AverageRatings groups ratings by player and ranks them by mean, descending.
// Ties keep first-seen order. Ratings that fail ValidateRating are skipped.
func AverageRatings(events []model.PlayerRating) []PlayerAverage {
	out := make([]PlayerAverage, 0, len(events))
	sums := make([]float64, 0, len(events))
	index := make(map[string]int, len(events))

	for _, ev := range events {
		if ValidateRating(ev.Rating) != nil {
			continue
		}
		i, ok := index[ev.Player.ID]
		if !ok {
			i = len(out)
			index[ev.Player.ID] = i
			out = append(out, PlayerAverage{PlayerRef: ev.Player})
			sums = append(sums, 0)
		}
		sums[i] += ev.Rating
		out[i].Count++
	}
	for i := range out {
		out[i].Average = sums[i] / float64(out[i].Count)
	}

	slices.SortStableFunc(out, func(a, b PlayerAverage) int {
		switch {
		case a.Average > b.Average:
			return -1
		case a.Average < b.Average:
			return 1
		}
		return 0
	})
	return out
}
