package votes

import "github.com/okian/matchday/internal/domain/model"

// CheerTally counts cheers per side. Votes for an unknown side are skipped.
func CheerTally(votes []model.CheerVote) model.CheerCount {
	var c model.CheerCount
	for _, v := range votes {
		switch v.Team {
		case model.Home:
			c.Home++
		case model.Away:
			c.Away++
		}
	}
	return c
}

// CheerSplit turns a count into a home/away percentage pair summing to 100.
func CheerSplit(c model.CheerCount) (float64, float64) {
	home := Percent(c.Home, c.Home+c.Away)
	if c.Home+c.Away <= 0 {
		home = 50
	}
	return home, 100 - home
}
