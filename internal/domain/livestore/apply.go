package livestore

import (
	"encoding/json"

	"github.com/okian/matchday/internal/domain/model"
	"github.com/okian/matchday/internal/domain/votes"
)

// Reasons a patch is not applied. Used as metric labels and log fields.
const (
	reasonOtherFixture    = "other_fixture"
	reasonNoSnapshot      = "no_snapshot"
	reasonBuffered        = "buffered"
	reasonBufferFull      = "buffer_full"
	reasonMalformed       = "malformed"
	reasonEmpty           = "empty"
	reasonUnknownKind     = "unknown_kind"
	reasonInvalid         = "invalid"
	reasonBackwardStatus  = "backward_status"
	reasonScoreRegression = "score_regression"
)

// decodePatch turns a wire patch into a full snapshot (full-update) or a body.
func decodePatch(p model.Patch) (*model.LiveFixtureSnapshot, model.PatchBody, string) {
	var body model.PatchBody
	if len(p.Data) == 0 {
		return nil, body, reasonEmpty
	}
	if p.Kind == model.PatchFull {
		var snap model.LiveFixtureSnapshot
		if err := json.Unmarshal(p.Data, &snap); err != nil {
			return nil, body, reasonMalformed
		}
		if snap.ID == "" {
			snap.ID = p.FixtureID
		}
		if snap.ID != p.FixtureID {
			return nil, body, reasonMalformed
		}
		return &snap, body, ""
	}
	if err := json.Unmarshal(p.Data, &body); err != nil {
		return nil, body, reasonMalformed
	}
	return nil, body, ""
}

// normalize enforces one vote per user on both vote logs. When a POTM vote
// log is present the fan tally is rebuilt from it; otherwise the backend
// tally is kept as sent.
func normalize(s *model.LiveFixtureSnapshot) {
	s.CheerMeter.Votes = votes.LatestCheer(s.CheerMeter.Votes)
	s.PlayerOfTheMatch.Votes = votes.LatestPOTM(s.PlayerOfTheMatch.Votes)
	if len(s.PlayerOfTheMatch.Votes) > 0 {
		s.PlayerOfTheMatch.FanVotes = votes.Aggregate(s.PlayerOfTheMatch.Votes).Players
	}
}

// applyBody replaces the slice kind owns in dst. When guarded is set the
// monotonicity rules for status, minute and score are enforced; writes the
// backend already accepted are applied unguarded. It returns "" on success
// or the reason the body was rejected, leaving dst untouched.
func applyBody(dst *model.LiveFixtureSnapshot, kind model.PatchKind, b model.PatchBody, guarded bool) string { //nolint:gocyclo,funlen // one case per patch kind
	switch kind {
	case model.PatchStatus:
		if b.Status == nil && b.CurrentMinute == nil && b.InjuryTime == nil {
			return reasonEmpty
		}
		next := dst.Status
		if b.Status != nil {
			if !b.Status.Valid() {
				return reasonInvalid
			}
			if guarded && !model.CanTransition(dst.Status, *b.Status) {
				return reasonBackwardStatus
			}
			next = *b.Status
		}
		if b.CurrentMinute != nil {
			minute := *b.CurrentMinute
			if guarded && next == dst.Status && next.IsActive() && minute < dst.CurrentMinute {
				minute = dst.CurrentMinute
			}
			dst.CurrentMinute = minute
		}
		if b.InjuryTime != nil {
			dst.InjuryTime = *b.InjuryTime
		}
		dst.Status = next

	case model.PatchScore:
		if b.Result == nil && b.GoalScorers == nil {
			return reasonEmpty
		}
		if b.Result != nil {
			if b.Result.Validate() != nil {
				return reasonInvalid
			}
			if guarded && dst.Status.HasStarted() && dst.Result.Regresses(*b.Result) {
				return reasonScoreRegression
			}
			dst.Result = *b.Result
		}
		if b.GoalScorers != nil {
			dst.GoalScorers = *b.GoalScorers
		}

	case model.PatchTimeline:
		if b.Timeline == nil {
			return reasonEmpty
		}
		dst.Timeline = *b.Timeline

	case model.PatchGoalScorer:
		if b.GoalScorers == nil {
			return reasonEmpty
		}
		dst.GoalScorers = *b.GoalScorers

	case model.PatchSubstitution:
		if b.Substitutions == nil {
			return reasonEmpty
		}
		dst.Substitutions = *b.Substitutions

	case model.PatchCommentary:
		if b.Commentary == nil {
			return reasonEmpty
		}
		dst.Commentary = *b.Commentary

	case model.PatchStatistics:
		if b.Statistics == nil {
			return reasonEmpty
		}
		if b.Statistics.Validate() != nil {
			return reasonInvalid
		}
		dst.Statistics = *b.Statistics

	case model.PatchLineup:
		if b.Lineups == nil {
			return reasonEmpty
		}
		dst.Lineups = *b.Lineups

	case model.PatchPOTM:
		if b.PlayerOfTheMatch == nil {
			return reasonEmpty
		}
		dst.PlayerOfTheMatch = *b.PlayerOfTheMatch
		normalize(dst)

	case model.PatchCheer:
		if b.CheerMeter == nil {
			return reasonEmpty
		}
		dst.CheerMeter = *b.CheerMeter
		normalize(dst)

	default:
		return reasonUnknownKind
	}
	return ""
}
