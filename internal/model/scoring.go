package model

import (
	"math"
	"strings"
	"time"
)

// InactivityUnknown is returned when no post was ever observed. Callers
// treat it as "very inactive".
const InactivityUnknown = 999

// CalculateSpamScore computes an additive spam risk score in [0,100] plus the
// list of triggered rule labels, in evaluation order. Rules are hand-tuned
// heuristics; the weights are fixed constants, not knobs.
// act and rep are optional: nil means the corresponding signals were not
// fetched and their rules do not apply.
func CalculateSpamScore(p UserProfile, act *ActivitySignals, rep *ExternalReputation) (int, []string) {
	score := 0
	labels := []string{}

	// Profile completion
	if p.PfpURL == "" || strings.Contains(p.PfpURL, "default") {
		score += 25
		labels = append(labels, "No/Default PFP")
	}
	if len(p.Bio) < 5 {
		score += 20
		labels = append(labels, "Empty/Short Bio")
	}

	// Trust signals
	if len(p.VerifiedAddresses) == 0 {
		score += 15
		labels = append(labels, "No Verified Address")
	}

	// Graph signals: follow-back farming patterns
	if p.FollowingCount > 1000 && p.FollowerCount < 20 {
		score += 40
		labels = append(labels, "Suspicious Follower Ratio")
	} else if p.FollowingCount > 500 && p.FollowerCount < 5 {
		score += 30
		labels = append(labels, "High Following / Low Followers")
	}

	// Newer accounts have higher FIDs. Recency alone is weak evidence, so
	// the delta is small.
	if p.FID > 850000 {
		score += 10
		labels = append(labels, "Very New Account")
	}

	// Builder reputation suppresses the other signals; a missing score
	// applies no delta at all.
	if rep != nil && rep.BuilderScore != nil {
		bs := *rep.BuilderScore
		switch {
		case bs > 60:
			score -= 30
		case bs > 20:
			score -= 10
		case bs >= 0 && bs < 5:
			score += 15
			labels = append(labels, "Low Reputation Score")
		}
	}

	// Activity signals, only when a cast sample was actually fetched.
	if act != nil {
		if act.RecentCastCount == 0 {
			score += 20
			labels = append(labels, "No Recent Casts")
		}
		if act.LastActivity != nil && CalculateInactivityDays(act.LastActivity) > 90 {
			score += 15
			labels = append(labels, "Inactive 90+ Days")
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, labels
}

// CalculateTrustLevel combines an engagement score [0,1] and a builder score
// (0-100+) into a coarse tier. The power badge dominates: it is an externally
// audited signal and short-circuits the weighted formula. Engagement is the
// primary signal; a very high engagement score promotes the tier even with a
// zero builder score.
func CalculateTrustLevel(engagement, builder float64, powerBadge bool) TrustLevel {
	if powerBadge {
		return TrustHigh
	}
	combined := engagement*100*0.6 + builder*0.4
	switch {
	case combined > 70 || engagement > 0.9:
		return TrustHigh
	case combined > 40 || engagement > 0.6:
		return TrustMedium
	case combined > 0:
		return TrustLow
	default:
		return TrustUnknown
	}
}

// CalculateInactivityDays returns whole days since the last observed post,
// or InactivityUnknown when none was ever observed. The absolute difference
// tolerates timestamps fractionally in the future from clock skew.
func CalculateInactivityDays(last *time.Time) int {
	if last == nil {
		return InactivityUnknown
	}
	diff := math.Abs(time.Since(*last).Hours())
	return int(math.Ceil(diff / 24))
}

// ActivityStatus maps an inactivity day-count to a display band. Presentation
// only; it does not feed back into the spam score.
func ActivityStatus(days int) string {
	switch {
	case days <= 30:
		return "Active"
	case days <= 90:
		return "Stale"
	case days <= 365:
		return "Inactive"
	default:
		return "Ghost"
	}
}
