package model

import "time"

// UserProfile is a normalized Farcaster account record, mapped once at the
// API boundary. Scorers never see raw provider JSON.
type UserProfile struct {
	FID               int64
	Username          string
	DisplayName       string
	PfpURL            string
	Bio               string
	FollowerCount     int
	FollowingCount    int
	VerifiedAddresses []string
	PowerBadge        bool
	// Score is the profile-level engagement score the graph API attaches to
	// a user, in [0,1]. Zero when the API did not return one.
	Score float64
}

// Cast represents a subset of cast fields used by the inspector.
type Cast struct {
	Hash      string
	Text      string
	Timestamp time.Time
	Replies   int
	Recasts   int
	Likes     int
}

// ActivitySignals is a bounded sample of recent posting activity.
// A nil *ActivitySignals means no sample was fetched.
type ActivitySignals struct {
	RecentCastCount int
	LastActivity    *time.Time
}

// ExternalReputation carries optional third-party reputation signals.
// Every field may independently be absent. Absence means "do not apply the
// rule", never zero.
type ExternalReputation struct {
	EngagementScore *float64 // behavioral-quality score, [0,1]
	BuilderScore    *int     // onchain/builder reputation, 0-100+
	GraphScore      *float64 // graph-propagated trust, provider scale
}

// TrustLevel is a coarse trust tier.
type TrustLevel string

const (
	TrustHigh    TrustLevel = "High"
	TrustMedium  TrustLevel = "Medium"
	TrustLow     TrustLevel = "Low"
	TrustUnknown TrustLevel = "Unknown"
)

// AccountAge is an estimated account age with a display band.
type AccountAge struct {
	Days  int    `json:"days"`
	Label string `json:"label"`
}

// ReputationVerdict is the derived assessment for one account.
type ReputationVerdict struct {
	SpamScore      int        `json:"spam_score"`
	SpamLabels     []string   `json:"spam_labels"`
	TrustLevel     TrustLevel `json:"trust_level"`
	InactivityDays int        `json:"inactivity_days"`
	ActivityStatus string     `json:"activity_status"`
	AccountAge     AccountAge `json:"account_age"`
}
