package models

import "time"

// EventType is the reward distribution scheme for an event.
type EventType string

const (
	// EventTypePool splits the total reward equally among all participants.
	EventTypePool EventType = "pool"
	// EventTypeRank pays out by finishing position from a rank table.
	EventTypeRank EventType = "rank"
)

// EventState is the stored lifecycle state of an event. The full five-state
// status (including not_started and time_expired) is derived from the state
// plus the event window; see the reward package.
type EventState string

const (
	EventStateActive   EventState = "active"
	EventStateFinished EventState = "finished"
)

// EventConfig is the reward-event configuration for a single group.
// A group holds at most one config at a time; setting a new one replaces
// the old config and clears the participant scoreboard.
type EventConfig struct {
	GroupID     int64
	GroupName   string
	Type        EventType
	TotalAmount float64
	// RankRewards holds per-rank amounts for rank events: index i is the
	// reward for rank i+1. Empty for pool events.
	RankRewards []float64
	StartTime   time.Time
	EndTime     time.Time
	State       EventState
}

// Participant is a user's scoreboard entry for a group's current event.
type Participant struct {
	GroupID   int64
	UserID    int64
	Points    float64
	Username  string
	FirstName string
}

// DisplayName returns @username when known, otherwise the first name.
func (p Participant) DisplayName() string {
	if p.Username != "" {
		return "@" + p.Username
	}
	if p.FirstName != "" {
		return p.FirstName
	}
	return "Unknown"
}

// PointsEntry is a user's cumulative general points in one group,
// independent of any event.
type PointsEntry struct {
	UserID    int64
	GroupID   int64
	Points    float64
	GroupName string
}

// AssetKind identifies an NFT collection the bot can check ownership of.
type AssetKind string

const (
	AssetKindPenguin AssetKind = "penguin"
	AssetKindApe     AssetKind = "ape"
)

// ParseAssetKind maps free-form admin input to a known asset kind.
// Unknown values map to "" (no NFT requirement).
func ParseAssetKind(s string) AssetKind {
	switch AssetKind(s) {
	case AssetKindPenguin:
		return AssetKindPenguin
	case AssetKindApe:
		return AssetKindApe
	}
	return ""
}

// VerificationRule is a group's eligibility requirements. Zero values mean
// "not required": empty Country, MinAge 0, empty NFTHolder.
type VerificationRule struct {
	GroupID        int64
	Country        string
	MinAge         int
	NFTHolder      AssetKind
	CollectAddress bool
}

// Empty reports whether the rule requires nothing at all.
func (r VerificationRule) Empty() bool {
	return r.Country == "" && r.MinAge == 0 && r.NFTHolder == "" && !r.CollectAddress
}

// TxResult is the outcome of an on-chain submission via the ledger service.
type TxResult struct {
	Success bool
	Hash    string
	Status  string
}
