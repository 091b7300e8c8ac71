package storage

import (
	"context"

	"github.com/cheng-chun-yuan/yap2win/internal/models"
)

// Storage defines the interface for data storage operations.
//
// Implementations must keep per-group participant order stable: Participants
// returns entries in first-seen order so that equal-point rankings keep their
// original order after a stable sort.
type Storage interface {
	// General points (independent of events, never reset)

	// AddPoints adds points for a user in a group, creating the entry on
	// first use and refreshing the stored group name.
	AddPoints(ctx context.Context, userID, groupID int64, points float64, groupName string) error
	GroupPoints(ctx context.Context, userID, groupID int64) (float64, error)
	UserPoints(ctx context.Context, userID int64) ([]models.PointsEntry, error)

	// Listening groups

	AddListeningGroup(ctx context.Context, groupID int64) error
	RemoveListeningGroup(ctx context.Context, groupID int64) error
	IsListeningGroup(ctx context.Context, groupID int64) (bool, error)
	ListeningGroups(ctx context.Context) ([]int64, error)

	// Reward events

	// SetEventConfig replaces the group's event config and clears its
	// participant scoreboard.
	SetEventConfig(ctx context.Context, cfg models.EventConfig) error
	// EventConfig returns nil when the group has no config.
	EventConfig(ctx context.Context, groupID int64) (*models.EventConfig, error)
	EventConfigs(ctx context.Context) ([]models.EventConfig, error)
	FinishEvent(ctx context.Context, groupID int64) error
	// AddParticipantPoints accumulates event points for a participant,
	// creating the entry lazily. Callers gate on the active window; the
	// store itself does not.
	AddParticipantPoints(ctx context.Context, groupID, userID int64, points float64, username, firstName string) error
	Participants(ctx context.Context, groupID int64) ([]models.Participant, error)

	// Verification rules

	SetRule(ctx context.Context, rule models.VerificationRule) error
	// Rule returns nil when the group has no rule.
	Rule(ctx context.Context, groupID int64) (*models.VerificationRule, error)
	RuleGroups(ctx context.Context) ([]int64, error)

	// Verified users and reward wallets

	MarkVerified(ctx context.Context, userID int64) error
	IsVerified(ctx context.Context, userID int64) (bool, error)
	SetWalletAddress(ctx context.Context, userID int64, address string) error
	WalletAddress(ctx context.Context, userID int64) (string, error)

	// Lifecycle
	Initialize(ctx context.Context) error
	Close() error
}
