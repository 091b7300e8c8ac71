package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cheng-chun-yuan/yap2win/internal/models"
)

func TestAddPointsAccumulates(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	require.NoError(t, s.AddPoints(ctx, 1, -100, 2.5, "Crypto Chat"))
	require.NoError(t, s.AddPoints(ctx, 1, -100, 1.5, "Crypto Chat"))

	points, err := s.GroupPoints(ctx, 1, -100)
	require.NoError(t, err)
	assert.Equal(t, 4.0, points)
}

func TestGroupPointsUnknownUser(t *testing.T) {
	s := NewStore()

	points, err := s.GroupPoints(context.Background(), 99, -100)
	require.NoError(t, err)
	assert.Equal(t, 0.0, points)
}

func TestUserPointsKeepsGroupOrder(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	require.NoError(t, s.AddPoints(ctx, 1, -100, 3, "First Group"))
	require.NoError(t, s.AddPoints(ctx, 1, -200, 5, "Second Group"))
	require.NoError(t, s.AddPoints(ctx, 1, -100, 1, "First Group"))

	entries, err := s.UserPoints(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(-100), entries[0].GroupID)
	assert.Equal(t, 4.0, entries[0].Points)
	assert.Equal(t, int64(-200), entries[1].GroupID)
	assert.Equal(t, 5.0, entries[1].Points)
}

func TestListeningGroups(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	listening, err := s.IsListeningGroup(ctx, -100)
	require.NoError(t, err)
	assert.False(t, listening)

	require.NoError(t, s.AddListeningGroup(ctx, -100))
	listening, err = s.IsListeningGroup(ctx, -100)
	require.NoError(t, err)
	assert.True(t, listening)

	require.NoError(t, s.RemoveListeningGroup(ctx, -100))
	listening, err = s.IsListeningGroup(ctx, -100)
	require.NoError(t, err)
	assert.False(t, listening)
}

func TestSetEventConfigClearsParticipants(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	cfg := models.EventConfig{
		GroupID:     -100,
		GroupName:   "Crypto Chat",
		Type:        models.EventTypePool,
		TotalAmount: 1000,
		StartTime:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		EndTime:     time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC),
		State:       models.EventStateActive,
	}
	require.NoError(t, s.SetEventConfig(ctx, cfg))
	require.NoError(t, s.AddParticipantPoints(ctx, -100, 1, 5, "alice", "Alice"))

	participants, err := s.Participants(ctx, -100)
	require.NoError(t, err)
	require.Len(t, participants, 1)

	require.NoError(t, s.SetEventConfig(ctx, cfg))
	participants, err = s.Participants(ctx, -100)
	require.NoError(t, err)
	assert.Empty(t, participants)
}

func TestParticipantsFirstSeenOrder(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	require.NoError(t, s.AddParticipantPoints(ctx, -100, 1, 2, "alice", "Alice"))
	require.NoError(t, s.AddParticipantPoints(ctx, -100, 2, 7, "bob", "Bob"))
	require.NoError(t, s.AddParticipantPoints(ctx, -100, 1, 3, "alice", "Alice"))

	participants, err := s.Participants(ctx, -100)
	require.NoError(t, err)
	require.Len(t, participants, 2)
	assert.Equal(t, int64(1), participants[0].UserID)
	assert.Equal(t, 5.0, participants[0].Points)
	assert.Equal(t, int64(2), participants[1].UserID)
}

func TestFinishEvent(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	require.NoError(t, s.SetEventConfig(ctx, models.EventConfig{
		GroupID: -100,
		Type:    models.EventTypePool,
		State:   models.EventStateActive,
	}))
	require.NoError(t, s.FinishEvent(ctx, -100))

	cfg, err := s.EventConfig(ctx, -100)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, models.EventStateFinished, cfg.State)
}

func TestEventConfigMissing(t *testing.T) {
	s := NewStore()

	cfg, err := s.EventConfig(context.Background(), -999)
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestRules(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	rule, err := s.Rule(ctx, -100)
	require.NoError(t, err)
	assert.Nil(t, rule)

	require.NoError(t, s.SetRule(ctx, models.VerificationRule{
		GroupID:        -100,
		Country:        "Taiwan",
		MinAge:         18,
		NFTHolder:      models.AssetKindPenguin,
		CollectAddress: true,
	}))

	rule, err = s.Rule(ctx, -100)
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, "Taiwan", rule.Country)
	assert.Equal(t, 18, rule.MinAge)

	groups, err := s.RuleGroups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{-100}, groups)
}

func TestVerificationAndWallet(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	verified, err := s.IsVerified(ctx, 1)
	require.NoError(t, err)
	assert.False(t, verified)

	require.NoError(t, s.MarkVerified(ctx, 1))
	verified, err = s.IsVerified(ctx, 1)
	require.NoError(t, err)
	assert.True(t, verified)

	require.NoError(t, s.SetWalletAddress(ctx, 1, "0xBd3531dA5CF5857e7CfAA92426877b022e612cf8"))
	addr, err := s.WalletAddress(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "0xBd3531dA5CF5857e7CfAA92426877b022e612cf8", addr)
}
