package reward

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cheng-chun-yuan/yap2win/internal/models"
	"github.com/cheng-chun-yuan/yap2win/internal/storage/memory"
)

var (
	eventStart = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	eventEnd   = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
)

func newTestEngine(t *testing.T, now time.Time) (*Engine, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	engine := NewEngine(store, zap.NewNop())
	engine.now = func() time.Time { return now }
	return engine, store
}

func poolConfig() models.EventConfig {
	return models.EventConfig{
		GroupID:     -100,
		GroupName:   "Crypto Chat",
		Type:        models.EventTypePool,
		TotalAmount: 1000,
		StartTime:   eventStart,
		EndTime:     eventEnd,
		State:       models.EventStateActive,
	}
}

func TestStatusAt(t *testing.T) {
	cfg := poolConfig()

	tests := []struct {
		name string
		cfg  *models.EventConfig
		now  time.Time
		want Status
	}{
		{"no config", nil, eventStart, StatusNoEvent},
		{"before start", &cfg, eventStart.Add(-time.Second), StatusNotStarted},
		{"at start", &cfg, eventStart, StatusActive},
		{"mid window", &cfg, eventStart.Add(6 * time.Hour), StatusActive},
		{"at end", &cfg, eventEnd, StatusActive},
		{"after end", &cfg, eventEnd.Add(time.Second), StatusTimeExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusAt(tt.cfg, tt.now))
		})
	}

	finished := poolConfig()
	finished.State = models.EventStateFinished
	assert.Equal(t, StatusFinished, StatusAt(&finished, eventStart.Add(time.Hour)))
}

func TestAddParticipantScoreOnlyDuringWindow(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t, eventStart.Add(time.Hour))
	require.NoError(t, store.SetEventConfig(ctx, poolConfig()))

	require.NoError(t, engine.AddParticipantScore(ctx, -100, 1, 5, "alice", "Alice"))
	require.NoError(t, engine.AddParticipantScore(ctx, -100, 2, 5, "bob", "Bob"))

	engine.now = func() time.Time { return eventEnd.Add(time.Hour) }
	require.NoError(t, engine.AddParticipantScore(ctx, -100, 2, 3, "bob", "Bob"))

	participants, err := store.Participants(ctx, -100)
	require.NoError(t, err)
	require.Len(t, participants, 2)
	assert.Equal(t, 5.0, participants[0].Points)
	assert.Equal(t, 5.0, participants[1].Points)
}

func TestAddParticipantScoreNoEvent(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t, eventStart)

	require.NoError(t, engine.AddParticipantScore(ctx, -100, 1, 5, "alice", "Alice"))

	participants, err := store.Participants(ctx, -100)
	require.NoError(t, err)
	assert.Empty(t, participants)
}

func TestDefaultRankDistribution(t *testing.T) {
	assert.Equal(t, []float64{500, 300, 200}, DefaultRankDistribution(1000))
}

func TestValidateRankDistribution(t *testing.T) {
	assert.NoError(t, ValidateRankDistribution([]float64{500, 300, 200}, 1000))
	assert.NoError(t, ValidateRankDistribution([]float64{500, 300, 200.009}, 1000))
	assert.Error(t, ValidateRankDistribution([]float64{600, 300, 50}, 1000))
	assert.Error(t, ValidateRankDistribution(nil, 1000))
	assert.Error(t, ValidateRankDistribution([]float64{1100, -100}, 1000))
}

func TestStandingsPool(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t, eventStart.Add(time.Hour))
	require.NoError(t, store.SetEventConfig(ctx, poolConfig()))
	require.NoError(t, engine.AddParticipantScore(ctx, -100, 1, 6, "alice", "Alice"))
	require.NoError(t, engine.AddParticipantScore(ctx, -100, 2, 2, "bob", "Bob"))

	text, err := engine.Standings(ctx, -100)
	require.NoError(t, err)
	assert.Contains(t, text, "Crypto Chat")
	assert.Contains(t, text, "🥇 @alice: 6.0 pts (~750.00)")
	assert.Contains(t, text, "🥈 @bob: 2.0 pts (~250.00)")
	assert.Contains(t, text, "Each point will receive: 125.00")
	assert.Contains(t, text, "Time remaining: 23h 0m")
}

func TestStandingsNoParticipants(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t, eventStart.Add(time.Hour))
	require.NoError(t, store.SetEventConfig(ctx, poolConfig()))

	text, err := engine.Standings(ctx, -100)
	require.NoError(t, err)
	assert.Contains(t, text, "No points earned yet")
	assert.Contains(t, text, "Each point will receive: 1000.00 (no points earned yet)")
}

func TestStandingsStatusVariants(t *testing.T) {
	ctx := context.Background()

	engine, _ := newTestEngine(t, eventStart)
	text, err := engine.Standings(ctx, -100)
	require.NoError(t, err)
	assert.Contains(t, text, "No reward event is configured")

	engine, store := newTestEngine(t, eventStart.Add(-time.Hour))
	require.NoError(t, store.SetEventConfig(ctx, poolConfig()))
	text, err = engine.Standings(ctx, -100)
	require.NoError(t, err)
	assert.Contains(t, text, "hasn't started yet")

	finished := poolConfig()
	finished.State = models.EventStateFinished
	require.NoError(t, store.SetEventConfig(ctx, finished))
	text, err = engine.Standings(ctx, -100)
	require.NoError(t, err)
	assert.Contains(t, text, "has finished")
}

func TestFinishPoolEqualSplit(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t, eventStart.Add(time.Hour))
	require.NoError(t, store.SetEventConfig(ctx, poolConfig()))
	require.NoError(t, engine.AddParticipantScore(ctx, -100, 1, 6, "alice", "Alice"))
	require.NoError(t, engine.AddParticipantScore(ctx, -100, 2, 2, "bob", "Bob"))

	text, err := engine.Finish(ctx, -100)
	require.NoError(t, err)
	assert.Contains(t, text, "split equally among 2 participants: 500.00 each")
	assert.Contains(t, text, "🥇 @alice: 6.0 pts +500.00")
	assert.Contains(t, text, "🥈 @bob: 2.0 pts +500.00")

	cfg, err := store.EventConfig(ctx, -100)
	require.NoError(t, err)
	assert.Equal(t, models.EventStateFinished, cfg.State)

	// Finishing again re-renders results without error.
	again, err := engine.Finish(ctx, -100)
	require.NoError(t, err)
	assert.Contains(t, again, "500.00 each")
}

func TestFinishRankRewards(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t, eventStart.Add(time.Hour))

	cfg := poolConfig()
	cfg.Type = models.EventTypeRank
	cfg.RankRewards = DefaultRankDistribution(1000)
	require.NoError(t, store.SetEventConfig(ctx, cfg))

	for i, pts := range []float64{9, 7, 5, 3} {
		userID := int64(i + 1)
		require.NoError(t, engine.AddParticipantScore(ctx, -100, userID, pts, "", "User"))
	}

	text, err := engine.Finish(ctx, -100)
	require.NoError(t, err)
	assert.Contains(t, text, "+500.00")
	assert.Contains(t, text, "+300.00")
	assert.Contains(t, text, "+200.00")
	// Rank four gets nothing and no payout suffix.
	assert.Contains(t, text, "4. User: 3.0 pts\n")
}

func TestFinishNoParticipants(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t, eventStart.Add(time.Hour))
	require.NoError(t, store.SetEventConfig(ctx, poolConfig()))

	text, err := engine.Finish(ctx, -100)
	require.NoError(t, err)
	assert.Contains(t, text, "Nobody participated")
	assert.Contains(t, text, "1000.00")
}

func TestFinishNoEvent(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t, eventStart.Add(time.Hour))

	text, err := engine.Finish(ctx, -999)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestFinishedEventsIsPureQuery(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t, eventEnd.Add(time.Hour))
	require.NoError(t, store.SetEventConfig(ctx, poolConfig()))

	expired, err := engine.FinishedEvents(ctx)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, int64(-100), expired[0].GroupID)

	cfg, err := store.EventConfig(ctx, -100)
	require.NoError(t, err)
	assert.Equal(t, models.EventStateActive, cfg.State)
}

func TestLedgerPointsUnaffectedByEventWindow(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t, eventStart.Add(time.Hour))
	require.NoError(t, store.SetEventConfig(ctx, poolConfig()))

	require.NoError(t, store.AddPoints(ctx, 2, -100, 5, "Crypto Chat"))
	require.NoError(t, engine.AddParticipantScore(ctx, -100, 2, 5, "bob", "Bob"))

	engine.now = func() time.Time { return eventEnd.Add(time.Hour) }
	require.NoError(t, store.AddPoints(ctx, 2, -100, 3, "Crypto Chat"))
	require.NoError(t, engine.AddParticipantScore(ctx, -100, 2, 3, "bob", "Bob"))

	total, err := store.GroupPoints(ctx, 2, -100)
	require.NoError(t, err)
	assert.Equal(t, 8.0, total)

	participants, err := store.Participants(ctx, -100)
	require.NoError(t, err)
	require.Len(t, participants, 1)
	assert.Equal(t, 5.0, participants[0].Points)
}

func TestFormatRemaining(t *testing.T) {
	assert.Equal(t, "2d 3h 15m", formatRemaining(51*time.Hour+15*time.Minute))
	assert.Equal(t, "3h 0m", formatRemaining(3*time.Hour))
	assert.Equal(t, "45m", formatRemaining(45*time.Minute))
	assert.Equal(t, "0m", formatRemaining(-time.Minute))
}
