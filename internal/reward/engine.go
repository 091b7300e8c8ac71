package reward

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cheng-chun-yuan/yap2win/internal/models"
	"github.com/cheng-chun-yuan/yap2win/internal/storage"
)

// Status describes where a group's event stands relative to a point in time.
type Status string

const (
	StatusNoEvent     Status = "no_event"
	StatusNotStarted  Status = "not_started"
	StatusActive      Status = "active"
	StatusTimeExpired Status = "time_expired"
	StatusFinished    Status = "finished"
)

// StatusAt classifies cfg at the given instant. Both window boundaries count
// as active.
func StatusAt(cfg *models.EventConfig, now time.Time) Status {
	if cfg == nil {
		return StatusNoEvent
	}
	if cfg.State == models.EventStateFinished {
		return StatusFinished
	}
	if now.Before(cfg.StartTime) {
		return StatusNotStarted
	}
	if now.After(cfg.EndTime) {
		return StatusTimeExpired
	}
	return StatusActive
}

// Engine runs reward events on top of the storage layer: it gates event
// scoring to the active window, renders standings, and settles payouts.
type Engine struct {
	store  storage.Storage
	logger *zap.Logger
	now    func() time.Time
}

func NewEngine(store storage.Storage, logger *zap.Logger) *Engine {
	return &Engine{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Status reports the group's current event status.
func (e *Engine) Status(ctx context.Context, groupID int64) (Status, error) {
	cfg, err := e.store.EventConfig(ctx, groupID)
	if err != nil {
		return StatusNoEvent, fmt.Errorf("load event config: %w", err)
	}
	return StatusAt(cfg, e.now()), nil
}

// AddParticipantScore credits event points for a group message. Outside the
// active window the call is a no-op.
func (e *Engine) AddParticipantScore(ctx context.Context, groupID, userID int64, points float64, username, firstName string) error {
	cfg, err := e.store.EventConfig(ctx, groupID)
	if err != nil {
		return fmt.Errorf("load event config: %w", err)
	}
	if StatusAt(cfg, e.now()) != StatusActive {
		return nil
	}
	if err := e.store.AddParticipantPoints(ctx, groupID, userID, points, username, firstName); err != nil {
		return fmt.Errorf("add participant points: %w", err)
	}
	return nil
}

// DefaultRankDistribution splits total 50/30/20 across the top three ranks.
func DefaultRankDistribution(total float64) []float64 {
	return []float64{total * 0.5, total * 0.3, total * 0.2}
}

// ValidateRankDistribution checks that the per-rank amounts add up to total,
// allowing a small rounding slack.
func ValidateRankDistribution(amounts []float64, total float64) error {
	if len(amounts) == 0 {
		return fmt.Errorf("no rank amounts given")
	}
	var sum float64
	for _, a := range amounts {
		if a < 0 {
			return fmt.Errorf("rank amounts must not be negative")
		}
		sum += a
	}
	if math.Abs(sum-total) > 0.01 {
		return fmt.Errorf("rank amounts sum to %.2f, expected %.2f", sum, total)
	}
	return nil
}

// Standings renders the live leaderboard for the group's event.
func (e *Engine) Standings(ctx context.Context, groupID int64) (string, error) {
	cfg, err := e.store.EventConfig(ctx, groupID)
	if err != nil {
		return "", fmt.Errorf("load event config: %w", err)
	}

	switch StatusAt(cfg, e.now()) {
	case StatusNoEvent:
		return "No reward event is configured for this group.", nil
	case StatusNotStarted:
		return fmt.Sprintf("The reward event hasn't started yet. It begins at %s.",
			cfg.StartTime.Format("2006-01-02 15:04")), nil
	case StatusFinished:
		return "The reward event has finished. Use /result to see the payouts.", nil
	}

	participants, err := e.store.Participants(ctx, groupID)
	if err != nil {
		return "", fmt.Errorf("load participants: %w", err)
	}
	ranked := rankParticipants(participants)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("🏆 Reward Event Standings - %s\n\n", cfg.GroupName))

	totalPoints := 0.0
	for _, p := range ranked {
		totalPoints += p.Points
	}

	if len(ranked) == 0 {
		b.WriteString("No points earned yet. Start chatting to participate!\n")
	} else {
		limit := len(ranked)
		if limit > 10 {
			limit = 10
		}
		for i := 0; i < limit; i++ {
			p := ranked[i]
			b.WriteString(fmt.Sprintf("%s %s: %.1f pts", medalFor(i+1), p.DisplayName(), p.Points))
			if cfg.Type == models.EventTypePool && totalPoints > 0 {
				b.WriteString(fmt.Sprintf(" (~%.2f)", cfg.TotalAmount/totalPoints*p.Points))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	if cfg.Type == models.EventTypePool {
		b.WriteString(fmt.Sprintf("💰 Prize pool: %.2f split by points earned\n", cfg.TotalAmount))
		if totalPoints > 0 {
			b.WriteString(fmt.Sprintf("Each point will receive: %.2f\n", cfg.TotalAmount/totalPoints))
		} else {
			b.WriteString(fmt.Sprintf("Each point will receive: %.2f (no points earned yet)\n", cfg.TotalAmount))
		}
	} else {
		b.WriteString(fmt.Sprintf("💰 Rank rewards: %s\n", formatRankRewards(cfg.RankRewards)))
	}
	b.WriteString(fmt.Sprintf("⏰ Time remaining: %s", formatRemaining(cfg.EndTime.Sub(e.now()))))
	return b.String(), nil
}

// FinishedEvents lists groups whose events ran past their end time but have
// not been settled. It never mutates state.
func (e *Engine) FinishedEvents(ctx context.Context) ([]models.EventConfig, error) {
	configs, err := e.store.EventConfigs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load event configs: %w", err)
	}
	now := e.now()
	var expired []models.EventConfig
	for _, cfg := range configs {
		c := cfg
		if StatusAt(&c, now) == StatusTimeExpired {
			expired = append(expired, cfg)
		}
	}
	return expired, nil
}

// Finish settles the group's event: computes the payout summary and marks the
// event finished. Finishing an already finished event just re-renders the
// results, and a group with no event logs a warning and returns an empty
// summary.
func (e *Engine) Finish(ctx context.Context, groupID int64) (string, error) {
	cfg, err := e.store.EventConfig(ctx, groupID)
	if err != nil {
		return "", fmt.Errorf("load event config: %w", err)
	}
	if cfg == nil {
		e.logger.Warn("no event to finish", zap.Int64("group_id", groupID))
		return "", nil
	}
	if cfg.State == models.EventStateFinished {
		e.logger.Warn("event already finished", zap.Int64("group_id", groupID))
	}

	results, err := e.Results(ctx, cfg)
	if err != nil {
		return "", err
	}
	if err := e.store.FinishEvent(ctx, groupID); err != nil {
		return "", fmt.Errorf("mark event finished: %w", err)
	}
	return results, nil
}

// Results renders the final payout summary for cfg without changing state.
func (e *Engine) Results(ctx context.Context, cfg *models.EventConfig) (string, error) {
	participants, err := e.store.Participants(ctx, cfg.GroupID)
	if err != nil {
		return "", fmt.Errorf("load participants: %w", err)
	}
	ranked := rankParticipants(participants)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("🎊 Reward Event Results - %s\n\n", cfg.GroupName))

	if len(ranked) == 0 {
		b.WriteString(fmt.Sprintf("Nobody participated. The prize of %.2f goes unclaimed.", cfg.TotalAmount))
		return b.String(), nil
	}

	switch cfg.Type {
	case models.EventTypePool:
		share := cfg.TotalAmount / float64(len(ranked))
		b.WriteString(fmt.Sprintf("💰 Pool of %.2f split equally among %d participants: %.2f each\n\n",
			cfg.TotalAmount, len(ranked), share))
		for i, p := range ranked {
			b.WriteString(fmt.Sprintf("%s %s: %.1f pts +%.2f\n", medalFor(i+1), p.DisplayName(), p.Points, share))
		}
	case models.EventTypeRank:
		b.WriteString("🏅 Final ranking:\n\n")
		for i, p := range ranked {
			reward := 0.0
			if i < len(cfg.RankRewards) {
				reward = cfg.RankRewards[i]
			}
			b.WriteString(fmt.Sprintf("%s %s: %.1f pts", medalFor(i+1), p.DisplayName(), p.Points))
			if reward > 0 {
				b.WriteString(fmt.Sprintf(" +%.2f", reward))
			}
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

// Announcement renders the kickoff message for a freshly configured event.
func Announcement(cfg models.EventConfig) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🎉 A reward event is live in %s!\n\n", cfg.GroupName))
	if cfg.Type == models.EventTypePool {
		b.WriteString(fmt.Sprintf("💰 Prize pool: %.2f, split by points earned\n", cfg.TotalAmount))
	} else {
		b.WriteString(fmt.Sprintf("💰 Rank rewards: %s\n", formatRankRewards(cfg.RankRewards)))
	}
	b.WriteString(fmt.Sprintf("🕐 From %s to %s\n\n",
		cfg.StartTime.Format("2006-01-02 15:04"), cfg.EndTime.Format("2006-01-02 15:04")))
	b.WriteString("Chat away, quality messages earn points!")
	return b.String()
}

// rankParticipants sorts by points descending. Equal scores keep their
// first-seen order.
func rankParticipants(participants []models.Participant) []models.Participant {
	ranked := make([]models.Participant, len(participants))
	copy(ranked, participants)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Points > ranked[j].Points
	})
	return ranked
}

func medalFor(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return fmt.Sprintf("%d.", rank)
	}
}

func formatRankRewards(rewards []float64) string {
	parts := make([]string, 0, len(rewards))
	for i, r := range rewards {
		parts = append(parts, fmt.Sprintf("#%d: %.2f", i+1, r))
	}
	return strings.Join(parts, ", ")
}

func formatRemaining(d time.Duration) string {
	if d <= 0 {
		return "0m"
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
