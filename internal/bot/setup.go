package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/cheng-chun-yuan/yap2win/internal/models"
	"github.com/cheng-chun-yuan/yap2win/internal/reward"
	"github.com/cheng-chun-yuan/yap2win/internal/verify"
)

const (
	promptType = "💰 What kind of event?\n\n" +
		"• pool - the prize is split equally among everyone who earns points\n" +
		"• rank - fixed prizes per finishing position\n\n" +
		"Reply with 'pool' or 'rank':"
	promptStartTime = "🕐 When does the event start?\n\n" +
		"Format: YYYY-MM-DD HH:MM, e.g. 2025-07-01 18:00"
	promptDistribution = "🏅 How should the prize be distributed?\n\n" +
		"• default - 50/30/20 split across the top 3\n" +
		"• custom <a> <b> <c> ... - your own per-rank amounts\n\n" +
		"Custom amounts must add up to the total."
	promptRules = "🔐 Any verification requirements for participants?\n\n" +
		"Format: Country: [name or None], Age: [number or None], NFT: [penguin/ape or None]\n" +
		"Example: Country: Taiwan, Age: 18, NFT: penguin\n\n" +
		"Or reply 'none' to skip."
)

func (b *Bot) handleSetupMessage(ctx context.Context, msg *tgbotapi.Message, sess *SetupSession) {
	text := strings.TrimSpace(msg.Text)
	chatID := msg.Chat.ID

	switch sess.Step {
	case SetupChoosingGroup:
		group, ok := parseGroupChoice(text, sess.Groups)
		if !ok {
			b.reply(chatID, fmt.Sprintf("❌ Please reply with a number between 1 and %d.", len(sess.Groups)))
			return
		}
		sess.Group = group
		sess.Config.GroupID = group.ID
		sess.Config.GroupName = group.Name
		sess.Step = SetupChoosingType
		b.reply(chatID, fmt.Sprintf("Setting up an event for %s.\n\n%s", group.Name, promptType))

	case SetupChoosingType:
		switch strings.ToLower(text) {
		case "pool":
			sess.Config.Type = models.EventTypePool
			sess.Step = SetupPoolAmount
			b.reply(chatID, "💵 How big is the prize pool? Enter a positive amount:")
		case "rank":
			sess.Config.Type = models.EventTypeRank
			sess.Step = SetupRankAmount
			b.reply(chatID, "💵 What is the total prize amount? Enter a positive amount:")
		default:
			b.reply(chatID, "❌ Please reply with 'pool' or 'rank'.")
		}

	case SetupPoolAmount, SetupRankAmount:
		amount, err := strconv.ParseFloat(text, 64)
		if err != nil || amount <= 0 {
			b.reply(chatID, "❌ Please enter a positive number, e.g. 1000.")
			return
		}
		sess.Config.TotalAmount = amount
		if sess.Step == SetupPoolAmount {
			sess.Step = SetupStartTime
			b.reply(chatID, promptStartTime)
		} else {
			sess.Step = SetupRankDistribution
			b.reply(chatID, promptDistribution)
		}

	case SetupRankDistribution:
		rewards, errText := parseRankDistribution(text, sess.Config.TotalAmount)
		if errText != "" {
			b.reply(chatID, errText)
			return
		}
		sess.Config.RankRewards = rewards
		sess.Step = SetupStartTime
		b.reply(chatID, promptStartTime)

	case SetupStartTime:
		start, err := time.ParseInLocation(dateFormat, text, time.Local)
		if err != nil {
			b.reply(chatID, "❌ I couldn't read that date. Use YYYY-MM-DD HH:MM, e.g. 2025-07-01 18:00.")
			return
		}
		sess.Config.StartTime = start
		sess.Step = SetupEndTime
		b.reply(chatID, "🕐 And when does it end? Same format, must be after the start:")

	case SetupEndTime:
		end, err := time.ParseInLocation(dateFormat, text, time.Local)
		if err != nil {
			b.reply(chatID, "❌ I couldn't read that date. Use YYYY-MM-DD HH:MM, e.g. 2025-07-02 18:00.")
			return
		}
		if !end.After(sess.Config.StartTime) {
			b.reply(chatID, "❌ The end time must be after the start time. Try again:")
			return
		}
		sess.Config.EndTime = end
		sess.Step = SetupVerificationRules
		b.reply(chatID, promptRules)

	case SetupVerificationRules:
		lowered := strings.ToLower(text)
		if lowered != "none" && lowered != "skip" {
			rule := verify.ParseRuleSpec(sess.Config.GroupID, text)
			sess.Rule = &rule
		}
		b.completeSetup(ctx, msg.From.ID, chatID, sess)
	}
}

// parseRankDistribution handles the 'default' and 'custom a b c' replies.
// The second return value is a re-prompt text when the input is rejected.
func parseRankDistribution(text string, total float64) ([]float64, string) {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return nil, "❌ Reply 'default' or 'custom <a> <b> <c> ...'."
	}
	switch fields[0] {
	case "default":
		return reward.DefaultRankDistribution(total), ""
	case "custom":
		if len(fields) < 2 {
			return nil, "❌ Give the per-rank amounts, e.g. custom 500 300 200."
		}
		amounts := make([]float64, 0, len(fields)-1)
		sum := 0.0
		for _, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Sprintf("❌ %q is not a number. Try again:", f)
			}
			amounts = append(amounts, v)
			sum += v
		}
		if err := reward.ValidateRankDistribution(amounts, total); err != nil {
			return nil, fmt.Sprintf("❌ Your amounts add up to %.2f but the total is %.2f. Try again:", sum, total)
		}
		return amounts, ""
	default:
		return nil, "❌ Reply 'default' or 'custom <a> <b> <c> ...'."
	}
}

// completeSetup commits the event, then runs the best-effort side effects:
// the on-chain pool, the group announcement and its pin. Local state wins,
// failures past the commit are reported but never rolled back.
func (b *Bot) completeSetup(ctx context.Context, userID, chatID int64, sess *SetupSession) {
	cfg := sess.Config
	cfg.State = models.EventStateActive

	if err := b.store.SetEventConfig(ctx, cfg); err != nil {
		b.logger.Error("save event config failed", zap.Int64("group_id", cfg.GroupID), zap.Error(err))
		b.reply(chatID, "Something went wrong saving the event, please try again.")
		return
	}
	if sess.Rule != nil {
		if err := b.store.SetRule(ctx, *sess.Rule); err != nil {
			b.logger.Error("save rule failed", zap.Int64("group_id", cfg.GroupID), zap.Error(err))
		}
	}
	b.clearSession(userID)

	b.reply(chatID, fmt.Sprintf(
		"✅ Event configured for %s!\n\nType: %s\nTotal: %.2f\nFrom %s to %s",
		cfg.GroupName, cfg.Type, cfg.TotalAmount,
		cfg.StartTime.Format(dateFormat), cfg.EndTime.Format(dateFormat)))

	result, err := b.ledger.CreatePool(ctx, cfg.GroupName, cfg.StartTime, cfg.EndTime, b.poolAmount)
	if err != nil {
		b.logger.Warn("on-chain pool creation failed", zap.Int64("group_id", cfg.GroupID), zap.Error(err))
		b.reply(chatID, "⚠️ The event is saved, but creating the on-chain pool failed: "+err.Error())
	} else {
		b.reply(chatID, fmt.Sprintf("🔗 On-chain pool created. Tx: %s (%s)", result.Hash, result.Status))
	}

	announcementID, err := b.gw.SendMessage(cfg.GroupID, reward.Announcement(cfg))
	if err != nil {
		b.logger.Warn("announcement failed", zap.Int64("group_id", cfg.GroupID), zap.Error(err))
		return
	}
	if err := b.gw.PinMessage(cfg.GroupID, announcementID); err != nil {
		b.logger.Warn("pin announcement failed", zap.Int64("group_id", cfg.GroupID), zap.Error(err))
	}
}
