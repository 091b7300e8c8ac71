package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/cheng-chun-yuan/yap2win/internal/scoring"
)

// ingestGroupMessage is the per-message pipeline: verification gate, scoring,
// ledger points, event points, finished-event sweep, score notification.
func (b *Bot) ingestGroupMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Text == "" {
		return
	}
	userID := msg.From.ID
	groupID := msg.Chat.ID
	groupName := msg.Chat.Title

	if b.enforceVerification {
		verified, err := b.store.IsVerified(ctx, userID)
		if err != nil {
			b.logger.Error("verification lookup failed", zap.Int64("user_id", userID), zap.Error(err))
			return
		}
		if !verified {
			b.kickUnverified(groupID, userID, groupName)
			return
		}
	}

	score, err := b.scorer.Score(ctx, msg.Text, scoring.SenderMeta{
		UserID:    userID,
		Username:  msg.From.UserName,
		FirstName: msg.From.FirstName,
	}, groupName)
	if err != nil {
		b.logger.Error("scoring failed", zap.Int64("user_id", userID), zap.Error(err))
		return
	}

	// General points accrue everywhere, listening or not.
	if score > 0 {
		if err := b.store.AddPoints(ctx, userID, groupID, score, groupName); err != nil {
			b.logger.Error("add points failed", zap.Int64("user_id", userID), zap.Error(err))
		}
	}

	listening, err := b.store.IsListeningGroup(ctx, groupID)
	if err != nil {
		b.logger.Error("listening check failed", zap.Int64("group_id", groupID), zap.Error(err))
	} else if listening {
		err := b.engine.AddParticipantScore(ctx, groupID, userID, score,
			msg.From.UserName, msg.From.FirstName)
		if err != nil {
			b.logger.Error("add participant score failed", zap.Int64("group_id", groupID), zap.Error(err))
		}
		b.sweepFinishedEvents(ctx)
	}

	if score > 0 {
		b.notifyScore(userID, groupID, score, groupName)
	}
}

// kickUnverified warns the user in private, then removes them from the group
// without a lasting ban.
func (b *Bot) kickUnverified(groupID, userID int64, groupName string) {
	if _, err := b.gw.SendMessage(userID,
		"🔐 You need to verify before chatting in "+groupName+". Use /verify here."); err != nil {
		b.logger.Warn("unverified warning dm failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	if err := b.gw.BanThenUnban(groupID, userID); err != nil {
		b.logger.Error("kick failed",
			zap.Int64("group_id", groupID),
			zap.Int64("user_id", userID),
			zap.Error(err))
		return
	}
	b.logger.Info("kicked unverified user",
		zap.Int64("group_id", groupID),
		zap.Int64("user_id", userID))
}

// notifyScore DMs the earned score, falling back to a group reply when the
// user has no private chat open with the bot.
func (b *Bot) notifyScore(userID, groupID int64, score float64, groupName string) {
	text := scoring.Notification(score, groupName)
	if _, err := b.gw.SendMessage(userID, text); err != nil {
		b.logger.Debug("score dm failed, falling back to group",
			zap.Int64("user_id", userID),
			zap.Error(err))
		b.reply(groupID, text)
	}
}

// sweepFinishedEvents settles every event whose time ran out and posts the
// results to its group.
func (b *Bot) sweepFinishedEvents(ctx context.Context) {
	expired, err := b.engine.FinishedEvents(ctx)
	if err != nil {
		b.logger.Error("finished event sweep failed", zap.Error(err))
		return
	}
	for _, cfg := range expired {
		results, err := b.engine.Finish(ctx, cfg.GroupID)
		if err != nil {
			b.logger.Error("finish event failed", zap.Int64("group_id", cfg.GroupID), zap.Error(err))
			continue
		}
		if results == "" {
			continue
		}
		b.reply(cfg.GroupID, results)
		b.logger.Info("event finished",
			zap.Int64("group_id", cfg.GroupID),
			zap.String("type", string(cfg.Type)))
	}
}
