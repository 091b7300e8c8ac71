package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// HandleUpdate processes one Telegram update. Panics are contained so a bad
// update cannot take the bot down.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	b.updateMu.Lock()
	defer b.updateMu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic while handling update",
				zap.Any("panic", r),
				zap.Int("update_id", update.UpdateID))
		}
	}()

	if update.MyChatMember != nil {
		b.handleChatMemberUpdate(ctx, update.MyChatMember)
		return
	}
	if update.Message != nil {
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.From.IsBot {
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	if msg.Chat.IsPrivate() {
		b.handlePrivateMessage(ctx, msg)
		return
	}
	if msg.Chat.IsGroup() || msg.Chat.IsSuperGroup() {
		b.ingestGroupMessage(ctx, msg)
	}
}

func (b *Bot) handlePrivateMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	text := strings.TrimSpace(msg.Text)

	// Quick self-attestation path, available outside any dialog.
	if strings.EqualFold(text, "i am human") {
		if err := b.store.MarkVerified(ctx, userID); err != nil {
			b.logger.Error("mark verified failed", zap.Int64("user_id", userID), zap.Error(err))
			b.reply(msg.Chat.ID, "Something went wrong, please try again.")
			return
		}
		b.reply(msg.Chat.ID, "✅ Thanks! You are now verified.")
		return
	}

	sess := b.session(userID)
	if sess == nil {
		b.reply(msg.Chat.ID, "I didn't catch that. Use /help to see what I can do.")
		return
	}

	switch sess.Kind {
	case SessionSetup:
		b.handleSetupMessage(ctx, msg, sess.Setup)
	case SessionRule:
		b.handleRuleMessage(ctx, msg, sess.Rule)
	case SessionVerify:
		b.handleVerifyMessage(ctx, msg, sess.Verify)
	}
}

// handleChatMemberUpdate greets a group when the bot is added to it.
func (b *Bot) handleChatMemberUpdate(ctx context.Context, upd *tgbotapi.ChatMemberUpdated) {
	if upd.NewChatMember.User == nil || upd.NewChatMember.User.ID != b.api.Self.ID {
		return
	}
	status := upd.NewChatMember.Status
	if status != "member" && status != "administrator" {
		return
	}
	b.reply(upd.Chat.ID,
		"👋 Hi! I track points for quality messages and run reward events.\n"+
			"An admin can activate me here with /init.")
	b.logger.Info("bot added to group",
		zap.Int64("group_id", upd.Chat.ID),
		zap.String("group_name", upd.Chat.Title))
}

// session returns the user's live dialog session, discarding it when the TTL
// has lapsed.
func (b *Bot) session(userID int64) *Session {
	b.mu.Lock()
	defer b.mu.Unlock()

	sess, ok := b.sessions[userID]
	if !ok {
		return nil
	}
	if b.now().Sub(sess.Touched) > sessionTTL {
		delete(b.sessions, userID)
		return nil
	}
	sess.Touched = b.now()
	return sess
}

func (b *Bot) setSession(userID int64, sess *Session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sess.Touched = b.now()
	b.sessions[userID] = sess
}

func (b *Bot) clearSession(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.sessions[userID]
	delete(b.sessions, userID)
	return ok
}

// reply sends text and logs delivery failures instead of propagating them.
func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.gw.SendMessage(chatID, text); err != nil {
		b.logger.Error("send message failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
