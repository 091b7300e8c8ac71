package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/cheng-chun-yuan/yap2win/internal/assets"
	"github.com/cheng-chun-yuan/yap2win/internal/models"
	"github.com/cheng-chun-yuan/yap2win/internal/verify"
)

func (b *Bot) startVerification(ctx context.Context, userID, chatID, groupID int64) {
	rule, err := b.store.Rule(ctx, groupID)
	if err != nil {
		b.logger.Error("load rule failed", zap.Int64("group_id", groupID), zap.Error(err))
		b.reply(chatID, "Something went wrong, please try again.")
		return
	}
	if rule == nil || rule.Empty() {
		b.reply(chatID, "✅ This group has no verification requirements. You're good to go!")
		return
	}

	sess := &verify.Session{
		UserID:  userID,
		GroupID: groupID,
		Rule:    *rule,
		Step:    verify.FirstStep(*rule),
	}
	b.setSession(userID, &Session{Kind: SessionVerify, Verify: sess})

	b.reply(chatID, verify.RequirementsText(*rule))
	if sess.Step == verify.StepDone {
		b.finishVerification(ctx, chatID, sess)
		return
	}
	b.reply(chatID, b.verifyPrompt(sess))
}

// verifyPrompt renders the question for the session's current step.
func (b *Bot) verifyPrompt(sess *verify.Session) string {
	switch sess.Step {
	case verify.StepCountry:
		return fmt.Sprintf(
			"🌍 This group requires residents of %s.\n\n"+
				"Verify your identity here: %s\n\n"+
				"Reply 'verified' once you're done.",
			sess.Rule.Country, b.identityVerifyURL)
	case verify.StepAge:
		return fmt.Sprintf(
			"🔞 This group requires a minimum age of %d.\n\n"+
				"Verify your identity here: %s\n\n"+
				"Reply 'verified' once you're done.",
			sess.Rule.MinAge, b.identityVerifyURL)
	case verify.StepWallet:
		return "👛 Please send me your wallet address (0x followed by 40 hex characters):"
	default:
		return ""
	}
}

func (b *Bot) handleVerifyMessage(ctx context.Context, msg *tgbotapi.Message, sess *verify.Session) {
	text := strings.TrimSpace(msg.Text)
	chatID := msg.Chat.ID

	switch sess.Step {
	case verify.StepChooseGroup:
		n, err := strconv.Atoi(text)
		if err != nil || n < 1 || n > len(sess.Groups) {
			b.reply(chatID, fmt.Sprintf("❌ Please reply with a number between 1 and %d.", len(sess.Groups)))
			return
		}
		b.clearSession(msg.From.ID)
		b.startVerification(ctx, msg.From.ID, chatID, sess.Groups[n-1].ID)

	case verify.StepCountry:
		if !strings.EqualFold(text, "verified") {
			b.reply(chatID, "Reply 'verified' after completing the identity check, or /cancel to stop.")
			return
		}
		sess.CountryConfirmed = true
		b.advanceVerification(ctx, chatID, sess)

	case verify.StepAge:
		if !strings.EqualFold(text, "verified") {
			b.reply(chatID, "Reply 'verified' after completing the identity check, or /cancel to stop.")
			return
		}
		sess.AgeConfirmed = true
		b.advanceVerification(ctx, chatID, sess)

	case verify.StepWallet:
		if !verify.ValidWalletAddress(text) {
			b.reply(chatID, "❌ That doesn't look like a wallet address. "+
				"It should be 0x followed by 40 hex characters, e.g. 0xBd3531dA5CF5857e7CfAA92426877b022e612cf8")
			return
		}
		sess.Address = text

		if sess.Rule.NFTHolder != "" && !b.checkAssetHolding(ctx, chatID, sess) {
			return
		}
		b.advanceVerification(ctx, chatID, sess)
	}
}

// checkAssetHolding runs the NFT ownership check for the wallet step. A
// false return means the step does not advance.
func (b *Bot) checkAssetHolding(ctx context.Context, chatID int64, sess *verify.Session) bool {
	owns, err := b.verifier.CheckAsset(ctx, sess)
	if err != nil {
		b.logger.Warn("nft lookup failed",
			zap.Int64("user_id", sess.UserID),
			zap.Error(err))
		b.reply(chatID, "⚠️ I couldn't check your NFT holdings right now. Please try again later.")
		return false
	}
	if !owns {
		text := fmt.Sprintf("❌ This group requires holding a %s NFT, and the address %s doesn't have one.",
			assets.CollectionName(sess.Rule.NFTHolder), sess.Address)
		if summary, err := b.verifier.HoldingsSummary(ctx, sess); err == nil {
			text += "\n\nYour holdings:" + formatHoldings(summary)
		}
		b.reply(chatID, text)
		b.failVerification(ctx, chatID, sess)
		return false
	}
	sess.NFTVerified = true
	return true
}

func formatHoldings(summary map[models.AssetKind]int) string {
	var bld strings.Builder
	for _, kind := range assets.Kinds {
		bld.WriteString(fmt.Sprintf("\n• %s: %d", assets.CollectionName(kind), summary[kind]))
	}
	return bld.String()
}

func (b *Bot) advanceVerification(ctx context.Context, chatID int64, sess *verify.Session) {
	sess.Step = verify.NextStep(sess.Rule, sess.Step)
	if sess.Step != verify.StepDone {
		b.reply(chatID, b.verifyPrompt(sess))
		return
	}
	b.finishVerification(ctx, chatID, sess)
}

func (b *Bot) finishVerification(ctx context.Context, chatID int64, sess *verify.Session) {
	defer b.clearSession(sess.UserID)

	passed, err := b.verifier.Complete(ctx, sess)
	if err != nil {
		b.logger.Error("complete verification failed",
			zap.Int64("user_id", sess.UserID),
			zap.Error(err))
		b.reply(chatID, "Something went wrong, please try /verify again.")
		return
	}
	if !passed {
		b.reply(chatID, "❌ Verification failed. You can try again with /verify.")
		return
	}

	b.reply(chatID, "✅ You're verified! You can now participate in reward events.")
	// The group only hears about passes.
	b.reply(sess.GroupID, "🎉 A new member just completed verification!")
}

func (b *Bot) failVerification(ctx context.Context, chatID int64, sess *verify.Session) {
	defer b.clearSession(sess.UserID)

	if _, err := b.verifier.Complete(ctx, sess); err != nil {
		b.logger.Error("complete verification failed",
			zap.Int64("user_id", sess.UserID),
			zap.Error(err))
	}
	b.reply(chatID, "❌ Verification failed. You can try again with /verify.")
}
