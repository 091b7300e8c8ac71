package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/cheng-chun-yuan/yap2win/internal/verify"
)

const promptRuleSpec = "🔧 Setting verification rules for %s.\n\n" +
	"Give me the requirements in one line, 'None' skips a field:\n" +
	"Country: [name or None], Age: [number or None], NFT: [penguin/ape or None]\n\n" +
	"Example: Country: Taiwan, Age: 18, NFT: penguin"

func (b *Bot) startRuleSpec(userID, chatID int64, group GroupRef) {
	b.setSession(userID, &Session{
		Kind: SessionRule,
		Rule: &RuleSession{Step: RuleEnteringSpec, Group: group},
	})
	b.reply(chatID, fmt.Sprintf(promptRuleSpec, group.Name))
}

func (b *Bot) handleRuleMessage(ctx context.Context, msg *tgbotapi.Message, sess *RuleSession) {
	text := strings.TrimSpace(msg.Text)
	chatID := msg.Chat.ID

	switch sess.Step {
	case RuleChoosingGroup:
		group, ok := parseGroupChoice(text, sess.Groups)
		if !ok {
			b.reply(chatID, fmt.Sprintf("❌ Please reply with a number between 1 and %d.", len(sess.Groups)))
			return
		}
		sess.Group = group
		sess.Step = RuleEnteringSpec
		b.reply(chatID, fmt.Sprintf(promptRuleSpec, group.Name))

	case RuleEnteringSpec:
		rule := verify.ParseRuleSpec(sess.Group.ID, text)
		if err := b.store.SetRule(ctx, rule); err != nil {
			b.logger.Error("save rule failed", zap.Int64("group_id", sess.Group.ID), zap.Error(err))
			b.reply(chatID, "Something went wrong saving the rule, please try again.")
			return
		}
		b.clearSession(msg.From.ID)

		b.reply(chatID, fmt.Sprintf("✅ Verification rules set for %s.\n\n%s",
			sess.Group.Name, verify.RequirementsText(rule)))

		b.createRulePool(ctx, chatID, sess.Group)
	}
}

// createRulePool funds a default on-chain pool for the group, a week long
// starting now. Failures are reported but the saved rule stands.
func (b *Bot) createRulePool(ctx context.Context, chatID int64, group GroupRef) {
	b.reply(chatID, "🔗 Creating reward pool on-chain...")

	name := fmt.Sprintf("Group_%d_Pool", group.ID)
	start := b.now()
	end := start.Add(7 * 24 * time.Hour)

	result, err := b.ledger.CreatePool(ctx, name, start, end, b.poolAmount)
	if err != nil {
		b.logger.Warn("on-chain pool creation failed", zap.Int64("group_id", group.ID), zap.Error(err))
		b.reply(chatID, "⚠️ Creating the on-chain pool failed: "+err.Error())
		return
	}
	b.reply(chatID, fmt.Sprintf(
		"🎉 Reward pool created on-chain!\n\nGroup: %s\nPool: %s\nAmount: %.2f ROSE\nTx: %s (%s)",
		group.Name, name, b.poolAmount, result.Hash, result.Status))
}
