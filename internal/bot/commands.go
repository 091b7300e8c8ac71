package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/cheng-chun-yuan/yap2win/internal/reward"
	"github.com/cheng-chun-yuan/yap2win/internal/verify"
)

const helpText = `🤖 Yap2Win Bot Commands

📋 General:
/help - Show this message
/hello - Say hi
/status [group name] - Your points, overall or for one group
/verify - Verify yourself for a group (private chat)

🏆 Events (in groups):
/leaderboard - Current event standings
/reward or /rewards - Event details and time remaining
/result - Standings during an event, final results after

👑 Admins:
/init [group_id] - Start listening in a group
/end [group_id] - Stop listening in a group
/set - Configure a reward event (private chat)
/set_rule [group_id] - Set verification rules (private chat)
/cancel - Abort the current dialog`

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	command := msg.Command()

	// Any command interrupts an in-flight dialog, except /cancel which
	// handles its own cleanup message.
	if command != "cancel" {
		b.clearSession(userID)
	}

	switch command {
	case "start":
		b.reply(msg.Chat.ID,
			"👋 Welcome! I score chat messages and run reward events.\n\n"+helpText)
	case "hello":
		b.reply(msg.Chat.ID, fmt.Sprintf("👋 Hello, %s!", msg.From.FirstName))
	case "help":
		b.reply(msg.Chat.ID, helpText)
	case "init":
		b.handleInit(ctx, msg)
	case "end":
		b.handleEnd(ctx, msg)
	case "status":
		b.handleStatus(ctx, msg)
	case "leaderboard", "reward", "rewards":
		b.handleEventInfo(ctx, msg)
	case "result":
		b.handleResult(ctx, msg)
	case "set":
		b.handleSet(ctx, msg)
	case "set_rule":
		b.handleSetRule(ctx, msg)
	case "verify":
		b.handleVerify(ctx, msg)
	case "cancel":
		if b.clearSession(userID) {
			b.reply(msg.Chat.ID, "❌ Cancelled.")
		} else {
			b.reply(msg.Chat.ID, "Nothing to cancel.")
		}
	default:
		b.reply(msg.Chat.ID, "Unknown command. Use /help to see what I can do.")
	}
}

// targetGroupID resolves which group an /init or /end applies to: the
// current chat for group usage, or an explicit id in private chat.
func (b *Bot) targetGroupID(msg *tgbotapi.Message) (int64, bool) {
	if msg.Chat.IsGroup() || msg.Chat.IsSuperGroup() {
		return msg.Chat.ID, true
	}
	arg := strings.TrimSpace(msg.CommandArguments())
	if arg == "" {
		b.reply(msg.Chat.ID, "In private chat you need to give a group id, e.g. /"+msg.Command()+" -1001234567890")
		return 0, false
	}
	groupID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		b.reply(msg.Chat.ID, fmt.Sprintf("❌ %q is not a valid group id.", arg))
		return 0, false
	}
	return groupID, true
}

func (b *Bot) isAdmin(groupID, userID int64) bool {
	status, err := b.gw.GetChatMember(groupID, userID)
	if err != nil {
		b.logger.Warn("admin check failed",
			zap.Int64("group_id", groupID),
			zap.Int64("user_id", userID),
			zap.Error(err))
		return false
	}
	return adminStatuses[status]
}

func (b *Bot) handleInit(ctx context.Context, msg *tgbotapi.Message) {
	groupID, ok := b.targetGroupID(msg)
	if !ok {
		return
	}
	if !b.isAdmin(groupID, msg.From.ID) {
		b.reply(msg.Chat.ID, "❌ Only group admins can do that.")
		return
	}
	if err := b.store.AddListeningGroup(ctx, groupID); err != nil {
		b.logger.Error("add listening group failed", zap.Int64("group_id", groupID), zap.Error(err))
		b.reply(msg.Chat.ID, "Something went wrong, please try again.")
		return
	}
	b.reply(msg.Chat.ID, "✅ I'm now listening here. Messages count toward reward events.")
	b.logger.Info("listening enabled", zap.Int64("group_id", groupID))
}

func (b *Bot) handleEnd(ctx context.Context, msg *tgbotapi.Message) {
	groupID, ok := b.targetGroupID(msg)
	if !ok {
		return
	}
	if !b.isAdmin(groupID, msg.From.ID) {
		b.reply(msg.Chat.ID, "❌ Only group admins can do that.")
		return
	}
	if err := b.store.RemoveListeningGroup(ctx, groupID); err != nil {
		b.logger.Error("remove listening group failed", zap.Int64("group_id", groupID), zap.Error(err))
		b.reply(msg.Chat.ID, "Something went wrong, please try again.")
		return
	}
	b.reply(msg.Chat.ID, "🛑 I stopped listening here. Points are still tracked, events are not.")
	b.logger.Info("listening disabled", zap.Int64("group_id", groupID))
}

func (b *Bot) handleStatus(ctx context.Context, msg *tgbotapi.Message) {
	filter := strings.TrimSpace(msg.CommandArguments())
	text, err := b.formatUserStatus(ctx, msg.From.ID, filter)
	if err != nil {
		b.logger.Error("status lookup failed", zap.Int64("user_id", msg.From.ID), zap.Error(err))
		b.reply(msg.Chat.ID, "Something went wrong, please try again.")
		return
	}
	b.reply(msg.Chat.ID, text)
}

// requireListeningGroup guards the event commands, which only make sense in
// groups the bot was activated in.
func (b *Bot) requireListeningGroup(ctx context.Context, msg *tgbotapi.Message) bool {
	if !msg.Chat.IsGroup() && !msg.Chat.IsSuperGroup() {
		b.reply(msg.Chat.ID, "❌ This command only works in groups where I'm listening.")
		return false
	}
	listening, err := b.store.IsListeningGroup(ctx, msg.Chat.ID)
	if err != nil {
		b.logger.Error("listening check failed", zap.Int64("group_id", msg.Chat.ID), zap.Error(err))
		return false
	}
	if !listening {
		b.reply(msg.Chat.ID, "❌ This command only works in groups where I'm listening.")
		return false
	}
	return true
}

func (b *Bot) handleEventInfo(ctx context.Context, msg *tgbotapi.Message) {
	if !b.requireListeningGroup(ctx, msg) {
		return
	}
	text, err := b.engine.Standings(ctx, msg.Chat.ID)
	if err != nil {
		b.logger.Error("standings failed", zap.Int64("group_id", msg.Chat.ID), zap.Error(err))
		b.reply(msg.Chat.ID, "Something went wrong, please try again.")
		return
	}
	b.reply(msg.Chat.ID, text)
}

func (b *Bot) handleResult(ctx context.Context, msg *tgbotapi.Message) {
	if !b.requireListeningGroup(ctx, msg) {
		return
	}
	groupID := msg.Chat.ID

	status, err := b.engine.Status(ctx, groupID)
	if err != nil {
		b.logger.Error("event status failed", zap.Int64("group_id", groupID), zap.Error(err))
		return
	}
	switch status {
	case reward.StatusFinished:
		cfg, err := b.store.EventConfig(ctx, groupID)
		if err != nil || cfg == nil {
			b.reply(msg.Chat.ID, "🏁 No events configured in this group.")
			return
		}
		text, err := b.engine.Results(ctx, cfg)
		if err != nil {
			b.logger.Error("render results failed", zap.Int64("group_id", groupID), zap.Error(err))
			return
		}
		b.reply(msg.Chat.ID, text)
	case reward.StatusTimeExpired:
		b.reply(msg.Chat.ID, "🏁 The event time is up. Final results will be announced soon!")
	default:
		text, err := b.engine.Standings(ctx, groupID)
		if err != nil {
			b.logger.Error("standings failed", zap.Int64("group_id", groupID), zap.Error(err))
			return
		}
		b.reply(msg.Chat.ID, text)
	}
}

// adminGroups filters candidate group ids down to the ones where the user is
// an admin. Groups the gateway cannot resolve are skipped.
func (b *Bot) adminGroups(userID int64, candidates []int64) []GroupRef {
	var groups []GroupRef
	seen := make(map[int64]bool)
	for _, groupID := range candidates {
		if seen[groupID] {
			continue
		}
		seen[groupID] = true

		status, err := b.gw.GetChatMember(groupID, userID)
		if err != nil || !adminStatuses[status] {
			continue
		}
		name := fmt.Sprintf("Group %d", groupID)
		if info, err := b.gw.GetChat(groupID); err == nil && info.Title != "" {
			name = info.Title
		}
		groups = append(groups, GroupRef{ID: groupID, Name: name})
	}
	return groups
}

func formatGroupChoices(groups []GroupRef) string {
	var bld strings.Builder
	for i, g := range groups {
		bld.WriteString(fmt.Sprintf("%d. %s\n", i+1, g.Name))
	}
	bld.WriteString(fmt.Sprintf("\nReply with a number (1-%d):", len(groups)))
	return bld.String()
}

// parseGroupChoice resolves a numbered reply against the offered list.
func parseGroupChoice(text string, groups []GroupRef) (GroupRef, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 1 || n > len(groups) {
		return GroupRef{}, false
	}
	return groups[n-1], true
}

func (b *Bot) handleSet(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.Chat.IsPrivate() {
		b.reply(msg.Chat.ID, "❌ Use /set in a private chat with me.")
		return
	}

	candidates, err := b.store.ListeningGroups(ctx)
	if err != nil {
		b.logger.Error("list listening groups failed", zap.Error(err))
		b.reply(msg.Chat.ID, "Something went wrong, please try again.")
		return
	}
	groups := b.adminGroups(msg.From.ID, candidates)
	if len(groups) == 0 {
		b.reply(msg.Chat.ID,
			"❌ You're not an admin in any group I'm listening to. Use /init in your group first.")
		return
	}

	b.setSession(msg.From.ID, &Session{
		Kind:  SessionSetup,
		Setup: &SetupSession{Step: SetupChoosingGroup, Groups: groups},
	})
	b.reply(msg.Chat.ID, "🏆 Which group gets the reward event?\n\n"+formatGroupChoices(groups))
}

func (b *Bot) handleSetRule(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.Chat.IsPrivate() {
		b.reply(msg.Chat.ID, "❌ Use /set_rule in a private chat with me.")
		return
	}

	// Direct form: /set_rule <group_id>
	if arg := strings.TrimSpace(msg.CommandArguments()); arg != "" {
		groupID, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			b.reply(msg.Chat.ID, fmt.Sprintf("❌ %q is not a valid group id.", arg))
			return
		}
		if !b.isAdmin(groupID, msg.From.ID) {
			b.reply(msg.Chat.ID, "❌ You are not an admin in that group.")
			return
		}
		name := fmt.Sprintf("Group %d", groupID)
		if info, err := b.gw.GetChat(groupID); err == nil && info.Title != "" {
			name = info.Title
		}
		b.startRuleSpec(msg.From.ID, msg.Chat.ID, GroupRef{ID: groupID, Name: name})
		return
	}

	candidates, err := b.ruleCandidateGroups(ctx)
	if err != nil {
		b.logger.Error("list candidate groups failed", zap.Error(err))
		b.reply(msg.Chat.ID, "Something went wrong, please try again.")
		return
	}
	groups := b.adminGroups(msg.From.ID, candidates)
	if len(groups) == 0 {
		b.reply(msg.Chat.ID,
			"❌ You're not an admin in any group I know. Use /init in your group first.")
		return
	}

	b.setSession(msg.From.ID, &Session{
		Kind: SessionRule,
		Rule: &RuleSession{Step: RuleChoosingGroup, Groups: groups},
	})
	b.reply(msg.Chat.ID, "👑 Which group gets verification rules?\n\n"+formatGroupChoices(groups))
}

// ruleCandidateGroups unions the groups the bot listens to with the groups
// that already have rules.
func (b *Bot) ruleCandidateGroups(ctx context.Context) ([]int64, error) {
	listening, err := b.store.ListeningGroups(ctx)
	if err != nil {
		return nil, err
	}
	ruled, err := b.store.RuleGroups(ctx)
	if err != nil {
		return nil, err
	}
	return append(listening, ruled...), nil
}

func (b *Bot) handleVerify(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.Chat.IsPrivate() {
		b.reply(msg.Chat.ID, "🔐 Please send me /verify in a private chat.")
		return
	}

	// Direct form: /verify <group_id>
	if arg := strings.TrimSpace(msg.CommandArguments()); arg != "" {
		groupID, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			b.reply(msg.Chat.ID, fmt.Sprintf("❌ %q is not a valid group id.", arg))
			return
		}
		b.startVerification(ctx, msg.From.ID, msg.Chat.ID, groupID)
		return
	}

	ruleGroupIDs, err := b.store.RuleGroups(ctx)
	if err != nil {
		b.logger.Error("list rule groups failed", zap.Error(err))
		b.reply(msg.Chat.ID, "Something went wrong, please try again.")
		return
	}
	if len(ruleGroupIDs) == 0 {
		b.reply(msg.Chat.ID, "✅ No group here requires verification right now.")
		return
	}
	if len(ruleGroupIDs) == 1 {
		b.startVerification(ctx, msg.From.ID, msg.Chat.ID, ruleGroupIDs[0])
		return
	}

	var options []verify.GroupOption
	for _, groupID := range ruleGroupIDs {
		name := fmt.Sprintf("Group %d", groupID)
		if info, err := b.gw.GetChat(groupID); err == nil && info.Title != "" {
			name = info.Title
		}
		options = append(options, verify.GroupOption{ID: groupID, Name: name})
	}

	b.setSession(msg.From.ID, &Session{
		Kind: SessionVerify,
		Verify: &verify.Session{
			UserID: msg.From.ID,
			Step:   verify.StepChooseGroup,
			Groups: options,
		},
	})

	var bld strings.Builder
	bld.WriteString("🔐 Which group do you want to verify for?\n\n")
	for i, opt := range options {
		bld.WriteString(fmt.Sprintf("%d. %s\n", i+1, opt.Name))
	}
	bld.WriteString(fmt.Sprintf("\nReply with a number (1-%d):", len(options)))
	b.reply(msg.Chat.ID, bld.String())
}
