package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ChatInfo is the subset of chat details the dialogs need.
type ChatInfo struct {
	ID    int64
	Title string
	Type  string
}

// Gateway abstracts the Telegram calls the bot logic depends on, so dialog
// and ingestion tests can run against a stub.
type Gateway interface {
	SendMessage(chatID int64, text string) (messageID int, err error)
	GetChatMember(chatID, userID int64) (status string, err error)
	GetChat(chatID int64) (ChatInfo, error)
	PinMessage(chatID int64, messageID int) error
	BanThenUnban(chatID, userID int64) error
}

type tgGateway struct {
	api *tgbotapi.BotAPI
}

func (g *tgGateway) SendMessage(chatID int64, text string) (int, error) {
	sent, err := g.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return 0, fmt.Errorf("send message to chat %d: %w", chatID, err)
	}
	return sent.MessageID, nil
}

func (g *tgGateway) GetChatMember(chatID, userID int64) (string, error) {
	member, err := g.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: chatID,
			UserID: userID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("get chat member %d in chat %d: %w", userID, chatID, err)
	}
	return member.Status, nil
}

func (g *tgGateway) GetChat(chatID int64) (ChatInfo, error) {
	chat, err := g.api.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return ChatInfo{}, fmt.Errorf("get chat %d: %w", chatID, err)
	}
	return ChatInfo{ID: chat.ID, Title: chat.Title, Type: chat.Type}, nil
}

func (g *tgGateway) PinMessage(chatID int64, messageID int) error {
	_, err := g.api.Request(tgbotapi.PinChatMessageConfig{
		ChatID:              chatID,
		MessageID:           messageID,
		DisableNotification: true,
	})
	if err != nil {
		return fmt.Errorf("pin message %d in chat %d: %w", messageID, chatID, err)
	}
	return nil
}

// BanThenUnban kicks a user without leaving a permanent ban.
func (g *tgGateway) BanThenUnban(chatID, userID int64) error {
	_, err := g.api.Request(tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{
			ChatID: chatID,
			UserID: userID,
		},
	})
	if err != nil {
		return fmt.Errorf("ban user %d in chat %d: %w", userID, chatID, err)
	}
	_, err = g.api.Request(tgbotapi.UnbanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{
			ChatID: chatID,
			UserID: userID,
		},
		OnlyIfBanned: true,
	})
	if err != nil {
		return fmt.Errorf("unban user %d in chat %d: %w", userID, chatID, err)
	}
	return nil
}
