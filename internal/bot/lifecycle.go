package bot

import (
	"context"
	"encoding/json"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Start runs long polling until the context is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 60
	cfg.AllowedUpdates = []string{"message", "my_chat_member"}

	updates := b.api.GetUpdatesChan(cfg)
	b.logger.Info("bot started polling", zap.String("username", b.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update := <-updates:
			b.HandleUpdate(ctx, update)
		}
	}
}

// StartWebhook registers the webhook with Telegram. Updates then arrive via
// HandleWebhookUpdate.
func (b *Bot) StartWebhook(webhookURL string) error {
	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return err
	}
	if _, err := b.api.Request(wh); err != nil {
		return err
	}
	b.logger.Info("webhook registered", zap.String("url", webhookURL))
	return nil
}

// HandleWebhookUpdate is the HTTP handler for Telegram webhook deliveries.
func (b *Bot) HandleWebhookUpdate(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		b.logger.Warn("bad webhook payload", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	b.HandleUpdate(r.Context(), update)
	w.WriteHeader(http.StatusOK)
}
