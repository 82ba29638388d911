package telegram

import (
	"context"

	"millionaire-bot/internal/domain"
	"millionaire-bot/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Имена транспорта для метрик.
const (
	TransportPolling = "polling"
	TransportWebhook = "webhook"
)

// Handler обрабатывает одно сообщение игрока.
type Handler interface {
	HandleMessage(ctx context.Context, msg domain.IncomingMessage) (*domain.Reply, error)
}

// ToIncoming извлекает текстовое сообщение из апдейта.
// Апдейты без текста и сообщения от ботов пропускаются.
func ToIncoming(u tgbotapi.Update) (domain.IncomingMessage, bool) {
	m := u.Message
	if m == nil || m.Chat == nil || m.Text == "" {
		return domain.IncomingMessage{}, false
	}
	msg := domain.IncomingMessage{ChatID: m.Chat.ID, Text: m.Text}
	if m.From != nil {
		if m.From.IsBot {
			return domain.IncomingMessage{}, false
		}
		msg.User = domain.User{
			ID:           m.From.ID,
			IsBot:        m.From.IsBot,
			FirstName:    m.From.FirstName,
			LastName:     m.From.LastName,
			Username:     m.From.UserName,
			LanguageCode: m.From.LanguageCode,
		}
	}
	return msg, true
}

// HandleUpdate передаёт апдейт обработчику и считает исход в метриках.
func HandleUpdate(ctx context.Context, h Handler, u tgbotapi.Update, transport string, logger *zap.Logger) error {
	msg, ok := ToIncoming(u)
	if !ok {
		metrics.UpdatesTotal.WithLabelValues(transport, "ignored").Inc()
		return nil
	}
	if _, err := h.HandleMessage(ctx, msg); err != nil {
		metrics.UpdatesTotal.WithLabelValues(transport, "failed").Inc()
		logger.Error("Failed to handle update",
			zap.Int("update_id", u.UpdateID),
			zap.Int64("chat_id", msg.ChatID),
			zap.Error(err))
		return err
	}
	metrics.UpdatesTotal.WithLabelValues(transport, "handled").Inc()
	return nil
}
