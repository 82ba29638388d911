package telegram

import (
	"context"
	"errors"
	"fmt"
	"time"

	"millionaire-bot/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sender - часть Client, через которую Messenger отправляет сообщения.
type Sender interface {
	SendMessage(ctx context.Context, msg tgbotapi.MessageConfig) (tgbotapi.Message, error)
}

// Messenger отправляет ответы игры в Telegram.
// На 429 ждёт RetryAfter и повторяет не более retries раз, прочие ошибки возвращает сразу.
type Messenger struct {
	sender  Sender
	retries int
	logger  *zap.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewMessenger(sender Sender, retries int, logger *zap.Logger) *Messenger {
	return &Messenger{
		sender:  sender,
		retries: retries,
		logger:  logger.Named("Messenger"),
		sleep:   sleepContext,
	}
}

func (m *Messenger) Send(ctx context.Context, reply domain.Reply) error {
	req := tgbotapi.NewMessage(reply.ChatID, reply.Text)
	if markup := markupFromKeyboard(reply.Keyboard); markup != nil {
		req.ReplyMarkup = markup
	}
	if reply.Markdown {
		req.ParseMode = tgbotapi.ModeMarkdown
	}

	for attempt := 0; ; attempt++ {
		_, err := m.sender.SendMessage(ctx, req)
		if err == nil {
			return nil
		}
		var tooMany *TooManyRequestsError
		if !errors.As(err, &tooMany) || attempt >= m.retries {
			return err
		}
		m.logger.Warn("Rate limited by Telegram, waiting",
			zap.Int64("chat_id", reply.ChatID),
			zap.Duration("retry_after", tooMany.RetryAfter),
			zap.Int("attempt", attempt+1))
		if err := m.sleep(ctx, tooMany.RetryAfter); err != nil {
			return fmt.Errorf("ожидание retry_after прервано: %w", err)
		}
	}
}

func markupFromKeyboard(kb *domain.Keyboard) any {
	if kb == nil {
		return nil
	}
	if kb.Remove {
		return tgbotapi.NewRemoveKeyboard(false)
	}
	rows := make([][]tgbotapi.KeyboardButton, 0, len(kb.Rows))
	for _, row := range kb.Rows {
		if len(row) == 0 {
			continue
		}
		buttons := make([]tgbotapi.KeyboardButton, len(row))
		for i, text := range row {
			buttons[i] = tgbotapi.NewKeyboardButton(text)
		}
		rows = append(rows, buttons)
	}
	markup := tgbotapi.NewReplyKeyboard(rows...)
	markup.OneTimeKeyboard = kb.OneTime
	return markup
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
