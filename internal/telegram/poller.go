package telegram

import (
	"context"
	"errors"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// UpdatesSource - часть Client, нужная для long polling.
type UpdatesSource interface {
	GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]tgbotapi.Update, error)
	DeleteWebhook(ctx context.Context, dropPending bool) error
}

// Poller получает апдейты через getUpdates.
// Пачка делится по чатам: чаты обрабатываются параллельно, сообщения одного чата по порядку.
type Poller struct {
	source  UpdatesSource
	handler Handler
	timeout time.Duration
	logger  *zap.Logger
	offset  int
	backoff time.Duration
}

func NewPoller(source UpdatesSource, handler Handler, timeout time.Duration, logger *zap.Logger) *Poller {
	return &Poller{
		source:  source,
		handler: handler,
		timeout: timeout,
		logger:  logger.Named("Poller"),
		backoff: time.Second,
	}
}

// Run блокирует до отмены ctx. Перед стартом снимает вебхук, иначе getUpdates вернёт 409.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.source.DeleteWebhook(ctx, false); err != nil {
		return err
	}
	p.logger.Info("Long polling started", zap.Duration("timeout", p.timeout))

	for {
		if ctx.Err() != nil {
			p.logger.Info("Long polling stopped")
			return nil
		}
		updates, err := p.source.GetUpdates(ctx, p.offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			wait := p.backoff
			var tooMany *TooManyRequestsError
			if errors.As(err, &tooMany) {
				wait = tooMany.RetryAfter
			}
			p.logger.Warn("getUpdates failed", zap.Error(err), zap.Duration("retry_in", wait))
			_ = sleepContext(ctx, wait)
			continue
		}
		if len(updates) == 0 {
			continue
		}
		p.dispatch(ctx, updates)
		p.offset = updates[len(updates)-1].UpdateID + 1
	}
}

func (p *Poller) dispatch(ctx context.Context, updates []tgbotapi.Update) {
	byChat := make(map[int64][]tgbotapi.Update)
	var order []int64
	for _, u := range updates {
		var chatID int64
		if u.Message != nil && u.Message.Chat != nil {
			chatID = u.Message.Chat.ID
		}
		if _, seen := byChat[chatID]; !seen {
			order = append(order, chatID)
		}
		byChat[chatID] = append(byChat[chatID], u)
	}

	var wg sync.WaitGroup
	for _, chatID := range order {
		wg.Add(1)
		go func(batch []tgbotapi.Update) {
			defer wg.Done()
			for _, u := range batch {
				// ошибка уже залогирована, апдейт не повторяется
				_ = HandleUpdate(ctx, p.handler, u, TransportPolling, p.logger)
			}
		}(byChat[chatID])
	}
	wg.Wait()
}
