package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// AllowedUpdates - бот читает только сообщения.
var AllowedUpdates = []string{"message"}

// Client - обёртка над tgbotapi.BotAPI с context и типизированными ошибками.
type Client struct {
	api    *tgbotapi.BotAPI
	logger *zap.Logger
}

// NewClient создаёт клиент и проверяет токен вызовом getMe.
// timeout должен быть больше таймаута long polling.
func NewClient(baseURL, token string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	endpoint := strings.TrimSuffix(baseURL, "/") + "/bot%s/%s"
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("telegram getMe: %w", convertError(err))
	}
	return &Client{api: api, logger: logger.Named("TelegramClient")}, nil
}

// Self - аккаунт бота, полученный при создании клиента.
func (c *Client) Self() tgbotapi.User {
	return c.api.Self
}

// call выполняет вызов библиотеки, возвращаясь при отмене ctx.
// Сам HTTP-запрос при этом доживает до таймаута клиента, его результат отбрасывается.
func call[T any](ctx context.Context, method string, fn func() (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, fmt.Errorf("telegram %s: %w", method, err)
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{value: v, err: err}
	}()
	select {
	case <-ctx.Done():
		return zero, fmt.Errorf("telegram %s: %w", method, ctx.Err())
	case r := <-done:
		if r.err != nil {
			return zero, fmt.Errorf("telegram %s: %w", method, convertError(r.err))
		}
		return r.value, nil
	}
}

func (c *Client) GetMe(ctx context.Context) (tgbotapi.User, error) {
	return call(ctx, "getMe", c.api.GetMe)
}

func (c *Client) GetWebhookInfo(ctx context.Context) (tgbotapi.WebhookInfo, error) {
	return call(ctx, "getWebhookInfo", c.api.GetWebhookInfo)
}

// SetWebhook регистрирует адрес вебхука. Telegram будет присылать secret в заголовке
// X-Telegram-Bot-Api-Secret-Token.
// WebhookConfig библиотеки не знает secret_token, поэтому параметры собираются вручную.
func (c *Client) SetWebhook(ctx context.Context, webhookURL, secret string) error {
	params := tgbotapi.Params{"url": webhookURL}
	params.AddNonEmpty("secret_token", secret)
	if err := params.AddInterface("allowed_updates", AllowedUpdates); err != nil {
		return fmt.Errorf("telegram setWebhook: %w", err)
	}
	_, err := call(ctx, "setWebhook", func() (*tgbotapi.APIResponse, error) {
		return c.api.MakeRequest("setWebhook", params)
	})
	return err
}

func (c *Client) DeleteWebhook(ctx context.Context, dropPending bool) error {
	_, err := call(ctx, "deleteWebhook", func() (*tgbotapi.APIResponse, error) {
		return c.api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: dropPending})
	})
	return err
}

// GetUpdates - long polling. timeout округляется до секунд.
func (c *Client) GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]tgbotapi.Update, error) {
	cfg := tgbotapi.NewUpdate(offset)
	cfg.Timeout = int(timeout / time.Second)
	cfg.AllowedUpdates = AllowedUpdates
	return call(ctx, "getUpdates", func() ([]tgbotapi.Update, error) {
		return c.api.GetUpdates(cfg)
	})
}

func (c *Client) SendMessage(ctx context.Context, msg tgbotapi.MessageConfig) (tgbotapi.Message, error) {
	return call(ctx, "sendMessage", func() (tgbotapi.Message, error) {
		return c.api.Send(msg)
	})
}
