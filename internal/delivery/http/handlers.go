package http

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"millionaire-bot/internal/delivery/http/middleware"
	"millionaire-bot/internal/domain"
	"millionaire-bot/internal/telegram"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// SecretTokenHeader - заголовок, в котором Telegram передаёт secret_token вебхука.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

const (
	dateLayout       = "2006-01-02"
	defaultStatsDays = 7
)

// SessionCounter - количество активных чатов.
type SessionCounter interface {
	Count(ctx context.Context) (int64, error)
}

// StatsReader - отчёт "игр за день".
type StatsReader interface {
	GamesPerDay(ctx context.Context, from, to time.Time) ([]domain.GamesPerDay, error)
}

// ReadinessCheck - проверка зависимости для /ready.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler - HTTP обработчики бота: вебхук Telegram, пробы и статистика админки.
type Handler struct {
	engine        telegram.Handler
	sessions      SessionCounter
	stats         StatsReader // nil, если события не пишутся в PostgreSQL
	webhookSecret string
	checks        []ReadinessCheck
	logger        *zap.Logger
}

func NewHandler(
	engine telegram.Handler,
	sessions SessionCounter,
	stats StatsReader,
	webhookSecret string,
	checks []ReadinessCheck,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		engine:        engine,
		sessions:      sessions,
		stats:         stats,
		webhookSecret: webhookSecret,
		checks:        checks,
		logger:        logger.Named("HTTPHandler"),
	}
}

// Webhook принимает один апдейт. Ошибка хранилища отдаётся как 500,
// и Telegram повторит доставку.
func (h *Handler) Webhook(c *gin.Context) {
	if h.webhookSecret != "" {
		got := c.GetHeader(SecretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.webhookSecret)) != 1 {
			h.logger.Warn("Webhook request with wrong secret token", zap.String("ip", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, middleware.ErrorResponse{Error: "invalid secret token"})
			return
		}
	}

	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, middleware.ErrorResponse{Error: "invalid update"})
		return
	}

	if err := telegram.HandleUpdate(c.Request.Context(), h.engine, update, telegram.TransportWebhook, h.logger); err != nil {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, middleware.ErrorResponse{Error: "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready проверяет зависимости (PostgreSQL, Redis, RabbitMQ) с коротким таймаутом.
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for _, check := range h.checks {
		if err := check.Check(ctx); err != nil {
			failed[check.Name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "failed": failed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

type statsResponse struct {
	ActiveSessions int64                `json:"active_sessions"`
	From           string               `json:"from,omitempty"`
	To             string               `json:"to,omitempty"`
	GamesPerDay    []domain.GamesPerDay `json:"games_per_day,omitempty"`
}

// Stats - количество активных чатов и отчёт "игр за день".
// Параметры from/to (YYYY-MM-DD, to включительно), по умолчанию последние 7 дней.
func (h *Handler) Stats(c *gin.Context) {
	ctx := c.Request.Context()
	subject, _ := middleware.GetAdminSubject(c)
	log := h.logger.With(zap.String("admin", subject))

	count, err := h.sessions.Count(ctx)
	if err != nil {
		log.Error("Failed to count sessions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, middleware.ErrorResponse{Error: "internal error"})
		return
	}
	resp := statsResponse{ActiveSessions: count}

	if h.stats != nil {
		from, to, ok := parseRange(c)
		if !ok {
			c.JSON(http.StatusBadRequest, middleware.ErrorResponse{Error: "from/to must be YYYY-MM-DD and from <= to"})
			return
		}
		report, err := h.stats.GamesPerDay(ctx, from, to.AddDate(0, 0, 1))
		if err != nil {
			log.Error("Failed to build games per day report", zap.Error(err))
			c.JSON(http.StatusInternalServerError, middleware.ErrorResponse{Error: "internal error"})
			return
		}
		resp.From, resp.To = from.Format(dateLayout), to.Format(dateLayout)
		resp.GamesPerDay = report
	}
	c.JSON(http.StatusOK, resp)
}

func parseRange(c *gin.Context) (from, to time.Time, ok bool) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	to, from = today, today.AddDate(0, 0, -(defaultStatsDays-1))

	var err error
	if s := c.Query("to"); s != "" {
		if to, err = time.Parse(dateLayout, s); err != nil {
			return time.Time{}, time.Time{}, false
		}
	}
	if s := c.Query("from"); s != "" {
		if from, err = time.Parse(dateLayout, s); err != nil {
			return time.Time{}, time.Time{}, false
		}
	} else if c.Query("to") != "" {
		from = to.AddDate(0, 0, -(defaultStatsDays - 1))
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}
