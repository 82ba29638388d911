package http

import (
	"time"

	"millionaire-bot/internal/delivery/http/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

// RouterConfig - настройки HTTP роутера.
type RouterConfig struct {
	Env            string
	AllowedOrigins []string
	AdminJWTSecret string
	// WebhookPath - пустой путь означает, что вебхук не регистрируется (режим polling).
	WebhookPath string
}

// NewRouter собирает gin роутер: логирование, recovery, метрики, CORS и маршруты.
func NewRouter(cfg RouterConfig, h *Handler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(middleware.GinZapLogger(logger.Named("HTTP")))
	router.Use(gin.Recovery())

	// /metrics отдаёт и метрики gin, и метрики игры из DefaultRegisterer
	p := ginprometheus.NewPrometheus("gin")
	p.Use(router)

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.GET("/health", h.Health)
	router.HEAD("/health", h.Health)
	router.GET("/ready", h.Ready)

	if cfg.WebhookPath != "" {
		router.POST(cfg.WebhookPath, h.Webhook)
	}

	admin := router.Group("/api/admin", middleware.AdminJWT([]byte(cfg.AdminJWTSecret)))
	admin.GET("/stats", h.Stats)

	return router
}
