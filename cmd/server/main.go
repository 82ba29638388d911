package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"millionaire-bot/internal/config"
	"millionaire-bot/internal/database"
	deliveryhttp "millionaire-bot/internal/delivery/http"
	"millionaire-bot/internal/events"
	"millionaire-bot/internal/logger"
	"millionaire-bot/internal/narrator"
	"millionaire-bot/internal/questions"
	"millionaire-bot/internal/repository"
	"millionaire-bot/internal/service"
	"millionaire-bot/internal/telegram"
	"millionaire-bot/pkg/taskmanager"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultWebhookPath = "/telegram/webhook"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	appLogger, err := logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogEncoding,
		Service:  "millionaire-bot",
	})
	if err != nil {
		log.Fatalf("Ошибка инициализации логгера: %v", err)
	}
	defer appLogger.Sync()
	zap.ReplaceGlobals(appLogger)
	cfg.LogSummary(appLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Контент ---
	bank, err := questions.LoadFile(cfg.QuestionsFile)
	if err != nil {
		appLogger.Fatal("Failed to load question bank", zap.Error(err))
	}
	speech, err := narrator.LoadSpeechFile(cfg.SpeechFile)
	if err != nil {
		appLogger.Fatal("Failed to load narrator speech", zap.Error(err))
	}
	narr := narrator.New(speech, narrator.NewRandom(cfg.RandomSeed))

	var checks []deliveryhttp.ReadinessCheck

	// --- PostgreSQL ---
	var pool *pgxpool.Pool
	if cfg.NeedsPostgres() {
		if err := database.ApplyMigrations(cfg.GetDSN(), appLogger); err != nil {
			appLogger.Fatal("Failed to apply migrations", zap.Error(err))
		}
		pool, err = database.Connect(ctx, database.PoolConfig{
			DSN:         cfg.GetDSN(),
			MaxConns:    cfg.DBMaxConns,
			IdleTimeout: cfg.DBIdleTimeout,
		}, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
		}
		defer pool.Close()
		checks = append(checks, deliveryhttp.ReadinessCheck{Name: "postgres", Check: pool.Ping})
	}

	// --- Сессии ---
	var store repository.SessionStore
	var memStore *repository.MemorySessionRepository
	switch cfg.SessionBackend {
	case config.SessionBackendPostgres:
		store = repository.NewPgSessionRepository(pool, appLogger)
	case config.SessionBackendRedis:
		redisClient, err := setupRedis(ctx, cfg, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		store = repository.NewRedisSessionRepository(redisClient, cfg.RedisKeyPrefix, appLogger)
		checks = append(checks, deliveryhttp.ReadinessCheck{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	case config.SessionBackendMemory:
		memStore = repository.NewMemorySessionRepository(appLogger)
		if err := memStore.LoadSnapshot(cfg.SessionSnapshotFile); err != nil {
			appLogger.Fatal("Failed to load session snapshot", zap.Error(err))
		}
		store = memStore
	}
	// повреждённая запись в хранилище - отказ старта, а не ошибка посреди игры
	if err := store.Validate(ctx); err != nil {
		appLogger.Fatal("Session store contains invalid records", zap.String("backend", cfg.SessionBackend), zap.Error(err))
	}

	// --- Аналитика ---
	tasks := taskmanager.New(taskmanager.Config{MaxTasks: cfg.EventsMaxTasks, Timeout: 10 * time.Second}, appLogger)
	var eventRepo repository.EventRepository
	if pool != nil {
		eventRepo = repository.NewPgEventRepository(pool, appLogger)
	}

	var sink events.EventSink = events.NopSink{}
	var rabbitConn *amqp.Connection
	var publisher *events.Publisher
	var consumer *events.Consumer
	var consumerWG sync.WaitGroup
	switch cfg.EventsBackend {
	case config.EventsBackendPostgres:
		sink = events.NewRecorder(tasks, events.NewRepositoryWriter(eventRepo), appLogger)
	case config.EventsBackendRabbitMQ:
		rabbitConn, err = connectRabbitMQ(cfg.RabbitMQURL, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer rabbitConn.Close()
		checks = append(checks, deliveryhttp.ReadinessCheck{Name: "rabbitmq", Check: func(context.Context) error {
			if rabbitConn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		}})

		publisher, err = events.NewRabbitMQPublisher(rabbitConn, cfg.EventsQueue, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to create event publisher", zap.Error(err))
		}
		sink = events.NewRecorder(tasks, publisher, appLogger)

		if cfg.EventsConsume {
			consumer = events.NewConsumer(rabbitConn, events.NewProcessor(eventRepo, appLogger), cfg.EventsQueue, appLogger)
			consumerWG.Add(1)
			go func() {
				defer consumerWG.Done()
				if err := consumer.StartConsuming(ctx); err != nil && !errors.Is(err, context.Canceled) {
					appLogger.Error("Event consumer stopped with error", zap.Error(err))
				}
			}()
		}
	case config.EventsBackendNone:
		appLogger.Info("Analytics events are disabled")
	}

	// --- Telegram ---
	tgClient, err := telegram.NewClient(cfg.TelegramAPIURL, cfg.TelegramToken, cfg.TelegramClientTimeout, appLogger)
	if err != nil {
		appLogger.Fatal("Telegram getMe failed, check the bot token", zap.Error(err))
	}
	me := tgClient.Self()
	appLogger.Info("Telegram bot authorized", zap.String("username", me.UserName), zap.Int64("bot_id", me.ID))

	messenger := telegram.NewMessenger(tgClient, cfg.TelegramSendRetries, appLogger)
	engine := service.NewGameEngine(store, bank, narr, messenger, sink, appLogger)

	// --- HTTP ---
	var statsReader deliveryhttp.StatsReader
	if eventRepo != nil {
		statsReader = eventRepo
	}
	handler := deliveryhttp.NewHandler(engine, store, statsReader, cfg.TelegramWebhookSecret, checks, appLogger)

	webhookPath := ""
	if cfg.TelegramMode == config.TelegramModeWebhook {
		webhookPath = webhookPathFromURL(cfg.TelegramWebhookURL)
	}
	router := deliveryhttp.NewRouter(deliveryhttp.RouterConfig{
		Env:            cfg.Env,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AdminJWTSecret: cfg.AdminJWTSecret,
		WebhookPath:    webhookPath,
	}, handler, appLogger)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		appLogger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	// --- Получение апдейтов ---
	var pollerWG sync.WaitGroup
	switch cfg.TelegramMode {
	case config.TelegramModeWebhook:
		if err := tgClient.SetWebhook(ctx, cfg.TelegramWebhookURL, cfg.TelegramWebhookSecret); err != nil {
			appLogger.Fatal("Failed to set Telegram webhook", zap.Error(err))
		}
		if info, err := tgClient.GetWebhookInfo(ctx); err == nil {
			appLogger.Info("Telegram webhook set",
				zap.String("url", info.URL),
				zap.Int("pending_updates", info.PendingUpdateCount))
		}
	case config.TelegramModePolling:
		poller := telegram.NewPoller(tgClient, engine, cfg.TelegramPollTimeout, appLogger)
		pollerWG.Add(1)
		go func() {
			defer pollerWG.Done()
			if err := poller.Run(ctx); err != nil {
				appLogger.Error("Long polling failed", zap.Error(err))
				stop()
			}
		}()
	}

	<-ctx.Done()
	appLogger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if cfg.TelegramMode == config.TelegramModeWebhook {
		if err := tgClient.DeleteWebhook(shutdownCtx, false); err != nil {
			appLogger.Warn("Failed to delete Telegram webhook", zap.Error(err))
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP Server forced to shutdown", zap.Error(err))
	}
	pollerWG.Wait()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.EventsDrainTime)
	if err := tasks.Shutdown(drainCtx); err != nil {
		appLogger.Warn("Pending analytics events were dropped", zap.Error(err))
	}
	drainCancel()

	if consumer != nil {
		consumer.Stop()
		consumerWG.Wait()
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			appLogger.Warn("Failed to close event publisher", zap.Error(err))
		}
	}
	if memStore != nil {
		if err := memStore.SaveSnapshot(cfg.SessionSnapshotFile); err != nil {
			appLogger.Error("Failed to save session snapshot", zap.Error(err))
		}
	}

	appLogger.Info("Server exiting")
}

func webhookPathFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" || u.Path == "/" {
		return defaultWebhookPath
	}
	return u.Path
}

// setupRedis создаёт клиент Redis и ждёт, пока он ответит на PING.
func setupRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	const maxRetries = 10
	retryDelay := 3 * time.Second
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		lastErr = client.Ping(pingCtx).Err()
		cancel()
		if lastErr == nil {
			logger.Info("Connected to Redis", zap.String("addr", cfg.RedisAddr), zap.Int("attempt", attempt))
			return client, nil
		}
		logger.Warn("Redis ping failed, retrying...",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
			zap.Error(lastErr))
		select {
		case <-ctx.Done():
			client.Close()
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	client.Close()
	return nil, fmt.Errorf("не удалось подключиться к Redis после %d попыток: %w", maxRetries, lastErr)
}

// connectRabbitMQ подключается к RabbitMQ с несколькими попытками.
func connectRabbitMQ(url string, logger *zap.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	maxRetries := 5
	retryDelay := 5 * time.Second
	for i := 0; i < maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			logger.Info("Connected to RabbitMQ", zap.Int("attempt", i+1))
			return conn, nil
		}
		logger.Warn("Не удалось подключиться к RabbitMQ",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", maxRetries),
			zap.Duration("retry_delay", retryDelay),
			zap.Error(err),
		)
		time.Sleep(retryDelay)
	}
	return nil, err
}
