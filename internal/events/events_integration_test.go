//go:build integration

package events_test

import (
	"context"
	"testing"
	"time"

	"millionaire-bot/internal/database"
	"millionaire-bot/internal/domain"
	"millionaire-bot/internal/events"
	"millionaire-bot/internal/repository"
	"millionaire-bot/pkg/taskmanager"

	"github.com/docker/docker/client"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

type EventsIntegrationSuite struct {
	suite.Suite
	ctx          context.Context
	pgContainer  *postgres.PostgresContainer
	rmqContainer *rabbitmq.RabbitMQContainer
	pool         *pgxpool.Pool
	conn         *amqp.Connection
	repo         repository.EventRepository
	logger       *zap.Logger
}

func (s *EventsIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = zap.NewNop()
	var err error

	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("millionaire_test"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(2*time.Minute),
		),
	)
	require.NoError(s.T(), err)
	dsn, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err)
	require.NoError(s.T(), database.ApplyMigrations(dsn, s.logger))
	s.pool, err = database.Connect(s.ctx, database.PoolConfig{DSN: dsn, MaxConns: 4}, s.logger)
	require.NoError(s.T(), err)
	s.repo = repository.NewPgEventRepository(s.pool, s.logger)

	s.rmqContainer, err = rabbitmq.Run(s.ctx,
		"rabbitmq:3-management-alpine",
		testcontainers.WithWaitStrategy(wait.ForLog("Server startup complete")),
	)
	require.NoError(s.T(), err)
	amqpURL, err := s.rmqContainer.AmqpURL(s.ctx)
	require.NoError(s.T(), err)
	s.conn, err = amqp.Dial(amqpURL)
	require.NoError(s.T(), err)
}

func (s *EventsIntegrationSuite) TearDownSuite() {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
	if s.rmqContainer != nil {
		_ = s.rmqContainer.Terminate(s.ctx)
	}
	if s.pgContainer != nil {
		_ = s.pgContainer.Terminate(s.ctx)
	}
}

func TestEventsIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	cli, err := client.NewClientWithOpts(client.FromEnv)
	if err != nil {
		t.Fatalf("Docker client init error: %v", err)
	}
	if _, err := cli.Ping(context.Background()); err != nil {
		t.Fatalf("Docker daemon is not running or accessible: %v", err)
	}
	cli.Close()

	suite.Run(t, new(EventsIntegrationSuite))
}

func (s *EventsIntegrationSuite) countEvents() int {
	var n int
	s.Require().NoError(s.pool.QueryRow(s.ctx, "SELECT COUNT(*) FROM events").Scan(&n))
	return n
}

func (s *EventsIntegrationSuite) TestPublishConsumeStore() {
	_, err := s.pool.Exec(s.ctx, "TRUNCATE TABLE events, users")
	s.Require().NoError(err)

	const queue = "millionaire_events_test"
	publisher, err := events.NewRabbitMQPublisher(s.conn, queue, s.logger)
	s.Require().NoError(err)
	defer publisher.Close()

	consumer := events.NewConsumer(s.conn, events.NewProcessor(s.repo, s.logger), queue, s.logger)
	done := make(chan error, 1)
	go func() { done <- consumer.StartConsuming(s.ctx) }()

	tm := taskmanager.New(taskmanager.Config{MaxTasks: 8}, s.logger)
	rec := events.NewRecorder(tm, publisher, s.logger)
	rec.RecordGameStart(11, domain.User{ID: 11, FirstName: "Анна"})
	rec.RecordAnswer(11, 0, 1, domain.VariantA, 0, true)
	rec.RecordHint(11, 1, 0, domain.HintNewQuestion)
	s.Require().NoError(tm.Shutdown(s.ctx))

	s.Eventually(func() bool { return s.countEvents() == 3 }, 20*time.Second, 200*time.Millisecond)

	consumer.Stop()
	s.NoError(<-done)

	day := time.Now().UTC().Truncate(24 * time.Hour)
	stats, err := s.repo.GamesPerDay(s.ctx, day, day.Add(24*time.Hour))
	s.Require().NoError(err)
	s.Require().Len(stats, 1)
	s.EqualValues(1, stats[0].Started)
}

func (s *EventsIntegrationSuite) TestRepositoryWriter() {
	_, err := s.pool.Exec(s.ctx, "TRUNCATE TABLE events, users")
	s.Require().NoError(err)

	writer := events.NewRepositoryWriter(s.repo)
	s.Require().NoError(writer.Write(s.ctx, sampleEvent()))
	s.Equal(1, s.countEvents())
}
