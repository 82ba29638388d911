package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"millionaire-bot/internal/domain"
	"millionaire-bot/internal/repository"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ErrInvalidPayload - тело сообщения не является событием. Такие сообщения не переотправляются.
var ErrInvalidPayload = errors.New("invalid event payload")

// Processor разбирает тело сообщения и сохраняет событие.
type Processor struct {
	repo   repository.EventRepository
	logger *zap.Logger
}

// NewProcessor создаёт Processor.
func NewProcessor(repo repository.EventRepository, logger *zap.Logger) *Processor {
	return &Processor{repo: repo, logger: logger.Named("EventProcessor")}
}

// Process сохраняет одно событие из очереди.
func (p *Processor) Process(ctx context.Context, body []byte) error {
	var event domain.GameEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if event.Kind == "" || event.ChatID == 0 {
		return fmt.Errorf("%w: нет типа или чата", ErrInvalidPayload)
	}
	if err := p.repo.Insert(ctx, event); err != nil {
		return fmt.Errorf("ошибка сохранения события %s: %w", event.ID, err)
	}
	return nil
}

// Consumer читает очередь событий и передаёт сообщения в Processor.
type Consumer struct {
	conn        *amqp.Connection
	processor   *Processor
	queueName   string
	logger      *zap.Logger
	stopChannel chan struct{}
	stopOnce    sync.Once
	consumerTag string
}

// NewConsumer создаёт Consumer.
func NewConsumer(conn *amqp.Connection, processor *Processor, queueName string, logger *zap.Logger) *Consumer {
	return &Consumer{
		conn:        conn,
		processor:   processor,
		queueName:   queueName,
		logger:      logger.Named("EventConsumer"),
		stopChannel: make(chan struct{}),
		consumerTag: "millionaire-events-consumer",
	}
}

// StartConsuming блокирует до Stop или закрытия канала брокером.
func (c *Consumer) StartConsuming(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("consumer: не удалось открыть канал: %w", err)
	}
	defer ch.Close()

	if err := DeclareQueue(ch, c.queueName); err != nil {
		return fmt.Errorf("consumer: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("consumer: не удалось установить QoS: %w", err)
	}

	msgs, err := ch.Consume(
		c.queueName,   // queue
		c.consumerTag, // consumer
		false,         // auto-ack
		false,         // exclusive
		false,         // no-local
		false,         // no-wait
		nil,           // args
	)
	if err != nil {
		return fmt.Errorf("consumer: не удалось зарегистрировать консьюмера: %w", err)
	}
	c.logger.Info("Consumer started", zap.String("queue", c.queueName))

	for {
		select {
		case <-c.stopChannel:
			c.logger.Info("Consumer stopping")
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				c.logger.Warn("Delivery channel closed by broker")
				return nil
			}
			c.handle(ctx, d)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	err := c.processor.Process(ctx, d.Body)
	if err == nil {
		if ackErr := d.Ack(false); ackErr != nil {
			c.logger.Error("Ack failed", zap.String("message_id", d.MessageId), zap.Error(ackErr))
		}
		return
	}

	// одна повторная доставка на случай недоступной базы, битые сообщения выбрасываются сразу
	requeue := !errors.Is(err, ErrInvalidPayload) && !d.Redelivered
	c.logger.Error("Failed to process event",
		zap.String("message_id", d.MessageId),
		zap.Bool("requeue", requeue),
		zap.Error(err))
	if nackErr := d.Nack(false, requeue); nackErr != nil {
		c.logger.Error("Nack failed", zap.String("message_id", d.MessageId), zap.Error(nackErr))
	}
}

// Stop останавливает цикл чтения. Повторный вызов безопасен.
func (c *Consumer) Stop() {
	c.stopOnce.Do(func() { close(c.stopChannel) })
}
