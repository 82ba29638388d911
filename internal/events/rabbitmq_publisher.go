package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"millionaire-bot/internal/domain"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	appID          = "millionaire-bot"
	publishRetries = 3
)

// AMQPChannel - часть *amqp.Channel, нужная паблишеру.
type AMQPChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher отправляет события в очередь RabbitMQ. Запись в базу делает Consumer.
type Publisher struct {
	mu        sync.Mutex
	channel   AMQPChannel
	queueName string
	logger    *zap.Logger
}

var _ Writer = (*Publisher)(nil)

// DeclareQueue объявляет durable очередь событий. Параметры должны совпадать у паблишера и консьюмера.
func DeclareQueue(ch *amqp.Channel, queueName string) error {
	_, err := ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("не удалось объявить очередь '%s': %w", queueName, err)
	}
	return nil
}

// NewRabbitMQPublisher открывает канал, объявляет очередь и возвращает паблишер.
func NewRabbitMQPublisher(conn *amqp.Connection, queueName string, logger *zap.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("event publisher: не удалось открыть канал: %w", err)
	}
	if err := DeclareQueue(ch, queueName); err != nil {
		ch.Close()
		return nil, fmt.Errorf("event publisher: %w", err)
	}
	logger.Info("Event queue declared", zap.String("queue", queueName))
	return NewPublisher(ch, queueName, logger), nil
}

// NewPublisher создаёт паблишер поверх открытого канала.
func NewPublisher(ch AMQPChannel, queueName string, logger *zap.Logger) *Publisher {
	return &Publisher{
		channel:   ch,
		queueName: queueName,
		logger:    logger.Named("EventPublisher"),
	}
}

func (p *Publisher) Write(ctx context.Context, event domain.GameEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("ошибка маршалинга события %s: %w", event.ID, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID.String(),
		Type:         string(event.Kind),
		Body:         body,
		Timestamp:    time.Now(),
		AppId:        appID,
	}

	// amqp.Channel не рассчитан на параллельную публикацию
	p.mu.Lock()
	defer p.mu.Unlock()

	for attempt := 1; attempt <= publishRetries; attempt++ {
		err = p.channel.PublishWithContext(ctx,
			"",          // exchange
			p.queueName, // routing key
			false,       // mandatory
			false,       // immediate
			msg,
		)
		if err == nil {
			p.logger.Debug("Event published",
				zap.Stringer("event_id", event.ID),
				zap.String("kind", string(event.Kind)),
				zap.Int("attempt", attempt))
			return nil
		}
		p.logger.Warn("Publish attempt failed",
			zap.Stringer("event_id", event.ID),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt == publishRetries {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("публикация события %s прервана: %w", event.ID, ctx.Err())
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	return fmt.Errorf("не удалось опубликовать событие %s после %d попыток: %w", event.ID, publishRetries, err)
}

// Close закрывает канал.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel.Close()
}
