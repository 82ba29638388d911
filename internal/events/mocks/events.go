package mocks

import (
	"context"

	"millionaire-bot/internal/domain"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/mock"
)

// Writer - мок events.Writer.
type Writer struct {
	mock.Mock
}

func (m *Writer) Write(ctx context.Context, event domain.GameEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// AMQPChannel - мок events.AMQPChannel.
type AMQPChannel struct {
	mock.Mock
}

func (m *AMQPChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	args := m.Called(ctx, exchange, key, mandatory, immediate, msg)
	return args.Error(0)
}

func (m *AMQPChannel) Close() error {
	return m.Called().Error(0)
}

// EventSink - мок events.EventSink.
type EventSink struct {
	mock.Mock
}

func (m *EventSink) RecordGameStart(chatID int64, user domain.User) {
	m.Called(chatID, user)
}

func (m *EventSink) RecordAnswer(chatID int64, level uint8, question int, answer1, answer2 domain.Variant, correct bool) {
	m.Called(chatID, level, question, answer1, answer2, correct)
}

func (m *EventSink) RecordHint(chatID int64, level uint8, question int, hint domain.Hints) {
	m.Called(chatID, level, question, hint)
}
