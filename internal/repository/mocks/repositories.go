package mocks

import (
	"context"
	"time"

	"millionaire-bot/internal/domain"
	"millionaire-bot/internal/repository"

	"github.com/stretchr/testify/mock"
)

// EventRepository - мок repository.EventRepository.
type EventRepository struct {
	mock.Mock
}

var _ repository.EventRepository = (*EventRepository)(nil)

func (m *EventRepository) Insert(ctx context.Context, event domain.GameEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *EventRepository) GamesPerDay(ctx context.Context, from, to time.Time) ([]domain.GamesPerDay, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.GamesPerDay), args.Error(1)
}

// SessionStore - мок repository.SessionStore.
type SessionStore struct {
	mock.Mock
}

var _ repository.SessionStore = (*SessionStore)(nil)

func (m *SessionStore) Get(ctx context.Context, chatID int64) (domain.GameState, error) {
	args := m.Called(ctx, chatID)
	return args.Get(0).(domain.GameState), args.Error(1)
}

func (m *SessionStore) Upsert(ctx context.Context, chatID int64, state domain.GameState) error {
	args := m.Called(ctx, chatID, state)
	return args.Error(0)
}

func (m *SessionStore) Remove(ctx context.Context, chatID int64) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}

func (m *SessionStore) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *SessionStore) Validate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
