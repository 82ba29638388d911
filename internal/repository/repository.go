package repository

import (
	"context"
	"time"

	"millionaire-bot/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX - общий интерфейс пула и транзакции pgx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SessionStore хранит состояние игры по чатам: одна запись на чат,
// каждая запись заменяется целиком.
type SessionStore interface {
	// Get возвращает состояние чата или domain.ErrNotFound, если игры ещё не было.
	Get(ctx context.Context, chatID int64) (domain.GameState, error)
	// Upsert создаёт или заменяет запись чата.
	Upsert(ctx context.Context, chatID int64, state domain.GameState) error
	// Remove удаляет запись чата. Отсутствие записи не ошибка.
	Remove(ctx context.Context, chatID int64) error
	// Count - количество чатов с записью.
	Count(ctx context.Context) (int64, error)
	// Validate читает все записи и возвращает domain.ErrUnknownState на первой повреждённой.
	// Вызывается при старте.
	Validate(ctx context.Context) error
}

// EventRepository сохраняет события аналитики и строит отчёты.
type EventRepository interface {
	// Insert сохраняет событие. Повторная вставка того же ID игнорируется.
	// Если у события есть профиль пользователя, он обновляется в той же транзакции.
	Insert(ctx context.Context, event domain.GameEvent) error
	// GamesPerDay - начатые и завершённые игры по дням в [from, to).
	GamesPerDay(ctx context.Context, from, to time.Time) ([]domain.GamesPerDay, error)
}
