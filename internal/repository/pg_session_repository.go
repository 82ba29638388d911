package repository

import (
	"context"
	"errors"
	"fmt"

	"millionaire-bot/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	getSessionQuery = `SELECT chat, state, level, question, used_hints, removed1, removed2, first_answer
		FROM sessions WHERE chat = $1`
	listSessionsQuery = `SELECT chat, state, level, question, used_hints, removed1, removed2, first_answer
		FROM sessions ORDER BY chat`
	upsertSessionQuery = `
		INSERT INTO sessions (chat, state, level, question, used_hints, removed1, removed2, first_answer, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (chat) DO UPDATE SET
			state = EXCLUDED.state,
			level = EXCLUDED.level,
			question = EXCLUDED.question,
			used_hints = EXCLUDED.used_hints,
			removed1 = EXCLUDED.removed1,
			removed2 = EXCLUDED.removed2,
			first_answer = EXCLUDED.first_answer,
			updated_at = EXCLUDED.updated_at`
	deleteSessionQuery = `DELETE FROM sessions WHERE chat = $1`
	countSessionsQuery = `SELECT COUNT(*) FROM sessions`
)

var _ SessionStore = (*pgSessionRepository)(nil)

type pgSessionRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewPgSessionRepository создаёт хранилище сессий в PostgreSQL.
func NewPgSessionRepository(db DBTX, logger *zap.Logger) *pgSessionRepository {
	return &pgSessionRepository{
		db:     db,
		logger: logger.Named("PgSessionRepo"),
	}
}

func scanSessionRecord(row pgx.Row) (domain.SessionRecord, error) {
	var rec domain.SessionRecord
	var state int16
	err := row.Scan(&rec.Chat, &state, &rec.Level, &rec.Question, &rec.UsedHints,
		&rec.Removed1, &rec.Removed2, &rec.FirstAnswer)
	rec.State = domain.StateKind(state)
	return rec, err
}

func (r *pgSessionRepository) Get(ctx context.Context, chatID int64) (domain.GameState, error) {
	rec, err := scanSessionRecord(r.db.QueryRow(ctx, getSessionQuery, chatID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.GameState{}, domain.ErrNotFound
		}
		r.logger.Error("Error getting session", zap.Int64("chat_id", chatID), zap.Error(err))
		return domain.GameState{}, fmt.Errorf("ошибка чтения сессии чата %d: %w", chatID, err)
	}

	state, err := rec.Decode()
	if err != nil {
		r.logger.Error("Corrupted session record", zap.Int64("chat_id", chatID), zap.Error(err))
		return domain.GameState{}, err
	}
	return state, nil
}

func (r *pgSessionRepository) Upsert(ctx context.Context, chatID int64, state domain.GameState) error {
	rec := domain.EncodeSession(chatID, state)
	_, err := r.db.Exec(ctx, upsertSessionQuery,
		rec.Chat, int16(rec.State), rec.Level, rec.Question, rec.UsedHints,
		rec.Removed1, rec.Removed2, rec.FirstAnswer,
	)
	if err != nil {
		r.logger.Error("Error upserting session", zap.Int64("chat_id", chatID), zap.Stringer("state", state.Kind), zap.Error(err))
		return fmt.Errorf("ошибка сохранения сессии чата %d: %w", chatID, err)
	}
	return nil
}

func (r *pgSessionRepository) Remove(ctx context.Context, chatID int64) error {
	if _, err := r.db.Exec(ctx, deleteSessionQuery, chatID); err != nil {
		r.logger.Error("Error deleting session", zap.Int64("chat_id", chatID), zap.Error(err))
		return fmt.Errorf("ошибка удаления сессии чата %d: %w", chatID, err)
	}
	return nil
}

func (r *pgSessionRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, countSessionsQuery).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта сессий: %w", err)
	}
	return count, nil
}

func (r *pgSessionRepository) Validate(ctx context.Context) error {
	rows, err := r.db.Query(ctx, listSessionsQuery)
	if err != nil {
		return fmt.Errorf("ошибка чтения сессий: %w", err)
	}
	defer rows.Close()

	checked := 0
	for rows.Next() {
		rec, err := scanSessionRecord(rows)
		if err != nil {
			return fmt.Errorf("ошибка сканирования сессии: %w", err)
		}
		if _, err := rec.Decode(); err != nil {
			return err
		}
		checked++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("ошибка чтения сессий: %w", err)
	}
	r.logger.Info("Sessions validated", zap.Int("count", checked))
	return nil
}
