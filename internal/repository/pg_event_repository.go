package repository

import (
	"context"
	"fmt"
	"time"

	"millionaire-bot/internal/domain"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	insertEventQuery = `
		INSERT INTO events (id, kind, chat, date, level, question, started, answer, "right", hint)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`
	upsertUserQuery = `
		INSERT INTO users (id, is_bot, first_name, last_name, username, language_code, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (id) DO UPDATE SET
			is_bot = EXCLUDED.is_bot,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			username = EXCLUDED.username,
			language_code = EXCLUDED.language_code,
			updated_at = EXCLUDED.updated_at`
	// Игра завершена ошибкой или правильным ответом на последний вопрос.
	gamesPerDayQuery = `
		SELECT date_trunc('day', date) AS day,
			COUNT(*) FILTER (WHERE kind = 'game_started') AS started,
			COUNT(*) FILTER (WHERE kind = 'answer' AND ("right" = FALSE OR level = 14)) AS finished
		FROM events
		WHERE date >= $1 AND date < $2
		GROUP BY 1
		ORDER BY 1`
)

var _ EventRepository = (*pgEventRepository)(nil)

type pgEventRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewPgEventRepository создаёт репозиторий событий аналитики.
func NewPgEventRepository(db DBTX, logger *zap.Logger) *pgEventRepository {
	return &pgEventRepository{
		db:     db,
		logger: logger.Named("PgEventRepo"),
	}
}

func (r *pgEventRepository) Insert(ctx context.Context, event domain.GameEvent) error {
	log := r.logger.With(zap.Stringer("event_id", event.ID), zap.String("kind", string(event.Kind)), zap.Int64("chat_id", event.ChatID))

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if event.User != nil {
			u := event.User
			if _, err := tx.Exec(ctx, upsertUserQuery, u.ID, u.IsBot, u.FirstName, u.LastName, u.Username, u.LanguageCode); err != nil {
				return fmt.Errorf("ошибка сохранения пользователя %d: %w", u.ID, err)
			}
		}
		_, err := tx.Exec(ctx, insertEventQuery,
			event.ID, string(event.Kind), event.ChatID, event.Date.UTC(),
			event.Level, event.Question, event.Started, event.Answer, event.Right, event.Hint,
		)
		if err != nil {
			return fmt.Errorf("ошибка вставки события: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to insert event", zap.Error(err))
		return err
	}
	log.Debug("Event stored")
	return nil
}

func (r *pgEventRepository) GamesPerDay(ctx context.Context, from, to time.Time) ([]domain.GamesPerDay, error) {
	var report []domain.GamesPerDay
	if err := pgxscan.Select(ctx, r.db, &report, gamesPerDayQuery, from.UTC(), to.UTC()); err != nil {
		r.logger.Error("Failed to build games per day report", zap.Error(err))
		return nil, fmt.Errorf("ошибка отчёта игр по дням: %w", err)
	}
	return report, nil
}
