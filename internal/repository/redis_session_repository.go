package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"millionaire-bot/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	fieldState       = "state"
	fieldLevel       = "level"
	fieldQuestion    = "question"
	fieldUsedHints   = "used_hints"
	fieldRemoved1    = "removed1"
	fieldRemoved2    = "removed2"
	fieldFirstAnswer = "first_answer"
)

var _ SessionStore = (*redisSessionRepository)(nil)

// Сессия хранится хешем {prefix}:session:{chat}, множество {prefix}:sessions
// содержит id всех чатов для Count и Validate.
type redisSessionRepository struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisSessionRepository создаёт хранилище сессий в Redis.
func NewRedisSessionRepository(client *redis.Client, prefix string, logger *zap.Logger) *redisSessionRepository {
	return &redisSessionRepository{
		client: client,
		prefix: prefix,
		logger: logger.Named("RedisSessionRepo"),
	}
}

func (r *redisSessionRepository) sessionKey(chatID int64) string {
	return fmt.Sprintf("%s:session:%d", r.prefix, chatID)
}

func (r *redisSessionRepository) indexKey() string {
	return r.prefix + ":sessions"
}

func (r *redisSessionRepository) Get(ctx context.Context, chatID int64) (domain.GameState, error) {
	fields, err := r.client.HGetAll(ctx, r.sessionKey(chatID)).Result()
	if err != nil {
		r.logger.Error("Failed to get session from redis", zap.Int64("chat_id", chatID), zap.Error(err))
		return domain.GameState{}, fmt.Errorf("ошибка чтения сессии чата %d из redis: %w", chatID, err)
	}
	if len(fields) == 0 {
		return domain.GameState{}, domain.ErrNotFound
	}

	rec, err := recordFromHash(chatID, fields)
	if err != nil {
		return domain.GameState{}, err
	}
	return rec.Decode()
}

func (r *redisSessionRepository) Upsert(ctx context.Context, chatID int64, state domain.GameState) error {
	key := r.sessionKey(chatID)
	values := hashFromRecord(domain.EncodeSession(chatID, state))

	// Del + HSet в MULTI: поля прошлого состояния не должны остаться в хеше
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, values)
		pipe.SAdd(ctx, r.indexKey(), chatID)
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to upsert session in redis", zap.Int64("chat_id", chatID), zap.Error(err))
		return fmt.Errorf("ошибка сохранения сессии чата %d в redis: %w", chatID, err)
	}
	return nil
}

func (r *redisSessionRepository) Remove(ctx context.Context, chatID int64) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.sessionKey(chatID))
		pipe.SRem(ctx, r.indexKey(), chatID)
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to remove session from redis", zap.Int64("chat_id", chatID), zap.Error(err))
		return fmt.Errorf("ошибка удаления сессии чата %d из redis: %w", chatID, err)
	}
	return nil
}

func (r *redisSessionRepository) Count(ctx context.Context) (int64, error) {
	count, err := r.client.SCard(ctx, r.indexKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта сессий в redis: %w", err)
	}
	return count, nil
}

func (r *redisSessionRepository) Validate(ctx context.Context) error {
	checked := 0
	iter := r.client.SScan(ctx, r.indexKey(), 0, "", 500).Iterator()
	for iter.Next(ctx) {
		chatID, err := strconv.ParseInt(iter.Val(), 10, 64)
		if err != nil {
			return fmt.Errorf("%w: неверный id чата %q в индексе", domain.ErrUnknownState, iter.Val())
		}
		if _, err := r.Get(ctx, chatID); err != nil {
			return err
		}
		checked++
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("ошибка обхода сессий в redis: %w", err)
	}
	r.logger.Info("Sessions validated", zap.Int("count", checked))
	return nil
}

// hashFromRecord переводит запись в поля хеша. NULL-поля не пишутся.
func hashFromRecord(rec domain.SessionRecord) map[string]interface{} {
	values := map[string]interface{}{fieldState: int(rec.State)}
	if rec.Level.Valid {
		values[fieldLevel] = rec.Level.Int16
	}
	if rec.Question.Valid {
		values[fieldQuestion] = rec.Question.Int32
	}
	if rec.UsedHints.Valid {
		values[fieldUsedHints] = rec.UsedHints.Int16
	}
	for field, v := range map[string]sql.NullString{
		fieldRemoved1:    rec.Removed1,
		fieldRemoved2:    rec.Removed2,
		fieldFirstAnswer: rec.FirstAnswer,
	} {
		if v.Valid {
			values[field] = v.String
		}
	}
	return values
}

func recordFromHash(chatID int64, fields map[string]string) (domain.SessionRecord, error) {
	rec := domain.SessionRecord{Chat: chatID}

	state, err := strconv.ParseUint(fields[fieldState], 10, 8)
	if err != nil {
		return rec, fmt.Errorf("%w: чат %d, тег %q", domain.ErrUnknownState, chatID, fields[fieldState])
	}
	rec.State = domain.StateKind(state)

	if v, ok := fields[fieldLevel]; ok {
		n, err := strconv.ParseInt(v, 10, 16)
		if err != nil {
			return rec, fmt.Errorf("%w: чат %d, уровень %q", domain.ErrUnknownState, chatID, v)
		}
		rec.Level = sql.NullInt16{Int16: int16(n), Valid: true}
	}
	if v, ok := fields[fieldQuestion]; ok {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return rec, fmt.Errorf("%w: чат %d, вопрос %q", domain.ErrUnknownState, chatID, v)
		}
		rec.Question = sql.NullInt32{Int32: int32(n), Valid: true}
	}
	if v, ok := fields[fieldUsedHints]; ok {
		n, err := strconv.ParseInt(v, 10, 16)
		if err != nil {
			return rec, fmt.Errorf("%w: чат %d, подсказки %q", domain.ErrUnknownState, chatID, v)
		}
		rec.UsedHints = sql.NullInt16{Int16: int16(n), Valid: true}
	}
	rec.Removed1 = optionalString(fields, fieldRemoved1)
	rec.Removed2 = optionalString(fields, fieldRemoved2)
	rec.FirstAnswer = optionalString(fields, fieldFirstAnswer)
	return rec, nil
}

func optionalString(fields map[string]string, name string) sql.NullString {
	v, ok := fields[name]
	return sql.NullString{String: v, Valid: ok}
}
