package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"millionaire-bot/internal/domain"

	"go.uber.org/zap"
)

var _ SessionStore = (*MemorySessionRepository)(nil)

// MemorySessionRepository держит сессии в памяти. Снапшот в JSON читается при старте
// и пишется при остановке; между ними состояние теряется при падении процесса.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[int64]domain.SessionRecord
	logger   *zap.Logger
}

// NewMemorySessionRepository создаёт пустое хранилище.
func NewMemorySessionRepository(logger *zap.Logger) *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[int64]domain.SessionRecord),
		logger:   logger.Named("MemorySessionRepo"),
	}
}

func (r *MemorySessionRepository) Get(_ context.Context, chatID int64) (domain.GameState, error) {
	r.mu.RLock()
	rec, ok := r.sessions[chatID]
	r.mu.RUnlock()
	if !ok {
		return domain.GameState{}, domain.ErrNotFound
	}
	return rec.Decode()
}

func (r *MemorySessionRepository) Upsert(_ context.Context, chatID int64, state domain.GameState) error {
	rec := domain.EncodeSession(chatID, state)
	r.mu.Lock()
	r.sessions[chatID] = rec
	r.mu.Unlock()
	return nil
}

func (r *MemorySessionRepository) Remove(_ context.Context, chatID int64) error {
	r.mu.Lock()
	delete(r.sessions, chatID)
	r.mu.Unlock()
	return nil
}

func (r *MemorySessionRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.sessions)), nil
}

func (r *MemorySessionRepository) Validate(_ context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.sessions {
		if _, err := rec.Decode(); err != nil {
			return err
		}
	}
	return nil
}

// snapshotEntry - запись сессии в файле снапшота.
type snapshotEntry struct {
	Chat        int64  `json:"chat"`
	State       uint8  `json:"state"`
	Level       *int16 `json:"level,omitempty"`
	Question    *int32 `json:"question,omitempty"`
	UsedHints   *int16 `json:"used_hints,omitempty"`
	Removed1    string `json:"removed1,omitempty"`
	Removed2    string `json:"removed2,omitempty"`
	FirstAnswer string `json:"first_answer,omitempty"`
}

func entryFromRecord(rec domain.SessionRecord) snapshotEntry {
	e := snapshotEntry{
		Chat:        rec.Chat,
		State:       uint8(rec.State),
		Removed1:    rec.Removed1.String,
		Removed2:    rec.Removed2.String,
		FirstAnswer: rec.FirstAnswer.String,
	}
	if rec.Level.Valid {
		e.Level = &rec.Level.Int16
	}
	if rec.Question.Valid {
		e.Question = &rec.Question.Int32
	}
	if rec.UsedHints.Valid {
		e.UsedHints = &rec.UsedHints.Int16
	}
	return e
}

func (e snapshotEntry) record() domain.SessionRecord {
	rec := domain.SessionRecord{
		Chat:        e.Chat,
		State:       domain.StateKind(e.State),
		Removed1:    sql.NullString{String: e.Removed1, Valid: e.Removed1 != ""},
		Removed2:    sql.NullString{String: e.Removed2, Valid: e.Removed2 != ""},
		FirstAnswer: sql.NullString{String: e.FirstAnswer, Valid: e.FirstAnswer != ""},
	}
	if e.Level != nil {
		rec.Level = sql.NullInt16{Int16: *e.Level, Valid: true}
	}
	if e.Question != nil {
		rec.Question = sql.NullInt32{Int32: *e.Question, Valid: true}
	}
	if e.UsedHints != nil {
		rec.UsedHints = sql.NullInt16{Int16: *e.UsedHints, Valid: true}
	}
	return rec
}

// LoadSnapshot заменяет содержимое хранилища снапшотом из файла.
// Отсутствующий файл - пустое хранилище. Повреждённая запись - ошибка.
func (r *MemorySessionRepository) LoadSnapshot(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.Info("Snapshot file not found, starting empty", zap.String("path", path))
			return nil
		}
		return fmt.Errorf("ошибка чтения снапшота %s: %w", path, err)
	}

	var entries []snapshotEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("%w: снапшот %s: %v", domain.ErrUnknownState, path, err)
	}

	sessions := make(map[int64]domain.SessionRecord, len(entries))
	for _, e := range entries {
		rec := e.record()
		if _, err := rec.Decode(); err != nil {
			return err
		}
		sessions[rec.Chat] = rec
	}

	r.mu.Lock()
	r.sessions = sessions
	r.mu.Unlock()
	r.logger.Info("Snapshot loaded", zap.String("path", path), zap.Int("count", len(sessions)))
	return nil
}

// SaveSnapshot пишет все сессии в файл через временный файл и rename.
func (r *MemorySessionRepository) SaveSnapshot(path string) error {
	r.mu.RLock()
	entries := make([]snapshotEntry, 0, len(r.sessions))
	for _, rec := range r.sessions {
		entries = append(entries, entryFromRecord(rec))
	}
	r.mu.RUnlock()
	sort.Slice(entries, func(i, j int) bool { return entries[i].Chat < entries[j].Chat })

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации снапшота: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла снапшота: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("ошибка записи снапшота: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("ошибка записи снапшота: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("ошибка сохранения снапшота %s: %w", path, err)
	}
	r.logger.Info("Snapshot saved", zap.String("path", path), zap.Int("count", len(entries)))
	return nil
}
