package domain

import (
	"database/sql"
	"fmt"
)

// SessionRecord - плоское представление GameState для хранилищ
// (строка таблицы sessions, хеш Redis, снапшот памяти).
// Необязательные поля хранятся как NULL.
type SessionRecord struct {
	Chat        int64          `db:"chat"`
	State       StateKind      `db:"state"`
	Level       sql.NullInt16  `db:"level"`
	Question    sql.NullInt32  `db:"question"`
	UsedHints   sql.NullInt16  `db:"used_hints"`
	Removed1    sql.NullString `db:"removed1"`
	Removed2    sql.NullString `db:"removed2"`
	FirstAnswer sql.NullString `db:"first_answer"`
}

// EncodeSession переводит состояние чата в запись хранилища.
func EncodeSession(chat int64, s GameState) SessionRecord {
	rec := SessionRecord{Chat: chat, State: s.Kind}
	if !s.InGame() {
		return rec
	}
	rec.Level = sql.NullInt16{Int16: int16(s.Level), Valid: true}
	rec.Question = sql.NullInt32{Int32: int32(s.Question), Valid: true}
	rec.UsedHints = sql.NullInt16{Int16: int16(s.UsedHints), Valid: true}
	rec.Removed1 = variantToNull(s.Removed1)
	rec.Removed2 = variantToNull(s.Removed2)
	if s.Kind == StateWaitingSecondAnswer {
		rec.FirstAnswer = variantToNull(s.FirstAnswer)
	}
	return rec
}

// Decode восстанавливает GameState. Неизвестный тег состояния - ErrUnknownState.
func (r SessionRecord) Decode() (GameState, error) {
	switch r.State {
	case StateOver:
		return NewOver(), nil
	case StatePlaying, StateWaitingSecondAnswer:
	default:
		return GameState{}, fmt.Errorf("%w: чат %d, тег %d", ErrUnknownState, r.Chat, r.State)
	}

	if !r.Level.Valid || !r.Question.Valid {
		return GameState{}, fmt.Errorf("%w: чат %d, нет уровня или вопроса", ErrUnknownState, r.Chat)
	}
	if r.Level.Int16 < 0 || r.Level.Int16 > MaxLevel {
		return GameState{}, fmt.Errorf("%w: чат %d, уровень %d", ErrUnknownState, r.Chat, r.Level.Int16)
	}
	hints := Hints(r.UsedHints.Int16)
	if !hints.Valid() {
		return GameState{}, fmt.Errorf("%w: чат %d, подсказки %d", ErrUnknownState, r.Chat, r.UsedHints.Int16)
	}

	s := GameState{
		Kind:      r.State,
		Level:     uint8(r.Level.Int16),
		Question:  int(r.Question.Int32),
		UsedHints: hints,
	}
	var err error
	if s.Removed1, err = nullToVariant(r.Removed1); err != nil {
		return GameState{}, fmt.Errorf("чат %d removed1: %w", r.Chat, err)
	}
	if s.Removed2, err = nullToVariant(r.Removed2); err != nil {
		return GameState{}, fmt.Errorf("чат %d removed2: %w", r.Chat, err)
	}
	if r.State == StateWaitingSecondAnswer {
		if s.FirstAnswer, err = nullToVariant(r.FirstAnswer); err != nil {
			return GameState{}, fmt.Errorf("чат %d first_answer: %w", r.Chat, err)
		}
	}
	return s, nil
}

func variantToNull(v Variant) sql.NullString {
	if v == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: v.String(), Valid: true}
}

func nullToVariant(ns sql.NullString) (Variant, error) {
	if !ns.Valid || ns.String == "" {
		return 0, nil
	}
	if len(ns.String) != 1 || !Variant(ns.String[0]).Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidVariant, ns.String)
	}
	return Variant(ns.String[0]), nil
}
