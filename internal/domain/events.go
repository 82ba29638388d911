package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventKind - тип события аналитики.
type EventKind string

const (
	EventGameStarted EventKind = "game_started"
	EventAnswer      EventKind = "answer"
	EventHint        EventKind = "hint"
)

// GameEvent - запись аналитики. Поля, не относящиеся к типу события, пустые.
type GameEvent struct {
	ID       uuid.UUID `json:"id" db:"id"`
	Kind     EventKind `json:"kind" db:"kind"`
	ChatID   int64     `json:"chat_id" db:"chat"`
	Date     time.Time `json:"date" db:"date"`
	Level    int       `json:"level" db:"level"`
	Question int       `json:"question" db:"question"`
	Started  bool      `json:"started" db:"started"`
	// Answer - "A" или "AB" при подсказке "два ответа".
	Answer string `json:"answer,omitempty" db:"answer"`
	Right  *bool  `json:"right,omitempty" db:"right"`
	Hint   string `json:"hint,omitempty" db:"hint"`
	User   *User  `json:"user,omitempty" db:"-"`
}

// GamesPerDay - строка отчёта "игр за день".
type GamesPerDay struct {
	Day      time.Time `json:"day" db:"day"`
	Started  int64     `json:"started" db:"started"`
	Finished int64     `json:"finished" db:"finished"`
}
