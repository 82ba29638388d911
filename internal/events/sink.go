package events

import (
	"context"

	"millionaire-bot/internal/domain"
)

// EventSink принимает события аналитики от игры. Методы не блокируют и не возвращают ошибок:
// запись идёт в фоне и может потеряться при остановке процесса.
type EventSink interface {
	RecordGameStart(chatID int64, user domain.User)
	RecordAnswer(chatID int64, level uint8, question int, answer1, answer2 domain.Variant, correct bool)
	RecordHint(chatID int64, level uint8, question int, hint domain.Hints)
}

// Writer доставляет одно событие в хранилище или брокер.
type Writer interface {
	Write(ctx context.Context, event domain.GameEvent) error
}

// NopSink отбрасывает события (EVENTS_BACKEND=none).
type NopSink struct{}

func (NopSink) RecordGameStart(int64, domain.User)                                   {}
func (NopSink) RecordAnswer(int64, uint8, int, domain.Variant, domain.Variant, bool) {}
func (NopSink) RecordHint(int64, uint8, int, domain.Hints)                           {}

var _ EventSink = NopSink{}
