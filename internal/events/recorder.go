package events

import (
	"context"
	"time"

	"millionaire-bot/internal/domain"
	"millionaire-bot/internal/metrics"
	"millionaire-bot/pkg/taskmanager"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var _ EventSink = (*Recorder)(nil)

// Recorder строит события и пишет их через Writer в пуле фоновых задач.
// Если пул заполнен или остановлен, событие отбрасывается.
type Recorder struct {
	tasks  *taskmanager.TaskManager
	writer Writer
	logger *zap.Logger
	now    func() time.Time
}

// NewRecorder создаёт Recorder.
func NewRecorder(tasks *taskmanager.TaskManager, writer Writer, logger *zap.Logger) *Recorder {
	return &Recorder{
		tasks:  tasks,
		writer: writer,
		logger: logger.Named("EventRecorder"),
		now:    time.Now,
	}
}

func (r *Recorder) RecordGameStart(chatID int64, user domain.User) {
	u := user
	r.submit(domain.GameEvent{
		Kind:    domain.EventGameStarted,
		ChatID:  chatID,
		Started: true,
		User:    &u,
	})
}

func (r *Recorder) RecordAnswer(chatID int64, level uint8, question int, answer1, answer2 domain.Variant, correct bool) {
	right := correct
	r.submit(domain.GameEvent{
		Kind:     domain.EventAnswer,
		ChatID:   chatID,
		Level:    int(level),
		Question: question,
		Answer:   answer1.String() + answer2.String(),
		Right:    &right,
	})
}

func (r *Recorder) RecordHint(chatID int64, level uint8, question int, hint domain.Hints) {
	r.submit(domain.GameEvent{
		Kind:     domain.EventHint,
		ChatID:   chatID,
		Level:    int(level),
		Question: question,
		Hint:     hint.Tag(),
	})
}

func (r *Recorder) submit(event domain.GameEvent) {
	event.ID = uuid.New()
	event.Date = r.now().UTC()

	_, err := r.tasks.SubmitTask("event:"+string(event.Kind), func(ctx context.Context) error {
		return r.writer.Write(ctx, event)
	})
	if err != nil {
		metrics.EventsDroppedTotal.Inc()
		r.logger.Warn("Event dropped",
			zap.String("kind", string(event.Kind)),
			zap.Int64("chat_id", event.ChatID),
			zap.Error(err))
	}
}
