package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"millionaire-bot/internal/domain"
	"millionaire-bot/internal/events"
	"millionaire-bot/internal/locker"
	"millionaire-bot/internal/metrics"
	"millionaire-bot/internal/narrator"
	"millionaire-bot/internal/repository"

	"go.uber.org/zap"
)

// Messenger доставляет ответ игроку.
type Messenger interface {
	Send(ctx context.Context, reply domain.Reply) error
}

// QuestionBank - источник вопросов по уровням.
type QuestionBank interface {
	Count(level uint8) int
	Get(level uint8, index int) (domain.Question, error)
}

// GameEngine - конечный автомат игры. Сообщения разных чатов обрабатываются
// параллельно, сообщения одного чата строго по очереди.
type GameEngine struct {
	store     repository.SessionStore
	bank      QuestionBank
	narrator  *narrator.Narrator
	messenger Messenger
	events    events.EventSink
	locks     *locker.KeyedMutex
	logger    *zap.Logger
}

func NewGameEngine(
	store repository.SessionStore,
	bank QuestionBank,
	narr *narrator.Narrator,
	messenger Messenger,
	sink events.EventSink,
	logger *zap.Logger,
) *GameEngine {
	if sink == nil {
		sink = events.NopSink{}
	}
	return &GameEngine{
		store:     store,
		bank:      bank,
		narrator:  narr,
		messenger: messenger,
		events:    sink,
		locks:     locker.New(),
		logger:    logger.Named("GameEngine"),
	}
}

// turn - результат одного перехода. Сохраняется до отправки ответа.
type turn struct {
	text     string
	keyboard *domain.Keyboard
	markdown bool
	// next - новое состояние, nil - хранилище не трогается.
	next   *domain.GameState
	remove bool
	// after выполняется после записи состояния: аналитика и метрики.
	after []func()
}

func (t *turn) then(fn func()) *turn {
	t.after = append(t.after, fn)
	return t
}

// HandleMessage обрабатывает одно сообщение игрока: читает состояние чата,
// выполняет переход, сохраняет результат и отправляет ответ.
// Ошибка возвращается только при сбое хранилища. Сбой доставки логируется
// и не откатывает сохранённое состояние.
func (e *GameEngine) HandleMessage(ctx context.Context, msg domain.IncomingMessage) (*domain.Reply, error) {
	unlock, err := e.locks.Lock(ctx, msg.ChatID)
	if err != nil {
		return nil, fmt.Errorf("не удалось захватить чат %d: %w", msg.ChatID, err)
	}
	defer unlock()

	log := e.logger.With(zap.Int64("chat_id", msg.ChatID))

	state, found, err := e.load(ctx, msg.ChatID)
	if err != nil {
		log.Error("Failed to load session", zap.Error(err))
		return nil, err
	}

	stateLabel := "new"
	if found {
		stateLabel = state.Kind.String()
	}
	metrics.MessagesTotal.WithLabelValues(stateLabel).Inc()

	g := &game{engine: e, msg: msg, state: state, log: log}
	var t *turn
	switch {
	case normalize(msg.Text) == cmdHelp:
		t = g.help()
	case !found:
		t = g.onNew()
	default:
		t, err = g.dispatch()
		if err != nil {
			log.Error("Transition failed", zap.String("state", stateLabel), zap.Error(err))
			return nil, err
		}
	}

	if err := e.persist(ctx, msg.ChatID, t); err != nil {
		log.Error("Failed to save session", zap.String("state", stateLabel), zap.Error(err))
		return nil, err
	}

	reply := domain.Reply{ChatID: msg.ChatID, Text: t.text, Keyboard: t.keyboard, Markdown: t.markdown}
	if err := e.messenger.Send(ctx, reply); err != nil {
		metrics.DeliveryFailuresTotal.Inc()
		log.Warn("Failed to deliver reply", zap.String("state", stateLabel), zap.Error(err))
	}

	for _, fn := range t.after {
		fn()
	}
	return &reply, nil
}

func (e *GameEngine) load(ctx context.Context, chatID int64) (domain.GameState, bool, error) {
	state, err := e.store.Get(ctx, chatID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.GameState{}, false, nil
	}
	if err != nil {
		return domain.GameState{}, false, fmt.Errorf("ошибка чтения сессии чата %d: %w", chatID, err)
	}
	return state, true, nil
}

func (e *GameEngine) persist(ctx context.Context, chatID int64, t *turn) error {
	switch {
	case t.remove:
		if err := e.store.Remove(ctx, chatID); err != nil {
			return fmt.Errorf("ошибка удаления сессии чата %d: %w", chatID, err)
		}
	case t.next != nil:
		if err := e.store.Upsert(ctx, chatID, *t.next); err != nil {
			return fmt.Errorf("ошибка сохранения сессии чата %d: %w", chatID, err)
		}
	}
	return nil
}

// randomQuestion выбирает случайный вопрос уровня.
func (e *GameEngine) randomQuestion(level uint8) (int, domain.Question, error) {
	idx := e.narrator.PickIndex(e.bank.Count(level))
	q, err := e.bank.Get(level, idx)
	if err != nil {
		return 0, domain.Question{}, err
	}
	return idx, q, nil
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
