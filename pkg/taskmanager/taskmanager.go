package taskmanager

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrTooManyTasks - достигнут лимит одновременно выполняющихся задач.
	ErrTooManyTasks = errors.New("превышено максимальное количество активных задач")
	// ErrClosed - менеджер останавливается и новые задачи не принимает.
	ErrClosed = errors.New("менеджер задач остановлен")
)

// TaskFunc - фоновая работа. ctx отменяется, если Shutdown не дождался завершения.
type TaskFunc func(ctx context.Context) error

// Task - выполняющаяся задача.
type Task struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// Config содержит конфигурацию для TaskManager
type Config struct {
	MaxTasks int
	Timeout  time.Duration // ограничение на одну задачу, 0 - без ограничения
}

// TaskManager запускает фоновые задачи "выстрелил и забыл" с ограничением на количество.
// Задачи сверх лимита не ставятся в очередь, а отклоняются: вызывающий не блокируется.
type TaskManager struct {
	mu       sync.Mutex
	tasks    map[uuid.UUID]*Task
	maxTasks int
	timeout  time.Duration
	closing  chan struct{}
	wg       sync.WaitGroup
	baseCtx  context.Context
	cancel   context.CancelFunc
	logger   *zap.Logger
}

// New создает новый экземпляр TaskManager
func New(cfg Config, logger *zap.Logger) *TaskManager {
	maxTasks := cfg.MaxTasks
	if maxTasks <= 0 {
		maxTasks = 10
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskManager{
		tasks:    make(map[uuid.UUID]*Task),
		maxTasks: maxTasks,
		timeout:  cfg.Timeout,
		closing:  make(chan struct{}),
		baseCtx:  ctx,
		cancel:   cancel,
		logger:   logger.Named("TaskManager"),
	}
}

// SubmitTask запускает задачу в отдельной горутине.
func (tm *TaskManager) SubmitTask(name string, fn TaskFunc) (uuid.UUID, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	select {
	case <-tm.closing:
		return uuid.Nil, ErrClosed
	default:
	}
	if len(tm.tasks) >= tm.maxTasks {
		return uuid.Nil, ErrTooManyTasks
	}

	task := &Task{ID: uuid.New(), Name: name, CreatedAt: time.Now()}
	tm.tasks[task.ID] = task

	tm.wg.Add(1)
	go func() {
		defer tm.wg.Done()
		defer tm.finish(task.ID)
		tm.runTask(task, fn)
	}()

	return task.ID, nil
}

func (tm *TaskManager) runTask(task *Task, fn TaskFunc) {
	ctx := tm.baseCtx
	if tm.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, tm.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			tm.logger.Error("Задача завершилась паникой", zap.String("task", task.Name), zap.Any("panic", r))
		}
	}()

	if err := fn(ctx); err != nil {
		tm.logger.Warn("Задача завершилась с ошибкой",
			zap.String("task", task.Name),
			zap.Stringer("taskID", task.ID),
			zap.Duration("elapsed", time.Since(task.CreatedAt)),
			zap.Error(err))
		return
	}
	tm.logger.Debug("Задача выполнена", zap.String("task", task.Name), zap.Stringer("taskID", task.ID))
}

func (tm *TaskManager) finish(id uuid.UUID) {
	tm.mu.Lock()
	delete(tm.tasks, id)
	tm.mu.Unlock()
}

// Active - количество выполняющихся задач.
func (tm *TaskManager) Active() int {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return len(tm.tasks)
}

// Shutdown перестаёт принимать задачи и ждёт завершения текущих.
// По истечении ctx оставшиеся задачи отменяются, их результат теряется.
func (tm *TaskManager) Shutdown(ctx context.Context) error {
	tm.mu.Lock()
	select {
	case <-tm.closing:
	default:
		close(tm.closing)
	}
	pending := len(tm.tasks)
	tm.mu.Unlock()

	done := make(chan struct{})
	go func() {
		tm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		tm.cancel()
		return nil
	case <-ctx.Done():
		tm.cancel()
		tm.logger.Warn("Не дождались завершения фоновых задач", zap.Int("pending_at_shutdown", pending))
		return errors.New("таймаут при ожидании завершения задач")
	}
}
