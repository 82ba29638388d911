package locker

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// KeyedMutex - взаимное исключение по ключу (id чата). Записи создаются при
// первом Lock и удаляются, когда ключ больше никто не держит и не ждёт.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[int64]*entry
}

type entry struct {
	sem  *semaphore.Weighted
	refs int
}

// New создаёт пустой KeyedMutex.
func New() *KeyedMutex {
	return &KeyedMutex{entries: make(map[int64]*entry)}
}

// Lock захватывает ключ. При отмене ctx возвращает ctx.Err() и ключ не держит.
// При успехе нужно вызвать возвращённую функцию освобождения ровно один раз.
func (k *KeyedMutex) Lock(ctx context.Context, key int64) (func(), error) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		k.release(key, e)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			e.sem.Release(1)
			k.release(key, e)
		})
	}, nil
}

func (k *KeyedMutex) release(key int64, e *entry) {
	k.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
	k.mu.Unlock()
}

// Len - количество ключей, которые сейчас держат или ждут.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
