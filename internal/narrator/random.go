package narrator

import (
	"math/rand/v2"
	"sync"
)

// Random - источник случайности ведущего. Подменяется в тестах.
type Random interface {
	// IntN возвращает число в [0, n). n > 0.
	IntN(n int) int
	// Float64 возвращает число в [0, 1).
	Float64() float64
}

type lockedRandom struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandom создаёт потокобезопасный генератор. seed == 0 - случайный сид.
func NewRandom(seed uint64) Random {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &lockedRandom{rnd: rand.New(rand.NewPCG(seed, seed>>1|1))}
}

func (r *lockedRandom) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.IntN(n)
}

func (r *lockedRandom) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Float64()
}
