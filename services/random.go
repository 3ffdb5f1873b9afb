package services

import (
	"math/rand"
	"sync"
	"time"
)

// Rand is the entropy source behind every randomness-dependent branch
// (tie-breaks, slip chance, escape chance, mystery items, AI delays).
// Tests inject fixed sources to force branches.
type Rand interface {
	Intn(n int) int
	Float64() float64
	Shuffle(n int, swap func(i, j int))
}

// lockedRand serializes draws on one shared source. The engine hands
// the same Rand to every room's goroutines, and *rand.Rand on its own
// is not safe for concurrent use.
type lockedRand struct {
	mu  sync.Mutex
	src *rand.Rand
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Intn(n)
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Float64()
}

func (r *lockedRand) Shuffle(n int, swap func(i, j int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.src.Shuffle(n, swap)
}

// NewRand returns a time-seeded random source
func NewRand() Rand {
	return &lockedRand{src: rand.New(rand.NewSource(time.Now().UnixNano()))}
}
