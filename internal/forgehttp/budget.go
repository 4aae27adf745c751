package forgehttp

import "sync"

// Budget caps the number of forge dispatches a run may spend. It is
// shared between the serial discovery loop and the parallel analyzer
// workers, so every access takes the mutex.
type Budget struct {
	mu    sync.Mutex
	max   int
	total int
}

// NewBudget builds a budget with the given ceiling. A ceiling of zero
// or less means unlimited.
func NewBudget(max int) *Budget {
	return &Budget{max: max}
}

// Register accounts one dispatch. It returns false once the ceiling is
// crossed; callers must treat that as a terminal stop signal. The
// dispatch that crosses the ceiling is still counted, so the total can
// finish one past the ceiling when calls were in flight.
func (b *Budget) Register() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.total++
	return b.max <= 0 || b.total < b.max
}

// Exhausted reports whether the ceiling has been reached. New calls
// observing true are refused before any network activity.
func (b *Budget) Exhausted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.max > 0 && b.total >= b.max
}

// Total returns the number of dispatches accounted so far.
func (b *Budget) Total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

// Max returns the configured ceiling.
func (b *Budget) Max() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.max
}
