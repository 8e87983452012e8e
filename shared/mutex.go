package shared

import (
	"sync"
	"sync/atomic"
)

// Mutex owns a value of type T and serializes access to it. The zero value
// is an unlocked Mutex holding T's zero value. A Mutex must not be copied
// after first use.
type Mutex[T any] struct {
	mu       sync.Mutex
	poisoned atomic.Bool
	v        T
}

func New[T any](v T) *Mutex[T] { return &Mutex[T]{v: v} }

// Lock blocks until exclusive access is available. On a poisoned Mutex it
// returns a nil Guard and a *PoisonError.
func (m *Mutex[T]) Lock() (*Guard[T], error) {
	m.mu.Lock()
	if m.poisoned.Load() {
		m.mu.Unlock()
		return nil, &PoisonError[T]{m: m}
	}
	return newGuard(m), nil
}

// TryLock is Lock without waiting: it fails with ErrWouldBlock when the
// lock is held.
func (m *Mutex[T]) TryLock() (*Guard[T], error) {
	if !m.mu.TryLock() {
		return nil, ErrWouldBlock
	}
	if m.poisoned.Load() {
		m.mu.Unlock()
		return nil, &PoisonError[T]{m: m}
	}
	return newGuard(m), nil
}

// With runs fn with exclusive access to the value and releases the lock on
// every exit path. If fn panics or exits the goroutine, the Mutex is
// poisoned before the lock is released and the panic keeps unwinding.
func (m *Mutex[T]) With(fn func(v *T) error) error {
	g, err := m.Lock()
	if err != nil {
		return err
	}
	completed := false
	defer func() {
		g.release(!completed)
	}()
	err = fn(g.Value())
	completed = true
	return err
}

func (m *Mutex[T]) IsPoisoned() bool { return m.poisoned.Load() }

// ClearPoison marks the value as consistent again.
func (m *Mutex[T]) ClearPoison() { m.poisoned.Store(false) }

// Into returns a copy of the protected value after waiting for the current
// holder. On a poisoned Mutex the value is still returned, alongside a
// *PoisonError.
func (m *Mutex[T]) Into() (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.poisoned.Load() {
		return m.v, &PoisonError[T]{m: m}
	}
	return m.v, nil
}
