package shared

import "errors"

var (
	// ErrPoisoned reports that a previous guard holder failed mid-access.
	ErrPoisoned = errors.New("shared: lock poisoned by a failed holder")
	// ErrWouldBlock is returned by TryLock when the lock is held.
	ErrWouldBlock = errors.New("shared: lock is held")
	// ErrGuardReleased is the panic value for using a Guard after Unlock.
	ErrGuardReleased = errors.New("shared: guard used after unlock")
	// ErrReleased is the panic value for using a Ref after Release.
	ErrReleased = errors.New("shared: reference used after release")
)

// PoisonError is returned from Lock on a poisoned Mutex. The lock is not
// held when the error is returned; Guard acquires it regardless of the
// poison so the caller can inspect or repair the value.
type PoisonError[T any] struct {
	m *Mutex[T]
}

func (e *PoisonError[T]) Error() string { return ErrPoisoned.Error() }

func (e *PoisonError[T]) Unwrap() error { return ErrPoisoned }

// Guard blocks until the lock is free and returns a Guard on the poisoned
// value. The Mutex stays poisoned until ClearPoison.
func (e *PoisonError[T]) Guard() *Guard[T] {
	e.m.mu.Lock()
	return newGuard(e.m)
}
