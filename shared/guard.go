package shared

// Guard is the scoped access token issued by Lock. It belongs to the
// goroutine that acquired it.
type Guard[T any] struct {
	m        *Mutex[T]
	released bool
}

func newGuard[T any](m *Mutex[T]) *Guard[T] { return &Guard[T]{m: m} }

// Value returns a pointer to the protected value. The pointer must not be
// retained past Unlock.
func (g *Guard[T]) Value() *T {
	if g.released {
		panic(ErrGuardReleased)
	}
	return &g.m.v
}

func (g *Guard[T]) Get() T { return *g.Value() }

func (g *Guard[T]) Set(v T) { *g.Value() = v }

// Unlock releases the lock. Call it with defer: when it runs while the
// holder is panicking, the Mutex is poisoned, the lock released and the
// panic resumed. Unlock is a no-op on an already released Guard.
func (g *Guard[T]) Unlock() {
	if r := recover(); r != nil {
		g.release(true)
		panic(r)
	}
	g.release(false)
}

func (g *Guard[T]) release(poison bool) {
	if g.released {
		return
	}
	g.released = true
	if poison {
		g.m.poisoned.Store(true)
	}
	g.m.mu.Unlock()
}
