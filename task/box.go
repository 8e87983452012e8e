package task

import "sync"

// Box holds a value that can be handed off exactly once. It turns Go's
// implicit sharing into an explicit transfer of access: whoever Takes the
// value owns it, and every later Take reports ErrMoved.
type Box[D any] struct {
	mu    sync.Mutex
	v     D
	moved bool
}

func NewBox[D any](v D) *Box[D] { return &Box[D]{v: v} }

// Take removes the value from the box.
func (b *Box[D]) Take() (D, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var zero D
	if b.moved {
		return zero, ErrMoved
	}
	v := b.v
	b.v = zero
	b.moved = true
	return v, nil
}

// Moved reports whether the value has been taken.
func (b *Box[D]) Moved() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.moved
}
