package shared

import "sync/atomic"

type refState[T any] struct {
	m         *Mutex[T]
	count     atomic.Int64
	onRelease atomic.Pointer[func(T)]
}

// Ref is a reference-counted handle to a Mutex, for sharing one protected
// value across tasks with an explicit end of life. Clone adds a reference,
// Release drops one; the last Release runs the OnRelease hook with the final
// value.
type Ref[T any] struct {
	st       *refState[T]
	released atomic.Bool
}

func NewRef[T any](v T) *Ref[T] {
	st := &refState[T]{m: New(v)}
	st.count.Store(1)
	return &Ref[T]{st: st}
}

func (r *Ref[T]) live() *refState[T] {
	if r.released.Load() {
		panic(ErrReleased)
	}
	return r.st
}

func (r *Ref[T]) Clone() *Ref[T] {
	st := r.live()
	st.count.Add(1)
	return &Ref[T]{st: st}
}

// Release drops this handle. Calling it twice on the same handle is a no-op.
func (r *Ref[T]) Release() {
	if !r.released.CompareAndSwap(false, true) {
		return
	}
	if r.st.count.Add(-1) != 0 {
		return
	}
	if fn := r.st.onRelease.Load(); fn != nil {
		r.st.m.mu.Lock()
		v := r.st.m.v
		r.st.m.mu.Unlock()
		(*fn)(v)
	}
}

// OnRelease registers fn to run once the last handle is released.
func (r *Ref[T]) OnRelease(fn func(T)) { r.live().onRelease.Store(&fn) }

// Count returns the number of live handles.
func (r *Ref[T]) Count() int64 { return r.st.count.Load() }

func (r *Ref[T]) Mutex() *Mutex[T] { return r.live().m }

func (r *Ref[T]) Lock() (*Guard[T], error) { return r.Mutex().Lock() }

func (r *Ref[T]) With(fn func(v *T) error) error { return r.Mutex().With(fn) }
