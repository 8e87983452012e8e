package task

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Handle is the caller's side of a spawned task. The task writes its outcome
// once, before Done is closed; Join reads it after. Dropping a Handle without
// joining detaches the task, which still runs to completion.
type Handle[T any] struct {
	info  Info
	obs   Observer
	state atomic.Int32
	done  chan struct{}

	val T
	err error
}

// Spawn starts fn on its own goroutine and returns immediately.
func Spawn[T any](fn func() (T, error), optFns ...Option) *Handle[T] {
	opts := Options{}
	for _, f := range optFns {
		f(&opts)
	}
	h := &Handle[T]{
		info: Info{ID: uuid.NewString(), Name: opts.Name},
		obs:  opts.Observer,
		done: make(chan struct{}),
	}
	if fn == nil {
		fn = func() (T, error) {
			var zero T
			return zero, errors.New("task: nil function")
		}
	}
	go h.run(fn)
	return h
}

// SpawnWith starts fn with data passed by value, so the task works on its
// own copy. Use SpawnOwned when data holds references that the spawner must
// stop using.
func SpawnWith[D, T any](data D, fn func(D) (T, error), optFns ...Option) *Handle[T] {
	if fn == nil {
		return Spawn[T](nil, optFns...)
	}
	return Spawn(func() (T, error) { return fn(data) }, optFns...)
}

// SpawnOwned moves the contents of box into a new task. After the call the
// box is empty and Take on it fails with ErrMoved. Spawning from a box that
// was already moved yields a task whose Join fails with ErrMoved.
func SpawnOwned[D, T any](box *Box[D], fn func(D) (T, error), optFns ...Option) *Handle[T] {
	data, err := box.Take()
	if err != nil {
		return Spawn(func() (T, error) {
			var zero T
			return zero, err
		}, optFns...)
	}
	return SpawnWith(data, fn, optFns...)
}

func (h *Handle[T]) run(fn func() (T, error)) {
	defer close(h.done)
	h.state.Store(int32(Running))
	start := time.Now()

	returned := false
	defer func() {
		final := Completed
		if r := recover(); r != nil {
			h.err = &TaskError{Task: h.info, Err: newPanicError(r)}
			final = Panicked
		} else if !returned {
			h.err = &TaskError{Task: h.info, Err: ErrGoexit}
			final = Panicked
		}
		if h.obs != nil {
			var cause error
			if h.err != nil {
				cause = CauseOf(h.err)
			}
			if pe := h.notify(func() {
				h.obs.TaskFinished(h.info, time.Since(start), cause, final == Panicked)
			}); pe != nil {
				h.err = &TaskError{Task: h.info, Err: errors.Join(cause, pe)}
				final = Panicked
			}
		}
		h.state.CompareAndSwap(int32(Running), int32(final))
	}()

	if h.obs != nil {
		h.obs.TaskStarted(h.info)
	}
	v, err := fn()
	h.val = v
	if err != nil {
		h.err = &TaskError{Task: h.info, Err: err}
	}
	returned = true
}

// notify runs an observer callback. A panicking observer is recorded as a
// failure of the task instead of crashing the task goroutine.
func (h *Handle[T]) notify(call func()) (pe *PanicError) {
	defer func() {
		if r := recover(); r != nil {
			pe = newPanicError(r)
		}
	}()
	call()
	return nil
}

func (h *Handle[T]) ID() string { return h.info.ID }

func (h *Handle[T]) Name() string { return h.info.Name }

func (h *Handle[T]) Info() Info { return h.info }

// State returns the current lifecycle state. Once terminal it never changes.
func (h *Handle[T]) State() State { return State(h.state.Load()) }

// Done returns a channel closed when the task reaches a terminal state.
func (h *Handle[T]) Done() <-chan struct{} { return h.done }

// Join blocks until the task finishes and returns its value, or a
// *TaskError describing why it failed. Join is idempotent: every call
// returns the same outcome. All writes the task made before finishing are
// visible to the caller once Join returns.
func (h *Handle[T]) Join() (T, error) {
	var start time.Time
	if h.obs != nil {
		start = time.Now()
	}
	<-h.done
	if h.obs != nil {
		h.obs.TaskJoined(h.info, time.Since(start))
	}
	return h.val, h.err
}

// JoinAll joins every handle in order. The returned slice holds each task's
// value at the same index; failed tasks contribute their zero value and
// their error to the joined error.
func JoinAll[T any](handles ...*Handle[T]) ([]T, error) {
	out := make([]T, len(handles))
	var errs []error
	for i, h := range handles {
		v, err := h.Join()
		out[i] = v
		if err != nil {
			errs = append(errs, err)
		}
	}
	return out, errors.Join(errs...)
}
