package channel

import (
	"iter"
	"runtime"
	"sync"
	"sync/atomic"
)

// compactAfter is the minimum consumed prefix before pop shifts the queue.
const compactAfter = 64

type core[T any] struct {
	mu       sync.Mutex
	ready    sync.Cond
	queue    []T
	head     int
	senders  int
	recvGone bool
}

func (c *core[T]) buffered() int { return len(c.queue) - c.head }

func (c *core[T]) pop() T {
	var zero T
	v := c.queue[c.head]
	c.queue[c.head] = zero
	c.head++
	switch {
	case c.head == len(c.queue):
		c.queue = c.queue[:0]
		c.head = 0
	case c.head >= compactAfter && c.head*2 >= len(c.queue):
		// Reclaim the consumed prefix so a steady backlog does not grow
		// the backing array.
		n := copy(c.queue, c.queue[c.head:])
		clear(c.queue[n:])
		c.queue = c.queue[:n]
		c.head = 0
	}
	return v
}

func (c *core[T]) dropSender() {
	c.mu.Lock()
	c.senders--
	if c.senders == 0 {
		c.ready.Broadcast()
	}
	c.mu.Unlock()
}

// handleState is shared between a Sender and its GC cleanup. It must not
// point back at the Sender.
type handleState[T any] struct {
	c       *core[T]
	dropped atomic.Bool
}

func (s *handleState[T]) drop() bool {
	if !s.dropped.CompareAndSwap(false, true) {
		return false
	}
	s.c.dropSender()
	return true
}

// Sender is one producer handle. Close it when done producing; a Sender
// that becomes unreachable without Close is dropped by the garbage
// collector, but relying on that delays end of stream indefinitely.
type Sender[T any] struct {
	st      *handleState[T]
	cleanup runtime.Cleanup
}

// Receiver is the single consumer handle.
type Receiver[T any] struct {
	c *core[T]
}

// New creates a channel with one live sender.
func New[T any]() (*Sender[T], *Receiver[T]) {
	c := &core[T]{senders: 1}
	c.ready.L = &c.mu
	return newSender(c), &Receiver[T]{c: c}
}

func newSender[T any](c *core[T]) *Sender[T] {
	st := &handleState[T]{c: c}
	s := &Sender[T]{st: st}
	s.cleanup = runtime.AddCleanup(s, func(st *handleState[T]) { st.drop() }, st)
	return s
}

// Clone returns a new producer handle on the same channel. Cloning a closed
// handle is a programming error and panics.
func (s *Sender[T]) Clone() *Sender[T] {
	c := s.st.c
	c.mu.Lock()
	if s.st.dropped.Load() {
		c.mu.Unlock()
		panic(ErrSenderClosed)
	}
	c.senders++
	c.mu.Unlock()
	return newSender(c)
}

// Send enqueues v without blocking. It fails with a *SendError wrapping
// ErrClosed once the receiver has been closed, handing v back.
func (s *Sender[T]) Send(v T) error {
	if s.st.dropped.Load() {
		return ErrSenderClosed
	}
	c := s.st.c
	c.mu.Lock()
	defer c.mu.Unlock()
	// A concurrent Close on this handle takes c.mu to drop the sender, so
	// checking again here keeps the append ahead of end of stream.
	if s.st.dropped.Load() {
		return ErrSenderClosed
	}
	if c.recvGone {
		return &SendError[T]{Value: v}
	}
	c.queue = append(c.queue, v)
	c.ready.Signal()
	runtime.KeepAlive(s)
	return nil
}

// Close drops this producer handle. It is safe to call more than once.
func (s *Sender[T]) Close() {
	if s.st.drop() {
		s.cleanup.Stop()
	}
}

// Count returns the number of live producer handles.
func (s *Sender[T]) Count() int {
	c := s.st.c
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.senders
}

// Recv blocks until a message is available or the stream has ended. The
// boolean is false at end of stream: every sender was dropped and the
// queue is drained, or the receiver was closed.
func (r *Receiver[T]) Recv() (T, bool) {
	c := r.c
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.buffered() == 0 && c.senders > 0 && !c.recvGone {
		c.ready.Wait()
	}
	if c.buffered() == 0 || c.recvGone {
		var zero T
		return zero, false
	}
	return c.pop(), true
}

// TryRecv returns the next message without blocking.
func (r *Receiver[T]) TryRecv() (T, error) {
	c := r.c
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	switch {
	case c.recvGone:
		return zero, ErrDisconnected
	case c.buffered() > 0:
		return c.pop(), nil
	case c.senders == 0:
		return zero, ErrDisconnected
	default:
		return zero, ErrEmpty
	}
}

// All yields messages until end of stream. The sequence is lazy and cannot
// be restarted once exhausted.
func (r *Receiver[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, ok := r.Recv()
			if !ok || !yield(v) {
				return
			}
		}
	}
}

// Len returns the number of queued messages.
func (r *Receiver[T]) Len() int {
	c := r.c
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffered()
}

// Close drops the receiver. Queued messages are discarded and every later
// Send fails.
func (r *Receiver[T]) Close() {
	c := r.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.recvGone {
		return
	}
	c.recvGone = true
	clear(c.queue)
	c.queue = nil
	c.head = 0
	c.ready.Broadcast()
}
