package scope

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/NetPo4ki/go-coord/task"
)

type Option func(*Options)

type Options struct {
	Observer       Observer
	MaxConcurrency int
	Limiter        Limiter
}

func WithObserver(obs Observer) Option { return func(o *Options) { o.Observer = obs } }

func WithMaxConcurrency(n int) Option { return func(o *Options) { o.MaxConcurrency = n } }

// WithLimiter installs a custom Limiter. It takes precedence over
// WithMaxConcurrency.
func WithLimiter(l Limiter) Option { return func(o *Options) { o.Limiter = l } }

type Observer interface {
	task.Observer
	ScopeCreated()
	ScopeJoined(wait time.Duration, err error)
}

type Scope struct {
	mu       sync.Mutex
	handles  []*task.Handle[struct{}]
	children []*Scope

	opts Options
	obs  Observer
	lim  Limiter
}

func New(optFns ...Option) *Scope {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return newScope(opts)
}

func newScope(opts Options) *Scope {
	s := &Scope{opts: opts, obs: opts.Observer, lim: opts.Limiter}
	if s.lim == nil && opts.MaxConcurrency > 0 {
		s.lim = newSemaphoreLimiter(opts.MaxConcurrency)
	}
	if s.obs != nil {
		s.obs.ScopeCreated()
	}
	return s
}

// Go spawns fn as a task owned by the scope.
func (s *Scope) Go(fn func() error) { s.GoNamed("", fn) }

// GoNamed is Go with a task name used in errors and observer events.
func (s *Scope) GoNamed(name string, fn func() error) {
	if fn == nil {
		return
	}
	taskOpts := []task.Option{task.WithName(name)}
	if s.obs != nil {
		taskOpts = append(taskOpts, task.WithObserver(s.obs))
	}
	lim := s.lim
	h := task.Spawn(func() (struct{}, error) {
		if lim != nil {
			if err := lim.Acquire(context.Background()); err != nil {
				return struct{}{}, err
			}
			defer lim.Release()
		}
		return struct{}{}, fn()
	}, taskOpts...)

	s.mu.Lock()
	s.handles = append(s.handles, h)
	s.mu.Unlock()
}

// Wait joins every task of the scope and its children. It returns nil when
// all succeeded, otherwise the errors.Join of every *task.TaskError. Wait
// may be called more than once and returns an equivalent error each time.
func (s *Scope) Wait() error {
	var start time.Time
	if s.obs != nil {
		start = time.Now()
	}
	var errs []error
	for i := 0; ; i++ {
		s.mu.Lock()
		if i >= len(s.handles) {
			s.mu.Unlock()
			break
		}
		h := s.handles[i]
		s.mu.Unlock()
		if _, err := h.Join(); err != nil {
			errs = append(errs, err)
		}
	}
	s.mu.Lock()
	children := append([]*Scope(nil), s.children...)
	s.mu.Unlock()
	for _, c := range children {
		if err := c.Wait(); err != nil {
			errs = append(errs, err)
		}
	}
	err := errors.Join(errs...)
	if s.obs != nil {
		s.obs.ScopeJoined(time.Since(start), err)
	}
	return err
}

// Len returns the number of tasks spawned directly in the scope.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// Child creates a scope whose tasks are also joined by the parent's Wait.
// It inherits the parent's observer; the concurrency limit is its own.
func (s *Scope) Child(optFns ...Option) *Scope {
	childOpts := Options{Observer: s.opts.Observer}
	for _, fn := range optFns {
		fn(&childOpts)
	}
	cs := newScope(childOpts)
	s.mu.Lock()
	s.children = append(s.children, cs)
	s.mu.Unlock()
	return cs
}
