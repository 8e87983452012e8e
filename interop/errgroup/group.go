// Package errgroup provides an adapter that mimics golang.org/x/sync/errgroup
// semantics on top of the local scope implementation, minus the derived
// context: tasks here always run to completion. It enables incremental
// migration of errgroup call sites onto task handles.
//
// Unlike x/sync/errgroup, a panicking function does not crash the process
// from Wait; the panic is returned as an error carrying a *task.PanicError.
package errgroup

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/NetPo4ki/go-coord/scope"
)

// Group is an errgroup-like wrapper over scope.Scope. The zero value is
// ready to use and has no concurrency limit.
type Group struct {
	once   sync.Once
	s      *scope.Scope
	sem    *semaphore.Weighted
	active atomic.Int64

	errOnce sync.Once
	err     error
}

func (g *Group) lazyScope() *scope.Scope {
	g.once.Do(func() { g.s = scope.New() })
	return g.s
}

// Go runs f in a new task. When the group has a limit, Go blocks until a
// slot is free.
func (g *Group) Go(f func() error) {
	if f == nil {
		return
	}
	if g.sem != nil {
		// Acquire only fails on a done context.
		_ = g.sem.Acquire(context.Background(), 1)
	}
	g.spawn(f)
}

// TryGo runs f only if the limit allows it right now.
func (g *Group) TryGo(f func() error) bool {
	if f == nil {
		return false
	}
	if g.sem != nil && !g.sem.TryAcquire(1) {
		return false
	}
	g.spawn(f)
	return true
}

func (g *Group) spawn(f func() error) {
	sem := g.sem
	g.active.Add(1)
	g.lazyScope().Go(func() error {
		defer g.active.Add(-1)
		if sem != nil {
			defer sem.Release(1)
		}
		err := f()
		if err != nil {
			g.errOnce.Do(func() { g.err = err })
		}
		return err
	})
}

// SetLimit caps the number of active functions; n < 0 removes the cap.
// Changing a limit while functions are active panics, as in x/sync.
func (g *Group) SetLimit(n int) {
	if g.sem != nil {
		if active := g.active.Load(); active != 0 {
			panic(fmt.Errorf("errgroup: modify limit while %v goroutines in the group are still active", active))
		}
	}
	if n < 0 {
		g.sem = nil
		return
	}
	g.sem = semaphore.NewWeighted(int64(n))
}

// Wait blocks until all functions have returned and reports the first
// returned error. Panics are reported only when no function returned an
// error.
func (g *Group) Wait() error {
	err := g.lazyScope().Wait()
	if g.err != nil {
		return g.err
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()[0]
	}
	return err
}
