// Package shared guards a value behind a mutual-exclusion lock that hands
// out scoped access tokens.
//
// The value inside a Mutex is only reachable through a Guard, and at most
// one Guard per Mutex is live at a time. A holder that panics (or exits its
// goroutine) while holding the Guard poisons the Mutex; later Lock calls
// report the poisoning instead of granting access to a value that may have
// been left half-updated.
//
// Prefer With, which releases on every exit path:
//
//	counter := shared.New(0)
//	err := counter.With(func(n *int) error {
//		*n++
//		return nil
//	})
//
// Lock returns a Guard for callers that need it across several statements;
// release it with a deferred Unlock so a panic still poisons and releases.
package shared
