// Package task spawns independently scheduled units of work and joins them.
// A spawned task owns the data it captures, reports its outcome exactly once
// through a Handle, and never takes down the goroutine that joins it: panics
// are recovered and surfaced as errors from Join.
package task
