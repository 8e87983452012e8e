// Package scope groups tasks under one join point. A Scope owns the tasks
// it spawns; Wait joins every one of them, including tasks spawned while
// waiting and tasks of child scopes, and reports all failures together.
package scope
