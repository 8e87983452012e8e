package task

import (
	"errors"
	"fmt"
	"runtime"
)

var (
	// ErrMoved is returned when data already handed to a task is accessed again.
	ErrMoved = errors.New("task: value moved into a task")
	// ErrGoexit is the failure recorded for a task whose goroutine called runtime.Goexit.
	ErrGoexit = errors.New("task: goroutine exited without returning")
)

// PanicError wraps a recovered panic value together with the goroutine
// stack trace captured at the point of the panic.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v\n\n%s", e.Value, e.Stack)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func newPanicError(v any) *PanicError {
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return &PanicError{Value: v, Stack: string(buf[:n])}
}

// TaskError attributes a failure to the task that produced it. Every error
// returned from Join is a *TaskError.
type TaskError struct {
	Task Info
	Err  error
}

func (e *TaskError) Error() string {
	if e.Task.Name != "" {
		return fmt.Sprintf("task %q failed: %v", e.Task.Name, e.Err)
	}
	return fmt.Sprintf("task %s failed: %v", e.Task.ID, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

// IsPanic reports whether err carries a recovered panic.
func IsPanic(err error) bool {
	var pe *PanicError
	return errors.As(err, &pe)
}

// CauseOf strips the *TaskError attribution from err. Non-task errors are
// returned as-is.
func CauseOf(err error) error {
	var te *TaskError
	if errors.As(err, &te) {
		return te.Err
	}
	return err
}
