package task

// State is the lifecycle position of a task.
type State int32

const (
	Created State = iota
	Running
	Completed
	Panicked
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Panicked:
		return "panicked"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is a final state.
func (s State) Terminal() bool { return s == Completed || s == Panicked }
