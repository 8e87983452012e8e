package task

import "time"

// Info identifies a task in errors and observer callbacks.
type Info struct {
	ID   string
	Name string
}

// Observer receives task lifecycle events. Implementations must be safe for
// concurrent use; callbacks run on the task's goroutine or the joiner's.
type Observer interface {
	TaskStarted(info Info)
	TaskFinished(info Info, dur time.Duration, err error, panicked bool)
	TaskJoined(info Info, wait time.Duration)
}

type Option func(*Options)

type Options struct {
	Name     string
	Observer Observer
}

func WithName(name string) Option { return func(o *Options) { o.Name = name } }

func WithObserver(obs Observer) Option { return func(o *Options) { o.Observer = obs } }

type multiObserver []Observer

// MultiObserver fans every event out to each non-nil observer in order.
func MultiObserver(obs ...Observer) Observer {
	var m multiObserver
	for _, o := range obs {
		if o != nil {
			m = append(m, o)
		}
	}
	switch len(m) {
	case 0:
		return nil
	case 1:
		return m[0]
	}
	return m
}

func (m multiObserver) TaskStarted(info Info) {
	for _, o := range m {
		o.TaskStarted(info)
	}
}

func (m multiObserver) TaskFinished(info Info, dur time.Duration, err error, panicked bool) {
	for _, o := range m {
		o.TaskFinished(info, dur, err, panicked)
	}
}

func (m multiObserver) TaskJoined(info Info, wait time.Duration) {
	for _, o := range m {
		o.TaskJoined(info, wait)
	}
}
