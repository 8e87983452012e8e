package logobs

import (
	"errors"
	"log/slog"
	"time"

	"github.com/NetPo4ki/go-coord/task"
)

// Logger implements scope.Observer (and so task.Observer) over a
// *slog.Logger.
type Logger struct {
	log *slog.Logger
}

// New returns an observer writing to log, or to a discarding logger when
// log is nil.
func New(log *slog.Logger) *Logger {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Logger{log: log}
}

func taskAttrs(info task.Info) slog.Attr {
	return slog.Group("task", slog.String("id", info.ID), slog.String("name", info.Name))
}

func (l *Logger) ScopeCreated() {
	l.log.Debug("scope created")
}

func (l *Logger) ScopeJoined(wait time.Duration, err error) {
	if err != nil {
		l.log.Warn("scope joined with failures", slog.Duration("wait", wait), slog.Any("error", err))
		return
	}
	l.log.Debug("scope joined", slog.Duration("wait", wait))
}

func (l *Logger) TaskStarted(info task.Info) {
	l.log.Debug("task started", taskAttrs(info))
}

func (l *Logger) TaskFinished(info task.Info, dur time.Duration, err error, panicked bool) {
	switch {
	case panicked:
		var value any = err
		var pe *task.PanicError
		if errors.As(err, &pe) {
			value = pe.Value
		}
		l.log.Error("task panicked", taskAttrs(info), slog.Duration("duration", dur), slog.Any("panic", value))
	case err != nil:
		l.log.Warn("task failed", taskAttrs(info), slog.Duration("duration", dur), slog.Any("error", err))
	default:
		l.log.Info("task completed", taskAttrs(info), slog.Duration("duration", dur))
	}
}

func (l *Logger) TaskJoined(info task.Info, wait time.Duration) {
	l.log.Debug("task joined", taskAttrs(info), slog.Duration("wait", wait))
}
