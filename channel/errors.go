package channel

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed reports that the receiver is gone and nothing will read a send.
	ErrClosed = errors.New("channel: receiver closed")
	// ErrSenderClosed reports use of a Sender handle after its Close.
	ErrSenderClosed = errors.New("channel: sender handle closed")
	// ErrEmpty is returned by TryRecv when no message is queued yet.
	ErrEmpty = errors.New("channel: empty")
	// ErrDisconnected is returned by TryRecv when the queue is empty and every
	// sender has been dropped.
	ErrDisconnected = errors.New("channel: all senders dropped")
)

// SendError hands an undeliverable message back to the sender.
type SendError[T any] struct {
	Value T
}

func (e *SendError[T]) Error() string {
	return fmt.Sprintf("channel: send of %T on closed channel", e.Value)
}

func (e *SendError[T]) Unwrap() error { return ErrClosed }
