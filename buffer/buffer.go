// Package buffer holds the named FIFO queues that decouple audit event producers
// from the scheduled flush tasks.
//
// A buffer key is created by its first Push and is never destroyed; DrainAll
// empties it. Implementations must make DrainAll atomic with respect to Push:
// every pushed payload is returned by exactly one drain.
package buffer

import (
	"context"
	"errors"
)

type Buffer interface {
	// Push appends payload to the tail of the list at key.
	Push(ctx context.Context, key string, payload string) error
	// DrainAll removes and returns the whole list at key in push order.
	// An absent or empty key gives an empty result and no error.
	DrainAll(ctx context.Context, key string) ([]string, error)
}

// ErrUnavailable marks failures talking to the backing store. They are transient
// from the point of view of a scheduled task.
var ErrUnavailable = errors.New("buffer store unavailable")

type unavailable struct {
	err error
}

func (u unavailable) Error() string {
	return ErrUnavailable.Error() + ": " + u.err.Error()
}

func (u unavailable) Unwrap() []error {
	return []error{ErrUnavailable, u.err}
}

// Unavailable wraps err so that errors.Is(err, ErrUnavailable) holds while the
// original cause stays reachable.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	return unavailable{err: err}
}
