// Package document is the durable archive the flush tasks write audit records to.
package document

import (
	"context"
	"errors"
)

type Store interface {
	// InsertMany writes docs to collection in a single call.
	InsertMany(ctx context.Context, collection string, docs []any) error
}

var ErrUnavailable = errors.New("document store unavailable")

type unavailable struct {
	err error
}

func (u unavailable) Error() string {
	return ErrUnavailable.Error() + ": " + u.err.Error()
}

func (u unavailable) Unwrap() []error {
	return []error{ErrUnavailable, u.err}
}

func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	return unavailable{err: err}
}
