// Package tasks defines the closed set of periodic jobs the scheduler runs.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iidesho/auditflow/buffer"
	"github.com/iidesho/auditflow/document"
	"github.com/iidesho/auditflow/logevent"
	"github.com/iidesho/auditflow/tenant"
	"github.com/iidesho/bragi/sbragi"
)

var log = sbragi.WithLocalScope(sbragi.LevelInfo)

type Kind uint8

const (
	KindLoginLogFlush Kind = iota + 1
	KindOperationLogFlush
	KindTenantExpiry
)

func (k Kind) String() string {
	switch k {
	case KindLoginLogFlush:
		return "login_log_flush"
	case KindOperationLogFlush:
		return "operation_log_flush"
	case KindTenantExpiry:
		return "tenant_expiry"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ErrorAction is what a task asks the scheduler to do after a failed run.
type ErrorAction uint8

const (
	Continue ErrorAction = iota
	Stop
)

func (a ErrorAction) String() string {
	if a == Stop {
		return "stop"
	}
	return "continue"
}

// Detacher runs work outside the scheduler's worker. The context passed to fn
// outlives the Execute call that spawned it. Go returns false, without running
// fn, once the detacher has been closed.
type Detacher interface {
	Go(name string, fn func(ctx context.Context)) bool
}

var (
	ErrUnknownKind = errors.New("unknown task kind")
	ErrDecode      = errors.New("undecodable buffered event")
	ErrDetached    = errors.New("detached work refused")
)

// Task is one of the Kind variants. The zero Task is invalid and fails with
// ErrUnknownKind.
type Task struct {
	kind   Kind
	flush  *flush
	expiry *expiry
}

func NewLoginLogFlush(buf buffer.Buffer, docs document.Store) Task {
	return Task{
		kind:  KindLoginLogFlush,
		flush: &flush{category: logevent.CategoryLogin, buf: buf, docs: docs},
	}
}

func NewOperationLogFlush(buf buffer.Buffer, docs document.Store) Task {
	return Task{
		kind:  KindOperationLogFlush,
		flush: &flush{category: logevent.CategoryOperation, buf: buf, docs: docs},
	}
}

type Option func(*expiry)

// WithClock replaces time.Now in the tenant expiry sweep.
func WithClock(now func() time.Time) Option {
	return func(e *expiry) {
		e.now = now
	}
}

func NewTenantExpiry(store tenant.Store, opts ...Option) Task {
	e := &expiry{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return Task{
		kind:   KindTenantExpiry,
		expiry: e,
	}
}

func (t Task) Name() string {
	return t.kind.String()
}

func (t Task) Kind() Kind {
	return t.kind
}

// Execute does the quick part of the task inline and hands store writes to d.
func (t Task) Execute(ctx context.Context, d Detacher) error {
	switch t.kind {
	case KindLoginLogFlush, KindOperationLogFlush:
		return t.flush.run(ctx, d, t.Name())
	case KindTenantExpiry:
		return t.expiry.run(d, t.Name())
	}
	return fmt.Errorf("%w: %d", ErrUnknownKind, uint8(t.kind))
}

func (t Task) OnError(err error) ErrorAction {
	switch {
	case errors.Is(err, buffer.ErrUnavailable):
		log.WithError(err).Warning("event buffer unavailable", "task", t.Name())
	default:
		log.WithError(err).Error("task failed", "task", t.Name())
	}
	return Continue
}
