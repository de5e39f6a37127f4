// Package scheduletasks runs registered tasks periodically on a single worker.
package scheduletasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/iidesho/auditflow/metrics"
	"github.com/iidesho/auditflow/tasks"
	"github.com/iidesho/auditflow/traces"
	"github.com/iidesho/bragi/sbragi"
	"go.opentelemetry.io/otel/attribute"
)

var log = sbragi.WithLocalScope(sbragi.LevelInfo)

const DefaultQueueSize = 100

var (
	ErrStopped = errors.New("scheduler stopped")
	ErrPanic   = errors.New("task panicked")
)

type Option func(*Scheduler)

func WithQueueSize(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

type Scheduler struct {
	name      string
	period    time.Duration
	queueSize int
	queue     chan tasks.Task
	ctx       context.Context
	cancel    context.CancelFunc
	detached  *group

	lock       sync.Mutex
	registered []tasks.Task
	started    bool
	stopped    bool
}

// New creates a scheduler and starts its worker. Nothing is dispatched until
// Start is called.
func New(period time.Duration, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		name:      uuid.Must(uuid.NewV7()).String(),
		period:    period,
		queueSize: DefaultQueueSize,
		ctx:       ctx,
		cancel:    cancel,
		detached:  newGroup(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.queue = make(chan tasks.Task, s.queueSize)
	go s.work()
	return s
}

// Register adds tasks that are dispatched on every tick.
func (s *Scheduler) Register(ts ...tasks.Task) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.registered = append(s.registered, ts...)
}

// Start begins ticking. The first dispatch happens one full period after Start.
func (s *Scheduler) Start() {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true
	log.Info("starting scheduler", "scheduler", s.name, "period", s.period)
	go s.tick()
}

func (s *Scheduler) tick() {
	// A time.Ticker never fires at creation, so nothing runs before one period.
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		}
		s.lock.Lock()
		due := append([]tasks.Task(nil), s.registered...)
		s.lock.Unlock()
		for _, t := range due {
			if err := s.AddTask(s.ctx, t); err != nil {
				return
			}
		}
	}
}

// AddTask queues t for the worker, blocking while the queue is full.
func (s *Scheduler) AddTask(ctx context.Context, t tasks.Task) error {
	if s.ctx.Err() != nil {
		return ErrStopped
	}
	select {
	case s.queue <- t:
		return nil
	case <-s.ctx.Done():
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) work() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case t := <-s.queue:
			// select picks randomly among ready cases, so a queued task can
			// still be received after Shutdown.
			if s.ctx.Err() != nil {
				return
			}
			s.execute(t)
		}
	}
}

func (s *Scheduler) execute(t tasks.Task) {
	metrics.TaskExecutions.WithLabelValues(t.Name()).Inc()
	start := time.Now()
	err := s.run(t)
	if err == nil {
		log.Trace("executed task", "task", t.Name(), "duration", time.Since(start))
		return
	}
	metrics.TaskErrors.WithLabelValues(t.Name()).Inc()
	if t.OnError(err) == tasks.Stop {
		log.Warning("task asked to stop, scheduler keeps running", "task", t.Name(), "scheduler", s.name)
	}
}

func (s *Scheduler) run(t tasks.Task) (err error) {
	ctx, span := traces.Start(s.ctx, "execute "+t.Name(), attribute.String("scheduler", s.name))
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrPanic, t.Name(), r)
		}
		traces.End(span, err)
	}()
	return t.Execute(ctx, s.detached)
}

// Shutdown stops ticking and the worker without waiting for a running task,
// then waits up to timeout for detached work. Work still running after that
// is left behind and reported in the returned error.
func (s *Scheduler) Shutdown(timeout time.Duration) error {
	s.lock.Lock()
	if s.stopped {
		s.lock.Unlock()
		return nil
	}
	s.stopped = true
	s.lock.Unlock()

	log.Info("stopping scheduler", "scheduler", s.name)
	s.cancel()
	return s.detached.wait(timeout)
}
