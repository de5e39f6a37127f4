package scheduletasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/iidesho/auditflow/tasks"
	"github.com/iidesho/auditflow/traces"
)

var ErrDetachedTimeout = errors.New("detached work still running")

// group tracks work tasks hand off from the worker.
type group struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	lock    sync.Mutex
	running map[uint64]string
	next    uint64
	closed  bool
}

var _ tasks.Detacher = &group{}

func newGroup() *group {
	ctx, cancel := context.WithCancel(context.Background())
	return &group{
		ctx:     ctx,
		cancel:  cancel,
		running: make(map[uint64]string),
	}
}

func (g *group) Go(name string, fn func(ctx context.Context)) bool {
	g.lock.Lock()
	if g.closed {
		g.lock.Unlock()
		log.Warning("rejecting detached work after shutdown", "name", name)
		return false
	}
	id := g.next
	g.next++
	g.running[id] = name
	g.wg.Add(1)
	g.lock.Unlock()

	go func() {
		ctx, span := traces.Start(g.ctx, "detached "+name)
		defer func() {
			var err error
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in detached work: %v", r)
				log.Error("panic in detached work", "name", name, "panic", r)
			}
			traces.End(span, err)
			g.lock.Lock()
			delete(g.running, id)
			g.lock.Unlock()
			g.wg.Done()
		}()
		fn(ctx)
	}()
	return true
}

func (g *group) pending() []string {
	g.lock.Lock()
	defer g.lock.Unlock()
	names := make([]string, 0, len(g.running))
	for _, name := range g.running {
		names = append(names, name)
	}
	return names
}

// wait refuses new work and joins what is running for at most timeout. The
// context handed to detached work is cancelled once wait returns.
func (g *group) wait(timeout time.Duration) error {
	g.lock.Lock()
	g.closed = true
	g.lock.Unlock()
	defer g.cancel()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
	}
	names := g.pending()
	log.Warning("abandoning detached work", "pending", names)
	return fmt.Errorf("%w: %v", ErrDetachedTimeout, names)
}
