package scheduletasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	bufmem "github.com/iidesho/auditflow/buffer/inmemory"
	docmem "github.com/iidesho/auditflow/document/inmemory"
	"github.com/iidesho/auditflow/logevent"
	"github.com/iidesho/auditflow/tasks"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func pushLogins(t *testing.T, buf *bufmem.Buffer, n int) {
	t.Helper()
	p := logevent.NewProducer(buf)
	for i := 0; i < n; i++ {
		if err := p.Login(context.Background(), logevent.LoginEvent{UserID: int64(i)}); err != nil {
			t.Fatal(err)
		}
	}
}

type blockingBuffer struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingBuffer) Push(context.Context, string, string) error { return nil }

func (b *blockingBuffer) DrainAll(context.Context, string) ([]string, error) {
	select {
	case b.entered <- struct{}{}:
	default:
	}
	<-b.release
	return nil, nil
}

type panicBuffer struct{}

func (panicBuffer) Push(context.Context, string, string) error { return nil }

func (panicBuffer) DrainAll(context.Context, string) ([]string, error) {
	panic("buffer exploded")
}

type slowStore struct {
	entered  chan struct{}
	release  chan struct{}
	inserted atomic.Int32
}

func (s *slowStore) InsertMany(_ context.Context, _ string, docs []any) error {
	s.entered <- struct{}{}
	<-s.release
	s.inserted.Add(int32(len(docs)))
	return nil
}

func TestTickDispatch(t *testing.T) {
	buf := bufmem.New()
	docs := docmem.New()
	pushLogins(t, buf, 3)

	s := New(20 * time.Millisecond)
	s.Register(tasks.NewLoginLogFlush(buf, docs))
	s.Start()
	s.Start()
	waitFor(t, "flush", func() bool { return len(docs.Docs("login_log")) == 3 })

	pushLogins(t, buf, 2)
	waitFor(t, "second flush", func() bool { return len(docs.Docs("login_log")) == 5 })
	if err := s.Shutdown(time.Second); err != nil {
		t.Fatal(err)
	}
	if err := s.Shutdown(time.Second); err != nil {
		t.Fatal("second shutdown", err)
	}
}

func TestNothingBeforeFirstPeriod(t *testing.T) {
	buf := bufmem.New()
	docs := docmem.New()
	pushLogins(t, buf, 1)

	s := New(time.Hour)
	s.Register(tasks.NewLoginLogFlush(buf, docs))
	s.Start()
	time.Sleep(50 * time.Millisecond)
	if docs.Calls() != 0 || buf.Len(logevent.KeyLogin) != 1 {
		t.Fatal("task ran before one period elapsed")
	}
	s.Shutdown(time.Second)
}

func TestAddTask(t *testing.T) {
	buf := bufmem.New()
	docs := docmem.New()
	pushLogins(t, buf, 2)

	s := New(time.Hour)
	defer s.Shutdown(time.Second)
	if err := s.AddTask(context.Background(), tasks.NewLoginLogFlush(buf, docs)); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "manual flush", func() bool { return docs.Calls() == 1 })
}

func TestAddTaskAfterShutdown(t *testing.T) {
	s := New(time.Hour)
	s.Shutdown(time.Second)
	err := s.AddTask(context.Background(), tasks.NewLoginLogFlush(bufmem.New(), docmem.New()))
	if !errors.Is(err, ErrStopped) {
		t.Fatal("expected stopped", "got", err)
	}
	s.Start()
}

func TestAddTaskBlocksWhenFull(t *testing.T) {
	blocked := &blockingBuffer{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	defer close(blocked.release)
	s := New(time.Hour, WithQueueSize(1))
	defer s.Shutdown(time.Second)

	slow := tasks.NewLoginLogFlush(blocked, docmem.New())
	if err := s.AddTask(context.Background(), slow); err != nil {
		t.Fatal(err)
	}
	<-blocked.entered
	if err := s.AddTask(context.Background(), slow); err != nil {
		t.Fatal("queue should hold one task", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := s.AddTask(ctx, slow); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("expected AddTask to block on a full queue", "got", err)
	}
}

func TestPanicDoesNotKillWorker(t *testing.T) {
	buf := bufmem.New()
	docs := docmem.New()
	pushLogins(t, buf, 1)

	s := New(time.Hour)
	defer s.Shutdown(time.Second)
	if err := s.AddTask(context.Background(), tasks.NewOperationLogFlush(panicBuffer{}, docs)); err != nil {
		t.Fatal(err)
	}
	if err := s.AddTask(context.Background(), tasks.NewLoginLogFlush(buf, docs)); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "flush after panic", func() bool { return docs.Calls() == 1 })
}

func TestShutdownJoinsDetached(t *testing.T) {
	buf := bufmem.New()
	pushLogins(t, buf, 4)
	store := &slowStore{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}

	s := New(time.Hour)
	if err := s.AddTask(context.Background(), tasks.NewLoginLogFlush(buf, store)); err != nil {
		t.Fatal(err)
	}
	<-store.entered
	go func() {
		time.Sleep(50 * time.Millisecond)
		close(store.release)
	}()
	if err := s.Shutdown(5 * time.Second); err != nil {
		t.Fatal(err)
	}
	if n := store.inserted.Load(); n != 4 {
		t.Fatal("shutdown returned before detached insert finished", "inserted", n)
	}
}

func TestShutdownTimeout(t *testing.T) {
	buf := bufmem.New()
	pushLogins(t, buf, 1)
	store := &slowStore{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	defer close(store.release)

	s := New(time.Hour)
	if err := s.AddTask(context.Background(), tasks.NewLoginLogFlush(buf, store)); err != nil {
		t.Fatal(err)
	}
	<-store.entered
	err := s.Shutdown(50 * time.Millisecond)
	if !errors.Is(err, ErrDetachedTimeout) {
		t.Fatal("expected timeout", "got", err)
	}
}

func TestDetachedAfterClose(t *testing.T) {
	g := newGroup()
	if err := g.wait(time.Second); err != nil {
		t.Fatal(err)
	}
	ran := make(chan struct{}, 1)
	if g.Go("late", func(context.Context) { ran <- struct{}{} }) {
		t.Fatal("closed group accepted work")
	}
	select {
	case <-ran:
		t.Fatal("work ran after the group was closed")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestDetachedPanicRecovered(t *testing.T) {
	g := newGroup()
	g.Go("boom", func(context.Context) { panic("boom") })
	if err := g.wait(time.Second); err != nil {
		t.Fatal(err)
	}
	if len(g.pending()) != 0 {
		t.Fatal("panicking work still tracked")
	}
}

func TestQueuedTaskNotRunAfterShutdown(t *testing.T) {
	for i := 0; i < 20; i++ {
		blocked := &blockingBuffer{
			entered: make(chan struct{}, 1),
			release: make(chan struct{}),
		}
		buf := bufmem.New()
		docs := docmem.New()
		pushLogins(t, buf, 3)

		s := New(time.Hour)
		if err := s.AddTask(context.Background(), tasks.NewOperationLogFlush(blocked, docs)); err != nil {
			t.Fatal(err)
		}
		<-blocked.entered
		if err := s.AddTask(context.Background(), tasks.NewLoginLogFlush(buf, docs)); err != nil {
			t.Fatal(err)
		}
		if err := s.Shutdown(time.Second); err != nil {
			t.Fatal(err)
		}
		close(blocked.release)
		time.Sleep(10 * time.Millisecond)

		if n := buf.Len(logevent.KeyLogin); n != 3 {
			t.Fatal("queued flush drained the buffer after shutdown", "run", i, "remaining", n)
		}
		if docs.Calls() != 0 {
			t.Fatal("queued flush wrote after shutdown", "run", i, "calls", docs.Calls())
		}
	}
}
