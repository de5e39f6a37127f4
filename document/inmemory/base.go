package inmemory

import (
	"context"
	"sync"

	"github.com/iidesho/auditflow/document"
)

// Store keeps inserted documents per collection and counts InsertMany calls.
// Fail, when set, is returned by every InsertMany instead of storing.
type Store struct {
	Fail error

	docs  map[string][]any
	calls int
	lock  sync.Mutex
	added *sync.Cond
}

var _ document.Store = &Store{}

func New() *Store {
	s := &Store{
		docs: make(map[string][]any),
	}
	s.added = sync.NewCond(&s.lock)
	return s
}

func (s *Store) InsertMany(_ context.Context, collection string, docs []any) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.calls++
	defer s.added.Broadcast()
	if s.Fail != nil {
		return s.Fail
	}
	s.docs[collection] = append(s.docs[collection], docs...)
	return nil
}

func (s *Store) Docs(collection string) []any {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]any(nil), s.docs[collection]...)
}

func (s *Store) Calls() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.calls
}

// WaitCalls blocks until at least n InsertMany calls have been made.
func (s *Store) WaitCalls(n int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	for s.calls < n {
		s.added.Wait()
	}
}
