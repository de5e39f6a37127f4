package inmemory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/iidesho/auditflow/active"
	"github.com/iidesho/auditflow/idgen"
	"github.com/iidesho/auditflow/tenant"
)

type Store struct {
	gen     *idgen.Generator
	tenants map[int64]tenant.Tenant
	lock    sync.Mutex
}

var _ tenant.Store = &Store{}

func New(gen *idgen.Generator) *Store {
	return &Store{
		gen:     gen,
		tenants: make(map[int64]tenant.Tenant),
	}
}

func (s *Store) Create(_ context.Context, t tenant.Tenant) (int64, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	t.ID = s.gen.Next()
	s.tenants[t.ID] = t
	return t.ID, nil
}

func (s *Store) Find(_ context.Context, q active.Query) ([]tenant.Tenant, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	ids := make([]int64, 0, len(s.tenants))
	for id := range s.tenants {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	rows := make([]active.Row, len(ids))
	for i, id := range ids {
		rows[i] = s.tenants[id].Row()
	}
	matched := q.Filter(rows)
	out := make([]tenant.Tenant, len(matched))
	for i, r := range matched {
		out[i] = s.tenants[r["id"].(int64)]
	}
	return out, nil
}

func (s *Store) SetStatus(_ context.Context, id int64, status tenant.Status) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	t, ok := s.tenants[id]
	if !ok || !tenant.Entity.Live.Match(t.Row()) {
		return fmt.Errorf("live tenant %d: %w", id, tenant.ErrNotFound)
	}
	t.Status = status
	s.tenants[id] = t
	return nil
}

// Get returns a tenant regardless of its deleted flag.
func (s *Store) Get(id int64) (tenant.Tenant, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	t, ok := s.tenants[id]
	return t, ok
}
