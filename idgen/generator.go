// Package idgen assigns primary keys to rows inserted through the data-access layer.
//
// IDs come from a per-process counter. They increase strictly within one process
// but two processes seeded alike will hand out the same values; deployments with
// several writers need to seed them into disjoint ranges.
package idgen

import "sync"

// Generator produces strictly increasing int64 IDs.
type Generator struct {
	mu   sync.Mutex
	last int64
}

// NewGenerator returns a generator whose first ID is seed+1.
func NewGenerator(seed int64) *Generator {
	return &Generator{last: seed}
}

func (g *Generator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.last == 1<<63-1 {
		panic("idgen: generator exhausted")
	}
	g.last++
	return g.last
}

// Reset makes the next ID seed+1.
func (g *Generator) Reset(seed int64) {
	g.mu.Lock()
	g.last = seed
	g.mu.Unlock()
}

// Last returns the most recently assigned ID, or the seed if none was assigned.
func (g *Generator) Last() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}
