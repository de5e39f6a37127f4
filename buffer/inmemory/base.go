package inmemory

import (
	"context"
	"sync"

	"github.com/iidesho/auditflow/buffer"
)

type Buffer struct {
	lists map[string][]string
	lock  sync.Mutex
}

var _ buffer.Buffer = &Buffer{}

func New() *Buffer {
	return &Buffer{
		lists: make(map[string][]string),
	}
}

func (b *Buffer) Push(_ context.Context, key string, payload string) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.lists[key] = append(b.lists[key], payload)
	return nil
}

func (b *Buffer) DrainAll(_ context.Context, key string) ([]string, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	l := b.lists[key]
	delete(b.lists, key)
	if l == nil {
		return []string{}, nil
	}
	return l, nil
}

// Len reports the current length of key without draining it.
func (b *Buffer) Len(key string) int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.lists[key])
}
