// Package buffertest has the behaviour checks every buffer backend must pass.
package buffertest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/iidesho/auditflow/buffer"
)

// Run exercises b with keys unique to this run, so shared stores can be used.
func Run(t *testing.T, b buffer.Buffer) {
	t.Helper()
	prefix := "buffertest:" + uuid.Must(uuid.NewV7()).String()
	t.Run("DrainOrder", func(t *testing.T) { drainOrder(t, b, prefix+":order") })
	t.Run("DrainAbsent", func(t *testing.T) { drainAbsent(t, b, prefix+":absent") })
	t.Run("KeysIsolated", func(t *testing.T) { keysIsolated(t, b, prefix) })
	t.Run("ConcurrentExactlyOnce", func(t *testing.T) { concurrentExactlyOnce(t, b, prefix+":concurrent") })
}

func drainOrder(t *testing.T, b buffer.Buffer, key string) {
	ctx := context.Background()
	const n = 25
	for i := 0; i < n; i++ {
		if err := b.Push(ctx, key, fmt.Sprintf(`{"i":%d}`, i)); err != nil {
			t.Fatal(err)
		}
	}
	out, err := b.DrainAll(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != n {
		t.Fatalf("drained %d payloads, expected %d", len(out), n)
	}
	for i, v := range out {
		if v != fmt.Sprintf(`{"i":%d}`, i) {
			t.Fatalf("payload %d out of order: %s", i, v)
		}
	}
	out, err = b.DrainAll(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Fatalf("second drain returned %d payloads", len(out))
	}
}

func drainAbsent(t *testing.T, b buffer.Buffer, key string) {
	out, err := b.DrainAll(context.Background(), key)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Fatalf("drain of absent key returned %v", out)
	}
}

func keysIsolated(t *testing.T, b buffer.Buffer, prefix string) {
	ctx := context.Background()
	a, c := prefix+":a", prefix+":c"
	if err := b.Push(ctx, a, "a1"); err != nil {
		t.Fatal(err)
	}
	if err := b.Push(ctx, c, "c1"); err != nil {
		t.Fatal(err)
	}
	out, err := b.DrainAll(ctx, a)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0] != "a1" {
		t.Fatalf("unexpected drain of %s: %v", a, out)
	}
	out, err = b.DrainAll(ctx, c)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0] != "c1" {
		t.Fatalf("unexpected drain of %s: %v", c, out)
	}
}

func concurrentExactlyOnce(t *testing.T, b buffer.Buffer, key string) {
	ctx := context.Background()
	const (
		producers = 4
		perProd   = 50
	)
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProd; i++ {
				if err := b.Push(ctx, key, fmt.Sprintf("%d-%d", p, i)); err != nil {
					t.Error(err)
					return
				}
			}
		}(p)
	}

	seen := make(map[string]int)
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	drain := func() {
		out, err := b.DrainAll(ctx, key)
		if err != nil {
			t.Error(err)
			return
		}
		for _, v := range out {
			seen[v]++
		}
	}
	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
			drain()
		}
	}
	drain()

	if len(seen) != producers*perProd {
		t.Fatalf("saw %d distinct payloads, expected %d", len(seen), producers*perProd)
	}
	for v, n := range seen {
		if n != 1 {
			t.Fatalf("payload %s drained %d times", v, n)
		}
	}
}
