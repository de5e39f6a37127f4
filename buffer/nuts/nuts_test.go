package nuts

import (
	"context"
	"testing"

	"github.com/iidesho/auditflow/buffer/buffertest"
)

func TestBuffer(t *testing.T) {
	b, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	buffertest.Run(t, b)
}

func TestReopenKeepsPending(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	b, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err = b.Push(ctx, "logger:login", `{"trace_id":"a"}`); err != nil {
		t.Fatal(err)
	}
	if err = b.Close(); err != nil {
		t.Fatal(err)
	}

	b, err = Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	out, err := b.DrainAll(ctx, "logger:login")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0] != `{"trace_id":"a"}` {
		t.Fatal("pending payload did not survive reopen", "got", out)
	}
}
