package idgen

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"reflect"
	"sync"
	"testing"
)

func TestGeneratorIncreasing(t *testing.T) {
	g := NewGenerator(0)
	prev := g.Last()
	for i := 0; i < 1000; i++ {
		id := g.Next()
		if id <= prev {
			t.Fatal("id did not increase", "prev", prev, "id", id)
		}
		prev = id
	}
}

func TestGeneratorConcurrentUnique(t *testing.T) {
	g := NewGenerator(100)
	const (
		workers = 8
		each    = 500
	)
	ids := make(chan int64, workers*each)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				ids <- g.Next()
			}
		}()
	}
	wg.Wait()
	close(ids)
	seen := make(map[int64]struct{}, workers*each)
	for id := range ids {
		if id <= 100 {
			t.Fatal("id at or below seed", id)
		}
		if _, ok := seen[id]; ok {
			t.Fatal("duplicate id", id)
		}
		seen[id] = struct{}{}
	}
	if g.Last() != 100+workers*each {
		t.Fatal("unexpected last id", g.Last())
	}
}

func TestGeneratorReset(t *testing.T) {
	g := NewGenerator(0)
	g.Next()
	g.Next()
	g.Reset(41)
	if id := g.Next(); id != 42 {
		t.Fatal("reset did not reseed", "got", id)
	}
}

func TestIsInsert(t *testing.T) {
	for q, want := range map[string]bool{
		"INSERT INTO t (id) VALUES (?)":   true,
		"insert into t (id) values (?)":   true,
		"  \n\tInSeRt INTO t VALUES (?)":  true,
		"SELECT * FROM t":                 false,
		"UPDATE t SET a = ? WHERE id = ?": false,
		"DELETE FROM t WHERE id = ?":      false,
		"ins":                             false,
		"":                                false,
		"/* insert */ SELECT 1":           false,
		"REPLACE INTO t (id) VALUES (?)":  false,
	} {
		if got := IsInsert(q); got != want {
			t.Errorf("IsInsert(%q) = %v, want %v", q, got, want)
		}
	}
}

func TestInterceptNonInsertUnchanged(t *testing.T) {
	ic := NewInterceptor(NewGenerator(0))
	in := Statement{
		Query: "UPDATE system_tenant SET status = ? WHERE id = ?",
		Args:  []any{1, int64(9)},
	}
	out, id := ic.Intercept(in)
	if id != 0 {
		t.Fatal("non insert was assigned an id", id)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatal("non insert statement was modified", "in", in, "out", out)
	}
}

func TestInterceptInsertPrependsOne(t *testing.T) {
	ic := NewInterceptor(NewGenerator(10))
	in := Statement{
		Query: "INSERT INTO system_tenant (id, name) VALUES (?, ?)",
		Args:  []any{"acme"},
	}
	out, id := ic.Intercept(in)
	if id != 11 {
		t.Fatal("unexpected id", id)
	}
	if len(out.Args) != len(in.Args)+1 {
		t.Fatal("expected exactly one extra argument", "got", out.Args)
	}
	if out.Args[0] != int64(11) || out.Args[1] != "acme" {
		t.Fatal("id not prepended", "got", out.Args)
	}
	if len(in.Args) != 1 {
		t.Fatal("caller arguments were mutated")
	}
	out2, _ := ic.Intercept(in)
	if out2.Args[0].(int64) <= out.Args[0].(int64) {
		t.Fatal("second insert did not get a larger id")
	}
}

type recordingQuerier struct {
	queries []string
	args    [][]any
}

func (r *recordingQuerier) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	r.queries = append(r.queries, query)
	r.args = append(r.args, args)
	return driver.RowsAffected(1), nil
}

func (r *recordingQuerier) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, sql.ErrConnDone
}

func (r *recordingQuerier) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}

func TestDBExec(t *testing.T) {
	rq := &recordingQuerier{}
	db := WrapQuerier(rq, NewGenerator(0))
	ctx := context.Background()

	_, id, err := db.ExecContext(ctx, "insert into system_tenant (id, name) values (?, ?)", "acme")
	if err != nil {
		t.Fatal(err)
	}
	if id != 1 {
		t.Fatal("unexpected assigned id", id)
	}
	_, id, err = db.ExecContext(ctx, "update system_tenant set status = ? where id = ?", 1, int64(1))
	if err != nil {
		t.Fatal(err)
	}
	if id != 0 {
		t.Fatal("update was assigned an id", id)
	}
	if !reflect.DeepEqual(rq.args[0], []any{int64(1), "acme"}) {
		t.Fatal("insert args not intercepted", "got", rq.args[0])
	}
	if !reflect.DeepEqual(rq.args[1], []any{1, int64(1)}) {
		t.Fatal("update args modified", "got", rq.args[1])
	}
	if db.Raw() != nil {
		t.Fatal("querier wrapper should not expose a raw db")
	}
}
