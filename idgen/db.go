package idgen

import (
	"context"
	"database/sql"

	"github.com/iidesho/bragi/sbragi"
)

var log = sbragi.WithLocalScope(sbragi.LevelInfo)

// Querier is the subset of *sql.DB and *sql.Tx the wrapper needs.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB routes every statement through an Interceptor before it reaches the driver.
type DB struct {
	q   Querier
	ic  *Interceptor
	raw *sql.DB
}

func Wrap(db *sql.DB, gen *Generator) *DB {
	return &DB{
		q:   db,
		ic:  NewInterceptor(gen),
		raw: db,
	}
}

// WrapQuerier is Wrap for transactions and test doubles.
func WrapQuerier(q Querier, gen *Generator) *DB {
	return &DB{
		q:  q,
		ic: NewInterceptor(gen),
	}
}

// ExecContext executes query and, for inserts, returns the ID that was assigned.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, int64, error) {
	stmt, id := db.ic.Intercept(Statement{Query: query, Args: args})
	if id != 0 {
		log.Trace("assigned id", "id", id)
	}
	res, err := db.q.ExecContext(ctx, stmt.Query, stmt.Args...)
	return res, id, err
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	stmt, _ := db.ic.Intercept(Statement{Query: query, Args: args})
	return db.q.QueryContext(ctx, stmt.Query, stmt.Args...)
}

func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	stmt, _ := db.ic.Intercept(Statement{Query: query, Args: args})
	return db.q.QueryRowContext(ctx, stmt.Query, stmt.Args...)
}

// Raw returns the wrapped *sql.DB, nil when built with WrapQuerier.
func (db *DB) Raw() *sql.DB {
	return db.raw
}
