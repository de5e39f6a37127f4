// Package active builds entity queries that only see live rows.
//
// Every entity states its own live-row predicate when it is declared; there is
// no implicit default to fall back to. The three Find entry points always
// include that predicate, so reaching a soft-deleted row means writing the
// query by hand.
package active

import (
	"errors"
	"fmt"
	"strings"
)

// NotDeleted is the usual live-row predicate for tables with a deleted flag.
var NotDeleted = Eq("deleted", false)

var (
	ErrKeyArity       = errors.New("primary key arity mismatch")
	ErrNoLive         = errors.New("entity has no live condition")
	ErrNoPrimaryKey   = errors.New("entity has no primary key")
	ErrUnknownColumns = errors.New("entity has no columns")
)

type Entity struct {
	Table      string
	Columns    []string
	PrimaryKey []string
	Live       Condition
}

// NewEntity declares an entity. It panics on an incomplete declaration since
// that is a programming error, not bad input.
func NewEntity(table string, primaryKey, columns []string, live Condition) Entity {
	if live == nil {
		panic(fmt.Errorf("%w: %s", ErrNoLive, table))
	}
	if len(primaryKey) == 0 {
		panic(fmt.Errorf("%w: %s", ErrNoPrimaryKey, table))
	}
	if len(columns) == 0 {
		panic(fmt.Errorf("%w: %s", ErrUnknownColumns, table))
	}
	return Entity{
		Table:      table,
		Columns:    columns,
		PrimaryKey: primaryKey,
		Live:       live,
	}
}

// Compose ANDs an entity's live predicate with optional extra predicates.
func Compose(live Condition, extra ...Condition) Condition {
	if live == nil {
		panic(ErrNoLive)
	}
	return And(append([]Condition{live}, extra...)...)
}

type Query struct {
	Entity Entity
	Where  Condition
}

func FindActive(e Entity) Query {
	return Query{
		Entity: e,
		Where:  Compose(e.Live),
	}
}

// FindActiveByID panics with ErrKeyArity when len(key) differs from the number
// of primary key columns.
func FindActiveByID(e Entity, key ...any) Query {
	if len(key) != len(e.PrimaryKey) {
		panic(fmt.Errorf("%w: %s has %d key columns, got %d values",
			ErrKeyArity, e.Table, len(e.PrimaryKey), len(key)))
	}
	byKey := make([]Condition, len(key))
	for i, col := range e.PrimaryKey {
		byKey[i] = Eq(col, key[i])
	}
	return Query{
		Entity: e,
		Where:  Compose(e.Live, byKey...),
	}
}

func FindActiveWithCondition(e Entity, extra Condition) Query {
	return Query{
		Entity: e,
		Where:  Compose(e.Live, extra),
	}
}

// SQL renders the query as a MySQL select with ? placeholders.
func (q Query) SQL() (string, []any) {
	where, args := q.Where.SQL()
	cols := make([]string, len(q.Entity.Columns))
	for i, c := range q.Entity.Columns {
		cols[i] = "`" + c + "`"
	}
	return fmt.Sprintf("SELECT %s FROM `%s` WHERE %s",
		strings.Join(cols, ", "), q.Entity.Table, where), args
}

// WhereSQL renders only the predicate, for updates that must respect it.
func (q Query) WhereSQL() (string, []any) {
	return q.Where.SQL()
}

// Filter returns the rows matching the query, in their original order.
func (q Query) Filter(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if q.Where.Match(r) {
			out = append(out, r)
		}
	}
	return out
}
