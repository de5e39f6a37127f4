package idgen

import (
	"strings"
	"unicode"
)

// Statement is a SQL statement with its bound arguments.
type Statement struct {
	Query string
	Args  []any
}

// Interceptor prepends a generated ID to the arguments of every insert.
// Insert statements must therefore list the primary key as their first column.
type Interceptor struct {
	gen *Generator
}

func NewInterceptor(gen *Generator) *Interceptor {
	return &Interceptor{gen: gen}
}

// Intercept returns stmt with a fresh ID as its first argument when it is an
// insert, and stmt untouched otherwise. The returned ID is 0 for non inserts.
func (i *Interceptor) Intercept(stmt Statement) (Statement, int64) {
	if !IsInsert(stmt.Query) {
		return stmt, 0
	}
	id := i.gen.Next()
	args := make([]any, 0, len(stmt.Args)+1)
	args = append(args, id)
	args = append(args, stmt.Args...)
	return Statement{
		Query: stmt.Query,
		Args:  args,
	}, id
}

const insert = "insert"

// IsInsert reports whether query starts with INSERT, ignoring case and leading space.
func IsInsert(query string) bool {
	query = strings.TrimLeftFunc(query, unicode.IsSpace)
	return len(query) >= len(insert) && strings.EqualFold(query[:len(insert)], insert)
}
