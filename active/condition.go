package active

import (
	"cmp"
	"math"
	"strings"
	"time"
)

// Row is a column name to value view of a stored row, used for in-memory
// evaluation. Values compare when both sides are bool, string, time.Time, or
// any signed, unsigned or floating point number. Other kinds never match.
type Row map[string]any

// Condition is a predicate that renders to a SQL where clause and can also be
// evaluated against a Row. Both renderings must agree.
type Condition interface {
	SQL() (string, []any)
	Match(Row) bool
}

type op string

const (
	opEq op = "="
	opNe op = "<>"
	opLt op = "<"
	opGt op = ">"
)

type comparison struct {
	col string
	op  op
	val any
}

func Eq(col string, val any) Condition { return comparison{col: col, op: opEq, val: val} }
func Ne(col string, val any) Condition { return comparison{col: col, op: opNe, val: val} }
func Lt(col string, val any) Condition { return comparison{col: col, op: opLt, val: val} }
func Gt(col string, val any) Condition { return comparison{col: col, op: opGt, val: val} }

func (c comparison) SQL() (string, []any) {
	return "`" + c.col + "` " + string(c.op) + " ?", []any{c.val}
}

func (c comparison) Match(r Row) bool {
	v, ok := r[c.col]
	if !ok {
		return false
	}
	order, ok := compare(v, c.val)
	if !ok {
		return false
	}
	switch c.op {
	case opEq:
		return order == 0
	case opNe:
		return order != 0
	case opLt:
		return order < 0
	case opGt:
		return order > 0
	}
	return false
}

type and []Condition

// And is true when every condition is. Nil conditions are skipped; And of
// nothing is always true.
func And(cs ...Condition) Condition {
	out := make(and, 0, len(cs))
	for _, c := range cs {
		if c == nil {
			continue
		}
		if inner, ok := c.(and); ok {
			out = append(out, inner...)
			continue
		}
		out = append(out, c)
	}
	return out
}

func (a and) SQL() (string, []any) {
	if len(a) == 0 {
		return "1 = 1", nil
	}
	parts := make([]string, len(a))
	var args []any
	for i, c := range a {
		s, cargs := c.SQL()
		parts[i] = "(" + s + ")"
		args = append(args, cargs...)
	}
	return strings.Join(parts, " AND "), args
}

func (a and) Match(r Row) bool {
	for _, c := range a {
		if !c.Match(r) {
			return false
		}
	}
	return true
}

// compare orders a against b. ok is false when the values are not comparable.
func compare(a, b any) (order int, ok bool) {
	switch av := a.(type) {
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		}
		return 1, true
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	}
	ai, aok := toInt64(a)
	bi, bok := toInt64(b)
	if aok && bok {
		return cmp.Compare(ai, bi), true
	}
	au, aok := toUint64(a)
	bu, bok := toUint64(b)
	if aok && bok {
		return cmp.Compare(au, bu), true
	}
	af, aok := toFloat64(a)
	bf, bok := toFloat64(b)
	if !aok || !bok || math.IsNaN(af) || math.IsNaN(bf) {
		return 0, false
	}
	return cmp.Compare(af, bf), true
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint:
		if uint64(n) <= math.MaxInt64 {
			return int64(n), true
		}
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n), true
		}
	}
	return 0, false
}

func toUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint:
		return uint64(n), true
	case uint64:
		return n, true
	}
	if i, ok := toInt64(v); ok && i >= 0 {
		return uint64(i), true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	if u, ok := toUint64(v); ok {
		return float64(u), true
	}
	return 0, false
}
