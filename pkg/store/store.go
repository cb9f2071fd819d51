// Package store is the persistence boundary of the admin core. A Store runs
// the tabular queries built by the list pipeline and the keyed mutations of
// the entity operations against one backend.
package store

import (
	"context"
	"errors"
)

// ErrNoRecord is returned when a keyed lookup or mutation matches nothing,
// including rows hidden by a tenant scope.
var ErrNoRecord = errors.New("store: no record")

// Record is one row keyed by column name.
type Record map[string]any

// Op is a comparison operator of a Condition.
type Op string

const (
	OpEq       Op = "="
	OpNe       Op = "<>"
	OpLt       Op = "<"
	OpLte      Op = "<="
	OpGt       Op = ">"
	OpGte      Op = ">="
	OpContains Op = "contains" // case-insensitive substring
	OpIn       Op = "in"
	OpIsNull   Op = "is_null"
	OpNotNull  Op = "not_null"
)

// ParseOp maps a config operator name to an Op.
func ParseOp(s string) (Op, error) {
	switch s {
	case "", "eq", "=":
		return OpEq, nil
	case "ne", "<>", "!=":
		return OpNe, nil
	case "lt", "<":
		return OpLt, nil
	case "lte", "<=":
		return OpLte, nil
	case "gt", ">":
		return OpGt, nil
	case "gte", ">=":
		return OpGte, nil
	case "contains", "like":
		return OpContains, nil
	case "in":
		return OpIn, nil
	case "is_null", "null":
		return OpIsNull, nil
	case "not_null", "is_not_null":
		return OpNotNull, nil
	}
	return "", errors.New("store: unknown operator " + s)
}

// Condition is a single predicate, or an OR group when Any is set.
type Condition struct {
	Column string
	Op     Op
	Value  any
	Any    []Condition
}

// Eq returns column = v.
func Eq(column string, v any) Condition { return Condition{Column: column, Op: OpEq, Value: v} }

// Contains returns a case-insensitive substring test.
func Contains(column, s string) Condition {
	return Condition{Column: column, Op: OpContains, Value: s}
}

// In returns column IN (vals...).
func In(column string, vals []any) Condition { return Condition{Column: column, Op: OpIn, Value: vals} }

// AnyOf combines conditions with OR.
func AnyOf(conds ...Condition) Condition { return Condition{Any: conds} }

// Scope restricts a query or mutation to one tenant.
type Scope struct {
	Column string
	Value  any
}

// Order is one ORDER BY term.
type Order struct {
	Column string
	Desc   bool
}

// Query describes a filtered, ordered page of a table. Scope is applied
// before any other condition; Conditions are ANDed.
type Query struct {
	Table      string
	Columns    []string
	Scope      *Scope
	Conditions []Condition
	OrderBy    []Order
	Limit      int
	Offset     int
}

// Key addresses a single row by primary key within an optional scope.
type Key struct {
	Table  string
	Column string
	ID     any
	Scope  *Scope
}

// Store is implemented by SQLStore and MongoStore.
type Store interface {
	Count(ctx context.Context, q Query) (int64, error)
	Find(ctx context.Context, q Query) ([]Record, error)
	Get(ctx context.Context, k Key, columns []string) (Record, error)
	// Insert stores values and returns the primary key of the new row.
	Insert(ctx context.Context, table, pkColumn string, values map[string]any) (string, error)
	Update(ctx context.Context, k Key, values map[string]any) error
	Delete(ctx context.Context, k Key) error
}
