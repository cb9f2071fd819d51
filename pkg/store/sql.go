package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	ormdriver "github.com/faciam-dev/goquent/orm/driver"
	"github.com/faciam-dev/goquent/orm/query"

	pkgutil "github.com/faciam-dev/gadmin/pkg/util"
)

// SQLStore runs queries through the goquent query builder.
type SQLStore struct {
	DB      *sql.DB
	Dialect ormdriver.Dialect
}

// NewSQL returns a SQLStore using the dialect of driver.
func NewSQL(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{DB: db, Dialect: pkgutil.DialectFromDriver(driver)}
}

// params hands out unique placeholder names for raw predicates. Fixed width
// keeps one name from being a prefix of another.
type params struct{ n int }

func (p *params) next() string {
	p.n++
	return fmt.Sprintf("p%03d", p.n)
}

// likeEscape marks literal wildcards in contains patterns.
const likeEscape = '!'

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func (s *SQLStore) raw(c Condition, p *params) (string, map[string]any, error) {
	col := s.Dialect.QuoteIdent(c.Column)
	switch c.Op {
	case OpEq, OpNe, OpLt, OpLte, OpGt, OpGte:
		name := p.next()
		return fmt.Sprintf("%s %s :%s", col, c.Op, name), map[string]any{name: c.Value}, nil
	case OpContains:
		name := p.next()
		like := "%" + likeEscaper.Replace(strings.ToLower(fmt.Sprint(c.Value))) + "%"
		return fmt.Sprintf("LOWER(%s) LIKE :%s ESCAPE '%c'", col, name, likeEscape), map[string]any{name: like}, nil
	case OpIsNull:
		return col + " IS NULL", nil, nil
	case OpNotNull:
		return col + " IS NOT NULL", nil, nil
	}
	return "", nil, fmt.Errorf("store: operator %q not supported here", c.Op)
}

func (s *SQLStore) where(q *query.Query, c Condition, p *params) error {
	if len(c.Any) > 0 {
		var err error
		q.WhereGroup(func(g *query.Query) {
			for i, sub := range c.Any {
				expr, args, e := s.raw(sub, p)
				if e != nil {
					err = e
					return
				}
				if i == 0 {
					g.WhereRaw(expr, args)
				} else {
					g.OrWhereRaw(expr, args)
				}
			}
		})
		return err
	}
	switch c.Op {
	case OpEq:
		q.Where(c.Column, c.Value)
		return nil
	case OpIn:
		vals, _ := c.Value.([]any)
		if len(vals) == 0 {
			q.WhereRaw("1 = 0", nil)
			return nil
		}
		q.WhereIn(c.Column, vals)
		return nil
	}
	expr, args, err := s.raw(c, p)
	if err != nil {
		return err
	}
	q.WhereRaw(expr, args)
	return nil
}

func (s *SQLStore) filtered(ctx context.Context, table string, scope *Scope, conds []Condition) (*query.Query, error) {
	q := query.New(s.DB, table, s.Dialect).WithContext(ctx)
	if scope != nil {
		q.Where(scope.Column, scope.Value)
	}
	p := &params{}
	for _, c := range conds {
		if err := s.where(q, c, p); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// Count returns the number of rows matching q, ignoring paging.
func (s *SQLStore) Count(ctx context.Context, q Query) (int64, error) {
	cq, err := s.filtered(ctx, q.Table, q.Scope, q.Conditions)
	if err != nil {
		return 0, err
	}
	n, err := cq.Count("*")
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

// Find returns one page of rows.
func (s *SQLStore) Find(ctx context.Context, q Query) ([]Record, error) {
	fq, err := s.filtered(ctx, q.Table, q.Scope, q.Conditions)
	if err != nil {
		return nil, err
	}
	if len(q.Columns) > 0 {
		fq.Select(q.Columns...)
	}
	for _, o := range q.OrderBy {
		dir := "asc"
		if o.Desc {
			dir = "desc"
		}
		fq.OrderBy(o.Column, dir)
	}
	if q.Limit > 0 {
		fq.Limit(q.Limit).Offset(q.Offset)
	}
	return s.run(ctx, fq)
}

// Get fetches one row by key.
func (s *SQLStore) Get(ctx context.Context, k Key, columns []string) (Record, error) {
	q, err := s.filtered(ctx, k.Table, k.Scope, []Condition{Eq(k.Column, k.ID)})
	if err != nil {
		return nil, err
	}
	if len(columns) > 0 {
		q.Select(columns...)
	}
	recs, err := s.run(ctx, q.Limit(1))
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNoRecord
	}
	return recs[0], nil
}

// Insert stores values. When values carry no primary key the generated id
// is returned.
func (s *SQLStore) Insert(ctx context.Context, table, pkColumn string, values map[string]any) (string, error) {
	id, err := query.New(s.DB, table, s.Dialect).WithContext(ctx).InsertGetId(values)
	if err != nil {
		return "", err
	}
	if v, ok := values[pkColumn]; ok && v != nil && fmt.Sprint(v) != "" {
		return fmt.Sprint(v), nil
	}
	return strconv.FormatInt(id, 10), nil
}

// Update changes the addressed row. It returns ErrNoRecord when the key is
// not visible in the scope.
func (s *SQLStore) Update(ctx context.Context, k Key, values map[string]any) error {
	if _, err := s.Get(ctx, k, []string{k.Column}); err != nil {
		return err
	}
	q, err := s.filtered(ctx, k.Table, k.Scope, []Condition{Eq(k.Column, k.ID)})
	if err != nil {
		return err
	}
	_, err = q.Update(values)
	return err
}

// Delete removes the addressed row. It returns ErrNoRecord when the key is
// not visible in the scope.
func (s *SQLStore) Delete(ctx context.Context, k Key) error {
	if _, err := s.Get(ctx, k, []string{k.Column}); err != nil {
		return err
	}
	q, err := s.filtered(ctx, k.Table, k.Scope, []Condition{Eq(k.Column, k.ID)})
	if err != nil {
		return err
	}
	_, err = q.Delete()
	return err
}

func (s *SQLStore) run(ctx context.Context, q *query.Query) ([]Record, error) {
	sqlStr, args, err := q.Build()
	if err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []Record
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(Record, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				rec[c] = string(b)
				continue
			}
			rec[c] = vals[i]
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
