package auditlog

import (
	"context"
	"database/sql"
	"errors"
	"time"

	ormdriver "github.com/faciam-dev/goquent/orm/driver"
	"github.com/faciam-dev/goquent/orm/query"
)

// ErrNotFound is returned by FindByID for unknown ids.
var ErrNotFound = errors.New("audit record not found")

// Record represents a single audit log entry in the database.
type Record struct {
	ID         int64          `json:"id"`
	Actor      string         `json:"actor"`
	Tenant     string         `json:"tenant,omitempty"`
	Action     string         `json:"action"`
	Entity     string         `json:"entity"`
	RecordID   string         `json:"record_id"`
	BeforeJSON sql.NullString `json:"-"`
	AfterJSON  sql.NullString `json:"-"`
	Added      int            `json:"added"`
	Removed    int            `json:"removed"`
	AppliedAt  time.Time      `json:"applied_at"`
}

// Filter narrows List. Zero fields do not filter. Records are returned newest
// first; Before is an exclusive id cursor.
type Filter struct {
	Tenant   string
	Entity   string
	RecordID string
	Action   string
	Before   int64
	Limit    int
}

// Repo provides access to audit log records.
type Repo struct {
	DB          *sql.DB
	Dialect     ormdriver.Dialect
	TablePrefix string
}

var columns = []string{"id", "actor", "tenant_id", "action", "entity", "record_id", "before_json", "after_json", "added", "removed", "applied_at"}

func (r *Repo) query(ctx context.Context) *query.Query {
	return query.New(r.DB, r.TablePrefix+"audit_logs", r.Dialect).WithContext(ctx).Select(columns...)
}

// FindByID returns a record by its ID.
func (r *Repo) FindByID(ctx context.Context, id int64, tenant string) (Record, error) {
	if r == nil || r.DB == nil {
		return Record{}, sql.ErrConnDone
	}
	q := r.query(ctx).Where("id", id).Where("tenant_id", tenant).Limit(1)
	recs, err := r.run(ctx, q)
	if err != nil {
		return Record{}, err
	}
	if len(recs) == 0 {
		return Record{}, ErrNotFound
	}
	return recs[0], nil
}

// List returns the records matching f.
func (r *Repo) List(ctx context.Context, f Filter) ([]Record, error) {
	if r == nil || r.DB == nil {
		return nil, sql.ErrConnDone
	}
	q := r.query(ctx).Where("tenant_id", f.Tenant)
	if f.Entity != "" {
		q.Where("entity", f.Entity)
	}
	if f.RecordID != "" {
		q.Where("record_id", f.RecordID)
	}
	if f.Action != "" {
		q.Where("action", f.Action)
	}
	if f.Before > 0 {
		q.Where("id", "<", f.Before)
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q.OrderBy("id", "desc").Limit(limit)
	return r.run(ctx, q)
}

func (r *Repo) run(ctx context.Context, q *query.Query) ([]Record, error) {
	sqlStr, args, err := q.Build()
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var (
			rec     Record
			applied any
		)
		if err := rows.Scan(&rec.ID, &rec.Actor, &rec.Tenant, &rec.Action, &rec.Entity, &rec.RecordID,
			&rec.BeforeJSON, &rec.AfterJSON, &rec.Added, &rec.Removed, &applied); err != nil {
			return nil, err
		}
		if rec.AppliedAt, err = parseTime(applied); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// parseTime accepts the shapes drivers return for timestamp columns.
func parseTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case []byte:
		return parseTime(string(t))
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
			if p, err := time.Parse(layout, t); err == nil {
				return p, nil
			}
		}
		return time.Time{}, errors.New("unrecognized time " + t)
	case nil:
		return time.Time{}, nil
	}
	return time.Time{}, errors.New("unsupported time value")
}
