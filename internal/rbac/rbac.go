// Package rbac builds the casbin enforcer guarding the HTTP API. Policies
// come from built-in defaults, the {prefix}role_policies table and an
// optional YAML file that is reloaded when it changes.
package rbac

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	ormdriver "github.com/faciam-dev/goquent/orm/driver"
	"github.com/faciam-dev/goquent/orm/query"
	"gopkg.in/yaml.v3"
)

// Policy allows Subject (a user or role) to call Method on paths matching
// Path (keyMatch2 syntax). Method "*" matches any method.
type Policy struct {
	Subject string `yaml:"subject"`
	Path    string `yaml:"path"`
	Method  string `yaml:"method"`
}

// Defaults grant the admin role everything under /v1.
var Defaults = []Policy{{Subject: "admin", Path: "/v1/*", Method: "*"}}

func newModel() model.Model {
	m := model.NewModel()
	m.AddDef("r", "r", "sub, obj, act")
	m.AddDef("p", "p", "sub, obj, act")
	m.AddDef("e", "e", "some(where (p.eft == allow))")
	m.AddDef("m", "m", `r.sub == p.sub && keyMatch2(r.obj, p.obj) && (r.act == p.act || p.act == "*")`)
	return m
}

// Source loads policies.
type Source func(ctx context.Context) ([]Policy, error)

// Static returns a Source yielding ps.
func Static(ps ...Policy) Source {
	return func(context.Context) ([]Policy, error) { return ps, nil }
}

// FromDB reads role policies from {prefix}role_policies, naming each by its
// row in {prefix}roles.
func FromDB(db *sql.DB, dialect ormdriver.Dialect, prefix string) Source {
	return func(ctx context.Context) ([]Policy, error) {
		if db == nil {
			return nil, nil
		}
		roles := map[int64]string{}
		err := scan(ctx, db, query.New(db, prefix+"roles", dialect).Select("id", "name"), func(rows *sql.Rows) error {
			var (
				id   int64
				name string
			)
			if err := rows.Scan(&id, &name); err != nil {
				return err
			}
			roles[id] = name
			return nil
		})
		if err != nil {
			return nil, err
		}
		var out []Policy
		q := query.New(db, prefix+"role_policies", dialect).Select("role_id", "path", "method").OrderBy("id", "asc")
		err = scan(ctx, db, q, func(rows *sql.Rows) error {
			var (
				roleID int64
				p      Policy
			)
			if err := rows.Scan(&roleID, &p.Path, &p.Method); err != nil {
				return err
			}
			if name, ok := roles[roleID]; ok {
				p.Subject = name
				out = append(out, p)
			}
			return nil
		})
		return out, err
	}
}

func scan(ctx context.Context, db *sql.DB, q *query.Query, fn func(*sql.Rows) error) error {
	sqlStr, args, err := q.Build()
	if err != nil {
		return err
	}
	rows, err := db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

type policyFile struct {
	Policies []Policy `yaml:"policies"`
}

// FromFile reads a YAML policy file. A missing file yields no policies.
func FromFile(path string) Source {
	return func(context.Context) ([]Policy, error) {
		if path == "" {
			return nil, nil
		}
		b, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		var f policyFile
		if err := yaml.Unmarshal(b, &f); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return f.Policies, nil
	}
}

// Enforcer swaps in a freshly built casbin enforcer on every Reload, so
// concurrent Enforce calls never see a half loaded policy set.
type Enforcer struct {
	sources []Source
	current atomic.Pointer[casbin.Enforcer]
}

// New loads all sources once.
func New(ctx context.Context, sources ...Source) (*Enforcer, error) {
	e := &Enforcer{sources: sources}
	if err := e.Reload(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// Reload rebuilds the policy set. On error the previous set stays active.
func (e *Enforcer) Reload(ctx context.Context) error {
	ce, err := casbin.NewEnforcer(newModel())
	if err != nil {
		return err
	}
	for _, src := range e.sources {
		ps, err := src(ctx)
		if err != nil {
			return err
		}
		for _, p := range ps {
			if p.Method == "" {
				p.Method = "*"
			}
			if _, err := ce.AddPolicy(p.Subject, p.Path, p.Method); err != nil {
				return err
			}
		}
	}
	e.current.Store(ce)
	return nil
}

// Enforce implements the middleware enforcer.
func (e *Enforcer) Enforce(rvals ...any) (bool, error) {
	ce := e.current.Load()
	if ce == nil {
		return false, nil
	}
	return ce.Enforce(rvals...)
}
