package server

import (
	"context"
	"database/sql"

	ormdriver "github.com/faciam-dev/goquent/orm/driver"

	"github.com/faciam-dev/gadmin/internal/config"
	"github.com/faciam-dev/gadmin/internal/logger"
	"github.com/faciam-dev/gadmin/internal/rbac"
)

// newEnforcer loads the default policies, the role tables and the policy
// file. When the role tables cannot be read the server starts without them.
func newEnforcer(ctx context.Context, cfg *config.Config, db *sql.DB, dialect ormdriver.Dialect) (*rbac.Enforcer, error) {
	defaults := rbac.Static(rbac.Defaults...)
	file := rbac.FromFile(cfg.RBACPolicyFile)
	e, err := rbac.New(ctx, defaults, rbac.FromDB(db, dialect, cfg.TablePrefix), file)
	if err != nil {
		logger.L.Error("load rbac", "err", err)
		if e, err = rbac.New(ctx, defaults, file); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// WatchPolicies reloads the enforcer when the policy file changes.
func (a *App) WatchPolicies(ctx context.Context) {
	if a.Enforcer == nil || a.Config.RBACPolicyFile == "" {
		return
	}
	if err := rbac.Watch(ctx, a.Enforcer, a.Config.RBACPolicyFile, policyDebounce); err != nil {
		logger.L.Error("watch rbac policies", "file", a.Config.RBACPolicyFile, "err", err)
	}
}
