package auditlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	ormdriver "github.com/faciam-dev/goquent/orm/driver"
	"github.com/faciam-dev/goquent/orm/query"

	"github.com/faciam-dev/gadmin/pkg/admin"
	auditutil "github.com/faciam-dev/gadmin/pkg/audit"
)

// Recorder writes record changes to {prefix}audit_logs. It implements
// admin.Recorder.
type Recorder struct {
	DB          *sql.DB
	Dialect     ormdriver.Dialect
	TablePrefix string
	Now         func() time.Time
}

func jsonOrNil(v map[string]string) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Record inserts one audit row with the added and removed line counts of the
// change.
func (r *Recorder) Record(ctx context.Context, c admin.Change) error {
	if r == nil || r.DB == nil {
		return nil
	}
	beforeArg, err := jsonOrNil(c.Before)
	if err != nil {
		return err
	}
	afterArg, err := jsonOrNil(c.After)
	if err != nil {
		return err
	}
	_, added, removed := auditutil.Diff(c.Before, c.After)
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	_, err = query.New(r.DB, r.TablePrefix+"audit_logs", r.Dialect).
		WithContext(ctx).
		InsertGetId(map[string]any{
			"actor":       c.Actor,
			"tenant_id":   c.Tenant,
			"action":      c.Action,
			"entity":      c.Entity,
			"record_id":   c.ID,
			"before_json": beforeArg,
			"after_json":  afterArg,
			"added":       added,
			"removed":     removed,
			"applied_at":  now().UTC(),
		})
	return err
}
