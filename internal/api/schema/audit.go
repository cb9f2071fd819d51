package schema

import (
	"encoding/json"
	"time"

	"github.com/faciam-dev/gadmin/internal/auditlog"
)

// AuditLog is one audited change of a record.
type AuditLog struct {
	ID        int64            `json:"id"`
	Actor     string           `json:"actor"`
	Action    string           `json:"action"`
	Entity    string           `json:"entity"`
	RecordID  string           `json:"recordId"`
	Before    *json.RawMessage `json:"before,omitempty"`
	After     *json.RawMessage `json:"after,omitempty"`
	Added     int              `json:"added"`
	Removed   int              `json:"removed"`
	AppliedAt time.Time        `json:"appliedAt"`
}

// AuditDiff is the unified diff of one audit record.
type AuditDiff struct {
	Unified string `json:"unified"`
	Added   int    `json:"added"`
	Removed int    `json:"removed"`
}

// FromAudit converts a stored audit record.
func FromAudit(r auditlog.Record) AuditLog {
	out := AuditLog{
		ID:        r.ID,
		Actor:     r.Actor,
		Action:    r.Action,
		Entity:    r.Entity,
		RecordID:  r.RecordID,
		Added:     r.Added,
		Removed:   r.Removed,
		AppliedAt: r.AppliedAt,
	}
	if r.BeforeJSON.Valid {
		raw := json.RawMessage(r.BeforeJSON.String)
		out.Before = &raw
	}
	if r.AfterJSON.Valid {
		raw := json.RawMessage(r.AfterJSON.String)
		out.After = &raw
	}
	return out
}
