package admin

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/faciam-dev/gadmin/pkg/filestore"
	"github.com/faciam-dev/gadmin/pkg/metrics"
	"github.com/faciam-dev/gadmin/pkg/session"
	"github.com/faciam-dev/gadmin/pkg/store"
)

// Event describes a committed mutation.
type Event struct {
	Name   string            `json:"name"`
	Entity string            `json:"entity"`
	ID     string            `json:"id"`
	Tenant string            `json:"tenant,omitempty"`
	Actor  string            `json:"actor,omitempty"`
	Values map[string]string `json:"values,omitempty"`
	Time   time.Time         `json:"time"`
}

// Event names.
const (
	EventCreated = "entity.created"
	EventUpdated = "entity.updated"
	EventDeleted = "entity.deleted"
)

// Emitter publishes mutation events. Emit must not block on delivery.
type Emitter interface {
	Emit(ctx context.Context, e Event)
}

// Change is one audited mutation. Before is nil for creates, After for
// deletes.
type Change struct {
	Entity string
	ID     string
	Tenant string
	Actor  string
	Action string
	Before map[string]string
	After  map[string]string
}

// Recorder persists audit records.
type Recorder interface {
	Record(ctx context.Context, c Change) error
}

// Config holds the collaborators of a Service.
type Config struct {
	Registry *Registry
	Store    store.Store
	Access   AccessConfig
	// Files removes uploads of deleted or replaced records. Optional.
	Files  *filestore.Reaper
	Events Emitter
	Audit  Recorder
	Logger *zap.SugaredLogger
	// SelectListTTL is how long select list options are cached; zero
	// disables caching.
	SelectListTTL time.Duration
}

// Service is the entity operation facade. Every operation checks the access
// policy before it touches storage.
type Service struct {
	reg     *Registry
	st      store.Store
	access  AccessConfig
	files   *filestore.Reaper
	events  Emitter
	audit   Recorder
	logger  *zap.SugaredLogger
	options *selectCache
	now     func() time.Time
}

// New returns a Service for cfg.
func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	reg := cfg.Registry
	if reg == nil {
		reg = NewRegistry()
	}
	return &Service{
		reg:     reg,
		st:      cfg.Store,
		access:  cfg.Access,
		files:   cfg.Files,
		events:  cfg.Events,
		audit:   cfg.Audit,
		logger:  logger,
		options: newSelectCache(cfg.SelectListTTL),
		now:     time.Now,
	}
}

// Registry returns the entity registry.
func (s *Service) Registry() *Registry { return s.reg }

// entity resolves name and applies the access policy.
func (s *Service) entity(sess session.Session, name string) (*Entity, error) {
	e, err := s.reg.Entity(name)
	if err != nil {
		return nil, err
	}
	if !s.Allowed(sess, e) {
		return nil, ErrUnauthorized
	}
	return e, nil
}

// Allowed reports whether sess passes the access gate of e.
func (s *Service) Allowed(sess session.Session, e *Entity) bool {
	return CanAccess(sess, s.access, e.VM.Access)
}

// Entities returns the entities visible to sess.
func (s *Service) Entities(sess session.Session) []*Entity {
	var out []*Entity
	for _, e := range s.reg.Entities() {
		if s.Allowed(sess, e) {
			out = append(out, e)
		}
	}
	return out
}

// CountRecords counts the rows of every entity that is not tenant aware.
func (s *Service) CountRecords(ctx context.Context) (map[string]int64, error) {
	out := map[string]int64{}
	for _, e := range s.reg.Entities() {
		if e.VM.TenantField() != "" {
			continue
		}
		n, err := s.st.Count(ctx, store.Query{Table: e.VM.Table})
		if err != nil {
			return nil, storageErr("count "+e.Name(), err)
		}
		out[e.Name()] = n
	}
	return out, nil
}

func (s *Service) emit(ctx context.Context, name string, e *Entity, id, tenant string, sess session.Session, values map[string]string) {
	if s.events == nil {
		return
	}
	s.events.Emit(ctx, Event{Name: name, Entity: e.Name(), ID: id, Tenant: tenant, Actor: sess.Subject, Values: values, Time: s.now().UTC()})
}

func (s *Service) record(ctx context.Context, c Change) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, c); err != nil {
		metrics.AuditErrors.WithLabelValues(c.Action).Inc()
		s.logger.Warnw("audit record failed", "entity", c.Entity, "id", c.ID, "err", err)
		return
	}
	metrics.AuditEvents.WithLabelValues(c.Action).Inc()
}
