package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/faciam-dev/gadmin/pkg/metrics"
	"github.com/faciam-dev/gadmin/pkg/session"
	"github.com/faciam-dev/gadmin/pkg/store"
	"github.com/faciam-dev/gadmin/pkg/viewmodel"
)

func (s *Service) key(e *Entity, id, tenant string) (store.Key, error) {
	scope, err := scopeFor(e.VM, tenant)
	if err != nil {
		return store.Key{}, err
	}
	v, ok := keyValue(e.VM.PrimaryField(), id)
	if !ok {
		return store.Key{}, ErrNotFound
	}
	return store.Key{Table: e.VM.Table, Column: e.VM.PrimaryKey, ID: v, Scope: scope}, nil
}

func (s *Service) fetch(ctx context.Context, e *Entity, k store.Key) (*viewmodel.Model, error) {
	rec, err := s.st.Get(ctx, k, e.VM.Columns())
	if errors.Is(err, store.ErrNoRecord) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get "+e.Name(), err)
	}
	m := viewmodel.FromRecord(e.VM, rec)
	m.DisplayName = e.displayName(m)
	return m, nil
}

// Get returns one record. Records outside the tenant are reported as
// ErrNotFound.
func (s *Service) Get(ctx context.Context, sess session.Session, entity, id, tenant string) (m *viewmodel.Model, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOp(entity, "get", err, start) }()
	e, err := s.entity(sess, entity)
	if err != nil {
		return nil, err
	}
	k, err := s.key(e, id, tenant)
	if err != nil {
		return nil, err
	}
	m, err = s.fetch(ctx, e, k)
	if err != nil {
		return nil, err
	}
	if err := s.resolveForeignKeys(ctx, e, []*viewmodel.Model{m}, tenant); err != nil {
		return nil, err
	}
	return m, nil
}

// ValidateModel runs field validation and the entity's custom hook on m.
// It returns ErrValidation when any error was recorded.
func (s *Service) ValidateModel(entity string, m *viewmodel.Model) error {
	e, err := s.reg.Entity(entity)
	if err != nil {
		return err
	}
	s.bind(e, m)
	if m.HasErrors() {
		return ErrValidation
	}
	return nil
}

func (s *Service) bind(e *Entity, m *viewmodel.Model) map[string]any {
	vals := e.VM.Bind(m)
	if e.Validate != nil {
		e.Validate(m)
	}
	return vals
}

// Create validates m and inserts it. On validation failure m is returned
// with its error maps filled and ErrValidation; nothing is written. The
// tenant column always takes the caller's tenant.
func (s *Service) Create(ctx context.Context, sess session.Session, entity string, m *viewmodel.Model, tenant string) (_ *viewmodel.Model, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOp(entity, "create", err, start) }()
	e, err := s.entity(sess, entity)
	if err != nil {
		return nil, err
	}
	scope, err := scopeFor(e.VM, tenant)
	if err != nil {
		return nil, err
	}
	vals := s.bind(e, m)
	if m.HasErrors() {
		return m, ErrValidation
	}
	if scope != nil {
		vals[scope.Column] = scope.Value
		m.Values[scope.Column] = tenant
	}
	pk := e.VM.PrimaryField()
	if pk.Kind() == viewmodel.KindString {
		id := m.ID()
		if id == "" {
			id = uuid.NewString()
		}
		vals[pk.Name] = id
	}
	id, err := s.st.Insert(ctx, e.VM.Table, pk.Name, vals)
	if err != nil {
		return m, storageErr("insert "+e.Name(), err)
	}
	m.PrimaryKey = &id
	m.Values[pk.Name] = id
	m.DisplayName = e.displayName(m)
	s.options.invalidate(e.Name())
	s.logger.Debugw("record created", "entity", e.Name(), "id", id, "tenant", tenant)
	s.emit(ctx, EventCreated, e, id, tenant, sess, m.Values)
	s.record(ctx, Change{Entity: e.Name(), ID: id, Tenant: tenant, Actor: sess.Subject, Action: "create", After: m.Values})
	return m, nil
}

// Edit validates m and updates record id. The record must be visible in
// the tenant. File upload fields left empty keep their stored file; replaced
// files are removed after the update.
func (s *Service) Edit(ctx context.Context, sess session.Session, entity, id string, m *viewmodel.Model, tenant string) (_ *viewmodel.Model, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOp(entity, "edit", err, start) }()
	e, err := s.entity(sess, entity)
	if err != nil {
		return nil, err
	}
	k, err := s.key(e, id, tenant)
	if err != nil {
		return nil, err
	}
	old, err := s.fetch(ctx, e, k)
	if err != nil {
		return nil, err
	}
	vals := s.bind(e, m)
	m.PrimaryKey = &id
	if m.HasErrors() {
		return m, ErrValidation
	}
	if k.Scope != nil {
		vals[k.Scope.Column] = k.Scope.Value
		m.Values[k.Scope.Column] = tenant
	}
	m.Values[e.VM.PrimaryKey] = id
	var replaced []string
	for _, f := range e.VM.FileFields() {
		if m.Values[f] == "" {
			delete(vals, f)
			m.Values[f] = old.Values[f]
			continue
		}
		if prev := old.Values[f]; prev != "" && prev != m.Values[f] {
			replaced = append(replaced, prev)
		}
	}
	if err := s.st.Update(ctx, k, vals); err != nil {
		if errors.Is(err, store.ErrNoRecord) {
			return m, ErrNotFound
		}
		return m, storageErr("update "+e.Name(), err)
	}
	if s.files != nil && len(replaced) > 0 {
		s.files.Remove(ctx, e.Name(), replaced...)
	}
	m.DisplayName = e.displayName(m)
	s.options.invalidate(e.Name())
	s.emit(ctx, EventUpdated, e, id, tenant, sess, m.Values)
	s.record(ctx, Change{Entity: e.Name(), ID: id, Tenant: tenant, Actor: sess.Subject, Action: "update", Before: old.Values, After: m.Values})
	return m, nil
}

// Delete removes record id. Uploaded files of the record are removed only
// after the row is gone.
func (s *Service) Delete(ctx context.Context, sess session.Session, entity, id, tenant string) (_ bool, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOp(entity, "delete", err, start) }()
	e, err := s.entity(sess, entity)
	if err != nil {
		return false, err
	}
	if err := s.deleteOne(ctx, sess, e, id, tenant); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) deleteOne(ctx context.Context, sess session.Session, e *Entity, id, tenant string) error {
	k, err := s.key(e, id, tenant)
	if err != nil {
		return err
	}
	old, err := s.fetch(ctx, e, k)
	if err != nil {
		return err
	}
	if err := s.st.Delete(ctx, k); err != nil {
		if errors.Is(err, store.ErrNoRecord) {
			return ErrNotFound
		}
		return storageErr("delete "+e.Name(), err)
	}
	if s.files != nil {
		var files []string
		for _, f := range e.VM.FileFields() {
			if v := old.Values[f]; v != "" {
				files = append(files, v)
			}
		}
		s.files.Remove(ctx, e.Name(), files...)
	}
	s.options.invalidate(e.Name())
	s.emit(ctx, EventDeleted, e, id, tenant, sess, nil)
	s.record(ctx, Change{Entity: e.Name(), ID: id, Tenant: tenant, Actor: sess.Subject, Action: "delete", Before: old.Values})
	return nil
}

// DeleteManyResult lists which ids were deleted and why the others failed.
type DeleteManyResult struct {
	Deleted []string          `json:"deleted"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// DeleteMany deletes every id independently. The returned error combines
// the individual failures and is nil only when all deletes succeeded.
func (s *Service) DeleteMany(ctx context.Context, sess session.Session, entity string, ids []string, tenant string) (res DeleteManyResult, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOp(entity, "delete_many", err, start) }()
	e, err := s.entity(sess, entity)
	if err != nil {
		return res, err
	}
	for _, id := range ids {
		if derr := s.deleteOne(ctx, sess, e, id, tenant); derr != nil {
			if res.Failed == nil {
				res.Failed = map[string]string{}
			}
			res.Failed[id] = derr.Error()
			err = multierr.Append(err, fmt.Errorf("%s: %w", id, derr))
			continue
		}
		res.Deleted = append(res.Deleted, id)
	}
	return res, err
}
