package admin

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/faciam-dev/gadmin/pkg/store"
	"github.com/faciam-dev/gadmin/pkg/viewmodel"
	"github.com/faciam-dev/gadmin/pkg/viewmodel/codec"
)

// ValidateFunc is an entity specific validation hook. It reports problems
// through m.AddCustomError.
type ValidateFunc func(m *viewmodel.Model)

// SelectListFunc provides the (key, label) pairs of a named select list.
type SelectListFunc func(ctx context.Context, tenant string) ([]viewmodel.Option, error)

// Entity binds a view model to its filters, label rule and validation hook.
type Entity struct {
	VM *viewmodel.ViewModel
	// Display names the field labelling a record; empty means the primary key.
	Display  string
	Filters  []viewmodel.FilterDef
	Validate ValidateFunc
}

// Name returns the entity name.
func (e *Entity) Name() string { return e.VM.EntityName }

func (e *Entity) displayField() viewmodel.FieldDescriptor {
	if e.Display != "" {
		if f, ok := e.VM.Field(e.Display); ok {
			return f
		}
	}
	return e.VM.PrimaryField()
}

func (e *Entity) displayName(m *viewmodel.Model) string {
	if e.Display == "" {
		return m.ID()
	}
	return m.Values[e.Display]
}

func (e *Entity) filter(name string) (viewmodel.FilterDef, bool) {
	for _, f := range e.Filters {
		if f.Name == name {
			return f, true
		}
	}
	return viewmodel.FilterDef{}, false
}

// Registry maps entity names to entities and select list names to
// providers. It is populated at startup and read-only while serving.
type Registry struct {
	entities    map[string]*Entity
	selectLists map[string]SelectListFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entities: map[string]*Entity{}, selectLists: map[string]SelectListFunc{}}
}

// Register adds an entity. Names must be unique.
func (r *Registry) Register(e *Entity) error {
	if e == nil || e.VM == nil {
		return fmt.Errorf("register: nil entity")
	}
	if _, dup := r.entities[e.Name()]; dup {
		return fmt.Errorf("register %s: duplicate entity", e.Name())
	}
	r.entities[e.Name()] = e
	return nil
}

// RegisterDefinitions registers every decoded entity definition.
func (r *Registry) RegisterDefinitions(defs []codec.Definition) error {
	for _, d := range defs {
		if err := r.Register(&Entity{VM: d.ViewModel, Display: d.Display, Filters: d.Filters}); err != nil {
			return err
		}
	}
	return nil
}

// LoadRegistry decodes the entity file at path into a checked registry.
func LoadRegistry(path string) (*Registry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	defs, err := codec.DecodeYAML(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	reg := NewRegistry()
	if err := reg.RegisterDefinitions(defs); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := reg.Check(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

// RegisterSelectList adds a named select list provider.
func (r *Registry) RegisterSelectList(name string, fn SelectListFunc) {
	r.selectLists[name] = fn
}

// SetValidator attaches a custom validation hook to an entity.
func (r *Registry) SetValidator(entity string, fn ValidateFunc) error {
	e, err := r.Entity(entity)
	if err != nil {
		return err
	}
	e.Validate = fn
	return nil
}

// Entity looks an entity up by name.
func (r *Registry) Entity(name string) (*Entity, error) {
	e, ok := r.entities[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, name)
	}
	return e, nil
}

// Entities returns every entity sorted by name.
func (r *Registry) Entities() []*Entity {
	out := make([]*Entity, 0, len(r.entities))
	for _, e := range r.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Check verifies cross entity references: foreign keys must name a
// registered entity and select lists a provider or an entity.
func (r *Registry) Check() error {
	for _, e := range r.Entities() {
		for _, f := range e.VM.Fields {
			if f.ForeignKey != "" {
				if _, ok := r.entities[f.ForeignKey]; !ok {
					return fmt.Errorf("%s.%s: foreign key to %w %s", e.Name(), f.Name, ErrUnknownEntity, f.ForeignKey)
				}
			}
			if f.SelectList != "" && !r.hasSelectList(f.SelectList) {
				return fmt.Errorf("%s.%s: unknown select list %s", e.Name(), f.Name, f.SelectList)
			}
		}
		for _, fd := range e.Filters {
			if fd.SelectList != "" && !r.hasSelectList(fd.SelectList) {
				return fmt.Errorf("%s filter %s: unknown select list %s", e.Name(), fd.Name, fd.SelectList)
			}
		}
	}
	return nil
}

func (r *Registry) hasSelectList(name string) bool {
	if _, ok := r.selectLists[name]; ok {
		return true
	}
	_, ok := r.entities[name]
	return ok
}

// keyValue converts a request id into the column's storage value. ok is
// false when the id cannot belong to the column.
func keyValue(f viewmodel.FieldDescriptor, id string) (any, bool) {
	if id == "" {
		return nil, false
	}
	if f.Kind() == viewmodel.KindInt {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, false
		}
		return n, true
	}
	return id, true
}

// scopeFor returns the tenant scope of an entity. Tenant aware entities
// require a tenant on every operation.
func scopeFor(vm *viewmodel.ViewModel, tenant string) (*store.Scope, error) {
	tf := vm.TenantField()
	if tf == "" {
		return nil, nil
	}
	f, _ := vm.Field(tf)
	v, ok := keyValue(f, tenant)
	if !ok {
		return nil, ErrTenantRequired
	}
	return &store.Scope{Column: tf, Value: v}, nil
}
