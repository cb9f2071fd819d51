package viewmodel

import (
	"errors"
	"fmt"
	"sort"

	"github.com/faciam-dev/gadmin/pkg/session"
)

// AccessFunc decides whether a session may see an entity at all.
type AccessFunc func(s session.Session) bool

// ViewModel is the static description of one entity. It is built once by
// New and must not be modified afterwards; it is shared by every request.
type ViewModel struct {
	EntityName string            `json:"entity_name"`
	Table      string            `json:"-"`
	PrimaryKey string            `json:"primary_key"`
	Fields     []FieldDescriptor `json:"fields"`
	ShowSearch bool              `json:"show_search"`
	Access     AccessFunc        `json:"-"`

	byName      map[string]int
	tenantField string
}

var (
	ErrNoPrimaryKey       = errors.New("entity has no primary key field")
	ErrManyPrimaryKeys    = errors.New("entity has more than one primary key field")
	ErrManyTenantRefs     = errors.New("entity has more than one tenant_ref field")
	ErrDuplicateField     = errors.New("duplicate field name")
	ErrSearchableNonText  = errors.New("searchable field must be textual")
	ErrMissingEntityName  = errors.New("entity name is required")
	ErrTenantRefIsPrimary = errors.New("tenant_ref field cannot be the primary key")
)

// New normalizes the field list and checks the schema invariants: exactly
// one primary key, at most one tenant_ref and unique field names.
func New(entity, table string, fields []FieldDescriptor, access AccessFunc) (*ViewModel, error) {
	if entity == "" {
		return nil, ErrMissingEntityName
	}
	if table == "" {
		table = entity
	}
	vm := &ViewModel{
		EntityName: entity,
		Table:      table,
		Fields:     make([]FieldDescriptor, len(fields)),
		Access:     access,
		byName:     make(map[string]int, len(fields)),
	}
	copy(vm.Fields, fields)
	pks, tenants := 0, 0
	for i := range vm.Fields {
		f := &vm.Fields[i]
		if err := f.normalize(); err != nil {
			return nil, fmt.Errorf("%s.%s: %w", entity, f.Name, err)
		}
		if _, dup := vm.byName[f.Name]; dup {
			return nil, fmt.Errorf("%s.%s: %w", entity, f.Name, ErrDuplicateField)
		}
		vm.byName[f.Name] = i
		if f.PrimaryKey {
			pks++
			vm.PrimaryKey = f.Name
		}
		if f.TenantRef {
			if f.PrimaryKey {
				return nil, fmt.Errorf("%s.%s: %w", entity, f.Name, ErrTenantRefIsPrimary)
			}
			tenants++
			vm.tenantField = f.Name
		}
		if f.Searchable {
			if f.Kind() != KindString {
				return nil, fmt.Errorf("%s.%s: %w", entity, f.Name, ErrSearchableNonText)
			}
			vm.ShowSearch = true
		}
	}
	switch {
	case pks == 0:
		return nil, fmt.Errorf("%s: %w", entity, ErrNoPrimaryKey)
	case pks > 1:
		return nil, fmt.Errorf("%s: %w", entity, ErrManyPrimaryKeys)
	case tenants > 1:
		return nil, fmt.Errorf("%s: %w", entity, ErrManyTenantRefs)
	}
	return vm, nil
}

// Field looks a field up by name.
func (vm *ViewModel) Field(name string) (FieldDescriptor, bool) {
	i, ok := vm.byName[name]
	if !ok {
		return FieldDescriptor{}, false
	}
	return vm.Fields[i], true
}

// PrimaryField returns the primary key descriptor.
func (vm *ViewModel) PrimaryField() FieldDescriptor {
	f, _ := vm.Field(vm.PrimaryKey)
	return f
}

// TenantField returns the tenant_ref column name, or "" when the entity is
// not tenant aware.
func (vm *ViewModel) TenantField() string { return vm.tenantField }

// Columns returns every field name in declaration order.
func (vm *ViewModel) Columns() []string {
	cols := make([]string, len(vm.Fields))
	for i, f := range vm.Fields {
		cols[i] = f.Name
	}
	return cols
}

// ListFields returns the visible list columns ordered by ListSortPosition,
// keeping declaration order for equal positions.
func (vm *ViewModel) ListFields() []FieldDescriptor {
	out := make([]FieldDescriptor, 0, len(vm.Fields))
	for _, f := range vm.Fields {
		if !f.ListHideColumn {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ListSortPosition < out[j].ListSortPosition
	})
	return out
}

// SearchableFields returns the names of fields flagged searchable.
func (vm *ViewModel) SearchableFields() []string {
	var out []string
	for _, f := range vm.Fields {
		if f.Searchable {
			out = append(out, f.Name)
		}
	}
	return out
}

// FileFields returns the names of file upload fields.
func (vm *ViewModel) FileFields() []string {
	var out []string
	for _, f := range vm.Fields {
		if f.Type == FieldFileUpload {
			out = append(out, f.Name)
		}
	}
	return out
}

// Editable reports whether a field takes part in create/edit validation.
// The primary key and tenant_ref column are never taken from client input.
func (f FieldDescriptor) Editable() bool {
	return !f.PrimaryKey && !f.TenantRef
}
