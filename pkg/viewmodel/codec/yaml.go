package codec

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/faciam-dev/gadmin/pkg/session"
	"github.com/faciam-dev/gadmin/pkg/store"
	"github.com/faciam-dev/gadmin/pkg/viewmodel"
)

const currentVersion = "1.0"

// supported is the range of entity file versions this build can read.
var supported = mustConstraint(">= 1.0.0, < 2.0.0")

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

type entityFile struct {
	Version  string   `yaml:"version"`
	Entities []Entity `yaml:"entities"`
}

// Entity is the YAML form of one entity definition.
type Entity struct {
	Name    string                      `yaml:"name"`
	Table   string                      `yaml:"table,omitempty"`
	Display string                      `yaml:"display,omitempty"`
	Access  *Access                     `yaml:"access,omitempty"`
	Fields  []viewmodel.FieldDescriptor `yaml:"fields"`
	Filters []Filter                    `yaml:"filters,omitempty"`
}

// Access restricts an entity to sessions holding one of Roles.
type Access struct {
	Roles []string `yaml:"roles"`
}

// Filter is the YAML form of a column filter.
type Filter struct {
	Name       string `yaml:"name"`
	Kind       string `yaml:"kind,omitempty"`
	Column     string `yaml:"column,omitempty"`
	Op         string `yaml:"op,omitempty"`
	SelectList string `yaml:"select_list,omitempty"`
}

// Definition is a decoded, validated entity.
type Definition struct {
	ViewModel *viewmodel.ViewModel
	// Display is the field whose value labels a record, e.g. in foreign key
	// resolution. Empty means the primary key.
	Display string
	Filters []viewmodel.FilterDef
}

func normalize(s string) string {
	if strings.Count(s, ".") == 1 {
		return s + ".0"
	}
	return s
}

// EncodeYAML writes entities in the current file version.
func EncodeYAML(entities []Entity) ([]byte, error) {
	return yaml.Marshal(entityFile{Version: currentVersion, Entities: entities})
}

// ReadEntities reads an entity file without building view models.
func ReadEntities(b []byte) ([]Entity, error) {
	var f entityFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, err
	}
	if f.Version == "" {
		f.Version = currentVersion
	}
	v, err := semver.NewVersion(normalize(f.Version))
	if err != nil {
		return nil, fmt.Errorf("version %q: %w", f.Version, err)
	}
	if !supported.Check(v) {
		return nil, fmt.Errorf("unsupported entity file version %s", f.Version)
	}
	return f.Entities, nil
}

// DecodeYAML reads an entity file and builds a view model per entity.
func DecodeYAML(b []byte) ([]Definition, error) {
	entities, err := ReadEntities(b)
	if err != nil {
		return nil, err
	}
	defs := make([]Definition, 0, len(entities))
	for _, e := range entities {
		d, err := e.Definition()
		if err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	return defs, nil
}

// Definition validates e and builds its view model and filters.
func (e Entity) Definition() (Definition, error) {
	var access viewmodel.AccessFunc
	if e.Access != nil && len(e.Access.Roles) > 0 {
		roles := append([]string(nil), e.Access.Roles...)
		access = func(s session.Session) bool { return s.HasRole(roles...) }
	}
	vm, err := viewmodel.New(e.Name, e.Table, e.Fields, access)
	if err != nil {
		return Definition{}, err
	}
	if e.Display != "" {
		if _, ok := vm.Field(e.Display); !ok {
			return Definition{}, fmt.Errorf("%s: display field %q not found", e.Name, e.Display)
		}
	}
	d := Definition{ViewModel: vm, Display: e.Display}
	for _, f := range e.Filters {
		fd, err := f.def(vm)
		if err != nil {
			return Definition{}, fmt.Errorf("%s: filter %s: %w", e.Name, f.Name, err)
		}
		d.Filters = append(d.Filters, fd)
	}
	return d, nil
}

func (f Filter) def(vm *viewmodel.ViewModel) (viewmodel.FilterDef, error) {
	if f.Name == "" {
		return viewmodel.FilterDef{}, fmt.Errorf("name is required")
	}
	kind, err := viewmodel.ParseFilterKind(f.Kind)
	if err != nil {
		return viewmodel.FilterDef{}, err
	}
	col := f.Column
	if col == "" {
		col = f.Name
	}
	if _, ok := vm.Field(col); !ok {
		return viewmodel.FilterDef{}, fmt.Errorf("column %q not found", col)
	}
	op, err := store.ParseOp(f.Op)
	if err != nil {
		return viewmodel.FilterDef{}, err
	}
	fd := viewmodel.ColumnFilter(f.Name, kind, col, op)
	fd.SelectList = f.SelectList
	return fd, nil
}
