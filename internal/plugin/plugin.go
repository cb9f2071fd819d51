// Package plugin loads entity validation hooks from Go plugins built with
// -buildmode=plugin. A plugin exports a package level variable named
// Validators mapping entity names to hooks:
//
//	var Validators = map[string]func(*viewmodel.Model){
//		"posts": func(m *viewmodel.Model) { ... },
//	}
package plugin

import (
	"fmt"
	"path/filepath"
	"plugin"
	"sort"

	"github.com/faciam-dev/gadmin/pkg/admin"
	"github.com/faciam-dev/gadmin/pkg/viewmodel"
)

// Symbol is the exported variable looked up in each plugin.
const Symbol = "Validators"

// Load opens the plugin at path and installs its validators on reg. It
// returns the entities that received a hook.
func Load(path string, reg *admin.Registry) ([]string, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	sym, err := p.Lookup(Symbol)
	if err != nil {
		return nil, err
	}
	names, err := Register(reg, sym)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return names, nil
}

// LoadDir loads every *.so file of dir in name order.
func LoadDir(dir string, reg *admin.Registry) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.so"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	var all []string
	for _, p := range paths {
		names, err := Load(p, reg)
		if err != nil {
			return all, err
		}
		all = append(all, names...)
	}
	return all, nil
}

// Register installs the validators held by sym, which is the value of the
// Validators symbol or a pointer to it.
func Register(reg *admin.Registry, sym any) ([]string, error) {
	hooks := map[string]admin.ValidateFunc{}
	switch v := sym.(type) {
	case *map[string]func(*viewmodel.Model):
		for k, fn := range *v {
			hooks[k] = fn
		}
	case map[string]func(*viewmodel.Model):
		for k, fn := range v {
			hooks[k] = fn
		}
	case *map[string]admin.ValidateFunc:
		hooks = *v
	case map[string]admin.ValidateFunc:
		hooks = v
	default:
		return nil, fmt.Errorf("symbol %s has type %T", Symbol, sym)
	}
	names := make([]string, 0, len(hooks))
	for name := range hooks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if hooks[name] == nil {
			return nil, fmt.Errorf("validator for %s is nil", name)
		}
		if err := reg.SetValidator(name, hooks[name]); err != nil {
			return nil, err
		}
	}
	return names, nil
}
