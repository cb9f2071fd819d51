package admin

import (
	"context"

	"github.com/faciam-dev/gadmin/pkg/store"
	"github.com/faciam-dev/gadmin/pkg/viewmodel"
)

// resolveForeignKeys fills FKValues with the labels of referenced records,
// one query per foreign key field over the distinct ids present in models.
// Ids that do not resolve are left out.
func (s *Service) resolveForeignKeys(ctx context.Context, e *Entity, models []*viewmodel.Model, tenant string) error {
	if len(models) == 0 {
		return nil
	}
	for _, f := range e.VM.Fields {
		if f.ForeignKey == "" {
			continue
		}
		ref, err := s.reg.Entity(f.ForeignKey)
		if err != nil {
			continue
		}
		labels, err := s.loadLabels(ctx, ref, distinctValues(models, f.Name), tenant)
		if err != nil {
			return err
		}
		for _, m := range models {
			if l, ok := labels[m.Values[f.Name]]; ok {
				m.FKValues[f.Name] = l
			}
		}
	}
	return nil
}

func distinctValues(models []*viewmodel.Model, field string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, m := range models {
		v := m.Values[field]
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// loadLabels maps ids of ref to their display labels. A tenant aware ref
// without a tenant resolves nothing.
func (s *Service) loadLabels(ctx context.Context, ref *Entity, ids []string, tenant string) (map[string]string, error) {
	labels := map[string]string{}
	if len(ids) == 0 {
		return labels, nil
	}
	scope, err := scopeFor(ref.VM, tenant)
	if err != nil {
		return labels, nil
	}
	pk := ref.VM.PrimaryField()
	keys := make([]any, 0, len(ids))
	for _, id := range ids {
		if v, ok := keyValue(pk, id); ok {
			keys = append(keys, v)
		}
	}
	if len(keys) == 0 {
		return labels, nil
	}
	disp := ref.displayField()
	cols := []string{pk.Name}
	if disp.Name != pk.Name {
		cols = append(cols, disp.Name)
	}
	recs, err := s.st.Find(ctx, store.Query{
		Table:      ref.VM.Table,
		Columns:    cols,
		Scope:      scope,
		Conditions: []store.Condition{store.In(pk.Name, keys)},
	})
	if err != nil {
		return nil, storageErr("resolve "+ref.Name(), err)
	}
	for _, r := range recs {
		labels[viewmodel.FormatValue(pk, r[pk.Name])] = viewmodel.FormatValue(disp, r[disp.Name])
	}
	return labels, nil
}
