package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/faciam-dev/gadmin/pkg/metrics"
	"github.com/faciam-dev/gadmin/pkg/session"
	"github.com/faciam-dev/gadmin/pkg/store"
	pkgutil "github.com/faciam-dev/gadmin/pkg/util"
	"github.com/faciam-dev/gadmin/pkg/viewmodel"
)

// SortOrder is asc or desc.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// ListParams selects one page of an entity's records.
type ListParams struct {
	Page      int
	PageSize  int
	Search    string
	SortBy    string
	SortOrder SortOrder
	Filters   map[string]string
	Tenant    string
}

// ListResult is one page of records. Page is the page actually returned
// after clamping.
type ListResult struct {
	TotalPages int64
	Total      int64
	Page       int
	PageSize   int
	Records    []*viewmodel.Model
	Filters    []viewmodel.Filter
}

// List runs the list pipeline for entity.
func (s *Service) List(ctx context.Context, sess session.Session, entity string, p ListParams) (res ListResult, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOp(entity, "list", err, start) }()
	e, err := s.entity(sess, entity)
	if err != nil {
		return ListResult{}, err
	}
	res, err = s.list(ctx, e, p)
	if err != nil {
		return ListResult{}, err
	}
	res.Filters, err = s.filterState(ctx, e, p)
	if err != nil {
		return ListResult{}, err
	}
	return res, nil
}

func (s *Service) list(ctx context.Context, e *Entity, p ListParams) (ListResult, error) {
	vm := e.VM
	q := store.Query{Table: vm.Table, Columns: vm.Columns()}

	scope, err := scopeFor(vm, p.Tenant)
	if err != nil {
		return ListResult{}, err
	}
	q.Scope = scope

	if term := strings.TrimSpace(p.Search); term != "" {
		if cols := vm.SearchableFields(); len(cols) > 0 {
			ors := make([]store.Condition, len(cols))
			for i, c := range cols {
				ors[i] = store.Contains(c, term)
			}
			q.Conditions = append(q.Conditions, store.AnyOf(ors...))
		}
	}

	for _, def := range e.Filters {
		v := p.Filters[def.Name]
		if v == "" || def.Apply == nil {
			continue
		}
		c, err := def.Apply(v)
		if err != nil {
			return ListResult{}, fmt.Errorf("filter %s: %w", def.Name, ErrInvalidValue)
		}
		q.Conditions = append(q.Conditions, c)
	}

	sortCol, desc := vm.PrimaryKey, false
	if _, ok := vm.Field(p.SortBy); ok {
		sortCol, desc = p.SortBy, p.SortOrder == Desc
	}
	q.OrderBy = []store.Order{{Column: sortCol, Desc: desc}}
	if sortCol != vm.PrimaryKey {
		q.OrderBy = append(q.OrderBy, store.Order{Column: vm.PrimaryKey})
	}

	size := pkgutil.SanitizeLimit(p.PageSize)
	total, err := s.st.Count(ctx, q)
	if err != nil {
		return ListResult{}, storageErr("count "+vm.EntityName, err)
	}
	pages := (total + int64(size) - 1) / int64(size)
	if pages < 1 {
		pages = 1
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	if int64(page) > pages {
		page = int(pages)
	}
	q.Limit = size
	q.Offset = (page - 1) * size

	recs, err := s.st.Find(ctx, q)
	if err != nil {
		return ListResult{}, storageErr("find "+vm.EntityName, err)
	}
	models := make([]*viewmodel.Model, len(recs))
	for i, r := range recs {
		models[i] = viewmodel.FromRecord(vm, r)
	}
	if err := s.resolveForeignKeys(ctx, e, models, p.Tenant); err != nil {
		return ListResult{}, err
	}
	applyMasks(vm, models)
	// display names are taken from the masked values
	for _, m := range models {
		m.DisplayName = e.displayName(m)
	}

	return ListResult{TotalPages: pages, Total: total, Page: page, PageSize: size, Records: models}, nil
}

// filterState reports every registered filter with its current value and,
// for select list filters, its options.
func (s *Service) filterState(ctx context.Context, e *Entity, p ListParams) ([]viewmodel.Filter, error) {
	out := make([]viewmodel.Filter, 0, len(e.Filters))
	for _, def := range e.Filters {
		f := viewmodel.Filter{Name: def.Name, Kind: def.Kind}
		if v, ok := p.Filters[def.Name]; ok && v != "" {
			v := v
			f.Value = &v
		}
		if def.SelectList != "" {
			opts, err := s.selectList(ctx, def.SelectList, p.Tenant)
			if err != nil {
				return nil, err
			}
			f.Options = opts
		}
		out = append(out, f)
	}
	return out, nil
}
