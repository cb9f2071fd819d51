package schema

import (
	"github.com/faciam-dev/gadmin/pkg/admin"
	"github.com/faciam-dev/gadmin/pkg/viewmodel"
)

// Field describes one column of an entity for clients rendering forms and
// tables.
type Field struct {
	Name         string `json:"name"`
	Label        string `json:"label"`
	FieldType    string `json:"fieldType"`
	InputType    string `json:"inputType"`
	Nullable     bool   `json:"nullable"`
	PrimaryKey   bool   `json:"primaryKey,omitempty"`
	Searchable   bool   `json:"searchable,omitempty"`
	NotEmpty     bool   `json:"notEmpty,omitempty"`
	Hidden       bool   `json:"hidden,omitempty"`
	Editable     bool   `json:"editable"`
	SelectList   string `json:"selectList,omitempty"`
	ForeignKey   string `json:"foreignKey,omitempty"`
	SortPosition int    `json:"sortPosition"`
}

// FilterDef names a filter accepted by the list endpoint.
type FilterDef struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	SelectList string `json:"selectList,omitempty"`
}

// Entity is the public view of a registered entity.
type Entity struct {
	Name        string      `json:"name"`
	PrimaryKey  string      `json:"primaryKey"`
	Display     string      `json:"display,omitempty"`
	TenantAware bool        `json:"tenantAware"`
	ShowSearch  bool        `json:"showSearch"`
	Fields      []Field     `json:"fields"`
	Filters     []FilterDef `json:"filters,omitempty"`
}

// Record is one record as shown to clients.
type Record struct {
	ID          string            `json:"id"`
	DisplayName string            `json:"displayName,omitempty"`
	Values      map[string]string `json:"values"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// Page is one page of a list.
type Page struct {
	Page       int                `json:"page"`
	PageSize   int                `json:"pageSize"`
	Total      int64              `json:"total"`
	TotalPages int64              `json:"totalPages"`
	Records    []Record           `json:"records"`
	Filters    []viewmodel.Filter `json:"filters,omitempty"`
}

// DeleteMany is the body of the bulk delete endpoint.
type DeleteMany struct {
	IDs []string `json:"ids" minItems:"1"`
}

// FromEntity converts a registry entity.
func FromEntity(e *admin.Entity) Entity {
	vm := e.VM
	out := Entity{
		Name:        vm.EntityName,
		PrimaryKey:  vm.PrimaryKey,
		Display:     e.Display,
		TenantAware: vm.TenantField() != "",
		ShowSearch:  vm.ShowSearch,
		Fields:      make([]Field, 0, len(vm.Fields)),
	}
	for _, f := range vm.Fields {
		out.Fields = append(out.Fields, Field{
			Name:         f.Name,
			Label:        f.Label,
			FieldType:    string(f.Type),
			InputType:    f.InputType(),
			Nullable:     f.IsOption,
			PrimaryKey:   f.PrimaryKey,
			Searchable:   f.Searchable,
			NotEmpty:     f.NotEmpty,
			Hidden:       f.ListHideColumn,
			Editable:     f.Editable(),
			SelectList:   f.SelectList,
			ForeignKey:   f.ForeignKey,
			SortPosition: f.ListSortPosition,
		})
	}
	for _, fd := range e.Filters {
		out.Filters = append(out.Filters, FilterDef{Name: fd.Name, Kind: string(fd.Kind), SelectList: fd.SelectList})
	}
	return out
}

// FromModel converts a model.
func FromModel(m *viewmodel.Model) Record {
	r := Record{ID: m.ID(), DisplayName: m.DisplayName, Values: m.Values}
	if len(m.FKValues) > 0 {
		r.Labels = m.FKValues
	}
	return r
}

// FromList converts a list result.
func FromList(res admin.ListResult) Page {
	p := Page{
		Page:       res.Page,
		PageSize:   res.PageSize,
		Total:      res.Total,
		TotalPages: res.TotalPages,
		Records:    make([]Record, len(res.Records)),
		Filters:    res.Filters,
	}
	for i, m := range res.Records {
		p.Records[i] = FromModel(m)
	}
	return p
}
