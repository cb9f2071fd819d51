package viewmodel

import (
	"fmt"
	"strings"

	"github.com/faciam-dev/gadmin/pkg/store"
)

// FilterKind tags how a filter value is entered and parsed.
type FilterKind string

const (
	FilterText       FilterKind = "text"
	FilterSelectList FilterKind = "select_list"
	FilterDate       FilterKind = "date"
	FilterDateTime   FilterKind = "datetime"
	FilterCheckbox   FilterKind = "checkbox"
)

// ParseFilterKind validates a filter kind name; "" means text.
func ParseFilterKind(s string) (FilterKind, error) {
	switch k := FilterKind(s); k {
	case "":
		return FilterText, nil
	case FilterText, FilterSelectList, FilterDate, FilterDateTime, FilterCheckbox:
		return k, nil
	}
	return "", fmt.Errorf("unknown filter kind %q", s)
}

// Option is one (key, label) pair of a select list.
type Option struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Filter is the request-scoped state of one filter, as shown to the caller.
type Filter struct {
	Name    string     `json:"name"`
	Kind    FilterKind `json:"kind"`
	Value   *string    `json:"value,omitempty"`
	Options []Option   `json:"options,omitempty"`
}

// FilterDef is a named filter registered on an entity. Apply turns a
// non-empty request value into a storage condition. SelectList names the
// provider of Options for select list filters.
type FilterDef struct {
	Name       string
	Kind       FilterKind
	SelectList string
	Apply      func(value string) (store.Condition, error)
}

// ColumnFilter builds a FilterDef comparing column against the parsed
// request value with op. For store.OpIn the value is a comma separated list
// and each element is parsed on its own.
func ColumnFilter(name string, kind FilterKind, column string, op store.Op) FilterDef {
	return FilterDef{
		Name: name,
		Kind: kind,
		Apply: func(value string) (store.Condition, error) {
			if op != store.OpIn {
				v, err := parseFilterValue(kind, value)
				if err != nil {
					return store.Condition{}, err
				}
				return store.Condition{Column: column, Op: op, Value: v}, nil
			}
			var vals []any
			for _, part := range strings.Split(value, ",") {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				v, err := parseFilterValue(kind, part)
				if err != nil {
					return store.Condition{}, err
				}
				vals = append(vals, v)
			}
			if len(vals) == 0 {
				return store.Condition{}, ErrInvalidValue
			}
			return store.In(column, vals), nil
		},
	}
}

func parseFilterValue(kind FilterKind, value string) (any, error) {
	switch kind {
	case FilterCheckbox:
		return ParseBool(value), nil
	case FilterDate:
		t, err := ParseDate(value)
		if err != nil {
			return nil, ErrInvalidValue
		}
		return t, nil
	case FilterDateTime:
		t, err := ParseDateTime(value)
		if err != nil {
			return nil, ErrInvalidValue
		}
		return t, nil
	}
	return value, nil
}
