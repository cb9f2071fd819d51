package viewmodel

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Model is the untyped value bag moved between forms and typed storage.
// A Model belongs to a single request and is never cached.
type Model struct {
	PrimaryKey   *string           `json:"primary_key,omitempty"`
	Values       map[string]string `json:"values"`
	FKValues     map[string]string `json:"fk_values,omitempty"`
	Errors       map[string]string `json:"errors,omitempty"`
	CustomErrors map[string]string `json:"custom_errors,omitempty"`
	DisplayName  string            `json:"display_name,omitempty"`

	// file fields whose value was stored by this request
	uploaded map[string]bool
}

// NewModel returns an empty model with initialized maps.
func NewModel() *Model {
	return &Model{
		Values:       map[string]string{},
		FKValues:     map[string]string{},
		Errors:       map[string]string{},
		CustomErrors: map[string]string{},
	}
}

// FromValues builds a model from url-encoded form values. Repeated keys keep
// their first value.
func FromValues(v url.Values) *Model {
	m := NewModel()
	for k, vals := range v {
		if len(vals) > 0 {
			m.Values[k] = vals[0]
		}
	}
	return m
}

// FromMap builds a model from a decoded JSON object. Non-string scalars are
// stringified the way a form would submit them; null becomes "".
func FromMap(v map[string]any) *Model {
	m := NewModel()
	for k, val := range v {
		switch x := val.(type) {
		case nil:
			m.Values[k] = ""
		case string:
			m.Values[k] = x
		case bool:
			m.Values[k] = strconv.FormatBool(x)
		case float64:
			m.Values[k] = strconv.FormatFloat(x, 'f', -1, 64)
		case json.Number:
			m.Values[k] = x.String()
		default:
			m.Values[k] = strings.Trim(fmt.Sprint(x), `"`)
		}
	}
	return m
}

// Get returns the raw value of a field.
func (m *Model) Get(field string) (string, bool) {
	v, ok := m.Values[field]
	return v, ok
}

// Set stores a raw value.
func (m *Model) Set(field, value string) {
	if m.Values == nil {
		m.Values = map[string]string{}
	}
	m.Values[field] = value
}

// MarkUploaded records that the value of a file upload field names a file
// saved for this model. Bind drops file field values that are not marked.
func (m *Model) MarkUploaded(field string) {
	if m.uploaded == nil {
		m.uploaded = map[string]bool{}
	}
	m.uploaded[field] = true
}

// Uploaded reports whether field was marked with MarkUploaded.
func (m *Model) Uploaded(field string) bool { return m.uploaded[field] }

// AddError records a field validation failure.
func (m *Model) AddError(field, msg string) {
	if m.Errors == nil {
		m.Errors = map[string]string{}
	}
	m.Errors[field] = msg
}

// AddCustomError records an entity specific validation failure.
func (m *Model) AddCustomError(key, msg string) {
	if m.CustomErrors == nil {
		m.CustomErrors = map[string]string{}
	}
	m.CustomErrors[key] = msg
}

// HasErrors reports whether any field or custom error is present.
func (m *Model) HasErrors() bool {
	return len(m.Errors) > 0 || len(m.CustomErrors) > 0
}

// ID returns the primary key or "".
func (m *Model) ID() string {
	if m.PrimaryKey == nil {
		return ""
	}
	return *m.PrimaryKey
}

// Display returns the value shown for a field: the resolved foreign key
// label when there is one, the raw value otherwise.
func (m *Model) Display(field string) string {
	if v, ok := m.FKValues[field]; ok {
		return v
	}
	return m.Values[field]
}

// FromRecord converts a storage record into a model, formatting each column
// according to its descriptor. Columns unknown to the view model are skipped.
func FromRecord(vm *ViewModel, rec map[string]any) *Model {
	m := NewModel()
	for _, f := range vm.Fields {
		v, ok := rec[f.Name]
		if !ok {
			continue
		}
		m.Values[f.Name] = FormatValue(f, v)
	}
	if id, ok := m.Values[vm.PrimaryKey]; ok && id != "" {
		m.PrimaryKey = &id
	}
	return m
}

// FormatValue stringifies a stored value for a field.
func FormatValue(f FieldDescriptor, v any) string {
	kind := f.Kind()
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return formatString(kind, string(x))
	case string:
		return formatString(kind, x)
	case time.Time:
		return formatTime(kind, x)
	case *time.Time:
		if x == nil {
			return ""
		}
		return formatTime(kind, *x)
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return formatInt(kind, x)
	case int:
		return formatInt(kind, int64(x))
	case int32:
		return formatInt(kind, int64(x))
	case float64:
		if kind == KindInt && x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case fmt.Stringer:
		return strings.Trim(x.String(), `"`)
	default:
		return strings.Trim(fmt.Sprint(x), `"`)
	}
}

func formatInt(kind Kind, n int64) string {
	if kind == KindBool {
		return strconv.FormatBool(n != 0)
	}
	return strconv.FormatInt(n, 10)
}

// Layouts used for date/time form values.
const (
	DateLayout          = "2006-01-02"
	DateTimeLayout      = "2006-01-02T15:04"
	DateTimeLayoutSecs  = "2006-01-02T15:04:05"
	TimeLayout          = "15:04"
	TimeLayoutSecs      = "15:04:05"
	storageDateTimeForm = "2006-01-02 15:04:05"
)

var storedTimeLayouts = []string{
	time.RFC3339Nano,
	storageDateTimeForm,
	"2006-01-02 15:04:05Z07:00",
	DateTimeLayoutSecs,
	DateTimeLayout,
	DateLayout,
}

func formatString(kind Kind, s string) string {
	switch kind {
	case KindDate, KindDateTime:
		for _, layout := range storedTimeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return formatTime(kind, t)
			}
		}
		return s
	case KindTime:
		if t, err := time.Parse(TimeLayoutSecs, s); err == nil {
			return t.Format(TimeLayout)
		}
		return s
	case KindBool:
		switch s {
		case "1", "t", "true", "TRUE":
			return "true"
		case "0", "f", "false", "FALSE":
			return "false"
		}
		return s
	default:
		return s
	}
}

func formatTime(kind Kind, t time.Time) string {
	switch kind {
	case KindDate:
		return t.Format(DateLayout)
	case KindDateTime:
		return t.Format(DateTimeLayout)
	case KindTime:
		return t.Format(TimeLayout)
	default:
		return t.Format(time.RFC3339)
	}
}
