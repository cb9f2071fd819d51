package viewmodel

import (
	"regexp"
	"strings"

	"github.com/iancoleman/strcase"
)

// DefaultSortPosition places a field after every explicitly ordered column.
const DefaultSortPosition = 99

// FieldDescriptor describes how one persisted column is exposed.
type FieldDescriptor struct {
	Name             string    `yaml:"name" json:"name"`
	Label            string    `yaml:"label,omitempty" json:"label"`
	StorageType      string    `yaml:"type" json:"storage_type"`
	Type             FieldType `yaml:"field_type,omitempty" json:"field_type"`
	HTMLInputType    string    `yaml:"html_input_type,omitempty" json:"html_input_type,omitempty"`
	SelectList       string    `yaml:"select_list,omitempty" json:"select_list,omitempty"`
	ForeignKey       string    `yaml:"foreign_key,omitempty" json:"foreign_key,omitempty"`
	ListRegexMask    string    `yaml:"list_regex_mask,omitempty" json:"list_regex_mask,omitempty"`
	ListSortPosition int       `yaml:"list_sort_position,omitempty" json:"list_sort_position"`
	PrimaryKey       bool      `yaml:"primary_key,omitempty" json:"primary_key"`
	IsOption         bool      `yaml:"nullable,omitempty" json:"is_option"`
	Searchable       bool      `yaml:"searchable,omitempty" json:"searchable"`
	NotEmpty         bool      `yaml:"not_empty,omitempty" json:"not_empty"`
	ListHideColumn   bool      `yaml:"list_hide_column,omitempty" json:"list_hide_column"`
	TenantRef        bool      `yaml:"tenant_ref,omitempty" json:"tenant_ref"`
	TextArea         bool      `yaml:"textarea,omitempty" json:"-"`
	FileUpload       bool      `yaml:"file_upload,omitempty" json:"-"`
	Sanitize         bool      `yaml:"sanitize,omitempty" json:"-"`

	mask *regexp.Regexp
}

// Kind returns the storage value kind of the field.
func (f FieldDescriptor) Kind() Kind { return KindOf(f.StorageType) }

// IsOptionOrString reports whether an empty form value may map to "no value".
func (f FieldDescriptor) IsOptionOrString() bool {
	return f.IsOption || f.Kind() == KindString
}

// InputType returns the HTML input kind the field should be rendered with.
func (f FieldDescriptor) InputType() string {
	if f.HTMLInputType != "" {
		return f.HTMLInputType
	}
	switch f.Type {
	case FieldNumber:
		return "number"
	case FieldCheckbox:
		return "checkbox"
	case FieldDate:
		return "date"
	case FieldTime:
		return "time"
	case FieldDateTime:
		return "datetime-local"
	case FieldFileUpload:
		return "file"
	default:
		return "text"
	}
}

// Mask returns the compiled list mask, or nil when none is configured.
func (f FieldDescriptor) Mask() *regexp.Regexp { return f.mask }

// normalize fills derived attributes. It is called once by New.
func (f *FieldDescriptor) normalize() error {
	f.Name = strings.TrimSpace(f.Name)
	if f.Label == "" {
		f.Label = humanize(f.Name)
	}
	if f.Type == "" {
		f.Type = DeriveFieldType(f.StorageType, f.TextArea, f.FileUpload, f.SelectList)
	} else if _, err := ParseFieldType(string(f.Type)); err != nil {
		return err
	}
	if f.ListSortPosition == 0 {
		f.ListSortPosition = DefaultSortPosition
	}
	if f.ListRegexMask != "" {
		re, err := regexp.Compile(f.ListRegexMask)
		if err != nil {
			return err
		}
		f.mask = re
	}
	return nil
}

func humanize(name string) string {
	s := strings.ReplaceAll(strcase.ToSnake(name), "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
