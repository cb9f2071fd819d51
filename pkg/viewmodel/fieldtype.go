package viewmodel

import (
	"fmt"
	"strings"
)

// FieldType is the presentation kind of a field.
type FieldType string

const (
	FieldNumber     FieldType = "number"
	FieldText       FieldType = "text"
	FieldTextArea   FieldType = "textarea"
	FieldCheckbox   FieldType = "checkbox"
	FieldDate       FieldType = "date"
	FieldTime       FieldType = "time"
	FieldDateTime   FieldType = "datetime"
	FieldSelectList FieldType = "select_list"
	FieldFileUpload FieldType = "file_upload"
)

var fieldTypes = map[FieldType]struct{}{
	FieldNumber: {}, FieldText: {}, FieldTextArea: {}, FieldCheckbox: {},
	FieldDate: {}, FieldTime: {}, FieldDateTime: {}, FieldSelectList: {},
	FieldFileUpload: {},
}

// ParseFieldType validates s as a FieldType name.
func ParseFieldType(s string) (FieldType, error) {
	ft := FieldType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := fieldTypes[ft]; !ok {
		return "", fmt.Errorf("unknown field type %q", s)
	}
	return ft, nil
}

// Kind is the storage value kind of a column. It decides how untyped
// form values are parsed before they reach the store.
type Kind string

const (
	KindInt      Kind = "int"
	KindFloat    Kind = "float"
	KindString   Kind = "string"
	KindBool     Kind = "bool"
	KindDate     Kind = "date"
	KindDateTime Kind = "datetime"
	KindTime     Kind = "time"
)

// KindOf maps a storage type name (Go or SQL flavoured) to a value kind.
// Unknown names are treated as strings.
func KindOf(storageType string) Kind {
	t := normalizeType(storageType)
	switch {
	case isIntegerType(t):
		return KindInt
	case isFloatType(t):
		return KindFloat
	case isBoolType(t):
		return KindBool
	case isDateTimeType(t):
		return KindDateTime
	case t == "date" || t == "naivedate":
		return KindDate
	case t == "time" || t == "naivetime":
		return KindTime
	default:
		return KindString
	}
}

// DeriveFieldType resolves the presentation type of a column. Override flags
// win in the order textarea, file upload, select list; the storage type name
// decides otherwise.
func DeriveFieldType(storageType string, textarea, fileUpload bool, selectList string) FieldType {
	switch {
	case textarea:
		return FieldTextArea
	case fileUpload:
		return FieldFileUpload
	case selectList != "":
		return FieldSelectList
	}
	t := normalizeType(storageType)
	switch {
	case isIntegerType(t):
		return FieldNumber
	case isStringType(t):
		return FieldText
	case isBoolType(t):
		return FieldCheckbox
	case isDateTimeType(t):
		return FieldDateTime
	case t == "date" || t == "naivedate":
		return FieldDate
	case t == "time" || t == "naivetime":
		return FieldTime
	default:
		return FieldText
	}
}

func normalizeType(s string) string {
	t := strings.ToLower(strings.TrimSpace(s))
	t = strings.TrimPrefix(t, "*")
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = t[:i]
	}
	t = strings.TrimSpace(t)
	if alias, ok := typeAliases[t]; ok {
		return alias
	}
	return strings.TrimPrefix(t, "sql.null")
}

// Go types whose names would otherwise be misread.
var typeAliases = map[string]string{
	"time.time":     "datetime",
	"sql.nulltime":  "datetime",
	"time.duration": "int64",
}

func isIntegerType(t string) bool {
	switch t {
	case "int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64",
		"i8", "i16", "i32", "i64", "u8", "u16", "u32", "u64",
		"integer", "bigint", "smallint", "tinyint", "mediumint",
		"serial", "bigserial":
		return true
	}
	return false
}

func isFloatType(t string) bool {
	switch t {
	case "float", "float32", "float64", "f32", "f64", "double", "real",
		"decimal", "numeric":
		return true
	}
	return false
}

func isStringType(t string) bool {
	switch t {
	case "string", "varchar", "char", "text", "character varying", "uuid":
		return true
	}
	return false
}

func isBoolType(t string) bool {
	return t == "bool" || t == "boolean"
}

func isDateTimeType(t string) bool {
	switch t {
	case "datetime", "timestamp", "timestamptz", "timestamp with time zone",
		"timestamp without time zone", "datetimewithtimezone", "naivedatetime":
		return true
	}
	return false
}
