package viewmodel

import (
	"errors"
	"strconv"
	"time"
)

var (
	// ErrInvalidValue is returned when a value cannot be parsed as the
	// column's type or a mandatory non-string value is missing.
	ErrInvalidValue = errors.New("invalid value")
	// ErrCannotBeEmpty is returned when an empty value is not allowed.
	ErrCannotBeEmpty = errors.New("cannot be empty")
)

// Parser converts a raw form string into a typed value.
type Parser[T any] func(string) (T, error)

// Coerce parses the raw value of field into T.
//
// A nil result without error means "no value". Empty and missing values only
// map to nil when the field is optional or textual and allowed to be empty.
func Coerce[T any](m *Model, field string, parse Parser[T], isOptionOrString, allowEmpty bool) (*T, error) {
	raw, ok := m.Values[field]
	if !ok {
		switch {
		case !allowEmpty:
			return nil, ErrCannotBeEmpty
		case isOptionOrString:
			return nil, nil
		default:
			return nil, ErrInvalidValue
		}
	}
	if raw == "" && isOptionOrString {
		if allowEmpty {
			return nil, nil
		}
		return nil, ErrCannotBeEmpty
	}
	v, err := parse(raw)
	if err != nil {
		return nil, ErrInvalidValue
	}
	return &v, nil
}

// CoerceBool never fails: an unchecked checkbox is simply absent from a form
// submission, so anything other than a truthy value is false.
func CoerceBool(m *Model, field string) bool {
	return ParseBool(m.Values[field])
}

// ParseBool reports whether s is one of "true", "yes" or "on".
func ParseBool(s string) bool {
	switch s {
	case "true", "yes", "on":
		return true
	}
	return false
}

func ParseInt(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }

func ParseFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

func ParseString(s string) (string, error) { return s, nil }

// ParseDate accepts YYYY-MM-DD.
func ParseDate(s string) (time.Time, error) { return time.Parse(DateLayout, s) }

// ParseDateTime accepts YYYY-MM-DDTHH:MM with optional seconds.
func ParseDateTime(s string) (time.Time, error) {
	t, err := time.Parse(DateTimeLayout, s)
	if err == nil {
		return t, nil
	}
	return time.Parse(DateTimeLayoutSecs, s)
}

// ParseTime accepts HH:MM with optional seconds.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err == nil {
		return t, nil
	}
	return time.Parse(TimeLayoutSecs, s)
}
