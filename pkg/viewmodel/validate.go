package viewmodel

import "github.com/microcosm-cc/bluemonday"

// sanitizer strips markup from fields flagged sanitize. Policies are safe
// for concurrent use once built.
var sanitizer = bluemonday.UGCPolicy()

// Validate checks every editable field of m and records failures in
// m.Errors. It does not stop at the first failing field.
func (vm *ViewModel) Validate(m *Model) {
	_ = vm.Bind(m)
}

// Bind validates m like Validate and returns the typed value of every
// editable field. A nil entry means NULL. Values of fields that failed are
// omitted; callers must check m.HasErrors before persisting. File upload
// fields not marked with MarkUploaded are cleared first, so a client cannot
// point a record at a file it did not upload.
func (vm *ViewModel) Bind(m *Model) map[string]any {
	out := make(map[string]any, len(vm.Fields))
	for _, f := range vm.Fields {
		if !f.Editable() {
			continue
		}
		if f.Type == FieldFileUpload && !m.Uploaded(f.Name) && m.Values[f.Name] != "" {
			m.Values[f.Name] = ""
		}
		v, err := bindField(m, f)
		if err != nil {
			m.AddError(f.Name, err.Error())
			continue
		}
		out[f.Name] = v
	}
	return out
}

func bindField(m *Model, f FieldDescriptor) (any, error) {
	optStr, allowEmpty := f.IsOptionOrString(), !f.NotEmpty
	switch f.Kind() {
	case KindBool:
		return CoerceBool(m, f.Name), nil
	case KindInt:
		return unwrap(Coerce(m, f.Name, ParseInt, optStr, allowEmpty))
	case KindFloat:
		return unwrap(Coerce(m, f.Name, ParseFloat, optStr, allowEmpty))
	case KindDate:
		return unwrap(Coerce(m, f.Name, ParseDate, optStr, allowEmpty))
	case KindDateTime:
		return unwrap(Coerce(m, f.Name, ParseDateTime, optStr, allowEmpty))
	case KindTime:
		t, err := Coerce(m, f.Name, ParseTime, optStr, allowEmpty)
		if err != nil || t == nil {
			return nil, err
		}
		return t.Format(TimeLayoutSecs), nil
	default:
		s, err := Coerce(m, f.Name, ParseString, optStr, allowEmpty)
		if err != nil {
			return nil, err
		}
		if s == nil {
			if f.IsOption {
				return nil, nil
			}
			return "", nil
		}
		if f.Sanitize {
			return sanitizer.Sanitize(*s), nil
		}
		return *s, nil
	}
}

func unwrap[T any](v *T, err error) (any, error) {
	if err != nil || v == nil {
		return nil, err
	}
	return *v, nil
}
