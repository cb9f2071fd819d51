package huma

import (
	"context"
	"errors"
	"net/http"
	"sort"

	base "github.com/danielgtaylor/huma/v2"

	"github.com/faciam-dev/gadmin/pkg/admin"
	"github.com/faciam-dev/gadmin/pkg/viewmodel"
)

type (
	API         = base.API
	Operation   = base.Operation
	StatusError = base.StatusError
	ErrorDetail = base.ErrorDetail
)

var NewError = base.NewError

// Register wraps huma.Register to expose through this package.
func Register[I, O any](api API, op Operation, handler func(context.Context, *I) (*O, error)) {
	base.Register[I, O](api, op, handler)
}

// Error422 returns a 422 status error with field location information.
func Error422(field, msg string) StatusError {
	return base.NewError(http.StatusUnprocessableEntity, msg, &ErrorDetail{Location: field, Message: msg})
}

// ValidationError reports every field and custom error of m as a 422.
func ValidationError(m *viewmodel.Model) StatusError {
	details := make([]error, 0, len(m.Errors)+len(m.CustomErrors))
	add := func(prefix string, errs map[string]string) {
		keys := make([]string, 0, len(errs))
		for k := range errs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			details = append(details, &ErrorDetail{Location: prefix + k, Message: errs[k], Value: m.Values[k]})
		}
	}
	add("body.", m.Errors)
	add("custom.", m.CustomErrors)
	return base.NewError(http.StatusUnprocessableEntity, "validation failed", details...)
}

// FromAdmin maps errors of the admin service to HTTP status errors. A
// non-nil model attaches its validation details.
func FromAdmin(err error, m *viewmodel.Model, loggedIn bool) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, admin.ErrValidation) && m != nil:
		return ValidationError(m)
	case errors.Is(err, admin.ErrNotFound), errors.Is(err, admin.ErrUnknownEntity):
		return base.Error404NotFound(err.Error())
	case errors.Is(err, admin.ErrTenantRequired):
		return base.Error400BadRequest(err.Error())
	case errors.Is(err, admin.ErrUnauthorized):
		if !loggedIn {
			return base.Error401Unauthorized(err.Error())
		}
		return base.Error403Forbidden(err.Error())
	case errors.Is(err, viewmodel.ErrInvalidValue):
		return base.Error400BadRequest(err.Error())
	}
	return base.Error500InternalServerError("internal error")
}
