package admin

import (
	"errors"
	"fmt"

	"github.com/faciam-dev/gadmin/pkg/viewmodel"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrValidation    = errors.New("validation failed")
	ErrStorage       = errors.New("storage error")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrUnknownEntity = errors.New("unknown entity")
	// ErrTenantRequired is an ErrUnauthorized raised when a tenant aware
	// entity is used without a tenant.
	ErrTenantRequired = fmt.Errorf("%w: tenant required", ErrUnauthorized)
	// ErrInvalidValue is re-exported for callers that only import admin.
	ErrInvalidValue = viewmodel.ErrInvalidValue
)

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
