package tenant

import (
	"context"
	"net/http"
	"strings"
)

// Header carries the tenant of a request when the token has none.
const Header = "X-Tenant-ID"

type ctxKey struct{}

// WithTenant stores the given tenant ID in the context.
func WithTenant(ctx context.Context, tid string) context.Context {
	return context.WithValue(ctx, ctxKey{}, tid)
}

// FromContext retrieves the tenant ID stored in the context. Empty string if missing.
func FromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKey{}).(string)
	return v
}

// FromRequest reads the tenant header.
func FromRequest(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(Header))
}
