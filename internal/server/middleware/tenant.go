package middleware

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"

	"github.com/faciam-dev/gadmin/internal/tenant"
	"github.com/faciam-dev/gadmin/pkg/session"
)

// ExtractTenant stores the X-Tenant-ID header in the context and seeds an
// anonymous session with it. A missing tenant is not an error here: only
// tenant aware entities require one, and the admin service reports that.
func ExtractTenant(api huma.API) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		r, w := humachi.Unwrap(ctx)
		tid := tenant.FromRequest(r)
		c := tenant.WithTenant(r.Context(), tid)
		c = session.WithSession(c, session.Session{Tenant: tid})
		next(humachi.NewContext(ctx.Operation(), r.WithContext(c), w))
	}
}
