package auth

import (
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"

	"github.com/faciam-dev/gadmin/internal/tenant"
	"github.com/faciam-dev/gadmin/pkg/session"
)

// Middleware validates bearer tokens and stores the caller's session in the
// request context. The tenant always comes from the token: the tenant header
// is discarded, and a token without a tenant claim carries no tenant.
func Middleware(api huma.API, j *JWT) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		r, w := humachi.Unwrap(ctx)
		authHdr := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHdr, "Bearer ") {
			huma.WriteErr(api, ctx, http.StatusUnauthorized, "unauthorized")
			return
		}
		claims, err := j.Validate(strings.TrimPrefix(authHdr, "Bearer "))
		if err != nil {
			huma.WriteErr(api, ctx, http.StatusUnauthorized, "unauthorized")
			return
		}
		tid := claims.TenantID
		c := tenant.WithTenant(r.Context(), tid)
		c = session.WithSession(c, session.Session{Subject: claims.Subject, Tenant: tid, Roles: claims.Roles})
		next(humachi.NewContext(ctx.Operation(), r.WithContext(c), w))
	}
}
