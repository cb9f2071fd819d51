package middleware

import (
	"github.com/casbin/casbin/v2"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"

	"github.com/faciam-dev/gadmin/internal/logger"
	"github.com/faciam-dev/gadmin/pkg/session"
)

// Enforcer is the subset of casbin used by RBAC.
type Enforcer interface {
	Enforce(rvals ...any) (bool, error)
}

var _ Enforcer = (*casbin.Enforcer)(nil)

// RBAC allows a request when the subject or any of the session roles may
// perform the method on the path.
func RBAC(api huma.API, enf Enforcer) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		r, _ := humachi.Unwrap(ctx)
		sess := session.FromContext(r.Context())
		subjects := append([]string{sess.Subject}, sess.Roles...)
		for _, s := range subjects {
			ok, err := enf.Enforce(s, r.URL.Path, r.Method)
			if err != nil {
				logger.L.Error("rbac enforce", "subject", s, "err", err)
				continue
			}
			if ok {
				next(ctx)
				return
			}
		}
		huma.WriteErr(api, ctx, 403, "forbidden")
	}
}
