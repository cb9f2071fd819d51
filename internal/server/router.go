package server

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/faciam-dev/gadmin/internal/api/handler"
	"github.com/faciam-dev/gadmin/internal/auth"
	"github.com/faciam-dev/gadmin/internal/server/middleware"
)

const policyDebounce = 200 * time.Millisecond

// New builds the HTTP API of a. Middleware order matters: huma binds the
// middleware registered so far to each operation at registration time.
func New(a *App) huma.API {
	cfg := a.Config
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Tenant-ID"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	api := humachi.New(r, huma.DefaultConfig("Admin API", "1.0.0"))

	// Tenant first so the login route sees it as well.
	api.UseMiddleware(middleware.ExtractTenant(api))

	if cfg.AuthEnabled {
		j := auth.NewJWT(cfg.JWTSecret, cfg.TokenTTL)
		h := &auth.Handler{Repo: a.Users, JWT: j}
		auth.Register(api, h)
		api.UseMiddleware(auth.Middleware(api, j))
		auth.RegisterRefresh(api, h)
		if a.Enforcer != nil {
			api.UseMiddleware(middleware.RBAC(api, a.Enforcer))
		}
	}
	setupMetrics(api, r)

	handler.RegisterEntities(api, &handler.EntityHandler{Svc: a.Service, Files: a.Files})
	if a.Audit != nil {
		handler.RegisterAudit(api, &handler.AuditHandler{Repo: a.Audit, Svc: a.Service})
	}
	return api
}
