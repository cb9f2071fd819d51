package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/faciam-dev/gadmin/internal/tenant"
	"github.com/faciam-dev/gadmin/pkg/metrics"
	"github.com/faciam-dev/gadmin/pkg/session"
)

type whoami struct {
	Body struct {
		Tenant  string `json:"tenant"`
		Session string `json:"session"`
	}
}

func newAPI(t *testing.T, mws ...func(huma.Context, func(huma.Context))) humatest.TestAPI {
	t.Helper()
	api := humatest.Wrap(t, humachi.New(chi.NewRouter(), huma.DefaultConfig("test", "1.0")))
	for _, mw := range mws {
		api.UseMiddleware(mw)
	}
	huma.Register(api, huma.Operation{OperationID: "whoami", Method: http.MethodGet, Path: "/v1/entities/{entity}/records"},
		func(ctx context.Context, _ *struct {
			Entity string `path:"entity"`
		}) (*whoami, error) {
			out := &whoami{}
			out.Body.Tenant = tenant.FromContext(ctx)
			out.Body.Session = session.FromContext(ctx).Tenant
			return out, nil
		})
	return api
}

func TestExtractTenant(t *testing.T) {
	var api humatest.TestAPI
	api = newAPI(t, func(ctx huma.Context, next func(huma.Context)) { ExtractTenant(api)(ctx, next) })
	resp := api.Get("/v1/entities/notes/records", "X-Tenant-ID:  acme ")
	if resp.Code != http.StatusOK {
		t.Fatalf("status %d: %s", resp.Code, resp.Body.String())
	}
	if body := resp.Body.String(); !strings.Contains(body, `"tenant":"acme"`) || !strings.Contains(body, `"session":"acme"`) {
		t.Fatalf("body = %s", body)
	}
	resp = api.Get("/v1/entities/notes/records")
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"tenant":""`) {
		t.Fatalf("missing tenant: %d %s", resp.Code, resp.Body.String())
	}
}

type fakeEnforcer map[string]bool

func (f fakeEnforcer) Enforce(rvals ...any) (bool, error) {
	sub := rvals[0].(string)
	if sub == "broken" {
		return false, errors.New("model error")
	}
	return f[sub+" "+rvals[2].(string)], nil
}

func withSession(s session.Session) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		r, w := humachi.Unwrap(ctx)
		next(humachi.NewContext(ctx.Operation(), r.WithContext(session.WithSession(r.Context(), s)), w))
	}
}

func TestRBAC(t *testing.T) {
	enf := fakeEnforcer{"reader GET": true, "alice GET": true}
	cases := []struct {
		name string
		sess session.Session
		want int
	}{
		{name: "role allowed", sess: session.Session{Subject: "bob", Roles: []string{"guest", "reader"}}, want: http.StatusOK},
		{name: "subject allowed", sess: session.Session{Subject: "alice"}, want: http.StatusOK},
		{name: "denied", sess: session.Session{Subject: "carol", Roles: []string{"guest"}}, want: http.StatusForbidden},
		{name: "enforcer error then role", sess: session.Session{Subject: "broken", Roles: []string{"reader"}}, want: http.StatusOK},
	}
	for _, c := range cases {
		var api humatest.TestAPI
		api = newAPI(t, withSession(c.sess), func(ctx huma.Context, next func(huma.Context)) { RBAC(api, enf)(ctx, next) })
		if resp := api.Get("/v1/entities/notes/records"); resp.Code != c.want {
			t.Fatalf("%s: status %d, want %d", c.name, resp.Code, c.want)
		}
	}
}

func TestMetricsMW(t *testing.T) {
	api := newAPI(t, MetricsMW)
	labels := []string{"", http.MethodGet, "/v1/entities/{entity}/records", "200"}
	before := testutil.ToFloat64(metrics.APIRequests.WithLabelValues(labels...))
	api.Get("/v1/entities/notes/records")
	api.Get("/v1/entities/tags/records")
	if got := testutil.ToFloat64(metrics.APIRequests.WithLabelValues(labels...)); got != before+2 {
		t.Fatalf("requests = %v, want %v", got, before+2)
	}
}

func TestNormalizePath(t *testing.T) {
	if got := normalizePath("/v1/entities/notes/records/42/history"); got != "/v1/entities/notes/records/:id/history" {
		t.Fatalf("normalizePath = %s", got)
	}
}
