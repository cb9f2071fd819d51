package handler

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/danielgtaylor/huma/v2/humatest"
	ormdriver "github.com/faciam-dev/goquent/orm/driver"
	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap/zaptest"

	"github.com/faciam-dev/gadmin/internal/api/schema"
	"github.com/faciam-dev/gadmin/internal/auditlog"
	"github.com/faciam-dev/gadmin/internal/server/middleware"
	"github.com/faciam-dev/gadmin/pkg/admin"
	"github.com/faciam-dev/gadmin/pkg/filestore"
	"github.com/faciam-dev/gadmin/pkg/store"
	"github.com/faciam-dev/gadmin/pkg/viewmodel/codec"
)

const testEntities = `version: "1.0"
entities:
  - name: notes
    display: title
    fields:
      - {name: id, type: int64, primary_key: true}
      - {name: tenant_id, type: string, tenant_ref: true, list_hide_column: true}
      - {name: title, type: string, searchable: true, not_empty: true}
      - {name: pinned, type: bool}
      - {name: due, type: date, nullable: true}
      - {name: attachment, type: string, nullable: true, file_upload: true}
    filters:
      - {name: pinned, kind: checkbox, column: pinned, op: eq}
`

const testSchema = `
CREATE TABLE notes (id INTEGER PRIMARY KEY AUTOINCREMENT, tenant_id TEXT NOT NULL, title TEXT NOT NULL, pinned BOOLEAN NOT NULL, due DATE, attachment TEXT);
CREATE TABLE admin_audit_logs (id INTEGER PRIMARY KEY AUTOINCREMENT, actor TEXT, tenant_id TEXT, action TEXT, entity TEXT, record_id TEXT, before_json TEXT, after_json TEXT, added INTEGER, removed INTEGER, applied_at DATETIME);
`

type testEnv struct {
	api   humatest.TestAPI
	db    *sql.DB
	files *filestore.Local
}

func newEnv(t *testing.T, access admin.AccessConfig) *testEnv {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if _, err := db.Exec(testSchema); err != nil {
		t.Fatal(err)
	}
	defs, err := codec.DecodeYAML([]byte(testEntities))
	if err != nil {
		t.Fatal(err)
	}
	reg := admin.NewRegistry()
	if err := reg.RegisterDefinitions(defs); err != nil {
		t.Fatal(err)
	}
	files := filestore.NewLocal(t.TempDir())
	logger := zaptest.NewLogger(t).Sugar()
	repo := &auditlog.Repo{DB: db, Dialect: ormdriver.MySQLDialect{}, TablePrefix: "admin_"}
	svc := admin.New(admin.Config{
		Registry: reg,
		Store:    store.NewSQL(db, "sqlite3"),
		Access:   access,
		Files:    filestore.NewReaper(files, logger),
		Audit:    &auditlog.Recorder{DB: db, Dialect: ormdriver.MySQLDialect{}, TablePrefix: "admin_"},
		Logger:   logger,
	})
	api := humatest.Wrap(t, humachi.New(chi.NewRouter(), huma.DefaultConfig("Admin API", "1.0.0")))
	api.UseMiddleware(middleware.ExtractTenant(api))
	RegisterEntities(api, &EntityHandler{Svc: svc, Files: files})
	RegisterAudit(api, &AuditHandler{Repo: repo, Svc: svc})
	return &testEnv{api: api, db: db, files: files}
}

const tenantA = "X-Tenant-ID: A"

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	return v
}

func TestCreateListGet(t *testing.T) {
	env := newEnv(t, admin.AccessConfig{})
	resp := env.api.Post("/v1/entities/notes/records", tenantA, map[string]any{"title": "first", "pinned": true, "due": "2024-03-01"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create status %d: %s", resp.Code, resp.Body.String())
	}
	created := decode[schema.Record](t, resp.Body.Bytes())
	if created.ID != "1" || created.DisplayName != "first" {
		t.Fatalf("created = %+v", created)
	}
	env.api.Post("/v1/entities/notes/records", tenantA, map[string]any{"title": "second", "pinned": false})
	env.api.Post("/v1/entities/notes/records", "X-Tenant-ID: B", map[string]any{"title": "other", "pinned": true})

	resp = env.api.Get("/v1/entities/notes/records?filter=pinned:true&sort_by=title", tenantA)
	if resp.Code != http.StatusOK {
		t.Fatalf("list status %d: %s", resp.Code, resp.Body.String())
	}
	page := decode[schema.Page](t, resp.Body.Bytes())
	if page.Total != 1 || page.Records[0].Values["title"] != "first" {
		t.Fatalf("page = %+v", page)
	}

	resp = env.api.Get("/v1/entities/notes/records/1", tenantA)
	if resp.Code != http.StatusOK {
		t.Fatalf("get status %d", resp.Code)
	}
	if resp := env.api.Get("/v1/entities/notes/records/3", tenantA); resp.Code != http.StatusNotFound {
		t.Fatalf("cross tenant get status %d", resp.Code)
	}
	if resp := env.api.Get("/v1/entities/missing/records"); resp.Code != http.StatusNotFound {
		t.Fatalf("unknown entity status %d", resp.Code)
	}
	if resp := env.api.Get("/v1/entities/notes/records"); resp.Code != http.StatusBadRequest {
		t.Fatalf("missing tenant status %d", resp.Code)
	}
}

type validationBody struct {
	Errors []struct {
		Location string `json:"location"`
	} `json:"errors"`
}

func TestCreateValidationDetails(t *testing.T) {
	env := newEnv(t, admin.AccessConfig{})
	resp := env.api.Post("/v1/entities/notes/records", tenantA, map[string]any{"title": "", "due": "tomorrow"})
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d: %s", resp.Code, resp.Body.String())
	}
	body := decode[validationBody](t, resp.Body.Bytes())
	var locs []string
	for _, e := range body.Errors {
		locs = append(locs, e.Location)
	}
	if diff := cmp.Diff([]string{"body.due", "body.title"}, locs); diff != "" {
		t.Fatalf("locations mismatch (-want +got):\n%s", diff)
	}
}

func TestEditDeleteAndHistory(t *testing.T) {
	env := newEnv(t, admin.AccessConfig{})
	env.api.Post("/v1/entities/notes/records", tenantA, map[string]any{"title": "a", "pinned": false})
	resp := env.api.Put("/v1/entities/notes/records/1", tenantA, map[string]any{"title": "b", "pinned": true})
	if resp.Code != http.StatusOK {
		t.Fatalf("edit status %d: %s", resp.Code, resp.Body.String())
	}

	resp = env.api.Get("/v1/entities/notes/records/1/history", tenantA)
	if resp.Code != http.StatusOK {
		t.Fatalf("history status %d: %s", resp.Code, resp.Body.String())
	}
	hist := decode[[]schema.AuditLog](t, resp.Body.Bytes())
	if len(hist) != 2 || hist[0].Action != "update" || hist[1].Action != "create" {
		t.Fatalf("history = %+v", hist)
	}
	resp = env.api.Get("/v1/audit-logs/"+itoa(hist[0].ID)+"/diff", tenantA)
	diff := decode[schema.AuditDiff](t, resp.Body.Bytes())
	if diff.Added == 0 || diff.Removed == 0 || !strings.Contains(diff.Unified, `+title: "b"`) {
		t.Fatalf("diff = %+v", diff)
	}
	if resp := env.api.Get("/v1/audit-logs/"+itoa(hist[0].ID)+"/diff", "X-Tenant-ID: B"); resp.Code != http.StatusNotFound {
		t.Fatalf("cross tenant diff status %d", resp.Code)
	}

	if resp := env.api.Delete("/v1/entities/notes/records/1", tenantA); resp.Code != http.StatusNoContent {
		t.Fatalf("delete status %d", resp.Code)
	}
	if resp := env.api.Delete("/v1/entities/notes/records/1", tenantA); resp.Code != http.StatusNotFound {
		t.Fatalf("second delete status %d", resp.Code)
	}
}

func TestDeleteManyReportsFailures(t *testing.T) {
	env := newEnv(t, admin.AccessConfig{})
	env.api.Post("/v1/entities/notes/records", tenantA, map[string]any{"title": "a"})
	resp := env.api.Post("/v1/entities/notes/records/delete", tenantA, map[string]any{"ids": []string{"1", "42"}})
	if resp.Code != http.StatusOK {
		t.Fatalf("status %d: %s", resp.Code, resp.Body.String())
	}
	res := decode[admin.DeleteManyResult](t, resp.Body.Bytes())
	if diff := cmp.Diff([]string{"1"}, res.Deleted); diff != "" {
		t.Fatalf("deleted mismatch (-want +got):\n%s", diff)
	}
	if _, ok := res.Failed["42"]; !ok {
		t.Fatalf("failed = %v", res.Failed)
	}
}

func TestUploadStoresFile(t *testing.T) {
	env := newEnv(t, admin.AccessConfig{})
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	w.WriteField("title", "with file")
	fw, err := w.CreateFormFile("attachment", "report.txt")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("hello"))
	w.Close()

	resp := env.api.Post("/v1/entities/notes/records/upload", tenantA, "Content-Type: "+w.FormDataContentType(), &body)
	if resp.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", resp.Code, resp.Body.String())
	}
	rec := decode[schema.Record](t, resp.Body.Bytes())
	if rec.Values["attachment"] != "report.txt" {
		t.Fatalf("attachment = %q", rec.Values["attachment"])
	}
	rc, err := env.files.Open(t.Context(), "notes", "report.txt")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	rc.Close()
}

func TestExportCSV(t *testing.T) {
	env := newEnv(t, admin.AccessConfig{})
	env.api.Post("/v1/entities/notes/records", tenantA, map[string]any{"title": "a", "pinned": true})
	resp := env.api.Get("/v1/entities/notes/export", tenantA)
	if resp.Code != http.StatusOK {
		t.Fatalf("status %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content type %q", ct)
	}
	lines := strings.Split(strings.TrimSpace(resp.Body.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "1,a,") {
		t.Fatalf("csv = %q", resp.Body.String())
	}
}

func TestAnonymousRejected(t *testing.T) {
	env := newEnv(t, admin.AccessConfig{Enabled: true, IsLoggedIn: admin.LoggedIn})
	if resp := env.api.Get("/v1/entities/notes/records", tenantA); resp.Code != http.StatusUnauthorized {
		t.Fatalf("status %d", resp.Code)
	}
	resp := env.api.Get("/v1/entities")
	if got := decode[[]schema.Entity](t, resp.Body.Bytes()); len(got) != 0 {
		t.Fatalf("entities = %+v", got)
	}
}

func TestParseFilters(t *testing.T) {
	got := parseFilters([]string{"since:2024-01-01", "broken", "at:12:30"})
	want := map[string]string{"since": "2024-01-01", "at": "12:30"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("filters mismatch (-want +got):\n%s", diff)
	}
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
