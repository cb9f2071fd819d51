package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/faciam-dev/gadmin/internal/auth"
	"github.com/faciam-dev/gadmin/internal/config"
	"github.com/faciam-dev/gadmin/pkg/migrator"
)

const entitiesYAML = `version: "1.0"
entities:
  - name: notes
    fields:
      - {name: id, type: int64, primary_key: true}
      - {name: tenant_id, type: string, tenant_ref: true}
      - {name: title, type: string}
`

// seed runs after the admin tables are migrated.
var seed = []string{
	`CREATE TABLE notes (id INTEGER PRIMARY KEY AUTOINCREMENT, tenant_id TEXT NOT NULL, title TEXT NOT NULL)`,
	`INSERT INTO admin_roles VALUES (1, 'reader')`,
	`INSERT INTO admin_role_policies VALUES (1, 1, '/v1/entities/:entity/records', 'GET')`,
	`INSERT INTO notes (tenant_id, title) VALUES ('A', 'hello'), ('B', 'other')`,
}

func openApp(t *testing.T, authEnabled bool) *App {
	t.Helper()
	dir := t.TempDir()
	dsn := filepath.Join(dir, "admin.db")
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatal(err)
	}
	m, err := migrator.New("sqlite3", "admin_")
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Up(context.Background(), db, 0); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, s := range seed {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("%s: %v", s, err)
		}
	}
	db.Close()

	entities := filepath.Join(dir, "entities.yaml")
	if err := os.WriteFile(entities, []byte(entitiesYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{
		Driver:         "sqlite3",
		DSN:            dsn,
		TablePrefix:    "admin_",
		AutoMigrate:    true,
		EntitiesFile:   entities,
		UploadRoot:     filepath.Join(dir, "uploads"),
		AuthEnabled:    authEnabled,
		JWTSecret:      "secret",
		TokenTTL:       time.Minute,
		AllowedOrigins: []string{"http://localhost:5173"},
	}
	a, err := Open(context.Background(), cfg, zaptest.NewLogger(t).Sugar())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	a.Users.PasswordCost = bcrypt.MinCost
	return a
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", "A")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, h http.Handler, user string) string {
	t.Helper()
	w := do(t, h, http.MethodPost, "/v1/auth/login", "", map[string]string{"username": user, "password": "pw"})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", user, w.Code, w.Body.String())
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	return out.AccessToken
}

func TestAuthDisabledServesRecords(t *testing.T) {
	a := openApp(t, false)
	h := New(a).Adapter()
	w := do(t, h, http.MethodGet, "/v1/entities/notes/records", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "hello") || strings.Contains(w.Body.String(), "other") {
		t.Fatalf("body = %s", w.Body.String())
	}
	if w := do(t, h, http.MethodPost, "/v1/auth/login", "", map[string]string{}); w.Code != http.StatusNotFound {
		t.Fatalf("login without auth: %d", w.Code)
	}
}

func TestLoginAndRoles(t *testing.T) {
	a := openApp(t, true)
	ctx := context.Background()
	for _, u := range []*auth.User{
		{Username: "alice", Role: "admin", TenantID: "A"},
		{Username: "bob", Role: "reader", TenantID: "A"},
		{Username: "carol", Role: "guest", TenantID: "A"},
	} {
		if err := a.Users.Create(ctx, u, "pw"); err != nil {
			t.Fatalf("create %s: %v", u.Username, err)
		}
	}
	h := New(a).Adapter()

	if w := do(t, h, http.MethodGet, "/v1/entities/notes/records", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: %d", w.Code)
	}
	alice := login(t, h, "alice")
	if w := do(t, h, http.MethodPost, "/v1/entities/notes/records", alice, map[string]any{"title": "new"}); w.Code != http.StatusCreated {
		t.Fatalf("admin create: %d %s", w.Code, w.Body.String())
	}
	bob := login(t, h, "bob")
	if w := do(t, h, http.MethodGet, "/v1/entities/notes/records", bob, nil); w.Code != http.StatusOK {
		t.Fatalf("reader list: %d %s", w.Code, w.Body.String())
	}
	if w := do(t, h, http.MethodDelete, "/v1/entities/notes/records/1", bob, nil); w.Code != http.StatusForbidden {
		t.Fatalf("reader delete: %d", w.Code)
	}
	carol := login(t, h, "carol")
	if w := do(t, h, http.MethodGet, "/v1/entities/notes/records", carol, nil); w.Code != http.StatusForbidden {
		t.Fatalf("guest list: %d", w.Code)
	}
	if w := do(t, h, http.MethodPost, "/v1/auth/refresh", alice, nil); w.Code != http.StatusOK {
		t.Fatalf("refresh: %d %s", w.Code, w.Body.String())
	}

	w := do(t, h, http.MethodGet, "/v1/entities/notes/records/3/history", alice, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"action":"create"`) {
		t.Fatalf("history: %d %s", w.Code, w.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	a := openApp(t, false)
	h := New(a).Adapter()
	do(t, h, http.MethodGet, "/v1/entities", "", nil)
	w := do(t, h, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "api_requests_total") {
		t.Fatalf("metrics: %d", w.Code)
	}
}
