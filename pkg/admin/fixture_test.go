package admin_test

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap/zaptest"

	"github.com/faciam-dev/gadmin/pkg/admin"
	"github.com/faciam-dev/gadmin/pkg/filestore"
	"github.com/faciam-dev/gadmin/pkg/session"
	"github.com/faciam-dev/gadmin/pkg/store"
	"github.com/faciam-dev/gadmin/pkg/viewmodel"
	"github.com/faciam-dev/gadmin/pkg/viewmodel/codec"
)

const entitiesYAML = `version: "1.0"
entities:
  - name: posts
    display: title
    fields:
      - {name: id, type: int64, primary_key: true, list_sort_position: 1}
      - {name: tenant_id, type: string, tenant_ref: true, list_hide_column: true}
      - {name: title, type: string, searchable: true, not_empty: true, list_sort_position: 2}
      - {name: secret, type: string, nullable: true, list_regex_mask: "[0-9]{3}$"}
      - {name: created_on, type: date, nullable: true}
      - {name: attachment, type: string, nullable: true, file_upload: true, list_hide_column: true}
    filters:
      - {name: since, kind: date, column: created_on, op: gte}
  - name: comments
    fields:
      - {name: id, type: int64, primary_key: true}
      - {name: tenant_id, type: string, tenant_ref: true, list_hide_column: true}
      - {name: comment, type: string, searchable: true}
      - {name: my_decimal, type: "decimal(10,3)"}
      - {name: is_visible, type: bool}
      - {name: post_id, type: int64, nullable: true, foreign_key: posts, select_list: posts}
`

const schema = `
CREATE TABLE posts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    tenant_id TEXT NOT NULL,
    title TEXT NOT NULL,
    secret TEXT,
    created_on DATE,
    attachment TEXT
);
CREATE TABLE comments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    tenant_id TEXT NOT NULL,
    comment TEXT NOT NULL,
    my_decimal REAL NOT NULL,
    is_visible BOOLEAN NOT NULL,
    post_id INTEGER REFERENCES posts(id)
);`

type fixture struct {
	db    *sql.DB
	svc   *admin.Service
	files *filestore.Local
	sess  session.Session
}

type recordedEvents struct{ names []string }

func (r *recordedEvents) Emit(_ context.Context, e admin.Event) {
	r.names = append(r.names, e.Name+":"+e.Entity+":"+e.ID)
}

func newFixture(t *testing.T, access admin.AccessConfig) (*fixture, *recordedEvents) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(schema); err != nil {
		t.Fatal(err)
	}

	defs, err := codec.DecodeYAML([]byte(entitiesYAML))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	reg := admin.NewRegistry()
	if err := reg.RegisterDefinitions(defs); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.SetValidator("comments", func(m *viewmodel.Model) {
		if v, err := strconv.ParseFloat(m.Values["my_decimal"], 64); err == nil && v <= 100 {
			m.AddCustomError("my_decimal", "must exceed 100")
		}
	}); err != nil {
		t.Fatal(err)
	}
	if err := reg.Check(); err != nil {
		t.Fatalf("check: %v", err)
	}

	files := filestore.NewLocal(t.TempDir())
	logger := zaptest.NewLogger(t).Sugar()
	ev := &recordedEvents{}
	svc := admin.New(admin.Config{
		Registry:      reg,
		Store:         store.NewSQL(db, "sqlite3"),
		Access:        access,
		Files:         filestore.NewReaper(files, logger),
		Events:        ev,
		Logger:        logger,
		SelectListTTL: time.Minute,
	})
	return &fixture{db: db, svc: svc, files: files, sess: session.Session{Subject: "tester"}}, ev
}

func (f *fixture) insertPost(t *testing.T, tenant, title string, createdOn *time.Time) int64 {
	t.Helper()
	var on any
	if createdOn != nil {
		on = *createdOn
	}
	res, err := f.db.Exec("INSERT INTO posts (tenant_id, title, secret, created_on) VALUES (?, ?, ?, ?)", tenant, title, "555-123", on)
	if err != nil {
		t.Fatalf("insert post: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

func (f *fixture) seedPosts(t *testing.T, tenant string, n int) {
	t.Helper()
	tx, err := f.db.Begin()
	if err != nil {
		t.Fatal(err)
	}
	stmt, err := tx.Prepare("INSERT INTO posts (tenant_id, title) VALUES (?, ?)")
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= n; i++ {
		if _, err := stmt.Exec(tenant, fmt.Sprintf("post %d", i)); err != nil {
			t.Fatal(err)
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	if err := f.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatal(err)
	}
	return n
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
