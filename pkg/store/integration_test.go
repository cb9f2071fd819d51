//go:build integration
// +build integration

package store_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/faciam-dev/gadmin/pkg/store"
)

// exercise runs the same scoped CRUD round trip against any backend.
func exercise(t *testing.T, s store.Store, table, pk string) {
	t.Helper()
	ctx := context.Background()
	a := &store.Scope{Column: "tenant_id", Value: "A"}
	var ids []string
	for i, name := range []string{"Alpha", "beta", "Gamma"} {
		id, err := s.Insert(ctx, table, pk, map[string]any{"tenant_id": "A", "name": name, "qty": i + 1})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		ids = append(ids, id)
	}
	if _, err := s.Insert(ctx, table, pk, map[string]any{"tenant_id": "B", "name": "alpha", "qty": 9}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	q := store.Query{Table: table, Scope: a, Conditions: []store.Condition{store.Contains("name", "A")}, OrderBy: []store.Order{{Column: "qty", Desc: true}}}
	recs, err := s.Find(ctx, q)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got := names(recs); len(got) != 3 || got[0] != "Gamma" {
		t.Fatalf("names = %v", got)
	}
	if n, err := s.Count(ctx, q); err != nil || n != 3 {
		t.Fatalf("count = %d, %v", n, err)
	}

	key := store.Key{Table: table, Column: pk, ID: ids[1], Scope: a}
	if err := s.Update(ctx, key, map[string]any{"name": "Beta"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	rec, err := s.Get(ctx, key, nil)
	if err != nil || rec["name"] != "Beta" {
		t.Fatalf("get = %v, %v", rec, err)
	}
	hidden := key
	hidden.Scope = &store.Scope{Column: "tenant_id", Value: "B"}
	if err := s.Delete(ctx, hidden); !errors.Is(err, store.ErrNoRecord) {
		t.Fatalf("cross-tenant delete err = %v", err)
	}
	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, key, nil); !errors.Is(err, store.ErrNoRecord) {
		t.Fatalf("get after delete err = %v", err)
	}
}

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()
	container, err := func() (c *postgres.PostgresContainer, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%v", r)
			}
		}()
		return postgres.Run(ctx, "postgres:16", postgres.WithDatabase("testdb"), postgres.WithUsername("user"), postgres.WithPassword("pass"))
	}()
	if err != nil {
		t.Skipf("container: %v", err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("dsn: %v", err)
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if _, err := db.ExecContext(ctx, `CREATE TABLE items (id SERIAL PRIMARY KEY, tenant_id TEXT NOT NULL, name TEXT NOT NULL, qty INT NOT NULL)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	exercise(t, store.NewSQL(db, "postgres"), "items", "id")
}

func TestMySQLStore(t *testing.T) {
	ctx := context.Background()
	container, err := func() (c *mysql.MySQLContainer, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%v", r)
			}
		}()
		return mysql.Run(ctx, "mysql:8.4", mysql.WithDatabase("testdb"), mysql.WithUsername("user"), mysql.WithPassword("pass"))
	}()
	if err != nil {
		t.Skipf("container start: %v", err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "parseTime=true")
	if err != nil {
		t.Fatalf("dsn: %v", err)
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if _, err := db.ExecContext(ctx, `CREATE TABLE items (id BIGINT AUTO_INCREMENT PRIMARY KEY, tenant_id VARCHAR(64) NOT NULL, name VARCHAR(255) NOT NULL, qty INT NOT NULL)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	exercise(t, store.NewSQL(db, "mysql"), "items", "id")
}

func TestMongoStore(t *testing.T) {
	ctx := context.Background()
	container, err := func() (c *mongodb.MongoDBContainer, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%v", r)
			}
		}()
		return mongodb.Run(ctx, "mongo:7")
	}()
	if err != nil {
		t.Skipf("container: %v", err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("uri: %v", err)
	}
	cli, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer cli.Disconnect(ctx)
	exercise(t, store.NewMongo(cli, "appdb"), "items", "_id")
}
