package auth

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	ormdriver "github.com/faciam-dev/goquent/orm/driver"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"
)

func TestGenerateCarriesTenantAndRoles(t *testing.T) {
	j := NewJWT("secret", time.Minute)
	tok, exp, err := j.Generate(&User{Username: "alice", TenantID: "t1", Role: "admin, editor"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := j.Validate(tok)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "alice" || claims.GetTenantID() != "t1" || claims.Issuer != Issuer || claims.ID == "" {
		t.Fatalf("claims = %+v", claims)
	}
	if !claims.ExpiresAt.Time.Equal(exp.Truncate(time.Second)) {
		t.Fatalf("expires %v, want %v", claims.ExpiresAt.Time, exp)
	}
	if diff := cmp.Diff([]string{"admin", "editor"}, claims.Roles); diff != "" {
		t.Fatalf("roles mismatch (-want +got):\n%s", diff)
	}
	if _, err := NewJWT("other", time.Minute).Validate(tok); err == nil {
		t.Fatalf("token accepted with wrong secret")
	}
}

func TestExpiredToken(t *testing.T) {
	j := NewJWT("secret", time.Minute)
	tok, _, err := j.Generate(&User{Username: "alice"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	j.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := j.Validate(tok); err == nil {
		t.Fatalf("expired token accepted")
	}
}

func TestRejectsForeignTokens(t *testing.T) {
	j := NewJWT("secret", time.Minute)
	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "someone-else",
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := j.Validate(foreign); err == nil {
		t.Fatal("token of another issuer accepted")
	}
	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    Issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte("secret"))
	if _, err := j.Validate(noSubject); err == nil {
		t.Fatal("token without subject accepted")
	}
}

func newRepo(t *testing.T) *UserRepo {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if _, err := db.Exec(`CREATE TABLE admin_users (id INTEGER PRIMARY KEY AUTOINCREMENT, username TEXT UNIQUE NOT NULL, password_hash TEXT NOT NULL, role TEXT NOT NULL, tenant_id TEXT NOT NULL)`); err != nil {
		t.Fatal(err)
	}
	return &UserRepo{DB: db, Dialect: ormdriver.MySQLDialect{}, TablePrefix: "admin_", PasswordCost: bcrypt.MinCost}
}

func TestUserRepoCreateAndAuthenticate(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	u := &User{Username: "alice", Role: "admin", TenantID: "A"}
	if err := repo.Create(ctx, u, "s3cret"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.ID == 0 || u.PasswordHash == "s3cret" {
		t.Fatalf("user = %+v", u)
	}
	if err := repo.Create(ctx, &User{Username: "alice"}, "x"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("want ErrUserExists, got %v", err)
	}
	got, err := repo.Authenticate(ctx, "alice", "s3cret")
	if err != nil || got == nil || got.TenantID != "A" {
		t.Fatalf("authenticate: %+v %v", got, err)
	}
	if got, err := repo.Authenticate(ctx, "alice", "wrong"); err != nil || got != nil {
		t.Fatalf("wrong password: %+v %v", got, err)
	}
	if got, err := repo.Authenticate(ctx, "bob", "s3cret"); err != nil || got != nil {
		t.Fatalf("unknown user: %+v %v", got, err)
	}
	users, err := repo.List(ctx)
	if err != nil || len(users) != 1 {
		t.Fatalf("list: %v %v", users, err)
	}
}

func TestUserRepoNotInit(t *testing.T) {
	repo := &UserRepo{}
	if _, err := repo.List(context.Background()); err == nil {
		t.Fatalf("expected error for uninitialized repo")
	}
}

func TestUserRepoQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := &UserRepo{DB: db, Dialect: ormdriver.PostgresDialect{}}
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("bad"))
	if _, err := repo.GetByUsername(context.Background(), "alice"); err == nil {
		t.Fatalf("expected error")
	}
}
