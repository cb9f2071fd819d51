package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	ormdriver "github.com/faciam-dev/goquent/orm/driver"
	"github.com/faciam-dev/goquent/orm/query"
	"golang.org/x/crypto/bcrypt"
)

// ErrUserExists is returned by Create for a taken username.
var ErrUserExists = errors.New("user already exists")

// User represents an application user. Role holds a comma separated role
// list.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         string
	TenantID     string
}

// Roles splits Role into role names.
func (u *User) Roles() []string {
	var out []string
	for _, r := range strings.Split(u.Role, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

// UserRepo provides access to the {prefix}users table.
type UserRepo struct {
	DB           *sql.DB
	Dialect      ormdriver.Dialect
	TablePrefix  string
	PasswordCost int
}

func (r *UserRepo) table() string { return r.TablePrefix + "users" }

func (r *UserRepo) ready() error {
	if r == nil || r.DB == nil {
		return fmt.Errorf("repo not initialized")
	}
	return nil
}

func (r *UserRepo) scan(ctx context.Context, q *query.Query) ([]User, error) {
	sqlStr, args, err := q.Build()
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.TenantID); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *UserRepo) selectUsers(ctx context.Context) *query.Query {
	return query.New(r.DB, r.table(), r.Dialect).
		WithContext(ctx).
		Select("id", "username", "password_hash", "role", "tenant_id")
}

// GetByUsername returns a user by name, or nil when there is none.
func (r *UserRepo) GetByUsername(ctx context.Context, name string) (*User, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	users, err := r.scan(ctx, r.selectUsers(ctx).Where("username", name).Limit(1))
	if err != nil || len(users) == 0 {
		return nil, err
	}
	return &users[0], nil
}

// List returns every user ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]User, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	return r.scan(ctx, r.selectUsers(ctx).OrderBy("id", "asc"))
}

// Create hashes password and inserts the user.
func (r *UserRepo) Create(ctx context.Context, u *User, password string) error {
	if err := r.ready(); err != nil {
		return err
	}
	existing, err := r.GetByUsername(ctx, u.Username)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrUserExists
	}
	cost := r.PasswordCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	id, err := query.New(r.DB, r.table(), r.Dialect).
		WithContext(ctx).
		InsertGetId(map[string]any{
			"username":      u.Username,
			"password_hash": u.PasswordHash,
			"role":          u.Role,
			"tenant_id":     u.TenantID,
		})
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}

// Authenticate returns the user when password matches.
func (r *UserRepo) Authenticate(ctx context.Context, name, password string) (*User, error) {
	u, err := r.GetByUsername(ctx, name)
	if err != nil || u == nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, nil
	}
	return u, nil
}
