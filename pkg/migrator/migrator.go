// Package migrator creates and upgrades the tables the admin backend keeps
// for itself: users, roles and policies, the audit log and the event DLQ.
package migrator

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
)

//go:embed sql
var files embed.FS

// defaultPrefix is the table prefix written in the embedded SQL.
const defaultPrefix = "admin_"

// Migration holds the SQL of one schema version.
type Migration struct {
	Version int
	Name    string
	UpSQL   string
	DownSQL string
}

// Migrator applies the embedded migrations of one driver.
type Migrator struct {
	migrations  []Migration
	TablePrefix string
	Driver      string
}

func dirFor(driver string) (string, error) {
	switch driver {
	case "mysql":
		return "mysql", nil
	case "postgres", "pgx":
		return "postgres", nil
	case "sqlite3", "sqlite":
		return "sqlite", nil
	}
	return "", fmt.Errorf("migrator: unsupported driver %q", driver)
}

// New returns a Migrator for driver whose tables carry prefix.
func New(driver, prefix string) (*Migrator, error) {
	dir, err := dirFor(driver)
	if err != nil {
		return nil, err
	}
	migs, err := load(files, path.Join("sql", dir))
	if err != nil {
		return nil, err
	}
	if prefix != defaultPrefix {
		for i := range migs {
			migs[i].UpSQL = strings.ReplaceAll(migs[i].UpSQL, defaultPrefix, prefix)
			migs[i].DownSQL = strings.ReplaceAll(migs[i].DownSQL, defaultPrefix, prefix)
		}
	}
	return &Migrator{migrations: migs, TablePrefix: prefix, Driver: driver}, nil
}

// load reads NNNN_name.up.sql and the matching down files of dir.
func load(fsys fs.FS, dir string) ([]Migration, error) {
	ups, err := fs.Glob(fsys, path.Join(dir, "*.up.sql"))
	if err != nil {
		return nil, err
	}
	sort.Strings(ups)
	migs := make([]Migration, 0, len(ups))
	for i, up := range ups {
		base := strings.TrimSuffix(path.Base(up), ".up.sql")
		num, name, ok := strings.Cut(base, "_")
		v, err := strconv.Atoi(num)
		if !ok || err != nil {
			return nil, fmt.Errorf("migrator: bad file name %s", up)
		}
		if v != i+1 {
			return nil, fmt.Errorf("migrator: %s: expected version %d", up, i+1)
		}
		upSQL, err := fs.ReadFile(fsys, up)
		if err != nil {
			return nil, err
		}
		downSQL, err := fs.ReadFile(fsys, path.Join(dir, base+".down.sql"))
		if err != nil {
			return nil, err
		}
		migs = append(migs, Migration{Version: v, Name: name, UpSQL: string(upSQL), DownSQL: string(downSQL)})
	}
	return migs, nil
}

// Migrations lists the known versions in order.
func (m *Migrator) Migrations() []Migration { return m.migrations }

// Latest is the highest known version.
func (m *Migrator) Latest() int { return len(m.migrations) }

func (m *Migrator) versionTable() string {
	tbl := m.TablePrefix + "schema_version"
	if m.Driver == "postgres" || m.Driver == "pgx" {
		return pq.QuoteIdentifier(tbl)
	}
	return "`" + tbl + "`"
}

func (m *Migrator) placeholder() string {
	if m.Driver == "postgres" || m.Driver == "pgx" {
		return "$1"
	}
	return "?"
}

func (m *Migrator) ensureVersionTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (version INT NOT NULL PRIMARY KEY, applied_at TIMESTAMP NOT NULL)", m.versionTable())) // #nosec G201 -- table name derived from trusted prefix
	return err
}

// Current returns the applied version, creating the version table when
// missing.
func (m *Migrator) Current(ctx context.Context, db *sql.DB) (int, error) {
	if err := m.ensureVersionTable(ctx, db); err != nil {
		return 0, err
	}
	var v sql.NullInt64
	if err := db.QueryRowContext(ctx, "SELECT MAX(version) FROM "+m.versionTable()).Scan(&v); err != nil { // #nosec G202 -- table name derived from trusted prefix
		return 0, err
	}
	if !v.Valid {
		return 0, nil
	}
	return int(v.Int64), nil
}

// Up migrates the schema up to target. target=0 means latest.
func (m *Migrator) Up(ctx context.Context, db *sql.DB, target int) error {
	if target == 0 {
		target = m.Latest()
	}
	if target > m.Latest() {
		return fmt.Errorf("migrator: unknown version %d", target)
	}
	cur, err := m.Current(ctx, db)
	if err != nil {
		return err
	}
	for i := cur; i < target; i++ {
		mig := m.migrations[i]
		err := m.inTx(ctx, db, func(tx *sql.Tx) error {
			if err := execAll(ctx, tx, mig.UpSQL); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, fmt.Sprintf("INSERT INTO %s (version, applied_at) VALUES (%s, %s)", m.versionTable(), strconv.Itoa(mig.Version), m.placeholder()), time.Now().UTC())
			return err
		})
		if err != nil {
			return fmt.Errorf("migrate up %d_%s: %w", mig.Version, mig.Name, err)
		}
	}
	return nil
}

// Down migrates the schema down to target version.
func (m *Migrator) Down(ctx context.Context, db *sql.DB, target int) error {
	cur, err := m.Current(ctx, db)
	if err != nil {
		return err
	}
	for i := cur - 1; i >= target && i >= 0; i-- {
		mig := m.migrations[i]
		err := m.inTx(ctx, db, func(tx *sql.Tx) error {
			if err := execAll(ctx, tx, mig.DownSQL); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE version = %d", m.versionTable(), mig.Version))
			return err
		})
		if err != nil {
			return fmt.Errorf("migrate down %d_%s: %w", mig.Version, mig.Name, err)
		}
	}
	return nil
}

func (m *Migrator) inTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback: %v: %w", rbErr, err)
		}
		return err
	}
	return tx.Commit()
}

// SQLForRange returns SQL statements needed to migrate from->to.
func (m *Migrator) SQLForRange(from, to int) []string {
	var res []string
	if to > from {
		for i := from; i < to; i++ {
			res = append(res, splitSQL(m.migrations[i].UpSQL)...)
		}
	} else if to < from {
		for i := from - 1; i >= to; i-- {
			res = append(res, splitSQL(m.migrations[i].DownSQL)...)
		}
	}
	return res
}

func splitSQL(src string) []string {
	var (
		res       []string
		buf       strings.Builder
		inSingle  bool
		inDouble  bool
		dollarTag string
	)
	for i := 0; i < len(src); i++ {
		c := src[i]
		if dollarTag != "" {
			if strings.HasPrefix(src[i:], dollarTag) {
				buf.WriteString(dollarTag)
				i += len(dollarTag) - 1
				dollarTag = ""
				continue
			}
			buf.WriteByte(c)
			continue
		}
		switch c {
		case '\'':
			inSingle = !inSingle
		case '"':
			inDouble = !inDouble
		case '$':
			if !inSingle && !inDouble {
				j := i + 1
				for j < len(src) && ((src[j] >= 'a' && src[j] <= 'z') || (src[j] >= 'A' && src[j] <= 'Z') || (src[j] >= '0' && src[j] <= '9') || src[j] == '_') {
					j++
				}
				if j < len(src) && src[j] == '$' {
					dollarTag = src[i : j+1]
					buf.WriteString(dollarTag)
					i = j
					continue
				}
			}
		case ';':
			if !inSingle && !inDouble {
				s := strings.TrimSpace(buf.String())
				if s != "" {
					res = append(res, s)
				}
				buf.Reset()
				continue
			}
		}
		buf.WriteByte(c)
	}
	if s := strings.TrimSpace(buf.String()); s != "" {
		res = append(res, s)
	}
	return res
}

func execAll(ctx context.Context, tx *sql.Tx, src string) error {
	for _, stmt := range splitSQL(src) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}
