package util

import (
	"fmt"
	"net/url"
	"strings"

	ormdriver "github.com/faciam-dev/goquent/orm/driver"
)

// UnsupportedDialect is returned when a driver has no goquent dialect. Mongo
// records never reach the query builder, so it only keeps callers total.
type UnsupportedDialect struct{ Driver string }

func (UnsupportedDialect) Placeholder(int) string { return "?" }

func (UnsupportedDialect) QuoteIdent(ident string) string { return ident }

// DetectDriver returns the driver name for dsn. URL schemes mysql,
// postgres/postgresql, sqlite/sqlite3/file and mongodb/mongodb+srv are
// recognized, as are go-sql-driver DSNs (user:pass@tcp(host)/db) and bare
// *.db / *.sqlite paths.
func DetectDriver(dsn string) (string, error) {
	if dsn == "" {
		return "", fmt.Errorf("empty dsn")
	}
	if strings.Contains(dsn, "@tcp(") || strings.Contains(dsn, "@unix(") {
		return "mysql", nil
	}
	if !strings.Contains(dsn, "://") && !strings.HasPrefix(dsn, "file:") {
		switch {
		case strings.HasSuffix(dsn, ".db"), strings.HasSuffix(dsn, ".sqlite"), dsn == ":memory:":
			return "sqlite3", nil
		}
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "postgres", "postgresql":
		return "postgres", nil
	case "mongodb", "mongodb+srv":
		return "mongo", nil
	case "mysql":
		return "mysql", nil
	case "sqlite", "sqlite3", "file":
		return "sqlite3", nil
	}
	return "", fmt.Errorf("unknown scheme: %q", u.Scheme)
}

// DialectFromDriver returns the goquent dialect of a driver.
func DialectFromDriver(d string) ormdriver.Dialect {
	switch d {
	case "postgres", "pgx":
		return ormdriver.PostgresDialect{}
	case "mysql", "sqlite3", "sqlite":
		// sqlite accepts backtick identifiers and ? placeholders.
		return ormdriver.MySQLDialect{}
	}
	return UnsupportedDialect{Driver: d}
}
