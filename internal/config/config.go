package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	ormdriver "github.com/faciam-dev/goquent/orm/driver"
	"github.com/faciam-dev/goquent/orm/query"
	"github.com/joho/godotenv"

	pkgutil "github.com/faciam-dev/gadmin/pkg/util"
)

// Config holds the server settings read from the environment.
type Config struct {
	Driver         string
	DSN            string
	MongoDatabase  string
	Addr           string
	TablePrefix    string
	AutoMigrate    bool
	EntitiesFile   string
	PluginDir      string
	UploadRoot     string
	S3Bucket       string
	S3Prefix       string
	AuthEnabled    bool
	JWTSecret      string
	TokenTTL       time.Duration
	EventsConfig   string
	RBACPolicyFile string
	SelectListTTL  time.Duration
	ReaperInterval time.Duration
	AllowedOrigins []string
	LogFormat      string
	LogLevel       string
}

// Load reads the optional dotenv files and then the environment. Missing
// dotenv files are ignored; variables already set win over file values.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	c := &Config{
		Driver:         pkgutil.GetEnv("DB_DRIVER", ""),
		DSN:            pkgutil.GetEnv("DB_DSN", ""),
		MongoDatabase:  pkgutil.GetEnv("MONGO_DATABASE", "admin"),
		Addr:           pkgutil.GetEnv("ADDR", ":8080"),
		TablePrefix:    pkgutil.GetEnv("TABLE_PREFIX", "admin_"),
		EntitiesFile:   pkgutil.GetEnv("ENTITIES_FILE", "entities.yaml"),
		PluginDir:      pkgutil.GetEnv("PLUGIN_DIR", ""),
		UploadRoot:     pkgutil.GetEnv("UPLOAD_ROOT", "uploads"),
		S3Bucket:       pkgutil.GetEnv("S3_BUCKET", ""),
		S3Prefix:       pkgutil.GetEnv("S3_PREFIX", ""),
		JWTSecret:      pkgutil.GetEnv("JWT_SECRET", ""),
		EventsConfig:   pkgutil.GetEnv("EVENTS_CONFIG", ""),
		RBACPolicyFile: pkgutil.GetEnv("RBAC_POLICY_FILE", ""),
		AllowedOrigins: splitAndTrim(pkgutil.GetEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		LogFormat:      pkgutil.GetEnv("LOG_FORMAT", "text"),
		LogLevel:       pkgutil.GetEnv("LOG_LEVEL", "info"),
	}
	var err error
	if c.AuthEnabled, err = strconv.ParseBool(pkgutil.GetEnv("AUTH_ENABLED", "true")); err != nil {
		return nil, fmt.Errorf("AUTH_ENABLED: %w", err)
	}
	if c.AutoMigrate, err = strconv.ParseBool(pkgutil.GetEnv("AUTO_MIGRATE", "false")); err != nil {
		return nil, fmt.Errorf("AUTO_MIGRATE: %w", err)
	}
	durations := []struct {
		key, def string
		dst      *time.Duration
	}{
		{"TOKEN_TTL", "15m", &c.TokenTTL},
		{"SELECT_LIST_TTL", "30s", &c.SelectListTTL},
		{"REAPER_INTERVAL", "1m", &c.ReaperInterval},
	}
	for _, d := range durations {
		if *d.dst, err = time.ParseDuration(pkgutil.GetEnv(d.key, d.def)); err != nil {
			return nil, fmt.Errorf("%s: %w", d.key, err)
		}
	}
	if c.Driver == "" && c.DSN != "" {
		if c.Driver, err = pkgutil.DetectDriver(c.DSN); err != nil {
			return nil, fmt.Errorf("DB_DSN: %w", err)
		}
	}
	return c, nil
}

// Validate reports settings the server cannot start without. A missing
// driver is detected from the DSN scheme.
func (c *Config) Validate() error {
	if c.DSN == "" {
		return errors.New("DB_DSN is required")
	}
	if c.Driver == "" {
		d, err := pkgutil.DetectDriver(c.DSN)
		if err != nil {
			return fmt.Errorf("DB_DSN: %w", err)
		}
		c.Driver = d
	}
	if c.AuthEnabled && c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required when AUTH_ENABLED is set")
	}
	return nil
}

// T prefixes the given table name with the configured prefix.
func (c *Config) T(name string) string {
	return c.TablePrefix + name
}

// CheckPrefix verifies that tables with the configured prefix exist in the
// connected database. It returns an error if none are found.
func CheckPrefix(ctx context.Context, db *sql.DB, dialect ormdriver.Dialect, prefix string) error {
	q := query.New(db, "information_schema.tables", dialect).
		SelectRaw("COUNT(*) AS cnt").
		WhereRaw("table_name LIKE :p", map[string]any{"p": prefix + "%"}).
		WithContext(ctx)

	var res struct{ Cnt int }
	if err := q.First(&res); err != nil {
		return err
	}
	if res.Cnt == 0 {
		return fmt.Errorf("no tables with prefix %q found; run migrations or set TABLE_PREFIX correctly", prefix)
	}
	return nil
}

func splitAndTrim(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
