package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaultsAndEnvFile(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, ".env")
	if err := os.WriteFile(env, []byte("DB_DSN=file:admin.db\nSELECT_LIST_TTL=5s\nALLOWED_ORIGINS= https://a.example , https://b.example\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"DB_DSN", "DB_DRIVER", "SELECT_LIST_TTL", "ALLOWED_ORIGINS", "AUTH_ENABLED", "JWT_SECRET"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Setenv("AUTH_ENABLED", "false")

	c, err := Load(env, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.DSN != "file:admin.db" || c.Driver != "sqlite3" {
		t.Fatalf("dsn %q driver %q", c.DSN, c.Driver)
	}
	if c.SelectListTTL != 5*time.Second || c.TokenTTL != 15*time.Minute {
		t.Fatalf("durations %v %v", c.SelectListTTL, c.TokenTTL)
	}
	if diff := cmp.Diff([]string{"https://a.example", "https://b.example"}, c.AllowedOrigins); diff != "" {
		t.Fatalf("origins mismatch (-want +got):\n%s", diff)
	}
	if c.T("users") != "admin_users" {
		t.Fatalf("T = %s", c.T("users"))
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	c.AuthEnabled = true
	if err := c.Validate(); err == nil {
		t.Fatalf("missing JWT secret accepted")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("TOKEN_TTL", "soon")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoadRejectsBadBool(t *testing.T) {
	t.Setenv("AUTO_MIGRATE", "sometimes")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error")
	}
	t.Setenv("AUTO_MIGRATE", "1")
	t.Setenv("PLUGIN_DIR", "/opt/plugins")
	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !c.AutoMigrate || c.PluginDir != "/opt/plugins" {
		t.Fatalf("auto migrate %v plugin dir %q", c.AutoMigrate, c.PluginDir)
	}
}
