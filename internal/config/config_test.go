package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Database.Host != "localhost" {
		t.Errorf("default db host = %q, want localhost", cfg.Database.Host)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("default db port = %d, want 5432", cfg.Database.Port)
	}
	if cfg.Database.MinConnections != 1 || cfg.Database.MaxConnections != 10 {
		t.Errorf("default pool bounds = %d/%d, want 1/10",
			cfg.Database.MinConnections, cfg.Database.MaxConnections)
	}
	if cfg.Metrics.Port != 9090 {
		t.Errorf("default metrics port = %d, want 9090", cfg.Metrics.Port)
	}
	if cfg.Metrics.UpdateInterval != 15*time.Second {
		t.Errorf("default interval = %v, want 15s", cfg.Metrics.UpdateInterval)
	}
	if cfg.Metrics.SpendWindow != "30d" || cfg.Metrics.RequestWindow != "24h" || cfg.Metrics.ErrorWindow != "1h" {
		t.Errorf("default windows = %s/%s/%s, want 30d/24h/1h",
			cfg.Metrics.SpendWindow, cfg.Metrics.RequestWindow, cfg.Metrics.ErrorWindow)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("LITELLM_DB_HOST", "db.internal")
	t.Setenv("LITELLM_DB_PORT", "5433")
	t.Setenv("DB_MAX_CONNECTIONS", "20")
	t.Setenv("METRICS_UPDATE_INTERVAL", "60")
	t.Setenv("METRICS_SPEND_WINDOW", "7d")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Database.Host != "db.internal" {
		t.Errorf("db host = %q, want db.internal", cfg.Database.Host)
	}
	if cfg.Database.Port != 5433 {
		t.Errorf("db port = %d, want 5433", cfg.Database.Port)
	}
	if cfg.Database.MaxConnections != 20 {
		t.Errorf("max connections = %d, want 20", cfg.Database.MaxConnections)
	}
	if cfg.Metrics.UpdateInterval != 60*time.Second {
		t.Errorf("interval = %v, want 60s", cfg.Metrics.UpdateInterval)
	}
	if cfg.Metrics.SpendWindow != "7d" {
		t.Errorf("spend window = %q, want 7d", cfg.Metrics.SpendWindow)
	}
}

func TestEnvIntervalDurationSyntax(t *testing.T) {
	t.Setenv("METRICS_UPDATE_INTERVAL", "90s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Metrics.UpdateInterval != 90*time.Second {
		t.Errorf("interval = %v, want 90s", cfg.Metrics.UpdateInterval)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
database:
  host: pg.example.com
  max_connections: 5
metrics:
  spend_window: 14d
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Host != "pg.example.com" {
		t.Errorf("db host = %q, want pg.example.com", cfg.Database.Host)
	}
	if cfg.Database.MaxConnections != 5 {
		t.Errorf("max connections = %d, want 5", cfg.Database.MaxConnections)
	}
	if cfg.Metrics.SpendWindow != "14d" {
		t.Errorf("spend window = %q, want 14d", cfg.Metrics.SpendWindow)
	}
	// Untouched values keep defaults.
	if cfg.Database.Port != 5432 {
		t.Errorf("db port = %d, want default 5432", cfg.Database.Port)
	}
}

func TestEnvWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("database:\n  host: from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LITELLM_DB_HOST", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Host != "from-env" {
		t.Errorf("db host = %q, want from-env", cfg.Database.Host)
	}
}

func TestEnvMalformedValuesRejected(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"LITELLM_DB_PORT", "54x2"},
		{"DB_MIN_CONNECTIONS", "one"},
		{"DB_MAX_CONNECTIONS", "abc"},
		{"METRICS_PORT", "9.9"},
		{"METRICS_UPDATE_INTERVAL", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(""); err == nil {
				t.Errorf("Load() with %s=%q succeeded, want error", tt.key, tt.value)
			}
		})
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad spend window", func(c *Config) { c.Metrics.SpendWindow = "30x" }},
		{"bad request window", func(c *Config) { c.Metrics.RequestWindow = "0h" }},
		{"bad error window", func(c *Config) { c.Metrics.ErrorWindow = "soon" }},
		{"zero max connections", func(c *Config) { c.Database.MaxConnections = 0 }},
		{"min above max", func(c *Config) { c.Database.MinConnections = 11 }},
		{"negative min", func(c *Config) { c.Database.MinConnections = -1 }},
		{"zero interval", func(c *Config) { c.Metrics.UpdateInterval = 0 }},
		{"bad metrics port", func(c *Config) { c.Metrics.Port = 70000 }},
		{"empty host", func(c *Config) { c.Database.Host = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
