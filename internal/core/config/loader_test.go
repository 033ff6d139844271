package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
proxy:
  base_url: http://proxy.internal
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("default backend = %q, want sqlite", cfg.Storage.Backend)
	}
	if cfg.Storage.SQLitePath != "addrsearch.db" {
		t.Errorf("default sqlite path = %q", cfg.Storage.SQLitePath)
	}
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_PROXY_URL", "http://proxy.staging.internal")
	path := writeConfig(t, `
proxy:
  base_url: ${TEST_PROXY_URL}
storage:
  backend: redis
  redis:
    url: redis://localhost:6379/0
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Proxy.BaseURL != "http://proxy.staging.internal" {
		t.Errorf("base_url = %q, env not expanded", cfg.Proxy.BaseURL)
	}
	if cfg.Storage.Backend != "redis" {
		t.Errorf("backend = %q", cfg.Storage.Backend)
	}
}

func TestLoadRejectsMissingProxyURL(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a missing proxy base_url")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
