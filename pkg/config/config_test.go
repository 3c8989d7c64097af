package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/identinet/demoshop/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "demoshop.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
address: ":8080"
data_service:
  base_url: https://vds.example.com
  api_key: secret
broker:
  heartbeat_seconds: 5
  timeout_seconds: 120
nonce_expiry_seconds: 180
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if cfg.Address != ":8080" {
		t.Fatalf("unexpected address %s", cfg.Address)
	}
	if cfg.DataService.BaseURL != "https://vds.example.com" {
		t.Fatalf("unexpected base url %s", cfg.DataService.BaseURL)
	}
	if cfg.Broker.TimeoutSeconds != 120 {
		t.Fatalf("unexpected timeout %d", cfg.Broker.TimeoutSeconds)
	}
	if cfg.NonceExpirySeconds != 180 {
		t.Fatalf("unexpected nonce expiry %d", cfg.NonceExpirySeconds)
	}
}

func TestLoadMissingFileWithEnv(t *testing.T) {
	t.Setenv("DEMOSHOP_ADDRESS", ":9090")
	t.Setenv("VDS_BASE_URL", "https://vds.example.com")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if cfg.Address != ":9090" {
		t.Fatalf("unexpected address %s", cfg.Address)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
address: ":8080"
data_service:
  base_url: https://file.example.com
`)
	t.Setenv("VDS_BASE_URL", "https://env.example.com")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if cfg.DataService.BaseURL != "https://env.example.com" {
		t.Fatalf("environment must win, got %s", cfg.DataService.BaseURL)
	}
}

func TestLoadRejectsIncompleteConfig(t *testing.T) {
	path := writeConfig(t, `
address: ":8080"
`)
	if _, err := config.Load(path); err == nil {
		t.Fatalf("expected a validation error without a data service url")
	}
}

func TestLoadRejectsInvalidURL(t *testing.T) {
	path := writeConfig(t, `
address: ":8080"
data_service:
  base_url: not-a-url
`)
	if _, err := config.Load(path); err == nil {
		t.Fatalf("expected a validation error for a malformed url")
	}
}
