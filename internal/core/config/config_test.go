package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/solatis/thomson/internal/types"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Transform.MaxDepth != types.DefaultMaxDepth {
			t.Errorf("expected max_depth %d, got %d", types.DefaultMaxDepth, cfg.Transform.MaxDepth)
		}
		if cfg.Transform.Pretty {
			t.Errorf("expected pretty false")
		}
		if cfg.Store.URL != "" {
			t.Errorf("expected empty store url, got %s", cfg.Store.URL)
		}
		if cfg.Serve.Host != "0.0.0.0" {
			t.Errorf("expected host 0.0.0.0, got %s", cfg.Serve.Host)
		}
		if cfg.Serve.Port != 50051 {
			t.Errorf("expected port 50051, got %d", cfg.Serve.Port)
		}
		if cfg.Serve.HTTPPort != 8080 {
			t.Errorf("expected http_port 8080, got %d", cfg.Serve.HTTPPort)
		}
		if cfg.Serve.RequestTimeout != 30*time.Second {
			t.Errorf("expected timeout 30s, got %v", cfg.Serve.RequestTimeout)
		}
		if cfg.Serve.MaxDocumentSize != types.MaxDocumentSize {
			t.Errorf("expected max_document_size %d, got %d", types.MaxDocumentSize, cfg.Serve.MaxDocumentSize)
		}
		if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
			t.Errorf("expected info/json logging, got %s/%s", cfg.Log.Level, cfg.Log.Format)
		}
	})

	t.Run("environment override", func(t *testing.T) {
		t.Setenv("THOMSON_SERVE_PORT", "9999")
		t.Setenv("THOMSON_SERVE_HOST", "127.0.0.1")
		t.Setenv("THOMSON_TRANSFORM_MAX_DEPTH", "16")

		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Serve.Port != 9999 {
			t.Errorf("expected port 9999, got %d", cfg.Serve.Port)
		}
		if cfg.Serve.Host != "127.0.0.1" {
			t.Errorf("expected host 127.0.0.1, got %s", cfg.Serve.Host)
		}
		if cfg.Transform.MaxDepth != 16 {
			t.Errorf("expected max_depth 16, got %d", cfg.Transform.MaxDepth)
		}
	})

	t.Run("toml config file", func(t *testing.T) {
		path := writeConfig(t, "thomson.toml", `
[transform]
pretty = true

[store]
url = "sqlite://history.db"

[serve]
request_timeout = "5s"
`)
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if !cfg.Transform.Pretty {
			t.Errorf("expected pretty true")
		}
		if cfg.Store.URL != "sqlite://history.db" {
			t.Errorf("expected sqlite url, got %s", cfg.Store.URL)
		}
		if cfg.Serve.RequestTimeout != 5*time.Second {
			t.Errorf("expected timeout 5s, got %v", cfg.Serve.RequestTimeout)
		}
	})

	t.Run("missing config file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		if err == nil {
			t.Error("expected error for missing config file")
		}
	})

	t.Run("invalid port range", func(t *testing.T) {
		t.Setenv("THOMSON_SERVE_PORT", "70000")

		_, err := LoadConfig("")
		if err == nil {
			t.Error("expected error for port > 65535")
		}
	})

	t.Run("clashing ports", func(t *testing.T) {
		t.Setenv("THOMSON_SERVE_HTTP_PORT", "50051")

		_, err := LoadConfig("")
		if err == nil {
			t.Error("expected error for equal port and http_port")
		}
	})

	t.Run("depth above ceiling", func(t *testing.T) {
		t.Setenv("THOMSON_TRANSFORM_MAX_DEPTH", "5000")

		_, err := LoadConfig("")
		if err == nil {
			t.Error("expected error for max_depth above ceiling")
		}
	})

	t.Run("invalid negative values", func(t *testing.T) {
		t.Setenv("THOMSON_SERVE_MAX_CONNECTIONS", "-1")

		_, err := LoadConfig("")
		if err == nil {
			t.Error("expected error for negative max_connections")
		}
	})

	t.Run("unsupported store scheme", func(t *testing.T) {
		t.Setenv("THOMSON_STORE_URL", "mysql://localhost/db")

		_, err := LoadConfig("")
		if err == nil {
			t.Error("expected error for mysql store url")
		}
	})
}

func TestValidate_Defaults(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Errorf("Validate(DefaultConfig()) = %v, want nil", err)
	}
}
