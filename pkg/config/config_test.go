package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.DBPath != "gateway.db" {
		t.Errorf("expected gateway.db, got %s", cfg.DBPath)
	}
	if cfg.Retry.MaxRetries != 3 {
		t.Errorf("expected 3 retries, got %d", cfg.Retry.MaxRetries)
	}
	if cfg.Retry.InitialDelay != time.Second {
		t.Errorf("expected 1s initial delay, got %v", cfg.Retry.InitialDelay)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_API_KEY", "sk-test-123")

	content := `
db_path: "test.db"
retry:
  max_retries: 5
  initial_delay: 200ms
models:
  - id: fast
    model_name: gpt-4o-mini
    api_key: ${TEST_API_KEY}
    batch_size: 3
    batch_timeout: 50ms
    max_requests_per_window: 60
    max_tokens_per_window: 90000
    window: 60s
  - id: smart
    model_name: gpt-4o
    api_key: ${TEST_API_KEY}
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DBPath != "test.db" {
		t.Errorf("expected test.db, got %s", cfg.DBPath)
	}
	if cfg.Retry.MaxRetries != 5 {
		t.Errorf("expected 5 retries, got %d", cfg.Retry.MaxRetries)
	}

	fast, ok := cfg.Model("fast")
	if !ok {
		t.Fatal("model fast not found")
	}
	if fast.APIKey != "sk-test-123" {
		t.Errorf("env not expanded: %s", fast.APIKey)
	}
	if fast.BatchSize != 3 || fast.BatchTimeout != 50*time.Millisecond {
		t.Errorf("unexpected batching config: %d %v", fast.BatchSize, fast.BatchTimeout)
	}
	if fast.Window != time.Minute {
		t.Errorf("expected 60s window, got %v", fast.Window)
	}

	// Defaults applied to the sparse model.
	smart, _ := cfg.Model("smart")
	if smart.BatchSize != 10 || smart.BatchTimeout != 100*time.Millisecond {
		t.Errorf("defaults not applied: %d %v", smart.BatchSize, smart.BatchTimeout)
	}
	if smart.Provider != "openai" {
		t.Errorf("expected openai provider default, got %s", smart.Provider)
	}
}

func TestLoadRejectsDuplicateModels(t *testing.T) {
	content := `
models:
  - id: fast
  - id: fast
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for duplicate model id")
	}
}

func TestLoadRejectsEmptyModels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("db_path: x.db\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing models")
	}
}
