package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadExpandsEnvAndAppliesDefaults(t *testing.T) {
	t.Setenv("TEST_DB_URL", "postgres://localhost/outpost")

	path := writeConfig(t, `
database:
  url: ${TEST_DB_URL}
social:
  client_id: cid
publish:
  max_retries: 3
  initial_delay: 100ms
  multiplier: 2
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.URL != "postgres://localhost/outpost" {
		t.Errorf("database url = %q, env expansion failed", cfg.Database.URL)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want default 8080", cfg.Server.Port)
	}
	if cfg.Social.BaseURL == "" || cfg.Social.TokenURL == "" {
		t.Error("provider URL defaults not applied")
	}
	if cfg.Publish.InitialDelay.Std() != 100*time.Millisecond {
		t.Errorf("initial_delay = %v, duration string not parsed", cfg.Publish.InitialDelay.Std())
	}
	batch := cfg.Sync.Batch()
	if batch.MaxItems != 20 {
		t.Errorf("sync max_items = %d, want default 20", batch.MaxItems)
	}
	if batch.InterCallDelay != 2*time.Second {
		t.Errorf("inter_call_delay = %v, want default 2s", batch.InterCallDelay)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestRetryConfigPolicy(t *testing.T) {
	c := RetryConfig{
		MaxRetries:   4,
		InitialDelay: Duration(50 * time.Millisecond),
		MaxDelay:     Duration(5 * time.Second),
		Multiplier:   3,
	}
	p := c.Policy()
	if p.MaxRetries != 4 || p.InitialDelay != 50*time.Millisecond || p.Multiplier != 3 {
		t.Errorf("policy = %+v, yaml values not applied", p)
	}

	// Unset fields fall back to the package defaults.
	p = RetryConfig{}.Policy()
	if p.MaxRetries == 0 || p.InitialDelay == 0 || p.Multiplier == 0 {
		t.Errorf("policy = %+v, defaults not applied", p)
	}
}
