package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWithMissingFile(t *testing.T) {
	t.Setenv("RESERVALOCK_WEBHOOK_TOKEN", "secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want :8080", cfg.ListenAddr)
	}
	if cfg.RemoteLock.BufferMin != 30 {
		t.Errorf("BufferMin = %d, want 30", cfg.RemoteLock.BufferMin)
	}
	if cfg.SnapshotMonths != 24 {
		t.Errorf("SnapshotMonths = %d, want 24", cfg.SnapshotMonths)
	}
	if cfg.Report.LocalTTL() != time.Hour {
		t.Errorf("LocalTTL = %s, want 1h", cfg.Report.LocalTTL())
	}
	if cfg.Report.RemoteTTL() != 12*time.Hour {
		t.Errorf("RemoteTTL = %s, want 12h", cfg.Report.RemoteTTL())
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
listen_addr: ":9000"
webhook_token: "from-file"
remotelock:
  base_url: "https://lock.example.com"
  buffer_min: 15
report:
  local_ttl_seconds: 60
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RESERVALOCK_WEBHOOK_TOKEN", "from-env")
	t.Setenv("RESERVALOCK_BUFFER_MIN", "45")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ListenAddr != ":9000" {
		t.Errorf("ListenAddr = %q, want :9000", cfg.ListenAddr)
	}
	if cfg.RemoteLock.BaseURL != "https://lock.example.com" {
		t.Errorf("RemoteLock.BaseURL = %q", cfg.RemoteLock.BaseURL)
	}
	// env wins over file
	if cfg.WebhookToken != "from-env" {
		t.Errorf("WebhookToken = %q, want from-env", cfg.WebhookToken)
	}
	if cfg.RemoteLock.BufferMin != 45 {
		t.Errorf("BufferMin = %d, want 45", cfg.RemoteLock.BufferMin)
	}
	// file wins over defaults for untouched keys
	if cfg.Report.LocalTTLSeconds != 60 {
		t.Errorf("LocalTTLSeconds = %d, want 60", cfg.Report.LocalTTLSeconds)
	}
	if cfg.Report.RemoteTTLSeconds != 43200 {
		t.Errorf("RemoteTTLSeconds = %d, want default 43200", cfg.Report.RemoteTTLSeconds)
	}
}

func TestLoadRequiresWebhookToken(t *testing.T) {
	t.Setenv("RESERVALOCK_WEBHOOK_TOKEN", "")
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load() succeeded without a webhook token")
	}
}
