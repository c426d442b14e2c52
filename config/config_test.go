package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasktide.yaml")
	raw := `
server:
  addr: ":8088"
remote:
  base_url: "https://rows.example.com"
  ping_interval: 5s
cache:
  capacity: 8
log_level: debug
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8088" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Remote.BaseURL != "https://rows.example.com" {
		t.Errorf("BaseURL = %q", cfg.Remote.BaseURL)
	}
	if cfg.Remote.PingInterval.Std() != 5*time.Second {
		t.Errorf("PingInterval = %v", cfg.Remote.PingInterval)
	}
	if cfg.Cache.Capacity != 8 {
		t.Errorf("Capacity = %d", cfg.Cache.Capacity)
	}
	// Unset keys keep their defaults
	if cfg.Cache.TTL.Std() != time.Minute {
		t.Errorf("TTL = %v", cfg.Cache.TTL)
	}
	if cfg.DataDir != "./data" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
