package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if resolved != path {
		t.Errorf("resolved=%q, want %q", resolved, path)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port=%d, want 7070", cfg.Server.Port)
	}
	if cfg.Server.Host != "localhost" {
		t.Errorf("host=%q, want default localhost", cfg.Server.Host)
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("missing config should error")
	}
}
