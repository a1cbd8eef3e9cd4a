package config

import (
	"path/filepath"
	"testing"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	// Redirect the user config dir into the test's temp space.
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	m, err := NewManager()
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestLoadMissingConfig(t *testing.T) {
	m := newTestManager(t)

	if m.Exists() {
		t.Error("expected no config file yet")
	}
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.URL != "" || cfg.Token != "" {
		t.Errorf("expected empty config, got %+v", cfg)
	}
}

func TestSaveAndLoad(t *testing.T) {
	m := newTestManager(t)

	cfg := &Config{
		URL:    "https://example.com",
		Token:  "secret",
		Org:    "my-org",
		Editor: "code -w",
	}
	if err := m.Save(cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if !m.Exists() {
		t.Error("expected config file to exist after save")
	}
	if got, want := m.GetConfigPath(), filepath.Join(m.Dir(), "config.json"); got != want {
		t.Errorf("expected config path %s, got %s", want, got)
	}

	loaded, err := m.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("expected %+v, got %+v", cfg, loaded)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("SCRIPTPAD_URL", "https://override.example.com")
	t.Setenv("SCRIPTPAD_ORG", "env-org")

	cfg := &Config{URL: "https://file.example.com", Org: "file-org", Token: "kept"}
	cfg.ApplyEnv()

	if cfg.URL != "https://override.example.com" {
		t.Errorf("expected env URL to win, got %q", cfg.URL)
	}
	if cfg.Org != "env-org" {
		t.Errorf("expected env org to win, got %q", cfg.Org)
	}
	if cfg.Token != "kept" {
		t.Errorf("expected file token kept, got %q", cfg.Token)
	}
}
