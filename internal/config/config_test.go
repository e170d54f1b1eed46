package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Heading != DefaultHeading || cfg.Refresh != DefaultRefresh {
		t.Errorf("defaults not applied: %+v", cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("permissions = %o, want 600", perm)
	}
}

func TestLoadNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
heading: Work
include_time: true
log_level: LOUD
sources:
  - id: team
    url: https://example.com/team.ics
  - name: personal
    url: ./personal.ics
    output: ./personal.org
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Heading != "Work" || !cfg.IncludeTime {
		t.Errorf("fields not loaded: %+v", cfg)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("log level = %q, want %q", cfg.LogLevel, DefaultLogLevel)
	}
	if cfg.Listen != DefaultListen || cfg.CacheDir != DefaultCacheDir {
		t.Errorf("missing values not defaulted: %+v", cfg)
	}
	if len(cfg.Sources) != 2 {
		t.Fatalf("sources = %d, want 2", len(cfg.Sources))
	}
	if cfg.Sources[1].Key() != "personal" {
		t.Errorf("Key() = %q, want %q", cfg.Sources[1].Key(), "personal")
	}
}

func TestLoadRejectsDuplicateSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
sources:
  - id: a
    url: one.ics
  - id: a
    url: two.ics
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("Load() error = %v, want duplicate id error", err)
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("sources: [\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() error = nil, want parse error")
	}
}

func TestEmptyPath(t *testing.T) {
	if _, err := Load(""); !errors.Is(err, ErrEmptyPath) {
		t.Errorf("Load(\"\") error = %v", err)
	}
	if err := Save("", DefaultConfig()); !errors.Is(err, ErrEmptyPath) {
		t.Errorf("Save(\"\") error = %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Heading = "Family"
	cfg.Sources = append(cfg.Sources, SourceConfig{ID: "fam", URL: "webcal://example.com/fam.ics"})
	cfg.BasicAuth = &BasicAuthConfig{Username: "u", Password: "p"}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Heading != "Family" || len(loaded.Sources) != 1 || loaded.BasicAuth == nil {
		t.Errorf("loaded = %+v", loaded)
	}
}
