package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingReturnsDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if time.Duration(cfg.PollInterval) != 2*time.Second || !cfg.Launchpad {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.LogLevel = "debug"
	cfg.FetchTimeout = Duration(5 * time.Second)
	cfg.AddRecent("set.json")
	if err := cfg.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.LogLevel != "debug" || got.Performance != "set.json" {
		t.Errorf("loaded %+v", got)
	}
	if time.Duration(got.FetchTimeout) != 5*time.Second {
		t.Errorf("fetch timeout = %v", time.Duration(got.FetchTimeout))
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".config", "solo-orchestra")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	data := `{"headless": true, "pollInterval": 750}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Headless {
		t.Error("headless not read")
	}
	if time.Duration(cfg.PollInterval) != 750*time.Millisecond {
		t.Errorf("poll interval = %v", time.Duration(cfg.PollInterval))
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log level = %q, want default", cfg.LogLevel)
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".config", "solo-orchestra")
	os.MkdirAll(dir, 0755)
	os.WriteFile(filepath.Join(dir, "config.json"), []byte("{nope"), 0644)

	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestAddRecent(t *testing.T) {
	cfg := DefaultConfig()
	for i := 0; i < MaxRecent+2; i++ {
		cfg.AddRecent(string(rune('a' + i)))
	}
	cfg.AddRecent("c")

	if len(cfg.Recent) != MaxRecent {
		t.Fatalf("recent = %v", cfg.Recent)
	}
	if cfg.Recent[0] != "c" || cfg.Performance != "c" {
		t.Errorf("front = %q, performance = %q", cfg.Recent[0], cfg.Performance)
	}
	seen := map[string]bool{}
	for _, r := range cfg.Recent {
		if seen[r] {
			t.Errorf("duplicate %q in %v", r, cfg.Recent)
		}
		seen[r] = true
	}
}
