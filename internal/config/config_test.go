package config_test

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/twiced-technology-gmbh/lockrun/internal/config"
)

func TestNewDefaultValidates(t *testing.T) {
	t.Parallel()

	cfg := config.NewDefault()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
	if cfg.Defaults.Mode != config.ModeExclusive {
		t.Errorf("default mode = %q, want exclusive", cfg.Defaults.Mode)
	}
	if !cfg.Defaults.Wait {
		t.Error("default config should wait")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.yml")
	cfg := config.NewDefault()
	cfg.SetPath(path)
	cfg.Locks = []config.LockConfig{
		{Name: "build", Path: "/tmp/build.lock"},
		{Name: "deploy", Path: "/tmp/deploy.lock"},
	}

	if err := cfg.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := config.Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded.Locks) != 2 {
		t.Fatalf("got %d locks, want 2", len(loaded.Locks))
	}
	if got := loaded.LockByName("deploy"); got == nil || got.Path != "/tmp/deploy.lock" {
		t.Errorf("LockByName(deploy) = %+v", got)
	}
	entries := loaded.Entries()
	if len(entries) != 2 || entries[0].Name != "build" {
		t.Errorf("Entries() = %+v", entries)
	}
}

func TestLoadMissing(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "config.yml"))
	if !errors.Is(err, config.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestLoadNewerVersion(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yml")
	cfg := config.NewDefault()
	cfg.SetPath(path)
	cfg.Version = 99
	if err := cfg.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	_, err := config.Load(path)
	if !errors.Is(err, config.ErrInvalid) {
		t.Errorf("got %v, want ErrInvalid", err)
	}
	if err == nil || !strings.Contains(err.Error(), "newer than supported") {
		t.Errorf("error %v should mention version skew", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unsupported version", func(c *config.Config) { c.Version = 99 }},
		{"bad mode", func(c *config.Config) { c.Defaults.Mode = "write" }},
		{"bad timeout", func(c *config.Config) { c.Defaults.Timeout = "soon" }},
		{"bad poll interval", func(c *config.Config) { c.Defaults.PollInterval = "-" }},
		{"bad refresh interval", func(c *config.Config) { c.TUI.RefreshInterval = "2 sec" }},
		{"lock without name", func(c *config.Config) {
			c.Locks = []config.LockConfig{{Path: "/tmp/a.lock"}}
		}},
		{"lock without path", func(c *config.Config) {
			c.Locks = []config.LockConfig{{Name: "a"}}
		}},
		{"duplicate lock names", func(c *config.Config) {
			c.Locks = []config.LockConfig{
				{Name: "a", Path: "/tmp/a.lock"},
				{Name: "a", Path: "/tmp/b.lock"},
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.NewDefault()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, config.ErrInvalid) {
				t.Errorf("got %v, want ErrInvalid", err)
			}
		})
	}
}

func TestDurations(t *testing.T) {
	t.Parallel()

	cfg := config.NewDefault()
	if got := cfg.TimeoutDuration(); got != 0 {
		t.Errorf("empty timeout = %v, want 0", got)
	}
	cfg.Defaults.Timeout = "30s"
	if got := cfg.TimeoutDuration(); got != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", got)
	}
	if got := cfg.PollIntervalDuration(); got != 250*time.Millisecond {
		t.Errorf("poll interval = %v, want 250ms", got)
	}
	cfg.TUI.RefreshInterval = ""
	if got := cfg.RefreshIntervalDuration(); got != 2*time.Second {
		t.Errorf("refresh interval fallback = %v, want 2s", got)
	}
}
