package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/twiced-technology-gmbh/lockrun/internal/lockedfile"
	"github.com/twiced-technology-gmbh/lockrun/internal/lockset"
)

// Sentinel errors.
var (
	ErrNotFound = errors.New("no lockrun config found (run 'lockrun init' to create one)")
	ErrInvalid  = errors.New("invalid config")
)

// Config is the lockrun configuration.
type Config struct {
	Version  int            `yaml:"version"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Locks    []LockConfig   `yaml:"locks,omitempty"`
	TUI      TUIConfig      `yaml:"tui,omitempty"`

	// path is the absolute path to the config file (not serialized).
	path string `yaml:"-"`
}

// DefaultsConfig holds the acquire defaults applied when flags are absent.
type DefaultsConfig struct {
	Mode         string `yaml:"mode" json:"mode"`                                        // shared | exclusive
	Wait         bool   `yaml:"wait" json:"wait"`                                        // block until granted
	Timeout      string `yaml:"timeout,omitempty" json:"timeout,omitempty"`              // duration string, empty = no limit
	PollInterval string `yaml:"poll_interval,omitempty" json:"poll_interval,omitempty"`  // retry cadence for timed acquires
}

// LockConfig names a lock file so commands can refer to it by name.
type LockConfig struct {
	Name string `yaml:"name" json:"name"`
	Path string `yaml:"path" json:"path"`
}

// TUIConfig holds watch-TUI display settings.
type TUIConfig struct {
	RefreshInterval string `yaml:"refresh_interval,omitempty" json:"refresh_interval,omitempty"`
}

// Path returns the absolute path to the config file.
func (c *Config) Path() string {
	return c.path
}

// SetPath sets the config file path on the config.
func (c *Config) SetPath(path string) {
	c.path = path
}

// NewDefault creates a Config with default values.
func NewDefault() *Config {
	return &Config{
		Version: CurrentVersion,
		Defaults: DefaultsConfig{
			Mode:         DefaultMode,
			Wait:         true,
			PollInterval: DefaultPollInterval,
		},
		TUI: TUIConfig{RefreshInterval: DefaultRefreshInterval},
	}
}

// DefaultPath returns the path to ~/.config/lockrun/config.yml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", DefaultDirName, ConfigFileName), nil
}

// Entries returns the configured locks as lockset entries, in order.
func (c *Config) Entries() []lockset.Entry {
	entries := make([]lockset.Entry, len(c.Locks))
	for i, l := range c.Locks {
		entries[i] = lockset.Entry{Name: l.Name, Path: l.Path}
	}
	return entries
}

// LockByName returns the configured lock with the given name, or nil.
func (c *Config) LockByName(name string) *LockConfig {
	for i := range c.Locks {
		if c.Locks[i].Name == name {
			return &c.Locks[i]
		}
	}
	return nil
}

// TimeoutDuration parses the default timeout. Returns 0 (no limit) when
// the field is empty.
func (c *Config) TimeoutDuration() time.Duration {
	return durationOrZero(c.Defaults.Timeout)
}

// PollIntervalDuration parses the acquire retry cadence, falling back to
// DefaultPollInterval when unset.
func (c *Config) PollIntervalDuration() time.Duration {
	if c.Defaults.PollInterval == "" {
		return durationOrZero(DefaultPollInterval)
	}
	return durationOrZero(c.Defaults.PollInterval)
}

// RefreshIntervalDuration parses the TUI refresh cadence, falling back to
// DefaultRefreshInterval when unset.
func (c *Config) RefreshIntervalDuration() time.Duration {
	if c.TUI.RefreshInterval == "" {
		return durationOrZero(DefaultRefreshInterval)
	}
	return durationOrZero(c.TUI.RefreshInterval)
}

// durationOrZero parses a duration string that Validate has already
// checked; unparseable values collapse to 0.
func durationOrZero(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// Validate checks the config for errors.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("%w: unsupported version %d (expected %d)", ErrInvalid, c.Version, CurrentVersion)
	}
	if !slices.Contains(ValidModes, c.Defaults.Mode) {
		return fmt.Errorf("%w: defaults.mode %q (valid: shared, exclusive)", ErrInvalid, c.Defaults.Mode)
	}
	for _, field := range []struct{ name, value string }{
		{"defaults.timeout", c.Defaults.Timeout},
		{"defaults.poll_interval", c.Defaults.PollInterval},
		{"tui.refresh_interval", c.TUI.RefreshInterval},
	} {
		if field.value == "" {
			continue
		}
		if _, err := time.ParseDuration(field.value); err != nil {
			return fmt.Errorf("%w: %s %q: %w", ErrInvalid, field.name, field.value, err)
		}
	}
	return c.validateLocks()
}

func (c *Config) validateLocks() error {
	seen := make(map[string]bool, len(c.Locks))
	for _, l := range c.Locks {
		if l.Name == "" {
			return fmt.Errorf("%w: lock name is required", ErrInvalid)
		}
		if seen[l.Name] {
			return fmt.Errorf("%w: duplicate lock name %q", ErrInvalid, l.Name)
		}
		seen[l.Name] = true
		if l.Path == "" {
			return fmt.Errorf("%w: lock %q: path is required", ErrInvalid, l.Name)
		}
	}
	return nil
}

// Save writes the config to its file, creating parent directories as
// needed. The write itself runs under an exclusive advisory lock so
// concurrent lockrun invocations do not interleave config bytes.
func (c *Config) Save() error {
	const dirMode = 0o750
	if err := os.MkdirAll(filepath.Dir(c.path), dirMode); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return lockedfile.Write(c.path, data)
}

// Load reads and validates a config from the given file path.
func Load(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	data, err := lockedfile.Read(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.path = absPath

	if err := migrate(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
