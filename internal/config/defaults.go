// Package config handles lockrun configuration.
package config

const (
	// ConfigFileName is the name of the config file.
	ConfigFileName = "config.yml"
	// DefaultDirName is the per-user config directory name under ~/.config.
	DefaultDirName = "lockrun"

	// CurrentVersion is the current config schema version.
	CurrentVersion = 1

	// ModeShared requests a shared (read) lock.
	ModeShared = "shared"
	// ModeExclusive requests an exclusive (write) lock.
	ModeExclusive = "exclusive"

	// DefaultMode is the lock mode used when none is configured.
	DefaultMode = ModeExclusive
	// DefaultPollInterval is how often a timed acquire retries, as a
	// duration string.
	DefaultPollInterval = "250ms"
	// DefaultRefreshInterval is how often the watch TUI re-probes, as a
	// duration string.
	DefaultRefreshInterval = "2s"
)

// ValidModes lists the accepted lock mode strings.
var ValidModes = []string{ModeShared, ModeExclusive}
