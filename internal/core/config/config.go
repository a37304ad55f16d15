// Package config provides configuration management for antiseptic.
package config

import (
	"os"
	"path/filepath"
	"time"
)

const appName = "antiseptic"

// Strategies accepted by the strategy key.
const (
	StrategyRegex = "regex"
	StrategyGuess = "guess"
)

// Config holds the settings shared by all commands.
type Config struct {
	DisabledRules  []string
	UpdateServer   string
	RulesFilename  string
	Strategy       string
	MaxAttempts    int
	RequestTimeout time.Duration
	// JournalURL is a sqlite:// or postgres:// URL. Empty disables the journal.
	JournalURL string
	// ConfigFile is the file the settings were read from, if any.
	ConfigFile string
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	data := AppDataDir()
	return &Config{
		DisabledRules:  []string{},
		UpdateServer:   "https://naglis.github.io/antiseptic/",
		RulesFilename:  filepath.Join(data, "rules.json"),
		Strategy:       StrategyRegex,
		MaxAttempts:    3,
		RequestTimeout: 10 * time.Second,
		JournalURL:     "sqlite://" + filepath.Join(data, "journal.db"),
	}
}

// ConfigDir returns the base configuration directory.
// Honors XDG_CONFIG_HOME, then the legacy XDG_CONFIG_DIR, then ~/.config.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	if dir := os.Getenv("XDG_CONFIG_DIR"); dir != "" {
		return dir
	}
	return filepath.Join(homeDir(), ".config")
}

// DataDir returns the base data directory: XDG_DATA_HOME or ~/.local/share.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir
	}
	return filepath.Join(homeDir(), ".local", "share")
}

// AppConfigDir is where antiseptic looks for config.{json,yaml,toml}.
func AppConfigDir() string {
	return filepath.Join(ConfigDir(), appName)
}

// AppDataDir holds the rules file and the journal database.
func AppDataDir() string {
	return filepath.Join(DataDir(), appName)
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}
