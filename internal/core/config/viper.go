package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration using viper.
// CLI flags > environment > config file > defaults precedence; flags are
// applied by the caller on the returned struct.
// An empty configPath searches AppConfigDir for config.{json,yaml,toml}.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults matching DefaultConfig
	def := DefaultConfig()
	v.SetDefault("disabled_rules", def.DisabledRules)
	v.SetDefault("update_server", def.UpdateServer)
	v.SetDefault("rules_filename", def.RulesFilename)
	v.SetDefault("strategy", def.Strategy)
	v.SetDefault("max_attempts", def.MaxAttempts)
	v.SetDefault("request_timeout", def.RequestTimeout.String())
	v.SetDefault("journal_url", def.JournalURL)

	// Bind environment variables with ANTISEPTIC_ prefix
	v.SetEnvPrefix("ANTISEPTIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(AppConfigDir())
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{
		DisabledRules:  ruleList(v, "disabled_rules"),
		UpdateServer:   strings.TrimSpace(v.GetString("update_server")),
		RulesFilename:  v.GetString("rules_filename"),
		Strategy:       strings.ToLower(v.GetString("strategy")),
		MaxAttempts:    v.GetInt("max_attempts"),
		RequestTimeout: v.GetDuration("request_timeout"),
		JournalURL:     v.GetString("journal_url"),
		ConfigFile:     v.ConfigFileUsed(),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks strategy, attempt budget, timeout and update server.
func validateConfig(cfg *Config) error {
	switch cfg.Strategy {
	case StrategyRegex, StrategyGuess:
	default:
		return fmt.Errorf("strategy must be %q or %q, got %q", StrategyRegex, StrategyGuess, cfg.Strategy)
	}
	if cfg.MaxAttempts <= 0 {
		return fmt.Errorf("max_attempts must be positive, got %d", cfg.MaxAttempts)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.RequestTimeout)
	}
	if cfg.UpdateServer == "" {
		return fmt.Errorf("update_server must not be empty")
	}
	if cfg.RulesFilename == "" {
		return fmt.Errorf("rules_filename must not be empty")
	}
	return nil
}

// ruleList reads a list of rule ids. A single string (the environment form)
// is split on commas and whitespace; list items from a config file are kept
// whole, so an id may contain a comma.
func ruleList(v *viper.Viper, key string) []string {
	if s, ok := v.Get(key).(string); ok {
		return strings.FieldsFunc(s, func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		})
	}
	out := []string{}
	for _, item := range v.GetStringSlice(key) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
