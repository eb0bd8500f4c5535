package marketapi

import (
	"errors"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds the store's runtime settings. Fields are populated from a TOML
// file and then optionally overridden by MARKETCTL_* environment variables.
type Config struct {
	DBMigrationsPath string `toml:"db_migrations_path"`
	DBPath           string `toml:"db_path"`
	LogLevel         string `toml:"log_level"`
}

func DefaultConfig() Config {
	return Config{
		DBMigrationsPath: "file://db/migrations",
		DBPath:           "markets.db",
		LogLevel:         "info",
	}
}

// LoadConfig reads a TOML configuration file at path (skipped when path is
// empty), merges it on top of the defaults, applies MARKETCTL_* environment
// overrides, and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}
	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.DBMigrationsPath, "MARKETCTL_DB_MIGRATIONS_PATH")
	setStr(&cfg.DBPath, "MARKETCTL_DB_PATH")
	setStr(&cfg.LogLevel, "MARKETCTL_LOG_LEVEL")
}

func setStr(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("db_path must be set")
	}
	if c.DBMigrationsPath == "" {
		return errors.New("db_migrations_path must be set")
	}
	return nil
}
