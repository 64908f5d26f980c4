// Package config loads the service configuration from a YAML file,
// applying defaults for anything the file omits.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"docbay/internal/constants"
	"docbay/internal/logger"
)

// SeedConfig holds the locations of the startup data files.
type SeedConfig struct {
	DataDir       string `yaml:"data_dir"`
	ProtectedPath string `yaml:"protected_path"`
}

// AuditConfig holds user-configurable audit log settings.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}

// Config holds all application configuration.
type Config struct {
	Port          int         `yaml:"port"`
	IdentityField string      `yaml:"identity_field"`
	RulesPath     string      `yaml:"rules_path"`
	Seed          SeedConfig  `yaml:"seed"`
	Audit         AuditConfig `yaml:"audit"`
	Throttle      bool        `yaml:"throttle"`
	LogLevel      string      `yaml:"log_level"`
	LogFile       string      `yaml:"log_file"`
}

// ApplyDefaults fills zero-valued fields with constant defaults.
func (cfg *Config) ApplyDefaults() {
	if cfg.Port == 0 {
		cfg.Port = constants.DefaultPort
	}
	if cfg.IdentityField == "" {
		cfg.IdentityField = constants.DefaultIdentityField
	}
	if cfg.RulesPath == "" {
		cfg.RulesPath = constants.DefaultRulesPath
	}
	if cfg.Seed.DataDir == "" {
		cfg.Seed.DataDir = constants.DefaultSeedDir
	}
	if cfg.Seed.ProtectedPath == "" {
		cfg.Seed.ProtectedPath = constants.DefaultProtectedSeedPath
	}
	if cfg.Audit.DBPath == "" {
		cfg.Audit.DBPath = constants.DefaultAuditDBPath
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = constants.DefaultLogLevel
	}
}

// validate checks that all configurable values are within acceptable ranges.
func (cfg *Config) validate() error {
	var errs []string

	if cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, "port must be between 1 and 65535")
	}
	switch strings.ToUpper(cfg.LogLevel) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		errs = append(errs, "log_level must be one of DEBUG, INFO, WARN, ERROR")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// LogEffectiveValues logs all effective configuration values at startup.
func (cfg *Config) LogEffectiveValues(log *logger.Logger) {
	log.Info("config: port=%d", cfg.Port)
	log.Info("config: identity_field=%s", cfg.IdentityField)
	log.Info("config: rules_path=%s", cfg.RulesPath)
	log.Info("config: seed.data_dir=%s", cfg.Seed.DataDir)
	log.Info("config: seed.protected_path=%s", cfg.Seed.ProtectedPath)
	log.Info("config: audit.enabled=%t", cfg.Audit.Enabled)
	log.Info("config: audit.db_path=%s", cfg.Audit.DBPath)
	log.Info("config: throttle=%t", cfg.Throttle)
	log.Info("config: log_level=%s", cfg.LogLevel)
}

// LoadConfig reads the configuration at path. A missing file is not an
// error; the service runs on defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg.ApplyDefaults()
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.ApplyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
