package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"docbay/internal/constants"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docbay.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

// =============================================================================
// Defaults Tests
// =============================================================================

func TestApplyDefaults_FillsAllZeroFields(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()

	if cfg.Port != constants.DefaultPort {
		t.Errorf("port: got %d, want %d", cfg.Port, constants.DefaultPort)
	}
	if cfg.IdentityField != constants.DefaultIdentityField {
		t.Errorf("identity_field: got %s", cfg.IdentityField)
	}
	if cfg.RulesPath != constants.DefaultRulesPath {
		t.Errorf("rules_path: got %s", cfg.RulesPath)
	}
	if cfg.Seed.DataDir != constants.DefaultSeedDir {
		t.Errorf("seed.data_dir: got %s", cfg.Seed.DataDir)
	}
	if cfg.Seed.ProtectedPath != constants.DefaultProtectedSeedPath {
		t.Errorf("seed.protected_path: got %s", cfg.Seed.ProtectedPath)
	}
	if cfg.Audit.DBPath != constants.DefaultAuditDBPath {
		t.Errorf("audit.db_path: got %s", cfg.Audit.DBPath)
	}
	if cfg.LogLevel != constants.DefaultLogLevel {
		t.Errorf("log_level: got %s", cfg.LogLevel)
	}
	if cfg.Audit.Enabled || cfg.Throttle {
		t.Error("audit and throttle should stay off by default")
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{Port: 8080, LogLevel: "DEBUG"}
	cfg.ApplyDefaults()

	if cfg.Port != 8080 {
		t.Errorf("port: got %d, want 8080", cfg.Port)
	}
	if cfg.LogLevel != "DEBUG" {
		t.Errorf("log_level: got %s, want DEBUG", cfg.LogLevel)
	}
}

// =============================================================================
// LoadConfig Tests
// =============================================================================

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Port != constants.DefaultPort {
		t.Errorf("port: got %d, want %d", cfg.Port, constants.DefaultPort)
	}
}

func TestLoadConfig_ReadsFileAndFillsGaps(t *testing.T) {
	path := writeConfig(t, `
port: 9090
throttle: true
audit:
  enabled: true
  db_path: /tmp/audit.db
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("port: got %d, want 9090", cfg.Port)
	}
	if !cfg.Throttle {
		t.Error("throttle should be enabled")
	}
	if !cfg.Audit.Enabled || cfg.Audit.DBPath != "/tmp/audit.db" {
		t.Errorf("audit config: %+v", cfg.Audit)
	}
	if cfg.IdentityField != constants.DefaultIdentityField {
		t.Errorf("identity_field default not applied: got %s", cfg.IdentityField)
	}
}

func TestLoadConfig_MalformedYAMLFails(t *testing.T) {
	path := writeConfig(t, "port: [not a number\n")

	if _, err := LoadConfig(path); err == nil {
		t.Error("malformed YAML should fail")
	}
}

// =============================================================================
// Validation Tests
// =============================================================================

func TestLoadConfig_RejectsInvalidPort(t *testing.T) {
	path := writeConfig(t, "port: 70000\n")

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("out-of-range port should fail validation")
	}
	if !strings.Contains(err.Error(), "port") {
		t.Errorf("error should mention port: %v", err)
	}
}

func TestLoadConfig_RejectsInvalidLogLevel(t *testing.T) {
	path := writeConfig(t, "log_level: CHATTY\n")

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("unknown log level should fail validation")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level: %v", err)
	}
}
