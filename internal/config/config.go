package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"tangle/internal/artifacts"
	"tangle/internal/store"
)

// getConfigDir returns the config directory path.
// Uses TANGLE_CONFIG_DIR env var if set, otherwise defaults to ~/.tangle.
// This is computed dynamically to support test isolation.
func getConfigDir() string {
	if dir := os.Getenv("TANGLE_CONFIG_DIR"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".tangle")
}

// ConfigDir returns the configuration directory path
func ConfigDir() string {
	return getConfigDir()
}

// SettingsPath returns the settings file path
func SettingsPath() string {
	return filepath.Join(getConfigDir(), "settings.yaml")
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir() error {
	return os.MkdirAll(getConfigDir(), 0700)
}

// InitConfigDir initializes the config directory with default files
func InitConfigDir() error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create default settings file if not exists (using template)
	settingsPath := SettingsPath()
	if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
		if err := os.WriteFile(settingsPath, artifacts.GlobalSettings, 0600); err != nil {
			return fmt.Errorf("failed to create default settings: %w", err)
		}
	}

	return nil
}

// Settings represents global tangle settings
type Settings struct {
	Backend           string `yaml:"backend"`             // Storage backend: sqlite or json (default: sqlite)
	DataPath          string `yaml:"data_path"`           // Data file path, empty = config_dir default
	ForkWindowMinutes int    `yaml:"fork_window_minutes"` // Inactivity window before edits fork (minutes), 0 = use default
	WriteTimeoutMS    int    `yaml:"write_timeout_ms"`    // Store mutation timeout (ms), 0 = use default
	BusyTimeout       int    `yaml:"busy_timeout"`        // SQLite busy_timeout (ms), 0 = use default
	LogLevel          string `yaml:"log_level"`           // Log level: trace, debug, info, warn, off (default: off)
}

// ApplyDefaults fills zero-value fields with their defaults.
func (s *Settings) ApplyDefaults() {
	if s.Backend == "" {
		s.Backend = "sqlite"
	}
	if s.DataPath == "" {
		if s.Backend == "json" {
			s.DataPath = filepath.Join(getConfigDir(), "tangle.json")
		} else {
			s.DataPath = filepath.Join(getConfigDir(), "tangle.db")
		}
	}
}

// ForkWindow returns the configured fork window as a duration.
func (s *Settings) ForkWindow() time.Duration {
	if s.ForkWindowMinutes <= 0 {
		return store.DefaultForkWindow
	}
	return time.Duration(s.ForkWindowMinutes) * time.Minute
}

// WriteTimeout returns the configured write timeout as a duration.
// Zero means the store default.
func (s *Settings) WriteTimeout() time.Duration {
	if s.WriteTimeoutMS <= 0 {
		return 0
	}
	return time.Duration(s.WriteTimeoutMS) * time.Millisecond
}

// loadDefaultSettings parses default settings from embedded artifact.
func loadDefaultSettings() Settings {
	var settings Settings
	if err := yaml.Unmarshal(artifacts.GlobalSettings, &settings); err != nil {
		panic("failed to parse embedded settings: " + err.Error())
	}
	settings.ApplyDefaults()
	return settings
}

// LoadSettings loads the settings from ~/.tangle/settings.yaml.
// Always reads from file to get latest config. Falls back to embedded defaults if file doesn't exist.
func LoadSettings() (*Settings, error) {
	data, err := os.ReadFile(SettingsPath())
	if err != nil {
		if os.IsNotExist(err) {
			settings := loadDefaultSettings()
			return &settings, nil
		}
		return nil, err
	}

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, err
	}
	settings.ApplyDefaults()

	return &settings, nil
}

// SaveSettings saves the settings to ~/.tangle/settings.yaml
func SaveSettings(settings *Settings) error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	data, err := yaml.Marshal(settings)
	if err != nil {
		return err
	}
	// Add header comment (same as template header)
	header := []byte("# Tangle settings\n# See: tangle --help\n\n")
	return os.WriteFile(SettingsPath(), append(header, data...), 0600)
}

// ApplyLogLevel configures logrus from the settings' log level.
// "off", "none", and empty disable output entirely.
func ApplyLogLevel(level string) {
	level = strings.ToLower(level)
	if level == "" || level == "off" || level == "none" {
		logrus.SetOutput(io.Discard)
		return
	}
	logrus.SetOutput(os.Stderr)
	switch level {
	case "trace":
		logrus.SetLevel(logrus.TraceLevel)
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	default:
		logrus.SetLevel(logrus.DebugLevel)
	}
}
