// Package config loads the application configuration and the instructions
// file holding objectives and named sequences.
//
// The configuration lives at config/config.json relative to the working
// directory unless another path is given. Instructions may be JSON or YAML,
// chosen by file extension.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"desktop_automation/domain/entities"

	"gopkg.in/yaml.v3"
)

const (
	defaultPath             = "config/config.json"
	defaultInstructionsFile = "config/instructions.json"
	defaultScreenshotDir    = "screenshots"
)

var (
	// ErrAppNotFound is returned when no configured app has the requested name
	ErrAppNotFound = errors.New("app not found in config")
	// ErrObjectiveNotFound is returned when an objective id is not in the instructions file
	ErrObjectiveNotFound = errors.New("objective not found")
)

// pathOverride, when non-empty, replaces the default config file path.
var pathOverride string

// SetPath overrides the config file path.
func SetPath(p string) { pathOverride = p }

// ResetPath clears the path override.
func ResetPath() { pathOverride = "" }

// Path returns the config file path in use.
func Path() string {
	if pathOverride != "" {
		return pathOverride
	}
	if env := os.Getenv("AUTOMATION_CONFIG"); env != "" {
		return env
	}
	return defaultPath
}

// Retry overrides the orchestrator retry policy. Zero values keep the defaults.
type Retry struct {
	MaxAttempts       int     `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	BackoffSeconds    float64 `json:"backoff_seconds,omitempty" yaml:"backoff_seconds,omitempty"`
	StabilitySeconds  float64 `json:"stability_timeout,omitempty" yaml:"stability_timeout,omitempty"`
	FocusDelaySeconds float64 `json:"focus_delay,omitempty" yaml:"focus_delay,omitempty"`
}

// Config is the top-level application configuration
type Config struct {
	Apps               []entities.AppConfig `json:"apps" yaml:"apps"`
	DefaultApp         string               `json:"default_app,omitempty" yaml:"default_app,omitempty"`
	InstructionsFile   string               `json:"instructions_file,omitempty" yaml:"instructions_file,omitempty"`
	CheckpointDir      string               `json:"checkpoint_dir,omitempty" yaml:"checkpoint_dir,omitempty"`
	JournalPath        string               `json:"journal_path,omitempty" yaml:"journal_path,omitempty"`
	ScreenshotDir      string               `json:"screenshot_dir,omitempty" yaml:"screenshot_dir,omitempty"`
	TesseractCmd       string               `json:"tesseract_cmd,omitempty" yaml:"tesseract_cmd,omitempty"`
	Retry              Retry                `json:"retry,omitempty" yaml:"retry,omitempty"`
	StrictScreenChange bool                 `json:"strict_screen_change,omitempty" yaml:"strict_screen_change,omitempty"`
}

// Load reads the config file at path, or Path() when path is empty.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}

	var cfg Config
	if err := decodeFile(path, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.InstructionsFile == "" {
		c.InstructionsFile = defaultInstructionsFile
	}
	if c.ScreenshotDir == "" {
		c.ScreenshotDir = defaultScreenshotDir
	}
	if env := os.Getenv("TESSERACT_CMD"); env != "" {
		c.TesseractCmd = env
	}
	if c.DefaultApp == "" && len(c.Apps) > 0 {
		c.DefaultApp = c.Apps[0].Name
	}
}

// App returns the configuration of the named app, matched case-insensitively.
func (c *Config) App(name string) (entities.AppConfig, error) {
	for _, app := range c.Apps {
		if strings.EqualFold(app.Name, name) {
			return app, nil
		}
	}
	return entities.AppConfig{}, fmt.Errorf("%w: %s", ErrAppNotFound, name)
}

// AppNames lists the configured app names in file order.
func (c *Config) AppNames() []string {
	names := make([]string, 0, len(c.Apps))
	for _, app := range c.Apps {
		names = append(names, app.Name)
	}
	return names
}

// decodeFile reads path and decodes it as YAML for .yaml/.yml, JSON otherwise.
func decodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, v)
	default:
		err = json.Unmarshal(data, v)
	}
	if err != nil {
		return fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	return nil
}
