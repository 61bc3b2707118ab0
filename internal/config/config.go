// Package config loads the application settings of the measurement tab.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/user/testpad_go/internal/device"
	"github.com/user/testpad_go/internal/parser"
)

// OverridePolicy decides what happens to spec bounds that widen the factory
// envelope.
type OverridePolicy string

const (
	// OverrideFlag commits the bounds and shows a warning.
	OverrideFlag OverridePolicy = "flag"
	// OverrideBlock rejects the edit.
	OverrideBlock OverridePolicy = "block"
)

// Config holds the tab settings. Durations are soft budgets after which a
// busy indicator is shown.
type Config struct {
	OutputDir      string         `yaml:"output_dir" validate:"required"`
	CSVPrecision   int            `yaml:"csv_precision" validate:"gte=2,lte=4"`
	ImportBudget   time.Duration  `yaml:"import_budget" validate:"gt=0"`
	ReportBudget   time.Duration  `yaml:"report_budget" validate:"gt=0"`
	OverridePolicy OverridePolicy `yaml:"override_policy" validate:"oneof=flag block"`
	DeviceSpec     string         `yaml:"device_spec"`
	StateFile      string         `yaml:"state_file"`
	LogLevel       string         `yaml:"log_level" validate:"oneof=trace debug info warn warning error"`
	LogFormat      string         `yaml:"log_format" validate:"oneof=text json"`
}

// Default returns settings usable without a config file.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return Config{
		OutputDir:      filepath.Join(home, "Documents", "testpad"),
		CSVPrecision:   parser.DefaultPrecision,
		ImportBudget:   3 * time.Second,
		ReportBudget:   5 * time.Second,
		OverridePolicy: OverrideFlag,
		StateFile:      filepath.Join(home, ".testpad", "ds50_state.json"),
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load overlays the YAML file at path on the defaults. A missing file is not
// an error.
func Load(fs afero.Fs, path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	data, err := afero.ReadFile(fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, cfg.Validate()
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if !filepath.IsAbs(c.OutputDir) {
		return fmt.Errorf("invalid config: output_dir must be absolute, got %q", c.OutputDir)
	}
	return nil
}

// DeviceModel returns the configured device spec, the built-in DS-50 when
// none is set.
func (c Config) DeviceModel(fs afero.Fs) (*device.Spec, error) {
	if c.DeviceSpec == "" {
		return device.DS50(), nil
	}
	return device.Load(fs, c.DeviceSpec)
}
