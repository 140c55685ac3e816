// Package config handles vatbake configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Faultbox/midgard-vat/internal/logger"
	"github.com/Faultbox/midgard-vat/internal/vat"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all bake settings.
type Config struct {
	Export  ExportConfig  `yaml:"export"`
	Output  OutputConfig  `yaml:"output"`
	Source  SourceConfig  `yaml:"source"`
	Logging LoggingConfig `yaml:"logging"`
}

// ExportConfig holds the settings that shape the encoded textures.
type ExportConfig struct {
	MarginPosition float32 `yaml:"margin_position"`
	MarginNormal   float32 `yaml:"margin_normal"`
	SinglePass     bool    `yaml:"single_pass"`
	// FrameRate is a preset name (film, ntsc, ...), "<n>fps" or a number.
	FrameRate string `yaml:"frame_rate"`
	// FirstFrame and LastFrame override the source's frame range when set.
	FirstFrame *int `yaml:"first_frame,omitempty"`
	LastFrame  *int `yaml:"last_frame,omitempty"`
	// Selection lists mesh names to export. Empty exports every mesh.
	Selection []string `yaml:"selection,omitempty"`
}

// OutputConfig holds output file settings.
type OutputConfig struct {
	Directory    string `yaml:"directory"`
	BaseFilename string `yaml:"base_filename"`
	Metadata     bool   `yaml:"metadata"`
	Preview      bool   `yaml:"preview"`
}

// SourceConfig points at the animated model to bake.
type SourceConfig struct {
	// Model is an .rsm model or a .yaml sample fixture.
	Model string `yaml:"model"`
	// GRF lists archives Model is read from. Later archives take priority.
	// Empty reads Model from disk.
	GRF []string `yaml:"grf,omitempty"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			MarginPosition: 0.1,
			MarginNormal:   0,
			FrameRate:      "film",
		},
		Output: OutputConfig{
			Directory:    "./vat",
			BaseFilename: vat.DefaultBaseFilename,
			Metadata:     true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks that the config describes a runnable bake.
func (c *Config) Validate() error {
	if c.Export.MarginPosition < 0 {
		return fmt.Errorf("%w: margin_position must not be negative, got %v", ErrInvalidConfig, c.Export.MarginPosition)
	}
	if c.Export.MarginNormal < 0 {
		return fmt.Errorf("%w: margin_normal must not be negative, got %v", ErrInvalidConfig, c.Export.MarginNormal)
	}
	if _, err := vat.ParseFrameRate(c.Export.FrameRate); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	base := strings.TrimSpace(c.Output.BaseFilename)
	if base == "" {
		return fmt.Errorf("%w: base_filename is empty", ErrInvalidConfig)
	}
	if strings.ContainsAny(base, `/\`) {
		return fmt.Errorf("%w: base_filename %q must not contain a path separator", ErrInvalidConfig, base)
	}
	if c.Output.Directory == "" {
		return fmt.Errorf("%w: output directory is empty", ErrInvalidConfig)
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// FrameRange returns the configured frame override, if any. Fields that are
// not set are taken from fallback.
func (c *Config) FrameRange(fallback vat.FrameRange) *vat.FrameRange {
	if c.Export.FirstFrame == nil && c.Export.LastFrame == nil {
		return nil
	}
	fr := fallback
	if c.Export.FirstFrame != nil {
		fr.First = *c.Export.FirstFrame
	}
	if c.Export.LastFrame != nil {
		fr.Last = *c.Export.LastFrame
	}
	return &fr
}

// Selection converts the configured mesh names into a vat.Selection.
func (c *Config) Selection() vat.Selection {
	if len(c.Export.Selection) == 0 {
		return vat.Selection{Mode: vat.SelectAll}
	}
	return vat.Selection{Mode: vat.SelectNamed, Names: c.Export.Selection}
}
