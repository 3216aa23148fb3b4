// SPDX-License-Identifier: Unlicense OR MIT

// Package config loads the configuration of the xevdump tool.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	applog "xevloop.org/internal/log"
)

// Config is the file configuration of xevdump.
type Config struct {
	// Display is the X server to connect to. Empty means $DISPLAY.
	Display  string `yaml:"display"`
	LogLevel string `yaml:"log_level"`
	// TextBufferSize is the initial size of the composed text buffer.
	TextBufferSize int          `yaml:"text_buffer_size"`
	XInput         XInputConfig `yaml:"xinput"`
	Window         WindowConfig `yaml:"window"`
	// RawEvents enables printing of device scoped events.
	RawEvents bool `yaml:"raw_events"`
}

// XInputConfig is the minimum XInput version required.
type XInputConfig struct {
	Major int `yaml:"major"`
	Minor int `yaml:"minor"`
}

type WindowConfig struct {
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Title      string `yaml:"title"`
	Multitouch bool   `yaml:"multitouch"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel:       applog.DefaultLevel.String(),
		TextBufferSize: 16,
		XInput:         XInputConfig{Major: 2, Minor: 2},
		Window: WindowConfig{
			Width:  800,
			Height: 600,
			Title:  "xevdump",
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	var errs []error
	if _, err := applog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.TextBufferSize <= 0 {
		errs = append(errs, fmt.Errorf("text_buffer_size must be positive, got %d", c.TextBufferSize))
	}
	if c.XInput.Major < 2 {
		errs = append(errs, fmt.Errorf("xinput version %d.%d is older than 2.0", c.XInput.Major, c.XInput.Minor))
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	return errors.Join(errs...)
}
