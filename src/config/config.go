/*
 * Copyright 2025 Ted Dunning
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config reads the board description: where the bridge sits, which
// reference clock it gets and how its CSI-2 endpoint is wired.
package config

import (
	"errors"
	"fmt"
	"os"

	"csibridge/src/format"
	"csibridge/src/logger"
	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("config: invalid configuration")

type Config struct {
	Bus     string `yaml:"i2c_bus"` // periph bus name, empty for the first one
	Address uint16 `yaml:"address"`

	RefClock RefClockConfig `yaml:"refclk"`
	Endpoint Endpoint       `yaml:"endpoint"`
	Format   FormatConfig   `yaml:"format"`
	Sensor   SensorConfig   `yaml:"sensor"`

	LogLevel      string `yaml:"log_level"`
	MetricsListen string `yaml:"metrics_listen"` // e.g. ":9100", empty disables
}

type RefClockConfig struct {
	Frequency uint64 `yaml:"frequency"` // Hz
	// Generator is set when the reference clock comes from a Si5351 that has
	// to be programmed first.
	Generator *GeneratorConfig `yaml:"generator,omitempty"`
}

type GeneratorConfig struct {
	Xtal float64 `yaml:"xtal"` // Hz
	VCO  float64 `yaml:"vco"`  // Hz, 0 picks a default
}

type FormatConfig struct {
	Code   string `yaml:"code"` // name such as UYVY8_2X8 or bus code such as 0x2006
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// SensorConfig is the timing of the parallel source.
type SensorConfig struct {
	PixelClock uint64 `yaml:"pixel_clock"` // Hz
	HBlank     int    `yaml:"hblank"`      // pclk cycles
}

func Default() Config {
	return Config{
		Address:  0x0e,
		RefClock: RefClockConfig{Frequency: 24_000_000},
		Endpoint: Endpoint{
			LinkFrequencies: []uint64{216_000_000},
			DataLanes:       []int{1, 2, 3, 4},
		},
		Format: FormatConfig{
			Code:   format.Default.Code.String(),
			Width:  format.Default.Width,
			Height: format.Default.Height,
		},
		LogLevel: "info",
	}
}

// Load reads a YAML board description. Keys that are absent keep their
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read config file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse config: %w", err)
	}
	if cfg.Endpoint.Properties != "" {
		ep, err := ParseEndpoint(cfg.Endpoint.Properties)
		if err != nil {
			return nil, err
		}
		ep.Properties = cfg.Endpoint.Properties
		cfg.Endpoint = ep
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Address == 0 || c.Address > 0x7f {
		return fmt.Errorf("%w: i2c address 0x%x", ErrInvalid, c.Address)
	}
	if c.RefClock.Frequency == 0 {
		return fmt.Errorf("%w: no reference clock frequency", ErrInvalid)
	}
	if g := c.RefClock.Generator; g != nil && g.Xtal <= 0 {
		return fmt.Errorf("%w: generator without crystal frequency", ErrInvalid)
	}
	if err := c.Endpoint.Validate(); err != nil {
		return err
	}
	if _, err := format.ParseCode(c.Format.Code); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Format.Width <= 0 || c.Format.Height <= 0 {
		return fmt.Errorf("%w: frame size %dx%d", ErrInvalid, c.Format.Width, c.Format.Height)
	}
	if c.Sensor.HBlank < 0 {
		return fmt.Errorf("%w: negative hblank", ErrInvalid)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// FormatCode is the parsed format code. Only valid after Validate.
func (c *Config) FormatCode() format.Code {
	code, _ := format.ParseCode(c.Format.Code)
	return code
}
