// Package config loads encoder profiles from YAML files.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/deepteams/m4v"
)

// Config is an encoder profile. Zero fields keep the m4v defaults.
type Config struct {
	// Rate
	FrameRate float64 `yaml:"frame_rate"`
	Bitrate   int     `yaml:"bitrate"`

	// Rate control hook parameters
	RCPeriod         int `yaml:"rc_period"`
	RCReactionPeriod int `yaml:"rc_reaction_period"`
	RCReactionRatio  int `yaml:"rc_reaction_ratio"`

	// Quantization
	Quantizer    int    `yaml:"quantizer"`
	MinQuantizer int    `yaml:"min_quantizer"`
	MaxQuantizer int    `yaml:"max_quantizer"`
	AQ           string `yaml:"aq"` // none, luminance

	// Structure
	Quality        int `yaml:"quality"`
	MaxKeyInterval int `yaml:"max_key_interval"`

	// Output
	PSNR      bool   `yaml:"psnr"`
	StatsFile string `yaml:"stats_file"`
	LogLevel  string `yaml:"log_level"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		FrameRate:        25,
		Bitrate:          910000,
		RCPeriod:         50,
		RCReactionPeriod: 10,
		RCReactionRatio:  10,
		Quantizer:        4,
		MinQuantizer:     1,
		MaxQuantizer:     31,
		AQ:               "none",
		Quality:          5,
		MaxKeyInterval:   250,
		LogLevel:         "info",
	}
}

// LoadFromFile loads a profile from a YAML file. Keys missing from the
// file keep their defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	if _, err := cfg.AQMode(); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// AQMode returns the adaptive quantization mode named by c.AQ.
func (c Config) AQMode() (m4v.AQMode, error) {
	switch c.AQ {
	case "", "none":
		return m4v.AQNone, nil
	case "luminance":
		return m4v.AQLuminance, nil
	default:
		return m4v.AQNone, fmt.Errorf("unknown aq mode %q", c.AQ)
	}
}

// Apply copies the profile onto opts. Width, Height, Logger and the rate
// controller are left alone.
func (c Config) Apply(opts *m4v.Options) {
	opts.FrameRate = c.FrameRate
	opts.Bitrate = c.Bitrate
	opts.RCPeriod = c.RCPeriod
	opts.RCReactionPeriod = c.RCReactionPeriod
	opts.RCReactionRatio = c.RCReactionRatio
	opts.Quantizer = c.Quantizer
	opts.MinQuantizer = c.MinQuantizer
	opts.MaxQuantizer = c.MaxQuantizer
	opts.Quality = c.Quality
	opts.MaxKeyInterval = c.MaxKeyInterval
	opts.ComputePSNR = c.PSNR
}
