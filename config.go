// config.go - Application configuration loading and defaults

/*
Visual Hive - beat-synchronised visual performance engine
https://github.com/visualhive/visual-hive
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"image/color"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the whole application configuration. A missing config file is
// not an error: every field has a working default so the binary can run
// from a bare assets directory.
type Config struct {
	Paths struct {
		AssetsDir      string `yaml:"assets_dir"`
		KeyMappingFile string `yaml:"key_mapping_file"`
	} `yaml:"paths"`

	Display struct {
		WindowName    string `yaml:"window_name"`
		Fullscreen    bool   `yaml:"fullscreen"`
		StatusOverlay bool   `yaml:"status_overlay"`
		Width         int    `yaml:"width"`
		Height        int    `yaml:"height"`
	} `yaml:"display"`

	Engine struct {
		DefaultBPM      float64 `yaml:"default_bpm"`
		PhraseLength    float64 `yaml:"phrase_length"`
		BounceAmplitude float64 `yaml:"bounce_amplitude"`
		StrobeFactor    float64 `yaml:"strobe_factor"`
		CueInterval     float64 `yaml:"cue_interval"`
		CueEpsilon      float64 `yaml:"cue_epsilon"`
		TempoWindowSize int     `yaml:"tempo_window_size"`
	} `yaml:"engine"`

	Link struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"link"`

	Keys struct {
		Quit    string `yaml:"quit"`
		Resync  string `yaml:"resync"`
		Bounce  string `yaml:"bounce"`
		Strobe  string `yaml:"strobe"`
		Cue     string `yaml:"cue"`
		Monitor string `yaml:"monitor"`
	} `yaml:"keys"`

	// ColorMappings maps a foreground file name to an RGB triple used as
	// the tint fill through its alpha mask.
	ColorMappings map[string][3]uint8 `yaml:"color_mappings"`

	// ForegroundScales maps a foreground file name to its width as a
	// percentage of the output width.
	ForegroundScales map[string]float64 `yaml:"foreground_scales"`
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.Paths.AssetsDir = "assets"
	cfg.Paths.KeyMappingFile = "config/key_mapping.csv"
	cfg.Display.WindowName = "visual-hive Output"
	cfg.Display.Fullscreen = true
	cfg.Display.StatusOverlay = true
	cfg.Engine.DefaultBPM = 120
	cfg.Engine.PhraseLength = 4
	cfg.Engine.BounceAmplitude = 0.15
	cfg.Engine.StrobeFactor = 0.25
	cfg.Engine.CueInterval = 32
	cfg.Engine.CueEpsilon = 0.1
	cfg.Engine.TempoWindowSize = tempoWindowSize
	cfg.Link.Enabled = true
	cfg.Keys.Quit = "escape"
	cfg.Keys.Resync = "space"
	cfg.Keys.Bounce = "b"
	cfg.Keys.Strobe = "f"
	cfg.Keys.Cue = "c"
	cfg.Keys.Monitor = "m"
	return cfg
}

// LoadConfig reads path and overlays it on the defaults. A missing file
// returns the defaults; a malformed file is an error, because silently
// running a live show with half a config is worse than failing at startup.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logrus.WithField("path", path).Info("config: file not found, using defaults")
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Engine.DefaultBPM <= 0 {
		return fmt.Errorf("default_bpm must be positive, got %v", c.Engine.DefaultBPM)
	}
	if c.Engine.PhraseLength <= 0 {
		return fmt.Errorf("phrase_length must be positive, got %v", c.Engine.PhraseLength)
	}
	if c.Engine.CueInterval <= 0 {
		return fmt.Errorf("cue_interval must be positive, got %v", c.Engine.CueInterval)
	}
	if c.Engine.CueEpsilon <= 0 || c.Engine.CueEpsilon >= c.Engine.CueInterval/2 {
		return fmt.Errorf("cue_epsilon out of range: %v", c.Engine.CueEpsilon)
	}
	if c.Engine.BounceAmplitude < 0.1 || c.Engine.BounceAmplitude > 0.2 {
		return fmt.Errorf("bounce_amplitude must be in [0.1, 0.2], got %v", c.Engine.BounceAmplitude)
	}
	if c.Engine.StrobeFactor <= 0 {
		return fmt.Errorf("strobe_factor must be positive, got %v", c.Engine.StrobeFactor)
	}
	return nil
}

// TintFor returns the configured tint color for a foreground file name.
func (c *Config) TintFor(name string) (color.NRGBA, bool) {
	rgb, ok := c.ColorMappings[name]
	if !ok {
		return color.NRGBA{}, false
	}
	return color.NRGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}, true
}
