// config_test.go - Tests for configuration loading and validation

package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file must not be an error: %v", err)
	}
	if cfg.Engine.DefaultBPM != 120 {
		t.Fatalf("default BPM: got %v, want 120", cfg.Engine.DefaultBPM)
	}
	if cfg.Keys.Quit != "escape" || cfg.Keys.Resync != "space" {
		t.Fatalf("default keys wrong: %+v", cfg.Keys)
	}
	if !cfg.Link.Enabled {
		t.Fatal("Link should default to enabled")
	}
}

func TestConfigOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
engine:
  default_bpm: 128
  cue_interval: 16
keys:
  strobe: s
color_mappings:
  logo.png: [255, 0, 128]
foreground_scales:
  logo.png: 42.5
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine.DefaultBPM != 128 {
		t.Fatalf("overlaid BPM: got %v", cfg.Engine.DefaultBPM)
	}
	if cfg.Engine.CueInterval != 16 {
		t.Fatalf("overlaid cue interval: got %v", cfg.Engine.CueInterval)
	}
	if cfg.Keys.Strobe != "s" {
		t.Fatalf("overlaid strobe key: got %q", cfg.Keys.Strobe)
	}
	// Untouched fields keep their defaults.
	if cfg.Keys.Quit != "escape" {
		t.Fatalf("unset key lost its default: %q", cfg.Keys.Quit)
	}
	if cfg.ForegroundScales["logo.png"] != 42.5 {
		t.Fatalf("foreground scale: got %v", cfg.ForegroundScales["logo.png"])
	}

	tint, ok := cfg.TintFor("logo.png")
	if !ok || tint.R != 255 || tint.G != 0 || tint.B != 128 || tint.A != 255 {
		t.Fatalf("tint: got %+v ok=%v", tint, ok)
	}
	if _, ok := cfg.TintFor("other.png"); ok {
		t.Fatal("unmapped name reported a tint")
	}
}

func TestConfigMalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("engine: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("malformed YAML must fail loudly")
	}
}

func TestConfigRejectsBadValues(t *testing.T) {
	cases := []string{
		"engine:\n  default_bpm: -1\n",
		"engine:\n  phrase_length: 0\n",
		"engine:\n  cue_interval: -4\n",
		"engine:\n  cue_epsilon: 20\n",
		"engine:\n  bounce_amplitude: 0.5\n",
		"engine:\n  strobe_factor: 0\n",
	}
	dir := t.TempDir()
	for i, body := range cases {
		path := filepath.Join(dir, "bad.yaml")
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfig(path); err == nil {
			t.Fatalf("case %d: invalid config accepted: %s", i, body)
		}
	}
}
