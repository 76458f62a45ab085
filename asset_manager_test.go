// asset_manager_test.go - Tests for asset discovery and key mapping

package main

import (
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

func writeTestPNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	fillRGBA(img, color.NRGBA{R: 200, A: 255})
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func writeTestGIF(t *testing.T, path string, frames int, delay int) {
	t.Helper()
	g := &gif.GIF{}
	palette := color.Palette{color.Black, color.White}
	for i := 0; i < frames; i++ {
		frame := image.NewPaletted(image.Rect(0, 0, 4, 4), palette)
		for p := range frame.Pix {
			frame.Pix[p] = uint8(i % 2)
		}
		g.Image = append(g.Image, frame)
		g.Delay = append(g.Delay, delay)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := gif.EncodeAll(f, g); err != nil {
		t.Fatal(err)
	}
}

// assetFixture builds an assets directory with two GIF backgrounds, one
// frame-sequence background and two PNG foregrounds.
func assetFixture(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	bgDir := filepath.Join(dir, "assets", "backgrounds")
	fgDir := filepath.Join(dir, "assets", "foregrounds")
	seqDir := filepath.Join(bgDir, "loop01")
	for _, d := range []string{bgDir, fgDir, seqDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	writeTestGIF(t, filepath.Join(bgDir, "alpha.gif"), 2, 5)
	writeTestGIF(t, filepath.Join(bgDir, "beta.gif"), 3, 4)
	writeTestPNG(t, filepath.Join(seqDir, "frame_000.png"))
	writeTestPNG(t, filepath.Join(seqDir, "frame_001.png"))
	writeTestPNG(t, filepath.Join(fgDir, "logo.png"))
	writeTestPNG(t, filepath.Join(fgDir, "text.png"))

	cfg := defaultConfig()
	cfg.Paths.AssetsDir = filepath.Join(dir, "assets")
	cfg.Paths.KeyMappingFile = filepath.Join(dir, "config", "key_mapping.csv")
	cfg.ForegroundScales = map[string]float64{"logo.png": 33}
	cfg.ColorMappings = map[string][3]uint8{"logo.png": {0, 255, 0}}
	return cfg
}

func newTestManager(t *testing.T) (*AssetManager, *Config) {
	t.Helper()
	cfg := assetFixture(t)
	m := NewAssetManager(cfg, rand.New(rand.NewSource(7)))
	if err := m.Scan(cfg); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return m, cfg
}

func TestScanFindsAssets(t *testing.T) {
	m, _ := newTestManager(t)
	if got := len(m.ByType(AssetBackground)); got != 3 {
		t.Fatalf("backgrounds: got %d, want 3", got)
	}
	if got := len(m.ByType(AssetForeground)); got != 2 {
		t.Fatalf("foregrounds: got %d, want 2", got)
	}

	// Config-driven per-file scale and tint land on the right asset.
	for _, a := range m.ByType(AssetForeground) {
		if filepath.Base(a.Path) == "logo.png" {
			if a.ScalePercent != 33 {
				t.Fatalf("configured scale: got %v", a.ScalePercent)
			}
			if a.Tint.G != 255 || a.Tint.R != 0 {
				t.Fatalf("configured tint: got %+v", a.Tint)
			}
		} else if a.ScalePercent != 100 {
			t.Fatalf("default scale: got %v", a.ScalePercent)
		}
	}
}

func TestScanEmptyDirectoryFails(t *testing.T) {
	cfg := defaultConfig()
	cfg.Paths.AssetsDir = t.TempDir()
	m := NewAssetManager(cfg, rand.New(rand.NewSource(1)))
	if err := m.Scan(cfg); err == nil {
		t.Fatal("scan of an empty tree must fail")
	}
}

func TestDefaultKeysAndMappingRoundTrip(t *testing.T) {
	m, cfg := newTestManager(t)

	if m.LoadKeyMapping() {
		t.Fatal("mapping load should fail with no file")
	}
	m.AssignDefaultKeys()
	for _, a := range m.Assets() {
		if a.Key == 0 {
			t.Fatalf("asset %s left without a key", a.Path)
		}
	}
	// Backgrounds take the leading keys of the sequence.
	if m.ByType(AssetBackground)[0].Key != '1' {
		t.Fatalf("first background key: got %q", m.ByType(AssetBackground)[0].Key)
	}
	if err := m.SaveKeyMapping(); err != nil {
		t.Fatalf("save: %v", err)
	}

	// A fresh manager over the same tree restores the same bindings.
	m2 := NewAssetManager(cfg, rand.New(rand.NewSource(7)))
	if err := m2.Scan(cfg); err != nil {
		t.Fatal(err)
	}
	if !m2.LoadKeyMapping() {
		t.Fatal("saved mapping did not cover all assets")
	}
	for i, a := range m.Assets() {
		if m2.Assets()[i].Key != a.Key {
			t.Fatalf("key for %s changed across reload: %q vs %q", a.Path, m2.Assets()[i].Key, a.Key)
		}
	}
}

func TestDefaultKeysAvoidControlBindings(t *testing.T) {
	cfg := defaultConfig() // bounce b, strobe f, cue c, monitor m
	m := NewAssetManager(cfg, rand.New(rand.NewSource(1)))

	// Enough assets to walk the whole sequence, past every control key.
	for i := 0; i < 32; i++ {
		m.assets = append(m.assets, &VisualAsset{
			Path: fmt.Sprintf("bg%02d.gif", i),
			Type: AssetBackground,
		})
	}
	m.AssignDefaultKeys()

	for _, a := range m.assets {
		if a.Key == 0 {
			t.Fatalf("asset %s left without a key", a.Path)
		}
		switch a.Key {
		case 'b', 'f', 'c', 'm':
			t.Fatalf("asset %s bound to control key %q", a.Path, a.Key)
		}
	}
}

func TestByKey(t *testing.T) {
	m, _ := newTestManager(t)
	m.AssignDefaultKeys()
	first := m.ByType(AssetBackground)[0]
	if got := m.ByKey(first.Key); got != first {
		t.Fatalf("ByKey(%q): got %v", first.Key, got)
	}
	if m.ByKey('~') != nil {
		t.Fatal("unbound key returned an asset")
	}
}

func TestRandomExcludesCurrent(t *testing.T) {
	m, _ := newTestManager(t)
	current := m.ByType(AssetBackground)[0]
	for i := 0; i < 50; i++ {
		got := m.Random(AssetBackground, current)
		if got == nil {
			t.Fatal("random returned nothing from a populated pool")
		}
		if got == current {
			t.Fatal("random returned the excluded asset despite alternatives")
		}
	}
	// A single-asset pool must still return something.
	fgs := m.ByType(AssetForeground)
	cfgOnly := fgs[0]
	m.assets = []*VisualAsset{cfgOnly}
	if got := m.Random(AssetForeground, cfgOnly); got != cfgOnly {
		t.Fatalf("single-asset pool: got %v", got)
	}
}
