// input_bindings_test.go - Tests for key name parsing and binding lookup

package main

import (
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
)

func TestParseKeyName(t *testing.T) {
	cases := []struct {
		name string
		want ebiten.Key
	}{
		{"escape", ebiten.KeyEscape},
		{"space", ebiten.KeySpace},
		{"b", ebiten.KeyB},
		{"Z", ebiten.KeyZ},
		{" m ", ebiten.KeyM},
		{"0", ebiten.KeyDigit0},
		{"7", ebiten.KeyDigit7},
	}
	for _, c := range cases {
		got, err := parseKeyName(c.name)
		if err != nil {
			t.Fatalf("parse %q: %v", c.name, err)
		}
		if got != c.want {
			t.Fatalf("parse %q: got %v, want %v", c.name, got, c.want)
		}
	}
	if _, err := parseKeyName("hyperspace"); err == nil {
		t.Fatal("unknown key name accepted")
	}
}

func TestKeyRuneRoundTrip(t *testing.T) {
	for _, name := range []string{"a", "q", "z", "0", "9"} {
		k, err := parseKeyName(name)
		if err != nil {
			t.Fatal(err)
		}
		if got := keyRune(k); string(got) != name {
			t.Fatalf("round trip %q: got %q", name, got)
		}
	}
	if keyRune(ebiten.KeyEscape) != 0 {
		t.Fatal("non-alphanumeric key should map to 0")
	}
}

func TestBuildBindings(t *testing.T) {
	cfg := defaultConfig()
	assets := []*VisualAsset{
		{Path: "a.gif", Type: AssetBackground, Key: '1'},
		{Path: "b.png", Type: AssetForeground, Key: 'q'},
	}
	b, err := BuildBindings(cfg, assets)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if b.Quit != int(ebiten.KeyEscape) || b.Resync != int(ebiten.KeySpace) {
		t.Fatalf("control bindings wrong: %+v", b)
	}

	if got := b.AssetFor(int(ebiten.KeyDigit1)); got != assets[0] {
		t.Fatalf("keyboard asset lookup: got %v", got)
	}
	// Each asset also answers to a MIDI pad, notes from 36 upward.
	if got := b.AssetFor(MIDICode(36)); got != assets[0] {
		t.Fatalf("MIDI pad 36: got %v", got)
	}
	if got := b.AssetFor(MIDICode(37)); got != assets[1] {
		t.Fatalf("MIDI pad 37: got %v", got)
	}
	if b.AssetFor(MIDICode(99)) != nil {
		t.Fatal("unbound code returned an asset")
	}
}

func TestBuildBindingsRejectsBadConfig(t *testing.T) {
	cfg := defaultConfig()
	cfg.Keys.Strobe = "flux capacitor"
	if _, err := BuildBindings(cfg, nil); err == nil {
		t.Fatal("invalid key name accepted")
	}
}

func TestMIDICodesNeverCollideWithKeys(t *testing.T) {
	for note := 0; note < 128; note++ {
		if MIDICode(note) <= int(ebiten.KeyMax) {
			t.Fatalf("MIDI note %d collides with the keyboard code space", note)
		}
	}
}
