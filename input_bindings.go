// input_bindings.go - Mapping configured key names and asset keys to events

/*
Visual Hive - beat-synchronised visual performance engine
https://github.com/visualhive/visual-hive
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
)

// Bindings resolves raw input codes to engine actions. Keyboard codes are
// ebiten key codes; MIDI codes are note numbers offset so they can share
// one lookup table without colliding.
type Bindings struct {
	Quit    int
	Resync  int
	Bounce  int
	Strobe  int
	Cue     int
	Monitor int

	assets map[int]*VisualAsset
}

const midiCodeOffset = 0x10000

// MIDICode converts a note number to a binding code.
func MIDICode(note int) int { return midiCodeOffset + note }

var namedKeys = map[string]ebiten.Key{
	"escape":    ebiten.KeyEscape,
	"space":     ebiten.KeySpace,
	"enter":     ebiten.KeyEnter,
	"tab":       ebiten.KeyTab,
	"backspace": ebiten.KeyBackspace,
}

// parseKeyName resolves a config key name ("escape", "space", "b", "7") to
// an ebiten key code.
func parseKeyName(name string) (ebiten.Key, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	if k, ok := namedKeys[lower]; ok {
		return k, nil
	}
	if len(lower) == 1 {
		c := lower[0]
		switch {
		case c >= 'a' && c <= 'z':
			return ebiten.KeyA + ebiten.Key(c-'a'), nil
		case c >= '0' && c <= '9':
			return ebiten.KeyDigit0 + ebiten.Key(c-'0'), nil
		}
	}
	return 0, fmt.Errorf("unknown key name %q", name)
}

// keyRune maps an ebiten key code back to the character the asset mapping
// file stores, 0 for keys outside the mapping alphabet.
func keyRune(k ebiten.Key) rune {
	switch {
	case k >= ebiten.KeyA && k <= ebiten.KeyZ:
		return rune('a' + int(k-ebiten.KeyA))
	case k >= ebiten.KeyDigit0 && k <= ebiten.KeyDigit9:
		return rune('0' + int(k-ebiten.KeyDigit0))
	}
	return 0
}

// BuildBindings resolves the configured control keys and the per-asset
// keys into one lookup structure. Assets answer to both their keyboard key
// and the MIDI note with the same index (note 36 + position, the common
// pad layout start).
func BuildBindings(cfg *Config, assets []*VisualAsset) (*Bindings, error) {
	b := &Bindings{assets: make(map[int]*VisualAsset)}

	resolve := func(name, what string) (int, error) {
		k, err := parseKeyName(name)
		if err != nil {
			return 0, fmt.Errorf("keys.%s: %w", what, err)
		}
		return int(k), nil
	}

	var err error
	if b.Quit, err = resolve(cfg.Keys.Quit, "quit"); err != nil {
		return nil, err
	}
	if b.Resync, err = resolve(cfg.Keys.Resync, "resync"); err != nil {
		return nil, err
	}
	if b.Bounce, err = resolve(cfg.Keys.Bounce, "bounce"); err != nil {
		return nil, err
	}
	if b.Strobe, err = resolve(cfg.Keys.Strobe, "strobe"); err != nil {
		return nil, err
	}
	if b.Cue, err = resolve(cfg.Keys.Cue, "cue"); err != nil {
		return nil, err
	}
	if b.Monitor, err = resolve(cfg.Keys.Monitor, "monitor"); err != nil {
		return nil, err
	}

	const midiPadBase = 36
	for i, asset := range assets {
		if asset.Key != 0 {
			k, err := parseKeyName(string(asset.Key))
			if err == nil {
				b.assets[int(k)] = asset
			}
		}
		b.assets[MIDICode(midiPadBase+i)] = asset
	}
	return b, nil
}

// AssetFor returns the asset bound to code, nil when none.
func (b *Bindings) AssetFor(code int) *VisualAsset {
	return b.assets[code]
}
