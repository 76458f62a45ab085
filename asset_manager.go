// asset_manager.go - Visual asset discovery, key mapping and selection pool

/*
Visual Hive - beat-synchronised visual performance engine
https://github.com/visualhive/visual-hive
License: GPLv3 or later
*/

package main

import (
	"encoding/csv"
	"fmt"
	"image/color"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

type AssetType int

const (
	AssetBackground AssetType = iota
	AssetForeground
)

func (t AssetType) String() string {
	if t == AssetBackground {
		return "BACKGROUND"
	}
	return "FOREGROUND"
}

// VisualAsset is one discovered visual: a looping animated background or a
// still foreground overlay. Key is the operator binding (0 = unassigned),
// ScalePercent applies to foregrounds only.
type VisualAsset struct {
	Path         string
	Type         AssetType
	Key          rune
	ScalePercent float64
	Tint         color.NRGBA // foreground fill color through the alpha mask
}

// AssetManager scans the assets directory, persists the key-to-asset
// mapping and hands out assets by key or at random for cued transitions.
// It owns no open handles; the engine opens and closes assets as they
// become active.
type AssetManager struct {
	assetsDir   string
	mappingFile string
	assets      []*VisualAsset
	reserved    map[rune]bool // control binding runes, never handed to assets
	rng         *rand.Rand
}

func NewAssetManager(cfg *Config, rng *rand.Rand) *AssetManager {
	return &AssetManager{
		assetsDir:   cfg.Paths.AssetsDir,
		mappingFile: cfg.Paths.KeyMappingFile,
		reserved:    controlKeyRunes(cfg),
		rng:         rng,
	}
}

// controlKeyRunes collects the single-character control bindings. Control
// keys win over asset keys at dispatch, so an asset bound to one would be
// unreachable.
func controlKeyRunes(cfg *Config) map[rune]bool {
	reserved := make(map[rune]bool)
	for _, name := range []string{
		cfg.Keys.Quit, cfg.Keys.Resync, cfg.Keys.Bounce,
		cfg.Keys.Strobe, cfg.Keys.Cue, cfg.Keys.Monitor,
	} {
		trimmed := []rune(strings.ToLower(strings.TrimSpace(name)))
		if len(trimmed) == 1 {
			reserved[trimmed[0]] = true
		}
	}
	return reserved
}

// Scan walks <assetsDir>/backgrounds and <assetsDir>/foregrounds and builds
// the asset list. Backgrounds are animated GIFs or directories of numbered
// frames; foregrounds are PNG or JPEG stills. Returns an error when the
// scan finds nothing usable: running without visuals is a startup failure,
// not something to limp through.
func (m *AssetManager) Scan(cfg *Config) error {
	m.assets = m.assets[:0]

	bgDir := filepath.Join(m.assetsDir, "backgrounds")
	entries, err := os.ReadDir(bgDir)
	if err != nil {
		logrus.WithError(err).WithField("dir", bgDir).Warn("assets: backgrounds directory unreadable")
	}
	for _, entry := range entries {
		path := filepath.Join(bgDir, entry.Name())
		if entry.IsDir() || strings.EqualFold(filepath.Ext(entry.Name()), ".gif") {
			m.assets = append(m.assets, &VisualAsset{Path: path, Type: AssetBackground})
		}
	}

	fgDir := filepath.Join(m.assetsDir, "foregrounds")
	entries, err = os.ReadDir(fgDir)
	if err != nil {
		logrus.WithError(err).WithField("dir", fgDir).Warn("assets: foregrounds directory unreadable")
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".png" && ext != ".jpg" && ext != ".jpeg" {
			continue
		}
		asset := &VisualAsset{
			Path:         filepath.Join(fgDir, entry.Name()),
			Type:         AssetForeground,
			ScalePercent: 100,
			Tint:         color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		}
		if pct, ok := cfg.ForegroundScales[entry.Name()]; ok {
			asset.ScalePercent = pct
		}
		if tint, ok := cfg.TintFor(entry.Name()); ok {
			asset.Tint = tint
		}
		m.assets = append(m.assets, asset)
	}

	sort.Slice(m.assets, func(i, j int) bool { return m.assets[i].Path < m.assets[j].Path })

	if len(m.assets) == 0 {
		return fmt.Errorf("no visual assets under %s", m.assetsDir)
	}
	logrus.WithFields(logrus.Fields{
		"backgrounds": len(m.ByType(AssetBackground)),
		"foregrounds": len(m.ByType(AssetForeground)),
	}).Info("assets: scan complete")
	return nil
}

func (m *AssetManager) Assets() []*VisualAsset { return m.assets }

func (m *AssetManager) ByType(kind AssetType) []*VisualAsset {
	var out []*VisualAsset
	for _, a := range m.assets {
		if a.Type == kind {
			out = append(out, a)
		}
	}
	return out
}

// ByKey returns the asset bound to key, nil when nothing matches.
func (m *AssetManager) ByKey(key rune) *VisualAsset {
	for _, a := range m.assets {
		if a.Key != 0 && a.Key == key {
			return a
		}
	}
	return nil
}

// Random picks a uniformly random asset of the given kind, excluding the
// currently active one when there is an alternative. Used by cued
// transitions with an empty queue slot.
func (m *AssetManager) Random(kind AssetType, exclude *VisualAsset) *VisualAsset {
	pool := m.ByType(kind)
	if len(pool) == 0 {
		return nil
	}
	if len(pool) > 1 && exclude != nil {
		trimmed := pool[:0]
		for _, a := range pool {
			if a != exclude {
				trimmed = append(trimmed, a)
			}
		}
		pool = trimmed
	}
	return pool[m.rng.Intn(len(pool))]
}

// defaultKeySequence is the pool drawn from when no mapping file exists.
var defaultKeySequence = []rune("1234567890qwertyuiopasdfghjklzxcvbnm")

// LoadKeyMapping reads the key,type,path CSV written by SaveKeyMapping and
// binds keys to the scanned assets. Returns true when every asset got a
// key; on false (missing file, stale paths) the caller should fall back to
// AssignDefaultKeys and re-save.
func (m *AssetManager) LoadKeyMapping() bool {
	f, err := os.Open(m.mappingFile)
	if err != nil {
		return false
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 3
	pathToKey := make(map[string]rune)
	records, err := reader.ReadAll()
	if err != nil {
		logrus.WithError(err).WithField("file", m.mappingFile).Warn("assets: key mapping unreadable")
		return false
	}
	for _, rec := range records {
		keyField := []rune(rec[0])
		if len(keyField) != 1 {
			continue
		}
		pathToKey[rec[2]] = keyField[0]
	}

	all := true
	for _, a := range m.assets {
		if key, ok := pathToKey[a.Path]; ok {
			a.Key = key
		} else {
			a.Key = 0
			all = false
		}
	}
	return all
}

// AssignDefaultKeys binds every unassigned asset to the next free key from
// the default sequence, backgrounds first. Keys claimed by control bindings
// are skipped.
func (m *AssetManager) AssignDefaultKeys() {
	used := make(map[rune]bool)
	for _, a := range m.assets {
		if a.Key != 0 {
			used[a.Key] = true
		}
	}
	next := 0
	assign := func(a *VisualAsset) {
		for next < len(defaultKeySequence) {
			key := defaultKeySequence[next]
			next++
			if !used[key] && !m.reserved[key] {
				a.Key = key
				used[key] = true
				logrus.WithFields(logrus.Fields{"key": string(key), "asset": a.Path}).Info("assets: key assigned")
				return
			}
		}
	}
	for _, kind := range []AssetType{AssetBackground, AssetForeground} {
		for _, a := range m.ByType(kind) {
			if a.Key == 0 {
				assign(a)
			}
		}
	}
}

// SaveKeyMapping writes the current bindings as key,type,path rows.
func (m *AssetManager) SaveKeyMapping() error {
	if err := os.MkdirAll(filepath.Dir(m.mappingFile), 0o755); err != nil {
		return fmt.Errorf("key mapping dir: %w", err)
	}
	f, err := os.Create(m.mappingFile)
	if err != nil {
		return fmt.Errorf("key mapping file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	for _, a := range m.assets {
		if a.Key == 0 {
			continue
		}
		if err := writer.Write([]string{string(a.Key), a.Type.String(), a.Path}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
