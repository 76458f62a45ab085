// asset_source.go - Asset handles: looping frame sources behind one interface

/*
Visual Hive - beat-synchronised visual performance engine
https://github.com/visualhive/visual-hive
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const defaultAssetFPS = 30.0

// AssetHandle is an opened visual resource. Backgrounds loop forever:
// NextFrame never runs out, it wraps to the first frame. The engine opens a
// handle when an asset becomes active and closes it when it is replaced;
// handles are used from the orchestration goroutine only.
type AssetHandle interface {
	Close() error
	// NextFrame returns the next frame in display order.
	NextFrame() (*image.RGBA, error)
	// FPS is the source's native frame rate, or defaultAssetFPS when the
	// source has no inherent timing.
	FPS() float64
}

// OpenAsset opens the right handle type for an asset. A failed open leaves
// whatever was active before untouched; the caller keeps the old handle.
func OpenAsset(asset *VisualAsset) (AssetHandle, error) {
	switch asset.Type {
	case AssetForeground:
		return openStill(asset.Path)
	case AssetBackground:
		info, err := os.Stat(asset.Path)
		if err != nil {
			return nil, fmt.Errorf("open asset: %w", err)
		}
		if info.IsDir() {
			return openSequence(asset.Path)
		}
		return openGIF(asset.Path)
	}
	return nil, fmt.Errorf("open asset: unknown type %d", asset.Type)
}

// stillAsset is a single decoded image; NextFrame always returns the same
// frame. Used for foreground overlays.
type stillAsset struct {
	frame *image.RGBA
}

func openStill(path string) (*stillAsset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open still: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode still %s: %w", path, err)
	}
	return &stillAsset{frame: toRGBA(img)}, nil
}

func (s *stillAsset) Close() error                    { return nil }
func (s *stillAsset) NextFrame() (*image.RGBA, error) { return s.frame, nil }
func (s *stillAsset) FPS() float64                    { return defaultAssetFPS }

// gifAsset is an animated GIF decoded fully at open time. The frame rate
// is derived from the mean frame delay; GIFs with no timing information
// fall back to the default.
type gifAsset struct {
	frames []*image.RGBA
	fps    float64
	cursor int
}

func openGIF(path string) (*gifAsset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gif: %w", err)
	}
	defer f.Close()
	g, err := gif.DecodeAll(f)
	if err != nil {
		return nil, fmt.Errorf("decode gif %s: %w", path, err)
	}
	if len(g.Image) == 0 {
		return nil, fmt.Errorf("decode gif %s: no frames", path)
	}

	bounds := g.Image[0].Bounds()
	asset := &gifAsset{fps: defaultAssetFPS}

	// GIF frames can be partial updates; composite onto the running canvas
	// and apply each frame's disposal before the next one lands, otherwise
	// background-disposal GIFs leave ghosts of earlier frames.
	canvas := image.NewRGBA(bounds)
	totalDelay := 0
	for i, frame := range g.Image {
		var disposal byte
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}
		var restore *image.RGBA
		if disposal == gif.DisposalPrevious {
			restore = image.NewRGBA(bounds)
			copy(restore.Pix, canvas.Pix)
		}

		draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
		copied := image.NewRGBA(bounds)
		copy(copied.Pix, canvas.Pix)
		asset.frames = append(asset.frames, copied)

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = restore
		}
		if i < len(g.Delay) {
			totalDelay += g.Delay[i]
		}
	}
	if totalDelay > 0 {
		// Delays are in hundredths of a second.
		asset.fps = float64(len(asset.frames)) * 100 / float64(totalDelay)
	}
	return asset, nil
}

func (g *gifAsset) Close() error { return nil }

func (g *gifAsset) NextFrame() (*image.RGBA, error) {
	frame := g.frames[g.cursor]
	g.cursor = (g.cursor + 1) % len(g.frames)
	return frame, nil
}

func (g *gifAsset) FPS() float64 { return g.fps }

// sequenceAsset is a directory of numbered still frames played as a loop.
// Frames are decoded lazily and cached, so opening a long sequence stays
// cheap; the first pass through the loop pays the decode cost.
type sequenceAsset struct {
	paths  []string
	cache  []*image.RGBA
	fps    float64
	cursor int
}

func openSequence(dir string) (*sequenceAsset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("open sequence: %w", err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".png" || ext == ".jpg" || ext == ".jpeg" {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("open sequence %s: no frames", dir)
	}
	sort.Strings(paths)
	return &sequenceAsset{
		paths: paths,
		cache: make([]*image.RGBA, len(paths)),
		fps:   defaultAssetFPS,
	}, nil
}

func (s *sequenceAsset) Close() error {
	s.cache = nil
	return nil
}

func (s *sequenceAsset) NextFrame() (*image.RGBA, error) {
	i := s.cursor
	s.cursor = (s.cursor + 1) % len(s.paths)
	if s.cache == nil {
		return nil, fmt.Errorf("sequence closed")
	}
	if s.cache[i] == nil {
		f, err := os.Open(s.paths[i])
		if err != nil {
			return nil, fmt.Errorf("sequence frame: %w", err)
		}
		img, _, err := image.Decode(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("sequence frame %s: %w", s.paths[i], err)
		}
		s.cache[i] = toRGBA(img)
	}
	return s.cache[i], nil
}

func (s *sequenceAsset) FPS() float64 { return s.fps }

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}
