// asset_source_test.go - Tests for asset handles

package main

import (
	"image"
	"image/color"
	"image/gif"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenGIFLoopsFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anim.gif")
	writeTestGIF(t, path, 3, 5) // 3 frames, 50ms each -> 20 fps

	handle, err := OpenAsset(&VisualAsset{Path: path, Type: AssetBackground})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer handle.Close()

	if fps := handle.FPS(); math.Abs(fps-20) > 0.01 {
		t.Fatalf("fps from GIF delays: got %v, want 20", fps)
	}

	first, err := handle.NextFrame()
	if err != nil {
		t.Fatalf("first frame: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := handle.NextFrame(); err != nil {
			t.Fatalf("frame %d: %v", i+2, err)
		}
	}
	// Fourth pull wraps back to the first frame.
	wrapped, err := handle.NextFrame()
	if err != nil {
		t.Fatal(err)
	}
	if wrapped != first {
		t.Fatal("background did not loop back to its first frame")
	}
}

func TestOpenGIFAppliesBackgroundDisposal(t *testing.T) {
	// First frame fills the canvas and asks for background disposal; the
	// second frame only touches one pixel. Everything the first frame drew
	// must be cleared before the second frame is composited.
	palette := color.Palette{color.Black, color.White}
	full := image.NewPaletted(image.Rect(0, 0, 4, 4), palette)
	for p := range full.Pix {
		full.Pix[p] = 1
	}
	dot := image.NewPaletted(image.Rect(0, 0, 1, 1), palette)

	path := filepath.Join(t.TempDir(), "disposal.gif")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	err = gif.EncodeAll(f, &gif.GIF{
		Image:    []*image.Paletted{full, dot},
		Delay:    []int{5, 5},
		Disposal: []byte{gif.DisposalBackground, gif.DisposalNone},
	})
	f.Close()
	if err != nil {
		t.Fatal(err)
	}

	handle, err := OpenAsset(&VisualAsset{Path: path, Type: AssetBackground})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer handle.Close()

	first, err := handle.NextFrame()
	if err != nil {
		t.Fatal(err)
	}
	if _, _, _, a := first.At(3, 3).RGBA(); a == 0 {
		t.Fatal("first frame lost its own pixels")
	}
	second, err := handle.NextFrame()
	if err != nil {
		t.Fatal(err)
	}
	if _, _, _, a := second.At(3, 3).RGBA(); a != 0 {
		t.Fatal("first frame ghosted through background disposal")
	}
	if _, _, _, a := second.At(0, 0).RGBA(); a == 0 {
		t.Fatal("second frame's own pixel missing")
	}
}

func TestOpenSequenceLoopsSortedFrames(t *testing.T) {
	dir := t.TempDir()
	writeTestPNG(t, filepath.Join(dir, "frame_001.png"))
	writeTestPNG(t, filepath.Join(dir, "frame_000.png"))

	handle, err := OpenAsset(&VisualAsset{Path: dir, Type: AssetBackground})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer handle.Close()

	if fps := handle.FPS(); fps != defaultAssetFPS {
		t.Fatalf("sequence fps: got %v, want default", fps)
	}

	a, err := handle.NextFrame()
	if err != nil {
		t.Fatal(err)
	}
	b, err := handle.NextFrame()
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("two distinct frames expected")
	}
	wrapped, err := handle.NextFrame()
	if err != nil {
		t.Fatal(err)
	}
	if wrapped != a {
		t.Fatal("sequence did not loop to the first frame")
	}
}

func TestOpenStillRepeatsFrame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logo.png")
	writeTestPNG(t, path)

	handle, err := OpenAsset(&VisualAsset{Path: path, Type: AssetForeground})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer handle.Close()

	a, _ := handle.NextFrame()
	b, _ := handle.NextFrame()
	if a != b {
		t.Fatal("a still must keep returning the same frame")
	}
}

func TestOpenMissingAssetFails(t *testing.T) {
	_, err := OpenAsset(&VisualAsset{Path: filepath.Join(t.TempDir(), "gone.gif"), Type: AssetBackground})
	if err == nil {
		t.Fatal("open of a missing file must fail")
	}
}

func TestOpenEmptySequenceFails(t *testing.T) {
	_, err := OpenAsset(&VisualAsset{Path: t.TempDir(), Type: AssetBackground})
	if err == nil {
		t.Fatal("open of an empty directory must fail")
	}
}
