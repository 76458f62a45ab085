// video_backend_ebiten.go - Ebiten display backend and monitor selection

/*
Visual Hive - beat-synchronised visual performance engine
https://github.com/visualhive/visual-hive
License: GPLv3 or later
*/

package main

import (
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/sirupsen/logrus"
)

// ListDisplays enumerates attached monitors for startup selection.
func ListDisplays() []DisplayInfo {
	monitors := ebiten.AppendMonitors(nil)
	displays := make([]DisplayInfo, 0, len(monitors))
	for i, m := range monitors {
		w, h := m.Size()
		displays = append(displays, DisplayInfo{
			ID:      i,
			Name:    m.Name(),
			Width:   w,
			Height:  h,
			Primary: i == 0,
		})
	}
	return displays
}

// EbitenOutput is the production display backend. It runs the ebiten game
// loop on the main goroutine, writes the newest composited frame into a
// GPU image each draw, pushes every key transition into the shared event
// queue and renders the advisory status line. All engine state stays on
// the other side of the two queues.
type EbitenOutput struct {
	cfg     *Config
	display DisplayInfo
	frames  *FrameQueue
	events  *EventQueue

	width  int
	height int

	img      *ebiten.Image
	statusFn func() string
	statusMu sync.RWMutex

	showStatus bool
	fullscreen bool
	running    atomic.Bool
	keysBuf    []ebiten.Key
}

func NewEbitenOutput(cfg *Config, display DisplayInfo, frames *FrameQueue, events *EventQueue) (*EbitenOutput, error) {
	width := display.Width
	height := display.Height
	if cfg.Display.Width > 0 && cfg.Display.Height > 0 {
		width = cfg.Display.Width
		height = cfg.Display.Height
	}
	if width <= 0 || height <= 0 {
		return nil, &VideoError{Operation: "init", Details: "no usable output resolution"}
	}
	return &EbitenOutput{
		cfg:        cfg,
		display:    display,
		frames:     frames,
		events:     events,
		width:      width,
		height:     height,
		showStatus: cfg.Display.StatusOverlay,
		fullscreen: cfg.Display.Fullscreen,
	}, nil
}

// SetStatusFunc installs the advisory status line provider (BPM, peers,
// effect flags). Safe to call before Run.
func (eo *EbitenOutput) SetStatusFunc(fn func() string) {
	eo.statusMu.Lock()
	eo.statusFn = fn
	eo.statusMu.Unlock()
}

func (eo *EbitenOutput) Size() (int, int) {
	return eo.width, eo.height
}

func (eo *EbitenOutput) Run() error {
	eo.running.Store(true)

	monitors := ebiten.AppendMonitors(nil)
	if eo.display.ID >= 0 && eo.display.ID < len(monitors) {
		ebiten.SetMonitor(monitors[eo.display.ID])
	}
	ebiten.SetWindowTitle(eo.cfg.Display.WindowName)
	ebiten.SetWindowSize(eo.width, eo.height)
	ebiten.SetFullscreen(eo.fullscreen)
	ebiten.SetVsyncEnabled(true)
	ebiten.SetRunnableOnUnfocused(true)

	err := ebiten.RunGame(eo)
	eo.running.Store(false)
	if err != nil && err != ebiten.Termination {
		return &VideoError{Operation: "run", Details: "game loop aborted", Err: err}
	}
	return nil
}

func (eo *EbitenOutput) Stop() {
	eo.running.Store(false)
}

func (eo *EbitenOutput) Update() error {
	if ebiten.IsWindowBeingClosed() || !eo.running.Load() {
		return ebiten.Termination
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		eo.fullscreen = !eo.fullscreen
		ebiten.SetFullscreen(eo.fullscreen)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		eo.showStatus = !eo.showStatus
	}

	// Forward raw key transitions; interpretation belongs to the engine.
	eo.keysBuf = inpututil.AppendJustPressedKeys(eo.keysBuf[:0])
	for _, k := range eo.keysBuf {
		eo.events.Push(InputEvent{Kind: EventKey, Code: int(k), Down: true})
	}
	eo.keysBuf = inpututil.AppendJustReleasedKeys(eo.keysBuf[:0])
	for _, k := range eo.keysBuf {
		eo.events.Push(InputEvent{Kind: EventKey, Code: int(k), Down: false})
	}
	return nil
}

func (eo *EbitenOutput) Draw(screen *ebiten.Image) {
	if frame, ok := eo.frames.Poll(); ok {
		w := frame.Bounds().Dx()
		h := frame.Bounds().Dy()
		if eo.img == nil || eo.img.Bounds().Dx() != w || eo.img.Bounds().Dy() != h {
			if eo.img != nil {
				eo.img.Deallocate()
			}
			eo.img = ebiten.NewImage(w, h)
			logrus.WithFields(logrus.Fields{"w": w, "h": h}).Debug("video: frame image allocated")
		}
		eo.img.WritePixels(frame.Pix)
	}
	if eo.img != nil {
		screen.DrawImage(eo.img, nil)
	}

	if eo.showStatus {
		eo.statusMu.RLock()
		fn := eo.statusFn
		eo.statusMu.RUnlock()
		if fn != nil {
			ebitenutil.DebugPrintAt(screen, fn(), 8, eo.height-24)
		}
	}
}

func (eo *EbitenOutput) Layout(outsideWidth, outsideHeight int) (int, int) {
	return eo.width, eo.height
}
