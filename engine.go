// engine.go - Orchestration loop: events, effects, composition, handoff

/*
Visual Hive - beat-synchronised visual performance engine
https://github.com/visualhive/visual-hive
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// activeAsset pairs a selected asset with its open handle.
type activeAsset struct {
	asset  *VisualAsset
	handle AssetHandle
}

// Engine is the production side: it owns the beat clock, the effect
// machines and the active/queued asset handles, drains the input queue
// non-blockingly once per iteration, composites one frame and pushes it to
// the handoff queue. It runs on its own goroutine; the display and tempo
// goroutines only ever see the queues and atomics.
type Engine struct {
	cfg      *Config
	clock    *BeatClock
	assets   *AssetManager
	bindings *Bindings
	events   *EventQueue
	frames   *FrameQueue
	comp     *Compositor

	bounce *BounceEffect
	strobe *StrobeEffect
	cue    *CueEffect

	monitor *AudioMonitor // optional

	background activeAsset
	foreground activeAsset

	running atomic.Bool
	status  atomic.Value // string, last published status line
	done    chan struct{}
	stopped chan struct{}
}

func NewEngine(cfg *Config, clock *BeatClock, assets *AssetManager, bindings *Bindings, events *EventQueue, frames *FrameQueue, width, height int) *Engine {
	return &Engine{
		cfg:      cfg,
		clock:    clock,
		assets:   assets,
		bindings: bindings,
		events:   events,
		frames:   frames,
		comp:     NewCompositor(width, height),
		bounce:   NewBounceEffect(cfg.Engine.BounceAmplitude),
		strobe:   NewStrobeEffect(cfg.Engine.StrobeFactor),
		cue:      NewCueEffect(cfg.Engine.CueInterval, cfg.Engine.CueEpsilon),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// SetMonitor attaches the optional audio monitor. Call before Start.
func (e *Engine) SetMonitor(m *AudioMonitor) { e.monitor = m }

// Start opens the initial assets and fails when no background can be
// opened: a VJ engine with nothing to show should not enter its hot loop.
func (e *Engine) Start() error {
	for _, asset := range e.assets.ByType(AssetBackground) {
		handle, err := OpenAsset(asset)
		if err != nil {
			logrus.WithError(err).WithField("asset", asset.Path).Warn("engine: background unusable")
			continue
		}
		e.background = activeAsset{asset: asset, handle: handle}
		break
	}
	if e.background.handle == nil {
		return fmt.Errorf("no usable background asset")
	}
	if fgs := e.assets.ByType(AssetForeground); len(fgs) > 0 {
		if handle, err := OpenAsset(fgs[0]); err == nil {
			e.foreground = activeAsset{asset: fgs[0], handle: handle}
		} else {
			logrus.WithError(err).WithField("asset", fgs[0].Path).Warn("engine: foreground unusable")
		}
	}
	e.publishStatus()
	return nil
}

// Run executes the production loop until Stop. One iteration: drain
// events, evaluate the three effect machines against the current beat,
// composite, push. The cadence follows the active background's native
// frame rate.
func (e *Engine) Run() {
	e.running.Store(true)
	defer close(e.stopped)
	defer e.closeAssets()

	for e.running.Load() {
		iterStart := time.Now()

		e.drainEvents()
		if !e.running.Load() {
			return
		}

		// Clone so the queue owns the frame wholesale; the compositor keeps
		// reusing its canvas.
		if frame := e.produceFrame(iterStart); frame != nil {
			e.frames.Push(CloneFrame(frame))
		}
		e.publishStatus()

		fps := defaultAssetFPS
		if e.background.handle != nil {
			if f := e.background.handle.FPS(); f > 0 {
				fps = f
			}
		}
		frameDur := time.Duration(float64(time.Second) / fps)
		elapsed := time.Since(iterStart)
		if sleep := frameDur - elapsed; sleep > 0 {
			select {
			case <-time.After(sleep):
			case <-e.done:
				return
			}
		}
	}
}

// Stop ends the loop from any goroutine and waits for resources to be
// released.
func (e *Engine) Stop() {
	if e.running.CompareAndSwap(true, false) {
		close(e.done)
		<-e.stopped
	}
}

func (e *Engine) closeAssets() {
	if e.background.handle != nil {
		_ = e.background.handle.Close()
		e.background = activeAsset{}
	}
	if e.foreground.handle != nil {
		_ = e.foreground.handle.Close()
		e.foreground = activeAsset{}
	}
}

// drainEvents empties the input queue without ever waiting on it.
func (e *Engine) drainEvents() {
	for {
		ev, ok := e.events.Pop()
		if !ok {
			return
		}
		e.handleEvent(ev)
	}
}

func (e *Engine) handleEvent(ev InputEvent) {
	now := time.Now()
	switch ev.Code {
	case e.bindings.Quit:
		if ev.Down {
			logrus.Info("engine: quit requested")
			e.running.Store(false)
		}
		return
	case e.bindings.Resync:
		if ev.Down {
			forced := e.clock.Resync()
			e.cue.SetDisplacement(forced)
			logrus.WithFields(logrus.Fields{
				"beat":         forced,
				"displacement": e.cue.Displacement(),
			}).Info("engine: manual resync")
		}
		return
	case e.bindings.Bounce:
		if ev.Down {
			e.bounce.SetEnabled(!e.bounce.Enabled())
			logrus.WithField("active", e.bounce.Enabled()).Info("engine: bounce toggled")
		}
		return
	case e.bindings.Strobe:
		// Held control: press activates, release deactivates.
		if ev.Down {
			e.strobe.Press(now, e.clock.Tempo())
		} else {
			e.strobe.Release()
		}
		logrus.WithField("active", e.strobe.Active()).Debug("engine: strobe state")
		return
	case e.bindings.Cue:
		if ev.Down {
			e.cue.SetActive(!e.cue.Active())
			logrus.WithField("active", e.cue.Active()).Info("engine: cue toggled")
		}
		return
	case e.bindings.Monitor:
		if ev.Down && e.monitor != nil {
			logrus.WithField("active", e.monitor.Toggle()).Info("engine: audio monitor toggled")
		}
		return
	}

	if !ev.Down {
		return
	}
	if asset := e.bindings.AssetFor(ev.Code); asset != nil {
		e.selectAsset(asset)
	}
}

// selectAsset applies a selection immediately, or parks it when cue mode
// is holding changes for the phrase boundary.
func (e *Engine) selectAsset(asset *VisualAsset) {
	if e.cue.Queue(asset) {
		logrus.WithField("asset", asset.Path).Info("engine: selection queued for cue")
		return
	}
	e.switchTo(asset)
}

// switchTo swaps the active asset of the selection's kind. On open
// failure the previous asset stays active and the change is discarded.
func (e *Engine) switchTo(asset *VisualAsset) {
	slot := &e.background
	if asset.Type == AssetForeground {
		slot = &e.foreground
	}
	if slot.asset == asset {
		return
	}

	handle, err := OpenAsset(asset)
	if err != nil {
		logrus.WithError(err).WithField("asset", asset.Path).Error("engine: asset open failed, keeping current")
		return
	}
	if slot.handle != nil {
		_ = slot.handle.Close()
	}
	*slot = activeAsset{asset: asset, handle: handle}
	logrus.WithFields(logrus.Fields{
		"asset": asset.Path,
		"kind":  asset.Type.String(),
	}).Info("engine: switched asset")
}

// applyCue performs the bar-quantised transition: adopt the parked
// selection per kind, or a random pool asset when nothing is parked.
func (e *Engine) applyCue() {
	for _, kind := range []AssetType{AssetBackground, AssetForeground} {
		next := e.cue.TakeQueued(kind)
		if next == nil {
			current := e.background.asset
			if kind == AssetForeground {
				current = e.foreground.asset
			}
			next = e.assets.Random(kind, current)
		}
		if next != nil {
			e.switchTo(next)
		}
	}
}

// produceFrame evaluates the effect machines once and composites the
// resulting frame. Per-iteration errors are contained here; the loop never
// dies to a bad frame.
func (e *Engine) produceFrame(now time.Time) *image.RGBA {
	beat := e.clock.Beat()
	tempo := e.clock.Tempo()

	scale := e.bounce.Update(now, beat, tempo)
	flash := e.strobe.Update(now, tempo)
	if e.cue.Update(beat) {
		logrus.WithField("beat", beat).Info("engine: cue boundary")
		e.applyCue()
	}

	if flash {
		return e.comp.FlashFrame()
	}

	var bg *image.RGBA
	if e.background.handle != nil {
		frame, err := e.background.handle.NextFrame()
		if err != nil {
			logrus.WithError(err).Warn("engine: background frame unavailable")
		} else {
			bg = frame
		}
	}
	out := e.comp.ScaleToFit(bg)

	if e.foreground.handle != nil && e.foreground.asset != nil {
		fg, err := e.foreground.handle.NextFrame()
		if err == nil {
			e.comp.BlendForeground(out, fg, e.foreground.asset.Tint, e.foreground.asset.ScalePercent, scale)
		} else {
			logrus.WithError(err).Warn("engine: foreground frame unavailable")
		}
	}
	return out
}

// publishStatus renders the advisory diagnostic line and stores it for
// readers. Only the production goroutine calls this; the effect machines
// it reads are never touched from anywhere else.
func (e *Engine) publishStatus() {
	flags := ""
	if e.bounce.Enabled() {
		flags += " bounce"
	}
	if e.strobe.Active() {
		flags += " strobe"
	}
	if e.cue.Active() {
		flags += " cue"
	}
	if e.monitor != nil && e.monitor.Enabled() {
		flags += " monitor"
	}
	e.status.Store(fmt.Sprintf("%.0f BPM | %d peer(s) | drops %d |%s",
		e.clock.Tempo(), e.clock.PeerCount(), e.frames.Drops(), flags))
}

// StatusLine returns the status published by the last loop iteration. Safe
// from any goroutine; the display overlay polls it every draw.
func (e *Engine) StatusLine() string {
	s, _ := e.status.Load().(string)
	return s
}

// Running reports whether the production loop is still live.
func (e *Engine) Running() bool { return e.running.Load() }
