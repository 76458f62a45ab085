// video_interface.go - Display backend contract and display enumeration

/*
Visual Hive - beat-synchronised visual performance engine
https://github.com/visualhive/visual-hive
License: GPLv3 or later
*/

package main

import "fmt"

// VideoError provides detailed error context for display operations.
type VideoError struct {
	Operation string // what was being attempted
	Details   string // additional context
	Err       error  // underlying error if any
}

func (e *VideoError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("video %s failed: %s: %v", e.Operation, e.Details, e.Err)
	}
	return fmt.Sprintf("video %s failed: %s", e.Operation, e.Details)
}

func (e *VideoError) Unwrap() error { return e.Err }

// DisplayInfo describes one attached display for selection at startup.
type DisplayInfo struct {
	ID      int
	Name    string
	Width   int
	Height  int
	Primary bool
}

// VideoOutput is the display side of the engine: it owns the host window,
// polls the frame queue at the refresh cadence and forwards raw input
// transitions into the event queue. It never touches effect or asset
// state.
type VideoOutput interface {
	// Run blocks running the display loop until the window closes or Stop
	// is called. Must run on the main goroutine where the platform
	// requires it.
	Run() error
	// Stop asks the display loop to exit. Safe from any goroutine.
	Stop()
	// Size returns the output resolution frames should be composited at.
	Size() (int, int)
}

// Video backend selection, one real backend plus a headless one for tests
// and frame-drain measurement.
const (
	VIDEO_BACKEND_EBITEN = iota
	VIDEO_BACKEND_HEADLESS
)

// NewVideoOutput creates a display backend.
func NewVideoOutput(backend int, cfg *Config, display DisplayInfo, frames *FrameQueue, events *EventQueue) (VideoOutput, error) {
	switch backend {
	case VIDEO_BACKEND_EBITEN:
		return NewEbitenOutput(cfg, display, frames, events)
	case VIDEO_BACKEND_HEADLESS:
		return NewHeadlessOutput(display, frames), nil
	}
	return nil, &VideoError{Operation: "init", Details: fmt.Sprintf("unknown backend %d", backend)}
}
