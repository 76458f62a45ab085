// video_backend_headless.go - Headless display backend for tests and soak runs

/*
Visual Hive - beat-synchronised visual performance engine
https://github.com/visualhive/visual-hive
License: GPLv3 or later
*/

package main

import (
	"sync/atomic"
	"time"
)

const headlessRefreshRate = 60

// HeadlessOutput drains the frame queue at a fixed refresh cadence without
// a window. It exists so the engine can be exercised end to end in tests
// and on machines with no display.
type HeadlessOutput struct {
	display DisplayInfo
	frames  *FrameQueue
	running atomic.Bool
	done    chan struct{}

	framesSeen atomic.Uint64
}

func NewHeadlessOutput(display DisplayInfo, frames *FrameQueue) *HeadlessOutput {
	return &HeadlessOutput{
		display: display,
		frames:  frames,
		done:    make(chan struct{}),
	}
}

func (ho *HeadlessOutput) Size() (int, int) {
	return ho.display.Width, ho.display.Height
}

func (ho *HeadlessOutput) Run() error {
	ho.running.Store(true)
	ticker := time.NewTicker(time.Second / headlessRefreshRate)
	defer ticker.Stop()
	for ho.running.Load() {
		select {
		case <-ticker.C:
			if _, ok := ho.frames.Poll(); ok {
				ho.framesSeen.Add(1)
			}
		case <-ho.done:
			return nil
		}
	}
	return nil
}

func (ho *HeadlessOutput) Stop() {
	if ho.running.CompareAndSwap(true, false) {
		close(ho.done)
	}
}

// FramesSeen reports how many distinct frames the drain loop consumed.
func (ho *HeadlessOutput) FramesSeen() uint64 {
	return ho.framesSeen.Load()
}
