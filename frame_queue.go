// frame_queue.go - Latest-frame-wins handoff between producer and display

/*
Visual Hive - beat-synchronised visual performance engine
https://github.com/visualhive/visual-hive
License: GPLv3 or later
*/

package main

import (
	"image"
	"sync"
	"sync/atomic"
)

// FrameQueue hands composited frames from the production goroutine to the
// display goroutine. It holds at most one frame: a Push while the previous
// frame is still unconsumed overwrites it. The display never renders the
// same frame twice when a newer one exists, and a swap is never observed
// half-done.
//
// Single producer, single consumer. Both sides are non-blocking.
type FrameQueue struct {
	mu    sync.Mutex
	frame *image.RGBA
	seq   uint64 // sequence of the stored frame, 0 = none yet
	taken uint64 // sequence last handed out by Poll
	drops atomic.Uint64
}

func NewFrameQueue() *FrameQueue {
	return &FrameQueue{}
}

// Push installs frame as the one the display will pick up next. If the
// previous frame was never polled it is discarded and counted as a drop.
func (q *FrameQueue) Push(frame *image.RGBA) {
	if frame == nil {
		return
	}
	q.mu.Lock()
	if q.seq > q.taken {
		q.drops.Add(1)
	}
	q.frame = frame
	q.seq++
	q.mu.Unlock()
}

// Poll returns the most recent frame if one arrived since the last Poll.
// The second result is false when nothing new is available.
func (q *FrameQueue) Poll() (*image.RGBA, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.seq == q.taken {
		return nil, false
	}
	q.taken = q.seq
	return q.frame, true
}

// Drops reports how many pushed frames were overwritten before the display
// consumed them. Advisory only.
func (q *FrameQueue) Drops() uint64 {
	return q.drops.Load()
}
