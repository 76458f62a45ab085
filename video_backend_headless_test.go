// video_backend_headless_test.go - Tests for the headless display backend

package main

import (
	"image"
	"testing"
	"time"
)

func TestHeadlessOutputDrainsFrames(t *testing.T) {
	frames := NewFrameQueue()
	ho := NewHeadlessOutput(DisplayInfo{Name: "headless", Width: 32, Height: 32}, frames)

	if w, h := ho.Size(); w != 32 || h != 32 {
		t.Fatalf("size: %dx%d", w, h)
	}

	done := make(chan error, 1)
	go func() { done <- ho.Run() }()

	deadline := time.Now().Add(2 * time.Second)
	for ho.FramesSeen() == 0 && time.Now().Before(deadline) {
		frames.Push(image.NewRGBA(image.Rect(0, 0, 32, 32)))
		time.Sleep(5 * time.Millisecond)
	}
	ho.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("headless loop did not exit after Stop")
	}
	if ho.FramesSeen() == 0 {
		t.Fatal("no frames drained")
	}
}

func TestHeadlessOutputStopIdempotent(t *testing.T) {
	ho := NewHeadlessOutput(DisplayInfo{Width: 8, Height: 8}, NewFrameQueue())
	go func() { _ = ho.Run() }()
	time.Sleep(10 * time.Millisecond)
	ho.Stop()
	ho.Stop()
}

func TestNewVideoOutputSelectsBackend(t *testing.T) {
	cfg := defaultConfig()
	display := DisplayInfo{Width: 8, Height: 8}
	out, err := NewVideoOutput(VIDEO_BACKEND_HEADLESS, cfg, display, NewFrameQueue(), NewEventQueue())
	if err != nil {
		t.Fatalf("headless backend: %v", err)
	}
	if _, ok := out.(*HeadlessOutput); !ok {
		t.Fatalf("wrong backend type: %T", out)
	}

	if _, err := NewVideoOutput(99, cfg, display, NewFrameQueue(), NewEventQueue()); err == nil {
		t.Fatal("unknown backend accepted")
	}
}
