// audio_monitor.go - Operator click track synthesised from the beat clock

/*
Visual Hive - beat-synchronised visual performance engine
https://github.com/visualhive/visual-hive
License: GPLv3 or later
*/

package main

import (
	"encoding/binary"
	"math"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
)

const (
	monitorSampleRate = 44100
	clickDuration     = 0.03 // seconds
	clickFreq         = 1000.0
	downbeatFreq      = 1500.0
	clickGain         = 0.4
)

// AudioMonitor plays a short click on every beat (a higher-pitched one on
// the downbeat) so the operator can verify sync against the room by ear.
// It reads the beat clock and nothing else; toggling it on and off is a
// key binding. Synthesis happens in the audio callback's Read, which only
// touches atomics and local state.
type AudioMonitor struct {
	ctx    *oto.Context
	player *oto.Player
	clock  *BeatClock

	enabled atomic.Bool

	lastWhole  int64
	haveWhole  bool
	clickPos   int // samples into the current click, past the end = silent
	clickLen   int
	clickPitch float64
}

func NewAudioMonitor(clock *BeatClock) (*AudioMonitor, error) {
	m := &AudioMonitor{
		clock:    clock,
		clickLen: int(clickDuration * monitorSampleRate),
	}
	m.clickPos = m.clickLen

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   monitorSampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, err
	}
	<-ready

	m.ctx = ctx
	m.player = ctx.NewPlayer(m)
	m.player.Play()
	return m, nil
}

// Toggle flips the monitor and reports the new state.
func (m *AudioMonitor) Toggle() bool {
	for {
		old := m.enabled.Load()
		if m.enabled.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

func (m *AudioMonitor) Enabled() bool { return m.enabled.Load() }

// Read synthesises the click stream. Called by the audio backend.
func (m *AudioMonitor) Read(p []byte) (int, error) {
	n := len(p) / 4 * 4
	if !m.enabled.Load() {
		for i := 0; i < n; i++ {
			p[i] = 0
		}
		m.haveWhole = false
		return n, nil
	}

	beat := m.clock.Beat()
	whole := int64(math.Floor(beat))
	if m.haveWhole && whole != m.lastWhole {
		m.clickPos = 0
		m.clickPitch = clickFreq
		if m.clock.Phase(beat) < 1 {
			m.clickPitch = downbeatFreq
		}
	}
	m.lastWhole = whole
	m.haveWhole = true

	for i := 0; i+4 <= n; i += 4 {
		var sample float32
		if m.clickPos < m.clickLen {
			t := float64(m.clickPos) / monitorSampleRate
			env := 1 - float64(m.clickPos)/float64(m.clickLen)
			sample = float32(clickGain * env * math.Sin(2*math.Pi*m.clickPitch*t))
			m.clickPos++
		}
		binary.LittleEndian.PutUint32(p[i:], math.Float32bits(sample))
	}
	return n, nil
}

func (m *AudioMonitor) Close() {
	if m.player != nil {
		m.player.Close()
	}
}
