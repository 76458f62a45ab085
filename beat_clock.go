// beat_clock.go - Beat phase clock over a synchronisation session

/*
Visual Hive - beat-synchronised visual performance engine
https://github.com/visualhive/visual-hive
License: GPLv3 or later
*/

package main

import "math"

// BeatClock is a thin adapter over whichever SyncSession is installed. It
// owns no timeline state of its own: tempo, time and the beat grid all come
// from the session, so swapping a LocalSession for an Ableton Link session
// changes nothing downstream.
type BeatClock struct {
	session SyncSession
	quantum float64 // beats per bar / phrase length
}

func NewBeatClock(session SyncSession, quantum float64) *BeatClock {
	if quantum <= 0 {
		quantum = 4
	}
	return &BeatClock{session: session, quantum: quantum}
}

func (c *BeatClock) Tempo() float64 {
	return c.session.CurrentTempo()
}

func (c *BeatClock) Quantum() float64 {
	return c.quantum
}

func (c *BeatClock) PeerCount() int {
	return c.session.PeerCount()
}

// Now returns the session timeline position in microseconds.
func (c *BeatClock) Now() int64 {
	return c.session.MonotonicNow()
}

// Beat returns the continuous beat position at the current instant.
// Monotonically non-decreasing between resyncs for a constant tempo > 0;
// 0 while the tempo is unknown (the clock freezes, it never divides by a
// non-positive tempo).
func (c *BeatClock) Beat() float64 {
	return c.session.BeatAt(c.session.MonotonicNow(), c.quantum)
}

// BeatAt is Beat at an explicit timeline position.
func (c *BeatClock) BeatAt(micros int64) float64 {
	return c.session.BeatAt(micros, c.quantum)
}

// Phase reduces a continuous beat position to [0, quantum).
func (c *BeatClock) Phase(beat float64) float64 {
	phase := math.Mod(beat, c.quantum)
	if phase < 0 {
		phase += c.quantum
	}
	return phase
}

// Resync snaps the grid so the current instant becomes an exact beat
// boundary: the fractional phase is dropped and the resulting whole beat is
// forced at now. Phase error is zero at the instant of the call; beats
// before the call keep their history. Returns the beat position that was
// forced, which the cue scheduler records as its phrase displacement.
func (c *BeatClock) Resync() float64 {
	now := c.session.MonotonicNow()
	cur := c.session.BeatAt(now, c.quantum)
	corrected := cur - math.Mod(cur, 1)
	c.session.ForceBeatAtTime(corrected, now, c.quantum)
	return corrected
}
