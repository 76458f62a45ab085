// sync_session.go - Synchronisation session capability and local fallback

/*
Visual Hive - beat-synchronised visual performance engine
https://github.com/visualhive/visual-hive
License: GPLv3 or later
*/

package main

import (
	"sync"
	"time"
)

// SyncSession is the one capability the beat clock needs: a tempo, a
// monotonic microsecond timeline, and a beat grid over that timeline that
// can be re-anchored. An Ableton Link session provides all of it natively;
// LocalSession provides the same contract from the tempo estimator plus a
// free-running clock, so the rest of the engine behaves identically with or
// without peers on the network.
//
// BeatAt returns a continuous beat position: it grows without bound and is
// monotonically non-decreasing between ForceBeatAtTime calls. Reduction to
// a bar phase is the clock's business, not the session's.
type SyncSession interface {
	// CurrentTempo returns the session tempo in BPM, <= 0 when unknown.
	CurrentTempo() float64
	// MonotonicNow returns the session timeline position in microseconds.
	MonotonicNow() int64
	// BeatAt maps a timeline position to a continuous beat position on the
	// quantum grid.
	BeatAt(micros int64, quantum float64) float64
	// ForceBeatAtTime re-anchors the grid so that BeatAt(micros, quantum)
	// equals beat immediately afterwards. History is not rewritten.
	ForceBeatAtTime(beat float64, micros int64, quantum float64)
	// PeerCount reports connected session peers, 0 for a local session.
	PeerCount() int
	// Close releases the session.
	Close() error
}

const microsPerMinute = 60e6

// LocalSession is the detector-driven SyncSession. Tempo comes from a
// tempo provider (normally TempoEstimator.StableBPM) with a configured
// fallback while nothing has been detected yet, and time is a free-running
// monotonic clock started at construction.
//
// The beat grid is an anchor pair (refMicros, refBeat) advanced under the
// tempo it was established with: when the detected tempo moves, the anchor
// is brought forward to the change instant first, so elapsed time is never
// retroactively rescaled and the beat position stays continuous across
// tempo steps, the same way a Link session behaves.
type LocalSession struct {
	mu          sync.Mutex
	start       time.Time
	tempoFn     func() float64
	fallbackBPM float64
	refMicros   float64 // timeline anchor, fractional to keep re-anchoring exact
	refBeat     float64 // beat position at refMicros
	lastTempo   float64 // tempo the anchor was last advanced under
}

func NewLocalSession(tempoFn func() float64, fallbackBPM float64) *LocalSession {
	return &LocalSession{
		start:       time.Now(),
		tempoFn:     tempoFn,
		fallbackBPM: fallbackBPM,
	}
}

func (s *LocalSession) CurrentTempo() float64 {
	if s.tempoFn != nil {
		if bpm := s.tempoFn(); bpm > 0 {
			return bpm
		}
	}
	return s.fallbackBPM
}

func (s *LocalSession) MonotonicNow() int64 {
	return time.Since(s.start).Microseconds()
}

func (s *LocalSession) BeatAt(micros int64, quantum float64) float64 {
	tempo := s.CurrentTempo()
	if tempo <= 0 {
		// Frozen clock rather than a division by zero.
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adoptTempoLocked(tempo, micros)
	return s.refBeat + (float64(micros)-s.refMicros)*tempo/microsPerMinute
}

// adoptTempoLocked re-anchors the grid when the tempo provider moved: the
// beat accumulated under the old tempo is banked into refBeat at the
// observation instant, so the position is continuous there and only time
// after it runs at the new tempo.
func (s *LocalSession) adoptTempoLocked(tempo float64, micros int64) {
	if tempo == s.lastTempo {
		return
	}
	if s.lastTempo > 0 {
		s.refBeat += (float64(micros) - s.refMicros) * s.lastTempo / microsPerMinute
		s.refMicros = float64(micros)
	}
	s.lastTempo = tempo
}

func (s *LocalSession) ForceBeatAtTime(beat float64, micros int64, quantum float64) {
	tempo := s.CurrentTempo()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refMicros = float64(micros)
	s.refBeat = beat
	if tempo > 0 {
		s.lastTempo = tempo
	}
}

func (s *LocalSession) PeerCount() int { return 0 }

func (s *LocalSession) Close() error { return nil }
