// tempo_source.go - Tempo detection boundary and the smoothing cadence loop

/*
Visual Hive - beat-synchronised visual performance engine
https://github.com/visualhive/visual-hive
License: GPLv3 or later
*/

package main

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// TempoReading is one raw tempo candidate from the detection front end.
// Readings are consumed once and not retained beyond the current
// calculation interval.
type TempoReading struct {
	When time.Time
	BPM  float64
}

// TempoDetector is the boundary to the DSP front end that captures audio
// and produces raw tempo candidates. The detector owns its capture thread
// and cadence; it must call emit from its callback without blocking
// assumptions — Offer on the loop holds its lock only briefly.
type TempoDetector interface {
	Start(emit func(TempoReading)) error
	Stop() error
}

// newPlatformTempoDetector returns the platform's audio-capture detector,
// nil when the build carries none. Wire an implementation here the same
// way the video backends are selected.
func newPlatformTempoDetector() TempoDetector {
	return nil
}

const tempoCalcInterval = 500 * time.Millisecond

// TempoLoop buffers raw candidates between calculation ticks and drives the
// estimator on its own fixed cadence, decoupled from whatever rate the
// detector emits at. Candidates within one interval are kept value-sorted;
// the representative handed to the estimator is the third-smallest, which
// discards the low stragglers a tempo detector produces while re-locking.
type TempoLoop struct {
	estimator *TempoEstimator

	mu      sync.Mutex
	pending []float64

	running atomic.Bool
	done    chan struct{}
}

func NewTempoLoop(estimator *TempoEstimator) *TempoLoop {
	l := &TempoLoop{
		estimator: estimator,
		done:      make(chan struct{}),
	}
	// Armed at construction so observers started alongside Run never see a
	// not-yet-running window.
	l.running.Store(true)
	return l
}

// Offer records one raw reading. Called from the detector's capture
// callback; the lock is held only for a sorted insert. Malformed readings
// are skipped, never propagated.
func (l *TempoLoop) Offer(r TempoReading) {
	if r.BPM <= 0 {
		return
	}
	l.mu.Lock()
	i := sort.SearchFloat64s(l.pending, r.BPM)
	l.pending = append(l.pending, 0)
	copy(l.pending[i+1:], l.pending[i:])
	l.pending[i] = r.BPM
	l.mu.Unlock()
}

// Run executes the calculation cadence until Stop. One tick takes the
// buffered readings, feeds the representative into the estimator, and
// recomputes the stable BPM. Runs on its own goroutine.
func (l *TempoLoop) Run() {
	ticker := time.NewTicker(tempoCalcInterval)
	defer ticker.Stop()

	var lastPublished float64
	for l.running.Load() {
		select {
		case <-ticker.C:
		case <-l.done:
			return
		}

		l.mu.Lock()
		pending := l.pending
		l.pending = nil
		l.mu.Unlock()

		if len(pending) == 0 {
			continue
		}
		// Third-smallest when available, otherwise the best we have.
		idx := 2
		if idx >= len(pending) {
			idx = len(pending) - 1
		}
		l.estimator.Ingest(pending[idx])
		bpm := l.estimator.Recalculate()
		if bpm != lastPublished && bpm > 0 {
			logrus.WithFields(logrus.Fields{
				"bpm":       bpm,
				"tolerance": l.estimator.Tolerance(),
			}).Info("tempo: stable BPM changed")
			lastPublished = bpm
		}
	}
}

// Running reports whether the cadence loop is live.
func (l *TempoLoop) Running() bool { return l.running.Load() }

// Stop ends the loop. Idempotent.
func (l *TempoLoop) Stop() {
	if l.running.CompareAndSwap(true, false) {
		close(l.done)
	}
}
