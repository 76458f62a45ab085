// tempo_estimator.go - Smoothing of raw tempo candidates into one stable BPM

/*
Visual Hive - beat-synchronised visual performance engine
https://github.com/visualhive/visual-hive
License: GPLv3 or later
*/

package main

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
)

// Smoothing constants. Tuned against live specflux detector output; the
// tolerance band is the hysteresis that keeps the published BPM from
// oscillating between adjacent integers.
const (
	tempoWindowSize          = 15
	percentageTolerance      = 0.1
	initialRoundingTolerance = 0.2
	minRoundingTolerance     = 0.01
	maxRoundingTolerance     = 0.5
	toleranceShrinkRate      = 0.05
	toleranceGrowthRate      = 0.1
	medianBiasCorrection     = 0.015
	halfTempoThreshold       = 100.0
)

// TempoEstimator turns a noisy stream of per-block tempo candidates into a
// single stable integer-valued BPM. Ingest is cheap and may run at the
// detector's cadence; Recalculate is meant to run on its own slower cadence
// (the tempo loop uses 500ms) and publishes the new stable value.
//
// StableBPM is lock-free and safe from any goroutine; everything else is
// guarded by one mutex held only for short window operations.
type TempoEstimator struct {
	mu sync.Mutex

	// window is time-ordered, sorted is value-ordered. Both always hold
	// the same multiset of accepted samples.
	window []float64
	sorted []float64
	size   int

	tolerance  float64
	rejections int // consecutive full-window rejections

	stable atomic.Uint64 // float64 bits of the published BPM
}

func NewTempoEstimator(windowSize int) *TempoEstimator {
	if windowSize <= 0 {
		windowSize = tempoWindowSize
	}
	return &TempoEstimator{
		window:    make([]float64, 0, windowSize),
		sorted:    make([]float64, 0, windowSize),
		size:      windowSize,
		tolerance: initialRoundingTolerance,
	}
}

// StableBPM returns the last published stable tempo, 0 before the first
// successful recalculation.
func (e *TempoEstimator) StableBPM() float64 {
	return math.Float64frombits(e.stable.Load())
}

func (e *TempoEstimator) publish(bpm float64) {
	e.stable.Store(math.Float64bits(bpm))
}

// Tolerance reports the current hysteresis band. Test hook and diagnostics.
func (e *TempoEstimator) Tolerance() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tolerance
}

// WindowLen reports how many samples the window currently holds.
func (e *TempoEstimator) WindowLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.window)
}

// Ingest accepts one raw tempo candidate. Candidates below the half-tempo
// threshold are doubled first: onset detectors habitually lock onto half
// time for four-on-the-floor material. Once the window is full, candidates
// outside [min - tol*current, max + tol*current] are rejected as outliers;
// a full window's worth of consecutive rejections is taken as a genuine
// tempo change and flushes the window so the estimator can re-lock.
func (e *TempoEstimator) Ingest(candidate float64) {
	if candidate <= 0 || math.IsNaN(candidate) || math.IsInf(candidate, 0) {
		return
	}
	if candidate < halfTempoThreshold {
		candidate *= 2
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.window) >= e.size {
		current := e.StableBPM()
		min := e.sorted[0]
		max := e.sorted[len(e.sorted)-1]
		if candidate < min-current*percentageTolerance || candidate > max+current*percentageTolerance {
			e.rejections++
			if e.rejections <= e.size {
				return
			}
			// The "outliers" are the new tempo. Start over.
			e.window = e.window[:0]
			e.sorted = e.sorted[:0]
			e.tolerance = initialRoundingTolerance
		}
		e.rejections = 0
	} else {
		e.rejections = 0
	}

	e.window = append(e.window, candidate)
	i := sort.SearchFloat64s(e.sorted, candidate)
	e.sorted = append(e.sorted, 0)
	copy(e.sorted[i+1:], e.sorted[i:])
	e.sorted[i] = candidate

	if len(e.window) > e.size {
		oldest := e.window[0]
		e.window = e.window[1:]
		j := sort.SearchFloat64s(e.sorted, oldest)
		e.sorted = append(e.sorted[:j], e.sorted[j+1:]...)
	}
}

// median computes the window median from the sorted view: middle element
// for odd lengths, mean of the two middle elements for even lengths.
func (e *TempoEstimator) median() float64 {
	n := len(e.sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 0 {
		return (e.sorted[n/2-1] + e.sorted[n/2]) / 2
	}
	return e.sorted[n/2]
}

// Recalculate derives a new stable BPM from the current window and
// publishes it. The window median is first corrected downward by a fixed
// 1.5% (the specflux detector reads consistently sharp), then snapped to an
// integer through the adaptive hysteresis band:
//
//   - strong evidence that the tempo moved past the rounding threshold in
//     the direction of the change snaps immediately and resets the band;
//   - a corrected value within tolerance of floor or ceil rounds normally,
//     shrinking the band while the result confirms the current value;
//   - anything in the ambiguous middle steps exactly one integer toward
//     the current value and widens the band.
//
// An empty window leaves the published value untouched.
func (e *TempoEstimator) Recalculate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	median := e.median()
	if median == 0 {
		return e.StableBPM()
	}

	current := e.StableBPM()
	if current <= 0 {
		// Nothing established yet: no hysteresis to apply and no
		// steady-state bias to correct against. Take the median.
		rounded := math.Round(median)
		e.tolerance = initialRoundingTolerance
		e.publish(rounded)
		return rounded
	}

	corrected := median - median*medianBiasCorrection
	floor := math.Floor(corrected)
	ceil := math.Ceil(corrected)

	var rounded float64
	strongEvidence := (corrected > current && corrected > ceil+0.1) ||
		(corrected < current && corrected < floor+0.1)

	switch {
	case strongEvidence:
		e.tolerance = initialRoundingTolerance
		rounded = math.Round(corrected)
	case math.Abs(corrected-floor) < e.tolerance || math.Abs(corrected-ceil) < e.tolerance:
		rounded = math.Round(corrected)
		if rounded == current {
			e.tolerance = math.Max(minRoundingTolerance, e.tolerance-toleranceShrinkRate)
		} else {
			e.tolerance = initialRoundingTolerance
		}
	default:
		if corrected < current {
			rounded = ceil
		} else {
			rounded = floor
		}
		e.tolerance = math.Min(maxRoundingTolerance, e.tolerance+toleranceGrowthRate)
	}

	e.publish(rounded)
	return rounded
}
