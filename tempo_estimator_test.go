// tempo_estimator_test.go - Tests for tempo smoothing and adaptive rounding

package main

import (
	"math"
	"math/rand"
	"testing"
)

// sameMultiset reports whether a and b hold the same values regardless of
// order.
func sameMultiset(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[float64]int, len(a))
	for _, v := range a {
		counts[v]++
	}
	for _, v := range b {
		counts[v]--
		if counts[v] < 0 {
			return false
		}
	}
	return true
}

func TestWindowViewsStayConsistent(t *testing.T) {
	e := NewTempoEstimator(5)
	inputs := []float64{120, 122, 118, 125, 121, 119, 123, 124, 120, 122}
	for _, v := range inputs {
		e.Ingest(v)
		if !sameMultiset(e.window, e.sorted) {
			t.Fatalf("after ingest %v: window %v and sorted %v diverged", v, e.window, e.sorted)
		}
		for i := 1; i < len(e.sorted); i++ {
			if e.sorted[i-1] > e.sorted[i] {
				t.Fatalf("sorted view out of order: %v", e.sorted)
			}
		}
		if len(e.window) > 5 {
			t.Fatalf("window exceeded capacity: %d", len(e.window))
		}
	}
}

func TestMedianOddAndEven(t *testing.T) {
	e := NewTempoEstimator(5)
	for _, v := range []float64{120, 124, 122} {
		e.Ingest(v)
	}
	if got := e.median(); got != 122 {
		t.Fatalf("odd-length median: got %v, want 122", got)
	}
	e.Ingest(126)
	if got := e.median(); got != 123 {
		t.Fatalf("even-length median: got %v, want 123", got)
	}
}

func TestHalfTempoCandidatesAreDoubled(t *testing.T) {
	e := NewTempoEstimator(5)
	e.Ingest(70)
	if e.window[0] != 140 {
		t.Fatalf("candidate below 100 not doubled: got %v", e.window[0])
	}
	e.Ingest(100)
	if e.window[1] != 100 {
		t.Fatalf("candidate at threshold must pass through: got %v", e.window[1])
	}
}

func TestMalformedCandidatesSkipped(t *testing.T) {
	e := NewTempoEstimator(5)
	for _, v := range []float64{0, -10, math.NaN(), math.Inf(1), math.Inf(-1)} {
		e.Ingest(v)
	}
	if e.WindowLen() != 0 {
		t.Fatalf("malformed candidates entered the window: len %d", e.WindowLen())
	}
	if got := e.Recalculate(); got != 0 {
		t.Fatalf("empty window must leave published value at 0, got %v", got)
	}
}

func TestToleranceNeverLeavesBounds(t *testing.T) {
	e := NewTempoEstimator(8)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		e.Ingest(100 + rng.Float64()*80)
		if i%3 == 0 {
			e.Recalculate()
		}
		tol := e.Tolerance()
		if tol < minRoundingTolerance || tol > maxRoundingTolerance {
			t.Fatalf("iteration %d: tolerance %v outside [%v, %v]", i, tol, minRoundingTolerance, maxRoundingTolerance)
		}
	}
}

func TestFirstStableComputation(t *testing.T) {
	e := NewTempoEstimator(8)
	for _, v := range []float64{118, 119, 118, 120, 119, 121, 119, 120} {
		e.Ingest(v)
	}
	if got := e.Recalculate(); got != 119 {
		t.Fatalf("first stable computation: got %v, want 119", got)
	}
	if got := e.StableBPM(); got != 119 {
		t.Fatalf("StableBPM after publish: got %v, want 119", got)
	}
}

// A detector tracking a 140 BPM source reads consistently sharp; steady
// readings around 142.13 land on exactly 140 after the fixed bias
// correction. The estimator must abandon its old lock, converge, and damp
// its tolerance once converged.
func TestConvergesAfterTempoChange(t *testing.T) {
	e := NewTempoEstimator(8)
	for _, v := range []float64{118, 119, 118, 120, 119, 121, 119, 120} {
		e.Ingest(v)
	}
	if got := e.Recalculate(); got != 119 {
		t.Fatalf("initial lock: got %v, want 119", got)
	}

	for i := 0; i < 60; i++ {
		e.Ingest(142.13)
		e.Recalculate()
	}

	if got := e.StableBPM(); got != 140 {
		t.Fatalf("after tempo change: got %v, want 140", got)
	}
	if tol := e.Tolerance(); tol > minRoundingTolerance+1e-9 {
		t.Fatalf("tolerance did not damp after convergence: %v", tol)
	}

	// Converged: further identical readings must not move the value.
	for i := 0; i < 20; i++ {
		e.Ingest(142.13)
		if got := e.Recalculate(); got != 140 {
			t.Fatalf("oscillation after convergence: got %v", got)
		}
	}
}

func TestOutlierRejectionOnFullWindow(t *testing.T) {
	e := NewTempoEstimator(4)
	for _, v := range []float64{120, 121, 119, 120} {
		e.Ingest(v)
	}
	e.Recalculate()

	before := append([]float64(nil), e.sorted...)
	e.Ingest(180) // far outside [min - tol*cur, max + tol*cur]
	if !sameMultiset(before, e.sorted) {
		t.Fatalf("outlier entered the window: %v", e.sorted)
	}

	// An in-band candidate resets the rejection streak.
	e.Ingest(120.5)
	if e.rejections != 0 {
		t.Fatalf("rejection streak not reset: %d", e.rejections)
	}
}
