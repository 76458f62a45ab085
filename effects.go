// effects.go - Beat-aware effect state machines: bounce, strobe, cue

/*
Visual Hive - beat-synchronised visual performance engine
https://github.com/visualhive/visual-hive
License: GPLv3 or later
*/

package main

import (
	"math"
	"time"
)

// The three effects are independent state machines evaluated once per
// produced frame by the orchestration loop. None of them touch assets or
// pixels directly: bounce yields a scale factor, strobe yields a flash
// flag, cue yields a "switch now" edge that the engine acts on.

// BounceEffect pulses the foreground scale once per beat. It idles until a
// new whole beat is crossed while enabled, then runs a one-beat envelope
//
//	scale(p) = 1 + A*sin(p*pi), p in [0,1)
//
// so the scale leaves 1.0, peaks at 1+A mid-beat and lands back on 1.0.
// Disabling mid-animation lets the running envelope finish; it never cuts
// to 1.0 in the middle of a pulse.
type BounceEffect struct {
	Amplitude float64

	enabled   bool
	animating bool
	start     time.Time
	lastWhole int
	haveWhole bool
	scale     float64
}

func NewBounceEffect(amplitude float64) *BounceEffect {
	if amplitude < 0.1 {
		amplitude = 0.1
	} else if amplitude > 0.2 {
		amplitude = 0.2
	}
	return &BounceEffect{Amplitude: amplitude, scale: 1}
}

func (b *BounceEffect) Enabled() bool { return b.enabled }

func (b *BounceEffect) SetEnabled(on bool) {
	b.enabled = on
	if !on {
		// A running envelope finishes on its own; only the trigger arms.
		return
	}
	// Don't fire retroactively on a beat boundary crossed while disabled.
	b.haveWhole = false
}

// Update advances the state machine and returns the current scale factor.
func (b *BounceEffect) Update(now time.Time, beat, tempo float64) float64 {
	whole := int(math.Floor(beat))
	crossed := b.haveWhole && whole != b.lastWhole
	b.lastWhole = whole
	b.haveWhole = true

	if b.enabled && crossed {
		b.animating = true
		b.start = now
	}

	if !b.animating {
		b.scale = 1
		return b.scale
	}
	if tempo <= 0 {
		// Clock frozen; hold the envelope rather than dividing by zero.
		return b.scale
	}

	beatDur := time.Duration(microsPerMinute / tempo * float64(time.Microsecond))
	p := float64(now.Sub(b.start)) / float64(beatDur)
	if p >= 1 {
		b.animating = false
		b.scale = 1
		return b.scale
	}
	b.scale = 1 + b.Amplitude*math.Sin(p*math.Pi)
	return b.scale
}

// Animating reports whether an envelope is currently running.
func (b *BounceEffect) Animating() bool { return b.animating }

// StrobeEffect flips the output between a solid flash frame and
// pass-through at a tempo-derived period while the strobe control is held.
// The period is Factor beats: period = Factor * 60 / tempo seconds. The
// next toggle deadline is a plain stored timestamp advanced by one period
// per toggle; it is independent of beat boundaries.
type StrobeEffect struct {
	Factor float64 // beats per flash state

	active bool
	flash  bool
	next   time.Time
}

func NewStrobeEffect(factor float64) *StrobeEffect {
	if factor <= 0 {
		factor = 0.25
	}
	return &StrobeEffect{Factor: factor}
}

func (s *StrobeEffect) Active() bool { return s.active }

// Press activates the strobe: the flash starts immediately and the first
// toggle deadline is one period out.
func (s *StrobeEffect) Press(now time.Time, tempo float64) {
	if s.active {
		return
	}
	s.active = true
	s.flash = true
	s.next = now.Add(s.period(tempo))
}

// Release deactivates the strobe and returns to pass-through at once.
func (s *StrobeEffect) Release() {
	s.active = false
	s.flash = false
}

func (s *StrobeEffect) period(tempo float64) time.Duration {
	if tempo <= 0 {
		// Frozen clock: park the deadline far out instead of spinning.
		return time.Hour
	}
	return time.Duration(s.Factor * 60 / tempo * float64(time.Second))
}

// Update advances the toggle state and reports whether the current frame
// should be a flash frame.
func (s *StrobeEffect) Update(now time.Time, tempo float64) bool {
	if !s.active {
		return false
	}
	for !now.Before(s.next) {
		s.flash = !s.flash
		s.next = s.next.Add(s.period(tempo))
	}
	return s.flash
}

// CueEffect defers asset changes to phrase boundaries. While active, every
// selection is parked in a one-deep slot per asset kind (newest wins) and
// applied only when the beat grid passes within Epsilon of a multiple of
// Interval, measured from the displacement captured at the last manual
// resync. Update fires exactly once per boundary: on the first evaluation
// inside the window after being outside it.
type CueEffect struct {
	Interval float64 // beats per phrase, e.g. 32
	Epsilon  float64 // boundary tolerance in beats

	active           bool
	queuedBackground *VisualAsset
	queuedForeground *VisualAsset
	displacement     float64
	near             bool
}

func NewCueEffect(interval, epsilon float64) *CueEffect {
	if interval <= 0 {
		interval = 32
	}
	if epsilon <= 0 {
		epsilon = 0.1
	}
	return &CueEffect{Interval: interval, Epsilon: epsilon}
}

func (c *CueEffect) Active() bool { return c.active }

func (c *CueEffect) SetActive(on bool) {
	c.active = on
	if !on {
		// Leaving cue mode abandons anything still parked.
		c.queuedBackground = nil
		c.queuedForeground = nil
	}
}

// SetDisplacement records the phrase grid offset, captured from the beat
// position forced by the last manual resync.
func (c *CueEffect) SetDisplacement(beat float64) {
	c.displacement = math.Mod(beat, c.Interval)
}

func (c *CueEffect) Displacement() float64 { return c.displacement }

// Queue parks a selection for the asset's kind, replacing any older one.
// Returns false when cue mode is off and the caller should apply the
// selection immediately instead.
func (c *CueEffect) Queue(asset *VisualAsset) bool {
	if !c.active || asset == nil {
		return false
	}
	switch asset.Type {
	case AssetBackground:
		c.queuedBackground = asset
	case AssetForeground:
		c.queuedForeground = asset
	}
	return true
}

// TakeQueued removes and returns the parked selection for kind, nil when
// the slot is empty.
func (c *CueEffect) TakeQueued(kind AssetType) *VisualAsset {
	switch kind {
	case AssetBackground:
		a := c.queuedBackground
		c.queuedBackground = nil
		return a
	case AssetForeground:
		a := c.queuedForeground
		c.queuedForeground = nil
		return a
	}
	return nil
}

// HasQueued reports whether a selection is parked for kind.
func (c *CueEffect) HasQueued(kind AssetType) bool {
	switch kind {
	case AssetBackground:
		return c.queuedBackground != nil
	case AssetForeground:
		return c.queuedForeground != nil
	}
	return false
}

// Update evaluates the near-multiple test for the given continuous beat
// position and returns true exactly once per phrase boundary. Transitions
// never fire strictly inside a phrase.
func (c *CueEffect) Update(beat float64) bool {
	if !c.active {
		c.near = false
		return false
	}
	m := math.Mod(beat-c.displacement, c.Interval)
	if m < 0 {
		m += c.Interval
	}
	near := m < c.Epsilon || c.Interval-m < c.Epsilon
	fired := near && !c.near
	c.near = near
	return fired
}
