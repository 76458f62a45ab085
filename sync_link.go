// sync_link.go - Ableton Link backed synchronisation session

/*
Visual Hive - beat-synchronised visual performance engine
https://github.com/visualhive/visual-hive
License: GPLv3 or later
*/

package main

import (
	"math"
	"sync"
	"sync/atomic"

	abletonlink "github.com/DatanoiseTV/abletonlink-go"
	"github.com/sirupsen/logrus"
)

// LinkSession adapts an Ableton Link session to SyncSession. Tempo and peer
// count are tracked through Link's callbacks into atomics so CurrentTempo
// and PeerCount stay lock-free; beat grid queries capture the app session
// state under a short mutex because the underlying state object is not
// safe for concurrent use.
type LinkSession struct {
	link  *abletonlink.Link
	mu    sync.Mutex
	state *abletonlink.SessionState
	tempo atomic.Uint64 // float64 bits
	peers atomic.Int64
}

func NewLinkSession(initialBPM float64) (*LinkSession, error) {
	if initialBPM <= 0 {
		initialBPM = 120
	}
	s := &LinkSession{
		link:  abletonlink.NewLink(initialBPM),
		state: abletonlink.NewSessionState(),
	}
	s.tempo.Store(math.Float64bits(initialBPM))

	s.link.SetTempoCallback(func(bpm float64) {
		s.tempo.Store(math.Float64bits(bpm))
		logrus.WithField("bpm", bpm).Info("link: session tempo changed")
	})
	s.link.SetNumPeersCallback(func(n uint64) {
		s.peers.Store(int64(n))
		logrus.WithField("peers", n).Info("link: peer count changed")
	})

	s.link.Enable(true)
	logrus.Info("link: session enabled")
	return s, nil
}

func (s *LinkSession) CurrentTempo() float64 {
	return math.Float64frombits(s.tempo.Load())
}

func (s *LinkSession) MonotonicNow() int64 {
	return s.link.ClockMicros()
}

func (s *LinkSession) BeatAt(micros int64, quantum float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.link.CaptureAppSessionState(s.state)
	return s.state.BeatAtTime(micros, quantum)
}

func (s *LinkSession) ForceBeatAtTime(beat float64, micros int64, quantum float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.link.CaptureAppSessionState(s.state)
	s.state.ForceBeatAtTime(beat, micros, quantum)
	s.link.CommitAppSessionState(s.state)
}

// ProposeTempo pushes a locally detected tempo to the session. Used when
// the engine runs with detection and Link at the same time and we are the
// tempo authority.
func (s *LinkSession) ProposeTempo(bpm float64) {
	if bpm <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.link.CaptureAppSessionState(s.state)
	s.state.SetTempo(bpm, s.link.ClockMicros())
	s.link.CommitAppSessionState(s.state)
}

func (s *LinkSession) PeerCount() int {
	return int(s.peers.Load())
}

func (s *LinkSession) Close() error {
	s.link.Enable(false)
	s.link.Destroy()
	s.state.Destroy()
	logrus.Info("link: session disabled")
	return nil
}
