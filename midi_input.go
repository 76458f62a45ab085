// midi_input.go - MIDI note input feeding the shared event queue

/*
Visual Hive - beat-synchronised visual performance engine
https://github.com/visualhive/visual-hive
License: GPLv3 or later
*/

package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// MIDIInput listens on the first available MIDI input port and translates
// note on/off into events on the shared queue, so a pad controller drives
// the same bindings as the keyboard. MIDI is optional: no ports is not an
// error, the engine simply runs keyboard-only.
type MIDIInput struct {
	drv    *rtmididrv.Driver
	port   drivers.In
	stopFn func()
	events *EventQueue
}

func NewMIDIInput(events *EventQueue) (*MIDIInput, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("midi driver: %w", err)
	}
	return &MIDIInput{drv: drv, events: events}, nil
}

// Start opens the first input port and begins listening. Returns false
// when no port is available.
func (m *MIDIInput) Start() (bool, error) {
	ins, err := m.drv.Ins()
	if err != nil {
		return false, fmt.Errorf("midi inputs: %w", err)
	}
	if len(ins) == 0 {
		return false, nil
	}

	port := ins[0]
	if err := port.Open(); err != nil {
		return false, fmt.Errorf("midi open %q: %w", port.String(), err)
	}

	stop, err := midi.ListenTo(port, func(msg midi.Message, _ int32) {
		var ch, key, vel uint8
		if msg.GetNoteStart(&ch, &key, &vel) {
			m.events.Push(InputEvent{Kind: EventMIDI, Code: MIDICode(int(key)), Down: true})
		} else if msg.GetNoteEnd(&ch, &key) {
			m.events.Push(InputEvent{Kind: EventMIDI, Code: MIDICode(int(key)), Down: false})
		}
	}, midi.HandleError(func(listenErr error) {
		logrus.WithError(listenErr).Warn("midi: listener error")
	}))
	if err != nil {
		_ = port.Close()
		return false, fmt.Errorf("midi listen %q: %w", port.String(), err)
	}

	m.port = port
	m.stopFn = stop
	logrus.WithField("port", port.String()).Info("midi: listening")
	return true, nil
}

func (m *MIDIInput) Close() {
	if m.stopFn != nil {
		m.stopFn()
		m.stopFn = nil
	}
	if m.port != nil {
		_ = m.port.Close()
		m.port = nil
	}
	m.drv.Close()
}
