// event_queue.go - Bounded input event queue shared by display, MIDI and engine

/*
Visual Hive - beat-synchronised visual performance engine
https://github.com/visualhive/visual-hive
License: GPLv3 or later
*/

package main

import "sync"

type EventKind int

const (
	EventKey EventKind = iota
	EventMIDI
)

// InputEvent is one discrete operator action: a keyboard transition or a
// MIDI note transition. Code is the ebiten key code for keyboard events and
// the note number for MIDI events.
type InputEvent struct {
	Kind EventKind
	Code int
	Down bool
}

const eventQueueCapacity = 64

// EventQueue delivers input events to the production loop in arrival order.
// Push never blocks: when the queue is full the event is dropped and
// counted, because stalling an input callback is worse than losing a
// keypress. Pop never blocks either; the production loop drains it once per
// frame and must not wait on input.
type EventQueue struct {
	mu      sync.Mutex
	events  []InputEvent
	dropped uint64
}

func NewEventQueue() *EventQueue {
	return &EventQueue{events: make([]InputEvent, 0, eventQueueCapacity)}
}

func (q *EventQueue) Push(ev InputEvent) {
	q.mu.Lock()
	if len(q.events) >= eventQueueCapacity {
		q.dropped++
		q.mu.Unlock()
		return
	}
	q.events = append(q.events, ev)
	q.mu.Unlock()
}

// Pop returns the oldest queued event, or false when the queue is empty.
func (q *EventQueue) Pop() (InputEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return InputEvent{}, false
	}
	ev := q.events[0]
	copy(q.events, q.events[1:])
	q.events = q.events[:len(q.events)-1]
	return ev, true
}

// Dropped reports how many events were discarded against a full queue.
func (q *EventQueue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
