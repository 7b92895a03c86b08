package ledger

import (
	gomidi "gitlab.com/gomidi/midi/v2"
)

// Note is a sounding (channel, key) pair. Channel is 1-based.
type Note struct {
	Channel uint8
	Key     uint8
}

// Off returns the compensating note-off message (velocity 0)
func (n Note) Off() gomidi.Message {
	return gomidi.NoteOff((n.Channel-1)&0x0F, n.Key&0x7F)
}

// Ledger tracks the notes a stream has started but not yet released.
// It is owned by a single stream and is not safe for concurrent use.
type Ledger struct {
	notes []Note // insertion order
	held  map[Note]bool
}

func New() *Ledger {
	return &Ledger{held: make(map[Note]bool)}
}

// NoteOn records a note; repeated note-ons of the same pair are one entry
func (l *Ledger) NoteOn(channel, key uint8) {
	n := Note{channel, key}
	if l.held[n] {
		return
	}
	l.held[n] = true
	l.notes = append(l.notes, n)
}

// NoteOff forgets a note (no-op if it is not held)
func (l *Ledger) NoteOff(channel, key uint8) {
	n := Note{channel, key}
	if !l.held[n] {
		return
	}
	delete(l.held, n)
	for i, held := range l.notes {
		if held == n {
			l.notes = append(l.notes[:i], l.notes[i+1:]...)
			break
		}
	}
}

// Observe updates the ledger from a raw message. A note-on with velocity 0
// counts as a note-off. Other messages are ignored.
func (l *Ledger) Observe(msg []byte) {
	if len(msg) < 3 {
		return
	}
	channel := msg[0]&0x0F + 1
	key := msg[1] & 0x7F
	switch msg[0] & 0xF0 {
	case 0x90:
		if msg[2] == 0 {
			l.NoteOff(channel, key)
		} else {
			l.NoteOn(channel, key)
		}
	case 0x80:
		l.NoteOff(channel, key)
	}
}

// Len returns the number of held notes
func (l *Ledger) Len() int {
	return len(l.notes)
}

// Held returns a copy of the held notes in insertion order
func (l *Ledger) Held() []Note {
	return append([]Note(nil), l.notes...)
}

// Drain empties the ledger and returns every note that was still held, in
// the order they started. Callers send Note.Off for each.
func (l *Ledger) Drain() []Note {
	out := l.notes
	l.notes = nil
	l.held = make(map[Note]bool)
	return out
}
