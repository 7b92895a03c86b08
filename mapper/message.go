package mapper

import (
	"fmt"

	"solo-orchestra/performance"
)

// Status nibbles of channel-voice messages
const (
	StatusNoteOff       byte = 0x80
	StatusNoteOn        byte = 0x90
	StatusControlChange byte = 0xB0
	StatusProgramChange byte = 0xC0
	StatusPitchBend     byte = 0xE0
	StatusSystem        byte = 0xF0
)

// IsChannelVoice reports whether msg starts with a status byte in 0x80-0xEF
func IsChannelVoice(msg []byte) bool {
	return len(msg) > 0 && msg[0] >= 0x80 && msg[0] < 0xF0
}

// Channel returns the 1-based channel of a channel-voice message, 0 otherwise
func Channel(msg []byte) int {
	if !IsChannelVoice(msg) {
		return 0
	}
	return int(msg[0]&0x0F) + 1
}

// Classify maps a raw message to the event type used by rule filters.
// System messages (0xF_) classify as pitch, matching existing descriptors.
func Classify(msg []byte) performance.EventType {
	if len(msg) == 0 {
		return performance.EventOther
	}
	switch msg[0] & 0xF0 {
	case StatusNoteOff, StatusNoteOn:
		return performance.EventNote
	case StatusControlChange:
		return performance.EventControl
	case StatusProgramChange:
		return performance.EventProgram
	case StatusPitchBend, StatusSystem:
		return performance.EventPitch
	}
	return performance.EventOther
}

// Hex formats a message for traces: "90 28 64"
func Hex(msg []byte) string {
	return fmt.Sprintf("% x", msg)
}
