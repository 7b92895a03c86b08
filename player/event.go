package player

import (
	"bytes"
	"sort"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

// Kind is the type of a timed file event
type Kind int

const (
	NoteOn Kind = iota
	NoteOff
	PitchBend
	ProgramChange
	ControlChange
)

func (k Kind) String() string {
	switch k {
	case NoteOn:
		return "note-on"
	case NoteOff:
		return "note-off"
	case PitchBend:
		return "pitch-bend"
	case ProgramChange:
		return "program-change"
	case ControlChange:
		return "control-change"
	}
	return "unknown"
}

// Event is one timed event of a parsed file. Channel is 1-based.
type Event struct {
	At       time.Duration // offset from the start of the file
	Kind     Kind
	Channel  uint8
	Note     uint8 // key, or controller number for ControlChange
	Velocity uint8
	Value    int16 // pitch bend (-8192..8191), program, or controller value
}

// Message synthesizes the raw bytes for the event. Control changes are not
// replayed and report false.
func (e Event) Message() (gomidi.Message, bool) {
	ch := (e.Channel - 1) & 0x0F
	switch e.Kind {
	case NoteOn:
		return gomidi.NoteOn(ch, e.Note&0x7F, e.Velocity&0x7F), true
	case NoteOff:
		return gomidi.NoteOffVelocity(ch, e.Note&0x7F, e.Velocity&0x7F), true
	case PitchBend:
		return gomidi.Pitchbend(ch, e.Value), true
	case ProgramChange:
		return gomidi.ProgramChange(ch, uint8(e.Value)&0x7F), true
	}
	return nil, false
}

// Sequence is a finite, time-ordered, restartable event stream
type Sequence interface {
	Next() (Event, bool)
	Rewind()
}

// Parser turns raw file bytes into a Sequence
type Parser interface {
	Parse(data []byte) (Sequence, error)
}

type sliceSequence struct {
	events []Event
	pos    int
}

// NewSequence wraps events, which must already be in time order
func NewSequence(events []Event) Sequence {
	return &sliceSequence{events: events}
}

func (s *sliceSequence) Next() (Event, bool) {
	if s.pos >= len(s.events) {
		return Event{}, false
	}
	e := s.events[s.pos]
	s.pos++
	return e, true
}

func (s *sliceSequence) Rewind() {
	s.pos = 0
}

// SMFParser reads Standard MIDI Files, merging all tracks by time
type SMFParser struct{}

func (SMFParser) Parse(data []byte) (Sequence, error) {
	file, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fault.Wrap(err, fmsg.With("read midi file"), ftag.With(ftag.InvalidArgument))
	}

	var events []Event
	for _, track := range file.Tracks {
		var absTicks int64
		for _, ev := range track {
			absTicks += int64(ev.Delta)
			e, ok := convert(gomidi.Message(ev.Message))
			if !ok {
				continue
			}
			e.At = time.Duration(file.TimeAt(absTicks)) * time.Microsecond
			events = append(events, e)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].At < events[j].At
	})
	return NewSequence(events), nil
}

func convert(msg gomidi.Message) (Event, bool) {
	var ch, key, vel, cc, val, prog uint8
	var rel int16
	var abs uint16

	switch {
	case msg.GetNoteOff(&ch, &key, &vel):
		return Event{Kind: NoteOff, Channel: ch + 1, Note: key, Velocity: vel}, true
	case msg.GetNoteEnd(&ch, &key):
		// note-on with velocity 0
		return Event{Kind: NoteOff, Channel: ch + 1, Note: key}, true
	case msg.GetNoteOn(&ch, &key, &vel):
		return Event{Kind: NoteOn, Channel: ch + 1, Note: key, Velocity: vel}, true
	case msg.GetPitchBend(&ch, &rel, &abs):
		return Event{Kind: PitchBend, Channel: ch + 1, Value: rel}, true
	case msg.GetProgramChange(&ch, &prog):
		return Event{Kind: ProgramChange, Channel: ch + 1, Value: int16(prog)}, true
	case msg.GetControlChange(&ch, &cc, &val):
		return Event{Kind: ControlChange, Channel: ch + 1, Note: cc, Value: int16(val)}, true
	}
	return Event{}, false
}
