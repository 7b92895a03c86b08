package mapper

import (
	"github.com/charmbracelet/log"

	"solo-orchestra/debug"
	"solo-orchestra/performance"
)

// Router resolves destination devices and delivers messages to them
type Router interface {
	// Output returns the logical output device with the given id
	Output(id string) (*performance.Device, bool)
	// Send delivers msg to the output bound to deviceID
	Send(deviceID string, msg []byte) error
}

// Dispatch records one rule that matched a message
type Dispatch struct {
	Rule     int    // index into the rule list
	DeviceID string // destination device id ("" if the rule has none)
	Message  []byte // transformed message
	Routed   bool   // false when the destination did not resolve
}

// Mapper evaluates ordered rule lists against single messages
type Mapper struct {
	router Router
	log    *log.Logger
}

func New(router Router) *Mapper {
	return &Mapper{
		router: router,
		log:    debug.Logger("mapper"),
	}
}

// Apply runs msg through rules in order, sending every transformed message
// that resolves to an output. Evaluation stops after the first matching
// rule whose KeepMapping is false, whether or not it was routed.
func (m *Mapper) Apply(src *performance.Device, msg []byte, rules []performance.Rule) []Dispatch {
	if src != nil {
		m.log.Debug("message", "from", src.ID, "data", Hex(msg))
	} else {
		m.log.Debug("message", "data", Hex(msg))
	}

	var out []Dispatch
	for i := range rules {
		rule := &rules[i]
		msg2, ok := m.mapMessage(src, msg, rule)
		if !ok {
			continue
		}

		d := Dispatch{Rule: i, Message: msg2}
		if rule.Dest != nil {
			d.DeviceID = rule.Dest.DeviceID
		}
		if d.DeviceID != "" {
			if err := m.router.Send(d.DeviceID, msg2); err != nil {
				m.log.Debug("not routed", "rule", i, "dest", d.DeviceID, "err", err)
			} else {
				d.Routed = true
				m.log.Debug("  ->", "rule", i, "dest", d.DeviceID, "data", Hex(msg2))
			}
		}
		out = append(out, d)

		if !rule.KeepMapping {
			break
		}
	}
	return out
}

var noFilter = &performance.EventFilter{}

// mapMessage returns the rewritten message, or false if the rule's source
// filter rejects msg. The input slice is never modified.
func (m *Mapper) mapMessage(src *performance.Device, msg []byte, rule *performance.Rule) ([]byte, bool) {
	source := rule.Source
	if source == nil {
		source = noFilter
	}
	dest := rule.Dest
	if dest == nil {
		dest = noFilter
	}

	if source.DeviceID != "" && (src == nil || src.ID != source.DeviceID) {
		return nil, false
	}

	if ch, ok := source.Channel.Resolve(src); ok && IsChannelVoice(msg) {
		if Channel(msg) != ch {
			return nil, false
		}
	}

	eventType := Classify(msg)
	if source.EventType != "" && source.EventType != eventType {
		return nil, false
	}

	isNote := eventType == performance.EventNote && len(msg) >= 2
	if isNote && (source.NoteMin != nil || source.NoteMax != nil) {
		lo, hi := 0, 127
		if source.NoteMin != nil {
			lo = *source.NoteMin
		}
		if source.NoteMax != nil {
			hi = *source.NoteMax
		}
		note := int(msg[1] & 0x7F)
		if note < lo || note > hi {
			return nil, false
		}
	}

	out := make([]byte, len(msg))
	copy(out, msg)

	if IsChannelVoice(out) {
		var destDevice *performance.Device
		if dest.DeviceID != "" {
			destDevice, _ = m.router.Output(dest.DeviceID)
		}
		if ch, ok := dest.Channel.Resolve(destDevice); ok && ch >= 1 && ch <= 16 {
			out[0] = (out[0] & 0xF0) | byte(ch-1)&0x0F
		}
	}

	if isNote && source.NoteMin != nil && dest.NoteMin != nil {
		out[1] = byte((int(msg[1]&0x7F) + *dest.NoteMin - *source.NoteMin) & 0x7F)
	}

	if rule.IgnoreVelocity && eventType == performance.EventNote && len(out) >= 3 {
		out[2] = 0x7F
	}

	return out, true
}
