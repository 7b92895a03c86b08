package performance

// GroupType selects how a group's presets take effect
type GroupType string

const (
	GroupMapper GroupType = "mapper" // presets swap the group's live rule set
	GroupPlayer GroupType = "player" // presets play MIDI files
)

// EventType is the coarse class of a MIDI message used by rule filters
type EventType string

const (
	EventNote    EventType = "note"
	EventControl EventType = "control"
	EventProgram EventType = "program"
	EventPitch   EventType = "pitch"
	EventOther   EventType = "other"
)

// Channel names one MIDI channel (1-16) of a device
type Channel struct {
	ID     string `json:"id" yaml:"id"`
	Number int    `json:"channel" yaml:"channel"`
}

// Device is a logical input or output. PortName is matched against the
// names reported by the MIDI driver.
type Device struct {
	ID       string    `json:"id" yaml:"id"`
	Title    string    `json:"title" yaml:"title"`
	PortName string    `json:"portName" yaml:"portName"`
	Channels []Channel `json:"channels,omitempty" yaml:"channels,omitempty"`
}

// ChannelNumber resolves a named channel on the device (0 if unknown)
func (d *Device) ChannelNumber(id string) int {
	if d == nil {
		return 0
	}
	for _, ch := range d.Channels {
		if ch.ID == id {
			return ch.Number
		}
	}
	return 0
}

// EventFilter matches messages when used as a rule source and rewrites
// them when used as a rule destination. Zero fields mean "no constraint".
type EventFilter struct {
	DeviceID  string     `json:"deviceId,omitempty" yaml:"deviceId,omitempty"`
	Channel   ChannelRef `json:"channel,omitempty" yaml:"channel,omitempty"`
	EventType EventType  `json:"eventType,omitempty" yaml:"eventType,omitempty"`
	NoteMin   *int       `json:"noteMin,omitempty" yaml:"noteMin,omitempty"`
	NoteMax   *int       `json:"noteMax,omitempty" yaml:"noteMax,omitempty"`
}

// Rule is one entry of an ordered mapping list
type Rule struct {
	Comments       string       `json:"comments,omitempty" yaml:"comments,omitempty"`
	Source         *EventFilter `json:"source,omitempty" yaml:"source,omitempty"`
	Dest           *EventFilter `json:"dest,omitempty" yaml:"dest,omitempty"`
	KeepMapping    bool         `json:"keepMapping,omitempty" yaml:"keepMapping,omitempty"`
	IgnoreVelocity bool         `json:"ignoreVelocity,omitempty" yaml:"ignoreVelocity,omitempty"`
}

// Trigger points at a preset that is switched on together with its owner
type Trigger struct {
	GroupID  string `json:"groupId" yaml:"groupId"`
	PresetID string `json:"presetId" yaml:"presetId"`
}

// Preset is one switchable configuration of a group
type Preset struct {
	ID        string   `json:"id" yaml:"id"`
	Title     string   `json:"title" yaml:"title"`
	IsDefault bool     `json:"isDefault,omitempty" yaml:"isDefault,omitempty"`
	Rules     []Rule   `json:"rules,omitempty" yaml:"rules,omitempty"`
	FileURL   string   `json:"fileUrl,omitempty" yaml:"fileUrl,omitempty"`
	Loop      bool     `json:"loop,omitempty" yaml:"loop,omitempty"`
	Output    string   `json:"output,omitempty" yaml:"output,omitempty"` // direct-dispatch device for rule-less playback
	Trigger   *Trigger `json:"trigger,omitempty" yaml:"trigger,omitempty"`
}

// Group holds presets that are switched together
type Group struct {
	ID        string    `json:"id" yaml:"id"`
	Type      GroupType `json:"type" yaml:"type"`
	Title     string    `json:"title" yaml:"title"`
	Exclusive bool      `json:"exclusive,omitempty" yaml:"exclusive,omitempty"`
	Presets   []Preset  `json:"presets" yaml:"presets"`
}

// Preset finds a preset by id
func (g *Group) Preset(id string) *Preset {
	for i := range g.Presets {
		if g.Presets[i].ID == id {
			return &g.Presets[i]
		}
	}
	return nil
}

// Song is an ordered list of groups
type Song struct {
	ID     string  `json:"id" yaml:"id"`
	Title  string  `json:"title" yaml:"title"`
	Groups []Group `json:"groups" yaml:"groups"`
}

// Group finds a group by id
func (s *Song) Group(id string) *Group {
	for i := range s.Groups {
		if s.Groups[i].ID == id {
			return &s.Groups[i]
		}
	}
	return nil
}

// Performance is the root of a loaded descriptor
type Performance struct {
	Title   string   `json:"title" yaml:"title"`
	Inputs  []Device `json:"inputs" yaml:"inputs"`
	Outputs []Device `json:"outputs" yaml:"outputs"`
	Songs   []Song   `json:"songs" yaml:"songs"`

	// Location is where the descriptor was read from; relative file
	// references resolve against it.
	Location string `json:"-" yaml:"-"`
}

// CurrentSong returns the active song. Only the first song is ever active.
func (p *Performance) CurrentSong() *Song {
	if p == nil || len(p.Songs) == 0 {
		return nil
	}
	return &p.Songs[0]
}

// Input finds an input device by id
func (p *Performance) Input(id string) *Device {
	return findDevice(p.Inputs, id)
}

// Output finds an output device by id
func (p *Performance) Output(id string) *Device {
	return findDevice(p.Outputs, id)
}

func findDevice(devices []Device, id string) *Device {
	if id == "" {
		return nil
	}
	for i := range devices {
		if devices[i].ID == id {
			return &devices[i]
		}
	}
	return nil
}
