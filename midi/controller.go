package midi

// ControllerType identifies the kind of control surface
type ControllerType int

const (
	ControllerUnknown ControllerType = iota
	ControllerLaunchpad
)

// PadEvent is sent when a pad/button is pressed on a grid controller.
// Row 0 is the bottom row, row 8 the top control row, col 8 the scene column.
type PadEvent struct {
	Row, Col int
	Velocity uint8
}

// LEDUpdate sets one pad colour
type LEDUpdate struct {
	Row, Col int
	Color    [3]uint8
	Channel  uint8 // ChannelStatic, ChannelFlash or ChannelPulse
}

// Controller is a grid surface used to show and pick presets
type Controller interface {
	ID() string
	Type() ControllerType

	PadEvents() <-chan PadEvent
	SetLEDBatch(updates []LEDUpdate) error

	Close() error
}

// Launchpad X LED modes, sent as the MIDI channel of the note-on
const (
	ChannelStatic uint8 = 0 // solid color
	ChannelFlash  uint8 = 1 // flashing A/B alternating
	ChannelPulse  uint8 = 2 // pulsing (fades)
)
