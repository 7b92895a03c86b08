package midi

import (
	"strings"
	"sync"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	gomidi "gitlab.com/gomidi/midi/v2"

	"solo-orchestra/debug"
)

// Launchpad X programmer-mode SysEx bodies (without F0/F7)
var (
	sysexProgrammerMode = []byte{0x00, 0x20, 0x29, 0x02, 0x0C, 0x00, 0x7F}
	sysexBrightness     = []byte{0x00, 0x20, 0x29, 0x02, 0x0C, 0x08, 0x7F}
	sysexLEDFeedback    = []byte{0x00, 0x20, 0x29, 0x02, 0x0C, 0x0A, 0x01, 0x01}
)

// LaunchpadController drives a Novation Launchpad X as a preset surface
type LaunchpadController struct {
	id   string
	send Sender
	stop func()

	padChan   chan PadEvent
	closeOnce sync.Once
}

// NewLaunchpadController puts the Launchpad in programmer mode and starts
// reading pad presses. Either port may be nil.
func NewLaunchpadController(id string, in InPort, out OutPort) (*LaunchpadController, error) {
	lp := &LaunchpadController{
		id:      id,
		padChan: make(chan PadEvent, 32),
	}

	if out != nil {
		send, err := out.Open()
		if err != nil {
			return nil, fault.Wrap(err, fmsg.With("launchpad output"))
		}
		lp.send = send

		lp.send(gomidi.SysEx(sysexProgrammerMode))
		lp.send(gomidi.SysEx(sysexBrightness))
		lp.send(gomidi.SysEx(sysexLEDFeedback))
	}

	if in != nil {
		stop, err := in.Listen(lp.handle)
		if err != nil {
			return nil, fault.Wrap(err, fmsg.With("launchpad input"))
		}
		lp.stop = stop
	}

	return lp, nil
}

func (lp *LaunchpadController) handle(raw []byte) {
	msg := gomidi.Message(raw)
	var channel, note, velocity, cc, value uint8

	row, col, vel := -1, -1, uint8(0)
	switch {
	case msg.GetNoteOn(&channel, &note, &velocity) && velocity > 0:
		row, col = noteToRowCol(note)
		vel = velocity
	case msg.GetControlChange(&channel, &cc, &value) && value > 0:
		row, col = ccToRowCol(cc)
		vel = value
	}
	if row < 0 {
		return
	}

	select {
	case lp.padChan <- PadEvent{Row: row, Col: col, Velocity: vel}:
	default:
	}
}

func (lp *LaunchpadController) ID() string {
	return lp.id
}

func (lp *LaunchpadController) Type() ControllerType {
	return ControllerLaunchpad
}

func (lp *LaunchpadController) PadEvents() <-chan PadEvent {
	return lp.padChan
}

// SetLEDBatch sends each update as a note-on whose velocity is the
// nearest palette entry
func (lp *LaunchpadController) SetLEDBatch(updates []LEDUpdate) error {
	if lp.send == nil || len(updates) == 0 {
		return nil
	}

	for _, u := range updates {
		note := rowColToNote(u.Row, u.Col)
		color := mapRGBToLaunchpad(u.Color)
		if err := lp.send(gomidi.NoteOn(u.Channel, note, color)); err != nil {
			return fault.Wrap(err, fmsg.With("launchpad led"))
		}
	}
	debug.LogEvery(100, "lp-send", "batch=%d", len(updates))
	return nil
}

// mapRGBToLaunchpad finds the nearest Launchpad X palette color for an RGB value
func mapRGBToLaunchpad(rgb [3]uint8) uint8 {
	// Format: {velocity, R, G, B}
	palette := [][4]uint8{
		{0, 0, 0, 0},         // off
		{5, 255, 0, 0},       // red
		{6, 255, 80, 80},     // bright red
		{7, 180, 60, 60},     // dim red
		{9, 255, 100, 0},     // orange
		{11, 180, 80, 40},    // dim orange
		{13, 255, 200, 0},    // yellow
		{17, 0, 180, 0},      // green
		{19, 0, 100, 0},      // dim green
		{21, 0, 255, 0},      // bright green
		{37, 0, 200, 200},    // cyan
		{43, 40, 60, 120},    // dim blue
		{45, 0, 100, 255},    // blue
		{49, 150, 0, 200},    // purple
		{53, 255, 80, 180},   // pink
		{84, 255, 150, 50},   // bright orange
		{97, 180, 180, 60},   // dim yellow
		{119, 255, 255, 255}, // white
	}

	best := uint8(0)
	bestDist := 1 << 30
	r, g, b := int(rgb[0]), int(rgb[1]), int(rgb[2])
	for _, p := range palette {
		dr, dg, db := r-int(p[1]), g-int(p[2]), b-int(p[3])
		if dist := dr*dr + dg*dg + db*db; dist < bestDist {
			bestDist = dist
			best = p[0]
		}
	}
	return best
}

// Close blanks the surface and stops reading pads
func (lp *LaunchpadController) Close() error {
	lp.closeOnce.Do(func() {
		if lp.send != nil {
			var updates []LEDUpdate
			for row := 0; row < 9; row++ {
				for col := 0; col < 9; col++ {
					if row == 8 && col == 8 {
						continue // no LED at 8,8
					}
					updates = append(updates, LEDUpdate{Row: row, Col: col})
				}
			}
			lp.SetLEDBatch(updates)
		}
		if lp.stop != nil {
			lp.stop()
		}
		close(lp.padChan)
	})
	return nil
}

// Launchpad X note mapping
// 8x8 Grid:  Row 0 (bottom) = notes 11-18, Row 7 = notes 81-88
// Side col:  Col 8 (right side scene buttons) = notes 19, 29, ... 89
// Top row:   Row 8 = CC 91-98 in, notes 91-98 for LEDs

func rowColToNote(row, col int) uint8 {
	if row == 8 {
		return uint8(91 + col)
	}
	return uint8((row+1)*10 + col + 1)
}

func noteToRowCol(note uint8) (row, col int) {
	if note >= 91 && note <= 98 {
		return 8, int(note - 91)
	}
	row = int(note/10) - 1
	col = int(note%10) - 1
	if row < 0 || row > 7 || col < 0 || col > 8 {
		return -1, -1
	}
	return row, col
}

func ccToRowCol(cc uint8) (row, col int) {
	if cc >= 91 && cc <= 98 {
		return 8, int(cc - 91)
	}
	return -1, -1
}

func isLaunchpad(name string) bool {
	name = strings.ToLower(name)
	return strings.Contains(name, "launchpad") && strings.Contains(name, "midi")
}
