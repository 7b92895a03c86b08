package engine

import (
	"github.com/charmbracelet/log"

	"solo-orchestra/debug"
	"solo-orchestra/midi"
	"solo-orchestra/performance"
	"solo-orchestra/theme"
)

// Grid layout: row 0 (bottom) is the first group, col 0 its first preset.
// The top-right control button is panic.
const (
	gridRows = 8
	gridCols = 8
	panicRow = 8
	panicCol = 7
)

var panicColor = [3]uint8{255, 0, 0}

// surface mirrors preset activity onto a Launchpad
type surface struct {
	e          *Engine
	controller midi.Controller
	prev       map[[2]int]midi.LEDUpdate
	log        *log.Logger
}

func newSurface(e *Engine) *surface {
	return &surface{
		e:    e,
		prev: make(map[[2]int]midi.LEDUpdate),
		log:  debug.Logger("surface"),
	}
}

// SetController makes c the preset surface, replacing any previous one
func (e *Engine) SetController(c midi.Controller) {
	e.queue.Do(func() {
		e.surface.controller = c
		e.surface.prev = make(map[[2]int]midi.LEDUpdate) // reset state - diff will handle clearing
		e.surface.log.Info("controller attached", "id", c.ID())
		e.surface.flush()
		e.notify()
	})

	go func() {
		for pad := range c.PadEvents() {
			e.queue.Post(func() { e.surface.handlePad(c, pad) })
		}
	}()
}

// RemoveController detaches the surface with the given id
func (e *Engine) RemoveController(id string) {
	e.queue.Do(func() {
		if c := e.surface.controller; c != nil && c.ID() == id {
			e.surface.controller = nil
			e.surface.prev = make(map[[2]int]midi.LEDUpdate)
			e.surface.log.Info("controller detached", "id", id)
			e.notify()
		}
	})
}

func (s *surface) handlePad(c midi.Controller, pad midi.PadEvent) {
	if c != s.controller {
		return
	}
	if pad.Row == panicRow && pad.Col == panicCol {
		s.e.silence()
		return
	}
	song := s.e.song
	if song == nil || pad.Row >= gridRows || pad.Col >= gridCols {
		return
	}
	if pad.Row >= len(song.Groups) || pad.Col >= len(song.Groups[pad.Row].Presets) {
		return
	}
	g := &song.Groups[pad.Row]
	s.e.activate(g.ID, g.Presets[pad.Col].ID, make(map[string]bool))
	s.e.changed()
}

// render returns the lit pads for the current state
func (s *surface) render() []midi.LEDUpdate {
	leds := []midi.LEDUpdate{{Row: panicRow, Col: panicCol, Color: panicColor}}
	song := s.e.song
	if song == nil {
		return leds
	}

	n := min(len(song.Groups), gridRows)
	for row := 0; row < n; row++ {
		g := &song.Groups[row]
		color := s.e.palette.Spread(row, n)
		rt := s.e.runtimes[g.ID]
		for col := 0; col < len(g.Presets) && col < gridCols; col++ {
			p := &g.Presets[col]
			if rt == nil || !presetLit(rt, p) {
				continue
			}
			led := midi.LEDUpdate{Row: row, Col: col, Color: theme.Dim(color)}
			if rt.isActive(p.ID) {
				led.Color = color
			}
			leds = append(leds, led)
		}
	}
	return leds
}

// presetLit reports whether a preset's pad should show at all. Player
// presets without bytes are dark.
func presetLit(rt groupRuntime, p *performance.Preset) bool {
	pr, ok := rt.(*playerRuntime)
	if !ok {
		return true
	}
	pp := pr.players[p.ID]
	return pp != nil && pp.state == FileReady
}

// flush sends only changed LEDs to the controller (diffing + batching)
func (s *surface) flush() {
	if s.controller == nil {
		return
	}

	leds := s.render()
	next := make(map[[2]int]midi.LEDUpdate, len(leds))
	var updates []midi.LEDUpdate
	for _, led := range leds {
		key := [2]int{led.Row, led.Col}
		next[key] = led
		if prev, ok := s.prev[key]; !ok || prev != led {
			updates = append(updates, led)
		}
	}
	for key := range s.prev {
		if _, ok := next[key]; !ok {
			updates = append(updates, midi.LEDUpdate{Row: key[0], Col: key[1]})
		}
	}

	if len(updates) > 0 {
		debug.Log("led", "flush: batch=%d prev=%d", len(updates), len(s.prev))
		if err := s.controller.SetLEDBatch(updates); err != nil {
			s.log.Warn("led update", "err", err)
		}
	}
	s.prev = next
}

// clear blanks every pad this surface lit
func (s *surface) clear() {
	if s.controller == nil {
		return
	}
	var updates []midi.LEDUpdate
	for key := range s.prev {
		updates = append(updates, midi.LEDUpdate{Row: key[0], Col: key[1]})
	}
	if len(updates) > 0 {
		s.controller.SetLEDBatch(updates)
	}
	s.prev = make(map[[2]int]midi.LEDUpdate)
}

// HandleDeviceEvent applies a hot-plug event: port changes rebind the
// performance's devices, Launchpads become the preset surface
func (e *Engine) HandleDeviceEvent(ev midi.DeviceEvent) {
	switch ev.Type {
	case midi.PortsChanged:
		e.Rebind()
	case midi.DeviceConnected:
		if ev.Controller != nil {
			e.SetController(ev.Controller)
		}
	case midi.DeviceDisconnected:
		e.RemoveController(ev.ID)
	}
}
