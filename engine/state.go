package engine

import (
	"solo-orchestra/midi"
	"solo-orchestra/performance"
)

// PresetState is a read-only view of one preset
type PresetState struct {
	ID      string
	Title   string
	Active  bool
	Default bool
	Loop    bool
	File    FileState
	Trigger *performance.Trigger
}

// GroupState is a read-only view of one group
type GroupState struct {
	ID        string
	Title     string
	Type      performance.GroupType
	Exclusive bool
	Presets   []PresetState
}

// State is everything the performer UI draws
type State struct {
	Title      string
	Song       string
	Groups     []GroupState
	Inputs     []midi.DeviceStatus
	Outputs    []midi.DeviceStatus
	Controller string // connected surface id, "" if none

	// Pads is the preset grid as a Launchpad shows it, row 0 at the bottom
	Pads [gridRows][gridCols][3]uint8
}

// Snapshot captures the current state in one queue round trip
func (e *Engine) Snapshot() State {
	var s State
	e.queue.Do(func() { s = e.snapshot() })
	return s
}

func (e *Engine) snapshot() State {
	s := State{
		Inputs:  e.devices.InputDevices(),
		Outputs: e.devices.OutputDevices(),
	}
	if c := e.surface.controller; c != nil {
		s.Controller = c.ID()
	}
	for _, led := range e.surface.render() {
		if led.Row < gridRows && led.Col < gridCols {
			s.Pads[led.Row][led.Col] = led.Color
		}
	}
	if e.perf == nil {
		return s
	}
	s.Title = e.perf.Title
	if e.song == nil {
		return s
	}
	s.Song = e.song.Title

	for gi := range e.song.Groups {
		g := &e.song.Groups[gi]
		gs := GroupState{ID: g.ID, Title: g.Title, Type: g.Type, Exclusive: g.Exclusive}
		rt := e.runtimes[g.ID]
		for pi := range g.Presets {
			p := &g.Presets[pi]
			ps := PresetState{
				ID:      p.ID,
				Title:   p.Title,
				Default: p.IsDefault,
				Loop:    p.Loop,
				Trigger: p.Trigger,
			}
			if rt != nil {
				ps.Active = rt.isActive(p.ID)
			}
			if pr, ok := rt.(*playerRuntime); ok {
				if pp := pr.players[p.ID]; pp != nil {
					ps.File = pp.state
				}
			}
			gs.Presets = append(gs.Presets, ps)
		}
		s.Groups = append(s.Groups, gs)
	}
	return s
}
