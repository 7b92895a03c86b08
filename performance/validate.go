package performance

import (
	"fmt"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/ftag"
)

// Validate reports configuration problems. None of them are fatal: the
// engine logs them and carries on with whatever still resolves.
func (p *Performance) Validate() []error {
	var problems []error
	warn := func(format string, args ...any) {
		problems = append(problems, fault.Wrap(fault.New(fmt.Sprintf(format, args...)), ftag.With(ftag.InvalidArgument)))
	}

	if len(p.Songs) == 0 {
		warn("performance %q has no songs", p.Title)
	}

	checkDevices := func(kind string, devices []Device) {
		ids := map[string]bool{}
		ports := map[string]string{}
		for _, d := range devices {
			if d.ID == "" {
				warn("%s %q has no id", kind, d.PortName)
			}
			if ids[d.ID] {
				warn("duplicate %s id %q", kind, d.ID)
			}
			ids[d.ID] = true
			if other, ok := ports[d.PortName]; ok {
				warn("%s %q and %q share port %q, first match wins", kind, other, d.ID, d.PortName)
			} else {
				ports[d.PortName] = d.ID
			}
			for _, ch := range d.Channels {
				if ch.Number < 1 || ch.Number > 16 {
					warn("%s %q channel %q has invalid number %d", kind, d.ID, ch.ID, ch.Number)
				}
			}
		}
	}
	checkDevices("input", p.Inputs)
	checkDevices("output", p.Outputs)

	for si := range p.Songs {
		song := &p.Songs[si]
		groups := map[string]bool{}
		for gi := range song.Groups {
			g := &song.Groups[gi]
			if groups[g.ID] {
				warn("song %q: duplicate group id %q", song.ID, g.ID)
			}
			groups[g.ID] = true

			if g.Type != GroupMapper && g.Type != GroupPlayer {
				warn("group %q: unknown type %q", g.ID, g.Type)
			}

			presets := map[string]bool{}
			for pi := range g.Presets {
				pr := &g.Presets[pi]
				if presets[pr.ID] {
					warn("group %q: duplicate preset id %q", g.ID, pr.ID)
				}
				presets[pr.ID] = true

				if g.Type == GroupPlayer && pr.FileURL == "" {
					warn("preset %s/%s: player preset has no fileUrl", g.ID, pr.ID)
				}
				if g.Type == GroupMapper && pr.FileURL != "" {
					warn("preset %s/%s: fileUrl ignored on mapper preset", g.ID, pr.ID)
				}
				if pr.Output != "" && p.Output(pr.Output) == nil {
					warn("preset %s/%s: unknown output %q", g.ID, pr.ID, pr.Output)
				}
				if t := pr.Trigger; t != nil {
					tg := song.Group(t.GroupID)
					if tg == nil {
						warn("preset %s/%s: trigger names unknown group %q", g.ID, pr.ID, t.GroupID)
					} else if tg.Preset(t.PresetID) == nil {
						warn("preset %s/%s: trigger names unknown preset %s/%s", g.ID, pr.ID, t.GroupID, t.PresetID)
					}
				}
				for ri, r := range pr.Rules {
					if r.Source != nil && r.Source.DeviceID != "" && p.Input(r.Source.DeviceID) == nil {
						warn("preset %s/%s rule %d: unknown source device %q", g.ID, pr.ID, ri, r.Source.DeviceID)
					}
					if r.Dest != nil && r.Dest.DeviceID != "" && p.Output(r.Dest.DeviceID) == nil {
						warn("preset %s/%s rule %d: unknown destination device %q", g.ID, pr.ID, ri, r.Dest.DeviceID)
					}
				}
			}
		}
	}

	return problems
}
