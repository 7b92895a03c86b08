// Package engine owns the loaded performance: one runtime per group, the
// toggle, exclusivity and trigger rules of preset activation, live input
// routing, and the preset surface on a connected Launchpad.
package engine

import (
	"context"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"solo-orchestra/debug"
	"solo-orchestra/fetch"
	"solo-orchestra/mapper"
	"solo-orchestra/midi"
	"solo-orchestra/performance"
	"solo-orchestra/player"
	"solo-orchestra/theme"
)

// Devices is the device directory as the engine uses it
type Devices interface {
	mapper.Router
	SetDevices(inputs, outputs []performance.Device)
	SetHandler(h midi.Handler)
	InputDevices() []midi.DeviceStatus
	OutputDevices() []midi.DeviceStatus
	AllNotesOff()
}

// Options configures an Engine. Devices is required.
type Options struct {
	Devices Devices
	Source  performance.Source // fetches preset files; nil disables fetching
	Clock   player.Clock
	Parser  player.Parser
	Palette *theme.Palette // Launchpad colours
	// QueueSize bounds pending work; posters block when it is full
	QueueSize int
}

// Engine serializes every state change through its Queue. Exported methods
// may be called from any goroutine except the queue's own.
type Engine struct {
	queue   *Queue
	devices Devices
	source  performance.Source
	clock   player.Clock
	parser  player.Parser
	palette *theme.Palette
	mapper  *mapper.Mapper
	log     *log.Logger

	// owned by the queue goroutine
	perf     *performance.Performance
	song     *performance.Song
	runtimes map[string]groupRuntime
	surface  *surface

	updates chan struct{}
	dropped atomic.Uint64
}

func New(opts Options) *Engine {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Clock == nil {
		opts.Clock = player.RealClock()
	}
	if opts.Parser == nil {
		opts.Parser = player.SMFParser{}
	}
	if opts.Palette == nil {
		opts.Palette = theme.Default()
	}
	e := &Engine{
		queue:    NewQueue(opts.QueueSize),
		devices:  opts.Devices,
		source:   opts.Source,
		clock:    opts.Clock,
		parser:   opts.Parser,
		palette:  opts.Palette,
		mapper:   mapper.New(opts.Devices),
		log:      debug.Logger("engine"),
		runtimes: make(map[string]groupRuntime),
		updates:  make(chan struct{}, 1),
	}
	e.surface = newSurface(e)
	opts.Devices.SetHandler(e.onInput)
	return e
}

// Run processes the engine queue until ctx is cancelled
func (e *Engine) Run(ctx context.Context) {
	e.queue.Run(ctx)
}

// Updates signals (coalesced) that the visible state changed
func (e *Engine) Updates() <-chan struct{} {
	return e.updates
}

func (e *Engine) notify() {
	select {
	case e.updates <- struct{}{}:
	default:
	}
}

// changed runs after every state change on the queue
func (e *Engine) changed() {
	e.surface.flush()
	e.notify()
}

// onInput runs on a driver goroutine and never blocks it. Messages that
// arrive while the queue is full are dropped.
func (e *Engine) onInput(dev *performance.Device, msg []byte) {
	msg = append([]byte(nil), msg...)
	if !e.queue.TryPost(func() { e.route(dev, msg) }) {
		e.dropped.Add(1)
		debug.LogEvery(32, "engine", "input queue full, dropped message from %s", dev.ID)
	}
}

// Dropped returns how many input messages were dropped on a full queue
func (e *Engine) Dropped() uint64 {
	return e.dropped.Load()
}

// route sends a live input message through the live rules of every mapper
// group, in song order
func (e *Engine) route(dev *performance.Device, msg []byte) {
	if e.song == nil {
		return
	}
	for i := range e.song.Groups {
		rt, ok := e.runtimes[e.song.Groups[i].ID].(*mapperRuntime)
		if !ok || len(rt.rules) == 0 {
			continue
		}
		e.mapper.Apply(dev, msg, rt.rules)
	}
}

// Load installs perf: binds its devices, builds one runtime per group,
// starts fetching preset files and activates default mapper presets.
// Fetches stop when ctx is cancelled.
func (e *Engine) Load(ctx context.Context, perf *performance.Performance) {
	e.queue.Do(func() { e.load(ctx, perf) })
}

func (e *Engine) load(ctx context.Context, perf *performance.Performance) {
	for _, w := range perf.Validate() {
		e.log.Warn("performance", "problem", w)
	}

	e.stopAll()
	e.perf = perf
	e.song = perf.CurrentSong()
	e.runtimes = make(map[string]groupRuntime)

	e.devices.SetDevices(perf.Inputs, perf.Outputs)

	if e.song == nil {
		e.log.Warn("performance has no songs", "title", perf.Title)
		e.changed()
		return
	}

	for gi := range e.song.Groups {
		g := &e.song.Groups[gi]
		if _, dup := e.runtimes[g.ID]; dup {
			continue
		}
		switch g.Type {
		case performance.GroupMapper:
			e.runtimes[g.ID] = &mapperRuntime{group: g}
		case performance.GroupPlayer:
			e.runtimes[g.ID] = e.newPlayerRuntime(ctx, g)
		default:
			e.log.Warn("unknown group type", "group", g.ID, "type", g.Type)
		}
	}

	for gi := range e.song.Groups {
		g := &e.song.Groups[gi]
		if g.Type != performance.GroupMapper {
			continue
		}
		for pi := range g.Presets {
			p := &g.Presets[pi]
			if p.IsDefault && !e.isActive(g.ID, p.ID) {
				e.log.Info("default preset", "group", g.ID, "preset", p.ID)
				e.activate(g.ID, p.ID, make(map[string]bool))
			}
		}
	}

	e.log.Info("performance loaded", "title", perf.Title, "song", e.song.Title, "groups", len(e.song.Groups))
	e.changed()
}

func (e *Engine) newPlayerRuntime(ctx context.Context, g *performance.Group) *playerRuntime {
	rt := &playerRuntime{group: g, players: make(map[string]*presetPlayer)}
	for pi := range g.Presets {
		p := &g.Presets[pi]
		if _, dup := rt.players[p.ID]; dup {
			continue
		}
		direct := p.Output
		if direct == "" && len(e.perf.Outputs) > 0 {
			direct = e.perf.Outputs[0].ID
		}
		pp := &presetPlayer{preset: p}
		pp.adapter = player.NewAdapter(player.Options{
			Name:   g.ID + "/" + p.ID,
			Rules:  p.Rules,
			Direct: direct,
			Loop:   p.Loop,
			Router: e.devices,
			Clock:  e.clock,
			Parser: e.parser,
			Post:   func(f func()) { e.queue.Post(f) },
			OnIdle: e.changed,
		})
		rt.players[p.ID] = pp

		if p.FileURL != "" && e.source != nil {
			pp.state = FilePending
			e.fetchFile(ctx, g.ID, pp, fetch.Resolve(e.perf.Location, p.FileURL))
		}
	}
	return rt
}

// fetchFile retrieves a preset's bytes off the queue and stores the result
// back on it
func (e *Engine) fetchFile(ctx context.Context, groupID string, pp *presetPlayer, ref string) {
	perf := e.perf
	go func() {
		data, err := e.source.Get(ctx, ref)
		e.queue.Post(func() {
			if e.perf != perf {
				return // a newer performance replaced this one
			}
			if err != nil {
				e.log.Warn("preset file unavailable", "group", groupID, "preset", pp.preset.ID, "ref", ref, "err", err)
				pp.state = FileFailed
			} else {
				e.log.Debug("preset file ready", "group", groupID, "preset", pp.preset.ID, "bytes", len(data))
				pp.state = FileReady
				pp.data = data
			}
			e.changed()
		})
	}()
}

// ReplaceFile installs data as the file of a player preset. It reports
// false if no such preset exists.
func (e *Engine) ReplaceFile(groupID, presetID string, data []byte) bool {
	ok := false
	e.queue.Do(func() {
		rt, isPlayer := e.runtimes[groupID].(*playerRuntime)
		if !isPlayer {
			return
		}
		pp, found := rt.players[presetID]
		if !found {
			return
		}
		pp.data = data
		pp.state = FileReady
		ok = true
		e.changed()
	})
	return ok
}

// ActivatePreset toggles a preset, applying exclusivity and triggers
func (e *Engine) ActivatePreset(groupID, presetID string) {
	e.queue.Do(func() {
		e.activate(groupID, presetID, make(map[string]bool))
		e.changed()
	})
}

// activate is the recursive toggle. Exclusive siblings are toggled off
// first, then the preset itself. A trigger fires only when the preset ends
// up active, so switching a preset off never switches its target on.
// activating holds every preset entered through this call chain; a trigger
// pointing back into it is dropped.
func (e *Engine) activate(groupID, presetID string, activating map[string]bool) {
	activating[groupID+"\x00"+presetID] = true

	if e.song == nil {
		return
	}
	g := e.song.Group(groupID)
	rt, ok := e.runtimes[groupID]
	if g == nil || !ok {
		e.log.Debug("unknown group", "group", groupID)
		return
	}
	p := g.Preset(presetID)
	if p == nil {
		e.log.Debug("unknown preset", "group", groupID, "preset", presetID)
		return
	}

	if g.Exclusive {
		for i := range g.Presets {
			other := &g.Presets[i]
			if other.ID != presetID && rt.isActive(other.ID) {
				e.toggle(rt, other)
			}
		}
	}

	e.toggle(rt, p)

	if p.Trigger != nil && rt.isActive(presetID) {
		t := p.Trigger
		if activating[t.GroupID+"\x00"+t.PresetID] {
			e.log.Warn("trigger cycle", "group", groupID, "preset", presetID, "target", t.GroupID+"/"+t.PresetID)
			return
		}
		if !e.isActive(t.GroupID, t.PresetID) {
			e.activate(t.GroupID, t.PresetID, activating)
		}
	}
}

func (e *Engine) toggle(rt groupRuntime, p *performance.Preset) {
	switch rt := rt.(type) {
	case *mapperRuntime:
		rt.toggle(p)
		e.log.Info("mapper", "group", rt.group.ID, "preset", p.ID, "active", rt.isActive(p.ID))
	case *playerRuntime:
		e.togglePlayer(rt, p)
	}
}

func (e *Engine) togglePlayer(rt *playerRuntime, p *performance.Preset) {
	pp := rt.players[p.ID]
	if pp.adapter.IsPlaying() {
		pp.adapter.Stop()
		return
	}
	if pp.state != FileReady {
		e.log.Info("preset file not ready", "group", rt.group.ID, "preset", p.ID, "state", pp.state)
		return
	}
	if err := pp.adapter.Play(pp.data); err != nil {
		e.log.Warn("play", "group", rt.group.ID, "preset", p.ID, "err", err)
	}
}

func (e *Engine) isActive(groupID, presetID string) bool {
	rt, ok := e.runtimes[groupID]
	return ok && rt.isActive(presetID)
}

// IsActive reports whether a preset is active. Player presets are active
// exactly while their file plays.
func (e *Engine) IsActive(groupID, presetID string) bool {
	active := false
	e.queue.Do(func() { active = e.isActive(groupID, presetID) })
	return active
}

// CurrentPerformance returns the loaded performance (nil before Load)
func (e *Engine) CurrentPerformance() *performance.Performance {
	var p *performance.Performance
	e.queue.Do(func() { p = e.perf })
	return p
}

// CurrentSong returns the active song (nil before Load)
func (e *Engine) CurrentSong() *performance.Song {
	var s *performance.Song
	e.queue.Do(func() { s = e.song })
	return s
}

// Groups returns the groups of the current song
func (e *Engine) Groups() []performance.Group {
	var groups []performance.Group
	e.queue.Do(func() {
		if e.song != nil {
			groups = e.song.Groups
		}
	})
	return groups
}

// Rebind re-resolves the performance's devices, after ports changed
func (e *Engine) Rebind() {
	e.queue.Do(func() {
		if e.perf == nil {
			return
		}
		e.devices.SetDevices(e.perf.Inputs, e.perf.Outputs)
		e.changed()
	})
}

// Panic stops every player and sends all-notes-off everywhere. Mapper
// state is kept.
func (e *Engine) Panic() {
	e.queue.Do(e.silence)
}

func (e *Engine) silence() {
	e.log.Warn("panic")
	e.stopAll()
	e.devices.AllNotesOff()
	e.changed()
}

// Shutdown stops every player, releasing held notes through their own
// routes, then sends all-notes-off on every output
func (e *Engine) Shutdown() {
	e.queue.Do(func() {
		e.log.Info("shutdown")
		e.stopAll()
		e.devices.AllNotesOff()
		e.surface.clear()
	})
}

func (e *Engine) stopAll() {
	for _, rt := range e.runtimes {
		if pr, ok := rt.(*playerRuntime); ok {
			for _, pp := range pr.players {
				pp.adapter.Stop()
			}
		}
	}
}
