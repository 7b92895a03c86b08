package engine

import (
	"solo-orchestra/performance"
	"solo-orchestra/player"
)

// FileState tracks the bytes behind a player preset
type FileState int

const (
	FileNone    FileState = iota // preset names no file
	FilePending                  // fetch in flight
	FileReady
	FileFailed
)

func (s FileState) String() string {
	switch s {
	case FilePending:
		return "loading"
	case FileReady:
		return "ready"
	case FileFailed:
		return "unavailable"
	}
	return "none"
}

// groupRuntime is the live state of one group. It is either a
// *mapperRuntime or a *playerRuntime.
type groupRuntime interface {
	isActive(presetID string) bool
}

// mapperRuntime holds the single live rule set of a mapper group
type mapperRuntime struct {
	group  *performance.Group
	active string // id of the preset whose rules are live, "" if none
	rules  []performance.Rule
}

func (r *mapperRuntime) isActive(presetID string) bool {
	return presetID != "" && r.active == presetID
}

func (r *mapperRuntime) toggle(p *performance.Preset) {
	if r.active == p.ID {
		r.active = ""
		r.rules = nil
		return
	}
	r.active = p.ID
	r.rules = p.Rules
}

// presetPlayer is the adapter and file bytes of one player preset
type presetPlayer struct {
	preset  *performance.Preset
	adapter *player.Adapter
	state   FileState
	data    []byte
}

type playerRuntime struct {
	group   *performance.Group
	players map[string]*presetPlayer
}

func (r *playerRuntime) isActive(presetID string) bool {
	pp, ok := r.players[presetID]
	return ok && pp.adapter.IsPlaying()
}
