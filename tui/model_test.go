package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"solo-orchestra/engine"
	"solo-orchestra/midi"
	"solo-orchestra/performance"
	"solo-orchestra/player"
	"solo-orchestra/theme"
)

func newTestModel(t *testing.T) (Model, *engine.Engine) {
	t.Helper()
	backend := midi.NewMemoryBackend()
	backend.AddOut("Synth")
	e := engine.New(engine.Options{
		Devices: midi.NewDirectory(backend),
		Clock:   player.NewManualClock(),
	})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go e.Run(ctx)

	e.Load(context.Background(), &performance.Performance{
		Title:   "Gig",
		Outputs: []performance.Device{{ID: "synth", Title: "Synth", PortName: "Synth"}},
		Songs: []performance.Song{{
			Title: "First",
			Groups: []performance.Group{
				{ID: "keys", Type: performance.GroupMapper, Exclusive: true, Presets: []performance.Preset{
					{ID: "piano", Title: "Piano", IsDefault: true},
					{ID: "organ", Title: "Organ"},
				}},
				{ID: "pads", Type: performance.GroupMapper, Presets: []performance.Preset{
					{ID: "warm", Title: "Warm"},
				}},
			},
		}},
	})

	m := NewModel(e, nil, theme.New(theme.Default()))
	m.refresh()
	return m, e
}

func press(m Model, keys ...tea.KeyMsg) Model {
	for _, k := range keys {
		next, _ := m.Update(k)
		m = next.(Model)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestCursorToggle(t *testing.T) {
	m, e := newTestModel(t)

	m = press(m, runes("l"), tea.KeyMsg{Type: tea.KeyEnter})
	if !e.IsActive("keys", "organ") || e.IsActive("keys", "piano") {
		t.Error("enter did not swap to organ")
	}

	m = press(m, runes("j"), runes("l"), runes("l"))
	if m.group != 1 || m.preset != 0 {
		t.Errorf("cursor = %d,%d, want clamped to 1,0", m.group, m.preset)
	}
	m = press(m, tea.KeyMsg{Type: tea.KeySpace})
	if !e.IsActive("pads", "warm") {
		t.Error("space did not toggle warm")
	}
}

func TestNumberPicks(t *testing.T) {
	m, e := newTestModel(t)

	m = press(m, runes("2"))
	if !e.IsActive("keys", "organ") {
		t.Error("2 did not pick the second preset")
	}
	press(m, runes("9"))
	if !e.IsActive("keys", "organ") {
		t.Error("out of range pick changed state")
	}
}

func TestPanicKey(t *testing.T) {
	m, e := newTestModel(t)
	press(m, runes("!"))
	if !e.IsActive("keys", "piano") {
		t.Error("panic changed mapper state")
	}
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestViewShowsGroups(t *testing.T) {
	m, _ := newTestModel(t)
	out := m.View()
	for _, want := range []string{"Gig", "First", "Piano", "Organ", "Warm", "Synth"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestDeviceEventRebinds(t *testing.T) {
	m, _ := newTestModel(t)
	next, cmd := m.Update(DeviceEventMsg(midi.DeviceEvent{Type: midi.PortsChanged}))
	if cmd != nil {
		t.Error("no device channel, expected no follow-up listen")
	}
	if len(next.(Model).state.Outputs) != 1 {
		t.Error("state not refreshed after device event")
	}
}
