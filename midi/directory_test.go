package midi

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/Southclaws/fault/ftag"

	"solo-orchestra/performance"
)

func dev(id, port string, channels ...performance.Channel) performance.Device {
	return performance.Device{ID: id, Title: id, PortName: port, Channels: channels}
}

func TestSetDevicesBindsByPortName(t *testing.T) {
	b := NewMemoryBackend()
	b.AddIn("Keys MIDI 1")
	synth := b.AddOut("Synth")
	b.AddOut("Synth") // duplicate name, never used

	d := NewDirectory(b)
	d.SetDevices(
		[]performance.Device{dev("keys", "Keys MIDI 1"), dev("pads", "Pads")},
		[]performance.Device{dev("synth", "Synth"), dev("fx", "FX Box")},
	)

	ins := d.InputDevices()
	if len(ins) != 2 || !ins[0].Bound() || ins[1].Bound() {
		t.Fatalf("InputDevices() = %+v", ins)
	}
	outs := d.OutputDevices()
	if len(outs) != 2 || !outs[0].Bound() || outs[1].Bound() {
		t.Fatalf("OutputDevices() = %+v", outs)
	}

	if err := d.Send("synth", []byte{0x90, 60, 100}); err != nil {
		t.Fatal(err)
	}
	if got := synth.Messages(); len(got) != 1 || !bytes.Equal(got[0], []byte{0x90, 60, 100}) {
		t.Errorf("synth got % x", got)
	}
}

func TestSendMisses(t *testing.T) {
	d := NewDirectory(NewMemoryBackend())
	d.SetDevices(nil, []performance.Device{dev("fx", "FX Box")})

	if err := d.Send("nope", []byte{0xF8}); ftag.Get(err) != ftag.NotFound {
		t.Errorf("unknown device: %v", err)
	}
	if err := d.Send("fx", []byte{0xF8}); ftag.Get(err) != ftag.NotFound {
		t.Errorf("unbound device: %v", err)
	}

	err := d.Send("nope", []byte{0xF8})
	if err == nil || !strings.Contains(err.Error(), "unknown output nope") {
		t.Errorf("unknown device error text = %v", err)
	}
	err = d.Send("fx", []byte{0xF8})
	if err == nil || !strings.Contains(err.Error(), "fx is not connected") {
		t.Errorf("unbound device error text = %v", err)
	}

	// unbound outputs still resolve for channel lookups
	if _, ok := d.Output("fx"); !ok {
		t.Error("Output(fx) not found")
	}
}

func TestInboundMessagesReachHandler(t *testing.T) {
	b := NewMemoryBackend()
	keys := b.AddIn("Keys")

	d := NewDirectory(b)
	var mu sync.Mutex
	var got []string
	d.SetHandler(func(dev *performance.Device, msg []byte) {
		mu.Lock()
		got = append(got, dev.ID)
		mu.Unlock()
	})
	d.SetDevices([]performance.Device{dev("keys", "Keys")}, nil)

	keys.Deliver([]byte{0x90, 60, 100})
	if len(got) != 1 || got[0] != "keys" {
		t.Fatalf("handler got %v", got)
	}
}

func TestSetDevicesSwapsListeners(t *testing.T) {
	b := NewMemoryBackend()
	keys := b.AddIn("Keys")
	d := NewDirectory(b)

	var ids []string
	d.SetHandler(func(dev *performance.Device, msg []byte) { ids = append(ids, dev.ID) })

	d.SetDevices([]performance.Device{dev("old", "Keys")}, nil)
	d.SetDevices([]performance.Device{dev("new", "Keys")}, nil)

	if n := keys.Listening(); n != 1 {
		t.Fatalf("%d listeners after rebind, want 1", n)
	}
	keys.Deliver([]byte{0x80, 60, 0})
	if len(ids) != 1 || ids[0] != "new" {
		t.Errorf("handler saw %v, want [new]", ids)
	}

	d.Close()
	if keys.Listening() != 0 {
		t.Error("listener left after Close")
	}
}

func TestSendersReusedAcrossRebinds(t *testing.T) {
	b := NewMemoryBackend()
	synth := b.AddOut("Synth")
	d := NewDirectory(b)

	outputs := []performance.Device{dev("synth", "Synth")}
	d.SetDevices(nil, outputs)
	d.SetDevices(nil, outputs)
	if synth.Opens() != 1 {
		t.Errorf("port opened %d times, want 1", synth.Opens())
	}

	// unplug and replug opens the new port
	b.RemoveOut("Synth")
	d.SetDevices(nil, outputs)
	replug := b.AddOut("Synth")
	d.SetDevices(nil, outputs)
	if replug.Opens() != 1 {
		t.Errorf("replugged port opened %d times", replug.Opens())
	}
}

func TestAllNotesOff(t *testing.T) {
	b := NewMemoryBackend()
	a := b.AddOut("A")
	c := b.AddOut("C")
	d := NewDirectory(b)
	d.SetDevices(nil, []performance.Device{dev("a", "A"), dev("c", "C"), dev("missing", "M")})

	d.AllNotesOff()

	for _, out := range []*MemoryOut{a, c} {
		msgs := out.Messages()
		if len(msgs) != 16 {
			t.Fatalf("%s got %d messages, want 16", out.Name(), len(msgs))
		}
		for ch, m := range msgs {
			want := []byte{0xB0 | byte(ch), 123, 0}
			if !bytes.Equal(m, want) {
				t.Errorf("%s[%d] = % x, want % x", out.Name(), ch, m, want)
			}
		}
	}
}

func TestBackendFailureLeavesEmptyBindings(t *testing.T) {
	b := NewMemoryBackend()
	b.AddOut("Synth")
	b.SetFailing(true)

	d := NewDirectory(b)
	d.SetDevices(nil, []performance.Device{dev("synth", "Synth")})
	if d.OutputDevices()[0].Bound() {
		t.Error("bound while backend failing")
	}

	nilDir := NewDirectory(nil)
	nilDir.SetDevices(nil, []performance.Device{dev("synth", "Synth")})
	if _, ok := nilDir.FindOut("Synth"); ok {
		t.Error("FindOut on nil backend succeeded")
	}
}

func TestFindAndListPorts(t *testing.T) {
	b := NewMemoryBackend()
	b.AddIn("Keys")
	b.AddOut("Synth")
	d := NewDirectory(b)

	if p, ok := d.FindIn("Keys"); !ok || p.Name() != "Keys" {
		t.Errorf("FindIn(Keys) = %v, %v", p, ok)
	}
	if _, ok := d.FindOut("Keys"); ok {
		t.Error("FindOut found an input")
	}

	ins, outs, err := d.ListPorts()
	if err != nil || len(ins) != 1 || len(outs) != 1 || outs[0] != "Synth" {
		t.Errorf("ListPorts() = %v, %v, %v", ins, outs, err)
	}
}
