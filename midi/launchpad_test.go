package midi

import (
	"bytes"
	"testing"
)

func TestNoteMapping(t *testing.T) {
	for row := 0; row < 8; row++ {
		for col := 0; col < 9; col++ {
			r, c := noteToRowCol(rowColToNote(row, col))
			if r != row || c != col {
				t.Errorf("round trip %d,%d -> %d,%d", row, col, r, c)
			}
		}
	}
	if r, c := noteToRowCol(95); r != 8 || c != 4 {
		t.Errorf("note 95 -> %d,%d, want 8,4", r, c)
	}
	if r, _ := noteToRowCol(5); r != -1 {
		t.Errorf("note 5 mapped to row %d", r)
	}
	if r, c := ccToRowCol(91); r != 8 || c != 0 {
		t.Errorf("cc 91 -> %d,%d", r, c)
	}
}

func TestMapRGBToLaunchpad(t *testing.T) {
	tests := []struct {
		rgb  [3]uint8
		want uint8
	}{
		{[3]uint8{0, 0, 0}, 0},
		{[3]uint8{250, 5, 5}, 5},
		{[3]uint8{255, 255, 255}, 119},
		{[3]uint8{0, 250, 10}, 21},
	}
	for _, tt := range tests {
		if got := mapRGBToLaunchpad(tt.rgb); got != tt.want {
			t.Errorf("mapRGBToLaunchpad(%v) = %d, want %d", tt.rgb, got, tt.want)
		}
	}
}

func TestLaunchpadPadsAndLEDs(t *testing.T) {
	b := NewMemoryBackend()
	in := b.AddIn("LP")
	out := b.AddOut("LP")

	lp, err := NewLaunchpadController("LP", in, out)
	if err != nil {
		t.Fatal(err)
	}
	out.Reset()

	in.Deliver([]byte{0x90, 11, 0})   // release, ignored
	in.Deliver([]byte{0xB0, 93, 127}) // top row
	in.Deliver([]byte{0x90, 29, 64})  // scene column
	if pad := <-lp.PadEvents(); pad.Row != 8 || pad.Col != 2 {
		t.Errorf("first pad = %+v", pad)
	}
	if pad := <-lp.PadEvents(); pad.Row != 1 || pad.Col != 8 || pad.Velocity != 64 {
		t.Errorf("second pad = %+v", pad)
	}

	err = lp.SetLEDBatch([]LEDUpdate{{Row: 0, Col: 0, Color: [3]uint8{255, 0, 0}, Channel: ChannelPulse}})
	if err != nil {
		t.Fatal(err)
	}
	if msgs := out.Messages(); len(msgs) != 1 || !bytes.Equal(msgs[0], []byte{0x92, 11, 5}) {
		t.Errorf("led message = % x", msgs)
	}

	out.Reset()
	lp.Close()
	lp.Close()
	if n := len(out.Messages()); n != 80 {
		t.Errorf("close sent %d messages, want 80", n)
	}
	if in.Listening() != 0 {
		t.Error("input still listened after Close")
	}
}
