package ledger

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestNoteOnIsIdempotent(t *testing.T) {
	l := New()
	l.NoteOn(1, 60)
	l.NoteOn(1, 60)
	l.NoteOn(2, 60)

	if l.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", l.Len())
	}
}

func TestNoteOffUnknownIsNoop(t *testing.T) {
	l := New()
	l.NoteOn(1, 60)
	l.NoteOff(1, 61)
	l.NoteOff(3, 60)

	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1", l.Len())
	}
}

func TestDrainOrderAndEmpty(t *testing.T) {
	l := New()
	l.NoteOn(2, 60)
	l.NoteOn(2, 64)
	l.NoteOn(1, 40)
	l.NoteOff(2, 60)
	l.NoteOn(2, 60)

	got := l.Drain()
	want := []Note{{2, 64}, {1, 40}, {2, 60}}
	if len(got) != len(want) {
		t.Fatalf("Drain() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Drain()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if l.Len() != 0 {
		t.Errorf("Len() after drain = %d", l.Len())
	}
	if again := l.Drain(); len(again) != 0 {
		t.Errorf("second Drain() = %v", again)
	}
}

func TestObserve(t *testing.T) {
	l := New()
	l.Observe([]byte{0x91, 60, 100}) // ch 2 on
	l.Observe([]byte{0x91, 64, 100})
	l.Observe([]byte{0x91, 64, 0}) // velocity 0 releases
	l.Observe([]byte{0x92, 67, 90})
	l.Observe([]byte{0x82, 67, 40}) // regular note-off
	l.Observe([]byte{0xB1, 123, 0}) // ignored
	l.Observe([]byte{0x91})         // too short

	held := l.Held()
	if len(held) != 1 || held[0] != (Note{2, 60}) {
		t.Errorf("Held() = %v, want [{2 60}]", held)
	}
}

func TestNoteOff(t *testing.T) {
	if got := (Note{Channel: 2, Key: 60}).Off(); !bytes.Equal(got, []byte{0x81, 60, 0}) {
		t.Errorf("Off() = % x, want 81 3c 00", got)
	}
	if got := (Note{Channel: 16, Key: 127}).Off(); !bytes.Equal(got, []byte{0x8F, 127, 0}) {
		t.Errorf("Off() = % x, want 8f 7f 00", got)
	}
}

// Drain emits exactly one note-off per pair still held, whatever came before.
func TestDrainMatchesModel(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		l := New()
		model := map[Note]bool{}
		for i := 0; i < 200; i++ {
			n := Note{uint8(rng.Intn(3) + 1), uint8(rng.Intn(8) + 60)}
			if rng.Intn(2) == 0 {
				l.NoteOn(n.Channel, n.Key)
				model[n] = true
			} else {
				l.NoteOff(n.Channel, n.Key)
				delete(model, n)
			}
		}

		drained := l.Drain()
		seen := map[Note]bool{}
		for _, n := range drained {
			if seen[n] {
				t.Fatalf("round %d: %v drained twice", round, n)
			}
			seen[n] = true
			if !model[n] {
				t.Fatalf("round %d: drained %v which was released", round, n)
			}
		}
		if len(seen) != len(model) {
			t.Fatalf("round %d: drained %d notes, %d held", round, len(seen), len(model))
		}
		if l.Len() != 0 {
			t.Fatalf("round %d: ledger not empty", round)
		}
	}
}
