package theme

import (
	"strings"
	"testing"
)

const sample = `GIMP Palette
Name: test
Columns: 2
#
  0   0   0	black
255 255 255	white
`

func TestParseGPL(t *testing.T) {
	p, err := ParseGPL(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Name != "test" {
		t.Errorf("name = %q", p.Name)
	}
	if len(p.Colors) != 2 {
		t.Fatalf("colors = %d, want 2", len(p.Colors))
	}
	if p.Colors[1] != (RGB{255, 255, 255}) {
		t.Errorf("white = %v", p.Colors[1])
	}
}

func TestParseGPLEmpty(t *testing.T) {
	if _, err := ParseGPL(strings.NewReader("GIMP Palette\n# nothing\n")); err == nil {
		t.Fatal("expected error for palette without colors")
	}
}

func TestLookupInterpolates(t *testing.T) {
	p, _ := ParseGPL(strings.NewReader(sample))

	tests := []struct {
		norm float64
		want RGB
	}{
		{-1, RGB{0, 0, 0}},
		{0, RGB{0, 0, 0}},
		{0.5, RGB{127, 127, 127}},
		{1, RGB{255, 255, 255}},
		{2, RGB{255, 255, 255}},
	}
	for _, tt := range tests {
		if got := p.Lookup(tt.norm); got != tt.want {
			t.Errorf("Lookup(%v) = %v, want %v", tt.norm, got, tt.want)
		}
	}
}

func TestSpreadDistinct(t *testing.T) {
	p := Default()
	seen := make(map[RGB]bool)
	for i := 0; i < 4; i++ {
		c := p.Spread(i, 4)
		if seen[c] {
			t.Errorf("Spread(%d, 4) = %v repeats", i, c)
		}
		seen[c] = true
	}
	if p.Spread(3, 4) != p.Lookup(1) {
		t.Errorf("last group should take the bright end")
	}
}

func TestDim(t *testing.T) {
	if got := Dim(RGB{200, 100, 8}); got != (RGB{50, 25, 2}) {
		t.Errorf("Dim = %v", got)
	}
}

func TestDefaultPalette(t *testing.T) {
	p := Default()
	if p.Name != "plasma" || len(p.Colors) != 11 {
		t.Errorf("default palette = %q with %d colors", p.Name, len(p.Colors))
	}
}

func TestParseGPLEmptyMessage(t *testing.T) {
	_, err := ParseGPL(strings.NewReader("GIMP Palette\n"))
	if err == nil || !strings.Contains(err.Error(), "no colors found") {
		t.Errorf("error = %v", err)
	}
}
