package widgets

import (
	"strings"
	"testing"
)

func TestRenderPadGridRows(t *testing.T) {
	var grid [8][8][3]uint8
	grid[0][0] = [3]uint8{255, 0, 0}
	out := RenderPadGrid(grid)

	lines := strings.Split(out, "\n")
	if len(lines) != 8 {
		t.Fatalf("got %d lines, want 8", len(lines))
	}
	// row 0 is drawn last
	if !strings.Contains(lines[7], "■") {
		t.Errorf("bottom line %q has no lit pad", lines[7])
	}
	if strings.Contains(lines[0], "■") {
		t.Errorf("top line %q should be dark", lines[0])
	}
}

func TestRenderKeyHelp(t *testing.T) {
	out := RenderKeyHelp([]KeySection{
		{Title: "Presets", Keys: []KeyBinding{{Key: "enter", Desc: "toggle"}}},
	})
	if !strings.Contains(out, "Presets") || !strings.Contains(out, "toggle") {
		t.Errorf("help = %q", out)
	}
}

func TestRenderButtonCursor(t *testing.T) {
	b := Button{Label: "Piano", Symbol: '●', Selected: true}
	out := RenderButton(b, ButtonStyle{})
	if !strings.Contains(out, "[") || !strings.Contains(out, "Piano") {
		t.Errorf("button = %q", out)
	}
	if strings.Contains(RenderButton(Button{Label: "Piano"}, ButtonStyle{}), "[") {
		t.Error("unselected button drew a cursor")
	}
}
