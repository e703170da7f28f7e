package console

import (
	"strings"
	"testing"

	"github.com/mgutz/ansi"

	"github.com/lunixbochs/emucore/go/models/cpu"
)

func TestRegDiff(t *testing.T) {
	var d regDiff
	regs := []cpu.RegVal{{Enum: 0, Name: "r0", Val: 1}, {Enum: 1, Name: "r1", Val: 2}}
	if ch := d.Diff(regs, true); len(ch) != 0 {
		t.Fatalf("first diff should be empty, got %v", ch)
	}
	regs[1].Val = 0x1234
	ch := d.Diff(regs, true)
	if len(ch) != 1 || ch[0].Name != "r1" || ch[0].Old != 2 || ch[0].New != 0x1234 {
		t.Fatalf("bad diff: %+v", ch)
	}
	if all := d.Diff(regs, false); len(all) != 2 || all[1].Changed() {
		t.Fatalf("bad full diff: %+v", all)
	}
}

func TestRegChangeFormat(t *testing.T) {
	c := regChange{Name: "pc", Old: 0x8000, New: 0x8003}
	if got := c.Format(4, false); got != "+ pc  0x8003" {
		t.Errorf("got %q", got)
	}
	same := regChange{Name: "sp", Old: 5, New: 5}
	if got := same.Format(4, false); got != "  sp  0x0005" {
		t.Errorf("got %q", got)
	}
	runs := c.runs(4)
	if len(runs) != 2 || runs[0].digits != "800" || runs[0].changed || runs[1].digits != "3" || !runs[1].changed {
		t.Errorf("bad runs: %+v", runs)
	}
	colored := c.Format(4, true)
	if !strings.Contains(colored, chNew+"3") || !strings.HasSuffix(colored, ansi.Reset) {
		t.Errorf("bad color output %q", colored)
	}
}

func TestFormatChanges(t *testing.T) {
	var changes []regChange
	for _, n := range []string{"a", "b", "c", "d", "e"} {
		changes = append(changes, regChange{Name: n})
	}
	out := formatChanges(changes, 4, 4, false)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 rows, got %q", out)
	}
	if !strings.HasPrefix(lines[0], "  a ") || !strings.Contains(lines[0], "  c ") || !strings.HasPrefix(lines[1], "  b ") {
		t.Errorf("bad column layout:\n%s", out)
	}
	if formatChanges(nil, 4, 4, false) != "" {
		t.Error("empty changes should format to nothing")
	}
}
