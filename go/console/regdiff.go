package console

import (
	"fmt"
	"strings"

	"github.com/mgutz/ansi"

	"github.com/lunixbochs/emucore/go/models/cpu"
)

var chSame = ansi.ColorCode("default:default")
var chNew = ansi.ColorCode("default+bu:default")

// regChange is one register compared against its value at the previous snapshot.
type regChange struct {
	Name     string
	Old, New uint64
}

func (c regChange) Changed() bool { return c.Old != c.New }

type digitRun struct {
	digits  string
	changed bool
}

// runs splits the hex form of New into runs of digits that differ from Old or match it.
func (c regChange) runs(width int) []digitRun {
	hexFmt := fmt.Sprintf("%%0%dx", width)
	s1, s2 := fmt.Sprintf(hexFmt, c.New), fmt.Sprintf(hexFmt, c.Old)
	var out []digitRun
	pos := 0
	for i := 1; i <= len(s1); i++ {
		if i == len(s1) || (s1[i] == s2[i]) != (s1[pos] == s2[pos]) {
			out = append(out, digitRun{s1[pos:i], s1[pos] != s2[pos]})
			pos = i
		}
	}
	return out
}

func (c regChange) Format(width int, color bool) string {
	hexFmt := fmt.Sprintf("%%0%dx", width)
	if !c.Changed() {
		return fmt.Sprintf("  %-3s 0x"+hexFmt, c.Name, c.New)
	}
	if !color {
		return fmt.Sprintf("+ %-3s 0x"+hexFmt, c.Name, c.New)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "  %s%-3s%s 0x", chNew, c.Name, ansi.Reset)
	for _, r := range c.runs(width) {
		if r.changed {
			sb.WriteString(chNew)
		} else {
			sb.WriteString(chSame)
		}
		sb.WriteString(r.digits)
	}
	sb.WriteString(ansi.Reset)
	return sb.String()
}

// regDiff remembers the last register snapshot it was shown.
type regDiff struct {
	old map[int]uint64
}

// Diff compares regs against the previous call. The first call reports nothing as changed.
func (d *regDiff) Diff(regs []cpu.RegVal, onlyChanged bool) []regChange {
	out := make([]regChange, 0, len(regs))
	for _, r := range regs {
		old, ok := d.old[r.Enum]
		if !ok {
			old = r.Val
		}
		ch := regChange{Name: r.Name, Old: old, New: r.Val}
		if !onlyChanged || ch.Changed() {
			out = append(out, ch)
		}
	}
	d.old = make(map[int]uint64, len(regs))
	for _, r := range regs {
		d.old[r.Enum] = r.Val
	}
	return out
}

// formatChanges lays changes out in column-major rows of cols entries.
func formatChanges(changes []regChange, width, cols int, color bool) string {
	if len(changes) == 0 {
		return ""
	}
	rows := (len(changes) + cols - 1) / cols
	var sb strings.Builder
	for i := 0; i < rows; i++ {
		var line []string
		for j := 0; j < cols; j++ {
			if k := j*rows + i; k < len(changes) {
				line = append(line, changes[k].Format(width, color))
			}
		}
		sb.WriteString(strings.Join(line, " "))
		sb.WriteString("\n")
	}
	return sb.String()
}
