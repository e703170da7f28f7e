package models

import (
	"strings"
	"testing"
)

func TestHexDump(t *testing.T) {
	lines := HexDump(0x8000, []byte("Hello World !\n\x00abc"), 16)
	if len(lines) != 2 {
		t.Fatalf("got %d lines: %q", len(lines), lines)
	}
	if !strings.HasPrefix(lines[0], "0x8000: 4865 6c6c") {
		t.Errorf("bad first line %q", lines[0])
	}
	if !strings.HasSuffix(lines[0], "[Hello World !..a]") {
		t.Errorf("bad text column %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "0x8010: 6263 ") || !strings.HasSuffix(lines[1], "[bc]") {
		t.Errorf("bad tail line %q", lines[1])
	}
	if len(lines[0]) != len(strings.Replace(lines[1], "[bc]", "[Hello World !..a]", 1)) {
		t.Errorf("columns not aligned:\n%s\n%s", lines[0], lines[1])
	}
}
