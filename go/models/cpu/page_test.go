package cpu

import (
	"testing"
)

func TestPageFind(t *testing.T) {
	mem := Pages{
		&Page{Addr: 0x1000, Size: 0x1000},
		&Page{Addr: 0x2000, Size: 0x1000},
		&Page{Addr: 0x4000, Size: 0x2000},
		&Page{Addr: 0x6000, Size: 0x2000},
	}
	if mem.Find(0x1000) != mem[0] ||
		mem.Find(0x1001) != mem[0] ||
		mem.Find(0x1fff) != mem[0] ||
		mem.Find(0x2000) != mem[1] ||
		mem.Find(0x7fff) != mem[3] {
		t.Error("Find() failed")
	}
	if mem.Find(0x3000) != nil ||
		mem.Find(0x1) != nil ||
		mem.Find(0x10000) != nil {
		t.Error("Find() negative failed")
	}
}

func TestPageString(t *testing.T) {
	p := &Page{Addr: 0x8000, Size: 0x1000, Prot: PROT_READ | PROT_EXEC, Desc: "code"}
	if s := p.String(); s != "0x8000-0x9000 r-x [code]" {
		t.Fatalf("String() = %q", s)
	}
	if !p.Overlaps(0x8fff, 2) || p.Overlaps(0x9000, 1) || p.Overlaps(0x7000, 0x1000) {
		t.Fatal("Overlaps() failed")
	}
}
