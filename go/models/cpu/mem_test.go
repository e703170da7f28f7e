package cpu

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/lunixbochs/emucore/go/models"
)

var asdf = []byte("asdf")

func TestMem8(t *testing.T) {
	mem := NewMem(8, binary.LittleEndian)
	if err := mem.Map(0x10, 0x10, 0, ""); err != nil {
		t.Fatal("failed to map memory:", err)
	}
	if err := mem.Map(0x0, 0x1000, 0, ""); err == nil {
		t.Fatal("mapped memory outside range")
	}
	if err := mem.Map(0x18, 0x10, 0, ""); err == nil {
		t.Fatal("mapped overlapping region")
	}
	if err := mem.MemWrite(0x1000, asdf); err == nil {
		t.Error("write succeeded above mapped memory")
	}
}

func TestMem(t *testing.T) {
	mappings := [][]uint64{
		{0x1000, 0x1000, PROT_READ | PROT_WRITE | PROT_EXEC},
		{0x2000, 0x1000, PROT_READ},
		{0x3000, 0x1000, PROT_READ | PROT_WRITE},
		{0x4000, 0x1000, PROT_READ | PROT_EXEC},
		{0x5000, 0x1000, PROT_EXEC},
	}
	mem := NewMem(16, binary.LittleEndian)
	for _, v := range mappings {
		if err := mem.Map(v[0], v[1], int(v[2]), ""); err != nil {
			t.Fatalf("failed to map memory (%#x, %#x, %d): %v", v[0], v[1], v[2], err)
		}
	}
	if err := mem.MemWrite(0, asdf); err == nil {
		t.Error("write succeeded below mapped memory")
	}
	if err := mem.MemWrite(0x6000, asdf); err == nil {
		t.Error("write succeeded above mapped memory")
	}
	for _, v := range mappings {
		if err := mem.MemWrite(v[0], asdf); err != nil {
			t.Error("write failed inside mapped memory")
		}
		if tmp, err := mem.MemRead(v[0], uint64(len(asdf))); err != nil {
			t.Error("read failed inside mapped memory")
		} else if !bytes.Equal(tmp, asdf) {
			t.Error("read returned bad value")
		}
	}
	tmp := make([]byte, 0x1000)
	for _, v := range mappings {
		if err := mem.ReadProt(v[0], tmp, int(v[2])); err != nil {
			t.Errorf("valid read failed on (%#x, %#x, %d): %v", v[0], v[1], v[2], err)
		}
		if err := mem.ReadProt(v[0], tmp, 8); err == nil {
			t.Errorf("invalid read succeeded on (%#x, %#x, %d)", v[0], v[1], v[2])
		}
		if err := mem.ReadProt(v[0], tmp, PROT_EXEC); (v[2]&PROT_EXEC == 0) != (err != nil) {
			t.Errorf("PROT_EXEC mismatch on %#x: %v", v[0], err)
		}
	}
	// a read spanning two adjacent pages
	if err := mem.MemWrite(0x1ffe, asdf); err != nil {
		t.Fatal("spanning write failed:", err)
	}
	if got, _ := mem.MemRead(0x1ffe, 4); !bytes.Equal(got, asdf) {
		t.Fatalf("spanning read = %q", got)
	}
}

func TestMemError(t *testing.T) {
	mem := NewMem(16, binary.LittleEndian)
	mem.Map(0x1000, 0x100, PROT_READ, "ro")
	tests := []struct {
		err  error
		enum int
	}{
		{mem.ReadProt(0x2000, make([]byte, 2), PROT_READ), MEM_READ_UNMAPPED},
		{mem.ReadProt(0x2000, make([]byte, 2), PROT_EXEC), MEM_FETCH_UNMAPPED},
		{mem.WriteProt(0x2000, asdf, PROT_WRITE), MEM_WRITE_UNMAPPED},
		{mem.WriteProt(0x1000, asdf, PROT_WRITE), MEM_WRITE_PROT},
		{mem.ReadProt(0x1000, asdf, PROT_EXEC), MEM_FETCH_PROT},
		{mem.ReadProt(0x10fe, asdf, PROT_READ), MEM_READ_UNMAPPED},
	}
	for i, v := range tests {
		merr, ok := v.err.(*MemError)
		if !ok {
			t.Errorf("%d: got %T %v, want *MemError", i, v.err, v.err)
			continue
		}
		if merr.Enum != v.enum {
			t.Errorf("%d: enum %d, want %d", i, merr.Enum, v.enum)
		}
		if models.FaultOf(v.err) != models.AddressFallout {
			t.Errorf("%d: %v is not an address fallout", i, v.err)
		}
	}
	// a write that fails must not be partially applied
	mem.Map(0x1100, 0x100, PROT_READ|PROT_WRITE, "rw")
	if err := mem.WriteProt(0x10fe, asdf, PROT_WRITE); err == nil {
		t.Fatal("write into read-only page succeeded")
	}
	if got, _ := mem.MemRead(0x1100, 2); got[0] != 0 || got[1] != 0 {
		t.Fatal("failed write modified memory")
	}
}

func TestMemUnmapProtect(t *testing.T) {
	mem := NewMem(16, binary.LittleEndian)
	mem.Map(0x1000, 0x100, PROT_READ, "")
	if err := mem.Protect(0x1000, PROT_ALL); err != nil {
		t.Fatal(err)
	}
	if err := mem.WriteProt(0x1000, asdf, PROT_WRITE); err != nil {
		t.Fatal("write after Protect failed:", err)
	}
	if err := mem.Unmap(0x1000); err != nil {
		t.Fatal(err)
	}
	if _, err := mem.MemRead(0x1000, 1); err == nil {
		t.Fatal("read after Unmap succeeded")
	}
	if err := mem.Unmap(0x1000); err == nil {
		t.Fatal("double Unmap succeeded")
	}
}

func TestMemUint(t *testing.T) {
	rawtest := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	ltable := map[int]uint64{
		1: 0x1,
		2: 0x0201,
		4: 0x04030201,
		8: 0x0807060504030201,
	}
	btable := map[int]uint64{
		1: 0x1,
		2: 0x0102,
		4: 0x01020304,
		8: 0x0102030405060708,
	}
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		table := ltable
		if order == binary.BigEndian {
			table = btable
		}
		mem := NewMem(32, order)
		if err := mem.Map(0x1000, 0x1000, PROT_READ|PROT_WRITE, ""); err != nil {
			t.Fatal("failed to map memory:", err)
		}
		if err := mem.MemWrite(0x1000, rawtest); err != nil {
			t.Fatal("failed to write memory:", err)
		}
		for size, val := range table {
			if n, err := mem.ReadUint(0x1000, size, PROT_READ); err != nil {
				t.Error("failed to read uint:", err)
			} else if n != val {
				t.Errorf("%v: ReadUint(%d) = %#x, want %#x", order, size, n, val)
			}
			if err := mem.WriteUint(0x1800, size, PROT_WRITE, val); err != nil {
				t.Error("failed to write uint:", err)
			}
			if n, _ := mem.ReadUint(0x1800, size, PROT_READ); n != val {
				t.Errorf("%v: WriteUint/ReadUint(%d) = %#x, want %#x", order, size, n, val)
			}
		}
		if _, err := mem.ReadUint(0x1000, 16, PROT_READ); err == nil {
			t.Error("oversized ReadUint succeeded")
		}
	}
}

func TestMemReadRange(t *testing.T) {
	mem := NewMem(16, binary.LittleEndian)
	mem.Map(0, 0x10000, PROT_READ, "all")
	if data, err := mem.MemRead(0xfff0, 0x10); err != nil || len(data) != 0x10 {
		t.Fatalf("read at top of memory: %v", err)
	}
	for _, v := range []struct{ addr, size uint64 }{
		{0x20000, 8},
		{0xfff0, 0x11},
		{0, ^uint64(0)},
		{0x8000, 1 << 40},
	} {
		_, err := mem.MemRead(v.addr, v.size)
		merr, ok := err.(*MemError)
		if !ok || merr.Enum != MEM_RANGE {
			t.Errorf("MemRead(%#x, %#x) = %v, want range error", v.addr, v.size, err)
		}
	}
}
