package cpu

import (
	"testing"

	"github.com/pkg/errors"
)

func makeRegs(bits uint) ([]int, *Regs) {
	enums := make([]int, 100)
	names := make(map[int]string)
	for i := range enums {
		enums[i] = 100 - i
		names[enums[i]] = "r" + string(rune('a'+i%26))
	}
	return enums, NewRegs(bits, enums, names)
}

func BenchmarkRegsRead(b *testing.B) {
	enums, regs := makeRegs(64)
	for i := 0; i < b.N; i++ {
		regs.RegRead(enums[i%len(enums)])
	}
}

func TestRegs(t *testing.T) {
	enums, regs := makeRegs(64)
	zero := regs.ContextSave(nil)
	for i, e := range enums {
		if err := regs.RegWrite(e, uint64(i*2)); err != nil {
			t.Fatal(err, "initial RegWrite() failed")
		}
	}
	for i, e := range enums {
		if val, err := regs.RegRead(e); err != nil {
			t.Fatal(err, "RegRead() failed")
		} else if val != uint64(i*2) {
			t.Fatalf("RegRead() returned %d, expecting %d", val, i*2)
		}
	}
	saved := regs.ContextSave(nil)
	if err := regs.ContextRestore(zero); err != nil {
		t.Fatal(err)
	}
	if val, _ := regs.RegRead(enums[10]); val != 0 {
		t.Fatalf("restored zero context, got %d", val)
	}
	regs.ContextRestore(saved)
	if val, _ := regs.RegRead(enums[10]); val != 20 {
		t.Fatalf("restored saved context, got %d", val)
	}
	if err := regs.ContextRestore(make([]uint64, 3)); err == nil {
		t.Fatal("restored context of the wrong size")
	}
}

func TestRegsMask(t *testing.T) {
	enums, regs := makeRegs(16)
	regs.RegWrite(enums[0], 0x12345)
	if val, _ := regs.RegRead(enums[0]); val != 0x2345 {
		t.Fatalf("16-bit register holds %#x", val)
	}
}

func TestRegsInvalid(t *testing.T) {
	_, regs := makeRegs(64)
	for _, e := range []int{-1, 0, 101, 1 << 20} {
		if _, err := regs.RegRead(e); errors.Cause(err) != ErrInvalidReg {
			t.Errorf("RegRead(%d) = %v", e, err)
		}
		if err := regs.RegWrite(e, 1); errors.Cause(err) != ErrInvalidReg {
			t.Errorf("RegWrite(%d) = %v", e, err)
		}
	}
}

func TestRegDump(t *testing.T) {
	regs := NewRegs(16, []int{2, 0, 1}, map[int]string{0: "a", 1: "b", 2: "c"})
	regs.RegWrite(1, 7)
	dump := regs.RegDump()
	if len(dump) != 3 || dump[0].Name != "c" || dump[2].Name != "b" || dump[2].Val != 7 {
		t.Fatalf("RegDump() = %+v", dump)
	}
	if e, ok := regs.RegEnum("b"); !ok || e != 1 {
		t.Fatalf("RegEnum(b) = %d, %v", e, ok)
	}
	regs.Clear()
	if val, _ := regs.RegRead(1); val != 0 {
		t.Fatal("Clear() left a value behind")
	}
}
