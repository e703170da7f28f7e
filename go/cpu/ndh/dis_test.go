package ndh

import (
	"encoding/hex"
	"testing"

	"github.com/pkg/errors"
)

var asmHex = "1b00000402003880040201000004020200000402050000040a02001702020a050a0011f2ff0401000404010101040202388004000305301c48656c6c6f20576f726c6420210a00"

// the code ends where the string data begins
const asmCodeLen = 0x38

func helloCode(t *testing.T) []byte {
	code, err := hex.DecodeString(asmHex)
	if err != nil {
		t.Fatal(err)
	}
	return code
}

func TestNdhDis(t *testing.T) {
	code := helloCode(t)
	out, err := (&Dis{}).Dis(code[:asmCodeLen], 0x8000)
	if err != nil {
		t.Fatal(err)
	}
	expect := []string{
		"jmpl 0x0",
		"mov r0, 0x8038",
		"mov r1, 0x0",
		"mov r2, 0x0",
		"mov r5, 0x0",
		"mov r2, [r0]",
		"test r2, r2",
		"inc r5",
		"inc r0",
		"jnz 0xfff2",
		"mov r0, 0x4",
		"mov r1, 0x1",
		"mov r2, 0x8038",
		"mov r3, r5",
		"syscall",
		"end",
	}
	if len(out) != len(expect) {
		for _, ins := range out {
			t.Log(ins)
		}
		t.Fatalf("decoded %d instructions, want %d", len(out), len(expect))
	}
	for i, ins := range out {
		if ins.String() != expect[i] {
			t.Errorf("ins %d at %#x: got %q, want %q", i, ins.Addr(), ins.String(), expect[i])
		}
	}
	if out[1].Addr() != 0x8003 || len(out[1].Bytes()) != 5 {
		t.Errorf("bad layout for %s: addr %#x len %d", out[1], out[1].Addr(), len(out[1].Bytes()))
	}
}

func TestDisStopsAtData(t *testing.T) {
	out, err := (&Dis{}).Dis(helloCode(t), 0x8000)
	if err == nil {
		t.Fatal("expected string data to fail decoding")
	}
	if errors.Cause(err) != errBadOp {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 16 {
		t.Fatalf("expected the code to decode before failing, got %d", len(out))
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		mem  []byte
		err  error
	}{
		{"empty", nil, errTruncated},
		{"short u16", []byte{OP_JMPL, 0x00}, errTruncated},
		{"short flag", []byte{OP_MOV, OP_FLAG_REG_DIRECT16, 0x00, 0x01}, errTruncated},
		{"bad op", []byte{0xff}, errBadOp},
		{"bad flag", []byte{OP_MOV, 0x7f, 0x00, 0x00}, errBadFlag},
	}
	for _, test := range tests {
		_, err := Decode(test.mem, 0)
		if errors.Cause(err) != test.err {
			t.Errorf("%s: got %v, want %v", test.name, err, test.err)
		}
	}
	if _, err := Decode([]byte{OP_INC, 0x20}, 0); err == nil {
		t.Error("invalid register decoded")
	}
}

func TestCycles(t *testing.T) {
	tests := []struct {
		mem    []byte
		cycles int64
	}{
		{[]byte{OP_NOP}, 1},
		{[]byte{OP_MOV, OP_FLAG_REG_REGINDIRECT, 0x02, 0x00}, 2},
		{[]byte{OP_MOV, OP_FLAG_REGINDIRECT_REGINDIRECT, 0x02, 0x00}, 3},
		{[]byte{OP_RET}, 2},
		{[]byte{OP_SYSCALL}, 5},
	}
	for _, test := range tests {
		ins, err := Decode(test.mem, 0)
		if err != nil {
			t.Fatal(err)
		}
		if ins.Cycles() != test.cycles {
			t.Errorf("%s: %d cycles, want %d", ins, ins.Cycles(), test.cycles)
		}
	}
}
