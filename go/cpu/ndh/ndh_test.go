package ndh

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/lunixbochs/emucore/go/control"
	"github.com/lunixbochs/emucore/go/models"
	"github.com/lunixbochs/emucore/go/models/cpu"
)

func newCpu(t *testing.T, code []byte, unthrottled bool) (*Cpu, *bytes.Buffer) {
	var out bytes.Buffer
	cfg := models.NewConfig()
	cfg.Output = &out
	cfg.Unthrottled = unthrottled
	cfg.SetLogger(models.NullLogger)
	n := New(cfg, nil, nil)
	if err := n.Load(code); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(n.Meter().Close)
	return n, &out
}

func call(t *testing.T, n *Cpu) (models.RunState, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return n.Call(ctx)
}

func TestHelloWorld(t *testing.T) {
	for _, unthrottled := range []bool{false, true} {
		n, out := newCpu(t, helloCode(t), unthrottled)
		state, err := call(t, n)
		if err != nil {
			t.Fatal(err)
		}
		if state != models.StoppedNormal {
			t.Fatalf("ended in %s", state)
		}
		if out.String() != "Hello World !\n\x00" {
			t.Fatalf("unexpected output: %q", out.String())
		}
		if n.Instructions() != 86 {
			t.Errorf("executed %d instructions, want 86", n.Instructions())
		}
		if n.Sched().Clock() != 105 {
			t.Errorf("clock at %d, want 105", n.Sched().Clock())
		}
		if r0, _ := n.RegRead(R0); r0 != 15 {
			t.Errorf("write returned %d", r0)
		}
	}
}

func TestResetRestoresImage(t *testing.T) {
	n, out := newCpu(t, helloCode(t), true)
	if err := n.Mem().MemWrite(0x8038, []byte("J")); err != nil {
		t.Fatal(err)
	}
	if err := n.ResetInternal(0); err != nil {
		t.Fatal(err)
	}
	if _, err := call(t, n); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "Hello") {
		t.Fatalf("image not restored: %q", out.String())
	}
	if n.PC() != 0x8037 {
		t.Fatalf("pc %#x after end", n.PC())
	}
	if err := n.ResetInternal(0x8003); err != nil {
		t.Fatal(err)
	}
	if n.PC() != 0x8003 {
		t.Fatalf("reset to %#x, want 0x8003", n.PC())
	}
	if sp, _ := n.RegRead(SP); sp != 0x8000 {
		t.Fatalf("sp %#x after reset", sp)
	}
	if err := n.ResetInternal(0x10000); err == nil {
		t.Fatal("reset outside memory succeeded")
	}
}

func TestStep(t *testing.T) {
	n, _ := newCpu(t, helloCode(t), true)
	state, err := n.StepInternal()
	if err != nil || state != models.Running {
		t.Fatalf("step: %s %v", state, err)
	}
	if n.PC() != 0x8003 {
		t.Fatalf("pc %#x after jmpl", n.PC())
	}
	n.StepInternal()
	if r0, _ := n.RegRead(R0); r0 != 0x8038 {
		t.Fatalf("r0 = %#x", r0)
	}
}

func TestFaults(t *testing.T) {
	tests := []struct {
		name  string
		code  []byte
		state models.RunState
	}{
		{"end", []byte{OP_END}, models.StoppedNormal},
		{"exit", []byte{OP_MOV, OP_FLAG_REG_DIRECT08, R0, SYS_EXIT, OP_MOV, OP_FLAG_REG_DIRECT08, R1, 3, OP_SYSCALL}, models.StoppedNormal},
		{"bad op", []byte{0x48}, models.StoppedBadInstruction},
		{"unmapped jump", []byte{OP_JMPL, 0x00, 0x20}, models.StoppedAddressFallout},
		{"divide by zero", []byte{OP_MOV, OP_FLAG_REG_DIRECT08, R0, 5, OP_DIV, OP_FLAG_REG_REG, R0, R1}, models.StoppedBadInstruction},
		{"bad syscall", []byte{OP_MOV, OP_FLAG_REG_DIRECT08, R0, 0x7f, OP_SYSCALL}, models.StoppedBadInstruction},
		{"stack underflow", []byte{OP_MOV, OP_FLAG_REG_DIRECT16, SP, 0x00, 0x00, OP_PUSH, OP_FLAG_REG, R0}, models.StoppedAddressFallout},
		{"bad pointer", []byte{OP_MOV, OP_FLAG_REG_DIRECT16, R1, 0x00, 0xf0, OP_MOV, OP_FLAG_REG_REGINDIRECT, R0, R1}, models.StoppedAddressFallout},
	}
	for _, test := range tests {
		n, _ := newCpu(t, test.code, true)
		state, err := call(t, n)
		if state != test.state {
			t.Errorf("%s: ended in %s (%v), want %s", test.name, state, err, test.state)
			continue
		}
		if state.Fallout() {
			if err == nil {
				t.Errorf("%s: no error for %s", test.name, state)
			} else if models.FaultOf(err).State() != state {
				t.Errorf("%s: error %v classified as %s", test.name, err, models.FaultOf(err))
			}
		} else if err != nil {
			t.Errorf("%s: %v", test.name, err)
		}
	}
}

func TestExitCode(t *testing.T) {
	code := []byte{OP_MOV, OP_FLAG_REG_DIRECT08, R0, SYS_EXIT, OP_MOV, OP_FLAG_REG_DIRECT08, R1, 3, OP_SYSCALL}
	n, _ := newCpu(t, code, true)
	if _, err := call(t, n); err != nil {
		t.Fatal(err)
	}
	if n.ExitCode() != 3 {
		t.Fatalf("exit code %d", n.ExitCode())
	}
}

func TestReadSyscall(t *testing.T) {
	code := []byte{
		OP_MOV, OP_FLAG_REG_DIRECT08, R0, SYS_READ,
		OP_MOV, OP_FLAG_REG_DIRECT08, R1, 0,
		OP_MOV, OP_FLAG_REG_DIRECT16, R2, 0x00, 0x81,
		OP_MOV, OP_FLAG_REG_DIRECT08, R3, 4,
		OP_SYSCALL,
		OP_END,
	}
	n, _ := newCpu(t, code, true)
	n.cfg.Input = strings.NewReader("abcdef")
	if _, err := call(t, n); err != nil {
		t.Fatal(err)
	}
	if r0, _ := n.RegRead(R0); r0 != 4 {
		t.Fatalf("read returned %d", r0)
	}
	mem, err := n.Mem().MemRead(0x8100, 4)
	if err != nil {
		t.Fatal(err)
	}
	if string(mem) != "abcd" {
		t.Fatalf("read stored %q", mem)
	}

	n.cfg.Input = nil
	n.ResetInternal(0)
	call(t, n)
	if r0, _ := n.RegRead(R0); r0 != 0xffff {
		t.Fatalf("read without input returned %#x", r0)
	}
}

func TestCallRet(t *testing.T) {
	code := []byte{
		OP_CALL, OP_FLAG_DIRECT16, 0x03, 0x00,
		OP_END,
		OP_NOP, OP_NOP,
		OP_MOV, OP_FLAG_REG_DIRECT08, R0, 0x2a,
		OP_RET,
	}
	n, _ := newCpu(t, code, true)
	state, err := call(t, n)
	if err != nil || state != models.StoppedNormal {
		t.Fatalf("ended in %s: %v", state, err)
	}
	if r0, _ := n.RegRead(R0); r0 != 0x2a {
		t.Fatalf("r0 = %#x", r0)
	}
	if sp, _ := n.RegRead(SP); sp != 0x8000 {
		t.Fatalf("sp = %#x", sp)
	}
	if n.PC() != 0x8004 {
		t.Fatalf("pc = %#x", n.PC())
	}
}

func TestBreakpoint(t *testing.T) {
	n, out := newCpu(t, helloCode(t), true)
	n.AddBreak(0x8025)
	state, err := call(t, n)
	if err != nil || state != models.StoppedBreak {
		t.Fatalf("ended in %s: %v", state, err)
	}
	if n.PC() != 0x8025 {
		t.Fatalf("stopped at %#x", n.PC())
	}
	if r5, _ := n.RegRead(R5); r5 != 15 {
		t.Fatalf("r5 = %d", r5)
	}
	if out.Len() != 0 {
		t.Fatal("output before breakpoint")
	}
	// resuming from a breakpoint executes it
	state, err = call(t, n)
	if err != nil || state != models.StoppedNormal {
		t.Fatalf("resume ended in %s: %v", state, err)
	}
	if got := n.Breaks(); len(got) != 1 || got[0] != 0x8025 {
		t.Fatalf("breaks = %v", got)
	}
	if !n.DelBreak(0x8025) || n.DelBreak(0x8025) {
		t.Fatal("DelBreak")
	}
}

func TestTicks(t *testing.T) {
	n, _ := newCpu(t, helloCode(t), true)
	if err := n.EnableTicks(10); err != nil {
		t.Fatal(err)
	}
	call(t, n)
	if n.Ticks() != 10 {
		t.Fatalf("%d ticks over 105 cycles", n.Ticks())
	}
	if err := n.EnableTicks(0); err == nil {
		t.Fatal("zero interval accepted")
	}
}

func TestDisassemble(t *testing.T) {
	n, _ := newCpu(t, helloCode(t), true)
	code, err := n.Disassemble(0x8000, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(code) != 3 || code[2].String() != "mov r1, 0x0" {
		t.Fatalf("unexpected disassembly: %v", code)
	}
	// runs into the end of memory
	if _, err := n.Disassemble(0xfff0, 4); err == nil {
		t.Fatal("disassembled unmapped memory")
	}
	for _, v := range []struct {
		addr  uint64
		count int
	}{{0x20000, 8}, {0x10000, 1}, {0x8000, 0}, {0x8000, -5}} {
		if _, err := n.Disassemble(v.addr, v.count); err == nil {
			t.Errorf("Disassemble(%#x, %d) succeeded", v.addr, v.count)
		}
	}
	if code, err := n.Disassemble(0x8000, 1<<40); len(code) == 0 {
		t.Fatalf("huge count: %v", err)
	}
}

func findReg(regs []cpu.RegVal, name string) (uint64, bool) {
	for _, r := range regs {
		if r.Name == name {
			return r.Val, true
		}
	}
	return 0, false
}

func TestRegDump(t *testing.T) {
	n, _ := newCpu(t, helloCode(t), true)
	regs := n.RegDump()
	if len(regs) != len(allRegs) {
		t.Fatalf("dumped %d regs", len(regs))
	}
	if pc, ok := findReg(regs, "pc"); !ok || pc != 0x8000 {
		t.Fatalf("pc = %#x", pc)
	}
}

func TestController(t *testing.T) {
	n, out := newCpu(t, helloCode(t), false)
	c := control.New(n, models.NullLogger)
	defer c.Destroy()
	if err := c.Reset(); err != nil {
		t.Fatal(err)
	}
	if err := c.Execute(); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	state, err := c.Wait(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if state != models.StoppedNormal {
		t.Fatalf("ended in %s", state)
	}
	if !strings.HasPrefix(out.String(), "Hello World !") {
		t.Fatalf("output %q", out.String())
	}
}

func TestControllerPause(t *testing.T) {
	// jmpl back onto itself
	n, _ := newCpu(t, []byte{OP_JMPL, 0xfd, 0xff}, false)
	c := control.New(n, models.NullLogger)
	defer c.Destroy()
	c.Reset()
	if err := c.Execute(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if c.State() != models.Running {
		t.Fatalf("state %s while looping", c.State())
	}
	if err := c.Pause(); err != nil {
		t.Fatal(err)
	}
	if c.State() != models.StoppedBreak {
		t.Fatalf("paused into %s", c.State())
	}
	if n.Instructions() == 0 {
		t.Fatal("nothing executed")
	}
	if n.PC() != 0x8000 {
		t.Fatalf("pc wandered to %#x", n.PC())
	}
}
