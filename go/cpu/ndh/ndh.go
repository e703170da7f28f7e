// Package ndh is a pure-Go interpreter for the 16-bit NDH architecture,
// driven by a control.Controller.
package ndh

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/lunixbochs/emucore/go/models"
	"github.com/lunixbochs/emucore/go/models/cpu"
	"github.com/lunixbochs/emucore/go/sched"
	"github.com/lunixbochs/emucore/go/timing"
)

func rbool(i bool) uint64 {
	if i {
		return 1
	}
	return 0
}

type Cpu struct {
	// held for the duration of each instruction
	mu   sync.Mutex
	regs *cpu.Regs
	mem  *cpu.Mem

	cfg      *models.Config
	sched    *sched.Scheduler
	meter    *timing.Meter
	throttle *timing.Throttle
	khz      atomic.Uint64

	image  []byte
	entry  uint64
	breaks map[uint64]bool

	err      error
	exitCode int
	insCount atomic.Int64
	ticks    atomic.Int64
	tick     *sched.Timer
}

// New builds a cpu. s and m may be nil, in which case private ones are created.
func New(cfg *models.Config, s *sched.Scheduler, m *timing.Meter) *Cpu {
	if cfg == nil {
		cfg = models.NewConfig()
	}
	cfg.Init()
	if s == nil {
		s = sched.New()
	}
	if m == nil {
		m = timing.NewMeter(cfg.SamplePeriod, cfg.Logger())
	}
	n := &Cpu{
		regs:   cpu.NewRegs(16, allRegs, allRegNames),
		mem:    cpu.NewMem(16, binary.LittleEndian),
		cfg:    cfg,
		sched:  s,
		meter:  m,
		breaks: make(map[uint64]bool),
	}
	n.SetTargetKHz(cfg.TargetKHz)
	n.throttle = timing.NewThrottle(n.TargetKHz, cfg.Slot)
	return n
}

func (n *Cpu) Sched() *sched.Scheduler { return n.sched }
func (n *Cpu) Meter() *timing.Meter    { return n.meter }
func (n *Cpu) Mem() *cpu.Mem           { return n.mem }
func (n *Cpu) Entry() uint64           { return n.entry }

func (n *Cpu) TargetKHz() float64 {
	return math.Float64frombits(n.khz.Load())
}

func (n *Cpu) SetTargetKHz(khz float64) {
	n.khz.Store(math.Float64bits(khz))
}

// Load maps code at the configured load address with a stack below it.
func (n *Cpu) Load(code []byte) error {
	if len(code) == 0 {
		return errors.New("empty program")
	}
	addr := n.cfg.LoadAddr
	if addr < 0x1000 || addr&0xfff != 0 {
		return errors.Errorf("load address %#x must be page aligned and leave room for a stack", addr)
	}
	size := (uint64(len(code)) + 0xfff) &^ 0xfff
	if err := n.mem.Map(0, addr, cpu.PROT_READ|cpu.PROT_WRITE, "stack"); err != nil {
		return errors.Wrap(err, "failed to map stack")
	}
	if err := n.mem.Map(addr, size, cpu.PROT_ALL, "code"); err != nil {
		return errors.Wrap(err, "failed to map code")
	}
	n.image = append([]byte(nil), code...)
	n.entry = addr
	return n.ResetInternal(addr)
}

// ResetInternal restores the loaded image, clears registers and the stack,
// and sets pc. A pos of 0 means the entry point.
func (n *Cpu) ResetInternal(pos uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.image == nil {
		return errors.New("no program loaded")
	}
	if pos == 0 {
		pos = n.entry
	}
	if pos > 0xffff {
		return errors.Errorf("reset position %#x outside 16-bit memory", pos)
	}
	if err := n.mem.MemWrite(n.entry, n.image); err != nil {
		return err
	}
	if err := n.mem.MemWrite(0, make([]byte, n.entry)); err != nil {
		return err
	}
	n.regs.Clear()
	n.regs.RegWrite(SP, n.entry)
	n.regs.RegWrite(BP, n.entry)
	n.regs.RegWrite(PC, pos)
	n.exitCode = 0
	n.sched.Reset()
	return nil
}

func (n *Cpu) set(a arg, val uint64) {
	switch v := a.(type) {
	case *reg:
		n.regs.RegWrite(int(v.num), val)
	case *indirect:
		addr := n.get(v.arg)
		if err := n.mem.WriteUint(addr, 1, cpu.PROT_WRITE, val); err != nil && n.err == nil {
			n.err = err
		}
	default:
		panic(fmt.Sprintf("unsupported set: %T", a))
	}
}

func (n *Cpu) get(a arg) uint64 {
	var val uint64
	switch v := a.(type) {
	case *u8:
		val = uint64(v.val)
	case *u16:
		val = uint64(v.val)
	case *reg:
		val, _ = n.regs.RegRead(int(v.num))
	case *indirect:
		var err error
		addr := n.get(v.arg)
		if val, err = n.mem.ReadUint(addr, 1, cpu.PROT_READ); err != nil && n.err == nil {
			n.err = err
		}
	default:
		panic(fmt.Sprintf("unsupported get: %T", a))
	}
	return val
}

func (n *Cpu) fetch(pc uint64) (*Ins, error) {
	var buf [MaxInsSize]byte
	size := MaxInsSize
	var err error
	// shrink the window near the end of a mapping
	for ; size > 0; size-- {
		if err = n.mem.ReadProt(pc, buf[:size], cpu.PROT_EXEC); err == nil {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	ins, err := Decode(buf[:size], pc)
	if err != nil {
		if errors.Cause(err) == errTruncated {
			return nil, models.AddressFault(pc+uint64(size), 1, "instruction runs past mapping")
		}
		return nil, models.InstructionFault(pc, "%v", err)
	}
	return ins, nil
}

// step executes the instruction at pc. Callers hold n.mu.
func (n *Cpu) step() (int64, models.RunState, error) {
	pc, _ := n.regs.RegRead(PC)
	ins, err := n.fetch(pc)
	if err != nil {
		return 1, models.FaultOf(err).State(), err
	}
	n.err = nil
	state, err := n.exec(ins)
	if err == nil {
		err = n.err
	}
	if err != nil {
		return ins.Cycles(), models.FaultOf(err).State(), err
	}
	return ins.Cycles(), state, nil
}

func (n *Cpu) exec(ins *Ins) (models.RunState, error) {
	var a, b arg
	switch len(ins.args) {
	case 2:
		a = ins.args[0]
		b = ins.args[1]
	case 1:
		a = ins.args[0]
	}
	pc := ins.addr
	next := pc + uint64(len(ins.bytes))
	jmpoff := int32(-1)
	afr, _ := n.regs.RegRead(AF)
	bfr, _ := n.regs.RegRead(BF)
	zfr, _ := n.regs.RegRead(ZF)
	sp, _ := n.regs.RegRead(SP)
	af, bf, zf := afr == 1, bfr == 1, zfr == 1

	zfcheck := func(val uint64) uint64 {
		zf = val&0xffff == 0
		return val
	}

	switch ins.op {
	case OP_DEC:
		n.set(a, n.get(a)-1)
	case OP_INC:
		n.set(a, n.get(a)+1)
	case OP_XCHG:
		xa, xb := n.get(a), n.get(b)
		n.set(a, xb)
		n.set(b, xa)
	case OP_MOV:
		n.set(a, n.get(b))

	case OP_ADD:
		n.set(a, zfcheck(n.get(a)+n.get(b)))
	case OP_AND:
		n.set(a, zfcheck(n.get(a)&n.get(b)))
	case OP_DIV:
		d := n.get(b)
		if d == 0 {
			return models.StoppedBadInstruction, models.InstructionFault(pc, "division by zero")
		}
		n.set(a, zfcheck(n.get(a)/d))
	case OP_MUL:
		n.set(a, zfcheck(n.get(a)*n.get(b)))
	case OP_NOT:
		n.set(a, zfcheck(^n.get(a)))
	case OP_OR:
		n.set(a, zfcheck(n.get(a)|n.get(b)))
	case OP_SUB:
		n.set(a, zfcheck(n.get(a)-n.get(b)))
	case OP_XOR:
		n.set(a, zfcheck(n.get(a)^n.get(b)))

	case OP_CMP:
		va, vb := n.get(a), n.get(b)
		af, bf, zf = false, false, false
		if va == vb {
			zf = true
		} else if va < vb {
			af = true
		} else {
			bf = true
		}
	case OP_TEST:
		zf = n.get(a) == 0 && n.get(b) == 0

	case OP_SYSCALL:
		if state, err := n.syscall(pc); err != nil || state != models.Running {
			return state, err
		}
	case OP_NOP:
	case OP_END:
		return models.StoppedNormal, nil
	case OP_JA:
		if af {
			jmpoff = int32(n.get(a))
		}
	case OP_JB:
		if bf {
			jmpoff = int32(n.get(a))
		}
	case OP_JMPL, OP_JMPS:
		jmpoff = int32(n.get(a))
	case OP_JNZ:
		if !zf {
			jmpoff = int32(n.get(a))
		}
	case OP_JZ:
		if zf {
			jmpoff = int32(n.get(a))
		}

	case OP_CALL:
		jmpoff = int32(n.get(a))
		sp -= 2
		if err := n.mem.WriteUint(sp, 2, cpu.PROT_WRITE, next); err != nil {
			return models.StoppedAddressFallout, err
		}
	case OP_RET:
		var err error
		if next, err = n.mem.ReadUint(sp, 2, cpu.PROT_READ); err != nil {
			return models.StoppedAddressFallout, err
		}
		sp += 2

	case OP_PUSH:
		size := 2
		if _, ok := a.(*u8); ok {
			size = 1
		}
		sp -= uint64(size)
		if err := n.mem.WriteUint(sp, size, cpu.PROT_WRITE, n.get(a)); err != nil {
			return models.StoppedAddressFallout, err
		}
	case OP_POP:
		val, err := n.mem.ReadUint(sp, 2, cpu.PROT_READ)
		if err != nil {
			return models.StoppedAddressFallout, err
		}
		n.set(a, val)
		sp += 2

	default:
		return models.StoppedBadInstruction, models.InstructionFault(pc, "invalid op: %#x", ins.op)
	}
	n.regs.RegWrite(AF, rbool(af))
	n.regs.RegWrite(BF, rbool(bf))
	n.regs.RegWrite(ZF, rbool(zf))
	n.regs.RegWrite(SP, sp)

	if jmpoff >= 0 {
		next = (next + uint64(jmpoff)) & 0xffff
	}
	n.regs.RegWrite(PC, next)
	return models.Running, nil
}

func (n *Cpu) account(cycles int64, state models.RunState, err error) (int64, models.RunState, error) {
	n.insCount.Add(1)
	n.sched.AdvanceClock(cycles)
	n.meter.PassedCycles(cycles)
	return cycles, state, err
}

// StepInternal executes exactly one instruction.
func (n *Cpu) StepInternal() (models.RunState, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, state, err := n.account(n.step())
	return state, err
}

// Call runs until the program ends, faults, hits a breakpoint or ctx is cancelled.
// A breakpoint at the starting pc is ignored so execution can resume from it.
func (n *Cpu) Call(ctx context.Context) (models.RunState, error) {
	n.meter.Start()
	defer n.meter.Stop()
	first := true
	exec := func() (int64, models.RunState, error) {
		n.mu.Lock()
		defer n.mu.Unlock()
		if !first && len(n.breaks) > 0 {
			if pc, _ := n.regs.RegRead(PC); n.breaks[pc] {
				return 0, models.StoppedBreak, nil
			}
		}
		first = false
		return n.account(n.step())
	}
	if n.cfg.Unthrottled {
		for i := 0; ; i++ {
			if i&0xff == 0 {
				if err := ctx.Err(); err != nil {
					return models.Running, err
				}
			}
			if _, state, err := exec(); err != nil || state != models.Running {
				return state, err
			}
		}
	}
	return n.throttle.Run(ctx, exec)
}

func (n *Cpu) AddBreak(addr uint64) {
	n.mu.Lock()
	n.breaks[addr&0xffff] = true
	n.mu.Unlock()
}

func (n *Cpu) DelBreak(addr uint64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	ok := n.breaks[addr&0xffff]
	delete(n.breaks, addr&0xffff)
	return ok
}

func (n *Cpu) Breaks() []uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]uint64, 0, len(n.breaks))
	for addr := range n.breaks {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// EnableTicks registers a timer device that counts every interval cycles.
func (n *Cpu) EnableTicks(interval int64) error {
	if n.tick != nil {
		n.sched.Remove(n.tick)
	}
	t, err := n.sched.Schedule(interval, func(int64) { n.ticks.Add(1) })
	if err != nil {
		return errors.Wrap(err, "tick device")
	}
	n.tick = t
	return nil
}

func (n *Cpu) Ticks() int64        { return n.ticks.Load() }
func (n *Cpu) Instructions() int64 { return n.insCount.Load() }

func (n *Cpu) ExitCode() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.exitCode
}

func (n *Cpu) RegDump() []cpu.RegVal {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.regs.RegDump()
}

func (n *Cpu) RegRead(enum int) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.regs.RegRead(enum)
}

func (n *Cpu) RegWrite(enum int, val uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.regs.RegWrite(enum, val)
}

// RegEnum looks up a register by name.
func (n *Cpu) RegEnum(name string) (int, bool) {
	return n.regs.RegEnum(name)
}

func (n *Cpu) PC() uint64 {
	pc, _ := n.RegRead(PC)
	return pc
}

// Disassemble decodes up to count instructions starting at addr.
func (n *Cpu) Disassemble(addr uint64, count int) ([]*Ins, error) {
	if addr > 0xffff {
		return nil, errors.Errorf("address %#x outside 16-bit memory", addr)
	}
	if count <= 0 {
		return nil, errors.Errorf("bad instruction count %d", count)
	}
	if count > 0x10000 {
		count = 0x10000
	}
	size := uint64(count * MaxInsSize)
	if addr+size > 0x10000 {
		size = 0x10000 - addr
	}
	var mem []byte
	var err error
	for ; size > 0; size-- {
		if mem, err = n.mem.MemRead(addr, size); err == nil {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	code, err := (&Dis{}).Dis(mem, addr)
	if len(code) > count {
		code = code[:count]
	}
	return code, err
}
