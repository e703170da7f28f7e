package cpu

import (
	"github.com/pkg/errors"
)

var ErrInvalidReg = errors.New("invalid register")

type RegVal struct {
	Enum int
	Name string
	Val  uint64
}

// Regs is a register file indexed by small enums. Values are masked to the cpu word size.
type Regs struct {
	mask  uint64
	vals  []uint64
	valid []bool
	names []string
	order []int
}

// NewRegs takes enums in display order and their names.
func NewRegs(bits uint, enums []int, names map[int]string) *Regs {
	r := &Regs{mask: ^uint64(0) >> (64 - bits), order: enums}
	max := 0
	for _, e := range enums {
		if e+1 > max {
			max = e + 1
		}
	}
	r.vals = make([]uint64, max)
	r.valid = make([]bool, max)
	r.names = make([]string, max)
	for _, e := range enums {
		r.valid[e] = true
		r.names[e] = names[e]
	}
	return r
}

func (r *Regs) ok(enum int) bool {
	return enum >= 0 && enum < len(r.valid) && r.valid[enum]
}

func (r *Regs) RegRead(enum int) (uint64, error) {
	if !r.ok(enum) {
		return 0, errors.Wrapf(ErrInvalidReg, "read %d", enum)
	}
	return r.vals[enum], nil
}

func (r *Regs) RegWrite(enum int, val uint64) error {
	if !r.ok(enum) {
		return errors.Wrapf(ErrInvalidReg, "write %d", enum)
	}
	r.vals[enum] = val & r.mask
	return nil
}

func (r *Regs) RegDump() []RegVal {
	out := make([]RegVal, len(r.order))
	for i, e := range r.order {
		out[i] = RegVal{Enum: e, Name: r.names[e], Val: r.vals[e]}
	}
	return out
}

// RegEnum looks a register up by name.
func (r *Regs) RegEnum(name string) (int, bool) {
	for _, e := range r.order {
		if r.names[e] == name {
			return e, true
		}
	}
	return 0, false
}

// ContextSave copies the register file. reuse may be a previous result.
func (r *Regs) ContextSave(reuse []uint64) []uint64 {
	if cap(reuse) < len(r.vals) {
		reuse = make([]uint64, len(r.vals))
	}
	reuse = reuse[:len(r.vals)]
	copy(reuse, r.vals)
	return reuse
}

func (r *Regs) ContextRestore(ctx []uint64) error {
	if len(ctx) != len(r.vals) {
		return errors.New("incorrect context size")
	}
	copy(r.vals, ctx)
	return nil
}

func (r *Regs) Clear() {
	for i := range r.vals {
		r.vals[i] = 0
	}
}
