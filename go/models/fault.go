package models

import (
	"fmt"

	"github.com/pkg/errors"
)

type FaultKind int

const (
	NoFault FaultKind = iota
	AddressFallout
	InstructionFallout
)

func (k FaultKind) String() string {
	switch k {
	case NoFault:
		return "none"
	case AddressFallout:
		return "address fallout"
	case InstructionFallout:
		return "instruction fallout"
	}
	return fmt.Sprintf("fault(%d)", int(k))
}

// State returns the stopped state an execution fault of this kind settles into.
func (k FaultKind) State() RunState {
	if k == AddressFallout {
		return StoppedAddressFallout
	}
	return StoppedBadInstruction
}

// Fault is implemented by errors raised from an instruction loop.
type Fault interface {
	error
	Kind() FaultKind
	FaultAddr() uint64
}

type fault struct {
	kind FaultKind
	addr uint64
	msg  string
}

func (f *fault) Error() string     { return f.msg }
func (f *fault) Kind() FaultKind   { return f.kind }
func (f *fault) FaultAddr() uint64 { return f.addr }

func AddressFault(addr uint64, size int, reason string) error {
	msg := fmt.Sprintf("%s at %#x(%d)", reason, addr, size)
	return errors.WithStack(&fault{kind: AddressFallout, addr: addr, msg: msg})
}

func InstructionFault(addr uint64, format string, a ...interface{}) error {
	msg := fmt.Sprintf(format, a...) + fmt.Sprintf(" at %#x", addr)
	return errors.WithStack(&fault{kind: InstructionFallout, addr: addr, msg: msg})
}

// FaultOf classifies err. Untagged errors count as instruction fallout.
func FaultOf(err error) FaultKind {
	if err == nil {
		return NoFault
	}
	if f, ok := errors.Cause(err).(Fault); ok {
		return f.Kind()
	}
	return InstructionFallout
}
