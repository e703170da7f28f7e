package ndh

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// MaxInsSize is the largest encoded ndh instruction.
const MaxInsSize = 5

var (
	errTruncated = errors.New("truncated instruction")
	errBadOp     = errors.New("invalid op")
	errBadFlag   = errors.New("invalid operand flag")
)

type Ins struct {
	addr  uint64
	op    byte
	name  string
	args  []arg
	bytes []byte
}

func (i *Ins) String() string {
	if len(i.args) == 0 {
		return i.name
	}
	return i.name + " " + i.OpStr()
}

func (i *Ins) Addr() uint64     { return i.addr }
func (i *Ins) Bytes() []byte    { return i.bytes }
func (i *Ins) Mnemonic() string { return i.name }

func (i *Ins) OpStr() string {
	var args []string
	for _, a := range i.args {
		args = append(args, a.String())
	}
	return strings.Join(args, ", ")
}

// Cycles is one per instruction plus one per memory operand.
func (i *Ins) Cycles() int64 {
	n := int64(1)
	for _, a := range i.args {
		if _, ok := a.(*indirect); ok {
			n++
		}
	}
	switch i.op {
	case OP_PUSH, OP_POP, OP_CALL, OP_RET:
		n++
	case OP_SYSCALL:
		n += 4
	}
	return n
}

type arg interface {
	String() string
}

type u8 struct{ val uint8 }
type u16 struct{ val uint16 }
type reg struct{ num uint8 }
type indirect struct{ arg arg }

func (a *u8) String() string  { return fmt.Sprintf("%#x", a.val) }
func (a *u16) String() string { return fmt.Sprintf("%#x", a.val) }
func (a *reg) String() string {
	if name, ok := regNames[int(a.num)]; ok {
		return name
	}
	return fmt.Sprintf("r?%d", a.num)
}

func (a *indirect) String() string { return "[" + a.arg.String() + "]" }

type insReader struct {
	*bytes.Reader
	err  error
	addr uint64
}

func (i *insReader) r8() uint8 {
	b, err := i.ReadByte()
	if err != nil && i.err == nil {
		i.err = errTruncated
	}
	return b
}

func (i *insReader) r16() uint16 {
	var tmp [2]byte
	if n, _ := i.Read(tmp[:]); n < 2 && i.err == nil {
		i.err = errTruncated
	}
	return binary.LittleEndian.Uint16(tmp[:])
}

func (i *insReader) u8() arg  { return &u8{i.r8()} }
func (i *insReader) u16() arg { return &u16{i.r16()} }

func (i *insReader) reg() arg {
	r := &reg{i.r8()}
	if _, ok := regNames[int(r.num)]; !ok && i.err == nil {
		i.err = errors.Errorf("invalid register %#x", r.num)
	}
	return r
}

func (i *insReader) flag() []arg {
	flag := i.r8()
	switch flag {
	case OP_FLAG_REG_REG:
		return []arg{i.reg(), i.reg()}
	case OP_FLAG_REG_DIRECT08:
		return []arg{i.reg(), i.u8()}
	case OP_FLAG_REG_DIRECT16:
		return []arg{i.reg(), i.u16()}
	case OP_FLAG_REG:
		return []arg{i.reg()}
	case OP_FLAG_DIRECT16:
		return []arg{i.u16()}
	case OP_FLAG_DIRECT08:
		return []arg{i.u8()}
	case OP_FLAG_REGINDIRECT_REG:
		return []arg{&indirect{i.reg()}, i.reg()}
	case OP_FLAG_REGINDIRECT_DIRECT08:
		return []arg{&indirect{i.reg()}, i.u8()}
	case OP_FLAG_REGINDIRECT_DIRECT16:
		return []arg{&indirect{i.reg()}, i.u16()}
	case OP_FLAG_REGINDIRECT_REGINDIRECT:
		return []arg{&indirect{i.reg()}, &indirect{i.reg()}}
	case OP_FLAG_REG_REGINDIRECT:
		return []arg{i.reg(), &indirect{i.reg()}}
	}
	if i.err == nil {
		i.err = errors.Wrapf(errBadFlag, "%#x", flag)
	}
	return nil
}

func (i *insReader) tell() int64 {
	return i.Size() - int64(i.Len())
}

func (i *insReader) ins() (*Ins, error) {
	start := i.tell()
	b, err := i.ReadByte()
	if err != nil {
		return nil, errTruncated
	}
	data, ok := opData[int(b)]
	if !ok {
		return nil, errors.Wrapf(errBadOp, "%#x", b)
	}
	var args []arg
	switch data.arg {
	case A_NONE:
	case A_1REG:
		args = []arg{i.reg()}
	case A_2REG:
		args = []arg{i.reg(), i.reg()}
	case A_U8:
		args = []arg{i.u8()}
	case A_U16:
		args = []arg{i.u16()}
	case A_FLAG:
		args = i.flag()
	}
	if i.err != nil {
		return nil, i.err
	}
	p := make([]byte, i.tell()-start)
	i.ReadAt(p, start)
	return &Ins{
		addr:  i.addr + uint64(start),
		op:    b,
		name:  data.name,
		args:  args,
		bytes: p,
	}, nil
}

// Decode decodes the single instruction at the start of mem.
func Decode(mem []byte, addr uint64) (*Ins, error) {
	reader := &insReader{addr: addr, Reader: bytes.NewReader(mem)}
	return reader.ins()
}

type Dis struct{}

// Dis decodes instructions until mem runs out or an invalid one is found.
func (d *Dis) Dis(mem []byte, addr uint64) ([]*Ins, error) {
	reader := &insReader{addr: addr, Reader: bytes.NewReader(mem)}
	var ret []*Ins
	for reader.Len() > 0 {
		ins, err := reader.ins()
		if err != nil {
			if errors.Cause(err) == errTruncated {
				break
			}
			return ret, errors.Wrapf(err, "at %#x", addr+uint64(reader.tell()))
		}
		ret = append(ret, ins)
	}
	return ret, nil
}
