package ndh

import (
	"io"

	"github.com/lunixbochs/emucore/go/models"
	"github.com/lunixbochs/emucore/go/models/cpu"
)

var syscallNames = map[uint64]string{
	SYS_EXIT:   "exit",
	SYS_READ:   "read",
	SYS_WRITE:  "write",
	SYS_GETPID: "getpid",
}

// syscall dispatches on r0 with arguments in r1..r3; the result goes in r0.
func (n *Cpu) syscall(pc uint64) (models.RunState, error) {
	num, _ := n.regs.RegRead(R0)
	a1, _ := n.regs.RegRead(R1)
	a2, _ := n.regs.RegRead(R2)
	a3, _ := n.regs.RegRead(R3)
	if name, ok := syscallNames[num]; ok && n.cfg.Verbose {
		n.cfg.Logger().Debugf("syscall", "%s(%#x, %#x, %#x)", name, a1, a2, a3)
	}
	var ret uint64
	switch num {
	case SYS_EXIT:
		n.exitCode = int(int16(a1))
		return models.StoppedNormal, nil
	case SYS_WRITE:
		buf := make([]byte, a3)
		if err := n.mem.ReadProt(a2, buf, cpu.PROT_READ); err != nil {
			return models.StoppedAddressFallout, err
		}
		w := n.cfg.Output
		if w == nil {
			w = io.Discard
		}
		written, err := w.Write(buf)
		if err != nil {
			ret = 0xffff
		} else {
			ret = uint64(written)
		}
	case SYS_READ:
		if n.cfg.Input == nil {
			ret = 0xffff
			break
		}
		buf := make([]byte, a3)
		count, err := n.cfg.Input.Read(buf)
		if count > 0 {
			if err := n.mem.WriteProt(a2, buf[:count], cpu.PROT_WRITE); err != nil {
				return models.StoppedAddressFallout, err
			}
		}
		if err != nil && err != io.EOF {
			ret = 0xffff
		} else {
			ret = uint64(count)
		}
	case SYS_GETPID:
		ret = 1
	default:
		return models.StoppedBadInstruction, models.InstructionFault(pc, "unknown syscall %#x", num)
	}
	n.regs.RegWrite(R0, ret)
	return models.Running, nil
}
