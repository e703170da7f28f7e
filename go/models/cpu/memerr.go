package cpu

import (
	"fmt"

	"github.com/lunixbochs/emucore/go/models"
)

// MemError is an address fallout raised by Mem.
type MemError struct {
	Addr uint64
	Size int
	Enum int
}

func (m *MemError) Reason() string {
	switch m.Enum {
	case MEM_WRITE_UNMAPPED:
		return "unmapped write"
	case MEM_READ_UNMAPPED:
		return "unmapped read"
	case MEM_FETCH_UNMAPPED:
		return "unmapped fetch"
	case MEM_WRITE_PROT:
		return "protected write"
	case MEM_READ_PROT:
		return "protected read"
	case MEM_FETCH_PROT:
		return "protected exec"
	case MEM_RANGE:
		return "address out of range"
	}
	return "memory error"
}

func (m *MemError) Error() string {
	return fmt.Sprintf("%s at %#x(%d)", m.Reason(), m.Addr, m.Size)
}

func (m *MemError) Kind() models.FaultKind { return models.AddressFallout }
func (m *MemError) FaultAddr() uint64      { return m.Addr }
