package cpu

import (
	"encoding/binary"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Mem is a paged guest address space with per-page protections.
// Access errors are *MemError values, which classify as address fallout.
type Mem struct {
	sync.RWMutex
	bits  uint
	mask  uint64
	order binary.ByteOrder
	pages Pages
}

func NewMem(bits uint, order binary.ByteOrder) *Mem {
	return &Mem{
		bits:  bits,
		mask:  ^uint64(0) >> (64 - bits),
		order: order,
	}
}

func (m *Mem) Bits() uint                  { return m.bits }
func (m *Mem) ByteOrder() binary.ByteOrder { return m.order }

func (m *Mem) Map(addr, size uint64, prot int, desc string) error {
	if size == 0 {
		return errors.New("zero-size mapping")
	}
	if addr&m.mask != addr || (addr+size-1)&m.mask != addr+size-1 {
		return errors.Errorf("region %#x+%#x outside %d-bit memory", addr, size, m.bits)
	}
	m.Lock()
	defer m.Unlock()
	for _, p := range m.pages {
		if p.Overlaps(addr, size) {
			return errors.Errorf("region %#x+%#x overlaps %s", addr, size, p)
		}
	}
	m.pages = append(m.pages, &Page{Addr: addr, Size: size, Prot: prot, Data: make([]byte, size), Desc: desc})
	sort.Sort(m.pages)
	return nil
}

// Unmap removes the page starting at addr.
func (m *Mem) Unmap(addr uint64) error {
	m.Lock()
	defer m.Unlock()
	for i, p := range m.pages {
		if p.Addr == addr {
			m.pages = append(m.pages[:i], m.pages[i+1:]...)
			return nil
		}
	}
	return errors.Errorf("no mapping at %#x", addr)
}

func (m *Mem) Protect(addr uint64, prot int) error {
	m.Lock()
	defer m.Unlock()
	if p := m.pages.Find(addr); p != nil && p.Addr == addr {
		p.Prot = prot
		return nil
	}
	return errors.Errorf("no mapping at %#x", addr)
}

func (m *Mem) Pages() Pages {
	m.RLock()
	defer m.RUnlock()
	out := make(Pages, len(m.pages))
	for i, p := range m.pages {
		cp := *p
		out[i] = &cp
	}
	return out
}

func unmapped(prot int, write bool) int {
	switch {
	case write:
		return MEM_WRITE_UNMAPPED
	case prot&PROT_EXEC != 0:
		return MEM_FETCH_UNMAPPED
	}
	return MEM_READ_UNMAPPED
}

func protected(prot int, write bool) int {
	switch {
	case write:
		return MEM_WRITE_PROT
	case prot&PROT_EXEC != 0:
		return MEM_FETCH_PROT
	}
	return MEM_READ_PROT
}

// walk visits each page slice covering addr..addr+size, checking prot on each page.
// prot 0 skips protection checks.
func (m *Mem) walk(addr uint64, size int, prot int, write bool, fn func(data []byte)) error {
	if size == 0 {
		return nil
	}
	if addr&m.mask != addr || (addr+uint64(size)-1)&m.mask != addr+uint64(size)-1 {
		return &MemError{Addr: addr, Size: size, Enum: MEM_RANGE}
	}
	// check the whole range before touching anything
	type span struct {
		p      *Page
		lo, hi uint64
	}
	var spans []span
	pos, end := addr, addr+uint64(size)
	for pos < end {
		i := m.pages.find(pos)
		if i < 0 {
			return &MemError{Addr: addr, Size: size, Enum: unmapped(prot, write)}
		}
		p := m.pages[i]
		if prot != 0 && p.Prot&prot != prot {
			return &MemError{Addr: addr, Size: size, Enum: protected(prot, write)}
		}
		hi := p.Addr + p.Size
		if hi > end {
			hi = end
		}
		spans = append(spans, span{p, pos - p.Addr, hi - p.Addr})
		pos = hi
	}
	for _, s := range spans {
		fn(s.p.Data[s.lo:s.hi])
	}
	return nil
}

// ReadProt reads len(p) bytes at addr. Every covering page must allow prot.
func (m *Mem) ReadProt(addr uint64, p []byte, prot int) error {
	m.RLock()
	defer m.RUnlock()
	off := 0
	return m.walk(addr, len(p), prot, false, func(data []byte) {
		off += copy(p[off:], data)
	})
}

func (m *Mem) WriteProt(addr uint64, p []byte, prot int) error {
	m.Lock()
	defer m.Unlock()
	off := 0
	return m.walk(addr, len(p), prot, true, func(data []byte) {
		off += copy(data, p[off:])
	})
}

// MemRead reads without protection checks, for debuggers and loaders.
// The range must fit in the address space.
func (m *Mem) MemRead(addr, size uint64) ([]byte, error) {
	if addr > m.mask || (size > 0 && size-1 > m.mask-addr) {
		n := int(size)
		if size > m.mask || n < 0 {
			n = -1
		}
		return nil, &MemError{Addr: addr, Size: n, Enum: MEM_RANGE}
	}
	p := make([]byte, size)
	if err := m.ReadProt(addr, p, 0); err != nil {
		return nil, err
	}
	return p, nil
}

func (m *Mem) MemWrite(addr uint64, p []byte) error {
	return m.WriteProt(addr, p, 0)
}

func (m *Mem) ReadUint(addr uint64, size, prot int) (uint64, error) {
	if size > 8 {
		return 0, errors.Errorf("ReadUint size too large: %d > 8", size)
	}
	var buf [8]byte
	if err := m.ReadProt(addr, buf[:size], prot); err != nil {
		return 0, err
	}
	return UnpackUint(m.order, size, buf[:size])
}

func (m *Mem) WriteUint(addr uint64, size, prot int, val uint64) error {
	var buf [8]byte
	if size > 8 {
		return errors.Errorf("WriteUint size too large: %d > 8", size)
	}
	if _, err := PackUint(m.order, size, buf[:], val); err != nil {
		return err
	}
	return m.WriteProt(addr, buf[:size], prot)
}
