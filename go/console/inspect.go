package console

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/pkg/errors"

	"github.com/lunixbochs/emucore/go/models"
)

var strEqNumRe = regexp.MustCompile(`^([a-zA-Z0-9]+)=((-|0|0x|0b)?[0-9a-fA-F]+)$`)

var RegsCmd = cmd(&Command{
	Name: "regs",
	Desc: "Show registers, or read/write <name> and <name>=<value>.",
	Run: func(c *Context, args ...string) error {
		if len(args) == 0 {
			for _, reg := range c.Cpu.RegDump() {
				c.Printf("%-3s %#04x\n", reg.Name, reg.Val)
			}
			return nil
		}
		for _, v := range args {
			name := v
			var value uint64
			match := strEqNumRe.FindStringSubmatch(v)
			if len(match) > 0 {
				name = match[1]
				var err error
				if match[2][0] == '-' {
					var n int64
					n, err = strconv.ParseInt(match[2], 0, 17)
					value = uint64(n)
				} else {
					value, err = strconv.ParseUint(match[2], 0, 16)
				}
				if err != nil {
					c.Printf("error parsing %s value: %v\n", name, err)
					continue
				}
			}
			enum, ok := c.Cpu.RegEnum(name)
			if !ok {
				if strings.Contains(v, "=") {
					c.Printf("invalid assignment: %s\n", v)
				} else {
					c.Printf("reg %s not found\n", name)
				}
				continue
			}
			if len(match) > 0 {
				if c.Ctl.State() == models.Running {
					return errors.New("cannot write registers while running")
				}
				if err := c.Cpu.RegWrite(enum, value); err != nil {
					c.Printf("%s: %v\n", v, err)
				}
			} else {
				val, _ := c.Cpu.RegRead(enum)
				c.Printf("%-3s %#04x\n", name, val)
			}
		}
		return nil
	},
})

func mem(c *Context, addr, size uint64) error {
	data, err := c.Cpu.Mem().MemRead(addr, size)
	if err != nil {
		return err
	}
	for _, line := range models.HexDump(addr, data, int(c.Cpu.Mem().Bits())) {
		c.Printf("  %s\n", line)
	}
	return nil
}

var MemCmd = cmd(&Command{
	Name: "mem",
	Desc: "Hex dump memory at <addr>, 64 bytes or <size>.",
	Run: []interface{}{
		func(c *Context, addr uint64) error { return mem(c, addr, 64) },
		mem,
	},
})

var MapsCmd = cmd(&Command{
	Name: "maps",
	Desc: "Display memory mappings.",
	Run: func(c *Context) error {
		for _, p := range c.Cpu.Mem().Pages() {
			c.Printf("  %v\n", p.String())
		}
		return nil
	},
})

func dis(c *Context, addr uint64, count int) error {
	code, err := c.Cpu.Disassemble(addr, count)
	pc := c.Cpu.PC()
	for _, ins := range code {
		mark := "  "
		if ins.Addr() == pc {
			mark = "=>"
		}
		c.Printf("%s %#04x: %-14x %s\n", mark, ins.Addr(), ins.Bytes(), ins)
	}
	return err
}

var DisCmd = cmd(&Command{
	Name: "dis",
	Desc: "Disassemble at pc, or <addr>, for 8 or <n> instructions.",
	Run: []interface{}{
		func(c *Context) error { return dis(c, c.Cpu.PC(), 8) },
		func(c *Context, addr uint64) error { return dis(c, addr, 8) },
		dis,
	},
})

var TicksCmd = cmd(&Command{
	Name: "ticks",
	Desc: "Show timer ticks, instructions and cycles executed.",
	Run: func(c *Context) error {
		c.Printf("ticks %d, instructions %d, cycles %d\n", c.Cpu.Ticks(), c.Cpu.Instructions(), c.Cpu.Sched().Clock())
		return nil
	},
})

var BreakCmd = cmd(&Command{
	Name: "break",
	Desc: "List breakpoints, or break at <addr>.",
	Run: []interface{}{
		func(c *Context) error {
			for _, addr := range c.Cpu.Breaks() {
				c.Printf("  %#04x\n", addr)
			}
			return nil
		},
		func(c *Context, addr uint64) error {
			c.Cpu.AddBreak(addr)
			return nil
		},
	},
})

var DeleteCmd = cmd(&Command{
	Name: "delete",
	Desc: "Remove the breakpoint at <addr>.",
	Run: func(c *Context, addr uint64) error {
		if !c.Cpu.DelBreak(addr) {
			return errors.Errorf("no breakpoint at %#x", addr)
		}
		return nil
	},
})

var HelpCmd = cmd(&Command{
	Name: "help",
	Desc: "List commands.",
	Run: func(c *Context) error {
		names := Names()
		width := 0
		for _, name := range names {
			if w := runewidth.StringWidth(name); w > width {
				width = w
			}
		}
		for _, name := range names {
			c.Printf("  %s  %s\n", runewidth.FillRight(name, width), Commands[name].Desc)
		}
		return nil
	},
})
