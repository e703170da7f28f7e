package console

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/lunixbochs/emucore/go/models"
)

func (c *Context) state() string {
	s := c.Ctl.State()
	if c.Color {
		return s.Color()
	}
	return s.String()
}

func (c *Context) printState() {
	c.Printf("%s at %#04x\n", c.state(), c.Cpu.PC())
}

var ResetCmd = cmd(&Command{
	Name: "reset",
	Desc: "Reload the program and break at the entry point or <pos>.",
	Run: []interface{}{
		func(c *Context) error {
			if err := c.Ctl.Reset(); err != nil {
				return err
			}
			c.printState()
			return nil
		},
		func(c *Context, pos uint64) error {
			if err := c.Ctl.ResetAt(pos); err != nil {
				return err
			}
			c.printState()
			return nil
		},
	},
})

var RunCmd = cmd(&Command{
	Name: "run",
	Desc: "Resume execution from a break.",
	Run: func(c *Context) error {
		if s := c.Ctl.State(); s != models.StoppedBreak {
			return errors.Errorf("cannot run while %s, try reset", s)
		}
		return c.Ctl.Execute()
	},
})

var PauseCmd = cmd(&Command{
	Name: "pause",
	Desc: "Interrupt execution, leaving the program resumable.",
	Run: func(c *Context) error {
		if err := c.Ctl.Pause(); err != nil {
			return err
		}
		c.printState()
		return nil
	},
})

var StopCmd = cmd(&Command{
	Name: "stop",
	Desc: "End execution. Only reset leaves this state.",
	Run: func(c *Context) error {
		if err := c.Ctl.Stop(); err != nil {
			return err
		}
		c.printState()
		return nil
	},
})

func step(c *Context, n int) error {
	if s := c.Ctl.State(); s != models.StoppedBreak {
		return errors.Errorf("cannot step while %s", s)
	}
	c.regs.Diff(c.Cpu.RegDump(), true)
	for i := 0; i < n && c.Ctl.State() == models.StoppedBreak; i++ {
		if err := c.Ctl.Step(); err != nil {
			return err
		}
	}
	c.printState()
	c.Printf("%s", formatChanges(c.regs.Diff(c.Cpu.RegDump(), true), 4, 4, c.Color))
	if code, err := c.Cpu.Disassemble(c.Cpu.PC(), 1); err == nil && len(code) > 0 {
		c.Printf("  %#04x: %s\n", code[0].Addr(), code[0])
	}
	return nil
}

var StepCmd = cmd(&Command{
	Name: "step",
	Desc: "Execute one instruction, or <n>.",
	Run: []interface{}{
		func(c *Context) error { return step(c, 1) },
		step,
	},
})

var StateCmd = cmd(&Command{
	Name: "state",
	Desc: "Show the run state.",
	Run: func(c *Context) error {
		c.printState()
		return nil
	},
})

func wait(c *Context, timeout time.Duration) error {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if _, err := c.Ctl.Wait(ctx); err != nil {
		return errors.Wrap(err, "wait")
	}
	c.printState()
	return nil
}

var WaitCmd = cmd(&Command{
	Name: "wait",
	Desc: "Block until execution stops, or for at most <ms>.",
	Run: []interface{}{
		func(c *Context) error { return wait(c, 0) },
		func(c *Context, ms int) error { return wait(c, time.Duration(ms)*time.Millisecond) },
	},
})

var FreqCmd = cmd(&Command{
	Name: "freq",
	Desc: "Show target and measured frequency, or set the target to <khz>.",
	Run: []interface{}{
		func(c *Context) error {
			c.Printf("target %.0f kHz, measured %.2f kHz\n", c.Cpu.TargetKHz(), c.Cpu.Meter().KHz())
			return nil
		},
		func(c *Context, khz float64) error {
			if khz <= 0 {
				return errors.Errorf("frequency must be positive: %v", khz)
			}
			c.Cpu.SetTargetKHz(khz)
			return nil
		},
	},
})

var QuitCmd = cmd(&Command{
	Name: "quit",
	Desc: "Leave the console.",
	Run: func(c *Context) error {
		return ErrQuit
	},
})
