package script

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"github.com/lunixbochs/emucore/go/cmd"
	"github.com/lunixbochs/emucore/go/lua"
	"github.com/lunixbochs/emucore/go/models"
)

func Main(args []string) {
	c := cmd.NewHostCmd()
	c.ArgUsage = " [script.lua]"
	var exprs []string
	c.SetupFlags = func() error {
		c.Flags.Func("e", "evaluate lua <expr> after the script (repeatable)", func(s string) error {
			exprs = append(exprs, s)
			return nil
		})
		return nil
	}
	c.RunHost = func(args []string) error {
		if len(args) < 2 && len(exprs) == 0 {
			c.Flags.Usage()
			return models.ExitStatus(1)
		}
		if err := c.Ctl.Reset(); err != nil {
			return err
		}
		L, err := lua.New(c.Ctl, c.Cpu, os.Stdout)
		if err != nil {
			return err
		}
		defer L.Close()
		if len(args) >= 2 {
			if err := L.DoFile(args[1]); err != nil {
				return errors.Wrap(err, args[1])
			}
		}
		for _, e := range exprs {
			if err := L.Eval(e); err != nil {
				return err
			}
		}
		// let programs the script started finish
		if c.Ctl.State() == models.Running {
			if _, err := c.Ctl.Wait(context.Background()); err != nil {
				return err
			}
		}
		if code := c.Cpu.ExitCode(); code != 0 {
			return models.ExitStatus(code)
		}
		return nil
	}
	os.Exit(c.Run(args))
}

func init() { cmd.Register("script", "drive a program with a lua script", Main) }
