package repl

import (
	"os"

	"github.com/lunixbochs/emucore/go/cmd"
	"github.com/lunixbochs/emucore/go/console"
)

func Main(args []string) {
	c := cmd.NewHostCmd()
	c.RunHost = func(args []string) error {
		if err := c.Ctl.Reset(); err != nil {
			return err
		}
		repl, err := console.NewRepl(&console.Context{Ctl: c.Ctl, Cpu: c.Cpu, Color: c.Config.Color})
		if err != nil {
			return err
		}
		return repl.Run()
	}
	os.Exit(c.Run(args))
}

func init() { cmd.Register("repl", "control a program from an interactive console", Main) }
