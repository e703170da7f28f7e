package run

import (
	"os"

	"github.com/lunixbochs/emucore/go/cmd"
)

func Main(args []string) {
	os.Exit(cmd.NewHostCmd().Run(args))
}

func init() { cmd.Register("run", "execute a program to completion", Main) }
