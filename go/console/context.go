package console

import (
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/lunixbochs/emucore/go/control"
	"github.com/lunixbochs/emucore/go/cpu/ndh"
)

// ErrQuit is returned by Run when a command asks the console to exit.
var ErrQuit = errors.New("quit")

type Context struct {
	io.ReadWriter
	Ctl *control.Controller
	Cpu *ndh.Cpu

	// print states with ansi colors
	Color bool

	regs regDiff
}

func (c *Context) Printf(format string, a ...interface{}) (n int, err error) {
	return fmt.Fprintf(c, format, a...)
}
