package console

import (
	"io"
	"net"
	"os"

	"github.com/lunixbochs/readline"
	"github.com/pkg/errors"
)

// like go io.Copy(), but returns a channel to notify you upon completion
func copyNotify(dst io.Writer, src io.Reader) chan int {
	ret := make(chan int)
	go func() {
		io.Copy(dst, src)
		ret <- 1
	}()
	return ret
}

// RunClient attaches the local terminal to a remote console.
func RunClient(addr string) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return errors.Wrap(err, "error connecting to console")
	}
	defer conn.Close()
	if _, err := readline.MakeRaw(int(os.Stdin.Fd())); err != nil {
		return errors.Wrap(err, "error placing stdin into raw mode")
	}
	remoteEOF := copyNotify(os.Stdout, conn)
	localEOF := copyNotify(conn, os.Stdin)
	select {
	case <-remoteEOF:
		return errors.New("remote closed connection")
	case <-localEOF:
		return nil
	}
}
