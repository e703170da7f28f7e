package console

import (
	"net"

	"github.com/lunixbochs/readline"
	"github.com/pkg/errors"

	"github.com/lunixbochs/emucore/go/control"
	"github.com/lunixbochs/emucore/go/cpu/ndh"
	"github.com/lunixbochs/emucore/go/models"
)

// Server hands each TCP connection its own console on a shared controller.
type Server struct {
	Ctl   *control.Controller
	Cpu   *ndh.Cpu
	Log   models.Logger
	Color bool
}

func Listen(host, port string) (net.Listener, error) {
	addr := net.JoinHostPort(host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen on %s", addr)
	}
	return ln, nil
}

// Serve accepts connections until ln is closed.
func (s *Server) Serve(ln net.Listener) error {
	s.Log.Infof("console", "waiting for connections on %s", ln.Addr())
	for {
		c, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.Handle(c)
	}
}

func (s *Server) Handle(c net.Conn) {
	defer c.Close()
	s.Log.Infof("console", "connection from %s", c.RemoteAddr())

	tcp, ok := c.(*net.TCPConn)
	if !ok {
		s.Log.Errorf("console", "unsupported connection type %T", c)
		return
	}
	stdin, err := tcp.File()
	if err != nil {
		s.Log.Errorf("console", "error opening 'stdin' for console: %v", err)
		return
	}
	defer stdin.Close()
	rl, err := readline.NewEx(&readline.Config{
		Prompt: "> ",
		Stderr: c,
		Stdin:  stdin,
		Stdout: c,
	})
	if err != nil {
		s.Log.Errorf("console", "error opening readline for console: %v", err)
		return
	}
	defer rl.Close()
	ctx := &Context{ReadWriter: c, Ctl: s.Ctl, Cpu: s.Cpu, Color: s.Color}
	if err := s.loop(ctx, rl.Readline); err != nil {
		s.Log.Debugf("console", "%s: %v", c.RemoteAddr(), err)
	}
	s.Log.Infof("console", "%s disconnected", c.RemoteAddr())
}

// loop runs lines from next until it fails or a command quits.
func (s *Server) loop(ctx *Context, next func() (string, error)) error {
	for {
		line, err := next()
		if err != nil {
			return err
		}
		if err := Run(ctx, line); err == ErrQuit {
			return nil
		}
	}
}
