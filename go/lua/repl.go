// Package lua binds a controller and its cpu into a luaish state for scripting.
package lua

import (
	"fmt"
	"io"
	"strings"

	"github.com/lunixbochs/luaish"
	"github.com/lunixbochs/luaish/parse"
	"github.com/pkg/errors"
	"github.com/shibukawa/configdir"

	"github.com/lunixbochs/emucore/go/console"
	"github.com/lunixbochs/emucore/go/control"
	"github.com/lunixbochs/emucore/go/cpu/ndh"
)

type readWriter struct {
	io.Reader
	io.Writer
}

type Script struct {
	*lua.LState
	io.Writer

	ctl     *control.Controller
	cpu     *ndh.Cpu
	console *console.Context
}

// New returns a lua state bound to ctl, printing to w.
// init.lua from the user config folders runs before it is returned.
func New(ctl *control.Controller, cpu *ndh.Cpu, w io.Writer) (*Script, error) {
	s := &Script{
		LState: lua.NewState(),
		Writer: w,
		ctl:    ctl,
		cpu:    cpu,
	}
	s.console = &console.Context{
		ReadWriter: &readWriter{strings.NewReader(""), w},
		Ctl:        ctl,
		Cpu:        cpu,
	}
	if err := s.loadBindings(); err != nil {
		s.Close()
		return nil, errors.Wrap(err, "failed to load lua bindings")
	}
	configDirs := configdir.New("emucore", "lua")
	for _, config := range configDirs.QueryFolders(configdir.All) {
		if data, err := config.ReadFile("init.lua"); err == nil {
			if err := s.DoString(string(data)); err != nil {
				s.Printf("error while reading init.lua: %v\n", err)
			}
		}
	}
	return s, nil
}

func (s *Script) Printf(format string, a ...interface{}) {
	fmt.Fprintf(s.Writer, format, a...)
}

func (s *Script) Println(a ...interface{}) {
	fmt.Fprintln(s.Writer, a...)
}

func (s *Script) loadstring(code string, recurse bool) (*lua.LFunction, error) {
	src := code
	if recurse {
		src = "return " + code
	}
	fn, err := s.LoadString(src)
	if err != nil && recurse {
		if lerr, ok := err.(*lua.ApiError); ok {
			if _, ok := lerr.Cause.(*parse.Error); ok {
				// not an expression, try it as a statement
				return s.loadstring(code, false)
			}
		}
	}
	return fn, err
}

// Eval runs a chunk and prints whatever it returns.
func (s *Script) Eval(code string) error {
	fn, err := s.loadstring(code, true)
	if err != nil {
		return err
	}
	s.SetTop(0)
	s.Push(fn)
	if err := s.PCall(0, lua.MultRet, nil); err != nil {
		return err
	}
	lv := make([]lua.LValue, s.GetTop())
	for i := range lv {
		lv[i] = s.Get(i + 1)
	}
	s.SetTop(0)
	if len(lv) == 1 && lv[0] == lua.LNil {
	} else if len(lv) > 0 {
		s.Println(strings.Join(pretty(lv, true), " "))
	}
	return nil
}
