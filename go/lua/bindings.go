package lua

import (
	"context"
	"strconv"
	"time"

	"github.com/lunixbochs/luaish"
	"github.com/lunixbochs/luaish-luar"
	"github.com/pkg/errors"

	"github.com/lunixbochs/emucore/go/console"
	"github.com/lunixbochs/emucore/go/models"
)

func (s *Script) loadBindings() error {
	for name, fn := range s.Exports() {
		s.SetGlobal(name, s.NewFunction(fn))
	}
	s.SetGlobal("vm", luar.New(s.LState, s.ctl))
	s.SetGlobal("cpu", luar.New(s.LState, s.cpu))
	return s.DoString(sugarRc)
}

func (s *Script) Exports() map[string]lua.LGFunction {
	return map[string]lua.LGFunction{
		"print": s.print,
		"int":   s.toInt,

		"reset": s.reset,
		"run":   s.run,
		"pause": s.pause,
		"stop":  s.stop,
		"step":  s.step,
		"state": s.state,
		"wait":  s.wait,
		"sleep": s.sleep,
		"freq":  s.freq,

		"reg": s.reg,
		"mem": s.mem,
		"cmd": s.cmd,
	}
}

func (s *Script) checkErr(err error) {
	if err != nil {
		s.RaiseError(err.Error())
	}
}

func number(v lua.LValue) (float64, bool) {
	switch n := v.(type) {
	case lua.LInt:
		return float64(n), true
	case lua.LFloat:
		return float64(n), true
	case lua.LString:
		f, err := strconv.ParseFloat(string(n), 64)
		return f, err == nil
	}
	return 0, false
}

func (s *Script) print(L *lua.LState) int {
	lv := make([]lua.LValue, L.GetTop())
	for i := range lv {
		lv[i] = L.Get(i + 1)
	}
	s.Println(joinPretty(lv))
	return 0
}

func (s *Script) toInt(L *lua.LState) int {
	switch v := L.CheckAny(1).(type) {
	case lua.LString:
		n, err := strconv.ParseInt(string(v), 0, 64)
		if err == nil {
			L.Push(lua.LInt(n))
			return 1
		}
	case lua.LFloat:
		L.Push(lua.LInt(v))
		return 1
	case lua.LInt:
		L.Push(v)
		return 1
	}
	return 0
}

func (s *Script) pushState(L *lua.LState) int {
	L.Push(lua.LString(s.ctl.State().String()))
	return 1
}

func (s *Script) reset(L *lua.LState) int {
	if L.GetTop() >= 1 {
		s.checkErr(s.ctl.ResetAt(L.CheckUint64(1)))
	} else {
		s.checkErr(s.ctl.Reset())
	}
	return s.pushState(L)
}

func (s *Script) run(L *lua.LState) int {
	if st := s.ctl.State(); st != models.StoppedBreak {
		s.checkErr(errors.Errorf("cannot run while %s", st))
	}
	s.checkErr(s.ctl.Execute())
	return 0
}

func (s *Script) pause(L *lua.LState) int {
	s.checkErr(s.ctl.Pause())
	return s.pushState(L)
}

func (s *Script) stop(L *lua.LState) int {
	s.checkErr(s.ctl.Stop())
	return s.pushState(L)
}

func (s *Script) step(L *lua.LState) int {
	n := 1
	if L.GetTop() >= 1 {
		n = L.CheckInt(1)
	}
	for i := 0; i < n && s.ctl.State() == models.StoppedBreak; i++ {
		s.checkErr(s.ctl.Step())
	}
	return s.pushState(L)
}

func (s *Script) state(L *lua.LState) int {
	return s.pushState(L)
}

// wait([ms]) blocks until execution stops and returns the state.
func (s *Script) wait(L *lua.LState) int {
	ctx := context.Background()
	if L.GetTop() >= 1 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(L.CheckInt(1))*time.Millisecond)
		defer cancel()
	}
	st, err := s.ctl.Wait(ctx)
	if err != nil {
		L.Push(lua.LString(st.String()))
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LString(st.String()))
	return 1
}

func (s *Script) sleep(L *lua.LState) int {
	time.Sleep(time.Duration(L.CheckInt(1)) * time.Millisecond)
	return 0
}

// freq([khz]) sets the target when given and returns the measured frequency.
func (s *Script) freq(L *lua.LState) int {
	if L.GetTop() >= 1 {
		khz, ok := number(L.CheckAny(1))
		if !ok || khz <= 0 {
			L.ArgError(1, "frequency must be a positive number")
		}
		s.cpu.SetTargetKHz(khz)
	}
	L.Push(lua.LFloat(s.cpu.Meter().KHz()))
	return 1
}

// reg(name[, value])
func (s *Script) reg(L *lua.LState) int {
	name := L.CheckString(1)
	enum, ok := s.cpu.RegEnum(name)
	if !ok {
		L.ArgError(1, "unknown register "+name)
	}
	if L.GetTop() >= 2 {
		if s.ctl.State() == models.Running {
			s.checkErr(errors.New("cannot write registers while running"))
		}
		s.checkErr(s.cpu.RegWrite(enum, L.CheckUint64(2)))
	}
	val, err := s.cpu.RegRead(enum)
	s.checkErr(err)
	L.Push(lua.LInt(val))
	return 1
}

func (s *Script) mem(L *lua.LState) int {
	addr, size := L.CheckUint64(1), L.CheckUint64(2)
	data, err := s.cpu.Mem().MemRead(addr, size)
	s.checkErr(err)
	L.Push(lua.LString(data))
	return 1
}

// cmd(line) runs a console command, printing to the script output.
func (s *Script) cmd(L *lua.LState) int {
	if err := console.Run(s.console, L.CheckString(1)); err == console.ErrQuit {
		L.Push(lua.LString("quit"))
		return 1
	}
	return 0
}
