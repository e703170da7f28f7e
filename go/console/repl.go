package console

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/shibukawa/configdir"

	"github.com/lunixbochs/emucore/go/control"
	"github.com/lunixbochs/emucore/go/models"
)

type readWriter struct {
	io.Reader
	io.Writer
}

// Repl is the local interactive console.
type Repl struct {
	ctx      *Context
	rl       *readline.Instance
	listener *control.ListenerFuncs
	configs  configdir.ConfigDir
}

func NewRepl(ctx *Context) (*Repl, error) {
	configDirs := configdir.New("emucore", "repl")
	cacheDir := configDirs.QueryCacheFolder()
	historyPath := ""
	if err := cacheDir.MkdirAll(); err == nil {
		historyPath = filepath.Join(cacheDir.Path, "history")
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "\n",
		HistoryFile:     historyPath,
	})
	if err != nil {
		return nil, err
	}
	ctx.ReadWriter = &readWriter{os.Stdin, rl.Stderr()}
	r := &Repl{ctx: ctx, rl: rl, configs: configDirs}
	r.listener = &control.ListenerFuncs{OnRunState: r.stateChanged}
	ctx.Ctl.AddListener(r.listener)
	r.setPrompt(ctx.Ctl.State())
	return r, nil
}

func (r *Repl) setPrompt(s models.RunState) {
	name := s.String()
	if r.ctx.Color {
		name = s.Color()
	}
	r.rl.SetPrompt(fmt.Sprintf("[%s] > ", name))
}

// stateChanged runs on the controller's notify goroutine.
func (r *Repl) stateChanged(s models.RunState) {
	r.setPrompt(s)
	if s.Fallout() || s == models.StoppedNormal {
		fmt.Fprintf(r.rl.Stderr(), "\n%s at %#04x\n", s, r.ctx.Cpu.PC())
	}
}

// runInit executes init.rc from every config folder that has one.
func (r *Repl) runInit() error {
	for _, config := range r.configs.QueryFolders(configdir.All) {
		data, err := config.ReadFile("init.rc")
		if err != nil {
			continue
		}
		for _, line := range strings.Split(string(data), "\n") {
			if err := Run(r.ctx, line); err == ErrQuit {
				return err
			}
		}
	}
	return nil
}

// Run reads commands until quit or EOF. Ctrl-C pauses a running program.
func (r *Repl) Run() error {
	defer r.Close()
	if err := r.runInit(); err == ErrQuit {
		return nil
	}
	for {
		line, err := r.rl.Readline()
		if err == readline.ErrInterrupt {
			if r.ctx.Ctl.State() == models.Running {
				r.ctx.Ctl.Pause()
			}
			continue
		} else if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
		if err := Run(r.ctx, line); err == ErrQuit {
			return nil
		}
	}
}

func (r *Repl) Close() {
	r.ctx.Ctl.RemoveListener(r.listener)
	r.rl.Close()
}
