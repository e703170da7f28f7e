package cmd

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"

	"github.com/lunixbochs/emucore/go/console"
	"github.com/lunixbochs/emucore/go/control"
	"github.com/lunixbochs/emucore/go/cpu/ndh"
	"github.com/lunixbochs/emucore/go/models"
	"github.com/lunixbochs/emucore/go/models/trace"
	"github.com/lunixbochs/emucore/go/sched"
	"github.com/lunixbochs/emucore/go/timing"
)

// HostCmd builds a cpu and controller from command line flags and runs a program.
type HostCmd struct {
	Config *models.Config

	SetupFlags func() error
	Setup      func() error
	// RunHost replaces the default run-to-completion behavior.
	RunHost func(args []string) error
	Teardown func()

	// ArgUsage follows <program> in the usage line.
	ArgUsage string

	Cpu   *ndh.Cpu
	Ctl   *control.Controller
	Meter *timing.Meter
	Trace *trace.Writer
	Flags *flag.FlagSet

	stderr io.Writer
}

func NewHostCmd() *HostCmd {
	fs := flag.NewFlagSet("cli", flag.ExitOnError)
	return &HostCmd{Flags: fs, stderr: colorable.NewColorableStderr()}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func (c *HostCmd) PrintError(err error) {
	// print an error, and a stacktrace if available
	w := c.stderr
	fmt.Fprintf(w, "%s\n", strings.Repeat("-", 40))
	fmt.Fprintf(w, "Error: %s\n", err)
	if c.Config == nil || !c.Config.Verbose {
		return
	}
	if err, ok := err.(stackTracer); ok {
		var frames [][]string
		for _, f := range err.StackTrace() {
			fileline := fmt.Sprintf("%s:%d", f, f)
			method := fmt.Sprintf("%n", f)
			frames = append(frames, []string{fileline, method})
			if method == "main" {
				break
			}
		}
		width := 0
		for _, f := range frames {
			if len(f[0]) > width {
				width = len(f[0])
			}
		}
		for _, f := range frames {
			fmt.Fprintf(w, "%s%s | %s()\n", f[0], strings.Repeat(" ", width-len(f[0])), f[1])
		}
	}
}

// LoadProgram reads a raw ndh image, or hex text when the name ends in .hex.
func LoadProgram(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if filepath.Ext(path) == ".hex" {
		text := strings.Join(strings.Fields(string(data)), "")
		if data, err = hex.DecodeString(text); err != nil {
			return nil, errors.Wrapf(err, "%s: bad hex", path)
		}
	}
	return data, nil
}

func defaultColor() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Run parses argv, runs the program and returns the process exit code.
func (c *HostCmd) Run(argv []string) int {
	fs := c.Flags
	config := models.NewConfig()
	c.Config = config

	fs.Float64Var(&config.TargetKHz, "khz", config.TargetKHz, "target execution frequency in kHz")
	fs.DurationVar(&config.Slot, "slot", config.Slot, "throttle time slot (1ms..20ms)")
	fs.BoolVar(&config.Unthrottled, "nothrottle", false, "run as fast as possible")
	fs.DurationVar(&config.SamplePeriod, "sample", config.SamplePeriod, "frequency meter sample period")
	fs.DurationVar(&config.ShutdownTimeout, "shutdown", config.ShutdownTimeout, "time allowed for queues to drain on exit")
	fs.Uint64Var(&config.LoadAddr, "base", config.LoadAddr, "program load address")
	fs.Int64Var(&config.TickInterval, "ticks", 0, "enable the timer device every <n> cycles")
	fs.StringVar(&config.Tracefile, "trace", "", "record run states and frequency to <file>")
	fs.BoolVar(&config.Verbose, "v", false, "verbose output")
	fs.BoolVar(&config.Color, "color", defaultColor(), "colorize diagnostics")
	outfile := fs.String("o", "", "redirect diagnostics to file (default stderr)")

	listen := fs.Int("listen", -1, "serve the console on localhost:<port>")
	connect := fs.Int("connect", -1, "connect to a remote console on localhost:<port>")

	cpuprofile := fs.String("cpuprofile", "", "write cpu profile to <file>")
	memprofile := fs.String("memprofile", "", "write mem profile to <file>")

	fs.Usage = func() {
		fmt.Fprintf(c.stderr, "Usage: %s [options] <program>%s\n\nOptions:\n", argv[0], c.ArgUsage)
		var flags []*flag.Flag
		fs.VisitAll(func(f *flag.Flag) { flags = append(flags, f) })
		models.PrintFlags(c.stderr, flags)
		fmt.Fprintf(c.stderr, "\nConsole Client:\n  %s -connect <port>\n", argv[0])
	}
	if c.SetupFlags != nil {
		if err := c.SetupFlags(); err != nil {
			c.PrintError(err)
			return 1
		}
	}
	fs.Parse(argv[1:])

	// connect to a console server (skips everything else)
	if *connect > 0 {
		addr := net.JoinHostPort("localhost", strconv.Itoa(*connect))
		if err := console.RunClient(addr); err != nil {
			fmt.Fprintln(c.stderr, err)
			return 1
		}
		return 0
	}

	args := fs.Args()
	if len(args) < 1 {
		fs.Usage()
		return 1
	}

	config.LogOutput = c.stderr
	if *outfile != "" {
		out, err := os.OpenFile(*outfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			c.PrintError(err)
			return 1
		}
		defer out.Close()
		config.LogOutput = out
	}
	config.Init()
	log := config.Logger()

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			c.PrintError(err)
			return 1
		}
		pprof.StartCPUProfile(f)
	}
	teardown := func() {
		if c.Teardown != nil {
			c.Teardown()
		}
		if c.Ctl != nil {
			c.Ctl.Destroy()
		}
		if c.Meter != nil {
			c.Meter.Close()
		}
		if c.Trace != nil {
			if err := c.Trace.Close(); err != nil {
				log.Errorf("trace", "%v", err)
			}
		}
		if *cpuprofile != "" {
			pprof.StopCPUProfile()
		}
		if *memprofile != "" {
			f, err := os.Create(*memprofile)
			if err != nil {
				fmt.Fprintf(c.stderr, "could not write heap profile: %s\n", err)
				return
			}
			pprof.WriteHeapProfile(f)
			f.Close()
		}
	}
	defer teardown()

	if err := c.build(args[0]); err != nil {
		c.PrintError(err)
		return 1
	}
	if *listen > 0 {
		ln, err := console.Listen("localhost", strconv.Itoa(*listen))
		if err != nil {
			c.PrintError(err)
			return 1
		}
		defer ln.Close()
		server := &console.Server{Ctl: c.Ctl, Cpu: c.Cpu, Log: log, Color: config.Color}
		go server.Serve(ln)
	}
	if c.Setup != nil {
		if err := c.Setup(); err != nil {
			c.PrintError(err)
			return 1
		}
	}

	var err error
	if c.RunHost != nil {
		err = c.RunHost(args)
	} else {
		err = c.RunToEnd()
	}
	if err != nil {
		if e, ok := err.(models.ExitStatus); ok {
			return int(e)
		}
		c.PrintError(err)
		return 1
	}
	return 0
}

func (c *HostCmd) build(path string) error {
	config := c.Config
	log := config.Logger()
	code, err := LoadProgram(path)
	if err != nil {
		return err
	}
	c.Meter = timing.NewMeter(config.SamplePeriod, log)
	c.Cpu = ndh.New(config, sched.New(), c.Meter)
	if err := c.Cpu.Load(code); err != nil {
		return errors.Wrapf(err, "loading %s", path)
	}
	if config.TickInterval > 0 {
		if err := c.Cpu.EnableTicks(config.TickInterval); err != nil {
			return err
		}
	}
	c.Ctl = control.New(c.Cpu, log, control.WithShutdownTimeout(config.ShutdownTimeout))
	if config.Verbose {
		c.Meter.AddListener(func(khz float64) {
			log.Debugf("freq", "%.2f kHz", khz)
		})
	}
	if config.Tracefile != "" {
		f, err := os.Create(config.Tracefile)
		if err != nil {
			return errors.Wrap(err, "failed to create trace file")
		}
		if c.Trace, err = trace.NewWriter(f, config.TargetKHz); err != nil {
			f.Close()
			return err
		}
		c.Ctl.AddListener(c.Trace.Listener())
		c.Meter.AddListener(func(khz float64) { c.Trace.Freq(khz) })
	}
	return nil
}

// RunToEnd resets the program and runs it until it stops, pausing on interrupt.
func (c *HostCmd) RunToEnd() error {
	log := c.Config.Logger()
	if err := c.Ctl.Reset(); err != nil {
		return err
	}
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)
	go func() {
		for range sig {
			c.Ctl.Stop()
		}
	}()
	start := time.Now()
	if err := c.Ctl.Execute(); err != nil {
		return err
	}
	state, err := c.Ctl.Wait(context.Background())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	color := state.String()
	if c.Config.Color {
		color = state.Color()
	}
	cycles := c.Cpu.Sched().Clock()
	khz := 0.0
	if elapsed > 0 {
		khz = float64(cycles) / (float64(elapsed) / float64(time.Millisecond))
	}
	log.Infof("run", "%s at %#04x after %d instructions, %d cycles in %s (%.2f kHz)",
		color, c.Cpu.PC(), c.Cpu.Instructions(), cycles, elapsed, khz)
	if state.Fallout() {
		return errors.Errorf("program ended with %s at %#04x", state, c.Cpu.PC())
	}
	if code := c.Cpu.ExitCode(); code != 0 {
		return models.ExitStatus(code)
	}
	return nil
}
