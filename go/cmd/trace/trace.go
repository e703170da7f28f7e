package trace

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/lunixbochs/emucore/go/cmd"
	"github.com/lunixbochs/emucore/go/models"
	"github.com/lunixbochs/emucore/go/models/trace"
)

type summary struct {
	states  map[models.RunState]int
	samples int
	khzSum  float64
	last    int64
}

func (s *summary) feed(r *trace.Record) {
	switch r.Kind {
	case trace.KIND_STATE:
		s.states[models.RunState(r.State)]++
	case trace.KIND_FREQ:
		s.samples++
		s.khzSum += r.KHz
	}
	s.last = r.Nanos
}

func (s *summary) print(w io.Writer) {
	fmt.Fprintf(w, "duration %s\n", time.Duration(s.last))
	var states []models.RunState
	for st := range s.states {
		states = append(states, st)
	}
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })
	for _, st := range states {
		fmt.Fprintf(w, "  %-16s %d\n", st, s.states[st])
	}
	if s.samples > 0 {
		fmt.Fprintf(w, "average %.2f kHz over %d samples\n", s.khzSum/float64(s.samples), s.samples)
	}
}

// Dump prints every record in tf, or only a summary.
func Dump(w io.Writer, tf *trace.Reader, summarize bool) error {
	h := tf.Header
	fmt.Fprintf(w, "trace v%d started %s, target %.0f kHz\n", h.Version, h.StartTime.Format(time.RFC3339), h.TargetKHz)
	sum := &summary{states: make(map[models.RunState]int)}
	for {
		r, err := tf.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return errors.Wrap(err, "error reading next trace record")
		}
		sum.feed(r)
		if !summarize {
			fmt.Fprintln(w, r)
		}
	}
	sum.print(w)
	return nil
}

func Main(args []string) {
	fs := flag.NewFlagSet("args", flag.ExitOnError)
	summarize := fs.Bool("summary", false, "only print totals")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <tracefile>\n", args[0])
		fs.PrintDefaults()
	}
	fs.Parse(args[1:])
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(1)
	}
	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	tf, err := trace.NewReader(f)
	if err != nil {
		f.Close()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer tf.Close()
	if err := Dump(os.Stdout, tf, *summarize); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() { cmd.Register("trace", "print a recorded trace file", Main) }
