package trace

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/lunixbochs/emucore/go/models"
	"github.com/lunixbochs/emucore/go/models/trace"
)

type bufCloser struct{ bytes.Buffer }

func (b *bufCloser) Close() error { return nil }

func TestDump(t *testing.T) {
	var buf bufCloser
	w, err := trace.NewWriter(&buf, 1000)
	if err != nil {
		t.Fatal(err)
	}
	w.State(models.StoppedBreak)
	w.State(models.Running)
	w.Freq(900)
	w.Freq(1100)
	w.State(models.StoppedNormal)
	w.Close()

	for _, summarize := range []bool{false, true} {
		tf, err := trace.NewReader(io.NopCloser(bytes.NewReader(buf.Bytes())))
		if err != nil {
			t.Fatal(err)
		}
		var out bytes.Buffer
		if err := Dump(&out, tf, summarize); err != nil {
			t.Fatal(err)
		}
		s := out.String()
		if !strings.Contains(s, "target 1000 kHz") || !strings.Contains(s, "average 1000.00 kHz over 2 samples") {
			t.Errorf("bad dump:\n%s", s)
		}
		if got := strings.Contains(s, "freq  900.00 kHz"); got == summarize {
			t.Errorf("summary=%v but records printed=%v:\n%s", summarize, got, s)
		}
		if !strings.Contains(s, "running          1") {
			t.Errorf("missing state totals:\n%s", s)
		}
	}
}
