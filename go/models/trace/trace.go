// Package trace records controller run states and measured frequency to a
// compact file for later inspection.
package trace

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/snappy"
	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"

	"github.com/lunixbochs/emucore/go/control"
	"github.com/lunixbochs/emucore/go/models"
)

var TRACE_MAGIC = "EMUT"

const TRACE_VERSION = 1

type Header struct {
	// MAGIC ("EMUT")
	Magic   string `struc:"[4]byte"`
	Version uint32
	// throttle target when the trace started
	TargetKHz float64
	// unix nanos, records are relative to this
	Start int64

	StartTime time.Time `struc:"skip"`
}

const (
	KIND_STATE = 1
	KIND_FREQ  = 2
)

type Record struct {
	Kind  uint8
	Nanos int64
	State int32
	KHz   float64
}

func (r *Record) String() string {
	at := time.Duration(r.Nanos)
	switch r.Kind {
	case KIND_STATE:
		return fmt.Sprintf("%12s state %s", at, models.RunState(r.State))
	case KIND_FREQ:
		return fmt.Sprintf("%12s freq  %.2f kHz", at, r.KHz)
	}
	return fmt.Sprintf("%12s unknown record %d", at, r.Kind)
}

type Writer struct {
	sync.Mutex
	w      io.WriteCloser
	zw     *snappy.Writer
	stream *models.StrucStream
	start  time.Time
	now    func() time.Time
	closed bool
	err    error
}

func NewWriter(w io.WriteCloser, targetKHz float64) (*Writer, error) {
	start := time.Now()
	header := &Header{
		Magic:     TRACE_MAGIC,
		Version:   TRACE_VERSION,
		TargetKHz: targetKHz,
		Start:     start.UnixNano(),
	}
	if err := struc.Pack(w, header); err != nil {
		return nil, errors.Wrap(err, "failed to pack header")
	}
	zw := snappy.NewBufferedWriter(w)
	return &Writer{
		w:      w,
		zw:     zw,
		stream: &models.StrucStream{W: zw, Order: binary.LittleEndian},
		start:  start,
		now:    time.Now,
	}, nil
}

func (t *Writer) pack(r *Record) error {
	t.Lock()
	defer t.Unlock()
	if t.closed {
		return errors.New("trace writer is closed")
	}
	if t.err != nil {
		return t.err
	}
	r.Nanos = int64(t.now().Sub(t.start))
	if err := t.stream.Pack(r); err != nil {
		t.err = errors.Wrap(err, "failed to pack record")
	}
	return t.err
}

func (t *Writer) State(s models.RunState) error {
	return t.pack(&Record{Kind: KIND_STATE, State: int32(s)})
}

func (t *Writer) Freq(khz float64) error {
	return t.pack(&Record{Kind: KIND_FREQ, KHz: khz})
}

// Listener records every run state transition of a controller.
func (t *Writer) Listener() control.Listener {
	return &control.ListenerFuncs{
		OnRunState: func(s models.RunState) { t.State(s) },
	}
}

// Err returns the first write error, if any.
func (t *Writer) Err() error {
	t.Lock()
	defer t.Unlock()
	return t.err
}

func (t *Writer) Close() error {
	t.Lock()
	defer t.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	err := t.zw.Close()
	if cerr := t.w.Close(); err == nil {
		err = cerr
	}
	return err
}

type Reader struct {
	r      io.ReadCloser
	zr     *snappy.Reader
	stream *models.StrucStream
	Header Header
}

func NewReader(r io.ReadCloser) (*Reader, error) {
	t := &Reader{r: r}
	if err := struc.Unpack(r, &t.Header); err != nil {
		return nil, errors.Wrap(err, "failed to unpack header")
	}
	if t.Header.Magic != TRACE_MAGIC {
		return nil, errors.New("invalid trace file magic")
	}
	if t.Header.Version != TRACE_VERSION {
		return nil, errors.Errorf("unsupported trace version %d", t.Header.Version)
	}
	t.Header.StartTime = time.Unix(0, t.Header.Start)
	t.zr = snappy.NewReader(r)
	t.stream = &models.StrucStream{R: t.zr, Order: binary.LittleEndian}
	return t, nil
}

// Next returns the next record, or io.EOF at the end of the trace.
func (t *Reader) Next() (*Record, error) {
	var r Record
	if err := t.stream.Unpack(&r); err != nil {
		if err == io.EOF {
			return nil, err
		}
		if err == io.ErrUnexpectedEOF {
			return nil, errors.Wrap(err, "truncated trace record")
		}
		return nil, errors.Wrap(err, "failed to unpack record")
	}
	return &r, nil
}

func (t *Reader) Close() error {
	t.zr.Reset(nil)
	return t.r.Close()
}
