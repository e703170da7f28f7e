package timing

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lunixbochs/emucore/go/models"
)

type sampler struct {
	stop chan struct{}
	once sync.Once
}

func (s *sampler) cancel() {
	s.once.Do(func() { close(s.stop) })
}

// Meter turns a stream of executed-cycle counts into a kHz estimate,
// sampled once per period while started.
type Meter struct {
	period time.Duration
	log    models.Logger

	cycles atomic.Int64
	closed atomic.Bool
	since  atomic.Int64
	khz    atomic.Uint64

	// the live sampler; nil while stopped
	current atomic.Pointer[sampler]

	mu        sync.Mutex
	listeners map[int]func(kHz float64)
	nextID    int
}

func NewMeter(period time.Duration, log models.Logger) *Meter {
	if period <= 0 {
		period = time.Second
	}
	if log == nil {
		log = models.NullLogger
	}
	return &Meter{period: period, log: log, listeners: make(map[int]func(float64))}
}

func (m *Meter) AddListener(fn func(kHz float64)) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.listeners[m.nextID] = fn
	return m.nextID
}

func (m *Meter) RemoveListener(id int) {
	m.mu.Lock()
	delete(m.listeners, id)
	m.mu.Unlock()
}

// PassedCycles records executed cycles. It is ignored unless the meter is started.
func (m *Meter) PassedCycles(delta int64) {
	if m.current.Load() != nil {
		m.cycles.Add(delta)
	}
}

// swap installs next as the only live sampler and cancels the previous one.
func (m *Meter) swap(next *sampler) {
	for {
		prev := m.current.Load()
		if m.current.CompareAndSwap(prev, next) {
			if prev != nil {
				prev.cancel()
			}
			return
		}
	}
}

func (m *Meter) Start() {
	if m.closed.Load() {
		return
	}
	s := &sampler{stop: make(chan struct{})}
	m.cycles.Store(0)
	m.since.Store(time.Now().UnixNano())
	m.swap(s)
	// lost a race with Close
	if m.closed.Load() && m.current.CompareAndSwap(s, nil) {
		s.cancel()
	}
	go m.run(s)
}

// Stop cancels sampling. The accumulated count is kept.
func (m *Meter) Stop() {
	m.swap(nil)
}

// Close stops the meter for good.
func (m *Meter) Close() {
	m.closed.Store(true)
	m.Stop()
}

func (m *Meter) KHz() float64 {
	return math.Float64frombits(m.khz.Load())
}

func (m *Meter) Cycles() int64 {
	return m.cycles.Load()
}

func (m *Meter) run(s *sampler) {
	ticker := time.NewTicker(m.period)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			m.sample(s, now)
		}
	}
}

func (m *Meter) sample(s *sampler, now time.Time) {
	cycles := m.cycles.Load()
	elapsed := now.UnixNano() - m.since.Load()
	if cycles == 0 || elapsed <= 0 {
		return
	}
	khz := float64(cycles) / (float64(elapsed) / 1e6)
	if math.IsInf(khz, 0) || math.IsNaN(khz) {
		return
	}
	if m.current.Load() != s {
		return
	}
	m.khz.Store(math.Float64bits(khz))
	m.mu.Lock()
	fns := make([]func(float64), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		m.notify(fn, khz)
	}
}

func (m *Meter) notify(fn func(float64), khz float64) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Errorf("meter", "frequency listener panicked: %v", r)
		}
	}()
	fn(khz)
}
