// Package sched fires cycle-indexed timer callbacks against a logical clock
// that only advances when the emulated CPU executes.
package sched

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

var ErrInterval = errors.New("timer interval must be positive")

// Timer is a registered callback. It is returned by Schedule and passed to Remove.
type Timer struct {
	interval  int64
	recurring bool
	cb        func(cycle int64)
	removed   atomic.Bool
}

func (t *Timer) Interval() int64 { return t.interval }
func (t *Timer) Recurring() bool { return t.recurring }

type bucket struct {
	interval int64
	timers   []*Timer
}

type Scheduler struct {
	mu sync.Mutex
	// buckets is replaced, never modified in place, so AdvanceClock
	// can fire from a snapshot without holding mu.
	buckets []bucket
	max     int64

	clock    int64
	boundary int64
}

func New() *Scheduler {
	return &Scheduler{}
}

// Schedule registers a recurring callback fired once per multiple of interval.
func (s *Scheduler) Schedule(interval int64, cb func(cycle int64)) (*Timer, error) {
	return s.add(interval, cb, true)
}

// ScheduleOnce registers a callback that fires at its first due multiple and is then removed.
func (s *Scheduler) ScheduleOnce(interval int64, cb func(cycle int64)) (*Timer, error) {
	return s.add(interval, cb, false)
}

func (s *Scheduler) add(interval int64, cb func(int64), recurring bool) (*Timer, error) {
	if interval <= 0 {
		return nil, errors.Wrapf(ErrInterval, "interval %d", interval)
	}
	if cb == nil {
		return nil, errors.New("nil timer callback")
	}
	t := &Timer{interval: interval, recurring: recurring, cb: cb}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := sort.Search(len(s.buckets), func(i int) bool { return s.buckets[i].interval >= interval })
	next := make([]bucket, len(s.buckets), len(s.buckets)+1)
	copy(next, s.buckets)
	if i < len(next) && next[i].interval == interval {
		timers := make([]*Timer, len(next[i].timers), len(next[i].timers)+1)
		copy(timers, next[i].timers)
		next[i].timers = append(timers, t)
	} else {
		next = append(next, bucket{})
		copy(next[i+1:], next[i:])
		next[i] = bucket{interval: interval, timers: []*Timer{t}}
	}
	s.buckets = next
	if interval > s.max {
		s.max = interval
	}
	return t, nil
}

// Remove deregisters t. It returns false if t was not registered.
func (s *Scheduler) Remove(t *Timer) bool {
	if t == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := sort.Search(len(s.buckets), func(i int) bool { return s.buckets[i].interval >= t.interval })
	if i >= len(s.buckets) || s.buckets[i].interval != t.interval {
		return false
	}
	old := s.buckets[i].timers
	timers := make([]*Timer, 0, len(old))
	for _, v := range old {
		if v != t {
			timers = append(timers, v)
		}
	}
	if len(timers) == len(old) {
		return false
	}
	t.removed.Store(true)
	next := make([]bucket, 0, len(s.buckets))
	next = append(next, s.buckets[:i]...)
	if len(timers) > 0 {
		next = append(next, bucket{interval: t.interval, timers: timers})
	}
	next = append(next, s.buckets[i+1:]...)
	s.buckets = next
	return true
}

// count of positive multiples of interval inside [lo, hi]
func fires(interval, lo, hi int64) int64 {
	if lo < 1 {
		lo = 1
	}
	if lo > hi {
		return 0
	}
	return hi/interval - (lo-1)/interval
}

// AdvanceClock adds delta cycles to the clock and fires every timer due in
// [lastFiredBoundary, clock], in ascending interval order. It must only be
// called from the goroutine driving emulation.
func (s *Scheduler) AdvanceClock(delta int64) {
	if delta <= 0 {
		return
	}
	s.mu.Lock()
	s.clock += delta
	clock, lo := s.clock, s.boundary
	buckets := s.buckets
	if clock > s.max {
		s.clock, s.boundary = 0, 0
	} else {
		s.boundary = clock + 1
	}
	s.mu.Unlock()

	for _, b := range buckets {
		if b.interval > clock {
			break
		}
		n := fires(b.interval, lo, clock)
		first := (lo + b.interval - 1) / b.interval * b.interval
		if first < b.interval {
			first = b.interval
		}
		for k := int64(0); k < n; k++ {
			cycle := first + k*b.interval
			for _, t := range b.timers {
				if t.removed.Load() {
					continue
				}
				if !t.recurring {
					s.Remove(t)
				}
				t.cb(cycle)
			}
		}
	}
}

func (s *Scheduler) Clock() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock
}

// Reset zeroes the clock without touching registrations.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	s.clock, s.boundary = 0, 0
	s.mu.Unlock()
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.buckets {
		n += len(b.timers)
	}
	return n
}
