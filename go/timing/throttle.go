package timing

import (
	"context"
	"math"
	"time"

	"github.com/lunixbochs/emucore/go/models"
)

const (
	MinSlot = time.Millisecond
	MaxSlot = 20 * time.Millisecond
)

// Exec runs one batch of instructions and reports the cycles it took.
type Exec func() (cycles int64, state models.RunState, err error)

// Throttle paces an instruction loop to a target frequency. Target cycles
// are derived from total elapsed time, so a late slot is caught up by the
// following ones instead of accumulating drift.
type Throttle struct {
	TargetKHz func() float64
	Slot      time.Duration

	// replaceable for tests
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

func NewThrottle(targetKHz func() float64, slot time.Duration) *Throttle {
	if slot < MinSlot {
		slot = MinSlot
	} else if slot > MaxSlot {
		slot = MaxSlot
	}
	return &Throttle{TargetKHz: targetKHz, Slot: slot, Now: time.Now, Sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// CyclesPerSlot is max(1, slot in ms * kHz).
func CyclesPerSlot(slot time.Duration, khz float64) int64 {
	n := int64(float64(slot) / float64(time.Millisecond) * khz)
	if n < 1 {
		return 1
	}
	return n
}

func fold(n int64) int64 {
	if n < 0 {
		n = -n
		// -MinInt64 overflows back to itself
		if n < 0 {
			n = math.MaxInt64
		}
	}
	return n % math.MaxInt64
}

// Run calls exec until it returns a state other than Running, an error, or ctx is done.
// On cancellation it returns Running and the context error.
func (t *Throttle) Run(ctx context.Context, exec Exec) (models.RunState, error) {
	now, sleep := t.Now, t.Sleep
	if now == nil {
		now = time.Now
	}
	if sleep == nil {
		sleep = sleepCtx
	}
	slot := t.Slot
	if slot <= 0 {
		slot = 10 * time.Millisecond
	}
	var executed int64
	var delay time.Duration
	start := now()
	for {
		if err := ctx.Err(); err != nil {
			return models.Running, err
		}
		if delay > 0 {
			if err := sleep(ctx, delay); err != nil {
				return models.Running, err
			}
		}
		begin := now()
		slots := int64(begin.Sub(start)/slot) + 1
		target := fold(slots * CyclesPerSlot(slot, t.TargetKHz()))
		for executed < target {
			if err := ctx.Err(); err != nil {
				return models.Running, err
			}
			n, state, err := exec()
			executed = fold(executed + n)
			if err != nil || state != models.Running {
				return state, err
			}
		}
		delay = slot - now().Sub(begin)
	}
}
