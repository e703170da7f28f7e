// Package control owns the run state of an emulated CPU and the goroutines
// that drive it.
package control

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/lunixbochs/emucore/go/models"
)

var ErrDestroyed = errors.New("controller destroyed")

// Collaborator is the CPU-specific half of the controller.
type Collaborator interface {
	// StepInternal executes exactly one unit of work.
	StepInternal() (models.RunState, error)
	// ResetInternal reinitializes CPU state so execution starts at pos.
	ResetInternal(pos uint64) error
	// Call runs the fetch/decode/execute loop until it stops on its own or ctx is cancelled.
	Call(ctx context.Context) (models.RunState, error)
}

type Option func(*Controller)

func WithShutdownTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

type outcome struct {
	state models.RunState
	err   error
}

// worker is one run of Call on the execution queue.
type worker struct {
	cancel context.CancelFunc
	// closed once Call returned and result is set
	done   chan struct{}
	result outcome
	// closed once the run state reflects result
	settled chan struct{}
}

type Controller struct {
	cpu     Collaborator
	log     models.Logger
	timeout time.Duration

	state     atomic.Int32
	destroyed atomic.Bool
	once      sync.Once

	events   *taskQueue
	exec     *taskQueue
	notifier *taskQueue

	// owned by the event queue
	worker *worker
	// settled channel of the latest worker, for Wait
	running atomic.Pointer[chan struct{}]

	mu        sync.Mutex
	listeners []Listener
}

func New(cpu Collaborator, log models.Logger, opts ...Option) *Controller {
	if log == nil {
		log = models.NullLogger
	}
	c := &Controller{
		cpu:     cpu,
		log:     log,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state.Store(int32(models.StoppedNormal))
	c.events = newTaskQueue("event", log)
	c.exec = newTaskQueue("execution", log)
	c.notifier = newTaskQueue("notify", log)
	return c
}

func (c *Controller) State() models.RunState {
	return models.RunState(c.state.Load())
}

func (c *Controller) submit(fn func()) error {
	if c.destroyed.Load() {
		return ErrDestroyed
	}
	return c.events.Submit(fn)
}

// setState writes the run state. Without force, listeners only hear about real changes.
func (c *Controller) setState(s models.RunState, force bool) {
	old := models.RunState(c.state.Swap(int32(s)))
	if old != s || force {
		c.log.Debugf("control", "%s -> %s", old, s)
		c.notify(s)
	}
}

// retire cancels the live worker, if any, waits for Call to return and applies its outcome.
func (c *Controller) retire() {
	w := c.worker
	if w == nil {
		return
	}
	w.cancel()
	<-w.done
	c.finish(w)
}

// finish detaches w. A loop that ended on its own decides the state; a cancelled one leaves it to the canceller.
func (c *Controller) finish(w *worker) {
	c.worker = nil
	defer close(w.settled)
	s, ok := outcomeState(w.result)
	if !ok {
		return
	}
	if w.result.err != nil {
		c.log.Infof("control", "%s: %v", s, w.result.err)
	}
	if c.State() == models.Running {
		c.setState(s, false)
	}
}

func (c *Controller) Reset() error {
	return c.ResetAt(0)
}

// ResetAt stops any running worker, reinitializes the CPU at pos and leaves the controller in StoppedBreak.
func (c *Controller) ResetAt(pos uint64) error {
	var rerr error
	err := c.submit(func() {
		c.retire()
		if err := c.cpu.ResetInternal(pos); err != nil {
			rerr = errors.Wrapf(err, "reset at %#x", pos)
			c.log.Errorf("control", "%v", rerr)
			// the worker is gone either way
			if c.State() == models.Running {
				c.setState(models.StoppedBreak, false)
			}
			return
		}
		c.setState(models.StoppedBreak, true)
	})
	if err != nil {
		return err
	}
	return rerr
}

func (c *Controller) Execute() error {
	return c.submit(func() {
		if c.State() != models.StoppedBreak {
			return
		}
		c.retire()
		c.start()
	})
}

func (c *Controller) start() {
	ctx, cancel := context.WithCancel(context.Background())
	w := &worker{cancel: cancel, done: make(chan struct{}), settled: make(chan struct{})}
	c.worker = w
	c.running.Store(&w.settled)
	c.setState(models.Running, false)

	result := make(chan outcome, 1)
	ran, err := c.exec.Enqueue(func() {
		state, err := c.call(ctx)
		result <- outcome{state, err}
	})
	if err != nil {
		c.log.Errorf("control", "could not start worker: %v", err)
		cancel()
		c.worker = nil
		close(w.done)
		close(w.settled)
		c.setState(models.StoppedBreak, false)
		return
	}
	go c.watch(w, result, ran)
}

// call runs the collaborator loop, turning a panic into an instruction fault.
func (c *Controller) call(ctx context.Context) (state models.RunState, err error) {
	defer func() {
		if r := recover(); r != nil {
			state, err = models.StoppedBadInstruction, models.InstructionFault(0, "panic in cpu loop: %v", r)
		}
	}()
	return c.cpu.Call(ctx)
}

func (c *Controller) stepInternal() (state models.RunState, err error) {
	defer func() {
		if r := recover(); r != nil {
			state, err = models.StoppedBadInstruction, models.InstructionFault(0, "panic in cpu step: %v", r)
		}
	}()
	return c.cpu.StepInternal()
}

// outcomeState maps a finished loop to the state it settles into.
// ok is false when the loop was cancelled and the canceller decides.
func outcomeState(o outcome) (models.RunState, bool) {
	if o.err != nil {
		cause := errors.Cause(o.err)
		if cause == context.Canceled || cause == context.DeadlineExceeded {
			return 0, false
		}
		return models.FaultOf(o.err).State(), true
	}
	if o.state == models.Running || !o.state.Valid() {
		return models.StoppedBreak, true
	}
	return o.state, true
}

// watch hands a finished worker back to the event queue, which owns the run state.
func (c *Controller) watch(w *worker, result <-chan outcome, ran <-chan struct{}) {
	w.result = <-result
	<-ran
	close(w.done)
	if _, err := c.events.Enqueue(func() {
		// a pause, stop or reset may have retired it already
		if c.worker == w {
			c.finish(w)
		}
	}); err != nil {
		c.log.Debugf("control", "worker finished after shutdown: %v", err)
	}
}

func (c *Controller) Pause() error {
	return c.submit(func() {
		if c.State() != models.Running {
			return
		}
		c.retire()
		s := c.State()
		if s == models.Running || s == models.StoppedNormal {
			s = models.StoppedBreak
		}
		c.setState(s, false)
	})
}

func (c *Controller) Stop() error {
	return c.submit(c.stop)
}

func (c *Controller) stop() {
	if s := c.State(); s != models.StoppedBreak && s != models.Running {
		return
	}
	c.retire()
	s := c.State()
	if s == models.Running || s == models.StoppedBreak {
		s = models.StoppedNormal
	}
	c.setState(s, false)
}

func (c *Controller) Step() error {
	return c.submit(func() {
		if c.State() != models.StoppedBreak {
			return
		}
		s, err := c.stepInternal()
		if err != nil {
			s = models.FaultOf(err).State()
			c.log.Infof("control", "%s: %v", s, err)
		} else if s == models.Running || !s.Valid() {
			s = models.StoppedBreak
		}
		c.setState(s, true)
	})
}

// Wait blocks until the controller leaves Running and its worker has retired, or ctx is done.
func (c *Controller) Wait(ctx context.Context) (models.RunState, error) {
	for {
		if ch := c.running.Load(); ch != nil {
			select {
			case <-*ch:
			case <-ctx.Done():
				return c.State(), ctx.Err()
			}
		}
		if s := c.State(); s != models.Running {
			return s, nil
		}
		// the worker retired but the canceller has not written its state yet
		select {
		case <-time.After(time.Millisecond):
		case <-ctx.Done():
			return c.State(), ctx.Err()
		}
	}
}

// Destroy stops the controller for good. It is safe to call more than once.
func (c *Controller) Destroy() error {
	first := false
	c.once.Do(func() { first = true })
	if !first {
		return nil
	}
	deadline := time.Now().Add(c.timeout)
	if done, err := c.events.Enqueue(c.stop); err != nil {
		c.log.Errorf("control", "could not stop: %v", err)
	} else {
		select {
		case <-done:
		case <-time.After(c.timeout):
			c.log.Errorf("control", "worker did not stop within %v", c.timeout)
		}
	}
	c.destroyed.Store(true)
	for _, q := range []*taskQueue{c.events, c.exec, c.notifier} {
		remaining := time.Until(deadline)
		if remaining < 10*time.Millisecond {
			remaining = 10 * time.Millisecond
		}
		if err := q.Shutdown(remaining); err != nil {
			c.log.Errorf("control", "%v", err)
		}
	}
	c.mu.Lock()
	c.listeners = nil
	c.mu.Unlock()
	return nil
}

func (c *Controller) String() string {
	return fmt.Sprintf("controller(%s)", c.State())
}
