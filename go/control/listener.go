package control

import (
	"github.com/lunixbochs/emucore/go/models"
)

// Listener observes controller transitions. Callbacks run on the
// controller's notify goroutine, one transition at a time.
type Listener interface {
	RunStateChanged(state models.RunState)
	InternalStateChanged()
}

// ListenerFuncs adapts plain funcs to Listener. Either func may be nil.
// Register it by pointer so RemoveListener can find it again.
type ListenerFuncs struct {
	OnRunState func(models.RunState)
	OnInternal func()
}

func (l *ListenerFuncs) RunStateChanged(state models.RunState) {
	if l.OnRunState != nil {
		l.OnRunState(state)
	}
}

func (l *ListenerFuncs) InternalStateChanged() {
	if l.OnInternal != nil {
		l.OnInternal()
	}
}

func (c *Controller) AddListener(l Listener) {
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()
}

func (c *Controller) RemoveListener(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, v := range c.listeners {
		if v == l {
			c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
			return
		}
	}
}

// notify queues delivery of one transition to the listeners registered right now.
func (c *Controller) notify(state models.RunState) {
	c.mu.Lock()
	ls := make([]Listener, len(c.listeners))
	copy(ls, c.listeners)
	c.mu.Unlock()
	if len(ls) == 0 {
		return
	}
	if _, err := c.notifier.Enqueue(func() {
		for _, l := range ls {
			c.deliver(l, state)
		}
	}); err != nil {
		c.log.Debugf("control", "dropped %s notification: %v", state, err)
	}
}

func (c *Controller) deliver(l Listener, state models.RunState) {
	c.guard(l.InternalStateChanged)
	c.guard(func() { l.RunStateChanged(state) })
}

func (c *Controller) guard(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Errorf("control", "listener panicked: %v", r)
		}
	}()
	fn()
}
