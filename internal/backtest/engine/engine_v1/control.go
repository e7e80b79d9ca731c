package engine

import (
	"context"
	"sync"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

type transition struct {
	from engine.RunState
	to   engine.RunState
}

// runControl owns the run state machine. The replay loop calls checkpoint
// once per bar; Pause, Resume and Stop may be called from any goroutine.
type runControl struct {
	mu       sync.Mutex
	state    engine.RunState
	stopped  bool
	stopCh   chan struct{}
	resumeCh chan struct{}
	onChange *engine.OnStateChangeCallback
}

func newRunControl() *runControl {
	return &runControl{
		state:    engine.RunStateIdle,
		stopCh:   make(chan struct{}),
		resumeCh: nil,
	}
}

func (c *runControl) current() engine.RunState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// setCallback must be called before start.
func (c *runControl) setCallback(onChange *engine.OnStateChangeCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onChange = onChange
}

// notify runs the state change callback outside the lock.
func (c *runControl) notify(t *transition) {
	if t == nil {
		return
	}

	c.mu.Lock()
	onChange := c.onChange
	c.mu.Unlock()

	if onChange != nil {
		(*onChange)(t.from, t.to)
	}
}

func (c *runControl) move(to engine.RunState) *transition {
	if c.state == to {
		return nil
	}

	t := &transition{from: c.state, to: to}
	c.state = to

	return t
}

// start moves a non-active engine to RUNNING.
func (c *runControl) start() error {
	c.mu.Lock()

	if c.state.IsActive() {
		c.mu.Unlock()

		return errors.New(errors.ErrCodeBacktestAlreadyRunning, "a backtest is already running")
	}

	c.stopped = false
	c.stopCh = make(chan struct{})
	c.resumeCh = nil
	t := c.move(engine.RunStateRunning)
	c.mu.Unlock()

	c.notify(t)

	return nil
}

func (c *runControl) pause() bool {
	c.mu.Lock()

	if c.state != engine.RunStateRunning {
		c.mu.Unlock()

		return false
	}

	c.resumeCh = make(chan struct{})
	t := c.move(engine.RunStatePaused)
	c.mu.Unlock()

	c.notify(t)

	return true
}

func (c *runControl) resume() bool {
	c.mu.Lock()

	if c.state != engine.RunStatePaused {
		c.mu.Unlock()

		return false
	}

	close(c.resumeCh)
	c.resumeCh = nil
	t := c.move(engine.RunStateRunning)
	c.mu.Unlock()

	c.notify(t)

	return true
}

// stop forces IDLE from any state and wakes a paused loop.
func (c *runControl) stop() {
	c.mu.Lock()

	if c.state.IsActive() && !c.stopped {
		c.stopped = true
		close(c.stopCh)
	}

	t := c.move(engine.RunStateIdle)
	c.mu.Unlock()

	c.notify(t)
}

// finish records the terminal state of a run unless it was stopped.
func (c *runControl) finish(to engine.RunState) {
	c.mu.Lock()

	if c.stopped || !c.state.IsActive() {
		c.mu.Unlock()

		return
	}

	t := c.move(to)
	c.mu.Unlock()

	c.notify(t)
}

func (c *runControl) isStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stopped
}

// checkpoint blocks while the run is paused. It returns a stopped error when
// the run was stopped or ctx is done.
func (c *runControl) checkpoint(ctx context.Context) error {
	c.mu.Lock()
	stopped := c.stopped
	stopCh := c.stopCh
	resumeCh := c.resumeCh
	paused := c.state == engine.RunStatePaused
	c.mu.Unlock()

	if stopped {
		return errors.New(errors.ErrCodeBacktestStopped, "backtest stopped")
	}

	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestStopped, "backtest cancelled", err)
	}

	if !paused {
		return nil
	}

	select {
	case <-resumeCh:
		return nil
	case <-stopCh:
		return errors.New(errors.ErrCodeBacktestStopped, "backtest stopped while paused")
	case <-ctx.Done():
		return errors.Wrap(errors.ErrCodeBacktestStopped, "backtest cancelled while paused", ctx.Err())
	}
}
