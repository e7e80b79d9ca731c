package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type RunControlTestSuite struct {
	suite.Suite
	control     *runControl
	mu          sync.Mutex
	transitions []transition
}

func TestRunControlSuite(t *testing.T) {
	suite.Run(t, new(RunControlTestSuite))
}

func (suite *RunControlTestSuite) SetupTest() {
	suite.control = newRunControl()
	suite.transitions = nil

	onChange := engine.OnStateChangeCallback(func(from, to engine.RunState) {
		suite.mu.Lock()
		defer suite.mu.Unlock()

		suite.transitions = append(suite.transitions, transition{from: from, to: to})
	})
	suite.control.setCallback(&onChange)
}

func (suite *RunControlTestSuite) recorded() []transition {
	suite.mu.Lock()
	defer suite.mu.Unlock()

	return append([]transition(nil), suite.transitions...)
}

func (suite *RunControlTestSuite) TestLifecycle() {
	suite.Require().NoError(suite.control.start())
	suite.True(suite.control.pause())
	suite.False(suite.control.pause())
	suite.True(suite.control.resume())
	suite.False(suite.control.resume())
	suite.control.finish(engine.RunStateCompleted)

	suite.Equal(engine.RunStateCompleted, suite.control.current())
	suite.Equal([]transition{
		{from: engine.RunStateIdle, to: engine.RunStateRunning},
		{from: engine.RunStateRunning, to: engine.RunStatePaused},
		{from: engine.RunStatePaused, to: engine.RunStateRunning},
		{from: engine.RunStateRunning, to: engine.RunStateCompleted},
	}, suite.recorded())
}

func (suite *RunControlTestSuite) TestStartWhileActive() {
	suite.Require().NoError(suite.control.start())

	err := suite.control.start()
	suite.True(errors.HasCode(err, errors.ErrCodeBacktestAlreadyRunning))

	suite.True(suite.control.pause())
	err = suite.control.start()
	suite.True(errors.HasCode(err, errors.ErrCodeBacktestAlreadyRunning))
}

func (suite *RunControlTestSuite) TestRestartAfterTerminalState() {
	suite.Require().NoError(suite.control.start())
	suite.control.finish(engine.RunStateError)
	suite.Equal(engine.RunStateError, suite.control.current())

	suite.Require().NoError(suite.control.start())
	suite.Equal(engine.RunStateRunning, suite.control.current())
	suite.NoError(suite.control.checkpoint(context.Background()))
}

func (suite *RunControlTestSuite) TestPauseOnlyWhileRunning() {
	suite.False(suite.control.pause())
	suite.False(suite.control.resume())
	suite.Empty(suite.recorded())
}

func (suite *RunControlTestSuite) TestStopIgnoresFinish() {
	suite.Require().NoError(suite.control.start())
	suite.control.stop()
	suite.True(suite.control.isStopped())

	suite.control.finish(engine.RunStateCompleted)
	suite.Equal(engine.RunStateIdle, suite.control.current())

	err := suite.control.checkpoint(context.Background())
	suite.True(errors.HasCode(err, errors.ErrCodeBacktestStopped))
}

func (suite *RunControlTestSuite) TestStopWhenIdleIsNoop() {
	suite.control.stop()
	suite.False(suite.control.isStopped())
	suite.Empty(suite.recorded())
}

func (suite *RunControlTestSuite) TestCheckpointBlocksUntilResume() {
	suite.Require().NoError(suite.control.start())
	suite.Require().True(suite.control.pause())

	done := make(chan error, 1)
	go func() {
		done <- suite.control.checkpoint(context.Background())
	}()

	select {
	case <-done:
		suite.FailNow("checkpoint returned while paused")
	case <-time.After(50 * time.Millisecond):
	}

	suite.True(suite.control.resume())

	select {
	case err := <-done:
		suite.NoError(err)
	case <-time.After(time.Second):
		suite.FailNow("checkpoint did not wake on resume")
	}
}

func (suite *RunControlTestSuite) TestCheckpointWakesOnStop() {
	suite.Require().NoError(suite.control.start())
	suite.Require().True(suite.control.pause())

	done := make(chan error, 1)
	go func() {
		done <- suite.control.checkpoint(context.Background())
	}()

	time.Sleep(20 * time.Millisecond)
	suite.control.stop()

	select {
	case err := <-done:
		suite.True(errors.HasCode(err, errors.ErrCodeBacktestStopped))
	case <-time.After(time.Second):
		suite.FailNow("checkpoint did not wake on stop")
	}
}

func (suite *RunControlTestSuite) TestCheckpointWakesOnContext() {
	suite.Require().NoError(suite.control.start())
	suite.Require().True(suite.control.pause())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- suite.control.checkpoint(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		suite.True(errors.HasCode(err, errors.ErrCodeBacktestStopped))
	case <-time.After(time.Second):
		suite.FailNow("checkpoint did not wake on cancel")
	}
}

func (suite *RunControlTestSuite) TestCheckpointCancelledContext() {
	suite.Require().NoError(suite.control.start())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := suite.control.checkpoint(ctx)
	suite.True(errors.HasCode(err, errors.ErrCodeBacktestStopped))
}
