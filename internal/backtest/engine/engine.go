package engine

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// RunState is the state of the run control state machine:
// IDLE -> RUNNING -> (PAUSED <-> RUNNING) -> COMPLETED | ERROR. Stop forces IDLE.
type RunState string

const (
	RunStateIdle      RunState = "IDLE"
	RunStateRunning   RunState = "RUNNING"
	RunStatePaused    RunState = "PAUSED"
	RunStateCompleted RunState = "COMPLETED"
	RunStateError     RunState = "ERROR"
)

// IsActive reports whether a run is in flight.
func (s RunState) IsActive() bool {
	return s == RunStateRunning || s == RunStatePaused
}

// Progress is reported once per processed bar.
type Progress struct {
	ProcessedBars int
	TotalBars     int
	// Percent is in [0, 100].
	Percent            float64
	EstimatedRemaining time.Duration
}

// Lifecycle callback types for backtest phases
// All callbacks with error return can abort execution if they return an error

// OnRunStartCallback is called after bars are loaded, before the first bar is replayed.
type OnRunStartCallback func(runID string, totalBars int) error

// OnRunEndCallback is called when a run finishes, whatever the outcome (always called via defer).
type OnRunEndCallback func(runID string, state RunState, err error)

// OnProcessDataCallback is called synchronously for each processed bar. It must return quickly.
type OnProcessDataCallback func(progress Progress) error

// OnStateChangeCallback is called on every run state transition.
type OnStateChangeCallback func(from RunState, to RunState)

// LifecycleCallbacks holds all lifecycle callback functions for the backtest engine.
// All fields are pointers - nil means no callback will be invoked.
type LifecycleCallbacks struct {
	OnRunStart    *OnRunStartCallback
	OnRunEnd      *OnRunEndCallback
	OnProcessData *OnProcessDataCallback
	OnStateChange *OnStateChangeCallback
}

type Engine interface {
	// Initialize the engine with the given YAML configuration.
	Initialize(config string) error
	// LoadStrategy sets the strategy that generates signals for every symbol.
	LoadStrategy(strategy strategy.Strategy) error
	// SetDataProvider sets the historical data collaborator.
	SetDataProvider(provider datasource.HistoricalDataProvider) error
	// Run replays the configured range and returns the result. Failures are
	// returned as *errors.BacktestError.
	Run(ctx context.Context, callbacks LifecycleCallbacks) (types.BacktestResult, error)
	// Pause suspends a RUNNING replay before its next bar. It reports whether the state changed.
	Pause() bool
	// Resume continues a PAUSED replay. It reports whether the state changed.
	Resume() bool
	// Stop aborts the run, discards its ledgers and forces IDLE.
	Stop()
	// State returns the current run state.
	State() RunState
	// GetConfigSchema returns the schema of the engine configuration
	GetConfigSchema() (string, error)
}
