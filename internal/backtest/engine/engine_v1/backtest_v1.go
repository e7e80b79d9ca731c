package engine

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/analytics"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/metrics"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

var _ engine.Engine = (*BacktestEngineV1)(nil)

type BacktestEngineV1 struct {
	config      BacktestEngineV1Config
	initialized bool
	strategy    strategy.Strategy
	provider    datasource.HistoricalDataProvider
	log         *logger.Logger
	metrics     *metrics.Metrics
	control     *runControl
}

// Option customizes a BacktestEngineV1.
type Option func(*BacktestEngineV1)

// WithLogger sets the engine logger. The default is the production logger.
func WithLogger(log *logger.Logger) Option {
	return func(b *BacktestEngineV1) {
		b.log = log
	}
}

// WithMetrics sets the collectors the engine reports to. Nil disables metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *BacktestEngineV1) {
		b.metrics = m
	}
}

func NewBacktestEngineV1(opts ...Option) *BacktestEngineV1 {
	b := &BacktestEngineV1{
		config:      DefaultConfig(),
		initialized: false,
		strategy:    nil,
		provider:    nil,
		log:         nil,
		metrics:     nil,
		control:     newRunControl(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Initialize implements engine.Engine.
func (b *BacktestEngineV1) Initialize(config string) error {
	parsed, err := LoadConfig(config)
	if err != nil {
		return err
	}

	return b.InitializeWithConfig(parsed)
}

// InitializeWithConfig sets an already parsed configuration. It is validated
// again when the run starts.
func (b *BacktestEngineV1) InitializeWithConfig(config BacktestEngineV1Config) error {
	if b.control.current().IsActive() {
		return errors.New(errors.ErrCodeBacktestAlreadyRunning, "cannot reconfigure a running backtest")
	}

	if b.log == nil {
		log, err := logger.NewLogger()
		if err != nil {
			return errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to create logger", err)
		}

		b.log = log
	}

	b.config = config
	b.initialized = true

	b.log.Debug("Backtest engine initialized",
		zap.Strings("symbols", config.Symbols),
		zap.String("interval", string(config.Interval)),
		zap.Float64("initial_capital", config.InitialCapital),
	)

	return nil
}

// Config returns the current configuration.
func (b *BacktestEngineV1) Config() BacktestEngineV1Config {
	return b.config
}

// LoadStrategy implements engine.Engine.
func (b *BacktestEngineV1) LoadStrategy(s strategy.Strategy) error {
	if s == nil {
		return errors.New(errors.ErrCodeBacktestNoStrategy, "strategy is nil")
	}

	b.strategy = s

	return nil
}

// SetDataProvider implements engine.Engine.
func (b *BacktestEngineV1) SetDataProvider(provider datasource.HistoricalDataProvider) error {
	if provider == nil {
		return errors.New(errors.ErrCodeBacktestNoDatasource, "data provider is nil")
	}

	b.provider = provider

	return nil
}

// Run implements engine.Engine.
func (b *BacktestEngineV1) Run(ctx context.Context, callbacks engine.LifecycleCallbacks) (result types.BacktestResult, err error) {
	runID := uuid.New().String()
	started := false
	startedAt := time.Now()

	defer func() {
		if started {
			switch {
			case err == nil:
				b.control.finish(engine.RunStateCompleted)
			case errors.HasCode(err, errors.ErrCodeBacktestStopped):
				b.control.stop()
			default:
				b.control.finish(engine.RunStateError)
			}
		}

		state := b.control.current()

		if err != nil {
			result = types.BacktestResult{}
			err = errors.NewBacktestError(runID, string(state), err)

			if b.log != nil {
				b.log.Error("Backtest failed",
					zap.String("run_id", runID),
					zap.String("state", string(state)),
					zap.Error(err),
				)
			}
		}

		if started {
			b.metrics.RunFinished(string(state), time.Since(startedAt))
		}

		if callbacks.OnRunEnd != nil {
			(*callbacks.OnRunEnd)(runID, state, err)
		}
	}()

	if err := b.preRunCheck(); err != nil {
		return types.BacktestResult{}, err
	}

	b.control.setCallback(callbacks.OnStateChange)

	if err := b.control.start(); err != nil {
		return types.BacktestResult{}, err
	}

	started = true

	return b.replay(ctx, runID, callbacks)
}

// generateSignal calls the strategy and turns a panic into a strategy runtime error.
func (b *BacktestEngineV1) generateSignal(data types.MarketData) (signal optional.Option[types.Signal], err error) {
	defer func() {
		if r := recover(); r != nil {
			signal = optional.None[types.Signal]()
			err = errors.Newf(errors.ErrCodeStrategyRuntimeError, "strategy panicked: %v", r)
		}
	}()

	return b.strategy.GenerateSignal(data)
}

func (b *BacktestEngineV1) replay(ctx context.Context, runID string, callbacks engine.LifecycleCallbacks) (types.BacktestResult, error) {
	config := b.config
	strategyName := b.strategy.Name()
	trading := NewBacktestTrading(config, b.log, b.metrics)

	start, end := time.Time{}, time.Time{}
	if config.StartTime.IsSome() {
		start = config.StartTime.Unwrap()
	}

	if config.EndTime.IsSome() {
		end = config.EndTime.Unwrap()
	}

	loaded, err := datasource.LoadBars(ctx, b.provider, config.Symbols, config.Interval, start, end, b.log)
	if err != nil {
		if ctx.Err() != nil {
			return types.BacktestResult{}, errors.Wrap(errors.ErrCodeBacktestStopped, "backtest cancelled while loading bars", err)
		}

		return types.BacktestResult{}, err
	}

	bars := datasource.MergeBars(loaded.Series)

	b.log.Info("Backtest started",
		zap.String("run_id", runID),
		zap.String("strategy", strategyName),
		zap.Strings("symbols", config.Symbols),
		zap.Int("bars", len(bars)),
		zap.Int("skipped_symbols", len(loaded.Skipped)),
	)

	if callbacks.OnRunStart != nil {
		if err := (*callbacks.OnRunStart)(runID, len(bars)); err != nil {
			return types.BacktestResult{}, errors.Wrap(errors.ErrCodeCallbackFailed, "run start callback failed", err)
		}
	}

	initialTime := start
	if initialTime.IsZero() && len(bars) > 0 {
		initialTime = bars[0].OpenTime
	}

	benchmark := config.Benchmark()
	benchmarkPrice := 0.0
	peak := config.InitialCapital

	curve := make([]types.EquityPoint, 0, len(bars)+1)
	curve = append(curve, types.EquityPoint{
		Timestamp: initialTime,
		Equity:    config.InitialCapital,
		Drawdown:  0,
		Benchmark: 0,
	})

	history := make(map[string][]types.Kline, len(loaded.Series))
	loopStart := time.Now()

	for i, bar := range bars {
		if err := b.control.checkpoint(ctx); err != nil {
			return types.BacktestResult{}, err
		}

		trading.ProcessBar(bar)

		history[bar.Symbol] = append(history[bar.Symbol], bar)
		seen := history[bar.Symbol]

		signal, err := b.generateSignal(types.MarketData{
			Symbol:   bar.Symbol,
			Interval: config.Interval,
			Bars:     seen[:len(seen):len(seen)],
		})
		if err != nil {
			if !errors.IsInsufficientDataError(err) {
				return types.BacktestResult{}, errors.Wrapf(errors.ErrCodeStrategyRuntimeError, err,
					"strategy %s failed on %s at %s", strategyName, bar.Symbol, bar.OpenTime.Format(time.RFC3339))
			}

			signal = optional.None[types.Signal]()
		}

		if signal.IsSome() {
			// rejections are counted and logged by the trading system
			_, _ = trading.PlaceSignal(signal.Unwrap(), bar, strategyName)
		}

		trading.Mark(bar.Symbol, bar.Close)

		if bar.Symbol == benchmark {
			benchmarkPrice = bar.Close
		}

		equity := trading.Equity()
		peak = math.Max(peak, equity)

		curve = append(curve, types.EquityPoint{
			Timestamp: barTime(bar),
			Equity:    equity,
			Drawdown:  analytics.SafeDivide(peak-equity, peak),
			Benchmark: benchmarkPrice,
		})

		b.metrics.BarProcessed()

		if callbacks.OnProcessData != nil {
			if err := (*callbacks.OnProcessData)(progress(i+1, len(bars), time.Since(loopStart))); err != nil {
				return types.BacktestResult{}, errors.Wrap(errors.ErrCodeCallbackFailed, "progress callback failed", err)
			}
		}
	}

	unfilled := trading.CancelPending()
	trades := trading.Trades()

	report := analytics.Analyze(analytics.Input{
		InitialCapital: config.InitialCapital,
		EquityCurve:    curve,
		Trades:         trades,
		VaRConfidence:  config.VarConfidence,
	})

	endTime := end
	if endTime.IsZero() {
		endTime = curve[len(curve)-1].Timestamp
	}

	result := types.BacktestResult{
		Summary: types.Summary{
			RunID:           runID,
			StrategyName:    strategyName,
			Symbol:          benchmark,
			Symbols:         append([]string(nil), config.Symbols...),
			Interval:        config.Interval,
			StartTime:       initialTime,
			EndTime:         endTime,
			InitialEquity:   config.InitialCapital,
			FinalEquity:     trading.Equity(),
			BarsProcessed:   len(bars),
			SkippedSymbols:  loaded.Skipped,
			UnfilledOrders:  unfilled,
			RejectedSignals: trading.Rejected(),
			CompletedAt:     time.Now().UTC(),
		},
		Returns:      report.Returns,
		Risk:         report.Risk,
		RiskAdjusted: report.RiskAdjusted,
		Trading:      report.Trading,
		Trades:       trades,
		EquityCurve:  curve,
	}

	if config.ResultsFolder != "" {
		if err := b.writeResults(config.ResultsFolder, result, trading.Orders()); err != nil {
			return types.BacktestResult{}, err
		}
	}

	b.log.Info("Backtest finished",
		zap.String("run_id", runID),
		zap.Int("bars", len(bars)),
		zap.Int("trades", report.Trading.TotalTrades),
		zap.Int("unfilled_orders", unfilled),
		zap.Int("rejected_signals", trading.Rejected()),
		zap.Float64("final_equity", result.Summary.FinalEquity),
	)

	return result, nil
}

// writeResults archives the run and writes the result files to folder.
func (b *BacktestEngineV1) writeResults(folder string, result types.BacktestResult, orders []types.Order) error {
	state, err := NewBacktestState(b.log)
	if err != nil {
		return err
	}
	defer state.Close()

	if err := state.Initialize(); err != nil {
		return err
	}

	if err := state.Record(orders, result.Trades, result.EquityCurve); err != nil {
		return err
	}

	if err := state.Write(folder); err != nil {
		return err
	}

	stats, err := state.SymbolStats()
	if err != nil {
		return err
	}

	for _, s := range stats {
		b.log.Info("Symbol trades",
			zap.String("symbol", s.Symbol),
			zap.Int("trades", s.Trades),
			zap.Int("winning", s.WinningTrades),
			zap.Float64("pnl", s.PnL),
			zap.Float64("commission", s.Commission),
		)
	}

	return types.WriteResult(folder, result)
}

// barTime is the instant the bar's equity point is recorded at.
func barTime(bar types.Kline) time.Time {
	if bar.CloseTime.IsZero() {
		return bar.OpenTime
	}

	return bar.CloseTime
}

func progress(processed, total int, elapsed time.Duration) engine.Progress {
	p := engine.Progress{
		ProcessedBars:      processed,
		TotalBars:          total,
		Percent:            100,
		EstimatedRemaining: 0,
	}

	if total > 0 {
		p.Percent = float64(processed) / float64(total) * 100
	}

	if processed > 0 && total > processed {
		p.EstimatedRemaining = time.Duration(float64(elapsed) / float64(processed) * float64(total-processed))
	}

	return p
}

// Pause implements engine.Engine.
func (b *BacktestEngineV1) Pause() bool {
	return b.control.pause()
}

// Resume implements engine.Engine.
func (b *BacktestEngineV1) Resume() bool {
	return b.control.resume()
}

// Stop implements engine.Engine.
func (b *BacktestEngineV1) Stop() {
	b.control.stop()
}

// State implements engine.Engine.
func (b *BacktestEngineV1) State() engine.RunState {
	return b.control.current()
}

// GetConfigSchema implements engine.Engine.
func (b *BacktestEngineV1) GetConfigSchema() (string, error) {
	config := b.config

	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to generate schema", err)
	}

	return schema, nil
}

func (b *BacktestEngineV1) preRunCheck() error {
	if !b.initialized {
		return errors.New(errors.ErrCodeBacktestInitFailed, "engine is not initialized")
	}

	if err := b.config.Validate(); err != nil {
		return err
	}

	if b.strategy == nil {
		return errors.New(errors.ErrCodeBacktestNoStrategy, "no strategy loaded")
	}

	if b.provider == nil {
		return errors.New(errors.ErrCodeBacktestNoDatasource, "no data provider set")
	}

	return nil
}
