// Package sweep runs one strategy over a grid of parameter values. Every
// combination gets its own engine instance, and a bounded pool runs them
// concurrently.
package sweep

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	v1 "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/metrics"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Metric selects the result field the best combination is ranked by.
type Metric string

const (
	MetricSharpeRatio  Metric = "sharpe_ratio"
	MetricTotalReturn  Metric = "total_return"
	MetricMaxDrawdown  Metric = "max_drawdown"
	MetricWinRate      Metric = "win_rate"
	MetricProfitFactor Metric = "profit_factor"
)

var AllMetrics = []Metric{MetricSharpeRatio, MetricTotalReturn, MetricMaxDrawdown, MetricWinRate, MetricProfitFactor}

func (m Metric) Valid() bool {
	for _, metric := range AllMetrics {
		if m == metric {
			return true
		}
	}

	return false
}

// LowerIsBetter reports whether smaller scores rank higher.
func (m Metric) LowerIsBetter() bool {
	return m == MetricMaxDrawdown
}

// Score extracts the metric from a result.
func (m Metric) Score(result types.BacktestResult) float64 {
	switch m {
	case MetricTotalReturn:
		return result.Returns.TotalReturn
	case MetricMaxDrawdown:
		return result.Risk.MaxDrawdown
	case MetricWinRate:
		return result.Trading.WinRate
	case MetricProfitFactor:
		return result.Trading.ProfitFactor
	default:
		return result.RiskAdjusted.SharpeRatio
	}
}

// Config describes one sweep.
type Config struct {
	Engine     v1.BacktestEngineV1Config
	Strategy   strategy.Kind
	BaseParams strategy.Params
	Grid       Grid
	Metric     Metric
	// MaxIterations caps the number of combinations when positive.
	MaxIterations int
	// Workers bounds the number of concurrent runs. Zero uses GOMAXPROCS.
	Workers int
}

// JobResult is the outcome of one combination. Err is set when the
// combination could not be built or its run failed.
type JobResult struct {
	Index  int                  `json:"index"`
	Params strategy.Params      `json:"params"`
	Score  float64              `json:"score"`
	Result types.BacktestResult `json:"result"`
	Err    error                `json:"-"`
}

// Report holds the job results in grid order and the best successful one.
type Report struct {
	Metric  Metric                     `json:"metric"`
	Results []JobResult                `json:"results"`
	Best    optional.Option[JobResult] `json:"best"`
}

// OnJobDoneCallback is called after every job, from the worker goroutine.
type OnJobDoneCallback func(done int, total int, job JobResult)

type Sweeper struct {
	provider  datasource.HistoricalDataProvider
	log       *logger.Logger
	metrics   *metrics.Metrics
	onJobDone *OnJobDoneCallback
}

type Option func(*Sweeper)

func WithLogger(log *logger.Logger) Option {
	return func(s *Sweeper) {
		s.log = log
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sweeper) {
		s.metrics = m
	}
}

func WithOnJobDone(callback OnJobDoneCallback) Option {
	return func(s *Sweeper) {
		s.onJobDone = &callback
	}
}

// NewSweeper creates a sweeper that loads bars for every job from provider.
// The provider must be safe for concurrent use.
func NewSweeper(provider datasource.HistoricalDataProvider, opts ...Option) *Sweeper {
	s := &Sweeper{
		provider: provider,
		log:      logger.NewNopLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Sweeper) validate(config Config) error {
	if s.provider == nil {
		return errors.New(errors.ErrCodeBacktestNoDatasource, "sweep has no data provider")
	}

	if !config.Metric.Valid() {
		return errors.Newf(errors.ErrCodeInvalidParameter, "unsupported metric %q", config.Metric)
	}

	if config.MaxIterations < 0 {
		return errors.New(errors.ErrCodeInvalidParameter, "max iterations must not be negative")
	}

	if config.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidParameter, "workers must not be negative")
	}

	return config.Engine.Validate()
}

// Run executes every combination of the grid. Failed jobs are reported in
// their JobResult and do not stop the sweep; a cancelled ctx does.
func (s *Sweeper) Run(ctx context.Context, config Config) (Report, error) {
	if err := s.validate(config); err != nil {
		return Report{}, err
	}

	combinations, err := config.Grid.Expand(config.BaseParams, config.MaxIterations)
	if err != nil {
		return Report{}, err
	}

	workers := config.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	s.log.Info("Starting parameter sweep",
		zap.String("strategy", string(config.Strategy)),
		zap.String("metric", string(config.Metric)),
		zap.Int("jobs", len(combinations)),
		zap.Int("workers", workers),
	)

	started := time.Now()
	results := make([]JobResult, len(combinations))
	var done atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, params := range combinations {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			results[i] = s.runJob(gctx, config, i, params)

			finished := int(done.Add(1))
			if s.onJobDone != nil {
				(*s.onJobDone)(finished, len(combinations), results[i])
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Report{}, errors.Wrap(errors.ErrCodeBacktestStopped, "sweep cancelled", err)
	}

	if err := ctx.Err(); err != nil {
		return Report{}, errors.Wrap(errors.ErrCodeBacktestStopped, "sweep cancelled", err)
	}

	report := Report{
		Metric:  config.Metric,
		Results: results,
		Best:    best(results, config.Metric),
	}

	fields := []zap.Field{
		zap.Int("jobs", len(results)),
		zap.Duration("elapsed", time.Since(started)),
	}
	if report.Best.IsSome() {
		b := report.Best.Unwrap()
		fields = append(fields, zap.Int("best_index", b.Index), zap.Float64("best_score", b.Score))
	}

	s.log.Info("Parameter sweep finished", fields...)

	return report, nil
}

func (s *Sweeper) runJob(ctx context.Context, config Config, index int, params strategy.Params) JobResult {
	job := JobResult{Index: index, Params: params}

	strat, err := strategy.New(config.Strategy, params)
	if err != nil {
		return s.failed(job, err)
	}

	engineConfig := config.Engine
	if engineConfig.ResultsFolder != "" {
		engineConfig.ResultsFolder = filepath.Join(engineConfig.ResultsFolder, fmt.Sprintf("job-%03d", index))
	}

	e := v1.NewBacktestEngineV1(
		v1.WithLogger(s.log.Named(fmt.Sprintf("job-%d", index))),
		v1.WithMetrics(s.metrics),
	)

	if err := e.InitializeWithConfig(engineConfig); err != nil {
		return s.failed(job, err)
	}

	if err := e.LoadStrategy(strat); err != nil {
		return s.failed(job, err)
	}

	if err := e.SetDataProvider(s.provider); err != nil {
		return s.failed(job, err)
	}

	result, err := e.Run(ctx, engine.LifecycleCallbacks{})
	if err != nil {
		return s.failed(job, err)
	}

	job.Result = result
	job.Score = config.Metric.Score(result)
	s.metrics.SweepJob("completed")

	s.log.Debug("Sweep job completed",
		zap.Int("index", index),
		zap.Any("params", params),
		zap.Float64("score", job.Score),
	)

	return job
}

func (s *Sweeper) failed(job JobResult, err error) JobResult {
	job.Err = err
	s.metrics.SweepJob("error")

	s.log.Warn("Sweep job failed",
		zap.Int("index", job.Index),
		zap.Any("params", job.Params),
		zap.Error(err),
	)

	return job
}

// best returns the top scoring successful job. Ties keep the earliest index.
func best(results []JobResult, metric Metric) optional.Option[JobResult] {
	var (
		top   JobResult
		found bool
	)

	for _, job := range results {
		if job.Err != nil {
			continue
		}

		if !found {
			top, found = job, true

			continue
		}

		if metric.LowerIsBetter() && job.Score < top.Score || !metric.LowerIsBetter() && job.Score > top.Score {
			top = job
		}
	}

	if !found {
		return optional.None[JobResult]()
	}

	return optional.Some(top)
}
