package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	v1 "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/metrics"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// newMetrics returns collectors on a private registry, or nil when no
// metrics file was requested.
func newMetrics(cmd *cli.Command) (*metrics.Metrics, *prometheus.Registry) {
	if cmd.String("metrics-file") == "" {
		return nil, nil
	}

	registry := prometheus.NewRegistry()

	return metrics.New(registry), registry
}

func writeMetrics(cmd *cli.Command, registry *prometheus.Registry) error {
	if registry == nil {
		return nil
	}

	if err := prometheus.WriteToTextfile(cmd.String("metrics-file"), registry); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestResultWrite, "failed to write metrics", err)
	}

	return nil
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	env, err := setupRun(ctx, cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	s, err := strategy.New(env.kind, env.params)
	if err != nil {
		return err
	}

	m, registry := newMetrics(cmd)

	backtest := v1.NewBacktestEngineV1(v1.WithLogger(env.log.Named("engine")), v1.WithMetrics(m))

	if err := backtest.InitializeWithConfig(env.config); err != nil {
		return err
	}

	if err := backtest.LoadStrategy(s); err != nil {
		return err
	}

	if err := backtest.SetDataProvider(env.provider); err != nil {
		return err
	}

	var bar *progressbar.ProgressBar

	onRunStart := engine.OnRunStartCallback(func(runID string, totalBars int) error {
		env.log.Info("Backtest started", zap.String("run_id", runID), zap.Int("bars", totalBars))

		bar = progressbar.NewOptions(totalBars,
			progressbar.OptionSetWriter(cmd.Root().ErrWriter),
			progressbar.OptionSetDescription(fmt.Sprintf("Backtesting %s", s.Name())),
			progressbar.OptionShowCount(),
		)

		return nil
	})

	onProcessData := engine.OnProcessDataCallback(func(progress engine.Progress) error {
		if bar != nil {
			_ = bar.Set(progress.ProcessedBars)
		}

		return nil
	})

	onRunEnd := engine.OnRunEndCallback(func(runID string, state engine.RunState, err error) {
		if bar != nil {
			_ = bar.Finish()
			fmt.Fprintln(cmd.Root().ErrWriter)
		}

		env.log.Info("Backtest finished", zap.String("run_id", runID), zap.String("state", string(state)), zap.Error(err))
	})

	result, err := backtest.Run(ctx, engine.LifecycleCallbacks{
		OnRunStart:    &onRunStart,
		OnProcessData: &onProcessData,
		OnRunEnd:      &onRunEnd,
	})

	// metrics of failed runs are still useful
	if metricsErr := writeMetrics(cmd, registry); metricsErr != nil && err == nil {
		err = metricsErr
	}

	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.Root().Writer, renderReport(result))

	if env.config.ResultsFolder != "" {
		fmt.Fprintln(cmd.Root().Writer, helpStyle.Render(fmt.Sprintf("Results written to %s", env.config.ResultsFolder)))
	}

	return nil
}
