package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/sweep"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const sweepFileName = "sweep.json"

// sweepJobFile is one job in sweep.json.
type sweepJobFile struct {
	Index   int            `json:"index"`
	Params  map[string]any `json:"params"`
	Score   float64        `json:"score"`
	Error   string         `json:"error,omitempty"`
	Summary *types.Summary `json:"summary,omitempty"`
}

type sweepFile struct {
	Metric sweep.Metric   `json:"metric"`
	Best   *int           `json:"best,omitempty"`
	Jobs   []sweepJobFile `json:"jobs"`
}

func optimizeAction(ctx context.Context, cmd *cli.Command) error {
	env, err := setupRun(ctx, cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	grid, err := sweep.ParseGrid(cmd.StringSlice("grid"))
	if err != nil {
		return err
	}

	workers := int(cmd.Int("workers"))
	if workers == 0 {
		workers = env.settings.Workers
	}

	config := sweep.Config{
		Engine:        env.config,
		Strategy:      env.kind,
		BaseParams:    env.params,
		Grid:          grid,
		Metric:        sweep.Metric(cmd.String("metric")),
		MaxIterations: int(cmd.Int("max-iterations")),
		Workers:       workers,
	}

	total := grid.Size()
	if config.MaxIterations > 0 && config.MaxIterations < total {
		total = config.MaxIterations
	}

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(cmd.Root().ErrWriter),
		progressbar.OptionSetDescription(fmt.Sprintf("Optimizing %s", env.kind)),
		progressbar.OptionShowCount(),
	)

	m, registry := newMetrics(cmd)

	sweeper := sweep.NewSweeper(env.provider,
		sweep.WithLogger(env.log.Named("sweep")),
		sweep.WithMetrics(m),
		sweep.WithOnJobDone(func(done int, _ int, _ sweep.JobResult) {
			_ = bar.Set(done)
		}),
	)

	report, err := sweeper.Run(ctx, config)
	_ = bar.Finish()
	fmt.Fprintln(cmd.Root().ErrWriter)

	if metricsErr := writeMetrics(cmd, registry); metricsErr != nil && err == nil {
		err = metricsErr
	}

	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.Root().Writer, renderSweep(report))

	if env.config.ResultsFolder != "" {
		path, err := writeSweepFile(env.config.ResultsFolder, report)
		if err != nil {
			return err
		}

		env.log.Info("Sweep report written", zap.String("path", path))
		fmt.Fprintln(cmd.Root().Writer, helpStyle.Render(fmt.Sprintf("Sweep report written to %s", path)))
	}

	return nil
}

func writeSweepFile(dir string, report sweep.Report) (string, error) {
	file := sweepFile{Metric: report.Metric}

	if report.Best.IsSome() {
		index := report.Best.Unwrap().Index
		file.Best = &index
	}

	for _, job := range report.Results {
		entry := sweepJobFile{Index: job.Index, Params: job.Params, Score: job.Score}

		if job.Err != nil {
			entry.Error = job.Err.Error()
		} else {
			summary := job.Result.Summary
			entry.Summary = &summary
		}

		file.Jobs = append(file.Jobs, entry)
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeBacktestResultWrite, "failed to marshal sweep report", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(errors.ErrCodeBacktestResultWrite, "failed to create results folder", err)
	}

	path := filepath.Join(dir, sweepFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrap(errors.ErrCodeBacktestResultWrite, "failed to write sweep report", err)
	}

	return path, nil
}
