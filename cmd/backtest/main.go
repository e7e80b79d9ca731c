package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/sweep"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/pkg/marketdata/provider"
	"github.com/urfave/cli/v3"
)

const (
	providerParquet = "parquet"
	formatTable     = "table"
	formatReport    = "report"
)

func dataFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "config",
			Aliases:  []string{"c"},
			Usage:    "Path to the engine configuration `FILE` (YAML)",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "strategy",
			Aliases: []string{"s"},
			Usage:   fmt.Sprintf("Strategy to run (%v)", strategy.AllKinds),
			Value:   string(strategy.KindMovingAverageCrossover),
		},
		&cli.StringSliceFlag{
			Name:    "param",
			Aliases: []string{"p"},
			Usage:   "Strategy parameter as `key=value`, repeatable",
		},
		&cli.StringFlag{
			Name:  "provider",
			Usage: fmt.Sprintf("Historical data provider (%s, %s, %s)", providerParquet, provider.ProviderBinance, provider.ProviderPolygon),
			Value: providerParquet,
		},
		&cli.StringFlag{
			Name:    "data",
			Aliases: []string{"d"},
			Usage:   "Parquet `FILE` with time, symbol, open, high, low, close, volume columns",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Results `DIR`",
		},
		&cli.StringFlag{
			Name:  "metrics-file",
			Usage: "Write prometheus metrics of the run to `FILE` in text format",
		},
	}
}

func newApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "backtest",
		Usage:     "Replay trading strategies over historical bars",
		Writer:    stdout,
		ErrWriter: stderr,
		// grid and param values carry their own commas
		DisableSliceFlagSeparator: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "settings",
				Usage: "Settings `FILE` (yaml, json or toml); ARGO_BACKTEST_* environment variables override it",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error); overrides the settings",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run one backtest",
				Flags:  dataFlags(),
				Action: runAction,
			},
			{
				Name:  "optimize",
				Usage: "Sweep strategy parameters over a grid",
				Flags: append(dataFlags(),
					&cli.StringSliceFlag{
						Name:    "grid",
						Aliases: []string{"g"},
						Usage:   "Grid parameter as `key=v1,v2,...`, repeatable",
					},
					&cli.StringFlag{
						Name:  "metric",
						Usage: fmt.Sprintf("Ranking metric (%v)", sweep.AllMetrics),
						Value: string(sweep.MetricSharpeRatio),
					},
					&cli.IntFlag{
						Name:  "max-iterations",
						Usage: "Cap the number of combinations, 0 runs all",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent runs, 0 uses the settings or the CPU count",
					},
				),
				Action: optimizeAction,
			},
			{
				Name:  "analyze",
				Usage: "Render a saved result",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Result `FILE` (result.json or stats.yaml)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: fmt.Sprintf("Output format (%s, %s)", formatTable, formatReport),
						Value: formatTable,
					},
				},
				Action: analyzeAction,
			},
			{
				Name:      "compare",
				Usage:     "Render the metrics of saved results side by side",
				ArgsUsage: "RESULT [RESULT...]",
				Action:    compareAction,
			},
			{
				Name:  "schema",
				Usage: "Print a JSON schema",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "strategy",
						Usage: "Print the parameter schema of a strategy instead of the engine configuration",
					},
					&cli.StringFlag{
						Name:  "provider",
						Usage: "Print the configuration schema of a market data provider",
					},
				},
				Action: schemaAction,
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		stop()
		os.Exit(1)
	}
}
