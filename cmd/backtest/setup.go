package main

import (
	"context"
	"os"

	v1 "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/sweep"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/rxtech-lab/argo-backtest/pkg/marketdata/cache"
	"github.com/rxtech-lab/argo-backtest/pkg/marketdata/provider"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// runEnv is what every data command needs before it can replay bars.
type runEnv struct {
	settings Settings
	log      *logger.Logger
	config   v1.BacktestEngineV1Config
	kind     strategy.Kind
	params   strategy.Params
	provider datasource.HistoricalDataProvider
	closers  []func() error
}

func (e *runEnv) Close() {
	for _, closeFn := range e.closers {
		if err := closeFn(); err != nil {
			e.log.Warn("Failed to close data provider", zap.Error(err))
		}
	}

	_ = e.log.Sync()
}

func newCommandLogger(cmd *cli.Command, settings Settings) (*logger.Logger, error) {
	level := settings.LogLevel
	if flag := cmd.Root().String("log-level"); flag != "" {
		level = flag
	}

	log, err := logger.NewLoggerWithOutput(level, "stderr")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to create logger", err)
	}

	return log, nil
}

// setupRun loads settings, the engine config, the strategy params and the
// data provider named by the command flags.
func setupRun(ctx context.Context, cmd *cli.Command) (*runEnv, error) {
	settings, err := LoadSettings(cmd.Root().String("settings"))
	if err != nil {
		return nil, err
	}

	log, err := newCommandLogger(cmd, settings)
	if err != nil {
		return nil, err
	}

	env := &runEnv{settings: settings, log: log}

	content, err := os.ReadFile(cmd.String("config"))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", cmd.String("config"))
	}

	env.config, err = v1.LoadConfig(string(content))
	if err != nil {
		return nil, err
	}

	if output := cmd.String("output"); output != "" {
		env.config.ResultsFolder = output
	}

	env.kind = strategy.Kind(cmd.String("strategy"))

	env.params, err = sweep.ParseParams(cmd.StringSlice("param"))
	if err != nil {
		return nil, err
	}

	if err := env.openProvider(ctx, cmd.String("provider"), cmd.String("data")); err != nil {
		env.Close()

		return nil, err
	}

	return env, nil
}

func (e *runEnv) openProvider(ctx context.Context, name string, dataPath string) error {
	if name == providerParquet {
		if dataPath == "" {
			return errors.New(errors.ErrCodeMissingParameter, "--data is required for the parquet provider")
		}

		duck, err := datasource.NewDuckDBProvider(dataPath, e.log.Named("duckdb"))
		if err != nil {
			return err
		}

		e.closers = append(e.closers, duck.Close)
		e.provider = duck

		if symbols, err := duck.Symbols(ctx); err == nil {
			e.log.Debug("Opened parquet data", zap.String("path", dataPath), zap.Strings("symbols", symbols))
		}

		return nil
	}

	remote, err := provider.NewMarketDataProvider(provider.ProviderType(name), e.settings.providerConfig(), e.log.Named(name))
	if err != nil {
		return err
	}

	e.provider = remote

	if e.settings.CacheDir == "" {
		return nil
	}

	barCache, err := cache.New(e.settings.CacheDir, e.log.Named("cache"))
	if err != nil {
		return err
	}

	e.provider = datasource.NewCachedProvider(remote, barCache, e.log.Named("cache"))

	return nil
}
