package main

import (
	"context"
	"fmt"

	v1 "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/rxtech-lab/argo-backtest/pkg/marketdata/provider"
	"github.com/urfave/cli/v3"
)

func analyzeAction(_ context.Context, cmd *cli.Command) error {
	result, err := types.ReadResult(cmd.String("file"))
	if err != nil {
		return err
	}

	switch cmd.String("format") {
	case formatTable:
		fmt.Fprintln(cmd.Root().Writer, renderSummary(result))
	case formatReport:
		fmt.Fprintln(cmd.Root().Writer, renderReport(result))
	default:
		return errors.Newf(errors.ErrCodeInvalidParameter, "unsupported format %q", cmd.String("format"))
	}

	return nil
}

func compareAction(_ context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return errors.New(errors.ErrCodeMissingParameter, "compare needs at least one result file")
	}

	results := make([]types.BacktestResult, 0, len(paths))

	for _, path := range paths {
		result, err := types.ReadResult(path)
		if err != nil {
			return err
		}

		results = append(results, result)
	}

	fmt.Fprintln(cmd.Root().Writer, renderComparison(paths, results))

	return nil
}

func schemaAction(_ context.Context, cmd *cli.Command) error {
	var (
		schema string
		err    error
	)

	switch {
	case cmd.String("strategy") != "":
		schema, err = strategy.ParamsSchema(strategy.Kind(cmd.String("strategy")))
	case cmd.String("provider") != "":
		schema, err = provider.GetConfigSchema(provider.ProviderType(cmd.String("provider")))
	default:
		config := v1.DefaultConfig()
		schema, err = config.GenerateSchemaJSON()
	}

	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.Root().Writer, schema)

	return nil
}
