package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

// DuckDBProvider serves bars from a parquet file with the columns
// time, symbol, open, high, low, close, volume.
type DuckDBProvider struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDuckDBProvider opens an in-memory DuckDB database and exposes the
// parquet file at path as the market_data view.
func NewDuckDBProvider(path string, log *logger.Logger) (*DuckDBProvider, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	p := &DuckDBProvider{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}

	if err := p.initialize(path); err != nil {
		_ = db.Close()

		return nil, err
	}

	return p, nil
}

func (p *DuckDBProvider) initialize(path string) error {
	p.logger.Debug("Initializing DuckDB data source", zap.String("path", path))

	// Squirrel does not support CREATE VIEW
	query := fmt.Sprintf(`
		CREATE VIEW market_data AS
		SELECT * FROM read_parquet('%s');
	`, strings.ReplaceAll(path, "'", "''"))

	if _, err := p.db.Exec(query); err != nil {
		return errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to read parquet file %s", path)
	}

	return nil
}

// GetHistoricalBars implements HistoricalDataProvider.
func (p *DuckDBProvider) GetHistoricalBars(ctx context.Context, symbol string, interval types.Interval, start, end time.Time) ([]types.Kline, error) {
	builder := p.sq.
		Select(
			"time",
			"symbol",
			"CAST(open AS DOUBLE)",
			"CAST(high AS DOUBLE)",
			"CAST(low AS DOUBLE)",
			"CAST(close AS DOUBLE)",
			"CAST(volume AS DOUBLE)",
		).
		From("market_data").
		Where(squirrel.Eq{"symbol": symbol}).
		OrderBy("time ASC")

	if !start.IsZero() {
		builder = builder.Where(squirrel.GtOrEq{"time": start})
	}

	if !end.IsZero() {
		builder = builder.Where(squirrel.LtOrEq{"time": end})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query bars", err)
	}
	defer rows.Close()

	var bars []types.Kline

	for rows.Next() {
		var bar types.Kline

		if err := rows.Scan(&bar.OpenTime, &bar.Symbol, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan bar", err)
		}

		bar.OpenTime = bar.OpenTime.UTC()
		if d := interval.Duration(); d > 0 {
			bar.CloseTime = bar.OpenTime.Add(d - time.Millisecond)
		}

		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to iterate bars", err)
	}

	p.logger.Debug("Loaded bars from parquet",
		zap.String("symbol", symbol),
		zap.Int("count", len(bars)),
	)

	return bars, nil
}

// Symbols lists the distinct symbols of the file.
func (p *DuckDBProvider) Symbols(ctx context.Context) ([]string, error) {
	query, args, err := p.sq.Select("DISTINCT symbol").From("market_data").OrderBy("symbol").ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query symbols", err)
	}
	defer rows.Close()

	var symbols []string

	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan symbol", err)
		}

		symbols = append(symbols, symbol)
	}

	return symbols, rows.Err()
}

func (p *DuckDBProvider) Close() error {
	return p.db.Close()
}
