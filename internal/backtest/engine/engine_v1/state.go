package engine

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

const (
	OrdersFileName = "orders.parquet"
	TradesFileName = "trades.parquet"
	EquityFileName = "equity.parquet"
)

// BacktestState archives the orders, trades and equity curve of a finished
// run in an in-memory DuckDB database and exports them as parquet files.
type BacktestState struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// SymbolStats is the per-symbol breakdown of the archived trades.
type SymbolStats struct {
	Symbol        string
	Trades        int
	WinningTrades int
	LosingTrades  int
	PnL           float64
	Commission    float64
}

func NewBacktestState(logger *logger.Logger) (*BacktestState, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBacktestArchiveFailed, "failed to open database", err)
	}

	return &BacktestState{
		logger: logger,
		db:     db,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Initialize creates the archive tables.
func (b *BacktestState) Initialize() error {
	_, err := b.db.Exec(`
		CREATE TABLE IF NOT EXISTS orders (
			order_id TEXT PRIMARY KEY,
			symbol TEXT,
			side TEXT,
			order_type TEXT,
			quantity DOUBLE,
			limit_price DOUBLE,
			status TEXT,
			created_at TIMESTAMP,
			filled_at TIMESTAMP,
			fill_price DOUBLE,
			commission DOUBLE,
			reason TEXT,
			message TEXT,
			strategy_name TEXT,
			oco_group TEXT
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestArchiveFailed, "failed to create orders table", err)
	}

	_, err = b.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			trade_id TEXT,
			symbol TEXT,
			side TEXT,
			entry_time TIMESTAMP,
			exit_time TIMESTAMP,
			entry_price DOUBLE,
			exit_price DOUBLE,
			quantity DOUBLE,
			entry_commission DOUBLE,
			exit_commission DOUBLE,
			commission DOUBLE,
			pnl DOUBLE,
			pnl_percent DOUBLE,
			is_open BOOLEAN,
			reason TEXT,
			entry_order_id TEXT,
			exit_order_id TEXT
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestArchiveFailed, "failed to create trades table", err)
	}

	_, err = b.db.Exec(`
		CREATE TABLE IF NOT EXISTS equity (
			timestamp TIMESTAMP,
			equity DOUBLE,
			drawdown DOUBLE,
			benchmark DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestArchiveFailed, "failed to create equity table", err)
	}

	return nil
}

// nullableTime stores open trade exit times and unfilled order fill times as NULL.
func nullableTime(order types.Order) any {
	if order.FilledAt.IsZero() {
		return nil
	}

	return order.FilledAt
}

// Record inserts one run's orders, trades and equity curve in a single transaction.
func (b *BacktestState) Record(orders []types.Order, trades []types.Trade, curve []types.EquityPoint) error {
	tx, err := b.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestArchiveFailed, "failed to begin transaction", err)
	}

	for _, order := range orders {
		var limitPrice any
		if order.LimitPrice.IsSome() {
			limitPrice = order.LimitPrice.Unwrap()
		}

		_, err = b.sq.
			Insert("orders").
			Columns(
				"order_id", "symbol", "side", "order_type", "quantity", "limit_price", "status",
				"created_at", "filled_at", "fill_price", "commission", "reason", "message",
				"strategy_name", "oco_group",
			).
			Values(
				order.ID, order.Symbol, string(order.Side), string(order.OrderType), order.Quantity, limitPrice,
				string(order.Status), order.CreatedAt, nullableTime(order), order.FillPrice, order.Commission,
				order.Reason, order.Message, order.StrategyName, order.OcoGroup,
			).
			RunWith(tx).
			Exec()
		if err != nil {
			_ = tx.Rollback()

			return errors.Wrap(errors.ErrCodeBacktestArchiveFailed, "failed to insert order", err)
		}
	}

	for _, trade := range trades {
		var exitTime any
		if !trade.IsOpen() {
			exitTime = trade.ExitTime
		}

		_, err = b.sq.
			Insert("trades").
			Columns(
				"trade_id", "symbol", "side", "entry_time", "exit_time", "entry_price", "exit_price",
				"quantity", "entry_commission", "exit_commission", "commission", "pnl", "pnl_percent",
				"is_open", "reason", "entry_order_id", "exit_order_id",
			).
			Values(
				trade.ID, trade.Symbol, string(trade.Side), trade.EntryTime, exitTime, trade.EntryPrice, trade.ExitPrice,
				trade.Quantity, trade.EntryCommission, trade.ExitCommission, trade.Commission, trade.PnL, trade.PnLPercent,
				trade.IsOpen(), trade.Reason, trade.EntryOrderID, trade.ExitOrderID,
			).
			RunWith(tx).
			Exec()
		if err != nil {
			_ = tx.Rollback()

			return errors.Wrap(errors.ErrCodeBacktestArchiveFailed, "failed to insert trade", err)
		}
	}

	for _, point := range curve {
		_, err = b.sq.
			Insert("equity").
			Columns("timestamp", "equity", "drawdown", "benchmark").
			Values(point.Timestamp, point.Equity, point.Drawdown, point.Benchmark).
			RunWith(tx).
			Exec()
		if err != nil {
			_ = tx.Rollback()

			return errors.Wrap(errors.ErrCodeBacktestArchiveFailed, "failed to insert equity point", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestArchiveFailed, "failed to commit archive", err)
	}

	return nil
}

// SymbolStats aggregates the closed trades per symbol.
func (b *BacktestState) SymbolStats() ([]SymbolStats, error) {
	rows, err := b.sq.
		Select(
			"symbol",
			"COUNT(*)",
			"SUM(CASE WHEN pnl > 0 THEN 1 ELSE 0 END)",
			"SUM(CASE WHEN pnl < 0 THEN 1 ELSE 0 END)",
			"COALESCE(SUM(pnl), 0)",
			"COALESCE(SUM(commission), 0)",
		).
		From("trades").
		Where(squirrel.Eq{"is_open": false}).
		GroupBy("symbol").
		OrderBy("symbol").
		RunWith(b.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBacktestArchiveFailed, "failed to query symbol stats", err)
	}
	defer rows.Close()

	var stats []SymbolStats

	for rows.Next() {
		var s SymbolStats
		if err := rows.Scan(&s.Symbol, &s.Trades, &s.WinningTrades, &s.LosingTrades, &s.PnL, &s.Commission); err != nil {
			return nil, errors.Wrap(errors.ErrCodeBacktestArchiveFailed, "failed to scan symbol stats", err)
		}

		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// Count returns the number of rows of an archive table.
func (b *BacktestState) Count(table string) (int, error) {
	var count int

	err := b.sq.Select("COUNT(*)").From(table).RunWith(b.db).QueryRow().Scan(&count)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeBacktestArchiveFailed, err, "failed to count %s", table)
	}

	return count, nil
}

// Cleanup drops and recreates the archive tables.
func (b *BacktestState) Cleanup() error {
	// Squirrel doesn't have DROP syntax
	_, err := b.db.Exec(`
		DROP TABLE IF EXISTS trades;
		DROP TABLE IF EXISTS orders;
		DROP TABLE IF EXISTS equity;
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestArchiveFailed, "failed to cleanup tables", err)
	}

	return b.Initialize()
}

// Write exports the archive tables to parquet files in dir.
func (b *BacktestState) Write(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestResultWrite, "failed to create directory", err)
	}

	files := []struct {
		table string
		name  string
	}{
		{"orders", OrdersFileName},
		{"trades", TradesFileName},
		{"equity", EquityFileName},
	}

	for _, f := range files {
		path := filepath.Join(dir, f.name)

		// Squirrel doesn't support COPY
		_, err := b.db.Exec(fmt.Sprintf(`COPY %s TO '%s' (FORMAT PARQUET)`, f.table, strings.ReplaceAll(path, "'", "''")))
		if err != nil {
			return errors.Wrapf(errors.ErrCodeBacktestResultWrite, err, "failed to export %s to parquet", f.table)
		}
	}

	b.logger.Info("Exported backtest archive to parquet",
		zap.String("folder", dir),
	)

	return nil
}

func (b *BacktestState) Close() error {
	return b.db.Close()
}
