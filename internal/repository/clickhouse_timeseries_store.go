package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"GSRSwap/internal/domain/models"
	domrepo "GSRSwap/internal/domain/repository"
	pkgch "GSRSwap/pkg/clickhouse"
	applogger "GSRSwap/pkg/logger"
)

// Schema returns the idempotent DDL for database db. Price, stat and
// correlation tables use ReplacingMergeTree so re-ingesting a day replaces
// the previous row instead of duplicating it.
func Schema(db string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.prices (
			symbol LowCardinality(String),
			d Date,
			price Float64,
			source LowCardinality(String),
			ingested_at DateTime DEFAULT now()
		) ENGINE = ReplacingMergeTree(ingested_at) ORDER BY (symbol, d)`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.rolling_stats (
			d Date,
			window_days UInt16,
			gsr Float64,
			mean Float64,
			std Float64,
			z_score Nullable(Float64),
			percentile_rank Float64,
			computed_at DateTime DEFAULT now()
		) ENGINE = ReplacingMergeTree(computed_at) ORDER BY (window_days, d)`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.correlations (
			d Date,
			window_days UInt16,
			variable LowCardinality(String),
			pearson_r Nullable(Float64),
			samples UInt32,
			computed_at DateTime DEFAULT now()
		) ENGINE = ReplacingMergeTree(computed_at) ORDER BY (variable, window_days, d)`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.backtests (
			id UUID,
			created_at DateTime64(3),
			config String,
			final_gold_oz Float64,
			gold_oz_gain_pct Float64,
			win_rate Float64,
			total_swaps UInt32,
			sharpe_ratio Float64,
			max_drawdown Float64
		) ENGINE = MergeTree ORDER BY created_at`, db),
	}
}

// CHTimeSeriesStore implements TimeSeriesStore backed by ClickHouse.
type CHTimeSeriesStore struct {
	db       *sql.DB
	database string
	l        *applogger.Logger
}

// NewCHTimeSeriesStore builds a store over an open client.
func NewCHTimeSeriesStore(ch *pkgch.Client, l *applogger.Logger) *CHTimeSeriesStore {
	return newCHTimeSeriesStore(ch.DB(), ch.Database(), l)
}

func newCHTimeSeriesStore(db *sql.DB, database string, l *applogger.Logger) *CHTimeSeriesStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHTimeSeriesStore{db: db, database: database, l: l}
}

func (s *CHTimeSeriesStore) table(name string) string {
	return s.database + "." + name
}

// GetSeries returns the daily closes of symbol in [start, end], ascending.
// A zero end means unbounded.
func (s *CHTimeSeriesStore) GetSeries(ctx context.Context, symbol string, start, end time.Time) ([]models.PricePoint, error) {
	begin := time.Now()
	if end.IsZero() {
		end = time.Date(2149, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	q := fmt.Sprintf(`SELECT d, price, source FROM %s FINAL
		WHERE symbol = ? AND d >= ? AND d <= ?
		ORDER BY d ASC`, s.table("prices"))

	rows, err := s.db.QueryContext(ctx, q, symbol, models.Day(start), models.Day(end))
	if err != nil {
		s.l.Error("clickhouse get_series query error", applogger.String("symbol", symbol), applogger.Error(err))
		return nil, fmt.Errorf("get series %s: %w", symbol, err)
	}
	defer rows.Close()

	out := make([]models.PricePoint, 0, 512)
	for rows.Next() {
		p := models.PricePoint{Symbol: symbol}
		if err := rows.Scan(&p.Timestamp, &p.Price, &p.Source); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		p.Timestamp = models.Day(p.Timestamp)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	s.l.Debug("clickhouse get_series ok",
		applogger.String("symbol", symbol),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(begin)),
	)
	return out, nil
}

// LastPriceDate returns the most recent stored day for symbol. ok is false
// when nothing is stored.
func (s *CHTimeSeriesStore) LastPriceDate(ctx context.Context, symbol string) (time.Time, bool, error) {
	q := fmt.Sprintf("SELECT count(), max(d) FROM %s WHERE symbol = ?", s.table("prices"))
	var (
		n    uint64
		last time.Time
	)
	if err := s.db.QueryRowContext(ctx, q, symbol).Scan(&n, &last); err != nil {
		return time.Time{}, false, fmt.Errorf("last price date %s: %w", symbol, err)
	}
	if n == 0 {
		return time.Time{}, false, nil
	}
	return models.Day(last), true, nil
}

// LatestPrice returns the most recent stored close of symbol.
func (s *CHTimeSeriesStore) LatestPrice(ctx context.Context, symbol string) (models.PricePoint, bool, error) {
	q := fmt.Sprintf(`SELECT d, price, source FROM %s FINAL
		WHERE symbol = ?
		ORDER BY d DESC LIMIT 1`, s.table("prices"))

	p := models.PricePoint{Symbol: symbol}
	err := s.db.QueryRowContext(ctx, q, symbol).Scan(&p.Timestamp, &p.Price, &p.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PricePoint{}, false, nil
	}
	if err != nil {
		return models.PricePoint{}, false, fmt.Errorf("latest price %s: %w", symbol, err)
	}
	p.Timestamp = models.Day(p.Timestamp)
	return p, true, nil
}

func (s *CHTimeSeriesStore) SavePrices(ctx context.Context, points []models.PricePoint) error {
	q := fmt.Sprintf("INSERT INTO %s (symbol, d, price, source)", s.table("prices"))
	err := pkgch.Batch(ctx, s.db, q, len(points), func(i int) []any {
		p := points[i]
		return []any{p.Symbol, models.Day(p.Timestamp), p.Price, p.Source}
	})
	if err != nil {
		s.l.Error("clickhouse save_prices error", applogger.Int("rows", len(points)), applogger.Error(err))
		return fmt.Errorf("save prices: %w", err)
	}
	return nil
}

func (s *CHTimeSeriesStore) SaveRollingStats(ctx context.Context, stats []models.RollingStat) error {
	q := fmt.Sprintf("INSERT INTO %s (d, window_days, gsr, mean, std, z_score, percentile_rank)", s.table("rolling_stats"))
	err := pkgch.Batch(ctx, s.db, q, len(stats), func(i int) []any {
		st := stats[i]
		return []any{models.Day(st.Timestamp), uint16(st.WindowDays), st.GSR, st.Mean, st.Std, nullable(st.ZScore), st.PercentileRank}
	})
	if err != nil {
		return fmt.Errorf("save rolling stats: %w", err)
	}
	return nil
}

func (s *CHTimeSeriesStore) SaveCorrelations(ctx context.Context, corrs []models.CorrelationObservation) error {
	q := fmt.Sprintf("INSERT INTO %s (d, window_days, variable, pearson_r, samples)", s.table("correlations"))
	err := pkgch.Batch(ctx, s.db, q, len(corrs), func(i int) []any {
		c := corrs[i]
		return []any{models.Day(c.Timestamp), uint16(c.WindowDays), c.VariableName, nullable(c.PearsonR), uint32(c.Samples)}
	})
	if err != nil {
		return fmt.Errorf("save correlations: %w", err)
	}
	return nil
}

// GetRollingStats returns stored stats dated in [from, to] for the given
// windows (all windows when empty), by window then day.
func (s *CHTimeSeriesStore) GetRollingStats(ctx context.Context, from, to time.Time, windows []int) ([]models.RollingStat, error) {
	begin := time.Now()
	where, args := dayRange(from, to)
	if len(windows) > 0 {
		where += " AND window_days IN (" + placeholders(len(windows)) + ")"
		for _, w := range windows {
			args = append(args, uint16(w))
		}
	}
	q := fmt.Sprintf(`SELECT d, window_days, gsr, mean, std, z_score, percentile_rank FROM %s FINAL
		WHERE %s
		ORDER BY window_days ASC, d ASC`, s.table("rolling_stats"), where)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse get_rolling_stats query error", applogger.Error(err))
		return nil, fmt.Errorf("get rolling stats: %w", err)
	}
	defer rows.Close()

	out := make([]models.RollingStat, 0, 256)
	for rows.Next() {
		var (
			st models.RollingStat
			z  sql.NullFloat64
		)
		if err := rows.Scan(&st.Timestamp, &st.WindowDays, &st.GSR, &st.Mean, &st.Std, &z, &st.PercentileRank); err != nil {
			return nil, fmt.Errorf("scan rolling stat: %w", err)
		}
		st.Timestamp = models.Day(st.Timestamp)
		if z.Valid {
			st.ZScore = models.Float64Ptr(z.Float64)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	s.l.Debug("clickhouse get_rolling_stats ok",
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(begin)),
	)
	return out, nil
}

// GetCorrelations returns stored correlations dated in [from, to], by
// variable, window then day. Empty filters match everything.
func (s *CHTimeSeriesStore) GetCorrelations(ctx context.Context, from, to time.Time, windows []int, variables []string) ([]models.CorrelationObservation, error) {
	where, args := dayRange(from, to)
	if len(windows) > 0 {
		where += " AND window_days IN (" + placeholders(len(windows)) + ")"
		for _, w := range windows {
			args = append(args, uint16(w))
		}
	}
	if len(variables) > 0 {
		where += " AND variable IN (" + placeholders(len(variables)) + ")"
		for _, v := range variables {
			args = append(args, v)
		}
	}
	q := fmt.Sprintf(`SELECT d, window_days, variable, pearson_r, samples FROM %s FINAL
		WHERE %s
		ORDER BY variable ASC, window_days ASC, d ASC`, s.table("correlations"), where)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse get_correlations query error", applogger.Error(err))
		return nil, fmt.Errorf("get correlations: %w", err)
	}
	defer rows.Close()

	out := make([]models.CorrelationObservation, 0, 256)
	for rows.Next() {
		var (
			c models.CorrelationObservation
			r sql.NullFloat64
		)
		if err := rows.Scan(&c.Timestamp, &c.WindowDays, &c.VariableName, &r, &c.Samples); err != nil {
			return nil, fmt.Errorf("scan correlation: %w", err)
		}
		c.Timestamp = models.Day(c.Timestamp)
		if r.Valid {
			c.PearsonR = models.Float64Ptr(r.Float64)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHTimeSeriesStore) SaveBacktest(ctx context.Context, sum models.BacktestSummary) error {
	cfg, err := json.Marshal(sum.Config)
	if err != nil {
		return fmt.Errorf("marshal backtest config: %w", err)
	}
	q := fmt.Sprintf(`INSERT INTO %s (id, created_at, config, final_gold_oz, gold_oz_gain_pct, win_rate, total_swaps, sharpe_ratio, max_drawdown)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table("backtests"))
	_, err = s.db.ExecContext(ctx, q,
		sum.ID, sum.CreatedAt, string(cfg), sum.FinalGoldOz, sum.GoldOzGainPct,
		sum.WinRate, uint32(sum.TotalSwaps), sum.SharpeRatio, sum.MaxDrawdown,
	)
	if err != nil {
		s.l.Error("clickhouse save_backtest error", applogger.String("id", sum.ID), applogger.Error(err))
		return fmt.Errorf("save backtest: %w", err)
	}
	return nil
}

// ListBacktests returns the most recent summaries first.
func (s *CHTimeSeriesStore) ListBacktests(ctx context.Context, limit int) ([]models.BacktestSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	q := fmt.Sprintf(`SELECT toString(id), created_at, config, final_gold_oz, gold_oz_gain_pct, win_rate, total_swaps, sharpe_ratio, max_drawdown
		FROM %s ORDER BY created_at DESC LIMIT ?`, s.table("backtests"))

	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list backtests: %w", err)
	}
	defer rows.Close()

	out := make([]models.BacktestSummary, 0, limit)
	for rows.Next() {
		var (
			sum   models.BacktestSummary
			cfg   string
			swaps uint32
		)
		if err := rows.Scan(&sum.ID, &sum.CreatedAt, &cfg, &sum.FinalGoldOz, &sum.GoldOzGainPct,
			&sum.WinRate, &swaps, &sum.SharpeRatio, &sum.MaxDrawdown); err != nil {
			return nil, fmt.Errorf("scan backtest: %w", err)
		}
		if err := json.Unmarshal([]byte(cfg), &sum.Config); err != nil {
			return nil, fmt.Errorf("decode backtest %s config: %w", sum.ID, err)
		}
		sum.TotalSwaps = int(swaps)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHTimeSeriesStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func dayRange(from, to time.Time) (string, []any) {
	return "d >= ? AND d <= ?", []any{models.Day(from), models.Day(to)}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

var _ domrepo.TimeSeriesStore = (*CHTimeSeriesStore)(nil)
