package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"GSRSwap/internal/domain/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*CHTimeSeriesStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return newCHTimeSeriesStore(db, "gsrswap", nil), mock
}

func date(s string) time.Time {
	d, _ := time.Parse(time.DateOnly, s)
	return d
}

func TestCHGetSeries(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"d", "price", "source"}).
		AddRow(date("2024-01-02"), 2050.0, "AlphaVantage").
		AddRow(date("2024-01-03"), 2041.5, "AlphaVantage")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT d, price, source FROM gsrswap.prices FINAL")).
		WithArgs(models.SymbolGold, date("2024-01-01"), date("2024-01-31")).
		WillReturnRows(rows)

	got, err := store.GetSeries(context.Background(), models.SymbolGold, date("2024-01-01"), date("2024-01-31").Add(15*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.SymbolGold, got[1].Symbol)
	assert.Equal(t, 2041.5, got[1].Price)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHGetSeriesQueryError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT d, price").WillReturnError(errors.New("connection reset"))

	_, err := store.GetSeries(context.Background(), models.SymbolSilver, time.Time{}, time.Time{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get series XAG")
}

func TestCHLastPriceDate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(), max(d) FROM gsrswap.prices")).
		WithArgs(models.SymbolGold).
		WillReturnRows(sqlmock.NewRows([]string{"count()", "max(d)"}).AddRow(int64(12), date("2024-03-08")))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(), max(d) FROM gsrswap.prices")).
		WithArgs("DGS10").
		WillReturnRows(sqlmock.NewRows([]string{"count()", "max(d)"}).AddRow(int64(0), time.Unix(0, 0)))

	last, ok, err := store.LastPriceDate(context.Background(), models.SymbolGold)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, date("2024-03-08"), last)

	_, ok, err = store.LastPriceDate(context.Background(), "DGS10")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHLatestPrice(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT d, price, source FROM gsrswap.prices FINAL")).
		WithArgs(models.SymbolSilver).
		WillReturnRows(sqlmock.NewRows([]string{"d", "price", "source"}).AddRow(date("2024-03-08"), 24.6, "kafka"))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY d DESC LIMIT 1")).
		WithArgs("DGS10").
		WillReturnRows(sqlmock.NewRows([]string{"d", "price", "source"}))

	p, ok, err := store.LatestPrice(context.Background(), models.SymbolSilver)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.PricePoint{Timestamp: date("2024-03-08"), Symbol: models.SymbolSilver, Price: 24.6, Source: "kafka"}, p)

	_, ok, err = store.LatestPrice(context.Background(), "DGS10")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHLatestPriceError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT d, price, source").WillReturnError(errors.New("timeout"))

	_, _, err := store.LatestPrice(context.Background(), models.SymbolGold)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "latest price XAU")
}

func TestCHGetRollingStats(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"d", "window_days", "gsr", "mean", "std", "z_score", "percentile_rank"}).
		AddRow(date("2024-01-02"), int64(30), 80.0, 80.0, 0.0, nil, 100.0).
		AddRow(date("2024-01-03"), int64(30), 82.0, 80.1, 0.5, 3.8, 100.0)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE d >= ? AND d <= ? AND window_days IN (?, ?)")).
		WithArgs(date("2024-01-01"), date("2024-01-31"), 30, 90).
		WillReturnRows(rows)

	got, err := store.GetRollingStats(context.Background(), date("2024-01-01"), date("2024-01-31").Add(9*time.Hour), []int{30, 90})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Nil(t, got[0].ZScore)
	require.NotNil(t, got[1].ZScore)
	assert.Equal(t, 3.8, *got[1].ZScore)
	assert.Equal(t, 30, got[1].WindowDays)
	assert.Equal(t, date("2024-01-03"), got[1].Timestamp)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHGetRollingStatsAllWindows(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`WHERE d >= \? AND d <= \?\s+ORDER BY window_days ASC, d ASC`).
		WithArgs(date("2024-01-01"), date("2024-01-31")).
		WillReturnRows(sqlmock.NewRows([]string{"d", "window_days", "gsr", "mean", "std", "z_score", "percentile_rank"}))

	got, err := store.GetRollingStats(context.Background(), date("2024-01-01"), date("2024-01-31"), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHGetCorrelations(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"d", "window_days", "variable", "pearson_r", "samples"}).
		AddRow(date("2024-01-02"), int64(90), "DGS10", -0.42, int64(88)).
		AddRow(date("2024-01-02"), int64(90), "VIXCLS", nil, int64(12))
	mock.ExpectQuery(regexp.QuoteMeta("AND window_days IN (?) AND variable IN (?, ?)")).
		WithArgs(date("2024-01-01"), date("2024-01-31"), 90, "DGS10", "VIXCLS").
		WillReturnRows(rows)

	got, err := store.GetCorrelations(context.Background(), date("2024-01-01"), date("2024-01-31"), []int{90}, []string{"DGS10", "VIXCLS"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotNil(t, got[0].PearsonR)
	assert.Equal(t, -0.42, *got[0].PearsonR)
	assert.Equal(t, 88, got[0].Samples)
	assert.Nil(t, got[1].PearsonR)
	assert.Equal(t, "VIXCLS", got[1].VariableName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHGetCorrelationsQueryError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("FROM gsrswap.correlations").WillReturnError(errors.New("table missing"))

	_, err := store.GetCorrelations(context.Background(), date("2024-01-01"), date("2024-01-31"), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get correlations")
}

func TestCHSavePricesBatches(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO gsrswap.prices (symbol, d, price, source)"))
	prep.ExpectExec().WithArgs(models.SymbolGold, date("2024-01-02"), 2050.0, "test").WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs(models.SymbolSilver, date("2024-01-02"), 23.1, "test").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.SavePrices(context.Background(), []models.PricePoint{
		{Timestamp: date("2024-01-02").Add(18 * time.Hour), Symbol: models.SymbolGold, Price: 2050, Source: "test"},
		{Timestamp: date("2024-01-02"), Symbol: models.SymbolSilver, Price: 23.1, Source: "test"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHSavePricesRollsBackOnRowError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO gsrswap.prices").
		ExpectExec().WillReturnError(errors.New("bad row"))
	mock.ExpectRollback()

	err := store.SavePrices(context.Background(), []models.PricePoint{{Timestamp: date("2024-01-02"), Symbol: models.SymbolGold, Price: 1}})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHSaveEmptyIsNoop(t *testing.T) {
	store, mock := newMockStore(t)
	require.NoError(t, store.SaveRollingStats(context.Background(), nil))
	require.NoError(t, store.SaveCorrelations(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHSaveRollingStatsWritesNullZScore(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO gsrswap.rolling_stats"))
	prep.ExpectExec().WithArgs(date("2024-01-02"), 30, 80.0, 80.0, 0.0, nil, 100.0).WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs(date("2024-01-03"), 30, 82.0, 80.1, 0.5, 3.8, 100.0).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.SaveRollingStats(context.Background(), []models.RollingStat{
		{Timestamp: date("2024-01-02"), WindowDays: 30, GSR: 80, Mean: 80, Std: 0, PercentileRank: 100},
		{Timestamp: date("2024-01-03"), WindowDays: 30, GSR: 82, Mean: 80.1, Std: 0.5, ZScore: models.Float64Ptr(3.8), PercentileRank: 100},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHBacktestRoundTrip(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cfg := models.DefaultBacktestConfig(date("2020-01-01"), date("2023-12-31"))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO gsrswap.backtests")).
		WithArgs("3f0e6a52-5b1c-4c51-9f5a-0c2d2c9d1e11", created, sqlmock.AnyArg(), 104.2, 4.2, 75.0, 4, 0.8, 6.1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	sum := models.BacktestSummary{
		ID: "3f0e6a52-5b1c-4c51-9f5a-0c2d2c9d1e11", CreatedAt: created, Config: cfg,
		FinalGoldOz: 104.2, GoldOzGainPct: 4.2, WinRate: 75, TotalSwaps: 4, SharpeRatio: 0.8, MaxDrawdown: 6.1,
	}
	require.NoError(t, store.SaveBacktest(context.Background(), sum))

	rawCfg := `{"start_date":"2020-01-01T00:00:00Z","end_date":"2023-12-31T00:00:00Z","initial_gold_oz":100,"gsr_high_threshold":85,"gsr_low_threshold":65,"position_size_pct":15,"transaction_cost_pct":2,"stats_window":90,"percentile_triggers":false,"alternate_swaps":true}`
	mock.ExpectQuery(regexp.QuoteMeta("FROM gsrswap.backtests ORDER BY created_at DESC LIMIT ?")).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "config", "final_gold_oz", "gold_oz_gain_pct", "win_rate", "total_swaps", "sharpe_ratio", "max_drawdown"}).
			AddRow(sum.ID, created, rawCfg, 104.2, 4.2, 75.0, int64(4), 0.8, 6.1))

	list, err := store.ListBacktests(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, sum, list[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHHealth(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectPing()
	assert.NoError(t, store.Health(context.Background()))
	mock.ExpectPing().WillReturnError(errors.New("down"))
	assert.Error(t, store.Health(context.Background()))
}

func TestSchemaIsScopedToDatabase(t *testing.T) {
	stmts := Schema("gsr_test")
	require.Len(t, stmts, 5)
	assert.Equal(t, "CREATE DATABASE IF NOT EXISTS gsr_test", stmts[0])
	for _, s := range stmts[1:] {
		assert.Contains(t, s, "CREATE TABLE IF NOT EXISTS gsr_test.")
	}
}
