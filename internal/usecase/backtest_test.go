package usecase

import (
	"context"
	"math"
	"testing"
	"time"

	"GSRSwap/internal/domain/models"
	"GSRSwap/internal/repository"
	"GSRSwap/internal/services/backtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func oscillating(i int) float64 {
	return 75 + 17*math.Sin(float64(i)/12)
}

func newTestBacktest(store *repository.MemoryStore) *BacktestUseCase {
	uc := NewBacktestUseCase(newTestAnalytics(store), store, backtest.Engine{}, nil, BacktestConfig{Workers: 3, MaxGridSize: 50}, nil)
	uc.now = fixedNow
	uc.newID = func() string { return "run-1" }
	return uc
}

func backtestRange() (string, string) {
	end := models.Day(testToday)
	return end.AddDate(0, 0, -299).Format(time.DateOnly), end.Format(time.DateOnly)
}

func TestConfigFromRequest(t *testing.T) {
	start, end := backtestRange()
	cost := 1.5
	no := false
	cfg, err := ConfigFromRequest(models.BacktestRequest{
		StartDate: start, EndDate: end, InitialGoldOz: 50, GSRHighThreshold: 88, GSRLowThreshold: 62,
		PositionSizePct: 20, TransactionCostPct: &cost, StatsWindow: 60, AlternateSwaps: &no,
	})
	require.NoError(t, err)
	assert.Equal(t, 50.0, cfg.InitialGoldOz)
	assert.Equal(t, 1.5, cfg.TransactionCostPct)
	assert.Equal(t, 60, cfg.StatsWindow)
	assert.False(t, cfg.AlternateSwaps)

	_, err = ConfigFromRequest(models.BacktestRequest{
		StartDate: start, EndDate: end, InitialGoldOz: 100, GSRHighThreshold: 60, GSRLowThreshold: 65, PositionSizePct: 15,
	})
	assert.True(t, models.IsValidationError(err))

	_, err = ConfigFromRequest(models.BacktestRequest{StartDate: end, EndDate: start})
	assert.True(t, models.IsValidationError(err))

	_, err = ConfigFromRequest(models.BacktestRequest{StartDate: "2024/01/01", EndDate: end})
	assert.True(t, models.IsValidationError(err))
}

func TestBacktestRunPersistsSummary(t *testing.T) {
	store := seededStore(500, oscillating)
	uc := newTestBacktest(store)
	start, end := backtestRange()
	cfg, err := ConfigFromRequest(models.BacktestRequest{
		StartDate: start, EndDate: end, InitialGoldOz: 100, GSRHighThreshold: 85, GSRLowThreshold: 65, PositionSizePct: 15,
	})
	require.NoError(t, err)

	res, err := uc.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Greater(t, res.TotalSwaps, 0)
	assert.Len(t, res.EquityCurve, 300)

	hist, err := uc.History(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "run-1", hist[0].ID)
	assert.Equal(t, res.FinalGoldOz, hist[0].FinalGoldOz)
	assert.Equal(t, testToday, hist[0].CreatedAt)
}

func TestBacktestRunWithoutDataInRange(t *testing.T) {
	uc := newTestBacktest(repository.NewMemoryStore())
	cfg := models.DefaultBacktestConfig(models.Day(testToday).AddDate(0, 0, -30), models.Day(testToday))

	_, err := uc.Run(context.Background(), cfg)
	assert.True(t, models.IsNoData(err))

	hist, err := uc.History(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestOptimizePicksBestAndIsDeterministic(t *testing.T) {
	store := seededStore(500, oscillating)
	start, end := backtestRange()
	req := models.OptimizeRequest{
		StartDate: start, EndDate: end, InitialGoldOz: 100, StatsWindow: 90,
		ParamRanges: models.ParamGrid{
			GSRHigh:         []float64{70, 85},
			GSRLow:          []float64{65, 75},
			PositionSize:    []float64{10, 20},
			TransactionCost: []float64{2},
		},
	}

	req.Workers = 1
	serial, err := newTestBacktest(store).Optimize(context.Background(), req)
	require.NoError(t, err)
	req.Workers = 3
	parallel, err := newTestBacktest(store).Optimize(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, serial.AllResults, 8)
	assert.Equal(t, serial.AllResults, parallel.AllResults)
	assert.Equal(t, serial.BestParams, parallel.BestParams)

	// 70/75 is inverted and must be reported, not ranked.
	var invalid int
	for _, r := range serial.AllResults {
		if r.Params.GSRHigh <= r.Params.GSRLow {
			invalid++
			assert.NotEmpty(t, r.Error)
			continue
		}
		assert.Empty(t, r.Error)
		assert.LessOrEqual(t, r.GoldOzGainPct, serial.BestResult.GoldOzGainPct)
	}
	assert.Equal(t, 2, invalid)
	require.NotNil(t, serial.BestResult)
	assert.Equal(t, serial.BestParams.GSRHigh, serial.BestResult.Config.GSRHighThreshold)
}

func TestOptimizeRejectsOversizedGrid(t *testing.T) {
	start, end := backtestRange()
	values := make([]float64, 10)
	for i := range values {
		values[i] = float64(60 + i)
	}
	_, err := newTestBacktest(seededStore(10, constant(80))).Optimize(context.Background(), models.OptimizeRequest{
		StartDate: start, EndDate: end, InitialGoldOz: 100, StatsWindow: 90,
		ParamRanges: models.ParamGrid{GSRHigh: values, GSRLow: values},
	})
	assert.True(t, models.IsValidationError(err))
}

func TestOptimalParamsDefaults(t *testing.T) {
	p := newTestBacktest(repository.NewMemoryStore()).OptimalParams()
	assert.Equal(t, models.StrategyParams{GSRHigh: 85, GSRLow: 65, PositionSize: 15, TransactionCost: 2}, p)
}
