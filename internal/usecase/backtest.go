package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"GSRSwap/internal/domain/models"
	domrepo "GSRSwap/internal/domain/repository"
	domsvc "GSRSwap/internal/domain/service"
	applogger "GSRSwap/pkg/logger"

	"github.com/google/uuid"
)

// seriesLoader loads a joined GSR series over a date range.
type seriesLoader interface {
	LoadGSR(ctx context.Context, from, to time.Time) ([]models.GSRObservation, error)
}

// BacktestConfig bounds the backtest use case.
type BacktestConfig struct {
	Defaults    models.StrategyParams
	Workers     int
	MaxGridSize int
}

// BacktestUseCase validates backtest requests, replays history and
// persists a summary of every run.
type BacktestUseCase struct {
	loader  seriesLoader
	store   domrepo.TimeSeriesStore
	engine  domsvc.Backtester
	metrics domrepo.Metrics
	cfg     BacktestConfig
	l       *applogger.Logger
	now     func() time.Time
	newID   func() string
}

func NewBacktestUseCase(loader seriesLoader, store domrepo.TimeSeriesStore, engine domsvc.Backtester, metrics domrepo.Metrics, cfg BacktestConfig, l *applogger.Logger) *BacktestUseCase {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.MaxGridSize <= 0 {
		cfg.MaxGridSize = 500
	}
	if cfg.Defaults == (models.StrategyParams{}) {
		cfg.Defaults = models.StrategyParams{GSRHigh: 85, GSRLow: 65, PositionSize: 15, TransactionCost: 2}
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &BacktestUseCase{
		loader:  loader,
		store:   store,
		engine:  engine,
		metrics: metrics,
		cfg:     cfg,
		l:       l,
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
}

// ConfigFromRequest turns a request into a validated simulation config.
func ConfigFromRequest(req models.BacktestRequest) (models.BacktestConfig, error) {
	start, end, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		return models.BacktestConfig{}, err
	}
	cfg := models.DefaultBacktestConfig(start, end)
	cfg.InitialGoldOz = req.InitialGoldOz
	cfg.GSRHighThreshold = req.GSRHighThreshold
	cfg.GSRLowThreshold = req.GSRLowThreshold
	cfg.PositionSizePct = req.PositionSizePct
	if req.TransactionCostPct != nil {
		cfg.TransactionCostPct = *req.TransactionCostPct
	}
	if req.StatsWindow != 0 {
		cfg.StatsWindow = req.StatsWindow
	}
	cfg.PercentileTriggers = req.PercentileTriggers
	if req.AlternateSwaps != nil {
		cfg.AlternateSwaps = *req.AlternateSwaps
	}
	return cfg, cfg.Validate()
}

// Run replays one configuration and stores its summary. A failed write is
// logged; the result is still returned.
func (uc *BacktestUseCase) Run(ctx context.Context, cfg models.BacktestConfig) (*models.BacktestResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	series, err := uc.load(ctx, cfg)
	if err != nil {
		uc.metrics.RecordBacktest("error", time.Since(start).Seconds())
		return nil, err
	}
	res, err := uc.engine.Run(series, cfg)
	if err != nil {
		uc.metrics.RecordBacktest("error", time.Since(start).Seconds())
		return nil, err
	}
	uc.metrics.RecordBacktest("ok", time.Since(start).Seconds())

	sum := res.Summarize(uc.newID(), uc.now().UTC())
	if err := uc.store.SaveBacktest(ctx, sum); err != nil {
		uc.l.Error("save backtest summary", applogger.String("id", sum.ID), applogger.Error(err))
	}
	uc.l.Info("backtest completed",
		applogger.String("id", sum.ID),
		applogger.Int("swaps", res.TotalSwaps),
		applogger.Float64("gain_pct", res.GoldOzGainPct),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return &res, nil
}

// Optimize sweeps the parameter grid on a bounded worker pool. Every point
// replays the same immutable series with its own position; results are
// collected by grid index so the ranking is deterministic. The best point is
// the highest gold gain, the first in grid order on ties.
func (uc *BacktestUseCase) Optimize(ctx context.Context, req models.OptimizeRequest) (*models.OptimizeResult, error) {
	start, end, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	base := models.DefaultBacktestConfig(start, end)
	if req.InitialGoldOz > 0 {
		base.InitialGoldOz = req.InitialGoldOz
	}
	if req.StatsWindow != 0 {
		base.StatsWindow = req.StatsWindow
	}
	if err := base.Validate(); err != nil {
		return nil, err
	}

	grid := req.ParamRanges.Expand()
	if len(grid) > uc.cfg.MaxGridSize {
		return nil, models.NewValidationError("param_ranges", "grid has %d points, limit is %d", len(grid), uc.cfg.MaxGridSize)
	}

	series, err := uc.load(ctx, base)
	if err != nil {
		return nil, err
	}

	workers := req.Workers
	if workers <= 0 || workers > uc.cfg.Workers {
		workers = uc.cfg.Workers
	}
	began := time.Now()
	results := uc.sweep(ctx, series, base, grid, workers)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &models.OptimizeResult{AllResults: results}
	best := -1
	for i, r := range results {
		if r.Error != "" {
			continue
		}
		if best < 0 || r.GoldOzGainPct > results[best].GoldOzGainPct {
			best = i
		}
	}
	if best < 0 {
		return nil, models.NewValidationError("param_ranges", "no valid parameter combination in grid")
	}

	params := grid[best]
	bestRes, err := uc.engine.Run(series, withParams(base, params))
	if err != nil {
		return nil, fmt.Errorf("replay best params: %w", err)
	}
	out.BestParams = &params
	out.BestResult = &bestRes

	uc.metrics.RecordBacktest("optimize", time.Since(began).Seconds())
	uc.l.Info("optimization completed",
		applogger.Int("points", len(grid)),
		applogger.Int("workers", workers),
		applogger.Float64("best_gain_pct", bestRes.GoldOzGainPct),
		applogger.Duration("duration_ms", time.Since(began)),
	)
	return out, nil
}

func (uc *BacktestUseCase) sweep(ctx context.Context, series []models.GSRObservation, base models.BacktestConfig, grid []models.StrategyParams, workers int) []models.SweepResult {
	results := make([]models.SweepResult, len(grid))
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				p := grid[i]
				sr := models.SweepResult{Params: p}
				res, err := uc.engine.Run(series, withParams(base, p))
				if err != nil {
					sr.Error = err.Error()
				} else {
					sr.GoldOzGainPct = res.GoldOzGainPct
					sr.SharpeRatio = res.SharpeRatio
					sr.WinRate = res.WinRate
					sr.TotalSwaps = res.TotalSwaps
				}
				results[i] = sr
			}
		}()
	}

	for i := range grid {
		select {
		case jobs <- i:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return results
		}
	}
	close(jobs)
	wg.Wait()
	return results
}

// History lists persisted run summaries, newest first.
func (uc *BacktestUseCase) History(ctx context.Context, limit int) ([]models.BacktestSummary, error) {
	out, err := uc.store.ListBacktests(ctx, limit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.BacktestSummary{}
	}
	return out, nil
}

// OptimalParams returns the configured strategy defaults.
func (uc *BacktestUseCase) OptimalParams() models.StrategyParams {
	return uc.cfg.Defaults
}

// load fetches the range plus enough earlier history to fill the stats window.
func (uc *BacktestUseCase) load(ctx context.Context, cfg models.BacktestConfig) ([]models.GSRObservation, error) {
	from := cfg.StartDate.AddDate(0, 0, -warmupDays(cfg.StatsWindow))
	series, err := uc.loader.LoadGSR(ctx, from, cfg.EndDate)
	if err != nil {
		if models.IsNoData(err) {
			return nil, &models.NoDataError{Start: cfg.StartDate, End: cfg.EndDate}
		}
		return nil, err
	}
	return series, nil
}

func withParams(base models.BacktestConfig, p models.StrategyParams) models.BacktestConfig {
	cfg := base
	cfg.GSRHighThreshold = p.GSRHigh
	cfg.GSRLowThreshold = p.GSRLow
	cfg.PositionSizePct = p.PositionSize
	cfg.TransactionCostPct = p.TransactionCost
	return cfg
}

func parseRange(from, to string) (time.Time, time.Time, error) {
	start, err := time.Parse(time.DateOnly, from)
	if err != nil {
		return start, start, models.NewValidationError("start_date", "expected YYYY-MM-DD, got %q", from)
	}
	end, err := time.Parse(time.DateOnly, to)
	if err != nil {
		return start, end, models.NewValidationError("end_date", "expected YYYY-MM-DD, got %q", to)
	}
	if end.Before(start) {
		return start, end, models.NewValidationError("end_date", "end_date must not be before start_date")
	}
	return start, end, nil
}
