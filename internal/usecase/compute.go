package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"GSRSwap/internal/domain/models"
	domrepo "GSRSwap/internal/domain/repository"
	"GSRSwap/internal/services/alerts"
	"GSRSwap/internal/services/correlation"
	"GSRSwap/internal/services/stats"
	"GSRSwap/pkg/cache"
	applogger "GSRSwap/pkg/logger"
)

// ErrComputeRunning is returned when another instance holds the job lock.
var ErrComputeRunning = errors.New("compute job already running")

const (
	computeLockKey  = "compute:lock"
	lastRegimeKey   = "compute:last_regime"
	lastRegimeTTL   = 30 * 24 * time.Hour
	defaultLookback = 730
)

type computeAnalytics interface {
	seriesLoader
	snapshotter
	LoadMacro(ctx context.Context, names []string, from, to time.Time) (map[string][]models.PricePoint, map[string]error)
	Invalidate(ctx context.Context) error
	MarkDerived(cov models.DerivedCoverage)
}

// ComputeConfig drives the daily refresh.
type ComputeConfig struct {
	MacroSeries        []string
	StatWindows        []int
	CorrelationWindows []int
	HistoryDays        int
	LockTTL            time.Duration
}

// ComputeJob is the daily refresh: pull new prices upstream, store them,
// recompute and persist derived metrics, then publish the live signal and
// any triggered default alerts.
type ComputeJob struct {
	upstream  domrepo.PriceHistoryProvider
	store     domrepo.TimeSeriesStore
	analytics computeAnalytics
	alerts    *AlertUseCase
	publisher domrepo.EventPublisher
	cache     cache.Service
	metrics   domrepo.Metrics
	cfg       ComputeConfig
	l         *applogger.Logger
	now       func() time.Time
}

// NewComputeJob wires the job. upstream may be nil, in which case only
// already-stored prices are used.
func NewComputeJob(
	upstream domrepo.PriceHistoryProvider,
	store domrepo.TimeSeriesStore,
	analytics computeAnalytics,
	alertUC *AlertUseCase,
	publisher domrepo.EventPublisher,
	c cache.Service,
	metrics domrepo.Metrics,
	cfg ComputeConfig,
	l *applogger.Logger,
) *ComputeJob {
	if len(cfg.MacroSeries) == 0 {
		cfg.MacroSeries = models.DefaultMacroSeries()
	}
	if len(cfg.StatWindows) == 0 {
		cfg.StatWindows = models.DefaultStatWindows()
	}
	if len(cfg.CorrelationWindows) == 0 {
		cfg.CorrelationWindows = models.DefaultCorrelationWindows()
	}
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = 5 * 365
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Minute
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &ComputeJob{
		upstream:  upstream,
		store:     store,
		analytics: analytics,
		alerts:    alertUC,
		publisher: publisher,
		cache:     c,
		metrics:   metrics,
		cfg:       cfg,
		l:         l.With(applogger.String("job", "compute")),
		now:       time.Now,
	}
}

// Run executes one refresh. lookbackDays bounds both the initial price
// backfill and the span of derived metrics rewritten; 0 means the default.
// Per-symbol ingest failures are reported, not fatal.
func (j *ComputeJob) Run(ctx context.Context, lookbackDays int) (*models.ComputeReport, error) {
	if lookbackDays <= 0 {
		lookbackDays = defaultLookback
	}
	started := j.now()

	if j.cache != nil {
		ok, err := j.cache.TryLock(ctx, computeLockKey, j.cfg.LockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire compute lock: %w", err)
		}
		if !ok {
			return nil, ErrComputeRunning
		}
		defer func() {
			if err := j.cache.Unlock(context.Background(), computeLockKey); err != nil {
				j.l.Warn("release compute lock", applogger.Error(err))
			}
		}()
	}

	rep := &models.ComputeReport{StartedAt: started.UTC()}
	defer func() {
		rep.Duration = j.now().Sub(started)
		j.metrics.RecordLatency("compute_job", rep.Duration.Seconds())
	}()

	today := models.Day(started)
	if j.upstream != nil {
		j.ingest(ctx, today, lookbackDays, rep)
	}
	if err := j.analytics.Invalidate(ctx); err != nil {
		j.l.Warn("invalidate analysis cache", applogger.Error(err))
	}

	if err := j.derive(ctx, today, lookbackDays, rep); err != nil {
		j.metrics.RecordError("compute_derive")
		return rep, err
	}

	analysis, err := j.analytics.Current(ctx)
	if err != nil {
		j.metrics.RecordError("compute_analysis")
		return rep, err
	}
	sig := analysis.Signal
	rep.Signal = &sig
	if err := j.publisher.PublishSignal(ctx, sig); err != nil {
		rep.Errors = append(rep.Errors, fmt.Sprintf("publish signal: %v", err))
	}

	prev := j.previousRegime(ctx)
	ev, err := j.alerts.EvaluateAnalysis(ctx, alerts.DefaultAlerts(), analysis, prev, true)
	if err != nil {
		rep.Errors = append(rep.Errors, fmt.Sprintf("alerts: %v", err))
	}
	if ev != nil {
		rep.AlertsTriggered = len(ev.Events)
	}
	j.rememberRegime(ctx, analysis.Regime)

	j.l.Info("compute job finished",
		applogger.Int("prices", rep.PricesStored),
		applogger.Int("stats", rep.StatsStored),
		applogger.Int("correlations", rep.CorrsStored),
		applogger.Int("alerts", rep.AlertsTriggered),
		applogger.String("signal", string(sig.Type)),
		applogger.Strings("errors", rep.Errors),
	)
	return rep, nil
}

// ingest fetches each symbol from the day after its last stored price.
func (j *ComputeJob) ingest(ctx context.Context, today time.Time, lookbackDays int, rep *models.ComputeReport) {
	symbols := append([]string{models.SymbolGold, models.SymbolSilver}, j.cfg.MacroSeries...)
	floor := today.AddDate(0, 0, -lookbackDays)

	for _, sym := range symbols {
		if ctx.Err() != nil {
			rep.Errors = append(rep.Errors, ctx.Err().Error())
			return
		}
		start := floor
		last, ok, err := j.store.LastPriceDate(ctx, sym)
		if err != nil {
			rep.Errors = append(rep.Errors, fmt.Sprintf("%s: %v", sym, err))
			continue
		}
		if ok && !last.Before(start) {
			start = last.AddDate(0, 0, 1)
		}
		if start.After(today) {
			continue
		}

		points, err := j.upstream.GetSeries(ctx, sym, start, today)
		if err != nil {
			j.metrics.RecordError("compute_fetch")
			j.l.Error("fetch prices", applogger.String("symbol", sym), applogger.Error(err))
			rep.Errors = append(rep.Errors, fmt.Sprintf("%s: %v", sym, err))
			continue
		}
		if len(points) == 0 {
			continue
		}
		if err := j.store.SavePrices(ctx, points); err != nil {
			rep.Errors = append(rep.Errors, fmt.Sprintf("%s: %v", sym, err))
			continue
		}
		j.metrics.RecordPricesStored(sym, len(points))
		rep.PricesStored += len(points)
	}
}

// derive recomputes rolling stats and correlations over the stored history
// and persists the ones dated inside the lookback.
func (j *ComputeJob) derive(ctx context.Context, today time.Time, lookbackDays int, rep *models.ComputeReport) error {
	from := today.AddDate(0, 0, -j.cfg.HistoryDays)
	keepFrom := today.AddDate(0, 0, -lookbackDays)

	series, err := j.analytics.LoadGSR(ctx, from, today)
	if err != nil {
		return err
	}

	all, err := stats.ComputeRollingStats(series, j.cfg.StatWindows)
	if err != nil {
		return err
	}
	kept := make([]models.RollingStat, 0, len(all))
	for _, st := range all {
		if !st.Timestamp.Before(keepFrom) {
			kept = append(kept, st)
		}
	}
	if err := j.store.SaveRollingStats(ctx, kept); err != nil {
		return err
	}
	rep.StatsStored = len(kept)

	macro, errs := j.analytics.LoadMacro(ctx, j.cfg.MacroSeries, from, today)
	for name, err := range errs {
		rep.Errors = append(rep.Errors, fmt.Sprintf("%s: %v", name, err))
	}
	corrs, err := correlation.ComputeCorrelations(series, macro, j.cfg.CorrelationWindows)
	if err != nil {
		return err
	}
	keptCorrs := make([]models.CorrelationObservation, 0, len(corrs))
	for _, c := range corrs {
		if !c.Timestamp.Before(keepFrom) {
			keptCorrs = append(keptCorrs, c)
		}
	}
	if err := j.store.SaveCorrelations(ctx, keptCorrs); err != nil {
		return err
	}
	rep.CorrsStored = len(keptCorrs)

	variables := make([]string, 0, len(macro))
	for name := range macro {
		variables = append(variables, name)
	}
	sort.Strings(variables)
	j.analytics.MarkDerived(models.DerivedCoverage{
		From:               keepFrom,
		To:                 today,
		StatWindows:        j.cfg.StatWindows,
		CorrelationWindows: j.cfg.CorrelationWindows,
		Variables:          variables,
	})
	return nil
}

func (j *ComputeJob) previousRegime(ctx context.Context) models.RegimeType {
	if j.cache == nil {
		return ""
	}
	var prev string
	if err := j.cache.Get(ctx, lastRegimeKey, &prev); err != nil {
		return ""
	}
	return models.RegimeType(prev)
}

func (j *ComputeJob) rememberRegime(ctx context.Context, r models.RegimeType) {
	if j.cache == nil {
		return
	}
	if err := j.cache.Set(ctx, lastRegimeKey, string(r), lastRegimeTTL); err != nil {
		j.l.Warn("store last regime", applogger.Error(err))
	}
}
