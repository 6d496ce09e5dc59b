package usecase

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"GSRSwap/internal/domain/models"
	domrepo "GSRSwap/internal/domain/repository"
	"GSRSwap/internal/services/correlation"
	"GSRSwap/internal/services/regime"
	"GSRSwap/internal/services/signals"
	"GSRSwap/internal/services/stats"
	"GSRSwap/pkg/cache"
	applogger "GSRSwap/pkg/logger"
)

const (
	cacheNamespace = "analysis"

	// Extra calendar days fetched before a range so CPI year-over-year can be
	// computed at its start.
	macroYoYPadding = 400
	defaultRange    = 365
)

// AnalyticsConfig drives the analytics use case.
type AnalyticsConfig struct {
	PrimaryWindow      int
	StatWindows        []int
	CorrelationWindows []int
	MacroSeries        []string
	HistoryDays        int
	CacheTTL           time.Duration
	Timeout            time.Duration
	Thresholds         models.Thresholds
	Regime             regime.Config
}

func (c AnalyticsConfig) withDefaults() AnalyticsConfig {
	if c.PrimaryWindow < 2 {
		c.PrimaryWindow = 90
	}
	if len(c.StatWindows) == 0 {
		c.StatWindows = models.DefaultStatWindows()
	}
	if len(c.CorrelationWindows) == 0 {
		c.CorrelationWindows = models.DefaultCorrelationWindows()
	}
	if len(c.MacroSeries) == 0 {
		c.MacroSeries = models.DefaultMacroSeries()
	}
	if c.HistoryDays <= 0 {
		c.HistoryDays = 5 * 365
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Thresholds == (models.Thresholds{}) {
		c.Thresholds = models.DefaultThresholds()
	}
	return c
}

// AnalyticsUseCase loads price history and runs the GSR engines over it.
// Results are cached per calendar day; the compute job invalidates them.
// Stats and correlations inside the span the compute job last persisted are
// read back from the store instead of being recomputed.
type AnalyticsUseCase struct {
	prices     domrepo.PriceHistoryProvider
	stored     domrepo.DerivedMetricsReader
	cache      cache.Service
	classifier *regime.Classifier
	metrics    domrepo.Metrics
	cfg        AnalyticsConfig
	l          *applogger.Logger
	now        func() time.Time

	covMu    sync.RWMutex
	coverage *models.DerivedCoverage
}

func NewAnalyticsUseCase(prices domrepo.PriceHistoryProvider, c cache.Service, metrics domrepo.Metrics, cfg AnalyticsConfig, l *applogger.Logger) *AnalyticsUseCase {
	cfg = cfg.withDefaults()
	if l == nil {
		l = applogger.Nop()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	uc := &AnalyticsUseCase{
		prices:     prices,
		cache:      c,
		classifier: regime.NewClassifier(cfg.Regime),
		metrics:    metrics,
		cfg:        cfg,
		l:          l,
		now:        time.Now,
	}
	if r, ok := prices.(domrepo.DerivedMetricsReader); ok {
		uc.stored = r
	}
	return uc
}

// MarkDerived records what the compute job has just persisted.
func (uc *AnalyticsUseCase) MarkDerived(cov models.DerivedCoverage) {
	cov.From, cov.To = models.Day(cov.From), models.Day(cov.To)
	uc.covMu.Lock()
	uc.coverage = &cov
	uc.covMu.Unlock()
}

// derivedCoverage returns the persisted span when it contains [from, to].
func (uc *AnalyticsUseCase) derivedCoverage(from, to time.Time) (models.DerivedCoverage, bool) {
	if uc.stored == nil {
		return models.DerivedCoverage{}, false
	}
	uc.covMu.RLock()
	defer uc.covMu.RUnlock()
	if uc.coverage == nil || from.Before(uc.coverage.From) || to.After(uc.coverage.To) {
		return models.DerivedCoverage{}, false
	}
	return *uc.coverage, true
}

// Thresholds returns the live signal thresholds.
func (uc *AnalyticsUseCase) Thresholds() models.Thresholds { return uc.cfg.Thresholds }

func (uc *AnalyticsUseCase) today() time.Time { return models.Day(uc.now()) }

// LoadGSR fetches both metals concurrently and joins them into a GSR series.
func (uc *AnalyticsUseCase) LoadGSR(ctx context.Context, from, to time.Time) ([]models.GSRObservation, error) {
	series, errs := fetchAll(ctx, uc.prices, []string{models.SymbolGold, models.SymbolSilver}, from, to)
	for _, sym := range []string{models.SymbolGold, models.SymbolSilver} {
		if err := errs[sym]; err != nil {
			return nil, fmt.Errorf("load %s: %w", sym, err)
		}
	}
	gsr := stats.BuildGSRSeries(series[models.SymbolGold], series[models.SymbolSilver])
	if len(gsr) == 0 {
		return nil, &models.NoDataError{Start: from, End: to}
	}
	return gsr, nil
}

// LoadMacro fetches the named series concurrently. Series that fail to load
// are reported in the error map and left out of the result.
func (uc *AnalyticsUseCase) LoadMacro(ctx context.Context, names []string, from, to time.Time) (map[string][]models.PricePoint, map[string]error) {
	series, errs := fetchAll(ctx, uc.prices, names, from, to)
	for name, err := range errs {
		uc.l.Warn("macro series unavailable", applogger.String("series", name), applogger.Error(err))
	}
	return series, errs
}

// Current returns the latest GSR analysis: primary-window stat, every
// configured window that is full, macro regime and the live signal.
func (uc *AnalyticsUseCase) Current(ctx context.Context) (*models.GSRAnalysis, error) {
	today := uc.today()
	key := cache.Key(cacheNamespace, "current", today)
	return cache.GetOrLoad(ctx, uc.cache, key, uc.cfg.CacheTTL, func(ctx context.Context) (*models.GSRAnalysis, error) {
		return uc.computeCurrent(ctx, today)
	})
}

func (uc *AnalyticsUseCase) computeCurrent(ctx context.Context, today time.Time) (*models.GSRAnalysis, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, uc.cfg.Timeout)
	defer cancel()

	historyFrom := today.AddDate(0, 0, -maxInt(uc.cfg.HistoryDays, warmupDays(maxWindow(uc.cfg.StatWindows, uc.cfg.PrimaryWindow))))
	macroFrom := today.AddDate(0, 0, -(uc.classifier.Config().LookbackDays + macroYoYPadding))

	type item struct {
		name string
		val  interface{}
		err  error
	}
	ch := make(chan item, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := uc.LoadGSR(ctx, historyFrom, today)
		ch <- item{"gsr", v, err}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		v, errs := uc.LoadMacro(ctx, regimeInputs(), macroFrom, today)
		ch <- item{"macro", macroResult{v, errs}, nil}
	}()

	go func() { wg.Wait(); close(ch) }()

	var (
		series []models.GSRObservation
		macro  macroResult
		gsrErr error
	)
	for it := range ch {
		switch it.name {
		case "gsr":
			gsrErr = it.err
			if it.err == nil {
				series = it.val.([]models.GSRObservation)
			}
		case "macro":
			macro = it.val.(macroResult)
		}
	}
	if gsrErr != nil {
		uc.metrics.RecordError("analysis_load")
		return nil, gsrErr
	}

	primary, err := stats.Latest(series, uc.cfg.PrimaryWindow)
	if err != nil {
		return nil, err
	}

	last := series[len(series)-1]
	res := &models.GSRAnalysis{
		Timestamp:   last.Timestamp,
		GSR:         last.GSR,
		GoldPrice:   last.GoldPrice,
		SilverPrice: last.SilverPrice,
		Stat:        &primary,
		Stats:       make(map[int]models.RollingStat, len(uc.cfg.StatWindows)),
		Errors:      map[string]string{},
	}
	for _, w := range uc.cfg.StatWindows {
		st, err := stats.Latest(series, w)
		if err != nil {
			res.Errors[fmt.Sprintf("stats_%d", w)] = err.Error()
			continue
		}
		res.Stats[w] = st
	}
	for name, err := range macro.errs {
		res.Errors["macro_"+name] = err.Error()
	}

	state := regime.NewMacroDeriver(macro.series, uc.classifier.Config().LookbackDays).DeriveAt(last.Timestamp)
	res.Macro = &state
	res.Regime = uc.classifier.Classify(state)
	res.Signal = signals.Generate(signals.FromStat(primary, res.Regime), uc.cfg.Thresholds)

	if len(res.Errors) == 0 {
		res.Errors = nil
	}

	uc.metrics.RecordGSR(res.GSR)
	uc.metrics.RecordSignal(string(res.Signal.Type), res.Signal.Strength)
	uc.metrics.RecordLatency("analysis_current", time.Since(start).Seconds())
	uc.l.Debug("current analysis computed",
		applogger.Float64("gsr", res.GSR),
		applogger.String("signal", string(res.Signal.Type)),
		applogger.String("regime", string(res.Regime)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return res, nil
}

type macroResult struct {
	series map[string][]models.PricePoint
	errs   map[string]error
}

// CurrentSignal returns the live signal of the current analysis.
func (uc *AnalyticsUseCase) CurrentSignal(ctx context.Context) (*models.Signal, error) {
	a, err := uc.Current(ctx)
	if err != nil {
		return nil, err
	}
	sig := a.Signal
	return &sig, nil
}

// EvaluateSignal runs the generator on caller-supplied statistics.
func (uc *AnalyticsUseCase) EvaluateSignal(req models.SignalEvaluateRequest) (*models.Signal, error) {
	th := models.Thresholds{
		GSRHigh:            req.GSRHigh,
		GSRLow:             req.GSRLow,
		PercentileHigh:     req.PercentileHigh,
		PercentileLow:      req.PercentileLow,
		PercentileTriggers: req.PercentileTriggers == nil || *req.PercentileTriggers,
	}
	if err := th.Validate(); err != nil {
		return nil, err
	}
	reg := models.RegimeType(req.Regime)
	if reg == "" {
		reg = models.RegimeNeutral
	}
	if !reg.IsValid() {
		return nil, models.NewValidationError("regime", "unknown regime %q", req.Regime)
	}
	sig := signals.Generate(signals.Input{
		Timestamp:  uc.now().UTC(),
		GSR:        req.GSR,
		ZScore:     req.ZScore,
		Percentile: req.Percentile,
		Regime:     reg,
	}, th)
	return &sig, nil
}

// RollingStats returns the stats of every window for days in [from, to].
// History before from is loaded so the windows are full at its start.
func (uc *AnalyticsUseCase) RollingStats(ctx context.Context, from, to time.Time, windows []int) ([]models.RollingStat, error) {
	if err := stats.ValidateWindows(windows); err != nil {
		return nil, err
	}
	from, to, err := uc.resolveRange(from, to)
	if err != nil {
		return nil, err
	}
	key := cache.Key(cacheNamespace, "stats", from, to, joinInts(windows))
	return cache.GetOrLoad(ctx, uc.cache, key, uc.cfg.CacheTTL, func(ctx context.Context) ([]models.RollingStat, error) {
		if rows, ok := uc.storedStats(ctx, from, to, windows); ok {
			return rows, nil
		}
		series, err := uc.LoadGSR(ctx, from.AddDate(0, 0, -warmupDays(maxWindow(windows, 0))), to)
		if err != nil {
			return nil, err
		}
		all, err := stats.ComputeRollingStats(series, windows)
		if err != nil {
			return nil, err
		}
		out := make([]models.RollingStat, 0, len(all))
		for _, st := range all {
			if inRange(st.Timestamp, from, to) {
				out = append(out, st)
			}
		}
		return out, nil
	})
}

// Correlations returns rolling correlations against the given variables (the
// configured macro series when empty) for days in [from, to].
func (uc *AnalyticsUseCase) Correlations(ctx context.Context, from, to time.Time, windows []int, variables []string) ([]models.CorrelationObservation, error) {
	if err := stats.ValidateWindows(windows); err != nil {
		return nil, err
	}
	if len(variables) == 0 {
		variables = uc.cfg.MacroSeries
	}
	from, to, err := uc.resolveRange(from, to)
	if err != nil {
		return nil, err
	}
	key := cache.Key(cacheNamespace, "correlations", from, to, joinInts(windows), strings.Join(variables, ","))
	return cache.GetOrLoad(ctx, uc.cache, key, uc.cfg.CacheTTL, func(ctx context.Context) ([]models.CorrelationObservation, error) {
		if rows, ok := uc.storedCorrelations(ctx, from, to, windows, variables); ok {
			return rows, nil
		}
		loadFrom := from.AddDate(0, 0, -warmupDays(maxWindow(windows, 0)))
		series, err := uc.LoadGSR(ctx, loadFrom, to)
		if err != nil {
			return nil, err
		}
		macro, _ := uc.LoadMacro(ctx, variables, loadFrom, to)
		all, err := correlation.ComputeCorrelations(series, macro, windows)
		if err != nil {
			return nil, err
		}
		out := make([]models.CorrelationObservation, 0, len(all))
		for _, c := range all {
			if inRange(c.Timestamp, from, to) {
				out = append(out, c)
			}
		}
		return out, nil
	})
}

// storedStats reads persisted stats back in the order ComputeRollingStats
// produces them: requested window order, then day.
func (uc *AnalyticsUseCase) storedStats(ctx context.Context, from, to time.Time, windows []int) ([]models.RollingStat, bool) {
	cov, ok := uc.derivedCoverage(from, to)
	if !ok || len(positions(windows)) != len(windows) || !subsetInts(windows, cov.StatWindows) {
		return nil, false
	}
	rows, err := uc.stored.GetRollingStats(ctx, from, to, windows)
	if err != nil {
		uc.l.Warn("stored rolling stats unavailable", applogger.Error(err))
		return nil, false
	}
	order := positions(windows)
	sort.SliceStable(rows, func(i, j int) bool {
		if a, b := order[rows[i].WindowDays], order[rows[j].WindowDays]; a != b {
			return a < b
		}
		return rows[i].Timestamp.Before(rows[j].Timestamp)
	})
	uc.l.Debug("rolling stats served from store", applogger.Int("rows", len(rows)))
	return rows, true
}

// storedCorrelations reads persisted correlations back in the order
// ComputeCorrelations produces them: variable, requested window order, day.
func (uc *AnalyticsUseCase) storedCorrelations(ctx context.Context, from, to time.Time, windows []int, variables []string) ([]models.CorrelationObservation, bool) {
	cov, ok := uc.derivedCoverage(from, to)
	if !ok || len(positions(windows)) != len(windows) ||
		!subsetInts(windows, cov.CorrelationWindows) || !subsetStrings(variables, cov.Variables) {
		return nil, false
	}
	rows, err := uc.stored.GetCorrelations(ctx, from, to, windows, variables)
	if err != nil {
		uc.l.Warn("stored correlations unavailable", applogger.Error(err))
		return nil, false
	}
	order := positions(windows)
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.VariableName != b.VariableName {
			return a.VariableName < b.VariableName
		}
		if order[a.WindowDays] != order[b.WindowDays] {
			return order[a.WindowDays] < order[b.WindowDays]
		}
		return a.Timestamp.Before(b.Timestamp)
	})
	uc.l.Debug("correlations served from store", applogger.Int("rows", len(rows)))
	return rows, true
}

// Regimes classifies every GSR trading day in [from, to] and collapses the
// result into intervals.
func (uc *AnalyticsUseCase) Regimes(ctx context.Context, from, to time.Time) (*models.RegimeReport, error) {
	from, to, err := uc.resolveRange(from, to)
	if err != nil {
		return nil, err
	}
	key := cache.Key(cacheNamespace, "regimes", from, to)
	return cache.GetOrLoad(ctx, uc.cache, key, uc.cfg.CacheTTL, func(ctx context.Context) (*models.RegimeReport, error) {
		series, err := uc.LoadGSR(ctx, from, to)
		if err != nil {
			return nil, err
		}
		macroFrom := from.AddDate(0, 0, -(uc.classifier.Config().LookbackDays + macroYoYPadding))
		macro, _ := uc.LoadMacro(ctx, regimeInputs(), macroFrom, to)

		days := make([]time.Time, len(series))
		for i, o := range series {
			days[i] = o.Timestamp
		}
		obs, intervals := uc.classifier.ClassifyDays(macro, days)
		rep := &models.RegimeReport{From: from, To: to, Current: models.RegimeNeutral, Intervals: intervals}
		if len(obs) > 0 {
			rep.Current = obs[len(obs)-1].Regime
		}
		return rep, nil
	})
}

// Invalidate drops every cached analysis.
func (uc *AnalyticsUseCase) Invalidate(ctx context.Context) error {
	if uc.cache == nil {
		return nil
	}
	return uc.cache.DeleteByPattern(ctx, cache.Pattern(cacheNamespace))
}

func (uc *AnalyticsUseCase) resolveRange(from, to time.Time) (time.Time, time.Time, error) {
	return resolveDayRange(from, to, uc.today())
}

// resolveDayRange defaults to the trailing year and rejects inverted ranges.
func resolveDayRange(from, to, today time.Time) (time.Time, time.Time, error) {
	if to.IsZero() {
		to = today
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -defaultRange)
	}
	from, to = models.Day(from), models.Day(to)
	if to.Before(from) {
		return from, to, models.NewValidationError("to", "to must not be before from")
	}
	return from, to, nil
}

// fetchAll loads several symbols concurrently.
func fetchAll(ctx context.Context, p domrepo.PriceHistoryProvider, symbols []string, from, to time.Time) (map[string][]models.PricePoint, map[string]error) {
	type item struct {
		symbol string
		points []models.PricePoint
		err    error
	}
	ch := make(chan item, len(symbols))
	var wg sync.WaitGroup
	for _, sym := range symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			pts, err := p.GetSeries(ctx, sym, from, to)
			ch <- item{sym, pts, err}
		}(sym)
	}
	go func() { wg.Wait(); close(ch) }()

	series := make(map[string][]models.PricePoint, len(symbols))
	errs := map[string]error{}
	for it := range ch {
		if it.err != nil {
			errs[it.symbol] = it.err
			continue
		}
		series[it.symbol] = it.points
	}
	return series, errs
}

func regimeInputs() []string {
	return []string{models.MacroTreasury10Y, models.MacroDollarIndex, models.MacroCPI, models.MacroVIX}
}

// warmupDays converts a window in trading days to calendar days of history.
func warmupDays(window int) int {
	return window*3/2 + 14
}

func maxWindow(windows []int, floor int) int {
	m := floor
	for _, w := range windows {
		if w > m {
			m = w
		}
	}
	return m
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}

// joinInts keeps the caller's order: results are grouped by window in that
// order, so [90,30] and [30,90] are different cache entries.
func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

func positions(v []int) map[int]int {
	m := make(map[int]int, len(v))
	for i, n := range v {
		if _, ok := m[n]; !ok {
			m[n] = i
		}
	}
	return m
}

func subsetInts(sub, set []int) bool {
	have := positions(set)
	for _, n := range sub {
		if _, ok := have[n]; !ok {
			return false
		}
	}
	return true
}

func subsetStrings(sub, set []string) bool {
	have := make(map[string]struct{}, len(set))
	for _, s := range set {
		have[s] = struct{}{}
	}
	for _, s := range sub {
		if _, ok := have[s]; !ok {
			return false
		}
	}
	return true
}
