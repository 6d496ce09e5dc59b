package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"GSRSwap/internal/domain/models"
	domrepo "GSRSwap/internal/domain/repository"
)

// MemoryStore is an in-process TimeSeriesStore used when ClickHouse is
// disabled and in tests. Prices are keyed by (symbol, day); a later write for
// the same day replaces the earlier one.
type MemoryStore struct {
	mu        sync.RWMutex
	prices    map[string]map[time.Time]models.PricePoint
	stats     map[statKey]models.RollingStat
	corrs     map[corrKey]models.CorrelationObservation
	backtests []models.BacktestSummary
}

type statKey struct {
	day    time.Time
	window int
}

type corrKey struct {
	day      time.Time
	window   int
	variable string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		prices: make(map[string]map[time.Time]models.PricePoint),
		stats:  make(map[statKey]models.RollingStat),
		corrs:  make(map[corrKey]models.CorrelationObservation),
	}
}

func (m *MemoryStore) GetSeries(_ context.Context, symbol string, start, end time.Time) ([]models.PricePoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	from := models.Day(start)
	out := make([]models.PricePoint, 0, len(m.prices[symbol]))
	for day, p := range m.prices[symbol] {
		if day.Before(from) || (!end.IsZero() && day.After(models.Day(end))) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (m *MemoryStore) LastPriceDate(_ context.Context, symbol string) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var last time.Time
	for day := range m.prices[symbol] {
		if day.After(last) {
			last = day
		}
	}
	return last, !last.IsZero(), nil
}

// LatestPrice returns the most recent stored close of symbol.
func (m *MemoryStore) LatestPrice(_ context.Context, symbol string) (models.PricePoint, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var (
		latest models.PricePoint
		found  bool
	)
	for day, p := range m.prices[symbol] {
		if !found || day.After(latest.Timestamp) {
			latest, found = p, true
		}
	}
	return latest, found, nil
}

func (m *MemoryStore) SavePrices(_ context.Context, points []models.PricePoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range points {
		day := models.Day(p.Timestamp)
		if m.prices[p.Symbol] == nil {
			m.prices[p.Symbol] = make(map[time.Time]models.PricePoint)
		}
		p.Timestamp = day
		m.prices[p.Symbol][day] = p
	}
	return nil
}

func (m *MemoryStore) SaveRollingStats(_ context.Context, stats []models.RollingStat) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, st := range stats {
		m.stats[statKey{day: models.Day(st.Timestamp), window: st.WindowDays}] = st
	}
	return nil
}

func (m *MemoryStore) SaveCorrelations(_ context.Context, corrs []models.CorrelationObservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range corrs {
		m.corrs[corrKey{day: models.Day(c.Timestamp), window: c.WindowDays, variable: c.VariableName}] = c
	}
	return nil
}

// GetRollingStats returns stored stats dated in [from, to] for the given
// windows (all windows when empty), by window then day.
func (m *MemoryStore) GetRollingStats(_ context.Context, from, to time.Time, windows []int) ([]models.RollingStat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	from, to = models.Day(from), models.Day(to)
	out := make([]models.RollingStat, 0)
	for k, st := range m.stats {
		if k.day.Before(from) || k.day.After(to) || !containsInt(windows, k.window) {
			continue
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WindowDays != out[j].WindowDays {
			return out[i].WindowDays < out[j].WindowDays
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

// GetCorrelations returns stored correlations dated in [from, to], by
// variable, window then day. Empty filters match everything.
func (m *MemoryStore) GetCorrelations(_ context.Context, from, to time.Time, windows []int, variables []string) ([]models.CorrelationObservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	from, to = models.Day(from), models.Day(to)
	out := make([]models.CorrelationObservation, 0)
	for k, c := range m.corrs {
		if k.day.Before(from) || k.day.After(to) || !containsInt(windows, k.window) || !containsString(variables, k.variable) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.VariableName != b.VariableName {
			return a.VariableName < b.VariableName
		}
		if a.WindowDays != b.WindowDays {
			return a.WindowDays < b.WindowDays
		}
		return a.Timestamp.Before(b.Timestamp)
	})
	return out, nil
}

func (m *MemoryStore) SaveBacktest(_ context.Context, sum models.BacktestSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backtests = append(m.backtests, sum)
	return nil
}

// ListBacktests returns the most recent summaries first.
func (m *MemoryStore) ListBacktests(_ context.Context, limit int) ([]models.BacktestSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.BacktestSummary, len(m.backtests))
	copy(out, m.backtests)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Counts reports stored row counts, for tests and diagnostics.
func (m *MemoryStore) Counts() (prices, stats, corrs int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, days := range m.prices {
		prices += len(days)
	}
	return prices, len(m.stats), len(m.corrs)
}

func (m *MemoryStore) Health(context.Context) error { return nil }

func containsInt(set []int, v int) bool {
	if len(set) == 0 {
		return true
	}
	for _, x := range set {
		if x == v {
			return true
		}
	}
	return false
}

func containsString(set []string, v string) bool {
	if len(set) == 0 {
		return true
	}
	for _, x := range set {
		if x == v {
			return true
		}
	}
	return false
}

var _ domrepo.TimeSeriesStore = (*MemoryStore)(nil)
