package usecase

import (
	"context"
	"strconv"
	"sync"
	"time"

	"GSRSwap/internal/domain/models"
	"GSRSwap/internal/repository"
)

var testToday = time.Date(2024, 6, 30, 15, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testToday }

// pricesFor returns n daily gold and silver closes ending on testToday with
// the ratio given by f.
func pricesFor(n int, f func(i int) float64) []models.PricePoint {
	first := models.Day(testToday).AddDate(0, 0, -(n - 1))
	out := make([]models.PricePoint, 0, 2*n)
	for i := 0; i < n; i++ {
		d := first.AddDate(0, 0, i)
		out = append(out,
			models.PricePoint{Timestamp: d, Symbol: models.SymbolGold, Price: f(i) * 25, Source: "test"},
			models.PricePoint{Timestamp: d, Symbol: models.SymbolSilver, Price: 25, Source: "test"},
		)
	}
	return out
}

func constant(v float64) func(int) float64 { return func(int) float64 { return v } }

func seededStore(n int, f func(i int) float64) *repository.MemoryStore {
	s := repository.NewMemoryStore()
	_ = s.SavePrices(context.Background(), pricesFor(n, f))
	return s
}

func newTestAnalytics(store *repository.MemoryStore) *AnalyticsUseCase {
	uc := NewAnalyticsUseCase(store, nil, nil, AnalyticsConfig{CacheTTL: time.Minute}, nil)
	uc.now = fixedNow
	return uc
}

type fakePublisher struct {
	mu      sync.Mutex
	signals []models.Signal
	alerts  []models.AlertEvent
	err     error
}

func (f *fakePublisher) PublishSignal(_ context.Context, s models.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals = append(f.signals, s)
	return nil
}

func (f *fakePublisher) PublishAlerts(_ context.Context, events []models.AlertEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.alerts = append(f.alerts, events...)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeMetrics struct {
	noopMetrics
	mu     sync.Mutex
	stored map[string]int
	errors []string
}

func (f *fakeMetrics) RecordPricesStored(symbol string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stored == nil {
		f.stored = map[string]int{}
	}
	f.stored[symbol] += n
}

func (f *fakeMetrics) RecordError(kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, kind)
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
