package repository

import (
	"context"
	"time"

	"GSRSwap/internal/domain/models"
)

// PriceHistoryProvider serves daily price series for metals and macro variables.
type PriceHistoryProvider interface {
	GetSeries(ctx context.Context, symbol string, start, end time.Time) ([]models.PricePoint, error)
}

// DerivedMetricsReader serves rolling stats and correlations persisted by the
// compute job, ordered by window (and variable) then day.
type DerivedMetricsReader interface {
	GetRollingStats(ctx context.Context, from, to time.Time, windows []int) ([]models.RollingStat, error)
	GetCorrelations(ctx context.Context, from, to time.Time, windows []int, variables []string) ([]models.CorrelationObservation, error)
}

// TimeSeriesStore persists facts and derived metrics. The core never requires it.
type TimeSeriesStore interface {
	PriceHistoryProvider
	DerivedMetricsReader
	LastPriceDate(ctx context.Context, symbol string) (time.Time, bool, error)
	LatestPrice(ctx context.Context, symbol string) (models.PricePoint, bool, error)
	SavePrices(ctx context.Context, points []models.PricePoint) error
	SaveRollingStats(ctx context.Context, stats []models.RollingStat) error
	SaveCorrelations(ctx context.Context, corrs []models.CorrelationObservation) error
	SaveBacktest(ctx context.Context, summary models.BacktestSummary) error
	ListBacktests(ctx context.Context, limit int) ([]models.BacktestSummary, error)
	Health(ctx context.Context) error
}

// EventPublisher fans computed signal state out to downstream consumers.
type EventPublisher interface {
	PublishSignal(ctx context.Context, s models.Signal) error
	PublishAlerts(ctx context.Context, events []models.AlertEvent) error
	Close() error
}

type Metrics interface {
	RecordGSR(value float64)
	RecordSignal(signalType string, strength float64)
	RecordBacktest(status string, seconds float64)
	RecordAlertTriggered(alertType string)
	RecordPricesStored(symbol string, n int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
