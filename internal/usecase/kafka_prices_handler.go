package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"GSRSwap/internal/domain/models"
	domrepo "GSRSwap/internal/domain/repository"
	pkgkafka "GSRSwap/pkg/kafka"
	applogger "GSRSwap/pkg/logger"
)

// KafkaPricesHandler persists daily closes published by ingestion adapters.
type KafkaPricesHandler struct {
	topic   string
	store   domrepo.TimeSeriesStore
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewKafkaPricesHandler(topic string, store domrepo.TimeSeriesStore, metrics domrepo.Metrics, l *applogger.Logger) *KafkaPricesHandler {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &KafkaPricesHandler{topic: topic, store: store, metrics: metrics, l: l}
}

func (h *KafkaPricesHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, t, price, source}; t is unix seconds or
// milliseconds.
func (h *KafkaPricesHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbol string  `json:"symbol"`
		T      int64   `json:"t"`
		Price  float64 `json:"price"`
		Source string  `json:"source"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode price: %w", err)
	}
	m.Symbol = strings.ToUpper(strings.TrimSpace(m.Symbol))
	if m.Symbol == "" || m.T <= 0 {
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("price message missing symbol or t")
	}
	if m.Price <= 0 || math.IsNaN(m.Price) || math.IsInf(m.Price, 0) {
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("price message for %s has invalid price %v", m.Symbol, m.Price)
	}
	if m.T > 1e11 { // ms
		m.T = m.T / 1000
	}
	if m.Source == "" {
		m.Source = "kafka"
	}

	point := models.PricePoint{
		Timestamp: models.Day(time.Unix(m.T, 0)),
		Symbol:    m.Symbol,
		Price:     m.Price,
		Source:    m.Source,
	}
	start := time.Now()
	err := h.store.SavePrices(ctx, []models.PricePoint{point})
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordPricesStored(m.Symbol, 1)
	h.l.Debug("price stored",
		applogger.String("trace_id", pkgkafka.TraceID(ctx)),
		applogger.String("symbol", m.Symbol),
		applogger.Time("day", point.Timestamp),
	)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaPricesHandler)(nil)
