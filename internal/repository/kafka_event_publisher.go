package repository

import (
	"context"
	"fmt"

	"GSRSwap/internal/domain/models"
	domrepo "GSRSwap/internal/domain/repository"
	pkgkafka "GSRSwap/pkg/kafka"
	applogger "GSRSwap/pkg/logger"
)

type batchPublisher interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaEventPublisher publishes signals and triggered alerts as JSON.
type KafkaEventPublisher struct {
	producer     batchPublisher
	signalsTopic string
	alertsTopic  string
}

// NewKafkaEventPublisher creates a publisher over producer.
func NewKafkaEventPublisher(producer *pkgkafka.Producer, signalsTopic, alertsTopic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, signalsTopic: signalsTopic, alertsTopic: alertsTopic}
}

func (p *KafkaEventPublisher) PublishSignal(ctx context.Context, s models.Signal) error {
	msg := pkgkafka.Message{
		Key:     []byte(models.SymbolGold + "/" + models.SymbolSilver),
		Value:   s,
		Headers: map[string]string{"event_type": "signal", "signal_type": string(s.Type)},
	}
	if err := p.producer.PublishBatch(ctx, p.signalsTopic, []pkgkafka.Message{msg}); err != nil {
		return fmt.Errorf("publish signal: %w", err)
	}
	return nil
}

func (p *KafkaEventPublisher) PublishAlerts(ctx context.Context, events []models.AlertEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(events))
	for _, ev := range events {
		msgs = append(msgs, pkgkafka.Message{
			Key:     []byte(ev.AlertID),
			Value:   ev,
			Headers: map[string]string{"event_type": "alert", "alert_type": string(ev.Type)},
		})
	}
	if err := p.producer.PublishBatch(ctx, p.alertsTopic, msgs); err != nil {
		return fmt.Errorf("publish %d alerts: %w", len(events), err)
	}
	return nil
}

func (p *KafkaEventPublisher) Close() error {
	return p.producer.Close()
}

// LogEventPublisher stands in for Kafka when it is disabled: events are
// written to the log only.
type LogEventPublisher struct {
	l *applogger.Logger
}

func NewLogEventPublisher(l *applogger.Logger) *LogEventPublisher {
	if l == nil {
		l = applogger.Nop()
	}
	return &LogEventPublisher{l: l}
}

func (p *LogEventPublisher) PublishSignal(_ context.Context, s models.Signal) error {
	p.l.Info("signal",
		applogger.String("type", string(s.Type)),
		applogger.Float64("strength", s.Strength),
		applogger.Float64("gsr", s.GSRValue),
		applogger.String("regime", string(s.Regime)),
	)
	return nil
}

func (p *LogEventPublisher) PublishAlerts(_ context.Context, events []models.AlertEvent) error {
	for _, ev := range events {
		p.l.Info("alert triggered",
			applogger.String("alert_id", ev.AlertID),
			applogger.String("name", ev.AlertName),
			applogger.Float64("gsr", ev.GSR),
		)
	}
	return nil
}

func (p *LogEventPublisher) Close() error { return nil }

var (
	_ domrepo.EventPublisher = (*KafkaEventPublisher)(nil)
	_ domrepo.EventPublisher = (*LogEventPublisher)(nil)
)
