package repository

import (
	"context"
	"errors"
	"testing"

	"GSRSwap/internal/domain/models"
	pkgkafka "GSRSwap/pkg/kafka"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProducer struct {
	topics []string
	sent   [][]pkgkafka.Message
	err    error
	closed bool
}

func (f *fakeProducer) PublishBatch(_ context.Context, topic string, msgs []pkgkafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.topics = append(f.topics, topic)
	f.sent = append(f.sent, msgs)
	return nil
}

func (f *fakeProducer) Close() error {
	f.closed = true
	return nil
}

func TestKafkaEventPublisherRoutesByTopic(t *testing.T) {
	fp := &fakeProducer{}
	p := &KafkaEventPublisher{producer: fp, signalsTopic: "gsr.signals", alertsTopic: "gsr.alerts"}
	ctx := context.Background()

	require.NoError(t, p.PublishSignal(ctx, models.Signal{Type: models.SignalGoldToSilver, GSRValue: 88}))
	require.NoError(t, p.PublishAlerts(ctx, nil))
	require.NoError(t, p.PublishAlerts(ctx, []models.AlertEvent{
		{AlertID: "gsr_above_85", Type: models.AlertThreshold},
		{AlertID: "regime_change", Type: models.AlertMacroEvent},
	}))

	require.Equal(t, []string{"gsr.signals", "gsr.alerts"}, fp.topics)
	assert.Equal(t, "swap_gold_to_silver", fp.sent[0][0].Headers["signal_type"])
	require.Len(t, fp.sent[1], 2)
	assert.Equal(t, []byte("regime_change"), fp.sent[1][1].Key)
	assert.Equal(t, "macro_event", fp.sent[1][1].Headers["alert_type"])

	require.NoError(t, p.Close())
	assert.True(t, fp.closed)
}

func TestKafkaEventPublisherWrapsErrors(t *testing.T) {
	boom := errors.New("broker unavailable")
	p := &KafkaEventPublisher{producer: &fakeProducer{err: boom}, signalsTopic: "s", alertsTopic: "a"}

	err := p.PublishSignal(context.Background(), models.Signal{})
	assert.ErrorIs(t, err, boom)
}
