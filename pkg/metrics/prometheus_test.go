package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := NewWithRegistry(prometheus.NewRegistry())

	r.RecordGSR(83.2)
	r.RecordSignal("swap_gold_to_silver", 72)
	r.RecordSignal("swap_gold_to_silver", 80)
	r.RecordPricesStored("XAU", 3)
	r.RecordPricesStored("XAU", 2)
	r.RecordError("provider")
	r.RecordBacktest("ok", 0.02)
	r.RecordAlertTriggered("threshold")

	assert.Equal(t, 83.2, testutil.ToFloat64(r.gsr))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.signalsTotal.WithLabelValues("swap_gold_to_silver")))
	assert.Equal(t, 80.0, testutil.ToFloat64(r.signalStrength.WithLabelValues("swap_gold_to_silver")))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.pricesStored.WithLabelValues("XAU")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("provider")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.backtestsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.alertsTotal.WithLabelValues("threshold")))
}
