package usecase

type noopMetrics struct{}

func (noopMetrics) RecordGSR(float64)              {}
func (noopMetrics) RecordSignal(string, float64)   {}
func (noopMetrics) RecordBacktest(string, float64) {}
func (noopMetrics) RecordAlertTriggered(string)    {}
func (noopMetrics) RecordPricesStored(string, int) {}
func (noopMetrics) RecordError(string)             {}
func (noopMetrics) RecordLatency(string, float64)  {}
