package payment

import "time"

// NoopMetricsCollector is a no-op implementation of MetricsCollector
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordOperationDuration(string, string, time.Duration) {}
func (n *NoopMetricsCollector) RecordOperationResult(string, string, string)         {}
func (n *NoopMetricsCollector) RecordError(string, string, string)                   {}
