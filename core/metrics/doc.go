// Package metrics defines the recording surface for window runs and
// dispatch decisions. A MetricsSink records completed windows; sinks may
// additionally implement TraceRecorder, RunRecorder or DispatchRecorder.
// NewMetricsSink builds sinks from configuration and wraps several of them
// in a MultiSink.
package metrics
