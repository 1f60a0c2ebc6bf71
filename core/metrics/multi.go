package metrics

import (
	"errors"
	"io"
)

// MultiSink fans records out to several sinks. Every sink is called even
// when an earlier one fails; the errors are joined.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordWindow forwards the record to all sinks.
func (m *MultiSink) RecordWindow(rec WindowRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordWindow(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordTraces forwards traces to the sinks that store them.
func (m *MultiSink) RecordTraces(rec TraceRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if tr, ok := s.(TraceRecorder); ok {
			if err := tr.RecordTraces(rec); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordRun forwards run summaries.
func (m *MultiSink) RecordRun(rec RunRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if rr, ok := s.(RunRecorder); ok {
			if err := rr.RecordRun(rec); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordDispatch forwards dispatch decisions.
func (m *MultiSink) RecordDispatch(rec DispatchRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if dr, ok := s.(DispatchRecorder); ok {
			if err := dr.RecordDispatch(rec); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordEvent forwards progress event types to sinks that count them.
func (m *MultiSink) RecordEvent(eventType string) error {
	var errs []error
	for _, s := range m.Sinks {
		if er, ok := s.(interface{ RecordEvent(string) error }); ok {
			if err := er.RecordEvent(eventType); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink that holds resources.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.Sinks {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
