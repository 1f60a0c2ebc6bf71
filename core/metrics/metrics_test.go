package metrics

import (
	"encoding/json"
	"errors"
	"testing"

	"gopkg.in/yaml.v3"
)

type recordSink struct {
	windows, traces, runs, dispatches int
	fail                              bool
}

func (r *recordSink) RecordWindow(WindowRecord) error {
	r.windows++
	if r.fail {
		return errors.New("sink down")
	}
	return nil
}

func (r *recordSink) RecordTraces(TraceRecord) error      { r.traces++; return nil }
func (r *recordSink) RecordRun(RunRecord) error           { r.runs++; return nil }
func (r *recordSink) RecordDispatch(DispatchRecord) error { r.dispatches++; return nil }

type windowOnly struct{ n int }

func (w *windowOnly) RecordWindow(WindowRecord) error { w.n++; return nil }

func TestMultiSinkForwards(t *testing.T) {
	s1 := &recordSink{}
	s2 := &windowOnly{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordWindow(WindowRecord{}); err != nil {
		t.Fatalf("record window: %v", err)
	}
	if err := m.RecordTraces(TraceRecord{}); err != nil {
		t.Fatalf("record traces: %v", err)
	}
	if err := m.RecordRun(RunRecord{}); err != nil {
		t.Fatalf("record run: %v", err)
	}
	if err := m.RecordDispatch(DispatchRecord{}); err != nil {
		t.Fatalf("record dispatch: %v", err)
	}
	if s1.windows != 1 || s1.traces != 1 || s1.runs != 1 || s1.dispatches != 1 {
		t.Fatalf("records not forwarded: %+v", s1)
	}
	if s2.n != 1 {
		t.Fatalf("window-only sink not called")
	}
}

func TestMultiSinkContinuesAfterError(t *testing.T) {
	bad := &recordSink{fail: true}
	good := &recordSink{}
	err := NewMultiSink(bad, good).RecordWindow(WindowRecord{Window: 1})
	if err == nil {
		t.Fatal("expected error")
	}
	if good.windows != 1 {
		t.Fatal("second sink should still receive the record")
	}
}

func TestMetricsConfigDecodeYAML(t *testing.T) {
	data := `sinks:
  - type: nop
  - type: nop
`
	var cfg Config
	if err := yaml.Unmarshal([]byte(data), &cfg); err != nil {
		t.Fatalf("yaml unmarshal: %v", err)
	}
	s, err := NewMetricsSink(cfg.Sinks)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, ok := s.(*MultiSink); !ok {
		t.Fatalf("expected MultiSink got %T", s)
	}
}

func TestMetricsConfigDecodeJSON_Invalid(t *testing.T) {
	data := `{"sinks":[{"type":"missing"}]}`
	var cfg Config
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	if _, err := NewMetricsSink(cfg.Sinks); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestNewMetricsSinkEmpty(t *testing.T) {
	s, err := NewMetricsSink(nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, ok := s.(NopSink); !ok {
		t.Fatalf("expected NopSink got %T", s)
	}
}

type closingSink struct {
	windowOnly
	events []string
	closed bool
}

func (c *closingSink) RecordEvent(t string) error { c.events = append(c.events, t); return nil }
func (c *closingSink) Close() error               { c.closed = true; return nil }

func TestMultiSinkEventsAndClose(t *testing.T) {
	c := &closingSink{}
	m := NewMultiSink(c, &windowOnly{})
	if err := m.RecordEvent("window_started"); err != nil {
		t.Fatalf("record event: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(c.events) != 1 || !c.closed {
		t.Fatalf("events=%v closed=%v", c.events, c.closed)
	}
}
