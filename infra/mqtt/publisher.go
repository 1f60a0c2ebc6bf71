package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kilianp07/microgrid/core/factory"
	coremetrics "github.com/kilianp07/microgrid/core/metrics"
)

const defaultTopicPrefix = "microgrid"

// publisher is the part of Client the report sink needs.
type publisher interface {
	Publish(topic string, payload []byte, retained bool) error
}

// ReportConfig configures the report publisher sink.
type ReportConfig struct {
	Config
	TopicPrefix string `json:"topic_prefix"`
}

// WindowReport is the payload published for every completed window.
type WindowReport struct {
	RunID               string    `json:"run_id"`
	Window              int       `json:"window"`
	StartTime           float64   `json:"start_time"`
	StopTime            float64   `json:"stop_time"`
	DemandSelector      float64   `json:"demand_selector"`
	InitialAccumulator  float64   `json:"initial_accumulator"`
	TerminalAccumulator float64   `json:"terminal_accumulator"`
	Load                []float64 `json:"load"`
	Solar               []float64 `json:"solar"`
	Battery             []float64 `json:"battery"`
	Accumulator         []float64 `json:"accumulator"`
}

// ReportPublisher publishes run progress to the broker. It implements the
// window, trace and run recorders.
type ReportPublisher struct {
	pub    publisher
	prefix string
}

// NewReportPublisher publishes under prefix using pub.
func NewReportPublisher(pub publisher, prefix string) *ReportPublisher {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		prefix = defaultTopicPrefix
	}
	return &ReportPublisher{pub: pub, prefix: prefix}
}

func init() {
	_ = coremetrics.RegisterMetricsSink("mqtt", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var cfg ReportConfig
		if err := factory.Decode(conf, &cfg); err != nil {
			return nil, err
		}
		if cfg.ClientID == "" {
			cfg.ClientID = "microgrid-reporter"
		}
		cli, err := Connect(cfg.Config, "mqtt_report")
		if err != nil {
			return nil, err
		}
		return NewReportPublisher(cli, cfg.TopicPrefix), nil
	})
}

// WindowTopic is where the traces of a window are published.
func (p *ReportPublisher) WindowTopic(runID string, window int) string {
	return fmt.Sprintf("%s/runs/%s/windows/%d", p.prefix, runID, window)
}

// StatusTopic receives a status message for every window attempt.
func (p *ReportPublisher) StatusTopic(runID string) string {
	return fmt.Sprintf("%s/runs/%s/status", p.prefix, runID)
}

// SummaryTopic holds the retained run summary.
func (p *ReportPublisher) SummaryTopic(runID string) string {
	return fmt.Sprintf("%s/runs/%s/summary", p.prefix, runID)
}

// RecordWindow publishes the window status.
func (p *ReportPublisher) RecordWindow(r coremetrics.WindowRecord) error {
	payload, err := json.Marshal(struct {
		Window              int     `json:"window"`
		Ticks               int     `json:"ticks"`
		TerminalAccumulator float64 `json:"terminal_accumulator"`
		DurationMS          int64   `json:"duration_ms"`
		Error               string  `json:"error,omitempty"`
	}{r.Window, r.Ticks, r.TerminalAccumulator, r.Duration.Milliseconds(), r.Err})
	if err != nil {
		return err
	}
	return p.pub.Publish(p.StatusTopic(r.RunID), payload, false)
}

// RecordTraces publishes the full traces of a completed window.
func (p *ReportPublisher) RecordTraces(r coremetrics.TraceRecord) error {
	payload, err := json.Marshal(WindowReport{
		RunID:               r.RunID,
		Window:              r.Window.Index,
		StartTime:           r.Window.StartTime,
		StopTime:            r.Window.StopTime,
		DemandSelector:      r.Window.DemandSelector,
		InitialAccumulator:  r.Window.InitialAccumulator,
		TerminalAccumulator: r.Result.TerminalAccumulator,
		Load:                r.Result.Load,
		Solar:               r.Result.Solar,
		Battery:             r.Result.Battery,
		Accumulator:         r.Result.Accumulator,
	})
	if err != nil {
		return err
	}
	return p.pub.Publish(p.WindowTopic(r.RunID, r.Window.Index), payload, false)
}

// RecordRun publishes the retained run summary.
func (p *ReportPublisher) RecordRun(r coremetrics.RunRecord) error {
	payload, err := json.Marshal(struct {
		RunID      string `json:"run_id"`
		Windows    int    `json:"windows"`
		Completed  int    `json:"completed"`
		ErrorKind  string `json:"error_kind,omitempty"`
		DurationMS int64  `json:"duration_ms"`
		Done       bool   `json:"done"`
	}{r.RunID, r.Windows, r.Completed, r.ErrorKind, r.Duration.Milliseconds(), r.ErrorKind == "" && r.Completed == r.Windows})
	if err != nil {
		return err
	}
	return p.pub.Publish(p.SummaryTopic(r.RunID), payload, true)
}

var _ interface {
	coremetrics.MetricsSink
	coremetrics.TraceRecorder
	coremetrics.RunRecorder
} = (*ReportPublisher)(nil)

// Close disconnects the underlying client when it supports it.
func (p *ReportPublisher) Close() error {
	if d, ok := p.pub.(interface{ Disconnect() }); ok {
		d.Disconnect()
	}
	return nil
}
