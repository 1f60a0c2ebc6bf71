package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/microgrid/core/factory"
	coremetrics "github.com/kilianp07/microgrid/core/metrics"
	"github.com/kilianp07/microgrid/core/model"
)

type memPublisher struct {
	msgs []published
	err  error
}

func (m *memPublisher) Publish(topic string, payload []byte, retained bool) error {
	m.msgs = append(m.msgs, published{topic: topic, retained: retained, payload: payload})
	return m.err
}

func TestReportPublisherTopics(t *testing.T) {
	p := NewReportPublisher(&memPublisher{}, "site/")
	assert.Equal(t, "site/runs/r1/windows/3", p.WindowTopic("r1", 3))
	assert.Equal(t, "site/runs/r1/status", p.StatusTopic("r1"))
	assert.Equal(t, "microgrid/runs/r1/summary", NewReportPublisher(nil, "").SummaryTopic("r1"))
}

func TestReportPublisherTraces(t *testing.T) {
	mem := &memPublisher{}
	p := NewReportPublisher(mem, "")
	err := p.RecordTraces(coremetrics.TraceRecord{
		RunID:  "r1",
		Window: model.SimulationWindow{Index: 1, StopTime: 14400, DemandSelector: 14400, InitialAccumulator: 5},
		Result: model.WindowResult{
			Index: 1, Load: []float64{1}, Solar: []float64{2}, Battery: []float64{3}, Accumulator: []float64{6},
			TerminalAccumulator: 6,
		},
	})
	require.NoError(t, err)
	require.Len(t, mem.msgs, 1)
	assert.Equal(t, "microgrid/runs/r1/windows/1", mem.msgs[0].topic)

	var rep WindowReport
	require.NoError(t, json.Unmarshal(mem.msgs[0].payload, &rep))
	assert.Equal(t, 5.0, rep.InitialAccumulator)
	assert.Equal(t, 6.0, rep.TerminalAccumulator)
	assert.Equal(t, 14400.0, rep.DemandSelector)
	assert.Equal(t, []float64{2}, rep.Solar)
}

func TestReportPublisherStatusAndSummary(t *testing.T) {
	mem := &memPublisher{}
	p := NewReportPublisher(mem, "")
	require.NoError(t, p.RecordWindow(coremetrics.WindowRecord{RunID: "r1", Window: 0, Err: "boom", Duration: time.Second}))
	require.NoError(t, p.RecordRun(coremetrics.RunRecord{RunID: "r1", Windows: 6, Completed: 6}))
	require.Len(t, mem.msgs, 2)

	assert.False(t, mem.msgs[0].retained)
	assert.JSONEq(t, `{"window":0,"ticks":0,"terminal_accumulator":0,"duration_ms":1000,"error":"boom"}`, string(mem.msgs[0].payload))
	assert.True(t, mem.msgs[1].retained)
	assert.JSONEq(t, `{"run_id":"r1","windows":6,"completed":6,"duration_ms":0,"done":true}`, string(mem.msgs[1].payload))
}

func TestReportPublisherPropagatesErrors(t *testing.T) {
	p := NewReportPublisher(&memPublisher{err: errors.New("offline")}, "")
	assert.Error(t, p.RecordRun(coremetrics.RunRecord{RunID: "r1"}))
}

func TestReportSinkFromRegistry(t *testing.T) {
	mc := useMock(t)
	sink, err := coremetrics.NewMetricsSink(nil)
	require.NoError(t, err)
	assert.IsType(t, coremetrics.NopSink{}, sink)

	sink, err = coremetrics.NewMetricsSink([]factory.ModuleConfig{{
		Type: "mqtt",
		Conf: map[string]any{"broker": "tcp://localhost:1883", "topic_prefix": "lab"},
	}})
	require.NoError(t, err)
	require.NoError(t, sink.RecordWindow(coremetrics.WindowRecord{RunID: "r9"}))
	require.Len(t, mc.published, 1)
	assert.Equal(t, "lab/runs/r9/status", mc.published[0].topic)
}
