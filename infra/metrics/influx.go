package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	corelogger "github.com/kilianp07/microgrid/core/logger"
	coremetrics "github.com/kilianp07/microgrid/core/metrics"
	"github.com/kilianp07/microgrid/core/model"
	"github.com/kilianp07/microgrid/infra/logger"
)

// InfluxConfig locates the InfluxDB bucket.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes window traces and outcomes to an InfluxDB instance using
// the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      corelogger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the HTTP client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

// RecordWindow writes the window outcome.
func (s *InfluxSink) RecordWindow(r coremetrics.WindowRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("window_result").
		AddTag("run_id", r.RunID).
		AddTag("window", strconv.Itoa(r.Window)).
		AddTag("failed", strconv.FormatBool(r.Failed())).
		AddField("ticks", r.Ticks).
		AddField("terminal_accumulator", round3(r.TerminalAccumulator)).
		AddField("duration_ms", round3(r.Duration.Seconds()*1000))
	if r.Err != "" {
		p = p.AddField("error", r.Err)
	}
	return s.writeAPI.WritePoint(ctx, p.SetTime(r.Time))
}

// RecordTraces writes one point per tick. Ticks are spread evenly over the
// window bounds, read as seconds from the window start.
func (s *InfluxSink) RecordTraces(r coremetrics.TraceRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	n := r.Result.Ticks()
	if n == 0 {
		return nil
	}
	step := 0.0
	if n > 1 {
		step = (r.Window.StopTime - r.Window.StartTime) / float64(n-1)
	}
	window := strconv.Itoa(r.Window.Index)
	points := make([]*write.Point, 0, n)
	for i := 0; i < n; i++ {
		offset := time.Duration((r.Window.StartTime + float64(i)*step) * float64(time.Second))
		points = append(points, write.NewPointWithMeasurement("window_trace").
			AddTag("run_id", r.RunID).
			AddTag("window", window).
			AddField(model.TraceLoad.String(), r.Result.Load[i]).
			AddField(model.TraceSolar.String(), r.Result.Solar[i]).
			AddField(model.TraceBattery.String(), r.Result.Battery[i]).
			AddField(model.TraceAccumulator.String(), r.Result.Accumulator[i]).
			AddField("tick", i).
			SetTime(r.Started.Add(offset)))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordRun writes the run summary.
func (s *InfluxSink) RecordRun(r coremetrics.RunRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	kind := r.ErrorKind
	if kind == "" {
		kind = "ok"
	}
	p := write.NewPointWithMeasurement("run_summary").
		AddTag("run_id", r.RunID).
		AddTag("kind", kind).
		AddField("windows", r.Windows).
		AddField("completed", r.Completed).
		AddField("duration_ms", round3(r.Duration.Seconds()*1000)).
		SetTime(r.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordDispatch writes a solved dispatch problem.
func (s *InfluxSink) RecordDispatch(r coremetrics.DispatchRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("dispatch_decision").
		AddTag("feasible", strconv.FormatBool(r.Solution.Feasible)).
		AddField("demand", round3(r.Problem.Demand)).
		AddField("solar", round3(r.Problem.SolarAvailable)).
		AddField("grid_current", round3(r.Solution.GridCurrent)).
		AddField("battery_current", round3(r.Solution.BatteryCurrent)).
		AddField("battery_enabled", r.Solution.BatteryEnabled).
		AddField("total_cost", round3(r.Solution.TotalCost)).
		SetTime(r.Time)
	if r.Err != nil {
		p.AddTag("reason", model.ErrorKind(r.Err))
	}
	return s.writeAPI.WritePoint(ctx, p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
