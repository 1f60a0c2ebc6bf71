// Package runlog persists finished simulation runs so they can be reported
// on after the process that produced them has exited.
package runlog

import (
	"context"
	"errors"
	"time"

	"github.com/kilianp07/microgrid/core/model"
)

// ErrNotFound is returned by Get for an unknown run ID.
var ErrNotFound = errors.New("run not found")

// Run status values used by RunQuery.
const (
	StatusDone   = "done"
	StatusFailed = "failed"
)

// RunRecord is the stored form of a SimulationRun.
type RunRecord struct {
	RunID      string                   `json:"run_id"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
	Windows    []model.SimulationWindow `json:"windows"`
	Results    []model.WindowResult     `json:"results"`
	Completed  int                      `json:"completed"`
	ErrorKind  string                   `json:"error_kind,omitempty"`
	Error      string                   `json:"error,omitempty"`
}

// NewRecord captures run as it stood when it finished.
func NewRecord(run *model.SimulationRun, started, finished time.Time) RunRecord {
	rec := RunRecord{
		RunID:      run.ID,
		StartedAt:  started,
		FinishedAt: finished,
		Windows:    run.Windows,
		Results:    run.Results,
		Completed:  run.Completed(),
	}
	if run.Err != nil {
		rec.ErrorKind = model.ErrorKind(run.Err)
		rec.Error = run.Err.Error()
	}
	return rec
}

// Status is StatusDone when every window completed, StatusFailed otherwise.
func (r RunRecord) Status() string {
	if r.Error == "" && r.Completed == len(r.Windows) {
		return StatusDone
	}
	return StatusFailed
}

// Run rebuilds the SimulationRun. The error is not restored.
func (r RunRecord) Run() *model.SimulationRun {
	return &model.SimulationRun{ID: r.RunID, Windows: r.Windows, Results: r.Results}
}

// RunQuery filters stored runs. Zero fields match everything.
type RunQuery struct {
	Start  time.Time
	End    time.Time
	Status string
	Limit  int
}

func (q RunQuery) match(r RunRecord) bool {
	if !q.Start.IsZero() && r.StartedAt.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.StartedAt.After(q.End) {
		return false
	}
	if q.Status != "" && r.Status() != q.Status {
		return false
	}
	return true
}

// RunStore persists RunRecords and supports querying.
type RunStore interface {
	Append(ctx context.Context, rec RunRecord) error
	Get(ctx context.Context, runID string) (RunRecord, error)
	Query(ctx context.Context, q RunQuery) ([]RunRecord, error)
	Close() error
}
