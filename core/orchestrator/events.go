package orchestrator

import (
	"time"

	"github.com/kilianp07/microgrid/core/model"
)

// EventType identifies a progress event.
type EventType string

const (
	EventWindowStarted   EventType = "window_started"
	EventWindowCompleted EventType = "window_completed"
	EventWindowFailed    EventType = "window_failed"
	EventRunFinished     EventType = "run_finished"
)

// WindowEvent is published on the progress bus while a run executes.
type WindowEvent struct {
	Type   EventType
	RunID  string
	Window int
	// Result is set for EventWindowCompleted.
	Result *model.WindowResult
	Err    error
	Time   time.Time
}
