package orchestrator

import (
	"fmt"

	"github.com/kilianp07/microgrid/core/model"
)

// RunError reports why a run stopped. It unwraps to the underlying cause,
// which itself wraps one of the model error sentinels.
type RunError struct {
	RunID string
	// Completed is the number of windows that produced a result.
	Completed int
	// Window is the index of the failing window, or -1 when the failure is
	// not tied to a window (validation, simulator release).
	Window int
	Err    error
}

func (e *RunError) Error() string {
	if e.Window < 0 {
		return fmt.Sprintf("run %s: %v (completed %d windows)", e.RunID, e.Err, e.Completed)
	}
	return fmt.Sprintf("run %s aborted at window %d after %d completed: %v", e.RunID, e.Window, e.Completed, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// Kind returns the taxonomy label of the cause.
func (e *RunError) Kind() string { return model.ErrorKind(e.Err) }
