package metrics

import (
	"context"

	"github.com/kilianp07/microgrid/core/orchestrator"
	"github.com/kilianp07/microgrid/internal/eventbus"
)

// EventRecorder counts orchestrator progress events.
type EventRecorder interface {
	RecordEvent(eventType string) error
}

// StartEventCollector subscribes to the progress bus and forwards every
// event type to rec. It stops when ctx is canceled or the bus is closed.
// The returned channel is closed once the collector has exited.
func StartEventCollector(ctx context.Context, bus *eventbus.Bus[orchestrator.WindowEvent], rec EventRecorder) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || rec == nil {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				_ = rec.RecordEvent(string(ev.Type))
			}
		}
	}()
	return done
}
