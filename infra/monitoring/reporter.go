// Package monitoring reports hub failures to Sentry.
package monitoring

import (
	"context"

	"github.com/kilianp07/streamhub/core/events"
	coremon "github.com/kilianp07/streamhub/core/monitoring"
	"github.com/kilianp07/streamhub/internal/eventbus"
)

// StartFailureReporter captures every failed dispatch published on bus.
// The returned channel is closed once the reporter has stopped.
func StartFailureReporter(ctx context.Context, bus *eventbus.Bus[events.Event], m coremon.Monitor) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || m == nil {
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
				if d, ok := ev.(events.Dispatched); ok && d.Err != nil {
					m.CaptureException(d.Err, coremon.DispatchTags(d))
				}
			}
		}
	}()
	return done
}
