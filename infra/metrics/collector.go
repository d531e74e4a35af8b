package metrics

import (
	"context"

	"github.com/kilianp07/streamhub/core/events"
	coremetrics "github.com/kilianp07/streamhub/core/metrics"
	"github.com/kilianp07/streamhub/infra/logger"
	"github.com/kilianp07/streamhub/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for
// hub events. It stops when the context is canceled or the bus is closed;
// the returned channel is closed once the collector has stopped.
func StartEventCollector(ctx context.Context, bus *eventbus.Bus[events.Event], sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	log := logger.New("event-collector")
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
				if err := record(sink, ev); err != nil {
					log.Warnf("record %s event: %v", ev.Kind(), err)
				}
			}
		}
	}()
	return done
}

func record(sink coremetrics.MetricsSink, ev events.Event) error {
	switch e := ev.(type) {
	case events.Dispatched:
		return sink.RecordDispatch(coremetrics.DispatchRecord{
			ID:         e.ID,
			Interface:  e.Interface,
			Method:     e.Method,
			Tag:        e.Tag,
			Candidates: e.Candidates,
			Invoked:    e.Invoked,
			Fallback:   e.Fallback,
			Broken:     e.Broken,
			Sticky:     e.Sticky,
			Failed:     e.Err != nil,
			Duration:   e.Duration,
			Time:       e.Time,
		})
	case events.StreamRegistered:
		if r, ok := sink.(coremetrics.RegistrationRecorder); ok {
			return r.RecordRegistration(coremetrics.RegistrationEvent{
				Stream: e.Stream, Interfaces: e.Interfaces, Registered: true, Time: e.Time,
			})
		}
	case events.StreamUnregistered:
		if r, ok := sink.(coremetrics.RegistrationRecorder); ok {
			return r.RecordRegistration(coremetrics.RegistrationEvent{
				Stream: e.Stream, Interfaces: e.Interfaces, Time: e.Time,
			})
		}
	case events.PriorityChanged:
		if r, ok := sink.(coremetrics.PriorityRecorder); ok {
			return r.RecordPriority(coremetrics.PriorityEvent{
				Stream: e.Stream, Interface: e.Interface, Priority: e.Priority, Time: e.Time,
			})
		}
	case events.DefaultCreated:
		if r, ok := sink.(coremetrics.FallbackRecorder); ok {
			return r.RecordFallback(coremetrics.FallbackEvent{
				Interface: e.Interface, Implementation: e.Implementation, Time: e.Time,
			})
		}
	case events.StickyReplayed:
		if r, ok := sink.(coremetrics.StickyRecorder); ok {
			return r.RecordStickyReplay(coremetrics.StickyEvent{
				Stream: e.Stream, Interface: e.Interface, Calls: e.Calls, Time: e.Time,
			})
		}
	}
	return nil
}
