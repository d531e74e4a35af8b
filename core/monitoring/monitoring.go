// Package monitoring defines the error tracker receiving failed
// dispatches and panics of the service goroutines.
package monitoring

import (
	"time"

	"github.com/kilianp07/streamhub/core/events"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	// Recover reports a panic of the calling goroutine and panics again.
	// It must be deferred.
	Recover()
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}

func (NopMonitor) Recover() {
	if r := recover(); r != nil {
		panic(r)
	}
}

func (NopMonitor) Flush(time.Duration) {}

// DispatchTags returns the tags reported with a failed dispatch.
func DispatchTags(ev events.Dispatched) map[string]string {
	tags := map[string]string{
		"interface": ev.Interface,
		"method":    ev.Method,
	}
	if ev.ID != "" {
		tags["dispatch_id"] = ev.ID
	}
	if ev.Tag != "" {
		tags["tag"] = ev.Tag
	}
	if ev.Fallback {
		tags["fallback"] = "true"
	}
	return tags
}
