package metrics

import "time"

// DispatchRecord describes one proxy invocation.
type DispatchRecord struct {
	ID         string
	Interface  string
	Method     string
	Tag        string
	Candidates int
	Invoked    int
	Fallback   bool
	Broken     bool
	Sticky     bool
	Failed     bool
	Duration   time.Duration
	Time       time.Time
}

// MetricsSink records dispatches for observability purposes.
type MetricsSink interface {
	RecordDispatch(rec DispatchRecord) error
}

// RegistrationEvent records a stream joining or leaving the registry.
type RegistrationEvent struct {
	Stream     string
	Interfaces []string
	Registered bool
	Time       time.Time
}

// RegistrationRecorder records registrations.
type RegistrationRecorder interface {
	RecordRegistration(ev RegistrationEvent) error
}

// PriorityEvent records a priority change of a stream.
type PriorityEvent struct {
	Stream    string
	Interface string
	Priority  int
	Time      time.Time
}

// PriorityRecorder records priority changes.
type PriorityRecorder interface {
	RecordPriority(ev PriorityEvent) error
}

// FallbackEvent records the construction of a fallback stream.
type FallbackEvent struct {
	Interface      string
	Implementation string
	Time           time.Time
}

// FallbackRecorder records fallback construction.
type FallbackRecorder interface {
	RecordFallback(ev FallbackEvent) error
}

// StickyEvent records a sticky replay.
type StickyEvent struct {
	Stream    string
	Interface string
	Calls     int
	Time      time.Time
}

// StickyRecorder records sticky replays.
type StickyRecorder interface {
	RecordStickyReplay(ev StickyEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordDispatch(DispatchRecord) error         { return nil }
func (NopSink) RecordRegistration(RegistrationEvent) error { return nil }
func (NopSink) RecordPriority(PriorityEvent) error         { return nil }
func (NopSink) RecordFallback(FallbackEvent) error         { return nil }
func (NopSink) RecordStickyReplay(StickyEvent) error       { return nil }
