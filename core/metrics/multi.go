package metrics

import "errors"

// MultiSink fans records out to multiple sinks. Optional records are only
// forwarded to sinks implementing the matching recorder.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordDispatch forwards the record to all sinks. Every sink is called
// even when an earlier one fails; the errors are joined.
func (m *MultiSink) RecordDispatch(rec DispatchRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordDispatch(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordRegistration forwards registration events.
func (m *MultiSink) RecordRegistration(ev RegistrationEvent) error {
	return forward(m.Sinks, func(r RegistrationRecorder) error { return r.RecordRegistration(ev) })
}

// RecordPriority forwards priority changes.
func (m *MultiSink) RecordPriority(ev PriorityEvent) error {
	return forward(m.Sinks, func(r PriorityRecorder) error { return r.RecordPriority(ev) })
}

// RecordFallback forwards fallback events.
func (m *MultiSink) RecordFallback(ev FallbackEvent) error {
	return forward(m.Sinks, func(r FallbackRecorder) error { return r.RecordFallback(ev) })
}

// RecordStickyReplay forwards sticky replays.
func (m *MultiSink) RecordStickyReplay(ev StickyEvent) error {
	return forward(m.Sinks, func(r StickyRecorder) error { return r.RecordStickyReplay(ev) })
}

func forward[R any](sinks []MetricsSink, record func(R) error) error {
	var errs []error
	for _, s := range sinks {
		if r, ok := s.(R); ok {
			if err := record(r); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
