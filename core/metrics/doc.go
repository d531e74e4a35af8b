// Package metrics defines the sinks recording hub activity. Every sink
// records dispatches; sinks may additionally implement the optional
// recorder interfaces for registrations, priority changes, fallback
// construction and sticky replays. Several sinks can be combined with
// NewMultiSink, and the factory helpers return a MultiSink automatically
// when multiple sinks are configured.
package metrics
