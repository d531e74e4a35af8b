package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/streamhub/core/metrics"
)

// PromSink records hub activity in Prometheus metrics.
type PromSink struct {
	dispatches    *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	notifications *prometheus.CounterVec
	streams       *prometheus.GaugeVec
	priorities    *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
	replays       *prometheus.CounterVec
}

// NewPromSink registers hub metrics on the default Prometheus registerer.
// The metrics endpoint should be started separately with StartPromServer.
func NewPromSink() (coremetrics.MetricsSink, error) {
	s, err := NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Metrics
// already registered by a previous sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "streamhub_dispatch_total",
			Help: "Total number of proxy invocations",
		}, []string{"interface", "method", "fallback", "failed"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "streamhub_dispatch_duration_seconds",
			Help:    "Time spent notifying the streams of one invocation",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"interface", "method"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "streamhub_stream_notifications_total",
			Help: "Total number of stream method calls made by proxies",
		}, []string{"interface"}),
		streams: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "streamhub_registered_streams",
			Help: "Number of streams registered per interface",
		}, []string{"interface"}),
		priorities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "streamhub_priority_changes_total",
			Help: "Total number of stream priority changes",
		}, []string{"interface"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "streamhub_fallback_created_total",
			Help: "Total number of fallback streams built",
		}, []string{"interface"}),
		replays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "streamhub_sticky_replayed_calls_total",
			Help: "Total number of sticky calls replayed",
		}, []string{"interface"}),
	}

	var err error
	if s.dispatches, err = register(reg, s.dispatches); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, s.duration); err != nil {
		return nil, err
	}
	if s.notifications, err = register(reg, s.notifications); err != nil {
		return nil, err
	}
	if s.streams, err = register(reg, s.streams); err != nil {
		return nil, err
	}
	if s.priorities, err = register(reg, s.priorities); err != nil {
		return nil, err
	}
	if s.fallbacks, err = register(reg, s.fallbacks); err != nil {
		return nil, err
	}
	if s.replays, err = register(reg, s.replays); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordDispatch counts the invocation and observes its duration.
func (s *PromSink) RecordDispatch(rec coremetrics.DispatchRecord) error {
	s.dispatches.WithLabelValues(rec.Interface, rec.Method, strconv.FormatBool(rec.Fallback), strconv.FormatBool(rec.Failed)).Inc()
	s.duration.WithLabelValues(rec.Interface, rec.Method).Observe(rec.Duration.Seconds())
	s.notifications.WithLabelValues(rec.Interface).Add(float64(rec.Invoked))
	return nil
}

// RecordRegistration updates the registered streams gauge.
func (s *PromSink) RecordRegistration(ev coremetrics.RegistrationEvent) error {
	for _, iface := range ev.Interfaces {
		if ev.Registered {
			s.streams.WithLabelValues(iface).Inc()
		} else {
			s.streams.WithLabelValues(iface).Dec()
		}
	}
	return nil
}

// RecordPriority counts a priority change.
func (s *PromSink) RecordPriority(ev coremetrics.PriorityEvent) error {
	s.priorities.WithLabelValues(ev.Interface).Inc()
	return nil
}

// RecordFallback counts a fallback construction.
func (s *PromSink) RecordFallback(ev coremetrics.FallbackEvent) error {
	s.fallbacks.WithLabelValues(ev.Interface).Inc()
	return nil
}

// RecordStickyReplay counts the replayed calls.
func (s *PromSink) RecordStickyReplay(ev coremetrics.StickyEvent) error {
	s.replays.WithLabelValues(ev.Interface).Add(float64(ev.Calls))
	return nil
}
