package metrics

import "github.com/kilianp07/streamhub/core/factory"

// sinkRegistry holds the sink types usable in Config.Sinks. infra/metrics
// registers nop, prometheus and influx from its init.
var sinkRegistry = factory.NewRegistry[MetricsSink]()

// RegisterMetricsSink makes a sink type available to Config.Sinks under
// name. Registering a name twice fails.
func RegisterMetricsSink(name string, f factory.Factory[MetricsSink]) error {
	return sinkRegistry.Register(name, f)
}

// SinkTypes returns the registered sink type names, sorted.
func SinkTypes() []string { return sinkRegistry.Types() }

// NewMetricsSink builds the sink recording hub dispatches. An empty list
// yields a NopSink and several entries are combined in a MultiSink. An
// unknown type is an error.
func NewMetricsSink(cfgs []factory.ModuleConfig) (MetricsSink, error) {
	if len(cfgs) == 0 {
		return NopSink{}, nil
	}
	if len(cfgs) == 1 {
		return sinkRegistry.Create(cfgs[0])
	}
	sinks := make([]MetricsSink, len(cfgs))
	for i, c := range cfgs {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			return nil, err
		}
		sinks[i] = s
	}
	return NewMultiSink(sinks...), nil
}
