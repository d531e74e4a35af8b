package metrics

import "github.com/kilianp07/streamhub/core/factory"

// Config lists the sinks receiving hub activity, e.g.
//
//	metrics:
//	  sinks:
//	    - type: prometheus
//	    - type: influx
//	      conf: {url: http://influx:8086, bucket: streamhub}
//
// No sinks means hub activity is not recorded.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks" yaml:"sinks"`
}
