package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/streamhub/core/metrics"
	"github.com/kilianp07/streamhub/infra/logger"
)

// InfluxConfig locates the InfluxDB bucket receiving hub measurements.
type InfluxConfig struct {
	URL     string        `json:"url"`
	Token   string        `json:"token"`
	Org     string        `json:"org"`
	Bucket  string        `json:"bucket"`
	Timeout time.Duration `json:"timeout"`
}

// InfluxSink writes hub activity to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	timeout  time.Duration
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		timeout:  cfg.Timeout,
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), sink.timeout)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordDispatch writes one stream_dispatch point per invocation.
func (s *InfluxSink) RecordDispatch(rec coremetrics.DispatchRecord) error {
	p := write.NewPointWithMeasurement("stream_dispatch").
		AddTag("interface", rec.Interface).
		AddTag("method", rec.Method).
		AddTag("fallback", strconv.FormatBool(rec.Fallback)).
		AddTag("failed", strconv.FormatBool(rec.Failed))
	if rec.Tag != "" {
		p = p.AddTag("tag", rec.Tag)
	}
	if rec.ID != "" {
		p = p.AddField("dispatch_id", rec.ID)
	}
	p = p.AddField("candidates", rec.Candidates).
		AddField("invoked", rec.Invoked).
		AddField("broken", rec.Broken).
		AddField("sticky", rec.Sticky).
		AddField("duration_us", rec.Duration.Microseconds()).
		SetTime(rec.Time)
	return s.write(p)
}

// RecordRegistration writes a stream_registration point per interface.
func (s *InfluxSink) RecordRegistration(ev coremetrics.RegistrationEvent) error {
	delta := 1
	if !ev.Registered {
		delta = -1
	}
	for _, iface := range ev.Interfaces {
		p := write.NewPointWithMeasurement("stream_registration").
			AddTag("interface", iface).
			AddField("stream", ev.Stream).
			AddField("delta", delta).
			SetTime(ev.Time)
		if err := s.write(p); err != nil {
			return err
		}
	}
	return nil
}

// RecordPriority writes a stream_priority point.
func (s *InfluxSink) RecordPriority(ev coremetrics.PriorityEvent) error {
	p := write.NewPointWithMeasurement("stream_priority").
		AddTag("interface", ev.Interface).
		AddField("stream", ev.Stream).
		AddField("priority", ev.Priority).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordFallback writes a stream_fallback point.
func (s *InfluxSink) RecordFallback(ev coremetrics.FallbackEvent) error {
	p := write.NewPointWithMeasurement("stream_fallback").
		AddTag("interface", ev.Interface).
		AddField("implementation", ev.Implementation).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordStickyReplay writes a stream_sticky_replay point.
func (s *InfluxSink) RecordStickyReplay(ev coremetrics.StickyEvent) error {
	p := write.NewPointWithMeasurement("stream_sticky_replay").
		AddTag("interface", ev.Interface).
		AddField("stream", ev.Stream).
		AddField("calls", ev.Calls).
		SetTime(ev.Time)
	return s.write(p)
}
