package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/kilianp07/streamhub/config"
	"github.com/kilianp07/streamhub/core/events"
	coremetrics "github.com/kilianp07/streamhub/core/metrics"
	coremon "github.com/kilianp07/streamhub/core/monitoring"
	"github.com/kilianp07/streamhub/core/stream"
	"github.com/kilianp07/streamhub/infra/logger"
	"github.com/kilianp07/streamhub/infra/metrics"
	"github.com/kilianp07/streamhub/infra/monitoring"
	"github.com/kilianp07/streamhub/infra/mqtt"
	"github.com/kilianp07/streamhub/internal/eventbus"
)

// Service wires a Hub to its event bus, metrics sinks, error monitor and
// the optional MQTT event publisher.
type Service struct {
	Hub *stream.Hub

	bus       *eventbus.Bus[events.Event]
	sink      coremetrics.MetricsSink
	publisher *mqtt.EventPublisher
	monitor   coremon.Monitor
	log       logger.Logger
	promAddr  string

	closeOnce sync.Once
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.Configure(cfg.Logging.Logger()); err != nil {
		return nil, err
	}
	logg := logger.New("service")

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	monitor, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}

	var publisher *mqtt.EventPublisher
	if cfg.MQTT.Broker != "" {
		publisher, err = mqtt.NewEventPublisher(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
	}

	bus := eventbus.New[events.Event](eventbus.WithBuffer(cfg.Bus.Buffer))
	opts := []stream.Option{
		stream.WithLogger(logger.New("stream-hub")),
		stream.WithDebug(cfg.Stream.Debug),
		stream.WithEventBus(bus),
	}
	if ttl := cfg.Stream.DefaultTTL(); ttl > 0 {
		opts = append(opts, stream.WithDefaultCacheTTL(ttl))
	}

	return &Service{
		Hub:       stream.New(opts...),
		bus:       bus,
		sink:      sink,
		publisher: publisher,
		monitor:   monitor,
		log:       logg,
		promAddr:  cfg.Prometheus.Address,
	}, nil
}

// Bus returns the event bus receiving the hub events.
func (s *Service) Bus() *eventbus.Bus[events.Event] { return s.bus }

// Run starts the event consumers and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	collected := metrics.StartEventCollector(ctx, s.bus, s.sink)
	reported := monitoring.StartFailureReporter(ctx, s.bus, s.monitor)

	var forwarded <-chan struct{}
	if s.publisher != nil {
		forwarded = s.publisher.Forward(ctx, s.bus)
	} else {
		done := make(chan struct{})
		close(done)
		forwarded = done
	}

	promErr := make(chan error, 1)
	if s.promAddr != "" {
		go func() {
			defer s.monitor.Recover()
			promErr <- metrics.StartPromServer(ctx, s.promAddr)
		}()
	}
	s.log.Infof("service started")

	var err error
	select {
	case <-ctx.Done():
	case err = <-promErr:
		if err != nil {
			err = fmt.Errorf("prom server: %w", err)
			s.log.Errorf("%v", err)
		}
	}
	cancel()
	<-collected
	<-reported
	<-forwarded
	if dropped := s.bus.Dropped(); dropped > 0 {
		s.log.Warnf("event bus dropped %d events", dropped)
	}
	s.log.Infof("service stopped")
	return err
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var errs []error
	s.closeOnce.Do(func() {
		s.bus.Close()
		if s.publisher != nil {
			s.publisher.Disconnect()
		}
		s.monitor.Flush(2 * time.Second)
		errs = append(errs, logger.CloseFile())
		if c, ok := s.sink.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	})
	return errors.Join(errs...)
}
