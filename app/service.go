package app

import (
	"context"
	"fmt"

	"github.com/battrelay/battrelay/config"
	"github.com/battrelay/battrelay/core/alert"
	"github.com/battrelay/battrelay/core/estimator"
	"github.com/battrelay/battrelay/core/events"
	"github.com/battrelay/battrelay/core/gate"
	coremetrics "github.com/battrelay/battrelay/core/metrics"
	"github.com/battrelay/battrelay/core/monitor"
	"github.com/battrelay/battrelay/infra/logger"
	"github.com/battrelay/battrelay/infra/metrics"
	"github.com/battrelay/battrelay/infra/mqtt"
	"github.com/battrelay/battrelay/internal/eventbus"
)

// AlertNotifier delivers alert transitions to remote recipients.
type AlertNotifier interface {
	NotifyAlert(ev events.AlertEvent) error
}

// Service owns the pipeline and its collaborators.
type Service struct {
	Monitor *monitor.Monitor

	client      *mqtt.PahoClient
	notifier    AlertNotifier
	bus         *eventbus.TypedBus[events.AlertEvent]
	log         logger.Logger
	promEnabled bool
	promPort    string
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	est, err := estimator.New(cfg.Battery)
	if err != nil {
		return nil, fmt.Errorf("estimator: %w", err)
	}
	g, err := gate.New(cfg.Gate)
	if err != nil {
		return nil, fmt.Errorf("change gate: %w", err)
	}
	machine, err := alert.New(cfg.Alert)
	if err != nil {
		return nil, fmt.Errorf("alert machine: %w", err)
	}
	for _, id := range cfg.Alert.Subscribers {
		if !machine.Subscribe(id) {
			logg.Warnf("subscriber %s rejected: capacity reached", id)
		}
	}

	client, err := mqtt.NewPahoClient(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("mqtt client: %w", err)
	}

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg.Metrics)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.Metrics))
	}
	var sink coremetrics.Sink = coremetrics.NopSink{}
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	bus := eventbus.NewTyped[events.AlertEvent]()
	mon := monitor.New(est, g, machine, client, sink, bus, logger.New("monitor"))

	return &Service{
		Monitor:     mon,
		client:      client,
		notifier:    client,
		bus:         bus,
		log:         logg,
		promEnabled: cfg.Metrics.PrometheusEnabled,
		promPort:    cfg.Metrics.PrometheusPort,
	}, nil
}

// Run starts the pipeline and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	go s.runNotifier(ctx)

	if err := s.Monitor.Run(ctx, s.client.Samples()); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// runNotifier consumes alert transitions from the bus and delivers them.
// Delivery failures are logged and never fed back into the pipeline.
func (s *Service) runNotifier(ctx context.Context) {
	sub := s.bus.Subscribe()
	defer s.bus.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			if err := s.notifier.NotifyAlert(ev); err != nil {
				s.log.Errorf("notify alert %s: %v", ev.ID, err)
			}
		}
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	s.client.Disconnect()
	return nil
}
