package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/battrelay/battrelay/core/events"
	coremetrics "github.com/battrelay/battrelay/core/metrics"
)

// PromSink records pipeline events in Prometheus metrics. The gauges
// track every estimate, including ones the change gate suppressed, so
// local observability is never limited by the outbound message budget.
type PromSink struct {
	voltage   prometheus.Gauge
	current   prometheus.Gauge
	soc       prometheus.Gauge
	samples   *prometheus.CounterVec
	malformed prometheus.Counter
	alerts    *prometheus.CounterVec
	active    prometheus.Gauge
}

// NewPromSink registers battery metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (*PromSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		voltage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "battery_voltage_volts",
			Help: "Last estimated battery voltage",
		}),
		current: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "battery_current_amps",
			Help: "Last estimated battery current",
		}),
		soc: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "battery_soc_percent",
			Help: "Last estimated state of charge",
		}),
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "battery_samples_total",
			Help: "Processed samples by publish decision",
		}, []string{"published"}),
		malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "battery_malformed_samples_total",
			Help: "Samples dropped for missing voltage or current",
		}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "battery_alert_transitions_total",
			Help: "Alert state machine transitions",
		}, []string{"kind"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "battery_alert_active",
			Help: "1 while a low-battery alert is outstanding",
		}),
	}

	for _, c := range []prometheus.Collector{
		s.voltage, s.current, s.soc, s.samples, s.malformed, s.alerts, s.active,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}
	return s, nil
}

// RecordEstimate updates the gauges and the sample counter.
func (s *PromSink) RecordEstimate(ev coremetrics.EstimateEvent) error {
	s.voltage.Set(ev.State.Voltage)
	s.current.Set(ev.State.Current)
	s.soc.Set(ev.State.SOC)
	if ev.Published {
		s.samples.WithLabelValues("true").Inc()
	} else {
		s.samples.WithLabelValues("false").Inc()
	}
	return nil
}

// RecordAlert counts the transition and tracks the active flag.
func (s *PromSink) RecordAlert(ev events.AlertEvent) error {
	s.alerts.WithLabelValues(string(ev.Kind)).Inc()
	if ev.Kind == events.AlertFired {
		s.active.Set(1)
	} else {
		s.active.Set(0)
	}
	return nil
}

// RecordMalformedSample counts a dropped sample.
func (s *PromSink) RecordMalformedSample() error {
	s.malformed.Inc()
	return nil
}
