// Package monitor runs the ingestion pipeline: raw samples in, publish
// and alert decisions out. One goroutine owns the whole path so the
// change gate baseline and the hysteresis band always see samples in
// arrival order.
package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/battrelay/battrelay/core/alert"
	"github.com/battrelay/battrelay/core/estimator"
	"github.com/battrelay/battrelay/core/events"
	"github.com/battrelay/battrelay/core/gate"
	"github.com/battrelay/battrelay/core/logger"
	"github.com/battrelay/battrelay/core/metrics"
	"github.com/battrelay/battrelay/core/model"
	"github.com/battrelay/battrelay/core/status"
	"github.com/battrelay/battrelay/internal/eventbus"
)

// ErrMalformedSample marks a sample missing a usable voltage or current.
// Such samples are dropped and counted, never fatal.
var ErrMalformedSample = errors.New("malformed sample: missing voltage or current")

// StatePublisher delivers a gated state to remote consumers. Blocking
// I/O belongs to the implementation, not to the pipeline.
type StatePublisher interface {
	PublishState(st model.BatteryState) error
}

// Monitor wires the estimator, the change gate and the alert machine
// together and keeps the last derived state available for queries.
type Monitor struct {
	est       *estimator.Estimator
	gate      *gate.Gate
	alerts    *alert.Machine
	publisher StatePublisher
	store     *status.Store
	sink      metrics.Sink
	bus       *eventbus.TypedBus[events.AlertEvent]
	log       logger.Logger
}

// New assembles a pipeline. The sink and bus may be nil; publishing and
// logging collaborators must be provided.
func New(est *estimator.Estimator, g *gate.Gate, m *alert.Machine,
	pub StatePublisher, sink metrics.Sink, bus *eventbus.TypedBus[events.AlertEvent],
	log logger.Logger) *Monitor {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Monitor{
		est:       est,
		gate:      g,
		alerts:    m,
		publisher: pub,
		store:     status.NewStore(),
		sink:      sink,
		bus:       bus,
		log:       log,
	}
}

// Run consumes samples until the context is cancelled or the channel is
// closed. It is the single writer for the gate and the alert machine.
func (m *Monitor) Run(ctx context.Context, samples <-chan model.RawSample) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-samples:
			if !ok {
				return nil
			}
			m.process(s)
		}
	}
}

// Last returns a copy of the most recent derived state.
func (m *Monitor) Last() (model.BatteryState, bool) { return m.store.Last() }

// Alerts exposes the alert machine for subscriber management.
func (m *Monitor) Alerts() *alert.Machine { return m.alerts }

func (m *Monitor) process(s model.RawSample) {
	if !s.Valid() {
		m.log.Warnf("dropping sample: %v", ErrMalformedSample)
		if err := m.sink.RecordMalformedSample(); err != nil {
			m.log.Errorf("record malformed sample: %v", err)
		}
		return
	}

	st := m.est.EstimateSample(s)
	m.store.Set(st)

	published := m.gate.ShouldPublish(st)
	if published {
		if err := m.publisher.PublishState(st); err != nil {
			m.log.Errorf("publish state: %v", err)
		}
	} else {
		m.log.Debugw("publish suppressed", map[string]any{
			"voltage": st.Voltage,
			"current": st.Current,
			"soc":     st.SOC,
		})
	}
	if err := m.sink.RecordEstimate(metrics.EstimateEvent{State: st, Published: published, Time: time.Now()}); err != nil {
		m.log.Errorf("record estimate: %v", err)
	}

	tr := m.alerts.OnReading(st.SOC)
	if tr.Fired || tr.Cleared {
		kind := events.AlertFired
		if tr.Cleared {
			kind = events.AlertCleared
		}
		ev := events.AlertEvent{
			ID:          uuid.NewString(),
			Kind:        kind,
			State:       st,
			Subscribers: m.alerts.Subscribers(),
			Time:        time.Now(),
		}
		m.log.Infof("alert %s at soc %.1f%%", ev.Kind, st.SOC)
		if m.bus != nil {
			m.bus.Publish(ev)
		}
		if err := m.sink.RecordAlert(ev); err != nil {
			m.log.Errorf("record alert: %v", err)
		}
	}
}
