package metrics

import (
	"github.com/battrelay/battrelay/core/events"
	coremetrics "github.com/battrelay/battrelay/core/metrics"
)

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordEstimate forwards the event to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordEstimate(ev coremetrics.EstimateEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordEstimate(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordAlert forwards the event to all sinks.
func (m *MultiSink) RecordAlert(ev events.AlertEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordAlert(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordMalformedSample forwards the event to all sinks.
func (m *MultiSink) RecordMalformedSample() error {
	for _, s := range m.Sinks {
		if err := s.RecordMalformedSample(); err != nil {
			return err
		}
	}
	return nil
}
