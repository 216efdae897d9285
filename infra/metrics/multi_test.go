package metrics

import (
	"testing"

	"github.com/battrelay/battrelay/core/events"
	coremetrics "github.com/battrelay/battrelay/core/metrics"
)

type countSink struct {
	estimates, alerts, malformed int
}

func (s *countSink) RecordEstimate(coremetrics.EstimateEvent) error {
	s.estimates++
	return nil
}
func (s *countSink) RecordAlert(events.AlertEvent) error { s.alerts++; return nil }
func (s *countSink) RecordMalformedSample() error        { s.malformed++; return nil }

func TestMultiSinkFanOut(t *testing.T) {
	a, b := &countSink{}, &countSink{}
	m := NewMultiSink(a, b)
	if err := m.RecordEstimate(coremetrics.EstimateEvent{}); err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if err := m.RecordAlert(events.AlertEvent{}); err != nil {
		t.Fatalf("alert: %v", err)
	}
	if err := m.RecordMalformedSample(); err != nil {
		t.Fatalf("malformed: %v", err)
	}
	for name, s := range map[string]*countSink{"a": a, "b": b} {
		if s.estimates != 1 || s.alerts != 1 || s.malformed != 1 {
			t.Errorf("sink %s missed events: %+v", name, s)
		}
	}
}
