package mqtt

import (
	"fmt"
	"sync"

	"github.com/battrelay/battrelay/core/events"
	"github.com/battrelay/battrelay/core/model"
)

// MockPublisher is a simple publisher used in tests.
type MockPublisher struct {
	States []model.BatteryState
	Alerts []events.AlertEvent
	Fail   bool
	mu     sync.Mutex
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// PublishState records the state or returns an error if configured to fail.
func (m *MockPublisher) PublishState(st model.BatteryState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return fmt.Errorf("publish failed")
	}
	m.States = append(m.States, st)
	return nil
}

// NotifyAlert records the alert event.
func (m *MockPublisher) NotifyAlert(ev events.AlertEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return fmt.Errorf("notify failed")
	}
	m.Alerts = append(m.Alerts, ev)
	return nil
}

// Published returns a snapshot of the recorded states.
func (m *MockPublisher) Published() []model.BatteryState {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.BatteryState, len(m.States))
	copy(out, m.States)
	return out
}

// Notified returns a snapshot of the recorded alert events.
func (m *MockPublisher) Notified() []events.AlertEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]events.AlertEvent, len(m.Alerts))
	copy(out, m.Alerts)
	return out
}
