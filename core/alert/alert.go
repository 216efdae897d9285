// Package alert implements the low-battery alert state machine. A fired
// alert re-arms only after the state of charge recovers past a higher
// watermark, so readings oscillating around the low threshold cannot
// flap notifications.
package alert

import (
	"fmt"
	"sync"
)

// DefaultMaxSubscribers caps the notification fan-out list.
const DefaultMaxSubscribers = 10

// Config holds the hysteresis band and subscriber cap.
type Config struct {
	// LowThreshold fires the alert when SOC drops strictly below it.
	LowThreshold float64 `json:"low_threshold"`
	// RecoveryThreshold re-arms the machine when SOC rises to or above it.
	// Must be strictly greater than LowThreshold.
	RecoveryThreshold float64 `json:"recovery_threshold"`
	MaxSubscribers    int     `json:"max_subscribers"`
	// Subscribers seeds the recipient set at startup. Further changes
	// arrive through Subscribe and Unsubscribe calls.
	Subscribers []string `json:"subscribers"`
}

// SetDefaults applies the stock 20/25 band and the default cap.
func (c *Config) SetDefaults() {
	if c.LowThreshold == 0 {
		c.LowThreshold = 20
	}
	if c.RecoveryThreshold == 0 {
		c.RecoveryThreshold = 25
	}
	if c.MaxSubscribers == 0 {
		c.MaxSubscribers = DefaultMaxSubscribers
	}
}

// Validate rejects a band that cannot provide hysteresis.
func (c Config) Validate() error {
	if c.LowThreshold < 0 {
		return fmt.Errorf("low_threshold must not be negative, got %.2f", c.LowThreshold)
	}
	if c.RecoveryThreshold <= c.LowThreshold {
		return fmt.Errorf("recovery_threshold (%.2f) must be greater than low_threshold (%.2f)",
			c.RecoveryThreshold, c.LowThreshold)
	}
	if c.MaxSubscribers < 0 {
		return fmt.Errorf("max_subscribers must not be negative, got %d", c.MaxSubscribers)
	}
	return nil
}

// Transition reports what a reading did to the machine. At most one of
// the two flags is set; both false means no edge was crossed.
type Transition struct {
	Fired   bool
	Cleared bool
}

// Machine is the two-state hysteresis filter. Readings must arrive in
// order from a single writer; subscriber management may happen
// concurrently and uses its own lock.
type Machine struct {
	cfg Config

	stateMu sync.Mutex
	active  bool

	subMu sync.RWMutex
	subs  map[string]struct{}
}

// New builds a machine with validated thresholds.
func New(cfg Config) (*Machine, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Machine{cfg: cfg, subs: make(map[string]struct{})}, nil
}

// OnReading advances the machine with a new SOC value. The fired edge
// triggers exactly once per excursion below the low threshold; repeated
// low readings while active produce no further events.
func (m *Machine) OnReading(soc float64) Transition {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()

	if !m.active && soc < m.cfg.LowThreshold {
		m.active = true
		return Transition{Fired: true}
	}
	if m.active && soc >= m.cfg.RecoveryThreshold {
		m.active = false
		return Transition{Cleared: true}
	}
	return Transition{}
}

// Active reports whether an alert is currently outstanding.
func (m *Machine) Active() bool {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.active
}

// Subscribe registers a notification recipient. It returns false when the
// subscriber set is at capacity; existing members are never evicted.
// Re-subscribing an existing member succeeds and is a no-op.
func (m *Machine) Subscribe(id string) bool {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	if _, ok := m.subs[id]; ok {
		return true
	}
	if len(m.subs) >= m.cfg.MaxSubscribers {
		return false
	}
	m.subs[id] = struct{}{}
	return true
}

// Unsubscribe removes a recipient. Removing a non-member is a no-op and
// returns false.
func (m *Machine) Unsubscribe(id string) bool {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	if _, ok := m.subs[id]; !ok {
		return false
	}
	delete(m.subs, id)
	return true
}

// Subscribers returns a snapshot of the current recipient list.
func (m *Machine) Subscribers() []string {
	m.subMu.RLock()
	defer m.subMu.RUnlock()
	out := make([]string, 0, len(m.subs))
	for id := range m.subs {
		out = append(out, id)
	}
	return out
}
