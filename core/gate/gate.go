// Package gate suppresses outbound state messages that do not differ
// meaningfully from the last published one, keeping message volume low
// on metered transports.
package gate

import (
	"fmt"
	"math"

	"github.com/battrelay/battrelay/core/model"
)

// Thresholds are the minimum per-dimension deltas that justify a publish.
type Thresholds struct {
	Voltage float64 `json:"voltage"`
	Current float64 `json:"current"`
	SOC     float64 `json:"soc"`
}

// SetDefaults applies the stock sensitivities.
func (t *Thresholds) SetDefaults() {
	if t.Voltage == 0 {
		t.Voltage = 0.1
	}
	if t.Current == 0 {
		t.Current = 0.2
	}
	if t.SOC == 0 {
		t.SOC = 0.5
	}
}

// Validate rejects negative thresholds. A zero threshold is allowed and
// means every change in that dimension publishes.
func (t Thresholds) Validate() error {
	if t.Voltage < 0 || t.Current < 0 || t.SOC < 0 {
		return fmt.Errorf("gate thresholds must not be negative (voltage=%.2f current=%.2f soc=%.2f)",
			t.Voltage, t.Current, t.SOC)
	}
	return nil
}

// Gate tracks the last published readings and decides whether a new state
// is worth publishing. It is a single-writer structure: the ingestion
// pipeline is the only caller of ShouldPublish.
type Gate struct {
	thresholds Thresholds

	baselined   bool
	lastVoltage float64
	lastCurrent float64
	lastSOC     float64
}

// New builds a gate with validated thresholds.
func New(t Thresholds) (*Gate, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Gate{thresholds: t}, nil
}

// ShouldPublish returns true when any single dimension moved at least its
// threshold since the last accepted state. The very first call always
// returns true to establish a baseline; a restart therefore re-publishes
// immediately. The baseline is advanced only on a true result.
func (g *Gate) ShouldPublish(st model.BatteryState) bool {
	publish := !g.baselined ||
		math.Abs(st.Voltage-g.lastVoltage) >= g.thresholds.Voltage ||
		math.Abs(st.Current-g.lastCurrent) >= g.thresholds.Current ||
		math.Abs(st.SOC-g.lastSOC) >= g.thresholds.SOC
	if publish {
		g.baselined = true
		g.lastVoltage = st.Voltage
		g.lastCurrent = st.Current
		g.lastSOC = st.SOC
	}
	return publish
}
