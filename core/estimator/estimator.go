package estimator

import (
	"fmt"
	"math"
	"time"

	"github.com/battrelay/battrelay/core/model"
)

// chargeEfficiency models energy lost while charging a lead-acid bank.
const chargeEfficiency = 0.95

// currentDeadband is the band around zero amps treated as rest. Sensor
// noise near zero would otherwise flip the mode on every sample.
const currentDeadband = 0.1

// Config describes the battery the estimator models.
type Config struct {
	CapacityAh float64 `json:"capacity_ah"`
	VMin       float64 `json:"v_min"`
	VMax       float64 `json:"v_max"`
}

// Validate reports configuration mistakes. These are fatal at startup.
func (c Config) Validate() error {
	if c.VMax <= c.VMin {
		return fmt.Errorf("v_max (%.2f) must be greater than v_min (%.2f)", c.VMax, c.VMin)
	}
	if c.CapacityAh <= 0 {
		return fmt.Errorf("capacity_ah must be positive, got %.2f", c.CapacityAh)
	}
	return nil
}

// Estimator derives a BatteryState from a raw voltage/current sample.
// It holds no mutable state and is safe for concurrent use.
type Estimator struct {
	cfg Config
}

// New validates the configuration once so Estimate never has to.
func New(cfg Config) (*Estimator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Estimator{cfg: cfg}, nil
}

// Estimate maps a sample to a derived state. The SOC mapping is a plain
// linear interpolation between v_min and v_max; it ignores the lead-acid
// discharge curve on purpose to stay deterministic and dependency free.
func (e *Estimator) Estimate(voltage, current float64) model.BatteryState {
	st := model.BatteryState{
		Voltage:   voltage,
		Current:   current,
		SOC:       e.soc(voltage),
		Mode:      classify(current),
		Timestamp: time.Now(),
	}
	// Positive current drains the battery, negative current charges it.
	if current < 0 {
		st.TimeToFullHours = (e.cfg.CapacityAh * (100 - st.SOC) / 100) / (math.Abs(current) * chargeEfficiency)
		st.TimeToFullValid = true
	}
	if current > 0 {
		st.TimeToEmptyHours = (e.cfg.CapacityAh * st.SOC / 100) / current
		st.TimeToEmptyValid = true
	}
	return st
}

// EstimateSample is Estimate with the sample's own timestamp preserved.
func (e *Estimator) EstimateSample(s model.RawSample) model.BatteryState {
	st := e.Estimate(s.Voltage, s.Current)
	if !s.Timestamp.IsZero() {
		st.Timestamp = s.Timestamp
	}
	return st
}

func (e *Estimator) soc(voltage float64) float64 {
	soc := 100 * (voltage - e.cfg.VMin) / (e.cfg.VMax - e.cfg.VMin)
	if soc < 0 {
		return 0
	}
	if soc > 100 {
		return 100
	}
	return soc
}

func classify(current float64) model.Mode {
	switch {
	case current < -currentDeadband:
		return model.ModeCharging
	case current > currentDeadband:
		return model.ModeDischarging
	default:
		return model.ModeResting
	}
}
