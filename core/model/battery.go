package model

import (
	"math"
	"time"
)

// Mode classifies the battery activity derived from the current sign.
type Mode int

const (
	ModeResting Mode = iota
	ModeCharging
	ModeDischarging
)

// String returns the human readable mode name.
func (m Mode) String() string {
	switch m {
	case ModeCharging:
		return "charging"
	case ModeDischarging:
		return "discharging"
	default:
		return "resting"
	}
}

// RawSample is a single voltage/current reading from the telemetry source.
type RawSample struct {
	Voltage   float64
	Current   float64
	Timestamp time.Time
}

// Valid reports whether both measurements are usable numbers. Samples with
// a missing field arrive as NaN from the wire decoder.
func (s RawSample) Valid() bool {
	return !math.IsNaN(s.Voltage) && !math.IsInf(s.Voltage, 0) &&
		!math.IsNaN(s.Current) && !math.IsInf(s.Current, 0)
}

// BatteryState is the derived battery state for one sample. Instances are
// value types and never shared mutably between components.
type BatteryState struct {
	Voltage float64
	Current float64
	SOC     float64 // state of charge in percent, clamped to [0,100]
	Mode    Mode

	// TimeToFullHours is meaningful only while charging; TimeToEmptyHours
	// only while discharging. The Valid flags carry the distinction.
	TimeToFullHours  float64
	TimeToFullValid  bool
	TimeToEmptyHours float64
	TimeToEmptyValid bool

	Timestamp time.Time
}

// NotApplicable is the wire sentinel for the two time estimates when the
// battery is not in the matching mode. Existing consumers rely on it.
const NotApplicable = -1

// StatusMessage is the flat wire form published to consumers.
type StatusMessage struct {
	Voltage     float64 `json:"voltage"`
	Current     float64 `json:"current"`
	SOC         float64 `json:"soc"`
	TimeToFull  float64 `json:"time_to_full"`
	TimeToEmpty float64 `json:"time_to_empty"`
}

// Wire converts the state to its published form, substituting the
// NotApplicable sentinel for undefined time estimates.
func (s BatteryState) Wire() StatusMessage {
	msg := StatusMessage{
		Voltage:     s.Voltage,
		Current:     s.Current,
		SOC:         s.SOC,
		TimeToFull:  NotApplicable,
		TimeToEmpty: NotApplicable,
	}
	if s.TimeToFullValid {
		msg.TimeToFull = s.TimeToFullHours
	}
	if s.TimeToEmptyValid {
		msg.TimeToEmpty = s.TimeToEmptyHours
	}
	return msg
}
