// Package events defines the pipeline events emitted on the event bus.
//
// Available event types:
//   - StateEvent: a derived battery state passed the change gate
//   - AlertEvent: a low-battery alert fired or cleared
package events

import (
	"time"

	"github.com/battrelay/battrelay/core/model"
)

// StateEvent is published whenever the change gate accepts a state.
type StateEvent struct {
	State model.BatteryState
	Time  time.Time
}

// AlertEvent is published on every alert machine transition.
type AlertEvent struct {
	ID          string
	Kind        AlertKind
	State       model.BatteryState
	Subscribers []string
	Time        time.Time
}

// AlertKind distinguishes the two edge transitions.
type AlertKind string

const (
	AlertFired   AlertKind = "fired"
	AlertCleared AlertKind = "cleared"
)
