package metrics

import (
	"time"

	"github.com/battrelay/battrelay/core/events"
	"github.com/battrelay/battrelay/core/model"
)

// EstimateEvent is recorded for every sample that made it through
// validation, whether or not the result was published.
type EstimateEvent struct {
	State     model.BatteryState
	Published bool
	Time      time.Time
}

// Sink records pipeline events for observability purposes.
type Sink interface {
	RecordEstimate(ev EstimateEvent) error
	RecordAlert(ev events.AlertEvent) error
	RecordMalformedSample() error
}

// Config defines settings for metrics sinks.
type Config struct {
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusPort    string `json:"prometheus_port"`
	InfluxEnabled     bool   `json:"influx_enabled"`
	InfluxURL         string `json:"influx_url"`
	InfluxToken       string `json:"influx_token"`
	InfluxOrg         string `json:"influx_org"`
	InfluxBucket      string `json:"influx_bucket"`
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) RecordEstimate(EstimateEvent) error  { return nil }
func (NopSink) RecordAlert(events.AlertEvent) error { return nil }
func (NopSink) RecordMalformedSample() error        { return nil }
