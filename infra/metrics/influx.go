package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/battrelay/battrelay/core/events"
	coremetrics "github.com/battrelay/battrelay/core/metrics"
	"github.com/battrelay/battrelay/infra/logger"
)

// InfluxSink writes battery estimates and alert transitions to an
// InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg coremetrics.Config) *InfluxSink {
	base := strings.TrimSuffix(cfg.InfluxURL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.InfluxToken,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg coremetrics.Config) coremetrics.Sink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordEstimate writes the derived state as a battery_state point.
func (s *InfluxSink) RecordEstimate(ev coremetrics.EstimateEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("battery_state").
		AddTag("mode", ev.State.Mode.String()).
		AddField("voltage", round3(ev.State.Voltage)).
		AddField("current", round3(ev.State.Current)).
		AddField("soc", round3(ev.State.SOC)).
		AddField("published", ev.Published).
		SetTime(ev.Time)
	if ev.State.TimeToFullValid {
		p.AddField("time_to_full_hours", round3(ev.State.TimeToFullHours))
	}
	if ev.State.TimeToEmptyValid {
		p.AddField("time_to_empty_hours", round3(ev.State.TimeToEmptyHours))
	}
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordAlert writes the transition as a battery_alert point.
func (s *InfluxSink) RecordAlert(ev events.AlertEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("battery_alert").
		AddTag("kind", string(ev.Kind)).
		AddTag("event_id", ev.ID).
		AddField("soc", round3(ev.State.SOC)).
		AddField("subscribers", len(ev.Subscribers)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordMalformedSample writes a battery_malformed_sample point.
func (s *InfluxSink) RecordMalformedSample() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("battery_malformed_sample").
		AddField("count", 1).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

// Close flushes and closes the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
