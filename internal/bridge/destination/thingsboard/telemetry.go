// Package thingsboard implements the downstream sink: telemetry and
// daily reports go out over the MQTT gateway API, alarms over the REST
// API. Device keys are the canonical vehicle names, which the platform
// uses to route gateway payloads to devices.
package thingsboard

import (
	"context"
	"encoding/json"

	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/core"
	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/core/model"
	"github.com/TerraNova4697/wialon-citypoint/pkg/log"
	"github.com/TerraNova4697/wialon-citypoint/pkg/mqtt"
)

// gatewayTelemetryTopic is the ThingsBoard gateway API telemetry topic.
const gatewayTelemetryTopic = "v1/gateway/telemetry"

// sample is one entry of a gateway telemetry payload.
type sample struct {
	TS     int64          `json:"ts"`
	Values map[string]any `json:"values"`
}

// Destination sends telemetry over MQTT and alarms over REST,
// implementing the core sink port.
type Destination struct {
	mqtt   mqtt.Client
	alarms *AlarmClient // nil when alarm delivery is not configured
	log    log.Logger
}

var _ core.Destination = (*Destination)(nil)

// New creates a destination. alarms may be nil, in which case every
// SendAlarm fails and the caller drops the alarm with a log line.
func New(client mqtt.Client, alarms *AlarmClient, logger log.Logger) *Destination {
	return &Destination{
		mqtt:   client,
		alarms: alarms,
		log:    logger.WithName("thingsboard"),
	}
}

// SendTelemetry publishes the samples as one gateway payload keyed by
// device name. Timestamps go out in unix milliseconds; optional values
// are included only when present and non-zero.
func (d *Destination) SendTelemetry(ctx context.Context, deviceKey string, states ...model.VehicleState) error {
	if len(states) == 0 {
		return nil
	}

	samples := make([]sample, 0, len(states))
	for _, s := range states {
		samples = append(samples, stateSample(s))
	}
	return d.publish(ctx, map[string][]sample{deviceKey: samples})
}

// SendDayStat publishes one daily aggregate, timestamped at the day
// boundary.
func (d *Destination) SendDayStat(ctx context.Context, deviceKey string, dayStartTS int64, stat model.DayStat) error {
	payload := map[string][]sample{deviceKey: {{
		TS: dayStartTS * 1000,
		Values: map[string]any{
			"mileage":       stat.Mileage,
			"working_hours": stat.EngineSeconds,
		},
	}}}
	return d.publish(ctx, payload)
}

// SendAlarm posts one alarm through the REST client.
func (d *Destination) SendAlarm(ctx context.Context, deviceKey string, alarm model.Alarm) error {
	if d.alarms == nil {
		return core.ErrNoDestination
	}
	return d.alarms.PostAlarm(ctx, deviceKey, alarm)
}

func (d *Destination) publish(ctx context.Context, payload map[string][]sample) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return d.mqtt.Publish(ctx, gatewayTelemetryTopic, 1, false, body)
}

// stateSample converts one canonical state into the wire shape.
func stateSample(s model.VehicleState) sample {
	values := map[string]any{
		"latitude":  s.Lat,
		"longitude": s.Lon,
		"last_conn": s.LastConn * 1000,
	}
	if s.Velocity != 0 {
		values["velocity"] = s.Velocity
	}
	if s.FuelLevel != nil {
		values["fuel_level"] = *s.FuelLevel
	}
	if s.Light != nil && *s.Light != 0 {
		values["light"] = *s.Light
	}
	if s.Ignition != nil && *s.Ignition != 0 {
		values["ignition"] = *s.Ignition
	}
	return sample{TS: s.Timestamp * 1000, Values: values}
}
