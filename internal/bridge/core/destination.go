package core

import (
	"context"

	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/core/model"
)

// Destination is the downstream telemetry sink. Implementations report
// failure through the error return only; the caller decides whether to
// buffer (telemetry) or drop with a log line (alarms).
type Destination interface {
	// SendTelemetry pushes one or more samples for the named device.
	// Batches must be delivered in the given order.
	SendTelemetry(ctx context.Context, deviceKey string, states ...model.VehicleState) error

	// SendAlarm pushes one alarm for the named device.
	SendAlarm(ctx context.Context, deviceKey string, alarm model.Alarm) error

	// SendDayStat pushes one daily aggregate for the named device,
	// timestamped at the day boundary.
	SendDayStat(ctx context.Context, deviceKey string, dayStartTS int64, stat model.DayStat) error
}
