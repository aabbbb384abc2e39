package core

import (
	"context"
	"time"

	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/core/model"
)

// SourceAdapter is the capability contract over one upstream telemetry
// provider. Every fallible call may return a TransientError which the
// orchestrator retries uniformly regardless of provider.
type SourceAdapter interface {
	// Name returns the source tag ("wialon", "city_point").
	Name() string

	// Authenticate establishes a token or session. A false return with
	// nil error means the credentials were rejected.
	Authenticate(ctx context.Context) (bool, error)

	// ListVehicles fetches the provider's vehicle catalog.
	ListVehicles(ctx context.Context) ([]RawVehicle, error)

	// ListSensors fetches the provider's sensor catalog, or
	// ErrUnsupported when the provider has none.
	ListSensors(ctx context.Context) ([]model.Sensor, error)

	// FetchCurrentStates fetches the latest state of the given
	// vehicles. An empty filter means all vehicles.
	FetchCurrentStates(ctx context.Context, vehicleIDs []int) ([]RawState, error)

	// FetchHistoricalStates fetches states for one vehicle in [from, to).
	FetchHistoricalStates(ctx context.Context, vehicleID int, from, to time.Time) ([]RawState, error)

	// FetchEvents fetches (or long-polls, for session providers) the
	// next batch of notifications.
	FetchEvents(ctx context.Context) (*RawEventPage, error)

	// FetchCounters fetches the current odometer/engine-hour readings.
	FetchCounters(ctx context.Context) ([]RawCounter, error)

	// FetchDailyAggregate fetches provider-side day statistics, or
	// ErrUnsupported.
	FetchDailyAggregate(ctx context.Context, date time.Time) ([]RawDailyRecord, error)

	// SessionKeepAlive registers the given vehicles on the provider's
	// live session. No-op for token-based providers.
	SessionKeepAlive(ctx context.Context, vehicleIDs []int) error

	// ReinitializeSession rebuilds provider session state after a
	// transient failure. No-op for token-based providers.
	ReinitializeSession(ctx context.Context, vehicleIDs []int) error

	// SupportsSessionEvents reports whether the provider's events are
	// tied to a live session (long-poll) rather than interval polling.
	SupportsSessionEvents() bool
}
