package core

import (
	"context"

	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/core/model"
)

// Repository is the persistence port of the core. Every operation is a
// self-contained transaction; the implementation must be safe for
// concurrent use by all synchronization tasks.
type Repository interface {
	// UpsertVehicles inserts vehicles that do not exist yet. Existing
	// ids are left untouched (insert-if-absent).
	UpsertVehicles(ctx context.Context, vehicles []model.Vehicle) error

	// UpdateVehicleName overwrites the canonical name of a vehicle.
	UpdateVehicleName(ctx context.Context, id int, name string) error

	// Vehicles returns the whole vehicle catalog.
	Vehicles(ctx context.Context) ([]model.Vehicle, error)

	// ActiveVehicleIDs returns the ids of non-hidden vehicles,
	// optionally restricted to one source ("" means all).
	ActiveVehicleIDs(ctx context.Context, source string) ([]int, error)

	// UpsertSensors inserts catalog entries that do not exist yet.
	UpsertSensors(ctx context.Context, sensors []model.Sensor) error

	// SensorIDsByDestination returns the sensor ids with the given
	// destination code.
	SensorIDsByDestination(ctx context.Context, destination int) ([]int, error)

	// BufferState persists one sample that could not be delivered.
	BufferState(ctx context.Context, state model.VehicleState) error

	// BufferedVehicleIDs returns the distinct vehicle ids with
	// buffered samples.
	BufferedVehicleIDs(ctx context.Context) ([]int, error)

	// BufferedStates returns up to limit buffered samples for one
	// vehicle, ordered by ascending timestamp.
	BufferedStates(ctx context.Context, vehicleID, limit int) ([]model.VehicleState, error)

	// DeleteStates removes the given buffered samples by id.
	DeleteStates(ctx context.Context, ids []int64) error

	// SaveCounter persists a counter snapshot. It is a no-op when the
	// vehicle is unknown or both values are nil.
	SaveCounter(ctx context.Context, counter model.Counter) error

	// DayStats aggregates counter snapshots in [startTS, endTS) into
	// per-vehicle max-min deltas. Vehicles without snapshots in the
	// window are absent from the result.
	DayStats(ctx context.Context, startTS, endTS int64) ([]model.DayStat, error)

	// OpenRunTime appends a new execution span and returns its id.
	OpenRunTime(ctx context.Context, startTS int64) (int64, error)

	// CloseRunTime sets the end timestamp of an execution span.
	CloseRunTime(ctx context.Context, id, endTS int64) error

	// LastRunTime returns the most recent execution span, or
	// ErrNotFound when the log is empty.
	LastRunTime(ctx context.Context) (*model.RunTime, error)
}
