package postgres

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/core"
	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/core/model"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return NewRepository(db)
}

func TestUpsertVehiclesInsertIfAbsent(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertVehicles(ctx, []model.Vehicle{
		{ID: 1, Name: "B456CD", RegNumber: "B456CD", Source: model.SourceWialon},
		{ID: 2, Name: "C789EF", RegNumber: "C789EF", Hidden: true, Source: model.SourceCityPoint},
	}))

	// A second upsert with a different name must not overwrite.
	require.NoError(t, repo.UpsertVehicles(ctx, []model.Vehicle{
		{ID: 1, Name: "OTHER", Source: model.SourceWialon},
	}))

	vehicles, err := repo.Vehicles(ctx)
	require.NoError(t, err)
	require.Len(t, vehicles, 2)
	assert.Equal(t, "B456CD", vehicles[0].Name)
}

func TestUpdateVehicleName(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertVehicles(ctx, []model.Vehicle{{ID: 1, Name: "B456CD"}}))
	require.NoError(t, repo.UpdateVehicleName(ctx, 1, "МГ-5 B456CD"))

	vehicles, err := repo.Vehicles(ctx)
	require.NoError(t, err)
	assert.Equal(t, "МГ-5 B456CD", vehicles[0].Name)

	assert.ErrorIs(t, repo.UpdateVehicleName(ctx, 99, "x"), core.ErrNotFound)
}

func TestActiveVehicleIDs(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertVehicles(ctx, []model.Vehicle{
		{ID: 1, Source: model.SourceWialon},
		{ID: 2, Source: model.SourceWialon, Hidden: true},
		{ID: 3, Source: model.SourceCityPoint},
	}))

	ids, err := repo.ActiveVehicleIDs(ctx, model.SourceWialon)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, ids)

	ids, err = repo.ActiveVehicleIDs(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, ids)
}

func TestSensorCatalog(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertSensors(ctx, []model.Sensor{
		{ID: 7, Name: "fuel main", Destination: 100},
		{ID: 8, Name: "fuel aux", Destination: 100},
		{ID: 9, Name: "ignition", Destination: 1},
	}))
	// Duplicate insert is a no-op.
	require.NoError(t, repo.UpsertSensors(ctx, []model.Sensor{{ID: 7, Destination: 999}}))

	ids, err := repo.SensorIDsByDestination(ctx, 100)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{7, 8}, ids)
}

func TestStateBuffer(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	// Insert out of order to verify ascending flush order.
	for _, ts := range []int64{300, 100, 200} {
		require.NoError(t, repo.BufferState(ctx, model.VehicleState{Timestamp: ts, VehicleID: 5}))
	}
	require.NoError(t, repo.BufferState(ctx, model.VehicleState{Timestamp: 150, VehicleID: 6}))

	ids, err := repo.BufferedVehicleIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 6}, ids)

	states, err := repo.BufferedStates(ctx, 5, 2)
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, int64(100), states[0].Timestamp)
	assert.Equal(t, int64(200), states[1].Timestamp)

	require.NoError(t, repo.DeleteStates(ctx, []int64{states[0].ID, states[1].ID}))

	states, err = repo.BufferedStates(ctx, 5, 10)
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, int64(300), states[0].Timestamp)
}

func TestSaveCounterAndDayStats(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertVehicles(ctx, []model.Vehicle{{ID: 1}, {ID: 2}}))

	f := func(v float64) *float64 { return &v }
	s := func(v int64) *int64 { return &v }

	// Unknown vehicle: silently dropped.
	require.NoError(t, repo.SaveCounter(ctx, model.Counter{VehicleID: 99, Mileage: f(1), Timestamp: 10}))
	// Both values nil: dropped.
	require.NoError(t, repo.SaveCounter(ctx, model.Counter{VehicleID: 1, Timestamp: 10}))

	require.NoError(t, repo.SaveCounter(ctx, model.Counter{VehicleID: 1, Mileage: f(100), EngineSeconds: s(3600), Timestamp: 10}))
	require.NoError(t, repo.SaveCounter(ctx, model.Counter{VehicleID: 1, Mileage: f(142.5), EngineSeconds: s(9000), Timestamp: 50}))
	require.NoError(t, repo.SaveCounter(ctx, model.Counter{VehicleID: 2, Mileage: f(7), Timestamp: 20}))
	// Outside the window.
	require.NoError(t, repo.SaveCounter(ctx, model.Counter{VehicleID: 1, Mileage: f(9999), Timestamp: 100}))

	stats, err := repo.DayStats(ctx, 0, 100)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, 1, stats[0].VehicleID)
	assert.InDelta(t, 42.5, stats[0].Mileage, 1e-9)
	assert.Equal(t, int64(5400), stats[0].EngineSeconds)
	assert.Equal(t, 2, stats[1].VehicleID)
	assert.InDelta(t, 0, stats[1].Mileage, 1e-9)
	assert.Equal(t, int64(0), stats[1].EngineSeconds)
}

func TestRunTimeLog(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.LastRunTime(ctx)
	assert.ErrorIs(t, err, core.ErrNotFound)

	id, err := repo.OpenRunTime(ctx, 1000)
	require.NoError(t, err)
	require.NoError(t, repo.CloseRunTime(ctx, id, 2000))

	id2, err := repo.OpenRunTime(ctx, 3000)
	require.NoError(t, err)

	last, err := repo.LastRunTime(ctx)
	require.NoError(t, err)
	assert.Equal(t, id2, last.ID)
	assert.Equal(t, int64(3000), last.StartTS)
	assert.Zero(t, last.EndTS)
}
