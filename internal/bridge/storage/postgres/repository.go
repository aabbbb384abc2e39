package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/core"
	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/core/model"
)

// Repository implements core.Repository on a GORM connection.
type Repository struct {
	db *gorm.DB
}

var _ core.Repository = (*Repository)(nil)

// NewRepository wraps an open GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) UpsertVehicles(ctx context.Context, vehicles []model.Vehicle) error {
	if len(vehicles) == 0 {
		return nil
	}
	rows := make([]gVehicle, 0, len(vehicles))
	for _, v := range vehicles {
		rows = append(rows, newGVehicle(v))
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

func (r *Repository) UpdateVehicleName(ctx context.Context, id int, name string) error {
	res := r.db.WithContext(ctx).
		Model(&gVehicle{}).
		Where("id = ?", id).
		Update("name", name)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) Vehicles(ctx context.Context) ([]model.Vehicle, error) {
	var rows []gVehicle
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	vehicles := make([]model.Vehicle, 0, len(rows))
	for _, g := range rows {
		vehicles = append(vehicles, g.toModel())
	}
	return vehicles, nil
}

func (r *Repository) ActiveVehicleIDs(ctx context.Context, source string) ([]int, error) {
	q := r.db.WithContext(ctx).
		Model(&gVehicle{}).
		Where("hidden = ?", false)
	if source != "" {
		q = q.Where("source = ?", source)
	}
	var ids []int
	if err := q.Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *Repository) UpsertSensors(ctx context.Context, sensors []model.Sensor) error {
	if len(sensors) == 0 {
		return nil
	}
	rows := make([]gSensor, 0, len(sensors))
	for _, s := range sensors {
		rows = append(rows, gSensor{ID: s.ID, Name: s.Name, Destination: s.Destination, Type: s.Type})
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

func (r *Repository) SensorIDsByDestination(ctx context.Context, destination int) ([]int, error) {
	var ids []int
	err := r.db.WithContext(ctx).
		Model(&gSensor{}).
		Where("destination = ?", destination).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *Repository) BufferState(ctx context.Context, state model.VehicleState) error {
	row := newGState(state)
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *Repository) BufferedVehicleIDs(ctx context.Context) ([]int, error) {
	var ids []int
	err := r.db.WithContext(ctx).
		Model(&gState{}).
		Distinct("vehicle_id").
		Order("vehicle_id").
		Pluck("vehicle_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *Repository) BufferedStates(ctx context.Context, vehicleID, limit int) ([]model.VehicleState, error) {
	var rows []gState
	err := r.db.WithContext(ctx).
		Where("vehicle_id = ?", vehicleID).
		Order("timestamp").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	states := make([]model.VehicleState, 0, len(rows))
	for _, g := range rows {
		states = append(states, g.Model())
	}
	return states, nil
}

func (r *Repository) DeleteStates(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Delete(&gState{}, ids).Error
}

func (r *Repository) SaveCounter(ctx context.Context, counter model.Counter) error {
	if counter.Mileage == nil && counter.EngineSeconds == nil {
		return nil
	}

	// Readings for vehicles outside the catalog are dropped silently.
	var n int64
	err := r.db.WithContext(ctx).
		Model(&gVehicle{}).
		Where("id = ?", counter.VehicleID).
		Count(&n).Error
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}

	row := gCounter{
		Mileage:       counter.Mileage,
		EngineSeconds: counter.EngineSeconds,
		Timestamp:     counter.Timestamp,
		VehicleID:     counter.VehicleID,
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *Repository) DayStats(ctx context.Context, startTS, endTS int64) ([]model.DayStat, error) {
	var stats []model.DayStat
	err := r.db.WithContext(ctx).
		Model(&gCounter{}).
		Select(
			"vehicle_id",
			"COALESCE(MAX(mileage) - MIN(mileage), 0) AS mileage",
			"COALESCE(MAX(engine_seconds) - MIN(engine_seconds), 0) AS engine_seconds",
		).
		Where("timestamp >= ? AND timestamp < ?", startTS, endTS).
		Group("vehicle_id").
		Order("vehicle_id").
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *Repository) OpenRunTime(ctx context.Context, startTS int64) (int64, error) {
	row := gRunTime{StartTS: startTS}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, err
	}
	return row.ID, nil
}

func (r *Repository) CloseRunTime(ctx context.Context, id, endTS int64) error {
	return r.db.WithContext(ctx).
		Model(&gRunTime{}).
		Where("id = ?", id).
		Update("end_ts", endTS).Error
}

func (r *Repository) LastRunTime(ctx context.Context) (*model.RunTime, error) {
	var row gRunTime
	err := r.db.WithContext(ctx).Order("id DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &model.RunTime{ID: row.ID, StartTS: row.StartTS, EndTS: row.EndTS}, nil
}
