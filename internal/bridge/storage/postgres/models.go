package postgres

import (
	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/core/model"
)

// Row types mirror the canonical model one table each. Conversions are
// kept next to the rows so the schema can drift without touching the
// core types.

type gVehicle struct {
	ID         int    `gorm:"primaryKey;autoIncrement:false"`
	Name       string `gorm:"index"`
	Department string
	Model      string
	RegNumber  string
	Hidden     bool   `gorm:"index"`
	Source     string `gorm:"index"`
}

func (gVehicle) TableName() string { return "cars" }

func (g gVehicle) toModel() model.Vehicle {
	return model.Vehicle{
		ID:         g.ID,
		Name:       g.Name,
		Department: g.Department,
		Model:      g.Model,
		RegNumber:  g.RegNumber,
		Hidden:     g.Hidden,
		Source:     g.Source,
	}
}

func newGVehicle(v model.Vehicle) gVehicle {
	return gVehicle{
		ID:         v.ID,
		Name:       v.Name,
		Department: v.Department,
		Model:      v.Model,
		RegNumber:  v.RegNumber,
		Hidden:     v.Hidden,
		Source:     v.Source,
	}
}

type gSensor struct {
	ID          int `gorm:"primaryKey;autoIncrement:false"`
	Name        string
	Destination int `gorm:"index"`
	Type        int
}

func (gSensor) TableName() string { return "sensors" }

func (g gSensor) Model() model.Sensor {
	return model.Sensor{ID: g.ID, Name: g.Name, Destination: g.Destination, Type: g.Type}
}

type gState struct {
	ID        int64 `gorm:"primaryKey"`
	Timestamp int64 `gorm:"index"`
	Sent      bool
	Lat       float64
	Lon       float64
	Velocity  int
	FuelLevel *float64
	Ignition  *int
	Light     *int
	LastConn  int64
	VehicleID int `gorm:"index"`
}

func (gState) TableName() string { return "car_states" }

func (g gState) Model() model.VehicleState {
	return model.VehicleState{
		ID:        g.ID,
		Timestamp: g.Timestamp,
		Sent:      g.Sent,
		Lat:       g.Lat,
		Lon:       g.Lon,
		Velocity:  g.Velocity,
		FuelLevel: g.FuelLevel,
		Ignition:  g.Ignition,
		Light:     g.Light,
		LastConn:  g.LastConn,
		VehicleID: g.VehicleID,
	}
}

func newGState(s model.VehicleState) gState {
	return gState{
		Timestamp: s.Timestamp,
		Sent:      s.Sent,
		Lat:       s.Lat,
		Lon:       s.Lon,
		Velocity:  s.Velocity,
		FuelLevel: s.FuelLevel,
		Ignition:  s.Ignition,
		Light:     s.Light,
		LastConn:  s.LastConn,
		VehicleID: s.VehicleID,
	}
}

type gCounter struct {
	ID            int64 `gorm:"primaryKey"`
	Mileage       *float64
	EngineSeconds *int64
	Timestamp     int64 `gorm:"index"`
	VehicleID     int   `gorm:"index"`
}

func (gCounter) TableName() string { return "counters" }

type gRunTime struct {
	ID      int64 `gorm:"primaryKey"`
	StartTS int64
	EndTS   int64
}

func (gRunTime) TableName() string { return "run_times" }
