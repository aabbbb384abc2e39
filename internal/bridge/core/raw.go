package core

import "time"

// The Raw* types are the provider-agnostic shape of upstream payloads.
// Adapters flatten their vendor envelopes into these; the normalizer
// turns them into canonical model records. Timestamps are already
// parsed (and clock-offset corrected) by the adapter, because the
// string formats and localization quirks are wire-level concerns.

// RawVehicle is one entry of a provider's vehicle list.
type RawVehicle struct {
	ID int

	// FreeText is the provider's free-form unit name; it may contain a
	// mobile-group code used by name derivation.
	FreeText string

	Department string
	Model      string
	RegNumber  string
	Hidden     bool
}

// SensorReading is one sensor value attached to a raw state.
type SensorReading struct {
	SensorID int
	Value    float64
}

// RawState is one current-state record for a vehicle.
type RawState struct {
	VehicleID int

	// RecordedAt is the upstream record time; LastFixAt the latest GPS
	// fix (staleness filter input); LastConnAt the latest connection.
	RecordedAt time.Time
	LastFixAt  time.Time
	LastConnAt time.Time

	Lat float64
	Lon float64

	// NativeVelocity is the provider's own velocity field, used when no
	// CAN velocity sensor is present.
	NativeVelocity int

	Sensors []SensorReading

	// Ignition and Light are set when the provider reports them
	// directly instead of through the sensor catalog.
	Ignition *int
	Light    *int
}

// RawEvent is one provider-raised notification/violation.
type RawEvent struct {
	ID        int
	Title     string
	Message   string
	Level     int
	Lat       float64
	Lon       float64
	RecordedAt time.Time
	CreatedAt  time.Time
	VehicleID  int
	DriverID   int
	Place      string
}

// RawDriver is one entry of the included-drivers list shipped with an
// event page, used to resolve RawEvent.DriverID into a name.
type RawDriver struct {
	ID        int
	FirstName string
	LastName  string
}

// RawEventPage is one fetch of events plus the side-loaded driver list.
type RawEventPage struct {
	Events  []RawEvent
	Drivers []RawDriver
}

// RawCounter is one odometer/engine-hour reading. EngineHours is
// fractional; the normalizer converts it to whole seconds.
type RawCounter struct {
	VehicleID   int
	Mileage     *float64
	EngineHours *float64
	At          time.Time
}

// RawDailyRecord is one provider-side daily aggregate, for providers
// that expose precomputed day statistics.
type RawDailyRecord struct {
	VehicleID    int
	Mileage      float64
	WorkingHours float64
}
