package model

// VehicleState is one normalized position/status fix. Timestamps are
// integer unix seconds. FuelLevel is nil unless the raw reading was
// positive; Ignition and Light are nil when the provider exposed no
// such sensor.
type VehicleState struct {
	// ID is assigned by the buffer storage; zero for in-memory samples.
	ID int64

	Timestamp int64
	Sent      bool
	Lat       float64
	Lon       float64
	Velocity  int
	FuelLevel *float64
	Ignition  *int
	Light     *int
	LastConn  int64
	VehicleID int
}
