package model

// Counter is an odometer/engine-hour snapshot at a point in time.
// Either value may be absent; a snapshot with both absent is dropped
// before persistence.
type Counter struct {
	ID            int64
	Mileage       *float64
	EngineSeconds *int64
	Timestamp     int64
	VehicleID     int
}

// DayStat is the per-vehicle aggregate over one day window, computed
// as max-min over the counter snapshots inside the window. Counter
// values are assumed monotonically non-decreasing within the window;
// a device reset is not detected.
type DayStat struct {
	VehicleID     int
	Mileage       float64
	EngineSeconds int64
}

// RunTime is one process execution span. The log is append-only and
// the most recent row by id is the last runtime.
type RunTime struct {
	ID      int64
	StartTS int64
	EndTS   int64
}
