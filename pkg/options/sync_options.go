package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*SyncOptions)(nil)

// SyncOptions contains the source-independent knobs of the
// synchronization core: retry delays, the staleness filter, the
// delivery buffer flush policy and the semantic sensor mapping.
type SyncOptions struct {
	// AuthRetryDelay is the fixed delay between authentication attempts.
	AuthRetryDelay time.Duration `json:"auth-retry-delay" mapstructure:"auth-retry-delay"`

	// TaskRetryDelay is the fixed delay before a task retries after a
	// transient error.
	TaskRetryDelay time.Duration `json:"task-retry-delay" mapstructure:"task-retry-delay"`

	// StalenessMax is the maximum GPS-fix age; older samples are discarded.
	StalenessMax time.Duration `json:"staleness-max" mapstructure:"staleness-max"`

	// FlushInterval is the period of the buffered-sample replay task.
	FlushInterval time.Duration `json:"flush-interval" mapstructure:"flush-interval"`

	// FlushPageSize is the maximum batch replayed per vehicle and cycle.
	FlushPageSize int `json:"flush-page-size" mapstructure:"flush-page-size"`

	// FlushPause is the pause between per-vehicle replay batches.
	FlushPause time.Duration `json:"flush-pause" mapstructure:"flush-pause"`

	// DailyReportAt is the wall-clock time ("15:04") at which the daily
	// counter report for the previous day is produced.
	DailyReportAt string `json:"daily-report-at" mapstructure:"daily-report-at"`

	// Semantic sensor mapping. FuelDestination selects the sensor
	// catalog entries classified as fuel; the rest are fixed sensor ids
	// within a state payload.
	FuelDestination   int `json:"fuel-destination" mapstructure:"fuel-destination"`
	IgnitionSensorID  int `json:"ignition-sensor-id" mapstructure:"ignition-sensor-id"`
	LightSensorID     int `json:"light-sensor-id" mapstructure:"light-sensor-id"`
	CANVelocitySensor int `json:"can-velocity-sensor-id" mapstructure:"can-velocity-sensor-id"`
}

// NewSyncOptions creates a SyncOptions object with default parameters.
func NewSyncOptions() *SyncOptions {
	return &SyncOptions{
		AuthRetryDelay:    10 * time.Second,
		TaskRetryDelay:    10 * time.Second,
		StalenessMax:      600 * time.Second,
		FlushInterval:     time.Minute,
		FlushPageSize:     30,
		FlushPause:        100 * time.Millisecond,
		DailyReportAt:     "00:10",
		FuelDestination:   100,
		IgnitionSensorID:  1,
		LightSensorID:     104,
		CANVelocitySensor: 41,
	}
}

// Validate is used to parse and validate the parameters entered by the
// user at the command line when the program starts.
func (o *SyncOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}
	if _, err := time.Parse("15:04", o.DailyReportAt); err != nil {
		errors = append(errors, fmt.Errorf("sync.daily-report-at must be HH:MM: %w", err))
	}
	if o.FlushPageSize <= 0 {
		errors = append(errors, fmt.Errorf("sync.flush-page-size must be positive"))
	}

	return errors
}

// AddFlags adds flags for SyncOptions to the specified FlagSet.
func (o *SyncOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.DurationVar(&o.AuthRetryDelay, "sync.auth-retry-delay", o.AuthRetryDelay, "Fixed delay between failed authentication attempts.")
	fs.DurationVar(&o.TaskRetryDelay, "sync.task-retry-delay", o.TaskRetryDelay, "Fixed delay before a polling task retries after a transient error.")
	fs.DurationVar(&o.StalenessMax, "sync.staleness-max", o.StalenessMax, "Maximum GPS-fix age before a sample is discarded.")
	fs.DurationVar(&o.FlushInterval, "sync.flush-interval", o.FlushInterval, "Period of the buffered telemetry replay task.")
	fs.IntVar(&o.FlushPageSize, "sync.flush-page-size", o.FlushPageSize, "Maximum buffered samples replayed per vehicle and cycle.")
	fs.DurationVar(&o.FlushPause, "sync.flush-pause", o.FlushPause, "Pause between per-vehicle replay batches.")
	fs.StringVar(&o.DailyReportAt, "sync.daily-report-at", o.DailyReportAt, "Wall-clock time (HH:MM) of the daily counter report.")
	fs.IntVar(&o.FuelDestination, "sync.fuel-destination", o.FuelDestination, "Sensor destination code classified as fuel level.")
	fs.IntVar(&o.IgnitionSensorID, "sync.ignition-sensor-id", o.IgnitionSensorID, "Sensor id carrying the ignition state.")
	fs.IntVar(&o.LightSensorID, "sync.light-sensor-id", o.LightSensorID, "Sensor id carrying the light state.")
	fs.IntVar(&o.CANVelocitySensor, "sync.can-velocity-sensor-id", o.CANVelocitySensor, "Sensor id carrying the CAN-bus velocity.")
}
