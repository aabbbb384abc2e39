// Package options aggregates every configuration group of the
// fleetbridge command.
package options

import (
	"github.com/spf13/pflag"

	"github.com/TerraNova4697/wialon-citypoint/internal/bridge"
	"github.com/TerraNova4697/wialon-citypoint/pkg/log"
	"github.com/TerraNova4697/wialon-citypoint/pkg/options"
)

// Options holds all option groups of the bridge.
type Options struct {
	Http      *options.HttpOptions      `json:"http" mapstructure:"http"`
	Mqtt      *options.MqttOptions      `json:"mqtt" mapstructure:"mqtt"`
	Rest      *options.RestOptions      `json:"rest" mapstructure:"rest"`
	Database  *options.DatabaseOptions  `json:"db" mapstructure:"db"`
	Sync      *options.SyncOptions      `json:"sync" mapstructure:"sync"`
	Wialon    *options.WialonOptions    `json:"wialon" mapstructure:"wialon"`
	CityPoint *options.CityPointOptions `json:"citypoint" mapstructure:"citypoint"`
	Log       *log.Options              `json:"log" mapstructure:"log"`
}

// NewOptions creates an Options object with default parameters.
func NewOptions() *Options {
	return &Options{
		Http:      options.NewHttpOptions(),
		Mqtt:      options.NewMqttOptions(),
		Rest:      options.NewRestOptions(),
		Database:  options.NewDatabaseOptions(),
		Sync:      options.NewSyncOptions(),
		Wialon:    options.NewWialonOptions(),
		CityPoint: options.NewCityPointOptions(),
		Log:       log.NewOptions(),
	}
}

// AddFlags registers every group's flags on the given flag set.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	o.Http.AddFlags(fs)
	o.Mqtt.AddFlags(fs)
	o.Rest.AddFlags(fs)
	o.Database.AddFlags(fs)
	o.Sync.AddFlags(fs)
	o.Wialon.AddFlags(fs)
	o.CityPoint.AddFlags(fs)
	o.Log.AddFlags(fs)
}

// Validate checks every group and returns all problems found.
func (o *Options) Validate() []error {
	errs := []error{}
	errs = append(errs, o.Http.Validate()...)
	errs = append(errs, o.Mqtt.Validate()...)
	errs = append(errs, o.Rest.Validate()...)
	errs = append(errs, o.Database.Validate()...)
	errs = append(errs, o.Sync.Validate()...)
	errs = append(errs, o.Wialon.Validate()...)
	errs = append(errs, o.CityPoint.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return errs
}

// Config assembles the bridge configuration from the option groups.
func (o *Options) Config() *bridge.Config {
	return &bridge.Config{
		HttpOptions:      o.Http,
		MqttOptions:      o.Mqtt,
		RestOptions:      o.Rest,
		DatabaseOptions:  o.Database,
		SyncOptions:      o.Sync,
		WialonOptions:    o.Wialon,
		CityPointOptions: o.CityPoint,
	}
}
