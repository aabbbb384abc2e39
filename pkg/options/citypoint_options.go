package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*CityPointOptions)(nil)

// CityPointOptions contains the credentials and polling discreteness
// for the CityPoint upstream (REST-polled provider).
type CityPointOptions struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	Login        string `json:"login" mapstructure:"login"`
	Password     string `json:"password" mapstructure:"password"`
	ClientID     string `json:"client-id" mapstructure:"client-id"`
	ClientSecret string `json:"client-secret" mapstructure:"client-secret"`

	// ClockOffset is added to every timestamp parsed from the provider.
	// The upstream reports wall-clock strings in a localized zone
	// without an offset, so the correction has to be configured rather
	// than assumed.
	ClockOffset time.Duration `json:"clock-offset" mapstructure:"clock-offset"`

	RequestTimeout time.Duration `json:"request-timeout" mapstructure:"request-timeout"`

	// Per-task polling intervals.
	StateInterval       time.Duration `json:"state-interval" mapstructure:"state-interval"`
	VehicleListInterval time.Duration `json:"vehicle-list-interval" mapstructure:"vehicle-list-interval"`
	CounterInterval     time.Duration `json:"counter-interval" mapstructure:"counter-interval"`
	EventInterval       time.Duration `json:"event-interval" mapstructure:"event-interval"`
}

// NewCityPointOptions creates a CityPointOptions object with default parameters.
func NewCityPointOptions() *CityPointOptions {
	return &CityPointOptions{
		Enabled:             true,
		BaseURL:             "https://api.citypoint.ru/v2.1",
		RequestTimeout:      30 * time.Second,
		StateInterval:       16 * time.Second,
		VehicleListInterval: 24 * time.Hour,
		CounterInterval:     10 * time.Minute,
		EventInterval:       30 * time.Second,
	}
}

// Validate is used to parse and validate the parameters entered by the
// user at the command line when the program starts.
func (o *CityPointOptions) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	errors := []error{}
	if o.Login == "" || o.Password == "" {
		errors = append(errors, fmt.Errorf("citypoint.login and citypoint.password are required when the source is enabled"))
	}
	if o.ClientID == "" || o.ClientSecret == "" {
		errors = append(errors, fmt.Errorf("citypoint.client-id and citypoint.client-secret are required when the source is enabled"))
	}

	return errors
}

// AddFlags adds flags for CityPointOptions to the specified FlagSet.
func (o *CityPointOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Enabled, "citypoint.enabled", o.Enabled, "Whether to run the CityPoint synchronization.")
	fs.StringVar(&o.BaseURL, "citypoint.base-url", o.BaseURL, "Base URL of the CityPoint REST API.")
	fs.StringVar(&o.Login, "citypoint.login", o.Login, "CityPoint account login.")
	fs.StringVar(&o.Password, "citypoint.password", o.Password, "CityPoint account password.")
	fs.StringVar(&o.ClientID, "citypoint.client-id", o.ClientID, "OAuth client id.")
	fs.StringVar(&o.ClientSecret, "citypoint.client-secret", o.ClientSecret, "OAuth client secret.")
	fs.DurationVar(&o.ClockOffset, "citypoint.clock-offset", o.ClockOffset, "Fixed offset applied to timestamps reported by the provider.")
	fs.DurationVar(&o.RequestTimeout, "citypoint.request-timeout", o.RequestTimeout, "Timeout for a single CityPoint API request.")
	fs.DurationVar(&o.StateInterval, "citypoint.state-interval", o.StateInterval, "Discreteness of the current-state polling task.")
	fs.DurationVar(&o.VehicleListInterval, "citypoint.vehicle-list-interval", o.VehicleListInterval, "Discreteness of the vehicle-list resync task.")
	fs.DurationVar(&o.CounterInterval, "citypoint.counter-interval", o.CounterInterval, "Discreteness of the counter polling task.")
	fs.DurationVar(&o.EventInterval, "citypoint.event-interval", o.EventInterval, "Discreteness of the notification polling task.")
}
