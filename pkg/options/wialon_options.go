package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*WialonOptions)(nil)

// WialonOptions contains the credentials and polling discreteness for
// the Wialon upstream (session/event-based provider).
type WialonOptions struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// Token is the long-lived refresh token exchanged for a session id.
	Token string `json:"token" mapstructure:"token"`

	RequestTimeout time.Duration `json:"request-timeout" mapstructure:"request-timeout"`

	// Per-task polling intervals.
	StateInterval       time.Duration `json:"state-interval" mapstructure:"state-interval"`
	VehicleListInterval time.Duration `json:"vehicle-list-interval" mapstructure:"vehicle-list-interval"`
	CounterInterval     time.Duration `json:"counter-interval" mapstructure:"counter-interval"`

	// EventPause is the pause between consecutive event long-polls.
	EventPause time.Duration `json:"event-pause" mapstructure:"event-pause"`
}

// NewWialonOptions creates a WialonOptions object with default parameters.
func NewWialonOptions() *WialonOptions {
	return &WialonOptions{
		Enabled:             true,
		BaseURL:             "https://hst-api.wialon.com",
		RequestTimeout:      30 * time.Second,
		StateInterval:       16 * time.Second,
		VehicleListInterval: 24 * time.Hour,
		CounterInterval:     10 * time.Minute,
		EventPause:          2 * time.Second,
	}
}

// Validate is used to parse and validate the parameters entered by the
// user at the command line when the program starts.
func (o *WialonOptions) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	errors := []error{}
	if o.Token == "" {
		errors = append(errors, fmt.Errorf("wialon.token is required when the source is enabled"))
	}

	return errors
}

// AddFlags adds flags for WialonOptions to the specified FlagSet.
func (o *WialonOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Enabled, "wialon.enabled", o.Enabled, "Whether to run the Wialon synchronization.")
	fs.StringVar(&o.BaseURL, "wialon.base-url", o.BaseURL, "Base URL of the Wialon remote API.")
	fs.StringVar(&o.Token, "wialon.token", o.Token, "Wialon access token.")
	fs.DurationVar(&o.RequestTimeout, "wialon.request-timeout", o.RequestTimeout, "Timeout for a single Wialon API request.")
	fs.DurationVar(&o.StateInterval, "wialon.state-interval", o.StateInterval, "Discreteness of the current-state polling task.")
	fs.DurationVar(&o.VehicleListInterval, "wialon.vehicle-list-interval", o.VehicleListInterval, "Discreteness of the vehicle-list resync task.")
	fs.DurationVar(&o.CounterInterval, "wialon.counter-interval", o.CounterInterval, "Discreteness of the counter polling task.")
	fs.DurationVar(&o.EventPause, "wialon.event-pause", o.EventPause, "Pause between consecutive event long-poll calls.")
}
