package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*RestOptions)(nil)

// RestOptions contains the parameters of the downstream platform's
// REST API, used for alarm delivery.
type RestOptions struct {
	BaseURL  string `json:"base-url" mapstructure:"base-url"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`

	RequestTimeout time.Duration `json:"request-timeout" mapstructure:"request-timeout"`
}

// NewRestOptions creates a RestOptions object with default parameters.
func NewRestOptions() *RestOptions {
	return &RestOptions{
		RequestTimeout: 30 * time.Second,
	}
}

// Validate is used to parse and validate the parameters entered by the
// user at the command line when the program starts.
func (o *RestOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}
	if o.BaseURL != "" && (o.Username == "" || o.Password == "") {
		errors = append(errors, fmt.Errorf("rest.username and rest.password are required when rest.base-url is set"))
	}

	return errors
}

// AddFlags adds flags for RestOptions to the specified FlagSet.
func (o *RestOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.BaseURL, "rest.base-url", o.BaseURL, "Base URL of the downstream platform REST API (empty disables alarm delivery).")
	fs.StringVar(&o.Username, "rest.username", o.Username, "REST API username.")
	fs.StringVar(&o.Password, "rest.password", o.Password, "REST API password.")
	fs.DurationVar(&o.RequestTimeout, "rest.request-timeout", o.RequestTimeout, "Timeout for a single REST API request.")
}
