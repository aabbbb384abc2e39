package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

var _ IOptions = (*DatabaseOptions)(nil)

// DatabaseOptions contains the PostgreSQL connection parameters for
// the bridge's local persistence.
type DatabaseOptions struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     int    `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
	SSLMode  string `json:"ssl-mode" mapstructure:"ssl-mode"`
}

// NewDatabaseOptions creates a DatabaseOptions object with default parameters.
func NewDatabaseOptions() *DatabaseOptions {
	return &DatabaseOptions{
		Host:    "localhost",
		Port:    5432,
		SSLMode: "disable",
	}
}

// Validate is used to parse and validate the parameters entered by the
// user at the command line when the program starts.
func (o *DatabaseOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}
	if o.Database == "" {
		errors = append(errors, fmt.Errorf("db.database is required"))
	}

	return errors
}

// AddFlags adds flags for DatabaseOptions to the specified FlagSet.
func (o *DatabaseOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Host, "db.host", o.Host, "The database server host.")
	fs.IntVar(&o.Port, "db.port", o.Port, "The database server port.")
	fs.StringVar(&o.Username, "db.username", o.Username, "The database user.")
	fs.StringVar(&o.Password, "db.password", o.Password, "The database password.")
	fs.StringVar(&o.Database, "db.database", o.Database, "The database name.")
	fs.StringVar(&o.SSLMode, "db.ssl-mode", o.SSLMode, "The PostgreSQL sslmode setting.")
}

// DSN renders the options as a PostgreSQL connection string.
func (o *DatabaseOptions) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		o.Host, o.Port, o.Username, o.Password, o.Database, o.SSLMode)
}
