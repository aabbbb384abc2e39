// Package options defines the reusable configuration groups of the
// bridge. Every group carries mapstructure tags so it can be populated
// from a viper-loaded config file as well as from command-line flags.
package options

import (
	"fmt"
	"net"

	"github.com/spf13/pflag"
)

// IOptions is implemented by every option group.
type IOptions interface {
	// Validate checks the group and returns all problems found.
	Validate() []error

	// AddFlags registers the group's flags on the given flag set.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

// ValidateAddress checks that addr is a host:port string.
func ValidateAddress(addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	return nil
}
