// Package app builds the fleetbridge command tree.
package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/TerraNova4697/wialon-citypoint/cmd/fleetbridge/app/options"
	"github.com/TerraNova4697/wialon-citypoint/pkg/log"
)

const commandDesc = `The fleet bridge synchronizes vehicle telemetry from the
Wialon and CityPoint fleet monitoring providers into a downstream IoT
platform: positions and sensor states over the MQTT gateway API, alarms
over REST, plus a daily mileage and engine-hour report. Samples that
cannot be delivered are buffered locally and replayed in order.`

var cfgFile string

// NewCommand creates the fleetbridge root command.
func NewCommand() *cobra.Command {
	opts := options.NewOptions()

	cmd := &cobra.Command{
		Use:           "fleetbridge",
		Short:         "Bridge fleet telemetry providers into an IoT platform",
		Long:          commandDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, opts)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to the configuration file.")
	opts.AddFlags(cmd.PersistentFlags())

	cmd.AddCommand(newVehiclesCommand(opts))
	return cmd
}

// loadConfig merges the config file, environment and flags into opts.
// Flags win over the file, the file wins over defaults. The file is
// watched afterwards so the log level can be changed at runtime.
func loadConfig(cmd *cobra.Command, opts *options.Options) error {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("fleetbridge")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/fleetbridge")
	}
	v.SetEnvPrefix("FLEETBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	} else {
		v.OnConfigChange(func(in fsnotify.Event) {
			log.Info("configuration file changed", "file", in.Name)
			log.SetLevel(v.GetString("log.level"))
		})
		v.WatchConfig()
	}

	if err := v.Unmarshal(opts); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	if errs := opts.Validate(); len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %v", errs)
	}

	log.Init(opts.Log)
	return nil
}

func run(opts *options.Options) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := opts.Config().New(log.Std())
	if err != nil {
		return fmt.Errorf("assemble bridge: %w", err)
	}

	err = b.Run(ctx)
	if ctx.Err() != nil {
		log.Info("shutdown complete")
		return nil
	}
	return err
}
