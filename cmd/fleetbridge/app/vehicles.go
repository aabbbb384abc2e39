package app

import (
	"context"
	"fmt"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/TerraNova4697/wialon-citypoint/cmd/fleetbridge/app/options"
	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/storage/postgres"
)

// newVehiclesCommand prints the persisted vehicle catalog. Useful for
// checking what the bridge has synced without touching the database
// by hand.
func newVehiclesCommand(opts *options.Options) *cobra.Command {
	var showHidden bool

	cmd := &cobra.Command{
		Use:   "vehicles",
		Short: "List the synced vehicle catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := postgres.Open(opts.Database.DSN())
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			repo := postgres.NewRepository(db)

			vehicles, err := repo.Vehicles(context.Background())
			if err != nil {
				return err
			}

			table := uitable.New()
			table.AddRow("ID", "NAME", "REG NUMBER", "MODEL", "DEPARTMENT", "SOURCE", "HIDDEN")
			for _, v := range vehicles {
				if v.Hidden && !showHidden {
					continue
				}
				table.AddRow(v.ID, v.Name, v.RegNumber, v.Model, v.Department, v.Source, v.Hidden)
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showHidden, "show-hidden", false, "Include hidden vehicles in the listing.")
	return cmd
}
