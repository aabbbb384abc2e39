package main

import (
	"os"

	_ "go.uber.org/automaxprocs"

	"github.com/TerraNova4697/wialon-citypoint/cmd/fleetbridge/app"
	"github.com/TerraNova4697/wialon-citypoint/pkg/log"
)

func main() {
	if err := app.NewCommand().Execute(); err != nil {
		log.Error(err, "fleetbridge exited with error")
		os.Exit(1)
	}
}
