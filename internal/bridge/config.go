package bridge

import (
	"errors"
	"fmt"

	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/aggregate"
	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/core"
	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/delivery"
	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/destination/thingsboard"
	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/resolver"
	httpserver "github.com/TerraNova4697/wialon-citypoint/internal/bridge/server/http"
	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/source/citypoint"
	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/source/wialon"
	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/storage/postgres"
	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/syncer"
	"github.com/TerraNova4697/wialon-citypoint/pkg/log"
	"github.com/TerraNova4697/wialon-citypoint/pkg/mqtt"
	"github.com/TerraNova4697/wialon-citypoint/pkg/options"
)

// Config aggregates the option groups the bridge is assembled from.
type Config struct {
	HttpOptions      *options.HttpOptions
	MqttOptions      *options.MqttOptions
	RestOptions      *options.RestOptions
	DatabaseOptions  *options.DatabaseOptions
	SyncOptions      *options.SyncOptions
	WialonOptions    *options.WialonOptions
	CityPointOptions *options.CityPointOptions
}

// New wires the full bridge: storage, downstream destination, one
// orchestrator per enabled source and the operational HTTP server.
func (cfg *Config) New(logger log.Logger) (*Bridge, error) {
	db, err := postgres.Open(cfg.DatabaseOptions.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	repo := postgres.NewRepository(db)

	mqttClient, err := mqtt.NewClient(cfg.MqttOptions.ToClientConfig())
	if err != nil {
		return nil, fmt.Errorf("init mqtt client: %w", err)
	}

	var alarms *thingsboard.AlarmClient
	if cfg.RestOptions.BaseURL != "" {
		alarms = thingsboard.NewAlarmClient(cfg.RestOptions.BaseURL,
			cfg.RestOptions.Username, cfg.RestOptions.Password,
			cfg.RestOptions.RequestTimeout, logger)
	}
	dest := thingsboard.New(mqttClient, alarms, logger)

	res := resolver.New(repo, logger)

	b := &Bridge{
		log:  logger.WithName("bridge"),
		repo: repo,
		mqtt: mqttClient,
		sync: cfg.SyncOptions,
	}

	if cfg.WialonOptions.Enabled {
		b.addSource(wialon.New(cfg.WialonOptions, logger), syncer.Intervals{
			VehicleList: cfg.WialonOptions.VehicleListInterval,
			State:       cfg.WialonOptions.StateInterval,
			Counter:     cfg.WialonOptions.CounterInterval,
			EventPause:  cfg.WialonOptions.EventPause,
		}, repo, dest, res, logger)
	}
	if cfg.CityPointOptions.Enabled {
		b.addSource(citypoint.New(cfg.CityPointOptions, logger), syncer.Intervals{
			VehicleList: cfg.CityPointOptions.VehicleListInterval,
			State:       cfg.CityPointOptions.StateInterval,
			Counter:     cfg.CityPointOptions.CounterInterval,
			Event:       cfg.CityPointOptions.EventInterval,
		}, repo, dest, res, logger)
	}
	if len(b.sources) == 0 {
		return nil, errors.New("no telemetry source enabled")
	}

	b.reporter = aggregate.NewReporter(repo, dest, res, logger)

	checkers := make([]httpserver.ReadyChecker, 0, len(b.sources))
	for _, src := range b.sources {
		checkers = append(checkers, src)
	}
	b.http = httpserver.NewServer(cfg.HttpOptions, logger, checkers...)

	return b, nil
}

func (b *Bridge) addSource(adapter core.SourceAdapter, intervals syncer.Intervals,
	repo *postgres.Repository, dest core.Destination, res *resolver.Resolver, logger log.Logger) {
	buf := delivery.NewBuffer(adapter.Name(), dest, repo, res,
		b.sync.FlushPageSize, b.sync.FlushPause, logger)
	b.sources = append(b.sources, &source{
		name:         adapter.Name(),
		buffer:       buf,
		orchestrator: syncer.New(adapter, repo, buf, res, dest, b.sync, intervals, logger),
	})
}
