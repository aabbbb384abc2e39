// Package bridge assembles and runs the telemetry synchronization
// service: per-source orchestrators, the delivery buffers, the daily
// reporter and the operational HTTP server.
package bridge

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/aggregate"
	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/delivery"
	httpserver "github.com/TerraNova4697/wialon-citypoint/internal/bridge/server/http"
	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/storage/postgres"
	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/syncer"
	"github.com/TerraNova4697/wialon-citypoint/pkg/log"
	"github.com/TerraNova4697/wialon-citypoint/pkg/mqtt"
	"github.com/TerraNova4697/wialon-citypoint/pkg/options"
)

// source bundles one upstream's orchestrator with its delivery buffer.
type source struct {
	name         string
	buffer       *delivery.Buffer
	orchestrator *syncer.Orchestrator
}

// Name implements httpserver.ReadyChecker.
func (s *source) Name() string { return s.name }

// Ready reports whether the source reached its running phase.
func (s *source) Ready() bool { return s.orchestrator.State() == syncer.StateRunning }

// Bridge is the assembled application.
type Bridge struct {
	log      log.Logger
	repo     *postgres.Repository
	mqtt     mqtt.Client
	sync     *options.SyncOptions
	sources  []*source
	reporter *aggregate.Reporter
	http     *httpserver.Server
}

// Run starts every component and blocks until the context is done or
// a component fails. The execution span is recorded in the runtime
// log; buffered samples from the previous run are replayed before the
// polling tasks start queueing behind them.
func (b *Bridge) Run(ctx context.Context) error {
	b.log.Info("starting fleet bridge", "sources", len(b.sources))

	if last, err := b.repo.LastRunTime(ctx); err == nil {
		b.log.Info("previous execution span",
			"start", time.Unix(last.StartTS, 0), "end", time.Unix(last.EndTS, 0))
		// A crash leaves the span open; fall back to its start.
		since := last.EndTS
		if since == 0 {
			since = last.StartTS
		}
		for _, src := range b.sources {
			src.orchestrator.BackfillSince(time.Unix(since, 0))
		}
	}
	runID, err := b.repo.OpenRunTime(ctx, time.Now().Unix())
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := b.repo.CloseRunTime(closeCtx, runID, time.Now().Unix()); err != nil {
			b.log.Error(err, "closing execution span failed")
		}
	}()

	if err := b.mqtt.Start(ctx); err != nil {
		return err
	}
	defer b.mqtt.Disconnect(context.Background())
	if err := b.mqtt.AwaitConnection(ctx); err != nil {
		return err
	}

	for _, src := range b.sources {
		if err := src.buffer.Flush(ctx); err != nil && ctx.Err() == nil {
			b.log.Error(err, "startup flush failed", "source", src.name)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, src := range b.sources {
		src := src
		g.Go(func() error { return src.orchestrator.Run(ctx) })
		g.Go(func() error {
			src.buffer.RunFlusher(ctx, b.sync.FlushInterval)
			return nil
		})
	}
	g.Go(func() error { return b.reporter.Run(ctx, b.sync.DailyReportAt) })
	g.Go(func() error { return b.http.Start(ctx) })
	return g.Wait()
}
