// Package delivery pushes normalized telemetry downstream and keeps
// the offline buffer. A sample that cannot be sent is persisted and
// re-sent later by the flusher in original order; alarms are
// fire-and-forget and never buffered.
package delivery

import (
	"context"
	"time"

	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/core"
	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/core/model"
	"github.com/TerraNova4697/wialon-citypoint/internal/pkg/metrics"
	"github.com/TerraNova4697/wialon-citypoint/pkg/log"
)

// Store is the slice of the repository the buffer needs.
type Store interface {
	BufferState(ctx context.Context, state model.VehicleState) error
	BufferedVehicleIDs(ctx context.Context) ([]int, error)
	BufferedStates(ctx context.Context, vehicleID, limit int) ([]model.VehicleState, error)
	DeleteStates(ctx context.Context, ids []int64) error
}

// NameResolver maps vehicle ids to downstream device names.
type NameResolver interface {
	Resolve(id int) (string, bool)
}

// Buffer is the send-or-persist delivery pipeline for one source.
type Buffer struct {
	source   string
	dest     core.Destination
	store    Store
	resolver NameResolver
	log      log.Logger

	pageSize int
	pause    time.Duration
}

// NewBuffer creates a delivery buffer. pageSize caps one flush batch;
// pause is the delay between consecutive batches of a flush pass.
func NewBuffer(source string, dest core.Destination, store Store, resolver NameResolver, pageSize int, pause time.Duration, logger log.Logger) *Buffer {
	return &Buffer{
		source:   source,
		dest:     dest,
		store:    store,
		resolver: resolver,
		log:      logger.WithName("delivery").WithValues("source", source),
		pageSize: pageSize,
		pause:    pause,
	}
}

// Deliver sends one sample downstream, falling back to the persistent
// buffer on failure. Samples for unknown vehicle ids are skipped.
func (b *Buffer) Deliver(ctx context.Context, state model.VehicleState) error {
	name, ok := b.resolver.Resolve(state.VehicleID)
	if !ok {
		return nil
	}

	if err := b.dest.SendTelemetry(ctx, name, state); err != nil {
		b.log.Warn("send failed, buffering sample",
			"vehicleID", state.VehicleID, "err", err.Error())
		metrics.TelemetrySentTotal.WithLabelValues(b.source, "buffered").Inc()
		return b.store.BufferState(ctx, state)
	}

	metrics.TelemetrySentTotal.WithLabelValues(b.source, "sent").Inc()
	return nil
}

// Alarm sends one alarm downstream. Failures are logged and dropped:
// alarms are only meaningful near the moment they fire.
func (b *Buffer) Alarm(ctx context.Context, vehicleID int, alarm model.Alarm) {
	name, ok := b.resolver.Resolve(vehicleID)
	if !ok {
		return
	}

	if err := b.dest.SendAlarm(ctx, name, alarm); err != nil {
		b.log.Warn("alarm send failed, dropped",
			"vehicleID", vehicleID, "alarmID", alarm.ID, "err", err.Error())
		metrics.AlarmsSentTotal.WithLabelValues(b.source, "dropped").Inc()
		return
	}
	metrics.AlarmsSentTotal.WithLabelValues(b.source, "sent").Inc()
}

// Flush drains the persistent buffer, one vehicle at a time, in pages
// of at most pageSize samples in ascending timestamp order. Rows are
// deleted only after the batch was confirmed downstream; a failed
// batch aborts the pass and everything left is retried next time.
func (b *Buffer) Flush(ctx context.Context) error {
	ids, err := b.store.BufferedVehicleIDs(ctx)
	if err != nil {
		return err
	}
	metrics.BufferBacklog.Set(float64(len(ids)))
	if len(ids) == 0 {
		return nil
	}

	b.log.Info("flushing buffered samples", "vehicles", len(ids))

	for _, vehicleID := range ids {
		name, ok := b.resolver.Resolve(vehicleID)
		if !ok {
			continue
		}
		if err := b.flushVehicle(ctx, vehicleID, name); err != nil {
			return err
		}
	}
	return nil
}

func (b *Buffer) flushVehicle(ctx context.Context, vehicleID int, name string) error {
	for {
		states, err := b.store.BufferedStates(ctx, vehicleID, b.pageSize)
		if err != nil {
			return err
		}
		if len(states) == 0 {
			return nil
		}

		if err := b.dest.SendTelemetry(ctx, name, states...); err != nil {
			b.log.Warn("flush batch failed, keeping samples",
				"vehicleID", vehicleID, "batch", len(states), "err", err.Error())
			return err
		}

		rowIDs := make([]int64, 0, len(states))
		for _, s := range states {
			rowIDs = append(rowIDs, s.ID)
		}
		if err := b.store.DeleteStates(ctx, rowIDs); err != nil {
			return err
		}
		metrics.FlushedStatesTotal.Add(float64(len(states)))

		if len(states) < b.pageSize {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.pause):
		}
	}
}

// RunFlusher flushes on a fixed interval until the context is done.
// Flush errors are logged, never fatal.
func (b *Buffer) RunFlusher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := b.Flush(ctx); err != nil && ctx.Err() == nil {
				b.log.Error(err, "flush pass failed")
			}
		}
	}
}
