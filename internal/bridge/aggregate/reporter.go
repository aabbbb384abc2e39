// Package aggregate computes the per-vehicle daily counter report and
// pushes it downstream once per day at a fixed wall-clock time.
package aggregate

import (
	"context"
	"time"

	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/core"
	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/core/model"
	"github.com/TerraNova4697/wialon-citypoint/pkg/log"
)

// StatsStore is the slice of the repository the reporter needs.
type StatsStore interface {
	DayStats(ctx context.Context, startTS, endTS int64) ([]model.DayStat, error)
}

// NameResolver maps vehicle ids to downstream device names.
type NameResolver interface {
	Resolve(id int) (string, bool)
}

// Reporter aggregates one day of counter snapshots into per-vehicle
// deltas and delivers them.
type Reporter struct {
	store    StatsStore
	dest     core.Destination
	resolver NameResolver
	log      log.Logger

	// now is swapped in tests.
	now func() time.Time
}

// NewReporter creates a daily report generator.
func NewReporter(store StatsStore, dest core.Destination, resolver NameResolver, logger log.Logger) *Reporter {
	return &Reporter{
		store:    store,
		dest:     dest,
		resolver: resolver,
		log:      logger.WithName("daily-report"),
		now:      time.Now,
	}
}

// Report aggregates the day containing the given instant and pushes
// one record per vehicle, timestamped at the day start. Vehicles
// without counter snapshots inside the window are absent. A failed
// send skips that vehicle and continues; the first error is returned.
func (r *Reporter) Report(ctx context.Context, day time.Time) error {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayNext := dayStart.AddDate(0, 0, 1)

	stats, err := r.store.DayStats(ctx, dayStart.Unix(), dayNext.Unix())
	if err != nil {
		return err
	}

	r.log.Info("daily report computed", "day", dayStart.Format("2006-01-02"), "vehicles", len(stats))

	var firstErr error
	for _, stat := range stats {
		name, ok := r.resolver.Resolve(stat.VehicleID)
		if !ok {
			continue
		}
		if err := r.dest.SendDayStat(ctx, name, dayStart.Unix(), stat); err != nil {
			r.log.Warn("daily report send failed",
				"vehicleID", stat.VehicleID, "err", err.Error())
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// NextRun returns the next occurrence of the "HH:MM" wall-clock time
// strictly after now.
func NextRun(now time.Time, at string) (time.Time, error) {
	reportAt, err := time.Parse("15:04", at)
	if err != nil {
		return time.Time{}, err
	}
	next := time.Date(now.Year(), now.Month(), now.Day(),
		reportAt.Hour(), reportAt.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next, nil
}

// Run delivers the previous day's report every day at the given
// wall-clock time ("HH:MM") until the context is done.
func (r *Reporter) Run(ctx context.Context, at string) error {
	for {
		now := r.now()
		next, err := NextRun(now, at)
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(next.Sub(now)):
		}

		if err := r.Report(ctx, r.now().AddDate(0, 0, -1)); err != nil && ctx.Err() == nil {
			r.log.Error(err, "daily report failed")
		}
	}
}
