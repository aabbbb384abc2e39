// Package syncer runs the per-source synchronization lifecycle:
// authenticate with infinite retry, bootstrap the vehicle and sensor
// catalogs, then fan out the polling tasks. All sources share the same
// orchestration; provider differences live behind the adapter contract.
package syncer

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/aggregate"
	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/core"
	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/core/model"
	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/delivery"
	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/normalize"
	"github.com/TerraNova4697/wialon-citypoint/internal/pkg/metrics"
	"github.com/TerraNova4697/wialon-citypoint/pkg/log"
	"github.com/TerraNova4697/wialon-citypoint/pkg/options"
)

var errCredentialsRejected = errors.New("credentials rejected")

// NameResolver is the id-to-device-name lookup shared by the tasks.
// Refresh is called after every vehicle-list sync.
type NameResolver interface {
	Refresh(ctx context.Context) error
	Resolve(id int) (string, bool)
	Size() int
}

// Intervals carries the per-source task discreteness. Event is the
// polling interval for REST providers; EventPause the pause between
// consecutive long-polls for session providers.
type Intervals struct {
	VehicleList time.Duration
	State       time.Duration
	Counter     time.Duration
	Event       time.Duration
	EventPause  time.Duration
}

// Orchestrator drives one source end to end.
type Orchestrator struct {
	source    core.SourceAdapter
	repo      core.Repository
	buffer    *delivery.Buffer
	resolver  NameResolver
	dest      core.Destination
	opts      *options.SyncOptions
	intervals Intervals
	life      *lifecycle
	log       log.Logger

	// norm is built once during bootstrap, before any task starts.
	norm *normalize.Normalizer

	// backfillFrom bounds the one-shot history replay after downtime.
	// Zero means no backfill.
	backfillFrom time.Time
}

// New creates an orchestrator for one source.
func New(source core.SourceAdapter, repo core.Repository, buffer *delivery.Buffer,
	resolver NameResolver, dest core.Destination, opts *options.SyncOptions,
	intervals Intervals, logger log.Logger) *Orchestrator {
	l := logger.WithName("syncer").WithValues("source", source.Name())
	return &Orchestrator{
		source:    source,
		repo:      repo,
		buffer:    buffer,
		resolver:  resolver,
		dest:      dest,
		opts:      opts,
		intervals: intervals,
		life:      newLifecycle(source.Name(), l),
		log:       l,
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() string { return o.life.Current() }

// Run authenticates, bootstraps the catalogs and runs the polling
// tasks until the context is done. It only returns on cancellation or
// an unrecoverable repository failure; upstream errors are retried
// forever.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.life.Event(ctx, EventStart); err != nil {
		return err
	}
	if err := o.authenticate(ctx); err != nil {
		return err
	}
	if err := o.life.Event(ctx, EventAuthenticated); err != nil {
		return err
	}
	defer metrics.SourceUp.WithLabelValues(o.source.Name()).Set(0)

	if err := o.bootstrap(ctx); err != nil {
		return err
	}
	if err := o.backfill(ctx); err != nil && ctx.Err() == nil {
		o.log.Warn("history backfill incomplete", "err", err.Error())
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return o.loop(ctx, "vehicle-list", o.intervals.VehicleList, true, o.syncVehicles)
	})
	g.Go(func() error {
		return o.loop(ctx, "states", o.intervals.State, false, o.syncStates)
	})
	g.Go(func() error {
		return o.loop(ctx, "counters", o.intervals.Counter, false, o.syncCounters)
	})
	g.Go(o.eventLoop(ctx))
	g.Go(func() error { return o.dailyLoop(ctx) })
	return g.Wait()
}

// authenticate retries the login with a fixed delay until it succeeds
// or the context is done. Rejected credentials are retried like any
// other failure: the account may be fixed upstream while we run.
func (o *Orchestrator) authenticate(ctx context.Context) error {
	attempt := func() error {
		ok, err := o.source.Authenticate(ctx)
		if err == nil && ok {
			return nil
		}
		metrics.AuthRetriesTotal.WithLabelValues(o.source.Name()).Inc()
		if err == nil {
			err = errCredentialsRejected
		}
		o.log.Warn("authentication failed, retrying", "err", err.Error())
		return err
	}
	return backoff.Retry(attempt,
		backoff.WithContext(backoff.NewConstantBackOff(o.opts.AuthRetryDelay), ctx))
}

// bootstrap runs the initial vehicle-list sync and builds the semantic
// sensor mapping. Upstream failures are retried; only repository
// failures abort.
func (o *Orchestrator) bootstrap(ctx context.Context) error {
	for {
		err := o.syncVehicles(ctx)
		if err == nil {
			break
		}
		if err := o.recover(ctx, "vehicle-list", err); err != nil {
			return err
		}
	}

	for {
		err := o.syncSensors(ctx)
		if err == nil || errors.Is(err, core.ErrUnsupported) {
			break
		}
		if err := o.recover(ctx, "sensors", err); err != nil {
			return err
		}
	}

	fuelIDs, err := o.repo.SensorIDsByDestination(ctx, o.opts.FuelDestination)
	if err != nil {
		return err
	}
	sets := normalize.SensorSets{
		FuelIDs:       make(map[int]struct{}, len(fuelIDs)),
		IgnitionID:    o.opts.IgnitionSensorID,
		LightID:       o.opts.LightSensorID,
		CANVelocityID: o.opts.CANVelocitySensor,
	}
	for _, id := range fuelIDs {
		sets.FuelIDs[id] = struct{}{}
	}
	o.norm = normalize.New(sets, o.opts.StalenessMax)

	o.log.Info("bootstrap complete",
		"vehicles", o.resolver.Size(), "fuelSensors", len(fuelIDs))
	return nil
}

// loop runs fn on a fixed interval. A task reporting ErrUnsupported is
// stopped for good; anything else goes through recover and the task is
// retried.
func (o *Orchestrator) loop(ctx context.Context, task string, interval time.Duration,
	sleepFirst bool, fn func(context.Context) error) error {
	if sleepFirst {
		if err := sleepCtx(ctx, interval); err != nil {
			return err
		}
	}
	for {
		if err := fn(ctx); err != nil {
			if errors.Is(err, core.ErrUnsupported) {
				o.log.Debug("task not supported by provider, stopped", "task", task)
				return nil
			}
			if err := o.recover(ctx, task, err); err != nil {
				return err
			}
			continue
		}
		if err := sleepCtx(ctx, interval); err != nil {
			return err
		}
	}
}

// recover logs a failed task cycle, rebuilds the provider session
// after transport-level failures and waits out the retry delay.
func (o *Orchestrator) recover(ctx context.Context, task string, taskErr error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	metrics.FetchErrorsTotal.WithLabelValues(o.source.Name(), task).Inc()
	o.log.Warn("task failed, retrying", "task", task, "err", taskErr.Error())

	if core.IsTransient(taskErr) {
		ids, err := o.repo.ActiveVehicleIDs(ctx, o.source.Name())
		if err != nil {
			ids = nil
		}
		if err := o.source.ReinitializeSession(ctx, ids); err != nil {
			o.log.Warn("session reinitialization failed", "err", err.Error())
		}
	}
	return sleepCtx(ctx, o.opts.TaskRetryDelay)
}

// BackfillSince requests a one-shot replay of historical states from
// the given instant once the orchestrator reaches its running phase.
// Must be called before Run.
func (o *Orchestrator) BackfillSince(t time.Time) { o.backfillFrom = t }

// backfill pulls the states recorded while the process was down and
// pushes them through the regular delivery path. Providers without
// history support skip the whole pass.
func (o *Orchestrator) backfill(ctx context.Context) error {
	if o.backfillFrom.IsZero() {
		return nil
	}
	to := time.Now()
	if !to.After(o.backfillFrom) {
		return nil
	}

	ids, err := o.repo.ActiveVehicleIDs(ctx, o.source.Name())
	if err != nil {
		return err
	}

	o.log.Info("backfilling historical states",
		"from", o.backfillFrom, "vehicles", len(ids))

	for _, id := range ids {
		raws, err := o.source.FetchHistoricalStates(ctx, id, o.backfillFrom, to)
		if errors.Is(err, core.ErrUnsupported) {
			return nil
		}
		if err != nil {
			o.log.Warn("history fetch failed, vehicle skipped",
				"vehicleID", id, "err", err.Error())
			continue
		}
		for _, raw := range raws {
			if err := o.buffer.Deliver(ctx, o.norm.HistoricalState(raw)); err != nil {
				return err
			}
		}
	}
	return nil
}

// syncVehicles pulls the provider catalog, derives canonical names,
// persists the result and refreshes the resolver snapshot. Session
// providers also re-register the active vehicles on the live session.
func (o *Orchestrator) syncVehicles(ctx context.Context) error {
	raws, err := o.source.ListVehicles(ctx)
	if err != nil {
		return err
	}

	vehicles := make([]model.Vehicle, 0, len(raws))
	for _, raw := range raws {
		vehicles = append(vehicles, model.Vehicle{
			ID:         raw.ID,
			Name:       normalize.DeriveName(raw.FreeText, raw.RegNumber),
			Department: raw.Department,
			Model:      raw.Model,
			RegNumber:  normalize.CleanRegNumber(raw.RegNumber),
			Hidden:     raw.Hidden,
			Source:     o.source.Name(),
		})
	}
	if err := o.repo.UpsertVehicles(ctx, vehicles); err != nil {
		return err
	}
	// Names are derived from raw provider fields, so re-deriving on a
	// later sync yields the same result; the overwrite picks up renames.
	for _, v := range vehicles {
		if err := o.repo.UpdateVehicleName(ctx, v.ID, v.Name); err != nil && !errors.Is(err, core.ErrNotFound) {
			return err
		}
	}
	if err := o.resolver.Refresh(ctx); err != nil {
		return err
	}

	if o.source.SupportsSessionEvents() {
		ids, err := o.repo.ActiveVehicleIDs(ctx, o.source.Name())
		if err != nil {
			return err
		}
		if err := o.source.SessionKeepAlive(ctx, ids); err != nil {
			return err
		}
	}

	o.log.Info("vehicle catalog synced", "vehicles", len(vehicles))
	return nil
}

func (o *Orchestrator) syncSensors(ctx context.Context) error {
	sensors, err := o.source.ListSensors(ctx)
	if err != nil {
		return err
	}
	return o.repo.UpsertSensors(ctx, sensors)
}

func (o *Orchestrator) syncStates(ctx context.Context) error {
	ids, err := o.repo.ActiveVehicleIDs(ctx, o.source.Name())
	if err != nil {
		return err
	}
	raws, err := o.source.FetchCurrentStates(ctx, ids)
	if err != nil {
		return err
	}
	for _, raw := range raws {
		state, ok := o.norm.State(raw)
		if !ok {
			continue
		}
		if err := o.buffer.Deliver(ctx, state); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) syncEvents(ctx context.Context) error {
	page, err := o.source.FetchEvents(ctx)
	if err != nil {
		return err
	}
	for _, ev := range page.Events {
		o.buffer.Alarm(ctx, ev.VehicleID, o.norm.Alarm(ev, page.Drivers))
	}
	return nil
}

func (o *Orchestrator) syncCounters(ctx context.Context) error {
	raws, err := o.source.FetchCounters(ctx)
	if err != nil {
		return err
	}
	for _, raw := range raws {
		counter, ok := o.norm.Counter(raw)
		if !ok {
			continue
		}
		if err := o.repo.SaveCounter(ctx, counter); err != nil {
			return err
		}
	}
	return nil
}

// eventLoop picks the event cadence per provider: session providers
// long-poll (the call itself blocks server-side) with a short pause in
// between, REST providers poll on a fixed interval.
func (o *Orchestrator) eventLoop(ctx context.Context) func() error {
	interval := o.intervals.Event
	if o.source.SupportsSessionEvents() {
		interval = o.intervals.EventPause
	}
	return func() error {
		return o.loop(ctx, "events", interval, false, o.syncEvents)
	}
}

// dailyLoop forwards provider-precomputed day statistics once per day.
// Providers without the capability stop the task at the first tick;
// their daily report comes from the counter snapshots instead.
func (o *Orchestrator) dailyLoop(ctx context.Context) error {
	for {
		now := time.Now()
		next, err := aggregate.NextRun(now, o.opts.DailyReportAt)
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(next.Sub(now)):
		}

		day := time.Now().AddDate(0, 0, -1)
		records, err := o.source.FetchDailyAggregate(ctx, day)
		if errors.Is(err, core.ErrUnsupported) {
			o.log.Debug("provider has no daily aggregates, task stopped")
			return nil
		}
		if err != nil {
			if err := o.recover(ctx, "daily-aggregate", err); err != nil {
				return err
			}
			continue
		}
		o.sendDaily(ctx, day, records)
	}
}

func (o *Orchestrator) sendDaily(ctx context.Context, day time.Time, records []core.RawDailyRecord) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	sent := 0
	for _, rec := range records {
		name, ok := o.resolver.Resolve(rec.VehicleID)
		if !ok {
			continue
		}
		stat := model.DayStat{
			VehicleID:     rec.VehicleID,
			Mileage:       rec.Mileage,
			EngineSeconds: int64(rec.WorkingHours * 3600),
		}
		if err := o.dest.SendDayStat(ctx, name, dayStart.Unix(), stat); err != nil {
			o.log.Warn("daily aggregate send failed",
				"vehicleID", rec.VehicleID, "err", err.Error())
			continue
		}
		sent++
	}
	o.log.Info("daily aggregates forwarded",
		"day", dayStart.Format("2006-01-02"), "sent", sent)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
