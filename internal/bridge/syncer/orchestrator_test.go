package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/core"
	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/core/model"
	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/delivery"
	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/normalize"
	"github.com/TerraNova4697/wialon-citypoint/pkg/log"
	"github.com/TerraNova4697/wialon-citypoint/pkg/options"
)

// fakeAdapter is a scriptable source. Zero-value hooks behave like an
// empty but healthy provider.
type fakeAdapter struct {
	mu sync.Mutex

	name        string
	authResults []error // nil = success, errCredentialsRejected = rejected
	authCalls   int

	vehicles []core.RawVehicle
	sensors  []model.Sensor

	states    []core.RawState
	stateErrs []error
	stateGot  [][]int

	events   *core.RawEventPage
	counters []core.RawCounter

	history    map[int][]core.RawState
	historyGot []int

	session        bool
	keepAliveGot   [][]int
	reinitCalls    int
	dailyRecords   []core.RawDailyRecord
	dailySupported bool
}

func (f *fakeAdapter) Name() string {
	if f.name == "" {
		return "fake"
	}
	return f.name
}

func (f *fakeAdapter) Authenticate(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.authCalls
	f.authCalls++
	if idx >= len(f.authResults) {
		return true, nil
	}
	err := f.authResults[idx]
	if errors.Is(err, errCredentialsRejected) {
		return false, nil
	}
	return err == nil, err
}

func (f *fakeAdapter) ListVehicles(context.Context) ([]core.RawVehicle, error) {
	return f.vehicles, nil
}

func (f *fakeAdapter) ListSensors(context.Context) ([]model.Sensor, error) {
	if f.sensors == nil {
		return nil, core.ErrUnsupported
	}
	return f.sensors, nil
}

func (f *fakeAdapter) FetchCurrentStates(_ context.Context, ids []int) ([]core.RawState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stateGot = append(f.stateGot, ids)
	if len(f.stateErrs) > 0 {
		err := f.stateErrs[0]
		f.stateErrs = f.stateErrs[1:]
		return nil, err
	}
	return f.states, nil
}

func (f *fakeAdapter) FetchHistoricalStates(_ context.Context, id int, _, _ time.Time) ([]core.RawState, error) {
	if f.history == nil {
		return nil, core.ErrUnsupported
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyGot = append(f.historyGot, id)
	return f.history[id], nil
}

func (f *fakeAdapter) FetchEvents(ctx context.Context) (*core.RawEventPage, error) {
	if f.events == nil {
		return &core.RawEventPage{}, nil
	}
	return f.events, nil
}

func (f *fakeAdapter) FetchCounters(context.Context) ([]core.RawCounter, error) {
	if f.counters == nil {
		return nil, core.ErrUnsupported
	}
	return f.counters, nil
}

func (f *fakeAdapter) FetchDailyAggregate(context.Context, time.Time) ([]core.RawDailyRecord, error) {
	if !f.dailySupported {
		return nil, core.ErrUnsupported
	}
	return f.dailyRecords, nil
}

func (f *fakeAdapter) SessionKeepAlive(_ context.Context, ids []int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keepAliveGot = append(f.keepAliveGot, ids)
	return nil
}

func (f *fakeAdapter) ReinitializeSession(context.Context, []int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reinitCalls = f.reinitCalls + 1
	return nil
}

func (f *fakeAdapter) SupportsSessionEvents() bool { return f.session }

func (f *fakeAdapter) reinits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reinitCalls
}

// fakeRepo is an in-memory core.Repository.
type fakeRepo struct {
	mu       sync.Mutex
	vehicles map[int]model.Vehicle
	sensors  map[int]model.Sensor
	buffered []model.VehicleState
	counters []model.Counter
	nextID   int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		vehicles: map[int]model.Vehicle{},
		sensors:  map[int]model.Sensor{},
	}
}

func (r *fakeRepo) UpsertVehicles(_ context.Context, vehicles []model.Vehicle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range vehicles {
		if _, ok := r.vehicles[v.ID]; !ok {
			r.vehicles[v.ID] = v
		}
	}
	return nil
}

func (r *fakeRepo) UpdateVehicleName(_ context.Context, id int, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vehicles[id]
	if !ok {
		return core.ErrNotFound
	}
	v.Name = name
	r.vehicles[id] = v
	return nil
}

func (r *fakeRepo) Vehicles(context.Context) ([]model.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Vehicle, 0, len(r.vehicles))
	for _, v := range r.vehicles {
		out = append(out, v)
	}
	return out, nil
}

func (r *fakeRepo) ActiveVehicleIDs(_ context.Context, source string) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []int{}
	for _, v := range r.vehicles {
		if v.Hidden {
			continue
		}
		if source != "" && v.Source != source {
			continue
		}
		out = append(out, v.ID)
	}
	return out, nil
}

func (r *fakeRepo) UpsertSensors(_ context.Context, sensors []model.Sensor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range sensors {
		if _, ok := r.sensors[s.ID]; !ok {
			r.sensors[s.ID] = s
		}
	}
	return nil
}

func (r *fakeRepo) SensorIDsByDestination(_ context.Context, destination int) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []int{}
	for _, s := range r.sensors {
		if s.Destination == destination {
			out = append(out, s.ID)
		}
	}
	return out, nil
}

func (r *fakeRepo) BufferState(_ context.Context, state model.VehicleState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	state.ID = r.nextID
	r.buffered = append(r.buffered, state)
	return nil
}

func (r *fakeRepo) BufferedVehicleIDs(context.Context) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[int]struct{}{}
	out := []int{}
	for _, s := range r.buffered {
		if _, ok := seen[s.VehicleID]; ok {
			continue
		}
		seen[s.VehicleID] = struct{}{}
		out = append(out, s.VehicleID)
	}
	return out, nil
}

func (r *fakeRepo) BufferedStates(_ context.Context, vehicleID, limit int) ([]model.VehicleState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.VehicleState{}
	for _, s := range r.buffered {
		if s.VehicleID == vehicleID && len(out) < limit {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeRepo) DeleteStates(_ context.Context, ids []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	drop := map[int64]struct{}{}
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := r.buffered[:0]
	for _, s := range r.buffered {
		if _, ok := drop[s.ID]; !ok {
			kept = append(kept, s)
		}
	}
	r.buffered = kept
	return nil
}

func (r *fakeRepo) SaveCounter(_ context.Context, counter model.Counter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters = append(r.counters, counter)
	return nil
}

func (r *fakeRepo) DayStats(context.Context, int64, int64) ([]model.DayStat, error) {
	return nil, nil
}

func (r *fakeRepo) OpenRunTime(context.Context, int64) (int64, error) { return 1, nil }

func (r *fakeRepo) CloseRunTime(context.Context, int64, int64) error { return nil }

func (r *fakeRepo) LastRunTime(context.Context) (*model.RunTime, error) {
	return nil, core.ErrNotFound
}

func (r *fakeRepo) counterCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.counters)
}

// fakeDest records everything it was asked to send.
type fakeDest struct {
	mu     sync.Mutex
	states map[string][]model.VehicleState
	alarms []model.Alarm
	stats  []model.DayStat
}

func newFakeDest() *fakeDest {
	return &fakeDest{states: map[string][]model.VehicleState{}}
}

func (d *fakeDest) SendTelemetry(_ context.Context, deviceKey string, states ...model.VehicleState) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.states[deviceKey] = append(d.states[deviceKey], states...)
	return nil
}

func (d *fakeDest) SendAlarm(_ context.Context, _ string, alarm model.Alarm) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.alarms = append(d.alarms, alarm)
	return nil
}

func (d *fakeDest) SendDayStat(_ context.Context, _ string, _ int64, stat model.DayStat) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stats = append(d.stats, stat)
	return nil
}

func (d *fakeDest) received(deviceKey string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.states[deviceKey])
}

func (d *fakeDest) alarmCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.alarms)
}

// repoResolver is the production resolver behavior reduced to the map
// lookup, refreshed from the fake repository.
type repoResolver struct {
	repo *fakeRepo
	mu   sync.Mutex
	m    map[int]string
}

func (r *repoResolver) Refresh(ctx context.Context) error {
	vehicles, err := r.repo.Vehicles(ctx)
	if err != nil {
		return err
	}
	next := make(map[int]string, len(vehicles))
	for _, v := range vehicles {
		next[v.ID] = v.Name
	}
	r.mu.Lock()
	r.m = next
	r.mu.Unlock()
	return nil
}

func (r *repoResolver) Resolve(id int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name, ok := r.m[id]
	return name, ok
}

func (r *repoResolver) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.m)
}

func fastOpts() *options.SyncOptions {
	opts := options.NewSyncOptions()
	opts.AuthRetryDelay = time.Millisecond
	opts.TaskRetryDelay = time.Millisecond
	return opts
}

func fastIntervals() Intervals {
	return Intervals{
		VehicleList: time.Hour,
		State:       5 * time.Millisecond,
		Counter:     5 * time.Millisecond,
		Event:       5 * time.Millisecond,
		EventPause:  5 * time.Millisecond,
	}
}

func newTestOrchestrator(adapter *fakeAdapter) (*Orchestrator, *fakeRepo, *fakeDest) {
	repo := newFakeRepo()
	dest := newFakeDest()
	res := &repoResolver{repo: repo, m: map[int]string{}}
	buf := delivery.NewBuffer(adapter.Name(), dest, repo, res, 30, 0, log.NewNopLogger())
	o := New(adapter, repo, buf, res, dest, fastOpts(), fastIntervals(), log.NewNopLogger())
	return o, repo, dest
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestRunDeliversStates(t *testing.T) {
	adapter := &fakeAdapter{
		vehicles: []core.RawVehicle{
			{ID: 42, FreeText: "МГ-5 КамАЗ", Model: "КамАЗ 5320", RegNumber: "A 123 - BC"},
		},
		states: []core.RawState{
			{VehicleID: 42, RecordedAt: time.Now(), LastFixAt: time.Now(), LastConnAt: time.Now(), Lat: 51.1, Lon: 71.4, NativeVelocity: 40},
		},
	}
	o, repo, dest := newTestOrchestrator(adapter)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	waitFor(t, func() bool { return dest.received("МГ-5 A123BC") >= 2 },
		"states never reached the destination")

	assert.Equal(t, StateRunning, o.State())

	repo.mu.Lock()
	v := repo.vehicles[42]
	repo.mu.Unlock()
	assert.Equal(t, "МГ-5 A123BC", v.Name, "canonical name must be derived on sync")
	assert.Equal(t, "A123BC", v.RegNumber)
	assert.Equal(t, "fake", v.Source)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestAuthenticateRetriesUntilSuccess(t *testing.T) {
	adapter := &fakeAdapter{
		authResults: []error{errors.New("timeout"), errCredentialsRejected, nil},
	}
	o, _, _ := newTestOrchestrator(adapter)

	require.NoError(t, o.life.Event(context.Background(), EventStart))
	require.NoError(t, o.authenticate(context.Background()))
	assert.Equal(t, 3, adapter.authCalls)
}

func TestAuthenticateStopsOnCancel(t *testing.T) {
	adapter := &fakeAdapter{
		authResults: []error{errors.New("down"), errors.New("down"), errors.New("down")},
	}
	o, _, _ := newTestOrchestrator(adapter)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()
	assert.Error(t, o.authenticate(ctx))
}

func TestSessionProviderKeepAliveOnVehicleSync(t *testing.T) {
	adapter := &fakeAdapter{
		session: true,
		vehicles: []core.RawVehicle{
			{ID: 1, RegNumber: "B456CD"},
			{ID: 2, RegNumber: "C789EF", Hidden: true},
		},
	}
	o, _, _ := newTestOrchestrator(adapter)

	require.NoError(t, o.syncVehicles(context.Background()))

	require.Len(t, adapter.keepAliveGot, 1)
	assert.Equal(t, []int{1}, adapter.keepAliveGot[0], "hidden vehicles stay off the live session")
}

func TestRecoverReinitializesSessionOnTransient(t *testing.T) {
	adapter := &fakeAdapter{}
	o, _, _ := newTestOrchestrator(adapter)

	require.NoError(t, o.recover(context.Background(), "states",
		core.Transient("fetch", errors.New("connection reset"))))
	assert.Equal(t, 1, adapter.reinits())

	// Non-transient failures keep the session.
	require.NoError(t, o.recover(context.Background(), "states", errors.New("bad payload")))
	assert.Equal(t, 1, adapter.reinits())
}

func TestLoopStopsOnUnsupported(t *testing.T) {
	adapter := &fakeAdapter{} // counters unsupported
	o, repo, _ := newTestOrchestrator(adapter)
	o.norm = newTestNormalizer(o)

	err := o.loop(context.Background(), "counters", time.Millisecond, false, o.syncCounters)
	require.NoError(t, err, "unsupported capability must stop the task, not fail it")
	assert.Zero(t, repo.counterCount())
}

func TestCountersPersisted(t *testing.T) {
	mileage := 1234.5
	adapter := &fakeAdapter{
		vehicles: []core.RawVehicle{{ID: 7, RegNumber: "B456CD"}},
		counters: []core.RawCounter{
			{VehicleID: 7, Mileage: &mileage, At: time.Now()},
		},
	}
	o, repo, _ := newTestOrchestrator(adapter)
	o.norm = newTestNormalizer(o)

	require.NoError(t, o.syncCounters(context.Background()))
	assert.Equal(t, 1, repo.counterCount())
}

func TestEventsBecomeAlarms(t *testing.T) {
	adapter := &fakeAdapter{
		vehicles: []core.RawVehicle{{ID: 42, RegNumber: "B456CD"}},
		events: &core.RawEventPage{
			Events: []core.RawEvent{
				{ID: 900, Title: "Speeding", Message: "speed 97", Level: 8,
					VehicleID: 42, DriverID: 3, RecordedAt: time.Now(), CreatedAt: time.Now()},
				{ID: 901, Title: "Zone", Level: 2,
					VehicleID: 999, RecordedAt: time.Now(), CreatedAt: time.Now()},
			},
			Drivers: []core.RawDriver{{ID: 3, FirstName: "Иван", LastName: "Петров"}},
		},
	}
	o, _, dest := newTestOrchestrator(adapter)
	o.norm = newTestNormalizer(o)

	require.NoError(t, o.syncVehicles(context.Background()))
	require.NoError(t, o.syncEvents(context.Background()))

	// Vehicle 999 is unknown to the resolver and skipped.
	require.Equal(t, 1, dest.alarmCount())
	assert.Equal(t, "Иван", dest.alarms[0].DriverFirstName)
}

func TestBootstrapBuildsFuelSet(t *testing.T) {
	adapter := &fakeAdapter{
		vehicles: []core.RawVehicle{{ID: 1, RegNumber: "B456CD"}},
		sensors: []model.Sensor{
			{ID: 7, Name: "fuel main", Destination: 100},
			{ID: 8, Name: "temp", Destination: 200},
		},
	}
	o, repo, _ := newTestOrchestrator(adapter)

	require.NoError(t, o.bootstrap(context.Background()))
	require.NotNil(t, o.norm)

	ids, err := repo.SensorIDsByDestination(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, []int{7}, ids)
}

func TestBackfillDeliversHistory(t *testing.T) {
	old := time.Now().Add(-2 * time.Hour)
	adapter := &fakeAdapter{
		vehicles: []core.RawVehicle{{ID: 42, RegNumber: "B456CD"}},
		history: map[int][]core.RawState{
			42: {{VehicleID: 42, RecordedAt: old, LastFixAt: old, LastConnAt: old,
				Lat: 51.1, Lon: 71.4, NativeVelocity: 30}},
		},
	}
	o, _, dest := newTestOrchestrator(adapter)
	o.norm = newTestNormalizer(o)
	require.NoError(t, o.syncVehicles(context.Background()))

	o.BackfillSince(time.Now().Add(-time.Hour))
	require.NoError(t, o.backfill(context.Background()))

	// The staleness filter does not apply to backfilled samples.
	assert.Equal(t, 1, dest.received("B456CD"))
	assert.Equal(t, []int{42}, adapter.historyGot)
}

func TestBackfillSkippedWithoutWindow(t *testing.T) {
	adapter := &fakeAdapter{
		vehicles: []core.RawVehicle{{ID: 42, RegNumber: "B456CD"}},
		history:  map[int][]core.RawState{},
	}
	o, _, _ := newTestOrchestrator(adapter)
	o.norm = newTestNormalizer(o)
	require.NoError(t, o.syncVehicles(context.Background()))

	require.NoError(t, o.backfill(context.Background()))
	assert.Empty(t, adapter.historyGot)
}

// newTestNormalizer builds a normalizer the way bootstrap does, for
// tests that call task methods directly.
func newTestNormalizer(o *Orchestrator) *normalize.Normalizer {
	return normalize.New(normalize.SensorSets{
		FuelIDs:       map[int]struct{}{},
		IgnitionID:    o.opts.IgnitionSensorID,
		LightID:       o.opts.LightSensorID,
		CANVelocityID: o.opts.CANVelocitySensor,
	}, o.opts.StalenessMax)
}
