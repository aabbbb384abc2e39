package aggregate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/core/model"
	"github.com/TerraNova4697/wialon-citypoint/pkg/log"
)

type fakeStatsStore struct {
	gotStart, gotEnd int64
	stats            []model.DayStat
	err              error
}

func (f *fakeStatsStore) DayStats(_ context.Context, startTS, endTS int64) ([]model.DayStat, error) {
	f.gotStart, f.gotEnd = startTS, endTS
	return f.stats, f.err
}

type sentStat struct {
	deviceKey string
	ts        int64
	stat      model.DayStat
}

type fakeDayDest struct {
	failFor map[int]bool
	sent    []sentStat
}

func (f *fakeDayDest) SendTelemetry(context.Context, string, ...model.VehicleState) error {
	return nil
}

func (f *fakeDayDest) SendAlarm(context.Context, string, model.Alarm) error { return nil }

func (f *fakeDayDest) SendDayStat(_ context.Context, deviceKey string, ts int64, stat model.DayStat) error {
	if f.failFor[stat.VehicleID] {
		return errors.New("downstream unavailable")
	}
	f.sent = append(f.sent, sentStat{deviceKey: deviceKey, ts: ts, stat: stat})
	return nil
}

type staticResolver map[int]string

func (s staticResolver) Resolve(id int) (string, bool) {
	name, ok := s[id]
	return name, ok
}

func TestReportWindowAndDelivery(t *testing.T) {
	store := &fakeStatsStore{stats: []model.DayStat{
		{VehicleID: 1, Mileage: 42.5, EngineSeconds: 5400},
		{VehicleID: 2, Mileage: 7},
		{VehicleID: 99}, // unknown to the resolver, skipped
	}}
	dest := &fakeDayDest{}
	r := NewReporter(store, dest, staticResolver{1: "B456CD", 2: "C789EF"}, log.NewNopLogger())

	day := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	require.NoError(t, r.Report(context.Background(), day))

	dayStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, dayStart.Unix(), store.gotStart)
	assert.Equal(t, dayStart.AddDate(0, 0, 1).Unix(), store.gotEnd)

	require.Len(t, dest.sent, 2)
	assert.Equal(t, "B456CD", dest.sent[0].deviceKey)
	assert.Equal(t, dayStart.Unix(), dest.sent[0].ts)
	assert.Equal(t, 42.5, dest.sent[0].stat.Mileage)
	assert.Equal(t, int64(5400), dest.sent[0].stat.EngineSeconds)
}

func TestReportContinuesPastSendFailure(t *testing.T) {
	store := &fakeStatsStore{stats: []model.DayStat{
		{VehicleID: 1, Mileage: 1},
		{VehicleID: 2, Mileage: 2},
	}}
	dest := &fakeDayDest{failFor: map[int]bool{1: true}}
	r := NewReporter(store, dest, staticResolver{1: "A", 2: "B"}, log.NewNopLogger())

	err := r.Report(context.Background(), time.Now())
	require.Error(t, err)

	require.Len(t, dest.sent, 1, "later vehicles must still be delivered")
	assert.Equal(t, "B", dest.sent[0].deviceKey)
}

func TestReportStoreError(t *testing.T) {
	store := &fakeStatsStore{err: errors.New("db down")}
	r := NewReporter(store, &fakeDayDest{}, staticResolver{}, log.NewNopLogger())
	assert.Error(t, r.Report(context.Background(), time.Now()))
}

func TestRunRejectsBadTime(t *testing.T) {
	r := NewReporter(&fakeStatsStore{}, &fakeDayDest{}, staticResolver{}, log.NewNopLogger())
	assert.Error(t, r.Run(context.Background(), "25:99"))
}

func TestNextRun(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

	next, err := NextRun(now, "10:15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 10, 15, 0, 0, time.UTC), next)

	// Time already past today rolls to tomorrow.
	next, err = NextRun(now, "00:10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 3, 0, 10, 0, 0, time.UTC), next)

	_, err = NextRun(now, "not-a-time")
	assert.Error(t, err)
}
