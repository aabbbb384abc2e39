package resolver

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/core/model"
	"github.com/TerraNova4697/wialon-citypoint/pkg/log"
)

type fakeLister struct {
	mu       sync.Mutex
	vehicles []model.Vehicle
	err      error
}

func (f *fakeLister) Vehicles(context.Context) ([]model.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.vehicles, f.err
}

func (f *fakeLister) set(vehicles []model.Vehicle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vehicles = vehicles
}

func TestResolveUnknownBeforeRefresh(t *testing.T) {
	r := New(&fakeLister{}, log.NewNopLogger())

	_, ok := r.Resolve(1)
	assert.False(t, ok)
	assert.Zero(t, r.Size())
}

func TestRefreshSwapsSnapshot(t *testing.T) {
	lister := &fakeLister{vehicles: []model.Vehicle{
		{ID: 1, Name: "МГ-5 A123BC"},
		{ID: 2, Name: "B456CD"},
	}}
	r := New(lister, log.NewNopLogger())

	require.NoError(t, r.Refresh(context.Background()))

	name, ok := r.Resolve(1)
	require.True(t, ok)
	assert.Equal(t, "МГ-5 A123BC", name)

	_, ok = r.Resolve(99)
	assert.False(t, ok)

	lister.set([]model.Vehicle{{ID: 99, Name: "C789EF"}})
	require.NoError(t, r.Refresh(context.Background()))

	_, ok = r.Resolve(1)
	assert.False(t, ok, "entries absent from the new catalog must drop out")
	name, ok = r.Resolve(99)
	require.True(t, ok)
	assert.Equal(t, "C789EF", name)
}

func TestRefreshErrorKeepsSnapshot(t *testing.T) {
	lister := &fakeLister{vehicles: []model.Vehicle{{ID: 1, Name: "B456CD"}}}
	r := New(lister, log.NewNopLogger())
	require.NoError(t, r.Refresh(context.Background()))

	lister.mu.Lock()
	lister.err = errors.New("db down")
	lister.mu.Unlock()

	require.Error(t, r.Refresh(context.Background()))

	name, ok := r.Resolve(1)
	require.True(t, ok, "failed refresh must not clear the snapshot")
	assert.Equal(t, "B456CD", name)
}

func TestConcurrentResolveDuringRefresh(t *testing.T) {
	lister := &fakeLister{vehicles: []model.Vehicle{{ID: 1, Name: "B456CD"}}}
	r := New(lister, log.NewNopLogger())
	require.NoError(t, r.Refresh(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				if name, ok := r.Resolve(1); ok {
					assert.Equal(t, "B456CD", name)
				}
			}
		}()
	}
	for i := 0; i < 100; i++ {
		require.NoError(t, r.Refresh(context.Background()))
	}
	wg.Wait()
}
