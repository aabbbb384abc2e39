// Package resolver maps provider-scoped vehicle ids to the canonical
// device names used downstream. Lookups are lock-free against an
// immutable snapshot; Refresh swaps in a fresh copy after every
// vehicle-list sync.
package resolver

import (
	"context"
	"sync/atomic"

	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/core/model"
	"github.com/TerraNova4697/wialon-citypoint/pkg/log"
)

// VehicleLister is the slice of the repository the resolver needs.
type VehicleLister interface {
	Vehicles(ctx context.Context) ([]model.Vehicle, error)
}

// Resolver resolves vehicle ids to device names from a repository-backed
// snapshot. Safe for concurrent use.
type Resolver struct {
	repo VehicleLister
	log  log.Logger

	snapshot atomic.Pointer[map[int]string]
}

// New creates a Resolver with an empty snapshot. Call Refresh before
// first use.
func New(repo VehicleLister, logger log.Logger) *Resolver {
	r := &Resolver{repo: repo, log: logger.WithName("resolver")}
	empty := map[int]string{}
	r.snapshot.Store(&empty)
	return r
}

// Refresh rebuilds the id-to-name snapshot from the vehicle catalog.
// Concurrent lookups keep reading the previous snapshot until the swap.
func (r *Resolver) Refresh(ctx context.Context) error {
	vehicles, err := r.repo.Vehicles(ctx)
	if err != nil {
		return err
	}

	next := make(map[int]string, len(vehicles))
	for _, v := range vehicles {
		next[v.ID] = v.Name
	}
	r.snapshot.Store(&next)

	r.log.Debug("resolver snapshot refreshed", "vehicles", len(next))
	return nil
}

// Resolve returns the device name for a vehicle id. The second return
// is false for ids absent from the snapshot; callers skip such records
// rather than failing the batch.
func (r *Resolver) Resolve(id int) (string, bool) {
	name, ok := (*r.snapshot.Load())[id]
	if !ok {
		r.log.Warn("unknown vehicle id, record skipped", "vehicleID", id)
	}
	return name, ok
}

// Size returns the number of entries in the current snapshot.
func (r *Resolver) Size() int {
	return len(*r.snapshot.Load())
}
