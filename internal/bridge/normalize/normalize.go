// Package normalize converts raw provider payloads into canonical
// records. All provider-specific wire decoding happens in the
// adapters; this package only applies the source-independent rules:
// the staleness filter, semantic sensor classification, unit fallbacks
// and the vehicle-name derivation.
package normalize

import (
	"time"

	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/core"
	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/core/model"
)

// SensorSets is the per-source semantic sensor mapping, resolved once
// at sync start from the sensor catalog and configuration.
type SensorSets struct {
	// FuelIDs are the catalog ids classified as fuel level sensors.
	FuelIDs map[int]struct{}

	// Fixed sensor ids within a state payload.
	IgnitionID    int
	LightID       int
	CANVelocityID int
}

// Normalizer applies the canonical conversion rules. The zero value is
// not usable; construct with New.
type Normalizer struct {
	sets         SensorSets
	stalenessMax time.Duration

	// now is swapped in tests.
	now func() time.Time
}

// New creates a Normalizer with the given sensor mapping and staleness
// cutoff.
func New(sets SensorSets, stalenessMax time.Duration) *Normalizer {
	return &Normalizer{
		sets:         sets,
		stalenessMax: stalenessMax,
		now:          time.Now,
	}
}

// State converts one raw current-state record. The second return is
// false when the record was discarded by the staleness filter: a GPS
// fix older than the cutoff is neither forwarded nor buffered.
func (n *Normalizer) State(raw core.RawState) (model.VehicleState, bool) {
	if n.now().Sub(raw.LastFixAt) > n.stalenessMax {
		return model.VehicleState{}, false
	}
	return n.convert(raw), true
}

// HistoricalState converts one backfilled record. The staleness filter
// does not apply: history is old by definition.
func (n *Normalizer) HistoricalState(raw core.RawState) model.VehicleState {
	return n.convert(raw)
}

func (n *Normalizer) convert(raw core.RawState) model.VehicleState {
	state := model.VehicleState{
		Timestamp: raw.RecordedAt.Unix(),
		Lat:       raw.Lat,
		Lon:       raw.Lon,
		Velocity:  raw.NativeVelocity,
		LastConn:  raw.LastConnAt.Unix(),
		VehicleID: raw.VehicleID,
		Ignition:  raw.Ignition,
		Light:     raw.Light,
	}

	for _, reading := range raw.Sensors {
		switch {
		case reading.SensorID == n.sets.CANVelocityID:
			state.Velocity = int(reading.Value)
		case reading.SensorID == n.sets.IgnitionID && state.Ignition == nil:
			v := int(reading.Value)
			state.Ignition = &v
		case reading.SensorID == n.sets.LightID && state.Light == nil:
			v := int(reading.Value)
			state.Light = &v
		default:
			if _, ok := n.sets.FuelIDs[reading.SensorID]; ok && state.FuelLevel == nil {
				// Fuel level is stored only when positive.
				if reading.Value > 0 {
					v := reading.Value
					state.FuelLevel = &v
				}
			}
		}
	}

	return state
}

// Counter converts one raw counter reading. Fractional engine hours
// become whole engine seconds (truncated). The second return is false
// when both values are absent.
func (n *Normalizer) Counter(raw core.RawCounter) (model.Counter, bool) {
	if raw.Mileage == nil && raw.EngineHours == nil {
		return model.Counter{}, false
	}

	counter := model.Counter{
		Mileage:   raw.Mileage,
		Timestamp: raw.At.Unix(),
		VehicleID: raw.VehicleID,
	}
	if raw.EngineHours != nil {
		secs := int64(*raw.EngineHours * 3600)
		counter.EngineSeconds = &secs
	}

	return counter, true
}
