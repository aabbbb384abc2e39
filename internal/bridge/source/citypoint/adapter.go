package citypoint

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/core"
	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/core/model"
	"github.com/TerraNova4697/wialon-citypoint/pkg/log"
	"github.com/TerraNova4697/wialon-citypoint/pkg/options"
)

const (
	carsPath   = "/cars?filter[car]=eq(IsHidden,0)"
	statesPath = "/cars/states?fields[carState]=Lon,Lat,Velocity,RecordDate,LattestGpsDate,LattestConnectionTime,Sensors.value,Sensors.calibration"
	eventsPath = "/notifications?include=Driver,Zone,Car&page[limit]=10"
)

// Adapter implements the source contract over the CityPoint REST API.
type Adapter struct {
	client *client
	offset time.Duration
	log    log.Logger
}

var _ core.SourceAdapter = (*Adapter)(nil)

// New creates a CityPoint adapter from its option group.
func New(opts *options.CityPointOptions, logger log.Logger) *Adapter {
	l := logger.WithName("citypoint")
	return &Adapter{
		client: newClient(opts.BaseURL, opts.Login, opts.Password,
			opts.ClientID, opts.ClientSecret, opts.RequestTimeout, l),
		offset: opts.ClockOffset,
		log:    l,
	}
}

func (a *Adapter) Name() string { return model.SourceCityPoint }

func (a *Adapter) Authenticate(ctx context.Context) (bool, error) {
	ok, err := a.client.authenticate(ctx)
	if err != nil {
		return false, err
	}
	if ok {
		a.log.Info("authenticated", "userID", a.client.user())
	}
	return ok, nil
}

func (a *Adapter) ListVehicles(ctx context.Context) ([]core.RawVehicle, error) {
	var doc document
	if err := a.client.get(ctx, carsPath, false, &doc); err != nil {
		return nil, err
	}

	vehicles := make([]core.RawVehicle, 0, len(doc.Data))
	for _, res := range doc.Data {
		id, err := strconv.Atoi(res.ID)
		if err != nil {
			a.log.Warn("car with non-numeric id skipped", "id", res.ID)
			continue
		}
		var attrs carAttributes
		if err := json.Unmarshal(res.Attributes, &attrs); err != nil {
			a.log.Warn("malformed car attributes skipped", "id", res.ID, "err", err.Error())
			continue
		}
		vehicles = append(vehicles, core.RawVehicle{
			ID:        id,
			FreeText:  attrs.Name,
			Model:     attrs.Model,
			RegNumber: attrs.RegNumber,
			Hidden:    attrs.IsHidden != 0,
		})
	}
	return vehicles, nil
}

func (a *Adapter) ListSensors(ctx context.Context) ([]model.Sensor, error) {
	var doc document
	if err := a.client.get(ctx, "/sensors", true, &doc); err != nil {
		return nil, err
	}

	sensors := make([]model.Sensor, 0, len(doc.Data))
	for _, res := range doc.Data {
		id, err := strconv.Atoi(res.ID)
		if err != nil {
			continue
		}
		var attrs sensorAttributes
		if err := json.Unmarshal(res.Attributes, &attrs); err != nil {
			continue
		}
		sensors = append(sensors, model.Sensor{
			ID:          id,
			Name:        attrs.Name,
			Destination: attrs.Destination,
			Type:        attrs.Type,
		})
	}
	return sensors, nil
}

func (a *Adapter) FetchCurrentStates(ctx context.Context, vehicleIDs []int) ([]core.RawState, error) {
	var doc document
	if err := a.client.get(ctx, statesPath, false, &doc); err != nil {
		return nil, err
	}

	want := make(map[int]struct{}, len(vehicleIDs))
	for _, id := range vehicleIDs {
		want[id] = struct{}{}
	}

	states := make([]core.RawState, 0, len(doc.Data))
	for _, res := range doc.Data {
		id, err := strconv.Atoi(res.ID)
		if err != nil {
			continue
		}
		if len(want) > 0 {
			if _, ok := want[id]; !ok {
				continue
			}
		}

		var attrs stateAttributes
		if err := json.Unmarshal(res.Attributes, &attrs); err != nil {
			a.log.Warn("malformed state skipped", "id", res.ID, "err", err.Error())
			continue
		}

		recorded, err := a.parseTime(attrs.RecordDate)
		if err != nil {
			a.log.Warn("state with bad RecordDate skipped", "id", res.ID, "value", attrs.RecordDate)
			continue
		}
		fix, err := a.parseTime(attrs.LattestGpsDate)
		if err != nil {
			a.log.Warn("state with bad LattestGpsDate skipped", "id", res.ID, "value", attrs.LattestGpsDate)
			continue
		}
		conn, err := a.parseTime(attrs.LattestConnectionTime)
		if err != nil {
			conn = fix
		}

		state := core.RawState{
			VehicleID:      id,
			RecordedAt:     recorded,
			LastFixAt:      fix,
			LastConnAt:     conn,
			Lat:            attrs.Lat,
			Lon:            attrs.Lon,
			NativeVelocity: attrs.Velocity,
		}
		for _, s := range attrs.Sensors {
			state.Sensors = append(state.Sensors, core.SensorReading{SensorID: s.ID, Value: s.Value})
		}
		states = append(states, state)
	}
	return states, nil
}

func (a *Adapter) FetchHistoricalStates(ctx context.Context, vehicleID int, from, to time.Time) ([]core.RawState, error) {
	path := fmt.Sprintf(
		"/cars/%d/history/full?fields[histState]=Velocity,Lat,Lon,RecordDate&filter[histState]=and(gte(Velocity,3),gt(RecordDate,%s))",
		vehicleID, from.Format(timeLayout))

	var doc document
	if err := a.client.get(ctx, path, false, &doc); err != nil {
		return nil, err
	}

	states := make([]core.RawState, 0, len(doc.Data))
	for _, res := range doc.Data {
		var attrs histStateAttributes
		if err := json.Unmarshal(res.Attributes, &attrs); err != nil {
			continue
		}
		recorded, err := a.parseTime(attrs.RecordDate)
		if err != nil || recorded.After(to) {
			continue
		}
		states = append(states, core.RawState{
			VehicleID:      vehicleID,
			RecordedAt:     recorded,
			LastFixAt:      recorded,
			LastConnAt:     recorded,
			Lat:            attrs.Lat,
			Lon:            attrs.Lon,
			NativeVelocity: attrs.Velocity,
		})
	}
	return states, nil
}

// FetchEvents polls the notification feed with the driver side-load.
func (a *Adapter) FetchEvents(ctx context.Context) (*core.RawEventPage, error) {
	var doc document
	if err := a.client.get(ctx, eventsPath, false, &doc); err != nil {
		return nil, err
	}

	page := &core.RawEventPage{}
	for _, res := range doc.Data {
		id, err := strconv.Atoi(res.ID)
		if err != nil {
			continue
		}
		var attrs notificationAttributes
		if err := json.Unmarshal(res.Attributes, &attrs); err != nil {
			a.log.Warn("malformed notification skipped", "id", res.ID, "err", err.Error())
			continue
		}

		recorded, err := a.parseTime(attrs.RecordDate)
		if err != nil {
			continue
		}
		created, err := a.parseTime(attrs.CreationDate)
		if err != nil {
			created = recorded
		}

		ev := core.RawEvent{
			ID:         id,
			Title:      attrs.Title,
			Message:    attrs.Message,
			Level:      attrs.Level,
			Lat:        attrs.Lat,
			Lon:        attrs.Lon,
			RecordedAt: recorded,
			CreatedAt:  created,
			Place:      attrs.Place,
		}
		if rel, ok := res.Relationships["Car"]; ok && rel.Data != nil {
			if carID, err := strconv.Atoi(rel.Data.ID); err == nil {
				ev.VehicleID = carID
			}
		}
		if rel, ok := res.Relationships["Driver"]; ok && rel.Data != nil {
			if driverID, err := strconv.Atoi(rel.Data.ID); err == nil {
				ev.DriverID = driverID
			}
		}
		page.Events = append(page.Events, ev)
	}

	for _, res := range doc.Included {
		if res.Type != "driver" {
			continue
		}
		id, err := strconv.Atoi(res.ID)
		if err != nil {
			continue
		}
		var attrs driverAttributes
		if err := json.Unmarshal(res.Attributes, &attrs); err != nil {
			continue
		}
		page.Drivers = append(page.Drivers, core.RawDriver{
			ID:        id,
			FirstName: attrs.FirstName,
			LastName:  attrs.LastName,
		})
	}
	return page, nil
}

// FetchCounters is unsupported: odometer data arrives through the
// provider's precomputed daily aggregates instead.
func (a *Adapter) FetchCounters(ctx context.Context) ([]core.RawCounter, error) {
	return nil, core.ErrUnsupported
}

func (a *Adapter) FetchDailyAggregate(ctx context.Context, date time.Time) ([]core.RawDailyRecord, error) {
	path := fmt.Sprintf(
		"/cars/aggregated/%s/day?fields[carAggrData]=Mileage,WorkingHours,FuelConsumptionHour,FuelConsumptionKm,IdleFuelVolume,IdleHours,Car",
		date.Format("2006-01-02"))

	var doc document
	if err := a.client.get(ctx, path, false, &doc); err != nil {
		return nil, err
	}

	records := make([]core.RawDailyRecord, 0, len(doc.Data))
	for _, res := range doc.Data {
		var attrs aggregateAttributes
		if err := json.Unmarshal(res.Attributes, &attrs); err != nil {
			continue
		}
		rec := core.RawDailyRecord{
			Mileage:      attrs.Mileage,
			WorkingHours: attrs.WorkingHours,
		}
		if rel, ok := res.Relationships["Car"]; ok && rel.Data != nil {
			if carID, err := strconv.Atoi(rel.Data.ID); err == nil {
				rec.VehicleID = carID
			}
		}
		if rec.VehicleID == 0 {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// SessionKeepAlive is a no-op: the token carries the session.
func (a *Adapter) SessionKeepAlive(ctx context.Context, vehicleIDs []int) error { return nil }

// ReinitializeSession rebuilds the transport after a transient failure.
func (a *Adapter) ReinitializeSession(ctx context.Context, vehicleIDs []int) error {
	a.client.reset()
	return nil
}

func (a *Adapter) SupportsSessionEvents() bool { return false }

// parseTime parses a provider wall-clock string and applies the
// configured offset.
func (a *Adapter) parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.Add(a.offset), nil
}
