package wialon

import (
	"context"
	"encoding/json"
	"time"

	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/core"
	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/core/model"
	"github.com/TerraNova4697/wialon-citypoint/pkg/log"
	"github.com/TerraNova4697/wialon-citypoint/pkg/options"
)

// Profile-field names carrying the vehicle card. The account stores
// the registration number in the "color" property.
const (
	fieldDepartment = "vehicle_type"
	fieldModel      = "brand"
	fieldRegNumber  = "color"
)

// ignitionParam is the last-message parameter with the ignition state.
const ignitionParam = "io_239"

// Adapter implements the source contract over the Wialon remote API.
type Adapter struct {
	client *client
	log    log.Logger
}

var _ core.SourceAdapter = (*Adapter)(nil)

// New creates a Wialon adapter from its option group.
func New(opts *options.WialonOptions, logger log.Logger) *Adapter {
	l := logger.WithName("wialon")
	return &Adapter{
		client: newClient(opts.BaseURL, opts.Token, opts.RequestTimeout, l),
		log:    l,
	}
}

func (a *Adapter) Name() string { return model.SourceWialon }

// Authenticate exchanges the long-lived token for a session id. A
// rejected token returns (false, nil); transport failures return a
// TransientError.
func (a *Adapter) Authenticate(ctx context.Context) (bool, error) {
	var resp loginResponse
	err := a.client.call(ctx, "token/login", map[string]string{"token": a.client.token}, &resp)
	if err != nil {
		if core.IsTransient(err) {
			return false, err
		}
		a.log.Warn("login rejected", "err", err.Error())
		return false, nil
	}
	if resp.EID == "" {
		return false, nil
	}

	a.client.setSessionID(resp.EID)
	a.log.Info("session established", "user", resp.User.Name)
	return true, nil
}

func (a *Adapter) ListVehicles(ctx context.Context) ([]core.RawVehicle, error) {
	var resp searchResponse
	if err := a.client.call(ctx, "core/search_items", unitSearch(vehicleListFlags), &resp); err != nil {
		return nil, err
	}

	vehicles := make([]core.RawVehicle, 0, len(resp.Items))
	for _, item := range resp.Items {
		v := core.RawVehicle{ID: item.ID, FreeText: item.Name}
		for _, field := range item.ProfileFields {
			switch field.Name {
			case fieldDepartment:
				v.Department = field.Value
			case fieldModel:
				v.Model = field.Value
			case fieldRegNumber:
				v.RegNumber = field.Value
			}
		}
		// Units without a registration number cannot be named downstream.
		if v.RegNumber == "" {
			a.log.Warn("unit without registration number skipped", "unitID", item.ID)
			continue
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, nil
}

// ListSensors is unsupported: Wialon exposes readings as last-message
// parameters, not a sensor catalog.
func (a *Adapter) ListSensors(ctx context.Context) ([]model.Sensor, error) {
	return nil, core.ErrUnsupported
}

func (a *Adapter) FetchCurrentStates(ctx context.Context, vehicleIDs []int) ([]core.RawState, error) {
	var resp searchResponse
	if err := a.client.call(ctx, "core/search_items", unitSearch(stateFlags), &resp); err != nil {
		return nil, err
	}

	want := make(map[int]struct{}, len(vehicleIDs))
	for _, id := range vehicleIDs {
		want[id] = struct{}{}
	}

	states := make([]core.RawState, 0, len(resp.Items))
	for _, item := range resp.Items {
		if len(want) > 0 {
			if _, ok := want[item.ID]; !ok {
				continue
			}
		}
		msg := item.LastMessage
		if msg == nil || msg.Position == nil {
			continue
		}

		state := core.RawState{
			VehicleID:      item.ID,
			RecordedAt:     time.Unix(msg.Time, 0),
			LastFixAt:      time.Unix(msg.Time, 0),
			LastConnAt:     time.Unix(msg.ReceivedAt, 0),
			Lat:            msg.Position.Lat,
			Lon:            msg.Position.Lon,
			NativeVelocity: msg.Position.Speed,
		}
		if v, ok := msg.Params[ignitionParam]; ok {
			ignition := int(v)
			state.Ignition = &ignition
		}
		states = append(states, state)
	}
	return states, nil
}

func (a *Adapter) FetchHistoricalStates(ctx context.Context, vehicleID int, from, to time.Time) ([]core.RawState, error) {
	params := map[string]any{
		"itemId":    vehicleID,
		"timeFrom":  from.Unix(),
		"timeTo":    to.Unix(),
		"flags":     1,
		"flagsMask": 65281,
		"loadCount": 0xffffffff,
	}

	var resp messagesResponse
	if err := a.client.call(ctx, "messages/load_interval", params, &resp); err != nil {
		return nil, err
	}

	states := make([]core.RawState, 0, len(resp.Messages))
	for _, msg := range resp.Messages {
		if msg.Position == nil {
			continue
		}
		states = append(states, core.RawState{
			VehicleID:      vehicleID,
			RecordedAt:     time.Unix(msg.Time, 0),
			LastFixAt:      time.Unix(msg.Time, 0),
			LastConnAt:     time.Unix(msg.Time, 0),
			Lat:            msg.Position.Lat,
			Lon:            msg.Position.Lon,
			NativeVelocity: msg.Position.Speed,
		})
	}
	return states, nil
}

// FetchEvents long-polls the session event stream. Unit-data messages
// are skipped (the state task covers them); only notification
// messages become events.
func (a *Adapter) FetchEvents(ctx context.Context) (*core.RawEventPage, error) {
	var resp avlEventsResponse
	if err := a.client.longPoll(ctx, &resp); err != nil {
		return nil, err
	}

	page := &core.RawEventPage{}
	for _, ev := range resp.Events {
		if ev.Type != "m" {
			continue
		}
		var msg eventMessage
		if err := json.Unmarshal(ev.Data, &msg); err != nil || msg.Kind != "evt" {
			continue
		}

		// The stream carries no event id; the message time is unique
		// enough for downstream correlation.
		raw := core.RawEvent{
			ID:         int(msg.Time),
			Title:      "Wialon event",
			Message:    msg.Text,
			RecordedAt: time.Unix(msg.Time, 0),
			CreatedAt:  time.Unix(resp.Time, 0),
			VehicleID:  ev.UnitID,
		}
		if msg.Position != nil {
			raw.Lat = msg.Position.Lat
			raw.Lon = msg.Position.Lon
		}
		page.Events = append(page.Events, raw)
	}
	return page, nil
}

func (a *Adapter) FetchCounters(ctx context.Context) ([]core.RawCounter, error) {
	var resp searchResponse
	if err := a.client.call(ctx, "core/search_items", unitSearch(counterFlags), &resp); err != nil {
		return nil, err
	}

	now := time.Now()
	counters := make([]core.RawCounter, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.MileageCounter == nil && item.EngineHours == nil {
			continue
		}
		counters = append(counters, core.RawCounter{
			VehicleID:   item.ID,
			Mileage:     item.MileageCounter,
			EngineHours: item.EngineHours,
			At:          now,
		})
	}
	return counters, nil
}

// FetchDailyAggregate is unsupported: day statistics are computed from
// the counter snapshots in the repository.
func (a *Adapter) FetchDailyAggregate(ctx context.Context, date time.Time) ([]core.RawDailyRecord, error) {
	return nil, core.ErrUnsupported
}

// SessionKeepAlive registers the given units on the session so their
// messages flow into the event long-poll.
func (a *Adapter) SessionKeepAlive(ctx context.Context, vehicleIDs []int) error {
	params := updateFlagsParams{Spec: []updateFlagsSpec{{
		Type:  "col",
		Data:  vehicleIDs,
		Flags: sessionDataFlags,
		Mode:  0,
	}}}
	var ignored map[string]any
	return a.client.call(ctx, "core/update_data_flags", params, &ignored)
}

// ReinitializeSession rebuilds the transport and re-registers the
// units after a transient failure.
func (a *Adapter) ReinitializeSession(ctx context.Context, vehicleIDs []int) error {
	a.client.reset()
	return a.SessionKeepAlive(ctx, vehicleIDs)
}

func (a *Adapter) SupportsSessionEvents() bool { return true }
