package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/core"
	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/core/model"
)

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "speeding on route 4", "speeding on route 4"},
		{"simple tags", "<p>speed <b>92</b> km/h</p>", "speed 92 km/h"},
		{"unclosed tag", "<div>zone exit", "zone exit"},
		{"surrounding whitespace", "  late departure \n", "late departure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripMarkup(tt.in))
		})
	}
}

func TestAlarmNormalization(t *testing.T) {
	n := newTestNormalizer(time.Now())
	recorded := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
	created := recorded.Add(2 * time.Second)

	drivers := []core.RawDriver{
		{ID: 3, FirstName: "Иван", LastName: "Петров"},
		{ID: 9, FirstName: "Anna", LastName: "Kim"},
	}

	ev := core.RawEvent{
		ID:         501,
		Title:      "Speeding",
		Message:    "<p>speed <b>97</b> km/h</p>",
		Level:      4,
		Lat:        51.16,
		Lon:        71.47,
		RecordedAt: recorded,
		CreatedAt:  created,
		VehicleID:  12,
		DriverID:   9,
		Place:      "KAD 17 km",
	}

	alarm := n.Alarm(ev, drivers)

	assert.Equal(t, 501, alarm.ID)
	assert.Equal(t, "speed 97 km/h", alarm.Message)
	assert.Equal(t, model.SeverityWarning, alarm.Severity)
	assert.Equal(t, recorded.Unix(), alarm.RecordedAt)
	assert.Equal(t, created.Unix(), alarm.CreatedAt)
	assert.Equal(t, "Anna", alarm.DriverFirstName)
	assert.Equal(t, "Kim", alarm.DriverLastName)

	// Unknown driver id leaves the driver fields empty.
	ev.DriverID = 77
	alarm = n.Alarm(ev, drivers)
	assert.Empty(t, alarm.DriverFirstName)
	assert.Empty(t, alarm.DriverLastName)
}

func TestSeverityFromLevel(t *testing.T) {
	assert.Equal(t, model.SeverityWarning, model.SeverityFromLevel(0))
	assert.Equal(t, model.SeverityWarning, model.SeverityFromLevel(6))
	assert.Equal(t, model.SeverityCritical, model.SeverityFromLevel(7))
}
