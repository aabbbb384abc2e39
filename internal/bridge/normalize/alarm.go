package normalize

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/core"
	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/core/model"
)

// StripMarkup flattens HTML in a notification message into plain text.
// Malformed markup degrades to the raw string rather than an error.
func StripMarkup(s string) string {
	if !strings.ContainsRune(s, '<') {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(doc.Text())
}

// Alarm converts one raw event into a canonical alarm, resolving the
// driver id against the page's side-loaded driver list. Unknown driver
// ids leave the driver name empty.
func (n *Normalizer) Alarm(ev core.RawEvent, drivers []core.RawDriver) model.Alarm {
	alarm := model.Alarm{
		ID:         ev.ID,
		Title:      ev.Title,
		Message:    StripMarkup(ev.Message),
		Severity:   model.SeverityFromLevel(ev.Level),
		Lat:        ev.Lat,
		Lon:        ev.Lon,
		RecordedAt: ev.RecordedAt.Unix(),
		CreatedAt:  ev.CreatedAt.Unix(),
		VehicleID:  ev.VehicleID,
		Place:      ev.Place,
	}

	for _, d := range drivers {
		if d.ID == ev.DriverID {
			alarm.DriverFirstName = strings.TrimSpace(d.FirstName)
			alarm.DriverLastName = strings.TrimSpace(d.LastName)
			break
		}
	}

	return alarm
}
