package citypoint

import "encoding/json"

// The API speaks JSON:API: every payload is a data array of resources
// with string ids and PascalCase attributes, plus an included array
// for side-loaded relationships.

const timeLayout = "2006-01-02T15:04:05Z"

type tokenResponse struct {
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type resource struct {
	Type          string                  `json:"type"`
	ID            string                  `json:"id"`
	Attributes    json.RawMessage         `json:"attributes"`
	Relationships map[string]relationship `json:"relationships"`
}

type relationship struct {
	Data *resourceRef `json:"data"`
}

type resourceRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type document struct {
	Data     []resource `json:"data"`
	Included []resource `json:"included"`
}

type carAttributes struct {
	Name      string `json:"Name"`
	Model     string `json:"Model"`
	RegNumber string `json:"RegNumber"`
	IsHidden  int    `json:"IsHidden"`
}

type sensorAttributes struct {
	Name        string `json:"Name"`
	Destination int    `json:"Destination"`
	Type        int    `json:"Type"`
}

type sensorValue struct {
	ID    int     `json:"id"`
	Value float64 `json:"value"`
}

type stateAttributes struct {
	Lat                   float64       `json:"Lat"`
	Lon                   float64       `json:"Lon"`
	Velocity              int           `json:"Velocity"`
	RecordDate            string        `json:"RecordDate"`
	LattestGpsDate        string        `json:"LattestGpsDate"`
	LattestConnectionTime string        `json:"LattestConnectionTime"`
	Sensors               []sensorValue `json:"Sensors"`
}

type histStateAttributes struct {
	Lat        float64 `json:"Lat"`
	Lon        float64 `json:"Lon"`
	Velocity   int     `json:"Velocity"`
	RecordDate string  `json:"RecordDate"`
}

type notificationAttributes struct {
	Title        string  `json:"Title"`
	Message      string  `json:"Message"`
	Level        int     `json:"Level"`
	Lat          float64 `json:"Lat"`
	Lon          float64 `json:"Lon"`
	RecordDate   string  `json:"RecordDate"`
	CreationDate string  `json:"CreationDate"`
	Place        string  `json:"Place"`
}

type driverAttributes struct {
	FirstName string `json:"FirstName"`
	LastName  string `json:"LastName"`
}

type aggregateAttributes struct {
	Mileage      float64 `json:"Mileage"`
	WorkingHours float64 `json:"WorkingHours"`
}
