// Package model holds the canonical entities of the bridge. They are
// decoupled from both the upstream providers' wire formats and the
// storage schema so the synchronization core never depends on either.
package model

// Source tags identifying which upstream a vehicle was seen on.
const (
	SourceWialon    = "wialon"
	SourceCityPoint = "city_point"
)

// Vehicle is the canonical representation of a tracked asset.
// The id is provider-scoped; the bridge never deletes vehicles.
type Vehicle struct {
	ID         int
	Name       string
	Department string
	Model      string
	RegNumber  string
	Hidden     bool
	Source     string
}

// Sensor is one entry of a provider's sensor catalog. The destination
// code is the semantic channel (fuel=100, ignition=1, light=1300) used
// to classify raw readings into canonical fields.
type Sensor struct {
	ID          int
	Name        string
	Destination int
	Type        int
}
