package model

// Severity buckets for alarms pushed downstream.
type Severity string

const (
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// severityThreshold is the raw provider level above which an alarm is
// considered critical.
const severityThreshold = 6

// SeverityFromLevel maps a provider's raw alarm level into the
// two-bucket severity scheme.
func SeverityFromLevel(level int) Severity {
	if level <= severityThreshold {
		return SeverityWarning
	}
	return SeverityCritical
}

// Alarm is a provider-raised violation or event, normalized for
// delivery. Message is plain text with any markup stripped.
type Alarm struct {
	ID              int
	Title           string
	Message         string
	Severity        Severity
	Lat             float64
	Lon             float64
	RecordedAt      int64
	CreatedAt       int64
	VehicleID       int
	DriverFirstName string
	DriverLastName  string
	Place           string
}
