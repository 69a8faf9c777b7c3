// Package timezone enforces the UTC-at-rest discipline: every persisted
// timestamp is UTC and conversion to the display zone happens only at
// presentation or notification time.
package timezone

import (
	"regexp"
	"time"
)

// DisplayLayout is the presentation format used by notifications and the
// dashboard: dd/MM/yyyy HH:mm:ss.
const DisplayLayout = "02/01/2006 15:04:05"

// DefaultZone is the default display timezone.
const DefaultZone = "America/Sao_Paulo"

var displayPattern = regexp.MustCompile(`^\d{2}/\d{2}/\d{4} \d{2}:\d{2}:\d{2}$`)

// Service converts between UTC instants and a fixed display zone.
type Service struct {
	location *time.Location
}

// NewService loads the named display zone, falling back to UTC when the
// zone cannot be resolved.
func NewService(zone string) *Service {
	if zone == "" {
		zone = DefaultZone
	}

	loc, err := time.LoadLocation(zone)
	if err != nil {
		loc = time.UTC
	}

	return &Service{location: loc}
}

// Now returns the current instant in UTC.
func (s *Service) Now() time.Time {
	return time.Now().UTC()
}

// ToLocal converts a UTC instant to the display zone.
func (s *Service) ToLocal(t time.Time) time.Time {
	return t.In(s.location)
}

// FormatLocal renders a UTC instant in the display zone and layout.
func (s *Service) FormatLocal(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}

	return s.ToLocal(t).Format(DisplayLayout)
}

// ConvertTimestamp accepts either the display format (returned unchanged,
// it is already local) or an ISO-8601 instant (converted from UTC to the
// display zone). Anything else is returned verbatim so downstream display
// simply shows the original string.
func (s *Service) ConvertTimestamp(timestamp string) string {
	if timestamp == "" {
		return "N/A"
	}

	if displayPattern.MatchString(timestamp) {
		return timestamp
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, timestamp, time.UTC); err == nil {
			return s.FormatLocal(t)
		}
	}

	return timestamp
}

// Location exposes the configured display zone.
func (s *Service) Location() *time.Location {
	return s.location
}
