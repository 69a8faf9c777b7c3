package domain

import "strconv"

// EventRequest is a call event as submitted by a device.
type EventRequest struct {
	DeviceID       string `json:"deviceId" example:"d1"`
	EventType      string `json:"eventType" example:"RECEIVED"`
	Description    string `json:"description" example:"Chamada recebida"`
	AdditionalData string `json:"additionalData" example:"{\"numero\":\"061981122752\"}"`
	// Timestamp is optional; when zero the server stamps the current UTC time.
	Timestamp int64 `json:"timestamp,omitempty" example:"1732233600"`
}

// GetUniqueKey builds the deduplication key used by the bulk ingestion
// path: `deviceId|eventType|timestamp|additionalData` identifies a retry
// of the same device report.
func (e EventRequest) GetUniqueKey() string {
	return e.DeviceID + "|" + e.EventType + "|" + strconv.FormatInt(e.Timestamp, 10) + "|" + e.AdditionalData
}

// BulkEventRequest is a batch of events, used for backfilling reports a
// device queued while offline.
type BulkEventRequest struct {
	Events []EventRequest `json:"events"`
}
