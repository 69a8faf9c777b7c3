package domain

// Notification is the per-event payload pushed to WebSocket observers.
// Timestamp is already formatted in the display timezone.
type Notification struct {
	EventID           string `json:"eventId"`
	Title             string `json:"title"`
	EventType         string `json:"eventType"`
	DeviceID          string `json:"deviceId"`
	Timestamp         string `json:"timestamp"`
	AdditionalData    string `json:"additionalData"`
	ContactURL        string `json:"contactUrl"`
	TimeSinceLastCall string `json:"timeSinceLastCall"`
	PhoneNumber       string `json:"phoneNumber"`
}

// WebSocketMessage is the frame sent on the events topic. Devices carries a
// snapshot of the device directory so a fresh subscriber renders a
// consistent view before the next incremental event.
type WebSocketMessage struct {
	Event   *Notification `json:"event,omitempty"`
	Devices []Device      `json:"devices"`
}
