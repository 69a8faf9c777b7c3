package domain

import (
	"context"
	"time"
)

// Known call event types. Devices may send tags outside this set; the
// event type is an open string and unknown tags are stored untouched.
const (
	EventTypeReceived = "RECEIVED"
	EventTypeMissed   = "MISSED"
	EventTypeAnswered = "ANSWERED"
	EventTypeBusy     = "BUSY"
)

// Event is an immutable call event reported by a device. Timestamp is
// always UTC at rest; PhoneNumber is empty or already normalized.
type Event struct {
	ID             string    `json:"id"`
	DeviceID       string    `json:"deviceId"`
	EventType      string    `json:"eventType"`
	Timestamp      time.Time `json:"timestamp"`
	PhoneNumber    string    `json:"phoneNumber"`
	Description    string    `json:"description"`
	AdditionalData string    `json:"additionalData"`
}

// Device is a registered telephony device.
type Device struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	LastSeen time.Time `json:"lastSeen"`
	Active   bool      `json:"active"`
}

// EventStore is the append-only event log.
type EventStore interface {
	Save(ctx context.Context, event *Event) error
	SaveBatch(ctx context.Context, events []Event) error
	FindAll(ctx context.Context) ([]Event, error)
	FindByPhoneNumberDesc(ctx context.Context, phoneNumber string) ([]Event, error)
	FindMostRecent(ctx context.Context, limit int) ([]Event, error)
}

// DeviceDirectory tracks devices and their last-seen timestamps.
type DeviceDirectory interface {
	FindByID(ctx context.Context, id string) (*Device, error)
	UpsertLastSeen(ctx context.Context, id string, seenAt time.Time) error
	FindAll(ctx context.Context) ([]Device, error)
}

// Broadcaster fans a notification out to every live subscriber. Delivery
// is best-effort per subscriber and must never block the caller.
type Broadcaster interface {
	Broadcast(message WebSocketMessage)
}

// EventService is the ingestion and query surface consumed by the HTTP layer.
type EventService interface {
	Create(ctx context.Context, req *EventRequest) (*Event, error)
	CreateBulk(ctx context.Context, req *BulkEventRequest) (*BulkEventResponse, error)
	List(ctx context.Context) ([]Event, error)
	Recent(ctx context.Context, limit int) ([]Event, error)
}

// DashboardService computes dashboard statistics for a requested period.
type DashboardService interface {
	Stats(ctx context.Context, period string) (*DashboardStats, error)
}
