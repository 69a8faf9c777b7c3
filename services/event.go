package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"binacloud/monitor/domain"
	"binacloud/monitor/phonenumber"
	"binacloud/monitor/timezone"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrValidation is returned when an event is missing its required
// identifying field. It is the only error surfaced before persistence.
var ErrValidation = errors.New("deviceId is required")

var _ domain.EventService = (*eventService)(nil)

type eventService struct {
	store          domain.EventStore
	devices        domain.DeviceDirectory
	broadcaster    domain.Broadcaster
	history        *CallHistory
	clock          *timezone.Service
	batcher        *EventBatcher
	contactURLBase string
	log            zerolog.Logger
}

// EventServiceDeps carries the collaborators of the ingestion pipeline.
type EventServiceDeps struct {
	Store          domain.EventStore
	Devices        domain.DeviceDirectory
	Broadcaster    domain.Broadcaster
	History        *CallHistory
	Clock          *timezone.Service
	Batcher        *EventBatcher
	ContactURLBase string
	Log            zerolog.Logger
}

// NewEventService wires the ingestion pipeline.
func NewEventService(deps EventServiceDeps) (domain.EventService, error) {
	if deps.Store == nil {
		return nil, errors.New("event store cannot be nil")
	}
	if deps.History == nil {
		return nil, errors.New("call history cannot be nil")
	}
	if deps.Clock == nil {
		return nil, errors.New("time service cannot be nil")
	}

	return &eventService{
		store:          deps.Store,
		devices:        deps.Devices,
		broadcaster:    deps.Broadcaster,
		history:        deps.History,
		clock:          deps.Clock,
		batcher:        deps.Batcher,
		contactURLBase: deps.ContactURLBase,
		log:            deps.Log,
	}, nil
}

// Create runs the ingestion pipeline for a single live event: stamp, enrich,
// persist, then best-effort side effects (device last-seen, notification).
// Once the event is durably recorded nothing downstream can fail the call.
func (e *eventService) Create(ctx context.Context, req *domain.EventRequest) (*domain.Event, error) {
	if strings.TrimSpace(req.DeviceID) == "" {
		return nil, ErrValidation
	}

	event := &domain.Event{
		ID:             uuid.NewString(),
		DeviceID:       req.DeviceID,
		EventType:      req.EventType,
		Timestamp:      e.eventTimestamp(req),
		PhoneNumber:    phonenumber.Normalize(req.AdditionalData),
		Description:    req.Description,
		AdditionalData: req.AdditionalData,
	}

	if err := e.store.Save(ctx, event); err != nil {
		e.log.Error().Err(err).Str("device_id", event.DeviceID).Msg("failed to persist event")
		return nil, err
	}

	if e.devices != nil {
		if err := e.devices.UpsertLastSeen(ctx, event.DeviceID, event.Timestamp); err != nil {
			e.log.Warn().Err(err).Str("device_id", event.DeviceID).Msg("failed to update device last-seen")
		}
	}

	e.notify(ctx, event)

	e.log.Info().
		Str("event_id", event.ID).
		Str("device_id", event.DeviceID).
		Str("event_type", event.EventType).
		Str("phone_number", event.PhoneNumber).
		Msg("event ingested")

	return event, nil
}

func (e *eventService) eventTimestamp(req *domain.EventRequest) time.Time {
	if req.Timestamp > 0 {
		return time.Unix(req.Timestamp, 0).UTC()
	}
	return e.clock.Now()
}

// notify builds the notification payload and pushes it to all live
// subscribers. Every failure here is absorbed: the event is already durable.
func (e *eventService) notify(ctx context.Context, event *domain.Event) {
	if e.broadcaster == nil {
		return
	}

	timeSince := e.history.TimeSinceLastCall(ctx, event.PhoneNumber, event.ID)

	contactURL := ""
	if event.PhoneNumber != "" {
		contactURL = e.contactURLBase + event.PhoneNumber
	}

	notification := &domain.Notification{
		EventID:           event.ID,
		Title:             event.Description,
		EventType:         event.EventType,
		DeviceID:          event.DeviceID,
		Timestamp:         e.clock.FormatLocal(event.Timestamp),
		AdditionalData:    event.AdditionalData,
		ContactURL:        contactURL,
		TimeSinceLastCall: timeSince,
		PhoneNumber:       event.PhoneNumber,
	}

	message := domain.WebSocketMessage{Event: notification}
	if e.devices != nil {
		devices, err := e.devices.FindAll(ctx)
		if err != nil {
			e.log.Warn().Err(err).Msg("failed to load device snapshot for notification")
		} else {
			message.Devices = devices
		}
	}

	e.broadcaster.Broadcast(message)
}

// CreateBulk accepts a backfill batch. Events are enqueued to the batcher,
// deduplicated against Redis and flushed columnar; no notifications are
// emitted since backfilled events are not live traffic.
func (e *eventService) CreateBulk(_ context.Context, req *domain.BulkEventRequest) (*domain.BulkEventResponse, error) {
	if e.batcher == nil {
		return nil, errors.New("bulk ingestion is not configured")
	}

	total := len(req.Events)
	for i, event := range req.Events {
		if err := e.batcher.Enqueue(event); err != nil {
			return &domain.BulkEventResponse{
				Success:      false,
				Message:      "Event buffer is full, please try again later",
				TotalCount:   total,
				SuccessCount: i,
				FailureCount: total - i,
			}, err
		}
	}

	return &domain.BulkEventResponse{
		Success:      true,
		Message:      "Bulk events accepted",
		TotalCount:   total,
		SuccessCount: total,
		FailureCount: 0,
	}, nil
}

func (e *eventService) List(ctx context.Context) ([]domain.Event, error) {
	return e.store.FindAll(ctx)
}

func (e *eventService) Recent(ctx context.Context, limit int) ([]domain.Event, error) {
	return e.store.FindMostRecent(ctx, limit)
}

// ShutdownEventService gracefully shuts down an event service if it supports shutdown
func ShutdownEventService(service domain.EventService) error {
	if srv, ok := service.(interface{ Shutdown() error }); ok {
		return srv.Shutdown()
	}
	return nil
}

// Shutdown flushes and stops the bulk batcher.
func (e *eventService) Shutdown() error {
	if e.batcher != nil {
		return e.batcher.Shutdown()
	}
	return nil
}
