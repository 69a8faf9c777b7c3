package database

import (
	"context"
	"fmt"
	"time"

	"binacloud/monitor/config"
	"binacloud/monitor/domain"
	"binacloud/monitor/logger"

	"github.com/uptrace/go-clickhouse/ch"
)

var clickHouseDB *ch.DB

// InitClickHouse initializes the ClickHouse database connection
func InitClickHouse(cfg *config.ClickHouseConfig) error {
	dsn := cfg.GetClickHouseDSN()

	// Connect without TLS since ClickHouse native protocol doesn't use TLS by default
	db := ch.Connect(
		ch.WithDSN(dsn),
		ch.WithInsecure(true),
	)

	ctx := context.Background()

	if err := initCallEventsTable(ctx, db); err != nil {
		return fmt.Errorf("failed to initialize call_events table: %w", err)
	}

	clickHouseDB = db
	logger.Info().Msg("ClickHouse connection established successfully")

	return nil
}

// CloseClickHouse closes the ClickHouse database connection
func CloseClickHouse() error {
	if clickHouseDB != nil {
		if err := clickHouseDB.Close(); err != nil {
			return fmt.Errorf("failed to close ClickHouse connection: %w", err)
		}
		logger.Info().Msg("ClickHouse connection closed")
	}
	return nil
}

// initCallEventsTable creates the call_events table if it doesn't exist.
// The log is append-only; rows are never updated or deleted.
func initCallEventsTable(ctx context.Context, db *ch.DB) error {
	_, err := db.NewCreateTable().
		Model((*callEvent)(nil)).
		Engine("MergeTree()").
		Order("timestamp, device_id").
		IfNotExists().
		Exec(ctx)

	return err
}

// ClickHouseHealthCheck verifies that the ClickHouse connection is alive
func ClickHouseHealthCheck(ctx context.Context) error {
	if clickHouseDB == nil {
		return fmt.Errorf("ClickHouse connection is not initialized")
	}
	return clickHouseDB.Ping(ctx)
}

// GetEventStore returns the ClickHouse-backed event store
func GetEventStore() ClickHouseStore {
	return ClickHouseStore{clickHouseDB}
}

// callEvent is the call_events table row for the ClickHouse ORM
type callEvent struct {
	ch.CHModel     `ch:"table:call_events,partition:toYYYYMMDD(timestamp)"`
	ID             string    `ch:"id"`
	DeviceID       string    `ch:"device_id,lc"`
	EventType      string    `ch:"event_type,lc"`
	Timestamp      time.Time `ch:"timestamp"`
	PhoneNumber    string    `ch:"phone_number"`
	Description    string    `ch:"description,type:String"`
	AdditionalData string    `ch:"additional_data,type:String"`

	IngestedAt time.Time `ch:"ingested_at,default:now()"`
}

// callEventColumnar holds call events in columnar format for batch inserts
type callEventColumnar struct {
	ch.CHModel     `ch:"table:call_events,partition:toYYYYMMDD(timestamp),columnar"`
	ID             []string    `ch:"id"`
	DeviceID       []string    `ch:"device_id,lc"`
	EventType      []string    `ch:"event_type,lc"`
	Timestamp      []time.Time `ch:"timestamp"`
	PhoneNumber    []string    `ch:"phone_number"`
	Description    []string    `ch:"description,type:String"`
	AdditionalData []string    `ch:"additional_data,type:String"`

	IngestedAt []time.Time `ch:"ingested_at,default:now()"`
}

// ClickHouseStore implements domain.EventStore on top of ClickHouse.
type ClickHouseStore struct {
	*ch.DB
}

var _ domain.EventStore = ClickHouseStore{}

// Save persists a single event. With async insert enabled the connection is
// configured with wait_for_async_insert=1, so the row is visible to the
// immediately following history query.
func (c ClickHouseStore) Save(ctx context.Context, event *domain.Event) error {
	if c.DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	row := &callEvent{
		ID:             event.ID,
		DeviceID:       event.DeviceID,
		EventType:      event.EventType,
		Timestamp:      event.Timestamp,
		PhoneNumber:    event.PhoneNumber,
		Description:    event.Description,
		AdditionalData: event.AdditionalData,
	}

	if _, err := c.DB.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	return nil
}

// SaveBatch persists events using the native columnar insert format, which
// sends data column-by-column and is significantly faster than row inserts.
func (c ClickHouseStore) SaveBatch(ctx context.Context, events []domain.Event) error {
	if c.DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	if len(events) == 0 {
		return fmt.Errorf("no events to insert")
	}

	batchSize := len(events)
	now := time.Now()

	ids := make([]string, 0, batchSize)
	deviceIDs := make([]string, 0, batchSize)
	eventTypes := make([]string, 0, batchSize)
	timestamps := make([]time.Time, 0, batchSize)
	phoneNumbers := make([]string, 0, batchSize)
	descriptions := make([]string, 0, batchSize)
	additionalData := make([]string, 0, batchSize)
	ingestedAt := make([]time.Time, 0, batchSize)

	for _, event := range events {
		ids = append(ids, event.ID)
		deviceIDs = append(deviceIDs, event.DeviceID)
		eventTypes = append(eventTypes, event.EventType)
		timestamps = append(timestamps, event.Timestamp)
		phoneNumbers = append(phoneNumbers, event.PhoneNumber)
		descriptions = append(descriptions, event.Description)
		additionalData = append(additionalData, event.AdditionalData)
		ingestedAt = append(ingestedAt, now)
	}

	columnarModel := &callEventColumnar{
		ID:             ids,
		DeviceID:       deviceIDs,
		EventType:      eventTypes,
		Timestamp:      timestamps,
		PhoneNumber:    phoneNumbers,
		Description:    descriptions,
		AdditionalData: additionalData,
		IngestedAt:     ingestedAt,
	}

	if _, err := c.DB.NewInsert().Model(columnarModel).Exec(ctx); err != nil {
		return fmt.Errorf("failed to columnar insert events: %w", err)
	}

	return nil
}

// FindAll returns the full event log ordered oldest-first.
func (c ClickHouseStore) FindAll(ctx context.Context) ([]domain.Event, error) {
	var rows []callEvent

	err := c.DB.NewSelect().
		Model(&rows).
		OrderExpr("timestamp ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}

	return mapCallEvents(rows), nil
}

// FindByPhoneNumberDesc returns every event for a phone number, newest first.
func (c ClickHouseStore) FindByPhoneNumberDesc(ctx context.Context, phoneNumber string) ([]domain.Event, error) {
	var rows []callEvent

	err := c.DB.NewSelect().
		Model(&rows).
		Where("phone_number = ?", phoneNumber).
		OrderExpr("timestamp DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query events by phone number: %w", err)
	}

	return mapCallEvents(rows), nil
}

// FindMostRecent returns the newest events, newest first.
func (c ClickHouseStore) FindMostRecent(ctx context.Context, limit int) ([]domain.Event, error) {
	var rows []callEvent

	err := c.DB.NewSelect().
		Model(&rows).
		OrderExpr("timestamp DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent events: %w", err)
	}

	return mapCallEvents(rows), nil
}

func mapCallEvents(rows []callEvent) []domain.Event {
	events := make([]domain.Event, len(rows))
	for i, row := range rows {
		events[i] = domain.Event{
			ID:             row.ID,
			DeviceID:       row.DeviceID,
			EventType:      row.EventType,
			Timestamp:      row.Timestamp.UTC(),
			PhoneNumber:    row.PhoneNumber,
			Description:    row.Description,
			AdditionalData: row.AdditionalData,
		}
	}
	return events
}
