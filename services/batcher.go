package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"binacloud/monitor/domain"
	"binacloud/monitor/phonenumber"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrBufferFull is returned when the bulk-ingest buffer channel is full
var ErrBufferFull = errors.New("event buffer is full")

// DedupCache filters already-ingested events out of a backfill batch.
// Devices resend their offline queue on reconnect, so duplicates are normal.
type DedupCache interface {
	AreEventsProcessed(ctx context.Context, requests []domain.EventRequest) (map[string]bool, error)
	SetEventsProcessed(ctx context.Context, requests []domain.EventRequest) error
}

// EventBatcher buffers backfilled events and flushes them to the event
// store in columnar batches.
type EventBatcher struct {
	eventChan     chan domain.EventRequest
	batchSize     int
	flushInterval time.Duration
	store         domain.EventStore
	dedup         DedupCache
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	mu            sync.Mutex
	isRunning     bool
	currentBatch  []domain.EventRequest
	log           zerolog.Logger
}

// NewEventBatcher creates a new EventBatcher instance
func NewEventBatcher(
	capacity int,
	batchSize int,
	flushIntervalSeconds int,
	store domain.EventStore,
	dedup DedupCache,
	log zerolog.Logger,
) *EventBatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventBatcher{
		eventChan:     make(chan domain.EventRequest, capacity),
		batchSize:     batchSize,
		flushInterval: time.Duration(flushIntervalSeconds) * time.Second,
		store:         store,
		dedup:         dedup,
		ctx:           ctx,
		cancel:        cancel,
		currentBatch:  make([]domain.EventRequest, 0, batchSize),
		log:           log,
	}
}

// Start launches the background worker goroutine that processes events
func (b *EventBatcher) Start() {
	b.mu.Lock()
	if b.isRunning {
		b.mu.Unlock()
		return
	}
	b.isRunning = true
	b.mu.Unlock()

	b.wg.Add(1)
	go b.worker()
	b.log.Info().Msg("event batcher started")
}

// Enqueue adds an event to the buffer channel (non-blocking).
// Returns ErrBufferFull if the channel is full.
func (b *EventBatcher) Enqueue(event domain.EventRequest) error {
	select {
	case b.eventChan <- event:
		return nil
	default:
		return ErrBufferFull
	}
}

// worker is the background goroutine that collects events and flushes them
func (b *EventBatcher) worker() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.ctx.Done():
			b.flushRemaining()
			return

		case event := <-b.eventChan:
			b.mu.Lock()
			b.currentBatch = append(b.currentBatch, event)
			shouldFlush := len(b.currentBatch) >= b.batchSize
			b.mu.Unlock()

			if shouldFlush {
				b.flushBatch()
			}

		case <-ticker.C:
			b.mu.Lock()
			hasEvents := len(b.currentBatch) > 0
			b.mu.Unlock()

			if hasEvents {
				b.flushBatch()
			}
		}
	}
}

// flushBatch deduplicates and persists the current batch.
func (b *EventBatcher) flushBatch() {
	b.mu.Lock()
	if len(b.currentBatch) == 0 {
		b.mu.Unlock()
		return
	}

	batch := make([]domain.EventRequest, len(b.currentBatch))
	copy(batch, b.currentBatch)
	b.currentBatch = b.currentBatch[:0]
	b.mu.Unlock()

	unprocessed := b.filterProcessedEvents(batch)

	if len(unprocessed) == 0 {
		b.log.Debug().Int("batch_size", len(batch)).Msg("entire batch was already ingested")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := b.store.SaveBatch(ctx, buildEvents(unprocessed)); err != nil {
		b.log.Error().Err(err).Int("batch_size", len(unprocessed)).Msg("failed to flush backfill batch")
		return
	}

	b.log.Info().
		Int("flushed", len(unprocessed)).
		Int("received", len(batch)).
		Msg("backfill batch flushed")

	if b.dedup != nil {
		go func() {
			if err := b.dedup.SetEventsProcessed(context.Background(), unprocessed); err != nil {
				b.log.Warn().Err(err).Msg("failed to mark backfill events as processed")
			}
		}()
	}
}

// buildEvents enriches raw backfill requests into persistable events.
func buildEvents(requests []domain.EventRequest) []domain.Event {
	events := make([]domain.Event, len(requests))
	for i, req := range requests {
		ts := time.Now().UTC()
		if req.Timestamp > 0 {
			ts = time.Unix(req.Timestamp, 0).UTC()
		}
		events[i] = domain.Event{
			ID:             uuid.NewString(),
			DeviceID:       req.DeviceID,
			EventType:      req.EventType,
			Timestamp:      ts,
			PhoneNumber:    phonenumber.Normalize(req.AdditionalData),
			Description:    req.Description,
			AdditionalData: req.AdditionalData,
		}
	}
	return events
}

// flushRemaining flushes any remaining events in the buffer during shutdown
func (b *EventBatcher) flushRemaining() {
	b.mu.Lock()
	remaining := len(b.currentBatch)
	b.mu.Unlock()

	if remaining > 0 {
		b.log.Info().Int("remaining", remaining).Msg("flushing remaining events during shutdown")
		b.flushBatch()
	}

	// Drain any remaining events from the channel
	drained := 0
	for {
		select {
		case event := <-b.eventChan:
			b.mu.Lock()
			b.currentBatch = append(b.currentBatch, event)
			b.mu.Unlock()
			drained++
		default:
			if drained > 0 {
				b.log.Info().Int("drained", drained).Msg("drained events from channel during shutdown")
				b.flushBatch()
			}
			return
		}
	}
}

// filterProcessedEvents filters out events that have already been ingested
func (b *EventBatcher) filterProcessedEvents(events []domain.EventRequest) []domain.EventRequest {
	if b.dedup == nil {
		return events
	}

	processed, err := b.dedup.AreEventsProcessed(context.Background(), events)
	if err != nil {
		// If the dedup check fails, assume all events are unprocessed
		b.log.Warn().Err(err).Msg("dedup check failed, assuming all events are unprocessed")
		return events
	}

	unprocessed := make([]domain.EventRequest, 0, len(events))
	for _, event := range events {
		if done, exists := processed[event.GetUniqueKey()]; !exists || !done {
			unprocessed = append(unprocessed, event)
		}
	}
	return unprocessed
}

// Shutdown gracefully shuts down the batcher, flushing remaining events
func (b *EventBatcher) Shutdown() error {
	b.mu.Lock()
	if !b.isRunning {
		b.mu.Unlock()
		return nil
	}
	b.isRunning = false
	b.mu.Unlock()

	b.log.Info().Msg("event batcher shutting down")
	b.cancel()
	b.wg.Wait()
	return nil
}

// GetBufferSize returns the current number of events in the buffer channel
func (b *EventBatcher) GetBufferSize() int {
	return len(b.eventChan)
}

// GetBatchSize returns the current number of events in the pending batch
func (b *EventBatcher) GetBatchSize() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.currentBatch)
}
