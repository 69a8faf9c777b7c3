package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"binacloud/monitor/database"
	"binacloud/monitor/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDedup struct {
	mu        sync.Mutex
	processed map[string]bool
	marked    []string
}

func newFakeDedup(processedKeys ...string) *fakeDedup {
	processed := make(map[string]bool, len(processedKeys))
	for _, key := range processedKeys {
		processed[key] = true
	}
	return &fakeDedup{processed: processed}
}

func (f *fakeDedup) AreEventsProcessed(_ context.Context, requests []domain.EventRequest) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	result := make(map[string]bool, len(requests))
	for _, req := range requests {
		result[req.GetUniqueKey()] = f.processed[req.GetUniqueKey()]
	}
	return result, nil
}

func (f *fakeDedup) SetEventsProcessed(_ context.Context, requests []domain.EventRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, req := range requests {
		f.processed[req.GetUniqueKey()] = true
		f.marked = append(f.marked, req.GetUniqueKey())
	}
	return nil
}

func backfillRequest(deviceID string, ts int64) domain.EventRequest {
	return domain.EventRequest{
		DeviceID:       deviceID,
		EventType:      domain.EventTypeReceived,
		AdditionalData: `{"numero": "61981122752"}`,
		Timestamp:      ts,
	}
}

func TestEnqueueReturnsErrBufferFull(t *testing.T) {
	batcher := NewEventBatcher(1, 10, 60, database.NewMemoryStore(), newFakeDedup(), zerolog.Nop())

	require.NoError(t, batcher.Enqueue(backfillRequest("d1", 1000)))
	assert.ErrorIs(t, batcher.Enqueue(backfillRequest("d1", 1001)), ErrBufferFull)
	assert.Equal(t, 1, batcher.GetBufferSize())
}

func TestBatcherFlushesOnBatchSize(t *testing.T) {
	store := database.NewMemoryStore()
	batcher := NewEventBatcher(10, 2, 60, store, newFakeDedup(), zerolog.Nop())
	batcher.Start()
	defer func() { require.NoError(t, batcher.Shutdown()) }()

	require.NoError(t, batcher.Enqueue(backfillRequest("d1", 1000)))
	require.NoError(t, batcher.Enqueue(backfillRequest("d1", 1001)))

	require.Eventually(t, func() bool {
		events, err := store.FindAll(context.Background())
		return err == nil && len(events) == 2
	}, 5*time.Second, 10*time.Millisecond)

	events, err := store.FindAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "61981122752", events[0].PhoneNumber)
	assert.Equal(t, time.Unix(1000, 0).UTC(), events[0].Timestamp)
	assert.NotEmpty(t, events[0].ID)
}

func TestBatcherFlushesOnInterval(t *testing.T) {
	store := database.NewMemoryStore()
	batcher := NewEventBatcher(10, 100, 1, store, newFakeDedup(), zerolog.Nop())
	batcher.Start()
	defer func() { require.NoError(t, batcher.Shutdown()) }()

	require.NoError(t, batcher.Enqueue(backfillRequest("d1", 1000)))

	require.Eventually(t, func() bool {
		events, err := store.FindAll(context.Background())
		return err == nil && len(events) == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestBatcherSkipsAlreadyProcessedEvents(t *testing.T) {
	duplicate := backfillRequest("d1", 1000)
	fresh := backfillRequest("d2", 2000)

	store := database.NewMemoryStore()
	dedup := newFakeDedup(duplicate.GetUniqueKey())
	batcher := NewEventBatcher(10, 2, 60, store, dedup, zerolog.Nop())
	batcher.Start()
	defer func() { require.NoError(t, batcher.Shutdown()) }()

	require.NoError(t, batcher.Enqueue(duplicate))
	require.NoError(t, batcher.Enqueue(fresh))

	require.Eventually(t, func() bool {
		events, err := store.FindAll(context.Background())
		return err == nil && len(events) == 1
	}, 5*time.Second, 10*time.Millisecond)

	events, err := store.FindAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "d2", events[0].DeviceID)
}

func TestBatcherShutdownFlushesRemaining(t *testing.T) {
	store := database.NewMemoryStore()
	batcher := NewEventBatcher(10, 100, 60, store, newFakeDedup(), zerolog.Nop())
	batcher.Start()

	for i := int64(0); i < 3; i++ {
		require.NoError(t, batcher.Enqueue(backfillRequest("d1", 1000+i)))
	}

	require.NoError(t, batcher.Shutdown())

	events, err := store.FindAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 3)
	assert.Zero(t, batcher.GetBatchSize())
}

func TestBatcherShutdownIsIdempotent(t *testing.T) {
	batcher := NewEventBatcher(1, 1, 60, database.NewMemoryStore(), newFakeDedup(), zerolog.Nop())
	batcher.Start()

	require.NoError(t, batcher.Shutdown())
	require.NoError(t, batcher.Shutdown())
}
