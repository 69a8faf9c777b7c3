package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"binacloud/monitor/domain"
)

// MemoryStore is a mutex-guarded in-memory event log. It backs unit tests
// and local runs without a ClickHouse instance.
type MemoryStore struct {
	mu     sync.RWMutex
	events []domain.Event
}

var _ domain.EventStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Save(_ context.Context, event *domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *event)
	return nil
}

func (m *MemoryStore) SaveBatch(_ context.Context, events []domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *MemoryStore) FindAll(_ context.Context) ([]domain.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]domain.Event, len(m.events))
	copy(events, m.events)
	sort.Slice(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })
	return events, nil
}

func (m *MemoryStore) FindByPhoneNumberDesc(_ context.Context, phoneNumber string) ([]domain.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var events []domain.Event
	for _, e := range m.events {
		if e.PhoneNumber == phoneNumber {
			events = append(events, e)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Timestamp.After(events[j].Timestamp) })
	return events, nil
}

func (m *MemoryStore) FindMostRecent(_ context.Context, limit int) ([]domain.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]domain.Event, len(m.events))
	copy(events, m.events)
	sort.Slice(events, func(i, j int) bool { return events[i].Timestamp.After(events[j].Timestamp) })
	if limit < len(events) {
		events = events[:limit]
	}
	return events, nil
}

// MemoryDirectory is an in-memory device directory for tests.
type MemoryDirectory struct {
	mu      sync.RWMutex
	devices map[string]domain.Device
}

var _ domain.DeviceDirectory = (*MemoryDirectory)(nil)

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{devices: make(map[string]domain.Device)}
}

func (m *MemoryDirectory) FindByID(_ context.Context, id string) (*domain.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	device, ok := m.devices[id]
	if !ok {
		return nil, nil
	}
	return &device, nil
}

func (m *MemoryDirectory) UpsertLastSeen(_ context.Context, id string, seenAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	device, ok := m.devices[id]
	if !ok {
		device = domain.Device{ID: id, Name: "Dispositivo " + id}
	}
	device.LastSeen = seenAt.UTC()
	device.Active = true
	m.devices[id] = device
	return nil
}

func (m *MemoryDirectory) FindAll(_ context.Context) ([]domain.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	devices := make([]domain.Device, 0, len(m.devices))
	for _, d := range m.devices {
		devices = append(devices, d)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices, nil
}
