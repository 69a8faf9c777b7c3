package ws

import (
	"context"
	"testing"
	"time"

	"binacloud/monitor/config"
	"binacloud/monitor/database"
	"binacloud/monitor/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(buffer int) *Hub {
	return NewHub(nil, config.NotifierConfig{SendBuffer: buffer, SendTimeoutSeconds: 1}, zerolog.Nop())
}

func TestHubRegistry(t *testing.T) {
	hub := newTestHub(4)
	assert.Zero(t, hub.SubscriberCount())

	s1 := newSession(nil, 4)
	s2 := newSession(nil, 4)

	hub.register(s1)
	hub.register(s2)
	assert.Equal(t, 2, hub.SubscriberCount())

	hub.drop(s1)
	assert.Equal(t, 1, hub.SubscriberCount())

	// dropping twice is harmless
	hub.drop(s1)
	assert.Equal(t, 1, hub.SubscriberCount())
}

func TestBroadcastDeliversToAllSessions(t *testing.T) {
	hub := newTestHub(4)

	s1 := newSession(nil, 4)
	s2 := newSession(nil, 4)
	hub.register(s1)
	hub.register(s2)

	hub.Broadcast(domain.WebSocketMessage{Event: &domain.Notification{EventID: "e1"}})

	for _, s := range []*Session{s1, s2} {
		select {
		case msg := <-s.send:
			require.NotNil(t, msg.Event)
			assert.Equal(t, "e1", msg.Event.EventID)
		default:
			t.Fatal("expected a queued message")
		}
	}
	assert.Equal(t, 2, hub.SubscriberCount())
}

func TestBroadcastDropsSaturatedSession(t *testing.T) {
	hub := newTestHub(1)

	slow := newSession(nil, 1)
	hub.register(slow)

	hub.Broadcast(domain.WebSocketMessage{Event: &domain.Notification{EventID: "e1"}})
	assert.Equal(t, 1, hub.SubscriberCount())

	// the buffer is full and nothing is draining it
	hub.Broadcast(domain.WebSocketMessage{Event: &domain.Notification{EventID: "e2"}})
	assert.Zero(t, hub.SubscriberCount())
}

func TestEnqueueAfterCloseFails(t *testing.T) {
	s := newSession(nil, 4)
	s.close()

	assert.False(t, s.enqueue(domain.WebSocketMessage{}))
}

func TestBroadcastSkipsClosedSessionWithoutBlocking(t *testing.T) {
	hub := newTestHub(4)

	s := newSession(nil, 4)
	hub.register(s)
	s.close()

	hub.Broadcast(domain.WebSocketMessage{Event: &domain.Notification{EventID: "e1"}})
	assert.Zero(t, hub.SubscriberCount())
}

func TestNewHubDefaults(t *testing.T) {
	hub := NewHub(nil, config.NotifierConfig{}, zerolog.Nop())

	assert.Equal(t, 32, hub.sendBuffer)
	assert.Equal(t, "5s", hub.sendTimeout.String())
}

func TestPushSnapshotQueuesDeviceList(t *testing.T) {
	devices := database.NewMemoryDirectory()
	require.NoError(t, devices.UpsertLastSeen(context.Background(), "d1", time.Now().UTC()))

	hub := NewHub(devices, config.NotifierConfig{SendBuffer: 4, SendTimeoutSeconds: 1}, zerolog.Nop())
	s := newSession(nil, 4)
	hub.pushSnapshot(s)

	select {
	case msg := <-s.send:
		require.Len(t, msg.Devices, 1)
		assert.Equal(t, "d1", msg.Devices[0].ID)
		assert.Nil(t, msg.Event)
	default:
		t.Fatal("expected a snapshot message")
	}
}
