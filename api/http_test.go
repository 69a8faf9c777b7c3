package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"binacloud/monitor/database"
	"binacloud/monitor/domain"
	"binacloud/monitor/services"
	"binacloud/monitor/timezone"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*fiber.App, *database.MemoryStore) {
	t.Helper()

	store := database.NewMemoryStore()
	clock := timezone.NewService("UTC")

	eventService, err := services.NewEventService(services.EventServiceDeps{
		Store:   store,
		History: services.NewCallHistory(store, clock, zerolog.Nop()),
		Clock:   clock,
		Log:     zerolog.Nop(),
	})
	require.NoError(t, err)

	dashboardService := services.NewDashboardService(store, clock, zerolog.Nop())

	eventHandler := NewEventHandler(eventService)
	dashboardHandler := NewDashboardHandler(dashboardService)

	app := fiber.New()
	app.Post("/api/events", eventHandler.PostEvent)
	app.Post("/api/events/bulk", eventHandler.PostEventsBulk)
	app.Get("/api/events", eventHandler.ListEvents)
	app.Get("/api/events/recent", eventHandler.RecentEvents)
	app.Get("/api/dashboard/stats", dashboardHandler.GetStats)

	return app, store
}

func postJSON(t *testing.T, app *fiber.App, path, body string) (int, []byte) {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, payload
}

func TestPostEvent(t *testing.T) {
	app, store := newTestApp(t)

	status, payload := postJSON(t, app, "/api/events",
		`{"deviceId": "d1", "eventType": "RECEIVED", "additionalData": "{\"numero\": \"061981122752\"}"}`)
	require.Equal(t, fiber.StatusOK, status)

	var event domain.Event
	require.NoError(t, json.Unmarshal(payload, &event))
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "61981122752", event.PhoneNumber)

	stored, err := store.FindAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestPostEventRejectsInvalidPayloads(t *testing.T) {
	app, _ := newTestApp(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing deviceId", `{"eventType": "RECEIVED"}`},
		{"blank deviceId", `{"deviceId": "   "}`},
		{"malformed JSON", `{"deviceId": `},
		{"negative timestamp", `{"deviceId": "d1", "timestamp": -5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, payload := postJSON(t, app, "/api/events", tt.body)
			assert.Equal(t, fiber.StatusBadRequest, status)

			var errResp domain.ErrorResponse
			require.NoError(t, json.Unmarshal(payload, &errResp))
			assert.False(t, errResp.Success)
			assert.NotEmpty(t, errResp.Message)
		})
	}
}

func TestPostEventsBulkRejectsEmptyBatch(t *testing.T) {
	app, _ := newTestApp(t)

	status, payload := postJSON(t, app, "/api/events/bulk", `{"events": []}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	var resp domain.BulkEventResponse
	require.NoError(t, json.Unmarshal(payload, &resp))
	assert.False(t, resp.Success)
}

func TestRecentEvents(t *testing.T) {
	app, _ := newTestApp(t)

	for i := 0; i < 3; i++ {
		status, _ := postJSON(t, app, "/api/events", `{"deviceId": "d1", "eventType": "RECEIVED"}`)
		require.Equal(t, fiber.StatusOK, status)
	}

	req := httptest.NewRequest(fiber.MethodGet, "/api/events/recent?limit=2", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var events []domain.Event
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&events))
	assert.Len(t, events, 2)
}

func TestRecentEventsRejectsBadLimit(t *testing.T) {
	app, _ := newTestApp(t)

	for _, limit := range []string{"0", "-1", "abc"} {
		req := httptest.NewRequest(fiber.MethodGet, "/api/events/recent?limit="+limit, nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	}
}

func TestGetStats(t *testing.T) {
	app, _ := newTestApp(t)

	status, _ := postJSON(t, app, "/api/events", `{"deviceId": "d1", "eventType": "ANSWERED"}`)
	require.Equal(t, fiber.StatusOK, status)

	req := httptest.NewRequest(fiber.MethodGet, "/api/dashboard/stats", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var stats domain.DashboardStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, int64(1), stats.TotalCalls)
	assert.Equal(t, int64(1), stats.AnsweredCalls)
	assert.Len(t, stats.CallsPerHour, 24)
	require.NotEmpty(t, stats.RecentCalls)
	assert.Equal(t, "d1", stats.RecentCalls[0].Device)
	assert.Equal(t, "ANSWERED", stats.RecentCalls[0].Status)
}

func TestGetStatsRejectsUnknownPeriod(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(fiber.MethodGet, "/api/dashboard/stats?period=1year", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
