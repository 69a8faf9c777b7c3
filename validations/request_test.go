package validations

import (
	"testing"
	"time"

	"binacloud/monitor/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEventRequest(t *testing.T) {
	t.Run("valid minimal request", func(t *testing.T) {
		err := ValidateEventRequest(&domain.EventRequest{DeviceID: "d1"})
		assert.NoError(t, err)
	})

	t.Run("valid request with past timestamp", func(t *testing.T) {
		err := ValidateEventRequest(&domain.EventRequest{
			DeviceID:  "d1",
			Timestamp: time.Now().Add(-time.Hour).Unix(),
		})
		assert.NoError(t, err)
	})

	t.Run("missing device id", func(t *testing.T) {
		err := ValidateEventRequest(&domain.EventRequest{})
		require.Error(t, err)
		assertBadRequest(t, err)
	})

	t.Run("whitespace device id", func(t *testing.T) {
		err := ValidateEventRequest(&domain.EventRequest{DeviceID: "   "})
		assert.Error(t, err)
	})

	t.Run("negative timestamp", func(t *testing.T) {
		err := ValidateEventRequest(&domain.EventRequest{DeviceID: "d1", Timestamp: -1})
		assert.Error(t, err)
	})

	t.Run("timestamp far in the future", func(t *testing.T) {
		err := ValidateEventRequest(&domain.EventRequest{
			DeviceID:  "d1",
			Timestamp: time.Now().Add(time.Hour).Unix(),
		})
		assert.Error(t, err)
	})

	t.Run("small clock skew tolerated", func(t *testing.T) {
		err := ValidateEventRequest(&domain.EventRequest{
			DeviceID:  "d1",
			Timestamp: time.Now().Add(2 * time.Second).Unix(),
		})
		assert.NoError(t, err)
	})

	t.Run("event type is unconstrained", func(t *testing.T) {
		err := ValidateEventRequest(&domain.EventRequest{DeviceID: "d1", EventType: "SOMETHING_NEW"})
		assert.NoError(t, err)
	})
}

func TestValidateBulkEventRequest(t *testing.T) {
	t.Run("nil request", func(t *testing.T) {
		assert.Error(t, ValidateBulkEventRequest(nil))
	})

	t.Run("nil events", func(t *testing.T) {
		assert.Error(t, ValidateBulkEventRequest(&domain.BulkEventRequest{}))
	})

	t.Run("empty events", func(t *testing.T) {
		assert.Error(t, ValidateBulkEventRequest(&domain.BulkEventRequest{Events: []domain.EventRequest{}}))
	})

	t.Run("too many events", func(t *testing.T) {
		events := make([]domain.EventRequest, MaxBulkEventCount+1)
		for i := range events {
			events[i] = domain.EventRequest{DeviceID: "d1"}
		}
		assert.Error(t, ValidateBulkEventRequest(&domain.BulkEventRequest{Events: events}))
	})

	t.Run("one invalid event fails the whole batch", func(t *testing.T) {
		err := ValidateBulkEventRequest(&domain.BulkEventRequest{
			Events: []domain.EventRequest{
				{DeviceID: "d1"},
				{DeviceID: ""},
			},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "index 1")
	})

	t.Run("valid batch", func(t *testing.T) {
		err := ValidateBulkEventRequest(&domain.BulkEventRequest{
			Events: []domain.EventRequest{
				{DeviceID: "d1"},
				{DeviceID: "d2", EventType: "RECEIVED"},
			},
		})
		assert.NoError(t, err)
	})
}

func TestValidatePeriod(t *testing.T) {
	for _, period := range []string{"today", "7days", "28days"} {
		assert.NoError(t, ValidatePeriod(period))
	}

	for _, period := range []string{"", "yesterday", "1year", "TODAY"} {
		assert.Error(t, ValidatePeriod(period))
	}
}

func assertBadRequest(t *testing.T, err error) {
	t.Helper()

	var fiberErr *fiber.Error
	require.ErrorAs(t, err, &fiberErr)
	assert.Equal(t, fiber.StatusBadRequest, fiberErr.Code)
}
