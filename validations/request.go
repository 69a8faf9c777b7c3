package validations

import (
	"fmt"
	"strings"
	"time"

	"binacloud/monitor/domain"

	"github.com/gofiber/fiber/v2"
)

const (
	// MaxBulkEventCount is the maximum number of events allowed in a single bulk request
	MaxBulkEventCount = 10000

	// timestampSlack tolerates small clock skew between devices and the server
	timestampSlack = 5 * time.Second
)

// ValidateEventRequest checks the required identifying field and the
// optional caller-supplied timestamp. The event type is an open string set
// and additionalData is opaque, so neither is constrained here.
func ValidateEventRequest(request *domain.EventRequest) error {
	if strings.TrimSpace(request.DeviceID) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "deviceId is required")
	}
	if request.Timestamp < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "timestamp must be a positive integer when provided")
	}
	if request.Timestamp > 0 && request.Timestamp > time.Now().UTC().Add(timestampSlack).Unix() {
		return fiber.NewError(fiber.StatusBadRequest, "timestamp cannot be in the future")
	}
	return nil
}

// ValidateBulkEventRequest validates a bulk event request.
// It checks batch size limits and validates each individual event
// (all-or-nothing approach).
func ValidateBulkEventRequest(request *domain.BulkEventRequest) error {
	if request == nil {
		return fiber.NewError(fiber.StatusBadRequest, "bulk event request is required")
	}
	if request.Events == nil {
		return fiber.NewError(fiber.StatusBadRequest, "events array is required")
	}
	if len(request.Events) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "events array cannot be empty")
	}
	if len(request.Events) > MaxBulkEventCount {
		return fiber.NewError(fiber.StatusBadRequest,
			"events array exceeds maximum allowed size")
	}

	for i, event := range request.Events {
		if err := ValidateEventRequest(&event); err != nil {
			return fiber.NewError(fiber.StatusBadRequest,
				fmt.Sprintf("validation failed for event at index %d: %v", i, err))
		}
	}

	return nil
}

// ValidatePeriod restricts the dashboard period to the supported windows.
func ValidatePeriod(period string) error {
	switch period {
	case "today", "7days", "28days":
		return nil
	default:
		return fiber.NewError(fiber.StatusBadRequest, "period must be one of: today, 7days, 28days")
	}
}
