package api

import (
	"errors"
	"strconv"

	"binacloud/monitor/domain"
	"binacloud/monitor/services"
	"binacloud/monitor/validations"

	"github.com/gofiber/fiber/v2"
)

const defaultRecentLimit = 10

var _ EventHandler = &eventHandler{nil}

type eventHandler struct {
	eventService domain.EventService
}

// PostEvent ingests a single call event
// @Summary Ingest call event
// @Description Submit a call event reported by a telephony device. The event is enriched, persisted and broadcast to connected observers.
// @Tags Events
// @Accept json
// @Produce json
// @Param event body domain.EventRequest true "Event data"
// @Success 200 {object} domain.Event "Persisted event"
// @Failure 400 {object} domain.ErrorResponse "Invalid request"
// @Failure 500 {object} domain.ErrorResponse "Internal server error"
// @Router /api/events [post]
func (e eventHandler) PostEvent(ctx *fiber.Ctx) error {
	var req domain.EventRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(domain.ErrorResponse{
			Success: false,
			Message: "Invalid request body: " + err.Error(),
		})
	}

	if err := validations.ValidateEventRequest(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(domain.ErrorResponse{
			Success: false,
			Message: "Validation failed: " + err.Error(),
		})
	}

	event, err := e.eventService.Create(ctx.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			return ctx.Status(fiber.StatusBadRequest).JSON(domain.ErrorResponse{
				Success: false,
				Message: err.Error(),
			})
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(domain.ErrorResponse{
			Success: false,
			Message: "Internal server error: " + err.Error(),
		})
	}

	return ctx.Status(fiber.StatusOK).JSON(event)
}

// PostEventsBulk ingests a backfill batch of events
// @Summary Ingest bulk call events
// @Description Submit a batch of call events queued while a device was offline. Events are deduplicated and persisted in columnar batches; no notifications are emitted.
// @Tags Events
// @Accept json
// @Produce json
// @Param events body domain.BulkEventRequest true "Array of event data"
// @Success 200 {object} domain.BulkEventResponse "Bulk events accepted"
// @Failure 400 {object} domain.BulkEventResponse "Invalid request"
// @Failure 503 {object} domain.BulkEventResponse "Service unavailable (buffer full)"
// @Failure 500 {object} domain.BulkEventResponse "Internal server error"
// @Router /api/events/bulk [post]
func (e eventHandler) PostEventsBulk(ctx *fiber.Ctx) error {
	var req domain.BulkEventRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(domain.BulkEventResponse{
			Success: false,
			Message: "Invalid request body: " + err.Error(),
		})
	}

	if err := validations.ValidateBulkEventRequest(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(domain.BulkEventResponse{
			Success:      false,
			Message:      "Validation failed: " + err.Error(),
			TotalCount:   len(req.Events),
			FailureCount: len(req.Events),
		})
	}

	resp, err := e.eventService.CreateBulk(ctx.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrBufferFull) {
			return ctx.Status(fiber.StatusServiceUnavailable).JSON(resp)
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(domain.BulkEventResponse{
			Success: false,
			Message: "Internal server error: " + err.Error(),
		})
	}

	return ctx.Status(fiber.StatusOK).JSON(resp)
}

// ListEvents returns the full event log
// @Summary List events
// @Description Returns every persisted call event
// @Tags Events
// @Produce json
// @Success 200 {array} domain.Event "Events"
// @Failure 500 {object} domain.ErrorResponse "Internal server error"
// @Router /api/events [get]
func (e eventHandler) ListEvents(ctx *fiber.Ctx) error {
	events, err := e.eventService.List(ctx.Context())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(domain.ErrorResponse{
			Success: false,
			Message: "Internal server error: " + err.Error(),
		})
	}

	return ctx.Status(fiber.StatusOK).JSON(events)
}

// RecentEvents returns the newest events
// @Summary Recent events
// @Description Returns the most recent call events, newest first
// @Tags Events
// @Produce json
// @Param limit query int false "Maximum number of events (default 10)"
// @Success 200 {array} domain.Event "Events"
// @Failure 400 {object} domain.ErrorResponse "Invalid request"
// @Failure 500 {object} domain.ErrorResponse "Internal server error"
// @Router /api/events/recent [get]
func (e eventHandler) RecentEvents(ctx *fiber.Ctx) error {
	limit := defaultRecentLimit
	if raw := ctx.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return ctx.Status(fiber.StatusBadRequest).JSON(domain.ErrorResponse{
				Success: false,
				Message: "Invalid 'limit' parameter",
			})
		}
		limit = parsed
	}

	events, err := e.eventService.Recent(ctx.Context(), limit)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(domain.ErrorResponse{
			Success: false,
			Message: "Internal server error: " + err.Error(),
		})
	}

	return ctx.Status(fiber.StatusOK).JSON(events)
}

// NewEventHandler builds the HTTP handler for event ingestion and queries.
func NewEventHandler(eventService domain.EventService) EventHandler {
	return &eventHandler{eventService: eventService}
}

var _ DashboardHandler = &dashboardHandler{nil}

type dashboardHandler struct {
	dashboardService domain.DashboardService
}

// GetStats returns dashboard statistics
// @Summary Dashboard statistics
// @Description Computes call-volume analytics for a period: hourly buckets, weekday peak-hour heatmap, dense daily series, peak prediction, per-device stats and the recent-call list.
// @Tags Dashboard
// @Produce json
// @Param period query string false "Period: today, 7days or 28days (default today)"
// @Success 200 {object} domain.DashboardStats "Dashboard statistics"
// @Failure 400 {object} domain.ErrorResponse "Invalid request"
// @Failure 500 {object} domain.ErrorResponse "Internal server error"
// @Router /api/dashboard/stats [get]
func (d dashboardHandler) GetStats(ctx *fiber.Ctx) error {
	period := ctx.Query("period", services.PeriodToday)

	if err := validations.ValidatePeriod(period); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(domain.ErrorResponse{
			Success: false,
			Message: "Validation failed: " + err.Error(),
		})
	}

	stats, err := d.dashboardService.Stats(ctx.Context(), period)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(domain.ErrorResponse{
			Success: false,
			Message: "Internal server error: " + err.Error(),
		})
	}

	return ctx.Status(fiber.StatusOK).JSON(stats)
}

// NewDashboardHandler builds the HTTP handler for dashboard statistics.
func NewDashboardHandler(dashboardService domain.DashboardService) DashboardHandler {
	return &dashboardHandler{dashboardService: dashboardService}
}
