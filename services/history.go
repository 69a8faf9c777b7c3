package services

import (
	"context"
	"fmt"
	"time"

	"binacloud/monitor/domain"
	"binacloud/monitor/timezone"

	"github.com/rs/zerolog"
)

// Markers returned by TimeSinceLastCall instead of an error: the lookup is
// an enrichment and must never fail ingestion.
const (
	FirstContactMarker = "first contact"
	LookupErrorMarker  = "indisponível"
)

// CallHistory answers "how long since this number last called us".
type CallHistory struct {
	store domain.EventStore
	clock *timezone.Service
	log   zerolog.Logger
}

func NewCallHistory(store domain.EventStore, clock *timezone.Service, log zerolog.Logger) *CallHistory {
	return &CallHistory{store: store, clock: clock, log: log}
}

// TimeSinceLastCall formats the elapsed time since the previous event for
// this phone number. The current event, already persisted at lookup time,
// is excluded by identity rather than by list position so the result does
// not depend on store ordering.
func (h *CallHistory) TimeSinceLastCall(ctx context.Context, phoneNumber, excludeEventID string) string {
	if phoneNumber == "" {
		return FirstContactMarker
	}

	events, err := h.store.FindByPhoneNumberDesc(ctx, phoneNumber)
	if err != nil {
		h.log.Warn().Err(err).Str("phone_number", phoneNumber).Msg("call history lookup failed")
		return LookupErrorMarker
	}

	var previous *domain.Event
	for i := range events {
		if events[i].ID == excludeEventID {
			continue
		}
		if previous == nil || events[i].Timestamp.After(previous.Timestamp) {
			previous = &events[i]
		}
	}

	if previous == nil {
		return FirstContactMarker
	}

	return formatElapsed(h.clock.Now().Sub(previous.Timestamp))
}

// formatElapsed renders a duration using its largest applicable unit.
func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	days := int64(d.Hours()) / 24
	hours := int64(d.Hours()) % 24
	minutes := int64(d.Minutes()) % 60

	switch {
	case days >= 1:
		return fmt.Sprintf("%d dias e %d horas", days, hours)
	case hours >= 1:
		return fmt.Sprintf("%d horas e %d minutos", hours, minutes)
	case minutes >= 1:
		return fmt.Sprintf("%d minutos", minutes)
	default:
		return "menos de 1 minuto"
	}
}
