package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"binacloud/monitor/domain"
	"binacloud/monitor/timezone"

	"github.com/rs/zerolog"
)

// Dashboard periods. The period bounds the top-line metrics; the peak-hour
// matrix and the temporal series always use a fixed trailing lookback.
const (
	PeriodToday  = "today"
	Period7Days  = "7days"
	Period28Days = "28days"
)

const (
	lookbackMonths       = 3
	recentCallsLimit     = 10
	activeDeviceWindow   = 24 * time.Hour
	deviceActivityWindow = 5 * time.Minute
)

var _ domain.DashboardService = (*dashboardService)(nil)

type dashboardService struct {
	store domain.EventStore
	clock *timezone.Service
	log   zerolog.Logger
}

// NewDashboardService returns a DashboardService backed by the event log.
func NewDashboardService(store domain.EventStore, clock *timezone.Service, log zerolog.Logger) domain.DashboardService {
	return &dashboardService{store: store, clock: clock, log: log}
}

func (s *dashboardService) Stats(ctx context.Context, period string) (*domain.DashboardStats, error) {
	events, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load events for dashboard: %w", err)
	}

	stats := ComputeStats(events, s.clock, s.clock.Now(), period)

	s.log.Debug().
		Str("period", period).
		Int("events", len(events)).
		Int64("total_calls", stats.TotalCalls).
		Msg("dashboard stats computed")

	return stats, nil
}

// ComputeStats derives the full dashboard payload from an event snapshot.
// It is a pure function of the snapshot, the reference instant and the
// period, so it is safe to call concurrently with different windows.
func ComputeStats(events []domain.Event, clock *timezone.Service, now time.Time, period string) *domain.DashboardStats {
	windowStart := periodStart(clock, now, period)

	var filtered []domain.Event
	for _, e := range events {
		if !e.Timestamp.Before(windowStart) {
			filtered = append(filtered, e)
		}
	}

	total, answered, missed, busy := countByType(filtered)
	answerRate := 0.0
	if total > 0 {
		answerRate = roundRate(float64(answered) * 100.0 / float64(total))
	}

	return &domain.DashboardStats{
		TotalCalls:    total,
		AnsweredCalls: answered,
		MissedCalls:   missed,
		BusyCalls:     busy,
		AnswerRate:    answerRate,
		CallsPerHour:  callsPerHour(filtered),
		DeviceStats:   totalDeviceStats(events, clock, now),
		PeakHours:     peakHours(events, now),
		TemporalData:  temporalData(events, now),
		PeakMetrics:   peakMetrics(filtered, now),
		RecentCalls:   recentCalls(filtered),
		ActiveDevices: activeDevices(events, clock, now),
	}
}

// periodStart derives the window lower bound. "today" starts at the local
// day boundary; the other periods are plain trailing windows.
func periodStart(clock *timezone.Service, now time.Time, period string) time.Time {
	switch period {
	case Period7Days:
		return now.AddDate(0, 0, -7)
	case Period28Days:
		return now.AddDate(0, 0, -28)
	default:
		local := clock.ToLocal(now)
		dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, clock.Location())
		return dayStart.UTC()
	}
}

func countByType(events []domain.Event) (total, answered, missed, busy int64) {
	total = int64(len(events))
	for _, e := range events {
		switch e.EventType {
		case domain.EventTypeAnswered:
			answered++
		case domain.EventTypeMissed:
			missed++
		case domain.EventTypeBusy:
			busy++
		}
	}
	return total, answered, missed, busy
}

func callsPerHour(events []domain.Event) []int {
	buckets := make([]int, 24)
	for _, e := range events {
		buckets[e.Timestamp.Hour()]++
	}
	return buckets
}

// peakHours builds the weekday-by-hour heatmap over the fixed lookback.
// Raw counts over months are not a "typical week", so every cell is divided
// by the number of calendar weeks the data actually spans (clamped to one,
// never zero). Only Monday through Friday rows are returned.
func peakHours(events []domain.Event, now time.Time) [][]int {
	lookbackStart := now.AddDate(0, -lookbackMonths, 0)

	matrix := make([][]int, 7)
	for day := range matrix {
		matrix[day] = make([]int, 24)
	}

	var inRange []domain.Event
	for _, e := range events {
		if !e.Timestamp.Before(lookbackStart) {
			inRange = append(inRange, e)
		}
	}

	minDate := dateOf(now)
	maxDate := dateOf(now)
	for i, e := range inRange {
		d := dateOf(e.Timestamp)
		if i == 0 || d.Before(minDate) {
			minDate = d
		}
		if i == 0 || d.After(maxDate) {
			maxDate = d
		}
	}

	totalWeeks := int64(maxDate.AddDate(0, 0, 1).Sub(minDate).Hours()/24) / 7
	if totalWeeks == 0 {
		totalWeeks = 1
	}

	for _, e := range inRange {
		day := isoWeekday(e.Timestamp)
		matrix[day][e.Timestamp.Hour()]++
	}

	for day := range matrix {
		for hour := range matrix[day] {
			matrix[day][hour] = int(math.Round(float64(matrix[day][hour]) / float64(totalWeeks)))
		}
	}

	// Monday through Friday only
	return matrix[:5]
}

// isoWeekday maps a timestamp to 0=Monday .. 6=Sunday.
func isoWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// temporalData builds a dense daily series over the lookback: one bucket per
// calendar day, zero-filled, then overwritten with actual counts.
func temporalData(events []domain.Event, now time.Time) []domain.TemporalPoint {
	lookbackStart := now.AddDate(0, -lookbackMonths, 0)

	counts := make(map[time.Time]int)
	for day := dateOf(lookbackStart); !day.After(dateOf(now)); day = day.AddDate(0, 0, 1) {
		counts[day] = 0
	}

	for _, e := range events {
		if e.Timestamp.Before(lookbackStart) {
			continue
		}
		counts[dateOf(e.Timestamp)]++
	}

	days := make([]time.Time, 0, len(counts))
	for day := range counts {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	series := make([]domain.TemporalPoint, len(days))
	for i, day := range days {
		series[i] = domain.TemporalPoint{
			Timestamp: day.UnixMilli(),
			Value:     counts[day],
		}
	}
	return series
}

// peakMetrics reports the current-hour load and scans the next three hours
// (wrapping past midnight) for the predicted peak.
//
// The comparison ratio divides the current-hour count by itself, so it reads
// 100% whenever any calls exist this hour. That matches the long-standing
// dashboard behavior; the intended baseline is still undecided.
func peakMetrics(events []domain.Event, now time.Time) domain.PeakMetrics {
	currentHour := now.Hour()

	currentHourCalls := int64(0)
	for _, e := range events {
		if e.Timestamp.Hour() == currentHour {
			currentHourCalls++
		}
	}

	avgCallsThisHour := float64(currentHourCalls)

	nextPeakHour := (currentHour + 1) % 24
	maxCalls := int64(0)
	for i := 1; i <= 3; i++ {
		hour := (currentHour + i) % 24
		calls := int64(0)
		for _, e := range events {
			if e.Timestamp.Hour() == hour {
				calls++
			}
		}
		if calls > maxCalls {
			maxCalls = calls
			nextPeakHour = hour
		}
	}

	ratio := 100.0
	if avgCallsThisHour > 0 {
		ratio = float64(currentHourCalls) * 100.0 / avgCallsThisHour
	}

	return domain.PeakMetrics{
		CurrentPeak: fmt.Sprintf("%02d:00 - %d chamadas", currentHour, currentHourCalls),
		NextPeak:    fmt.Sprintf("%02d:00 - %d chamadas previstas", nextPeakHour, maxCalls),
		Comparison:  fmt.Sprintf("%.1f%%", ratio),
	}
}

// totalDeviceStats aggregates the whole log into the single "TOTAL" row.
func totalDeviceStats(events []domain.Event, clock *timezone.Service, now time.Time) domain.DeviceStats {
	total, answered, missed, busy := countByType(events)

	answerRate := 0.0
	if total > 0 {
		answerRate = float64(answered) * 100.0 / float64(total)
	}

	lastActivity := "N/A"
	isActive := false
	if last := latestTimestamp(events); !last.IsZero() {
		lastActivity = clock.FormatLocal(last)
		isActive = !last.Before(now.Add(-deviceActivityWindow))
	}

	return domain.DeviceStats{
		DeviceID:      "TOTAL",
		TotalCalls:    total,
		AnsweredCalls: answered,
		MissedCalls:   missed,
		BusyCalls:     busy,
		AnswerRate:    answerRate,
		LastActivity:  lastActivity,
		IsActive:      isActive,
	}
}

// activeDevices breaks down the devices seen in the last 24 hours. A device
// is flagged active when its last event is within five minutes of now. The
// display name comes from the deviceName key of the latest event's
// additionalData when present.
func activeDevices(events []domain.Event, clock *timezone.Service, now time.Time) []domain.DeviceStats {
	cutoff := now.Add(-activeDeviceWindow)

	grouped := make(map[string][]domain.Event)
	for _, e := range events {
		if e.Timestamp.Before(cutoff) {
			continue
		}
		grouped[e.DeviceID] = append(grouped[e.DeviceID], e)
	}

	type deviceEntry struct {
		stats domain.DeviceStats
		last  time.Time
	}

	entries := make([]deviceEntry, 0, len(grouped))
	for deviceID, deviceEvents := range grouped {
		total, answered, missed, busy := countByType(deviceEvents)

		answerRate := 0.0
		if total > 0 {
			answerRate = roundRate(float64(answered) * 100.0 / float64(total))
		}

		last := latestTimestamp(deviceEvents)
		name := deviceID
		for _, e := range deviceEvents {
			if e.Timestamp.Equal(last) {
				if n, ok := parseAdditionalData(e.AdditionalData)["deviceName"]; ok && n != "" {
					name = n
				}
				break
			}
		}

		entries = append(entries, deviceEntry{
			stats: domain.DeviceStats{
				DeviceID:      name,
				TotalCalls:    total,
				AnsweredCalls: answered,
				MissedCalls:   missed,
				BusyCalls:     busy,
				AnswerRate:    answerRate,
				LastActivity:  clock.FormatLocal(last),
				IsActive:      last.After(now.Add(-deviceActivityWindow)),
			},
			last: last,
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].last.After(entries[j].last) })

	stats := make([]domain.DeviceStats, len(entries))
	for i, entry := range entries {
		stats[i] = entry.stats
	}
	return stats
}

// recentCalls projects the newest window events into compact call records.
func recentCalls(events []domain.Event) []domain.CallRecord {
	sorted := make([]domain.Event, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.After(sorted[j].Timestamp) })

	if len(sorted) > recentCallsLimit {
		sorted = sorted[:recentCallsLimit]
	}

	calls := make([]domain.CallRecord, len(sorted))
	for i, e := range sorted {
		duration := "-"
		if d, ok := parseAdditionalData(e.AdditionalData)["duration"]; ok && d != "" {
			duration = d
		}
		calls[i] = domain.CallRecord{
			PhoneNumber: e.PhoneNumber,
			Timestamp:   e.Timestamp.UnixMilli(),
			Duration:    duration,
			Status:      e.EventType,
			Device:      e.DeviceID,
		}
	}
	return calls
}

// parseAdditionalData tolerantly decodes the opaque metadata blob. Anything
// that is not a JSON object yields an empty map.
func parseAdditionalData(additionalData string) map[string]string {
	if additionalData == "" {
		return map[string]string{}
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(additionalData), &raw); err != nil {
		return map[string]string{}
	}

	fields := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case string:
			fields[key] = v
		case float64:
			fields[key] = fmt.Sprintf("%v", v)
		}
	}
	return fields
}

func latestTimestamp(events []domain.Event) time.Time {
	var last time.Time
	for _, e := range events {
		if e.Timestamp.After(last) {
			last = e.Timestamp
		}
	}
	return last
}

// roundRate keeps one decimal place, matching the dashboard display.
func roundRate(rate float64) float64 {
	return math.Round(rate*10) / 10
}
