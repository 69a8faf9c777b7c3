package domain

// DashboardStats is the full payload backing the monitoring dashboard,
// computed on demand from the event log.
type DashboardStats struct {
	TotalCalls    int64   `json:"totalCalls"`
	AnsweredCalls int64   `json:"answeredCalls"`
	MissedCalls   int64   `json:"missedCalls"`
	BusyCalls     int64   `json:"busyCalls"`
	AnswerRate    float64 `json:"answerRate"`

	CallsPerHour  []int           `json:"callsPerHour"`
	DeviceStats   DeviceStats     `json:"deviceStats"`
	PeakHours     [][]int         `json:"peakHours"`
	TemporalData  []TemporalPoint `json:"temporalData"`
	PeakMetrics   PeakMetrics     `json:"peakMetrics"`
	RecentCalls   []CallRecord    `json:"recentCalls"`
	ActiveDevices []DeviceStats   `json:"activeDevices"`
}

// DeviceStats is a per-device call breakdown. The "TOTAL" entry aggregates
// every device.
type DeviceStats struct {
	DeviceID      string  `json:"deviceId"`
	TotalCalls    int64   `json:"totalCalls"`
	AnsweredCalls int64   `json:"answeredCalls"`
	MissedCalls   int64   `json:"missedCalls"`
	BusyCalls     int64   `json:"busyCalls"`
	AnswerRate    float64 `json:"answerRate"`
	LastActivity  string  `json:"lastActivity"`
	IsActive      bool    `json:"isActive"`
}

// TemporalPoint is one day of the dense daily call-volume series.
// Timestamp is the day's UTC midnight in epoch milliseconds.
type TemporalPoint struct {
	Timestamp int64 `json:"timestamp"`
	Value     int   `json:"value"`
}

// PeakMetrics describes the current-hour load and the predicted next peak.
type PeakMetrics struct {
	CurrentPeak string `json:"currentPeak"`
	NextPeak    string `json:"nextPeak"`
	Comparison  string `json:"comparison"`
}

// CallRecord is a compact projection of an event for the recent-calls list.
type CallRecord struct {
	PhoneNumber string `json:"phoneNumber"`
	Timestamp   int64  `json:"timestamp"`
	Duration    string `json:"duration"`
	Status      string `json:"status"`
	Device      string `json:"device"`
}
