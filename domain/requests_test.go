package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetUniqueKey(t *testing.T) {
	req := EventRequest{
		DeviceID:       "d1",
		EventType:      "RECEIVED",
		AdditionalData: `{"numero":"61981122752"}`,
		Timestamp:      1732233600,
	}

	assert.Equal(t, `d1|RECEIVED|1732233600|{"numero":"61981122752"}`, req.GetUniqueKey())
}

func TestGetUniqueKeyDistinguishesRetriesFromNewReports(t *testing.T) {
	a := EventRequest{DeviceID: "d1", EventType: "RECEIVED", Timestamp: 1000}
	retry := a
	b := EventRequest{DeviceID: "d1", EventType: "RECEIVED", Timestamp: 1001}

	assert.Equal(t, a.GetUniqueKey(), retry.GetUniqueKey())
	assert.NotEqual(t, a.GetUniqueKey(), b.GetUniqueKey())
}
