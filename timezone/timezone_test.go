package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saoPaulo(t *testing.T) *Service {
	t.Helper()

	svc := NewService(DefaultZone)
	if svc.Location().String() != DefaultZone {
		t.Skip("tzdata for America/Sao_Paulo not available")
	}
	return svc
}

func TestNewServiceFallsBackToUTC(t *testing.T) {
	svc := NewService("Not/AZone")
	assert.Equal(t, time.UTC, svc.Location())
}

func TestNowIsUTC(t *testing.T) {
	svc := NewService("")
	assert.Equal(t, time.UTC, svc.Now().Location())
}

func TestFormatLocal(t *testing.T) {
	svc := saoPaulo(t)

	// 15:04:05 UTC is 12:04:05 in Sao Paulo (UTC-3, no DST since 2019)
	instant := time.Date(2026, 8, 26, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, "26/08/2026 12:04:05", svc.FormatLocal(instant))
}

func TestFormatLocalZeroTime(t *testing.T) {
	svc := NewService("UTC")
	assert.Equal(t, "N/A", svc.FormatLocal(time.Time{}))
}

func TestConvertTimestamp(t *testing.T) {
	svc := saoPaulo(t)

	t.Run("display format returned unchanged", func(t *testing.T) {
		assert.Equal(t, "26/08/2026 12:04:05", svc.ConvertTimestamp("26/08/2026 12:04:05"))
	})

	t.Run("RFC3339 converted to display zone", func(t *testing.T) {
		assert.Equal(t, "26/08/2026 12:04:05", svc.ConvertTimestamp("2026-08-26T15:04:05Z"))
	})

	t.Run("ISO without offset treated as UTC", func(t *testing.T) {
		assert.Equal(t, "26/08/2026 12:04:05", svc.ConvertTimestamp("2026-08-26T15:04:05"))
	})

	t.Run("unparseable input returned verbatim", func(t *testing.T) {
		assert.Equal(t, "ontem de manha", svc.ConvertTimestamp("ontem de manha"))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, "N/A", svc.ConvertTimestamp(""))
	})
}

func TestToLocalRoundTrip(t *testing.T) {
	svc := saoPaulo(t)

	instant := time.Date(2026, 1, 15, 3, 0, 0, 0, time.UTC)
	local := svc.ToLocal(instant)

	require.True(t, instant.Equal(local))
	assert.Equal(t, DefaultZone, local.Location().String())
}
