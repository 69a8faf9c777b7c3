package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"binacloud/monitor/database"
	"binacloud/monitor/domain"
	"binacloud/monitor/timezone"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	domain.EventStore
}

func (failingStore) FindByPhoneNumberDesc(context.Context, string) ([]domain.Event, error) {
	return nil, errors.New("clickhouse is down")
}

func TestTimeSinceLastCall(t *testing.T) {
	ctx := context.Background()
	clock := timezone.NewService("UTC")

	t.Run("empty phone number is a first contact", func(t *testing.T) {
		history := NewCallHistory(database.NewMemoryStore(), clock, zerolog.Nop())
		assert.Equal(t, FirstContactMarker, history.TimeSinceLastCall(ctx, "", "any-id"))
	})

	t.Run("unknown number is a first contact", func(t *testing.T) {
		history := NewCallHistory(database.NewMemoryStore(), clock, zerolog.Nop())
		assert.Equal(t, FirstContactMarker, history.TimeSinceLastCall(ctx, "61981122752", "any-id"))
	})

	t.Run("current event is excluded by identity", func(t *testing.T) {
		store := database.NewMemoryStore()
		require.NoError(t, store.Save(ctx, &domain.Event{
			ID:          "current",
			PhoneNumber: "61981122752",
			Timestamp:   time.Now().UTC(),
		}))

		history := NewCallHistory(store, clock, zerolog.Nop())
		assert.Equal(t, FirstContactMarker, history.TimeSinceLastCall(ctx, "61981122752", "current"))
	})

	t.Run("previous call thirty minutes ago", func(t *testing.T) {
		store := database.NewMemoryStore()
		require.NoError(t, store.Save(ctx, &domain.Event{
			ID:          "previous",
			PhoneNumber: "61981122752",
			Timestamp:   time.Now().UTC().Add(-30 * time.Minute),
		}))
		require.NoError(t, store.Save(ctx, &domain.Event{
			ID:          "current",
			PhoneNumber: "61981122752",
			Timestamp:   time.Now().UTC(),
		}))

		history := NewCallHistory(store, clock, zerolog.Nop())
		assert.Equal(t, "30 minutos", history.TimeSinceLastCall(ctx, "61981122752", "current"))
	})

	t.Run("picks the latest surviving event", func(t *testing.T) {
		store := database.NewMemoryStore()
		require.NoError(t, store.Save(ctx, &domain.Event{
			ID:          "old",
			PhoneNumber: "61981122752",
			Timestamp:   time.Now().UTC().Add(-48 * time.Hour),
		}))
		require.NoError(t, store.Save(ctx, &domain.Event{
			ID:          "recent",
			PhoneNumber: "61981122752",
			Timestamp:   time.Now().UTC().Add(-10 * time.Minute),
		}))
		require.NoError(t, store.Save(ctx, &domain.Event{
			ID:          "current",
			PhoneNumber: "61981122752",
			Timestamp:   time.Now().UTC(),
		}))

		history := NewCallHistory(store, clock, zerolog.Nop())
		assert.Equal(t, "10 minutos", history.TimeSinceLastCall(ctx, "61981122752", "current"))
	})

	t.Run("store failure degrades to the error marker", func(t *testing.T) {
		history := NewCallHistory(failingStore{}, clock, zerolog.Nop())
		assert.Equal(t, LookupErrorMarker, history.TimeSinceLastCall(ctx, "61981122752", "current"))
	})
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		want    string
	}{
		{"seconds only", 45 * time.Second, "menos de 1 minuto"},
		{"exact minute", time.Minute, "1 minutos"},
		{"thirty minutes", 30 * time.Minute, "30 minutos"},
		{"hours and minutes", 2*time.Hour + 15*time.Minute, "2 horas e 15 minutos"},
		{"days and hours", 49 * time.Hour, "2 dias e 1 horas"},
		{"negative clamps to zero", -time.Minute, "menos de 1 minuto"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatElapsed(tt.elapsed))
		})
	}
}
