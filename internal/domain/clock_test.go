package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToday_UsesLocation(t *testing.T) {
	// 01:30 UTC on the 4th is still the 3rd in Sao Paulo (UTC-3).
	SetClock(clockwork.NewFakeClockAt(time.Date(2024, 6, 4, 1, 30, 0, 0, time.UTC)))
	t.Cleanup(func() { SetClock(nil) })

	loc := time.FixedZone("BRT", -3*60*60)
	assert.Equal(t, Date(2024, 6, 3), Today(loc))
	assert.Equal(t, Date(2024, 6, 4), Today(time.UTC))
}

func TestNewForecastEvent(t *testing.T) {
	now := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(now))
	t.Cleanup(func() { SetClock(nil) })

	ev := NewForecastEvent("PMEDIA-ONS", Date(2024, 6, 3), 42)

	require.NotEmpty(t, ev.ID)
	assert.Equal(t, BatchKindForecast, ev.Kind)
	assert.Equal(t, "2024-06-03", ev.RunDate)
	assert.Equal(t, 42, ev.Records)
	assert.Equal(t, now, ev.PublishedAt)
	assert.NotEqual(t, ev.ID, NewForecastEvent("PMEDIA-ONS", Date(2024, 6, 3), 42).ID)
}

func TestRunTimestamp(t *testing.T) {
	assert.Equal(t, "2024-06-03T00:00:00", RunTimestamp(time.Date(2024, 6, 3, 17, 45, 0, 0, time.UTC)))
}
