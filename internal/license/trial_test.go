package license

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrialExtraDaysPinned(t *testing.T) {
	assert.Equal(t, 14, TrialExtraDays)
}

func TestDeadline(t *testing.T) {
	clock := NewTrialClock(time.UTC)
	cases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		// Wednesday: 4 days to Sunday + 14.
		{"wednesday", time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC), time.Date(2024, 1, 21, 23, 59, 59, 999_000_000, time.UTC)},
		// Sunday counts to the following Sunday.
		{"sunday", time.Date(2024, 1, 7, 0, 0, 1, 0, time.UTC), time.Date(2024, 1, 28, 23, 59, 59, 999_000_000, time.UTC)},
		{"saturday late", time.Date(2024, 1, 6, 23, 59, 0, 0, time.UTC), time.Date(2024, 1, 21, 23, 59, 59, 999_000_000, time.UTC)},
		{"month rollover", time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC), time.Date(2024, 2, 18, 23, 59, 59, 999_000_000, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := clock.Deadline(tc.now)
			assert.True(t, tc.want.Equal(got), "got %s want %s", got, tc.want)
			assert.Equal(t, time.Sunday, got.Weekday())
		})
	}
}

func TestDeadlineUsesClockLocation(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	// Saturday 20:00 UTC is already Sunday 06:00 at UTC+10.
	now := time.Date(2024, 1, 6, 20, 0, 0, 0, time.UTC)

	got := NewTrialClock(loc).Deadline(now)
	assert.Equal(t, time.Date(2024, 1, 28, 23, 59, 59, 999_000_000, loc), got)
}

func TestDaysRemaining(t *testing.T) {
	expires := time.Date(2024, 1, 21, 23, 59, 59, 999_000_000, time.UTC)
	assert.Equal(t, 18, DaysRemaining(expires, time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, DaysRemaining(expires, expires.Add(-time.Hour)))
	assert.Equal(t, 0, DaysRemaining(expires, expires))
	assert.Equal(t, 0, DaysRemaining(expires, expires.Add(48*time.Hour)))
}
