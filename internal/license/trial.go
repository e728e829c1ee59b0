package license

import "time"

// TrialExtraDays is added after the next Sunday, putting the deadline on the
// third Sunday from now. Another variant of this logic used 13 (the Saturday
// before); 14 is the policy this server enforces.
const TrialExtraDays = 14

// TrialClock derives trial deadlines. It has no state besides the location
// whose calendar defines "day" and "Sunday".
type TrialClock struct {
	Location *time.Location
}

// NewTrialClock returns a clock for loc, or for time.Local when loc is nil.
func NewTrialClock(loc *time.Location) TrialClock {
	if loc == nil {
		loc = time.Local
	}
	return TrialClock{Location: loc}
}

// Deadline returns the trial expiry for a trial starting at now: the end of
// the day (23:59:59.999) TrialExtraDays after the next Sunday. Next Sunday is
// always strictly in the future, so a trial started on a Sunday runs 21 days.
func (c TrialClock) Deadline(now time.Time) time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	untilSunday := (7 - int(local.Weekday())) % 7
	if untilSunday == 0 {
		untilSunday = 7
	}
	y, m, d := local.Date()
	return time.Date(y, m, d+untilSunday+TrialExtraDays, 23, 59, 59, int(999*time.Millisecond), loc)
}

// DaysRemaining returns the whole days left before expiresAt, never negative.
func DaysRemaining(expiresAt, now time.Time) int {
	left := expiresAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(left / (24 * time.Hour))
}
