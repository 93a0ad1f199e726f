package policy

import "time"

// DefaultCooldown is the reference waiting period after a rejection before
// the member may resubmit.
const DefaultCooldown = 7 * 24 * time.Hour

// CanResubmit reports whether a rejected portfolio may be resubmitted:
// true iff now >= rejectedAt + cooldown. The boundary is inclusive, so
// resubmission opens at the exact instant the cooldown elapses.
func CanResubmit(rejectedAt, now time.Time, cooldown time.Duration) bool {
	return !now.Before(rejectedAt.Add(cooldown))
}

// Remaining returns the time left in the cooldown window as whole days and
// hours for user-facing display. Days are floored; the hour component is
// rounded up, so any nonzero remainder inside the window displays as at
// least "0 days 1 hour" - the UI never shows "0 days 0 hours" while
// resubmission is still blocked. Returns (0, 0) once the window has passed.
func Remaining(rejectedAt, now time.Time, cooldown time.Duration) (days, hours int) {
	rem := rejectedAt.Add(cooldown).Sub(now)
	if rem <= 0 {
		return 0, 0
	}

	days = int(rem / (24 * time.Hour))
	frac := rem % (24 * time.Hour)
	hours = int((frac + time.Hour - 1) / time.Hour)
	if hours == 24 {
		days++
		hours = 0
	}
	return days, hours
}
