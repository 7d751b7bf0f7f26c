package progression

import "time"

// NextStreak applies the daily streak rule for activity at now.
//
// Dates are compared in loc. Activity on the same day as the last one leaves
// the streak unchanged, activity on the following day extends it, and
// anything else (a gap, or no prior activity) starts over at 1.
func NextStreak(streak int, lastActivity *time.Time, now time.Time, loc *time.Location) int {
	if lastActivity == nil {
		return 1
	}

	today := dateOf(now, loc)
	last := dateOf(*lastActivity, loc)

	switch {
	case last.Equal(today):
		if streak < 1 {
			return 1
		}
		return streak
	case last.Equal(today.AddDate(0, 0, -1)):
		return streak + 1
	default:
		return 1
	}
}

// dateOf truncates t to midnight of its calendar day in loc.
func dateOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
