package scheduler

import "time"

// Epsilon absorbs floating rounding when comparing hour sums against the
// daily limit.
const Epsilon = 1e-6

// DateOnly truncates a timestamp to UTC midnight. All session dates and
// calendar arithmetic in the scheduler operate on these day values.
func DateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysUntil returns the number of whole calendar days from `from` to `to`.
func DaysUntil(from, to time.Time) int {
	return int(DateOnly(to).Sub(DateOnly(from)).Hours() / 24)
}

// AvailableDays returns the study days between now and the exam: the exam
// day itself is never a study day, and the count clamps at zero rather
// than going negative when the exam is today or past.
func AvailableDays(now, examDate time.Time) int {
	days := DaysUntil(now, examDate) - 1
	if days < 0 {
		return 0
	}
	return days
}

// StudyDays lists the calendar dates available for scheduling: tomorrow
// through the day before the exam, inclusive.
func StudyDays(now, examDate time.Time) []time.Time {
	n := AvailableDays(now, examDate)
	days := make([]time.Time, 0, n)
	start := DateOnly(now).AddDate(0, 0, 1)
	for i := 0; i < n; i++ {
		days = append(days, start.AddDate(0, 0, i))
	}
	return days
}
