package leave

import (
	"time"

	leaveerrors "go-hris-leave/internal/leave/errors"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

var halfDayAmount = decimal.New(5, -1)

// CalculateDays returns the number of leave days consumed by the inclusive
// range [start, end]. A half day always costs 0.5 and callers must make sure
// start and end are the same date. Otherwise Saturdays and Sundays are not
// counted. Organization holidays are not considered.
func CalculateDays(start, end time.Time, halfDay bool) (decimal.Decimal, error) {
	start, end = truncateDay(start), truncateDay(end)
	if end.Before(start) {
		return decimal.Zero, leaveerrors.ErrInvalidDateRange
	}
	if halfDay {
		return halfDayAmount, nil
	}
	return decimal.NewFromInt(countWeekdays(start, end)), nil
}

func countWeekdays(start, end time.Time) int64 {
	total := int64(end.Sub(start).Hours()/24) + 1
	weeks := total / 7
	count := weeks * 5

	// walk the remainder, at most six days
	d := start.AddDate(0, 0, int(weeks*7))
	for ; !d.After(end); d = d.AddDate(0, 0, 1) {
		if !isWeekend(d) {
			count++
		}
	}
	return count
}

func isWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func parseDate(v string) (time.Time, error) {
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, leaveerrors.ErrInvalidDateFormat
	}
	return t, nil
}
