package notification

import (
	"fmt"
	"time"
)

// OrdinalSuffix returns the English ordinal suffix for a day of the month.
func OrdinalSuffix(day int) string {
	n := day
	if n < 0 {
		n = -n
	}
	if r := n % 100; r >= 11 && r <= 13 {
		return "th"
	}
	switch n % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}

// Ordinal renders day with its suffix, e.g. "21st".
func Ordinal(day int) string {
	return fmt.Sprintf("%d%s", day, OrdinalSuffix(day))
}

// NextPaymentDate returns the nearest date on or after now falling on the given
// day of the month. Days past the end of a month clamp to its last day.
func NextPaymentDate(day int, now time.Time) time.Time {
	year, month, today := now.Date()
	if day < today {
		month++
		if month > time.December {
			month = time.January
			year++
		}
	}

	if last := daysIn(year, month, now.Location()); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(year, month, day, 0, 0, 0, 0, now.Location())
}

// FormatNextPaymentDate formats NextPaymentDate as a long date, e.g. "15 February 2025".
func FormatNextPaymentDate(day int, now time.Time) string {
	return NextPaymentDate(day, now).Format("2 January 2006")
}

// daysIn relies on time.Date normalising day 0 to the last day of the previous month.
func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// FormatAmount converts minor currency units (pence) into "£X.XX".
func FormatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s£%d.%02d", sign, minor/100, minor%100)
}
