// Package calendar provides weekend-aware trading-day arithmetic.
//
// A day is a trading day iff its weekday is Monday through Friday. Exchange
// holidays are not modeled; the signal pipeline already omits non-traded
// dates, so the only calendar knowledge the simulation needs is weekend
// skipping for holding-period arithmetic.
package calendar

import "time"

// IsWeekend reports whether t falls on a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()

	return wd == time.Saturday || wd == time.Sunday
}

// IsTradingDay reports whether t is a weekday.
func IsTradingDay(t time.Time) bool {
	return !IsWeekend(t)
}

// AddTradingDays returns the date days trading days after t, skipping
// weekends. days must be non-negative; days == 0 returns t unchanged.
// A Friday plus one trading day is the following Monday.
func AddTradingDays(t time.Time, days int) time.Time {
	result := t

	for added := 0; added < days; {
		result = result.AddDate(0, 0, 1)
		if IsTradingDay(result) {
			added++
		}
	}

	return result
}

// NextTradingDay returns the first trading day strictly after t.
func NextTradingDay(t time.Time) time.Time {
	return AddTradingDays(t, 1)
}
