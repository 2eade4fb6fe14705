// Package marketsession models the forex trading week. The spot market
// trades continuously from Sunday 22:00 UTC (Sydney open) to Friday
// 22:00 UTC (New York close); there are no intraday closes or exchange
// holidays.
package marketsession

import (
	"fmt"
	"time"
)

// Weekly open/close boundary in UTC.
const (
	OpenHourUTC  = 22 // Sunday
	CloseHourUTC = 22 // Friday
)

// IsMarketOpen returns true if t falls within the forex trading week
// (Sunday 22:00 UTC through Friday 22:00 UTC).
func IsMarketOpen(t time.Time) bool {
	u := t.UTC()
	switch u.Weekday() {
	case time.Saturday:
		return false
	case time.Sunday:
		return u.Hour() >= OpenHourUTC
	case time.Friday:
		return u.Hour() < CloseHourUTC
	default:
		return true
	}
}

// NextOpen returns the next weekly open (Sunday 22:00 UTC). If the market
// is currently open, returns the open boundary of the current week.
func NextOpen(t time.Time) time.Time {
	u := t.UTC()
	if IsMarketOpen(u) {
		// Walk back to the most recent Sunday 22:00.
		d := u
		for d.Weekday() != time.Sunday {
			d = d.AddDate(0, 0, -1)
		}
		return time.Date(d.Year(), d.Month(), d.Day(), OpenHourUTC, 0, 0, 0, time.UTC)
	}
	d := u
	for d.Weekday() != time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	open := time.Date(d.Year(), d.Month(), d.Day(), OpenHourUTC, 0, 0, 0, time.UTC)
	if !open.After(u) {
		// Sunday before 22:00 resolves to today's open; otherwise jump a week.
		open = open.AddDate(0, 0, 7)
	}
	return open
}

// NextClose returns the next weekly close (Friday 22:00 UTC) at or after t.
func NextClose(t time.Time) time.Time {
	u := t.UTC()
	d := u
	for d.Weekday() != time.Friday {
		d = d.AddDate(0, 0, 1)
	}
	c := time.Date(d.Year(), d.Month(), d.Day(), CloseHourUTC, 0, 0, 0, time.UTC)
	if c.Before(u) {
		c = c.AddDate(0, 0, 7)
	}
	return c
}

// TimeUntilOpen returns the duration until the next weekly open.
// Returns 0 if the market is open.
func TimeUntilOpen(t time.Time) time.Duration {
	if IsMarketOpen(t) {
		return 0
	}
	return NextOpen(t).Sub(t.UTC())
}

// StatusString returns a human-readable market status.
func StatusString(t time.Time) string {
	if IsMarketOpen(t) {
		d := NextClose(t).Sub(t.UTC())
		return fmt.Sprintf("Market Open — closes in %s", fmtDur(d))
	}
	next := NextOpen(t)
	return fmt.Sprintf("Market Closed — opens %s %s UTC (%s)",
		next.Weekday().String()[:3], next.Format("15:04"), fmtDur(next.Sub(t.UTC())))
}

func fmtDur(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
