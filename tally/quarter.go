/*
quarter.go - Fiscal-quarter date arithmetic

PURPOSE:
  Maps an arbitrary calendar date to the fiscal quarter containing it.
  Quarters follow the calendar: Jan-Mar, Apr-Jun, Jul-Sep, Oct-Dec.
  The quarter's end is computed as the day before the next quarter's
  start, which rolls the year forward when Q4 overflows into Q1.

  The canonical session name for a quarter is "<year> Quarter <q>",
  e.g. "2024 Quarter 1". Names are the uniqueness key for sessions.

SEE ALSO:
  - service.go: ResolveSessionForDate (get-or-create on top of this)
*/
package tally

import (
	"fmt"
	"time"
)

// QuarterOf returns the year and quarter number (1-4) containing the date.
func QuarterOf(d Date) (year, quarter int) {
	return d.Year(), (int(d.Month())-1)/3 + 1
}

// QuarterPeriod returns the inclusive date range of the given quarter.
func QuarterPeriod(year, quarter int) Period {
	start := NewDate(year, time.Month((quarter-1)*3+1), 1)

	nextYear, nextQuarter := year, quarter+1
	if nextQuarter > 4 {
		nextYear++
		nextQuarter = 1
	}
	nextStart := NewDate(nextYear, time.Month((nextQuarter-1)*3+1), 1)

	return Period{Start: start, End: nextStart.AddDays(-1)}
}

// QuarterName returns the canonical session name for a quarter.
func QuarterName(year, quarter int) string {
	return fmt.Sprintf("%d Quarter %d", year, quarter)
}

// QuarterForDate returns the name and period of the quarter containing
// the date. This is pure date arithmetic; persistence happens in
// Service.ResolveSessionForDate.
func QuarterForDate(d Date) (name string, period Period) {
	year, quarter := QuarterOf(d)
	return QuarterName(year, quarter), QuarterPeriod(year, quarter)
}
