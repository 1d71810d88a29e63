package tally_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lariv/tally-engine/tally"
)

func TestQuarterForDate_Boundaries(t *testing.T) {
	tests := []struct {
		date      tally.Date
		wantName  string
		wantStart tally.Date
		wantEnd   tally.Date
	}{
		{
			date:      tally.NewDate(2024, time.March, 31),
			wantName:  "2024 Quarter 1",
			wantStart: tally.NewDate(2024, time.January, 1),
			wantEnd:   tally.NewDate(2024, time.March, 31),
		},
		{
			date:      tally.NewDate(2024, time.April, 1),
			wantName:  "2024 Quarter 2",
			wantStart: tally.NewDate(2024, time.April, 1),
			wantEnd:   tally.NewDate(2024, time.June, 30),
		},
		{
			date:      tally.NewDate(2024, time.August, 15),
			wantName:  "2024 Quarter 3",
			wantStart: tally.NewDate(2024, time.July, 1),
			wantEnd:   tally.NewDate(2024, time.September, 30),
		},
		{
			// Q4 end must roll the year forward to compute Jan 1 - 1 day
			date:      tally.NewDate(2024, time.December, 31),
			wantName:  "2024 Quarter 4",
			wantStart: tally.NewDate(2024, time.October, 1),
			wantEnd:   tally.NewDate(2024, time.December, 31),
		},
		{
			date:      tally.NewDate(2025, time.January, 1),
			wantName:  "2025 Quarter 1",
			wantStart: tally.NewDate(2025, time.January, 1),
			wantEnd:   tally.NewDate(2025, time.March, 31),
		},
	}

	for _, tc := range tests {
		t.Run(tc.wantName+"/"+tc.date.String(), func(t *testing.T) {
			name, period := tally.QuarterForDate(tc.date)
			assert.Equal(t, tc.wantName, name)
			assert.True(t, period.Start.Equal(tc.wantStart), "start: got %s", period.Start)
			assert.True(t, period.End.Equal(tc.wantEnd), "end: got %s", period.End)
			assert.True(t, period.Contains(tc.date), "period %s should contain %s", period, tc.date)
		})
	}
}

func TestQuarterForDate_AlwaysContainsDate(t *testing.T) {
	// Walk every day of two years, including a leap year.
	day := tally.NewDate(2024, time.January, 1)
	end := tally.NewDate(2025, time.December, 31)
	for day.BeforeOrEqual(end) {
		_, period := tally.QuarterForDate(day)
		require.True(t, period.Contains(day), "period %s should contain %s", period, day)
		day = day.AddDays(1)
	}
}

func TestQuarterPeriod_LeapFebruary(t *testing.T) {
	period := tally.QuarterPeriod(2024, 1)
	assert.Equal(t, "2024-03-31", period.End.String())

	_, q1 := tally.QuarterForDate(tally.NewDate(2024, time.February, 29))
	assert.True(t, q1.Contains(tally.NewDate(2024, time.February, 29)))
}

func TestParseDate(t *testing.T) {
	d, err := tally.ParseDate("2024-03-31")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-31", d.String())

	for _, bad := range []string{"", "2024-13-01", "2024-02-30", "31/03/2024", "yesterday"} {
		_, err := tally.ParseDate(bad)
		assert.ErrorIs(t, err, tally.ErrInvalidDate, "input %q", bad)
	}
}
