package timeparse

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Friday.
var now = time.Date(2026, time.October, 16, 15, 30, 0, 0, time.UTC)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func requireWindow(t *testing.T, r Result, start, end time.Time) {
	t.Helper()
	require.Equal(t, KindWindow, r.Kind, "rule=%s", r.Rule)
	require.NotNil(t, r.Window)
	assert.Equal(t, start, r.Window.Start)
	assert.Equal(t, end, r.Window.End)
}

func TestExtractExamples(t *testing.T) {
	r := Extract("attendance of March 2024", now)
	requireWindow(t, r, d(2024, time.March, 1), d(2024, time.March, 31))
	assert.Equal(t, "March 2024", r.Window.Label)
	assert.Equal(t, GranularityMonth, r.Window.Granularity)

	r = Extract("attendance of 2023", now)
	requireWindow(t, r, d(2023, time.January, 1), d(2023, time.December, 31))
	assert.Equal(t, "2023", r.Window.Label)

	r = Extract("was I present on 2025-10-08", now)
	requireWindow(t, r, d(2025, time.October, 8), d(2025, time.October, 8))
	assert.True(t, r.Window.SingleDay())
	assert.Equal(t, "2025-10-08", r.Window.Label)
}

func TestExtractNaturalDates(t *testing.T) {
	tests := []struct {
		msg string
		day time.Time
	}{
		{"was I absent on 8 October 2025", d(2025, time.October, 8)},
		{"attendance on 1st of feb 2024", d(2024, time.February, 1)},
		{"present on October 8, 2025?", d(2025, time.October, 8)},
		{"present on 29 feb 2024", d(2024, time.February, 29)},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			requireWindow(t, Extract(tt.msg, now), tt.day, tt.day)
		})
	}
}

func TestExtractMonthYearAnyOrder(t *testing.T) {
	names := map[time.Month][]string{
		time.January: {"january", "jan"}, time.February: {"february", "feb"},
		time.March: {"march", "mar"}, time.April: {"april", "apr"},
		time.May: {"may"}, time.June: {"june", "jun"},
		time.July: {"july", "jul"}, time.August: {"august", "aug"},
		time.September: {"september", "sept", "sep"}, time.October: {"october", "oct"},
		time.November: {"november", "nov"}, time.December: {"december", "dec"},
	}
	templates := []string{
		"attendance for %[1]s %[2]d",
		"%[2]d %[1]s attendance",
		"in %[2]d, how was my attendance during %[1]s",
		"%[1]s of %[2]d please",
		"%[1]s, %[2]d",
	}

	for month, words := range names {
		for _, word := range words {
			for _, year := range []int{2000, 2019, 2026} {
				for _, tmpl := range templates {
					msg := fmt.Sprintf(tmpl, word, year)
					r := Extract(msg, now)
					require.Equal(t, KindWindow, r.Kind, msg)
					assert.Equal(t, month, r.Window.Start.Month(), msg)
					assert.Equal(t, year, r.Window.Start.Year(), msg)
					assert.Equal(t, 1, r.Window.Start.Day(), msg)
					assert.Equal(t, month, r.Window.End.Month(), msg)
				}
			}
		}
	}
}

func TestExtractNumericMonths(t *testing.T) {
	requireWindow(t, Extract("attendance 2024-03", now), d(2024, time.March, 1), d(2024, time.March, 31))
	requireWindow(t, Extract("attendance 03/2024", now), d(2024, time.March, 1), d(2024, time.March, 31))
	requireWindow(t, Extract("attendance month 2 of 2024", now), d(2024, time.February, 1), d(2024, time.February, 29))

	assert.Equal(t, KindInvalidMonth, Extract("attendance 13/2024", now).Kind)
	assert.Equal(t, KindInvalidMonth, Extract("attendance 2024-00", now).Kind)
	assert.Equal(t, KindInvalidMonth, Extract("attendance month 13 of 2024", now).Kind)
	assert.Equal(t, KindInvalidMonth, Extract("attendance for month 14", now).Kind)
}

func TestStandaloneNumeralIsNeverAMonth(t *testing.T) {
	for _, msg := range []string{"attendance 13 2024", "attendance 7 2024", "top 3 in 2024"} {
		r := Extract(msg, now)
		requireWindow(t, r, d(2024, time.January, 1), d(2024, time.December, 31))
	}
	assert.Equal(t, KindNone, Extract("attendance 13", now).Kind)
}

func TestExtractInvalidYears(t *testing.T) {
	for _, msg := range []string{
		"attendance of 2027",
		"attendance of 1999",
		"attendance in march 2031",
		"was I present on 1998-05-01",
		"attendance 04/2099",
		"present on 3 june 2040",
		"attendance of 3024",
		"attendance in march 3024",
		"attendance of 0999",
		"was I present on 8 october 3024",
	} {
		assert.Equal(t, KindInvalidYear, Extract(msg, now).Kind, msg)
	}
	assert.Equal(t, KindWindow, Extract("attendance of 2026", now).Kind)
	assert.Equal(t, KindWindow, Extract("attendance of 2000", now).Kind)
}

func TestExtractInvalidDates(t *testing.T) {
	assert.Equal(t, KindInvalidMonth, Extract("present on 2025-13-01", now).Kind)
	assert.Equal(t, KindInvalidDate, Extract("present on 2025-02-30", now).Kind)
	assert.Equal(t, KindInvalidDate, Extract("present on 31 april 2025", now).Kind)
}

func TestExtractRelative(t *testing.T) {
	tests := []struct {
		msg        string
		start, end time.Time
	}{
		{"attendance today", d(2026, time.October, 16), d(2026, time.October, 16)},
		{"was I absent yesterday", d(2026, time.October, 15), d(2026, time.October, 15)},
		{"attendance this week", d(2026, time.October, 12), d(2026, time.October, 16)},
		{"attendance last week", d(2026, time.October, 5), d(2026, time.October, 11)},
		{"attendance this month", d(2026, time.October, 1), d(2026, time.October, 16)},
		{"attendance last month", d(2026, time.September, 1), d(2026, time.September, 30)},
		{"attendance this year", d(2026, time.January, 1), d(2026, time.October, 16)},
		{"attendance last year", d(2025, time.January, 1), d(2025, time.December, 31)},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			requireWindow(t, Extract(tt.msg, now), tt.start, tt.end)
		})
	}

	jan := time.Date(2026, time.January, 9, 8, 0, 0, 0, time.UTC)
	requireWindow(t, Extract("attendance last month", jan), d(2025, time.December, 1), d(2025, time.December, 31))
}

func TestExtractPrecedence(t *testing.T) {
	// exact date beats month+year and relative cues
	requireWindow(t, Extract("last month, specifically 2025-10-08 in october 2025", now),
		d(2025, time.October, 8), d(2025, time.October, 8))
	// month+year beats relative
	requireWindow(t, Extract("last week of march 2024", now), d(2024, time.March, 1), d(2024, time.March, 31))
	// month with relative year
	requireWindow(t, Extract("attendance in march last year", now), d(2025, time.March, 1), d(2025, time.March, 31))
}

func TestMonthWithoutYearIsIncomplete(t *testing.T) {
	for _, msg := range []string{"attendance in march", "how many days absent in sept", "attendance for month 3"} {
		assert.Equal(t, KindIncomplete, Extract(msg, now).Kind, msg)
	}
	// "may" used as a verb is not a month
	assert.Equal(t, KindNone, Extract("may I see my attendance", now).Kind)
	requireWindow(t, Extract("may I see my attendance for 2024", now), d(2024, time.January, 1), d(2024, time.December, 31))
}

func TestExtractNone(t *testing.T) {
	r := Extract("show my attendance", now)
	assert.Equal(t, KindNone, r.Kind)
	assert.Nil(t, r.Window)
	assert.False(t, r.Found())
}

func TestExtractIsIdempotent(t *testing.T) {
	for _, msg := range []string{"attendance this week", "march 2024", "2025-10-08", "attendance", "attendance 2031"} {
		assert.Equal(t, Extract(msg, now), Extract(msg, now), msg)
	}
}

func TestWindowContains(t *testing.T) {
	w := Window{Start: d(2024, time.March, 1), End: d(2024, time.March, 31)}
	assert.True(t, w.Contains(time.Date(2024, time.March, 31, 23, 59, 0, 0, time.UTC)))
	assert.True(t, w.Contains(d(2024, time.March, 1)))
	assert.False(t, w.Contains(d(2024, time.April, 1)))
	assert.False(t, w.SingleDay())
}

func TestIsBareFollowUp(t *testing.T) {
	for _, msg := range []string{"2024", " nov 2025 ", "November 2025.", "2025 nov", "2025-10-08", "8 october 2025", "2024-03", "03/2024"} {
		assert.True(t, IsBareFollowUp(msg), msg)
	}
	for _, msg := range []string{"attendance 2024", "march", "hello", "2024 marks", ""} {
		assert.False(t, IsBareFollowUp(msg), msg)
	}
}
