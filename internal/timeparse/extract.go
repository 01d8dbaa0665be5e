// Package timeparse extracts the time window an attendance question refers to.
//
// Rules are applied in fixed precedence, not left to right through the text:
//
//  1. exact date (2025-10-08, 8 October 2025, October 8, 2025)
//  2. month + year (March 2024, 2024 mar, 2024-03, 03/2024, month 3 of 2024)
//  3. bare year (2023)
//  4. relative phrase (today, yesterday, this/last week, this/last month, this/last year)
//
// Out-of-range values produce explicit invalid kinds instead of a window so the
// caller can ask for clarification. A month without a year is incomplete.
package timeparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MinYear is the earliest year records can exist for.
const MinYear = 2000

// RulesVersion identifies the canonical temporal rule set.
const RulesVersion = "timeparse/2025.2"

// Kind classifies an extraction result.
type Kind string

const (
	KindNone         Kind = "NONE"
	KindWindow       Kind = "WINDOW"
	KindInvalidMonth Kind = "INVALID_MONTH"
	KindInvalidYear  Kind = "INVALID_YEAR"
	KindInvalidDate  Kind = "INVALID_DATE"
	KindIncomplete   Kind = "INCOMPLETE"
)

// Granularity describes the span a window was built from.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityMonth Granularity = "month"
	GranularityYear  Granularity = "year"
	GranularityRange Granularity = "range"
)

// Window is an inclusive date range. Start and End are midnight UTC.
type Window struct {
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
	Label       string      `json:"label"`
	Granularity Granularity `json:"granularity"`
}

// SingleDay reports whether the window covers exactly one date.
func (w Window) SingleDay() bool {
	return w.Start.Equal(w.End)
}

// Contains reports whether d falls inside the window, comparing dates only.
func (w Window) Contains(d time.Time) bool {
	day := dateOf(d)
	return !day.Before(w.Start) && !day.After(w.End)
}

// Result is the outcome of Extract. Window is set only for KindWindow.
type Result struct {
	Kind   Kind    `json:"kind"`
	Window *Window `json:"window,omitempty"`
	Rule   string  `json:"rule,omitempty"`
}

// Found reports whether a usable window was extracted.
func (r Result) Found() bool {
	return r.Kind == KindWindow && r.Window != nil
}

const monthAlt = `january|february|march|april|may|june|july|august|september|october|november|december|` +
	`jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec`

var monthNumbers = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sept": time.September, "sep": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var (
	isoDateRe      = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	dayMonthYearRe = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(` + monthAlt + `)\.?,?\s+(\d{4})\b`)
	monthDayYearRe = regexp.MustCompile(`\b(` + monthAlt + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)

	yearMonthRe    = regexp.MustCompile(`\b(\d{4})-(\d{1,2})\b`)
	monthYearNumRe = regexp.MustCompile(`\b(\d{1,2})[/-](\d{4})\b`)
	monthNameRe    = regexp.MustCompile(`\b(` + monthAlt + `)\b`)
	monthNumberRe  = regexp.MustCompile(`\bmonth\s+(?:no\.?\s*|number\s+)?(\d{1,3})\b`)
	modalMayRe     = regexp.MustCompile(`^may\s+(?:i|we|you|he|she|they|it|my|our|be|have|not)\b`)

	yearRe = regexp.MustCompile(`\b(\d{4})\b`)

	thisYearRe = regexp.MustCompile(`\bthis\s+year\b`)
	lastYearRe = regexp.MustCompile(`\blast\s+year\b`)

	bareFollowUpRes = []*regexp.Regexp{
		regexp.MustCompile(`^(?:(?:\d{1,2}(?:st|nd|rd|th)?\s+)?(?:of\s+)?(?:` + monthAlt + `)\.?,?\s+)?(?:\d{1,2}(?:st|nd|rd|th)?,?\s+)?\d{4}$`),
		regexp.MustCompile(`^\d{4}\s+(?:` + monthAlt + `)$`),
		regexp.MustCompile(`^\d{4}-\d{1,2}(?:-\d{1,2})?$`),
		regexp.MustCompile(`^\d{1,2}/\d{4}$`),
	}
)

type relativeRule struct {
	phrase string
	re     *regexp.Regexp
	window func(today time.Time) (time.Time, time.Time)
}

var relativeRules = []relativeRule{
	{"today", regexp.MustCompile(`\btoday\b`), func(t time.Time) (time.Time, time.Time) {
		return t, t
	}},
	{"yesterday", regexp.MustCompile(`\byesterday\b`), func(t time.Time) (time.Time, time.Time) {
		y := t.AddDate(0, 0, -1)
		return y, y
	}},
	{"this week", regexp.MustCompile(`\bthis\s+week\b`), func(t time.Time) (time.Time, time.Time) {
		return weekStart(t), t
	}},
	{"last week", regexp.MustCompile(`\blast\s+week\b`), func(t time.Time) (time.Time, time.Time) {
		start := weekStart(t).AddDate(0, 0, -7)
		return start, start.AddDate(0, 0, 6)
	}},
	{"this month", regexp.MustCompile(`\bthis\s+month\b`), func(t time.Time) (time.Time, time.Time) {
		return firstOfMonth(t.Year(), t.Month()), t
	}},
	{"last month", regexp.MustCompile(`\blast\s+month\b`), func(t time.Time) (time.Time, time.Time) {
		start := firstOfMonth(t.Year(), t.Month()).AddDate(0, -1, 0)
		return start, lastOfMonth(start.Year(), start.Month())
	}},
	{"this year", thisYearRe, func(t time.Time) (time.Time, time.Time) {
		return date(t.Year(), time.January, 1), t
	}},
	{"last year", lastYearRe, func(t time.Time) (time.Time, time.Time) {
		return date(t.Year()-1, time.January, 1), date(t.Year()-1, time.December, 31)
	}},
}

// Extract parses the time window msg refers to, relative to now. The same
// message and now always yield the same result.
func Extract(msg string, now time.Time) Result {
	text := strings.ToLower(msg)
	today := dateOf(now)

	if r, ok := exactDate(text, today); ok {
		return r
	}
	if r, ok := monthYear(text, today); ok {
		return r
	}
	if r, ok := bareYear(text, today); ok {
		return r
	}
	if r, ok := relative(text, today); ok {
		return r
	}
	if _, ok := findMonthName(text); ok {
		return Result{Kind: KindIncomplete, Rule: "month without year"}
	}
	if m := monthNumberRe.FindStringSubmatch(text); m != nil {
		if n, _ := strconv.Atoi(m[1]); n < 1 || n > 12 {
			return Result{Kind: KindInvalidMonth, Rule: "month number"}
		}
		return Result{Kind: KindIncomplete, Rule: "month without year"}
	}
	return Result{Kind: KindNone}
}

// IsBareFollowUp reports whether msg consists of nothing but a year, a month
// and year, or a date, as typed in reply to a clarification question.
func IsBareFollowUp(msg string) bool {
	text := strings.ToLower(strings.TrimSpace(msg))
	text = strings.TrimRight(text, ".?!")
	text = strings.Join(strings.Fields(text), " ")
	for _, re := range bareFollowUpRes {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func exactDate(text string, today time.Time) (Result, bool) {
	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		return dayResult(y, mo, d, today, "iso date"), true
	}
	if m := dayMonthYearRe.FindStringSubmatch(text); m != nil {
		d, _ := strconv.Atoi(m[1])
		y, _ := strconv.Atoi(m[3])
		return dayResult(y, int(monthNumbers[m[2]]), d, today, "day month year"), true
	}
	if m := monthDayYearRe.FindStringSubmatch(text); m != nil {
		d, _ := strconv.Atoi(m[2])
		y, _ := strconv.Atoi(m[3])
		return dayResult(y, int(monthNumbers[m[1]]), d, today, "month day year"), true
	}
	return Result{}, false
}

func dayResult(y, mo, d int, today time.Time, rule string) Result {
	if !validYear(y, today) {
		return Result{Kind: KindInvalidYear, Rule: rule}
	}
	if mo < 1 || mo > 12 {
		return Result{Kind: KindInvalidMonth, Rule: rule}
	}
	day := date(y, time.Month(mo), d)
	if d < 1 || day.Month() != time.Month(mo) {
		return Result{Kind: KindInvalidDate, Rule: rule}
	}
	return Result{
		Kind: KindWindow,
		Rule: rule,
		Window: &Window{
			Start:       day,
			End:         day,
			Label:       day.Format("2006-01-02"),
			Granularity: GranularityDay,
		},
	}
}

func monthYear(text string, today time.Time) (Result, bool) {
	for _, m := range yearMonthRe.FindAllStringSubmatchIndex(text, -1) {
		if !standalone(text, m[0], m[1]) {
			continue
		}
		y, _ := strconv.Atoi(text[m[2]:m[3]])
		mo, _ := strconv.Atoi(text[m[4]:m[5]])
		return monthResult(y, mo, today, "numeric year-month"), true
	}
	for _, m := range monthYearNumRe.FindAllStringSubmatchIndex(text, -1) {
		if !standalone(text, m[0], m[1]) {
			continue
		}
		mo, _ := strconv.Atoi(text[m[2]:m[3]])
		y, _ := strconv.Atoi(text[m[4]:m[5]])
		return monthResult(y, mo, today, "numeric month/year"), true
	}

	if month, ok := findMonthName(text); ok {
		if y, ok := findYear(text, today); ok {
			return monthResult(y, int(month), today, "month name and year"), true
		}
		return Result{}, false
	}

	if m := monthNumberRe.FindStringSubmatch(text); m != nil {
		if y, ok := findYear(text, today); ok {
			mo, _ := strconv.Atoi(m[1])
			return monthResult(y, mo, today, "month number and year"), true
		}
	}
	return Result{}, false
}

func monthResult(y, mo int, today time.Time, rule string) Result {
	if !validYear(y, today) {
		return Result{Kind: KindInvalidYear, Rule: rule}
	}
	if mo < 1 || mo > 12 {
		return Result{Kind: KindInvalidMonth, Rule: rule}
	}
	start := firstOfMonth(y, time.Month(mo))
	return Result{
		Kind: KindWindow,
		Rule: rule,
		Window: &Window{
			Start:       start,
			End:         lastOfMonth(y, time.Month(mo)),
			Label:       fmt.Sprintf("%s %d", time.Month(mo), y),
			Granularity: GranularityMonth,
		},
	}
}

func bareYear(text string, today time.Time) (Result, bool) {
	m := yearRe.FindStringSubmatch(text)
	if m == nil {
		return Result{}, false
	}
	y, _ := strconv.Atoi(m[1])
	if !validYear(y, today) {
		return Result{Kind: KindInvalidYear, Rule: "bare year"}, true
	}
	return Result{
		Kind: KindWindow,
		Rule: "bare year",
		Window: &Window{
			Start:       date(y, time.January, 1),
			End:         date(y, time.December, 31),
			Label:       strconv.Itoa(y),
			Granularity: GranularityYear,
		},
	}, true
}

func relative(text string, today time.Time) (Result, bool) {
	for _, rr := range relativeRules {
		if !rr.re.MatchString(text) {
			continue
		}
		start, end := rr.window(today)
		if !validYear(start.Year(), today) {
			return Result{Kind: KindInvalidYear, Rule: rr.phrase}, true
		}
		label := rr.phrase
		if start.Equal(end) {
			label = fmt.Sprintf("%s (%s)", rr.phrase, start.Format("2006-01-02"))
		}
		return Result{
			Kind: KindWindow,
			Rule: rr.phrase,
			Window: &Window{
				Start:       start,
				End:         end,
				Label:       label,
				Granularity: GranularityRange,
			},
		}, true
	}
	return Result{}, false
}

// findMonthName returns the first month name in text, skipping the modal verb
// "may" ("may I see ...").
func findMonthName(text string) (time.Month, bool) {
	for _, loc := range monthNameRe.FindAllStringIndex(text, -1) {
		word := text[loc[0]:loc[1]]
		if word == "may" && modalMayRe.MatchString(text[loc[0]:]) {
			continue
		}
		return monthNumbers[word], true
	}
	return 0, false
}

// findYear returns an explicit four-digit year, or the year named by
// "this year" / "last year".
func findYear(text string, today time.Time) (int, bool) {
	if m := yearRe.FindStringSubmatch(text); m != nil {
		y, _ := strconv.Atoi(m[1])
		return y, true
	}
	if thisYearRe.MatchString(text) {
		return today.Year(), true
	}
	if lastYearRe.MatchString(text) {
		return today.Year() - 1, true
	}
	return 0, false
}

// standalone rejects numeric matches glued to other date separators, such as
// the "10/2024" inside "5/10/2024".
func standalone(text string, start, end int) bool {
	if start > 0 && strings.ContainsRune("/-.", rune(text[start-1])) {
		return false
	}
	if end < len(text) && strings.ContainsRune("/-", rune(text[end])) {
		return false
	}
	return true
}

func validYear(y int, today time.Time) bool {
	return y >= MinYear && y <= today.Year()
}

func weekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}

func firstOfMonth(y int, m time.Month) time.Time {
	return date(y, m, 1)
}

func lastOfMonth(y int, m time.Month) time.Time {
	return date(y, m+1, 0)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dateOf(t time.Time) time.Time {
	return date(t.Year(), t.Month(), t.Day())
}
