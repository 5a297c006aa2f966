package event

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// months maps month tokens (lowercased, no trailing period) to calendar
// months. Unknown tokens mean "no match", never an error.
var months = map[string]time.Month{
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
	// "Saturday," / "Sat" prefixes carry no date information.
	dayNameRe = regexp.MustCompile(`(?i)\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday|mon|tue|tues|wed|thu|thur|thurs|fri|sat|sun)\b[,.]?\s*`)

	// "February 19, 2026" / "Feb 19" / "March 3rd 2025". The year must be
	// separated from the day by a comma or whitespace so that "February
	// 2025" cannot parse as day 20, year 25.
	monthFirstRe = regexp.MustCompile(`(?i)\b([a-z]{3,9})\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:(?:\s*,\s*|\s+)(\d{2}|\d{4}))?\b`)

	// "19 February 2026" / "17th December"
	dayFirstRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?([a-z]{3,9})\.?(?:(?:\s*,\s*|\s+)(\d{2}|\d{4}))?\b`)

	// "2/7/26", "02/15/2026", "4.4.26": month first, the convention on
	// every source that uses numeric dates.
	numericRe = regexp.MustCompile(`\b(\d{1,2})[/.](\d{1,2})[/.](\d{2,4})\b`)

	// "2026-02-19"
	isoRe = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)

	explicitYearRe = regexp.MustCompile(`\b(19|20)\d{2}\b`)

	clockRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
)

// ParseDate extracts the first recognizable date expression from free
// text and returns it as an ISO YYYY-MM-DD string. The reference instant
// drives year inference for year-less dates. Returns ok=false for text
// with no recognizable, in-range date; it never panics on nonsense input.
func ParseDate(text string, ref time.Time) (string, bool) {
	text = dayNameRe.ReplaceAllString(text, "")
	iso, _, _, ok := FindDate(text, ref)
	return iso, ok
}

// FindDate is ParseDate plus the byte span of the matched date
// expression. Title grammars use the span to split "name, date, trailing
// qualifier" titles around the date. Day-name prefixes are not stripped
// here, so spans are positions in the text as given.
func FindDate(text string, ref time.Time) (iso string, start, end int, ok bool) {
	group := func(m []int, i int) string {
		if m[2*i] < 0 {
			return ""
		}
		return text[m[2*i]:m[2*i+1]]
	}

	if m := isoRe.FindStringSubmatchIndex(text); m != nil {
		year, _ := strconv.Atoi(group(m, 1))
		month, _ := strconv.Atoi(group(m, 2))
		day, _ := strconv.Atoi(group(m, 3))
		if iso, ok := buildDate(year, time.Month(month), day); ok {
			return iso, m[0], m[1], true
		}
	}

	// Scan every candidate expression: the first word-plus-number pair in
	// a title is often not the date ("Trail 2298").
	for _, m := range monthFirstRe.FindAllStringSubmatchIndex(text, -1) {
		if month, found := months[strings.ToLower(group(m, 1))]; found {
			if iso, ok := resolveNamed(month, group(m, 2), group(m, 3), text, ref); ok {
				return iso, m[0], m[1], true
			}
		}
	}

	for _, m := range dayFirstRe.FindAllStringSubmatchIndex(text, -1) {
		if month, found := months[strings.ToLower(group(m, 2))]; found {
			if iso, ok := resolveNamed(month, group(m, 1), group(m, 3), text, ref); ok {
				return iso, m[0], m[1], true
			}
		}
	}

	if m := numericRe.FindStringSubmatchIndex(text); m != nil {
		month, _ := strconv.Atoi(group(m, 1))
		day, _ := strconv.Atoi(group(m, 2))
		year, _ := strconv.Atoi(group(m, 3))
		if year < 100 {
			year += 2000
		}
		if iso, ok := buildDate(year, time.Month(month), day); ok {
			return iso, m[0], m[1], true
		}
	}

	return "", 0, 0, false
}

// resolveNamed turns a matched month-name expression into an ISO date.
// yearText is the year captured next to the expression, possibly empty;
// when empty, an explicit four-digit year anywhere else in the text still
// overrides inference.
func resolveNamed(month time.Month, dayText, yearText, fullText string, ref time.Time) (string, bool) {
	day, err := strconv.Atoi(dayText)
	if err != nil || day < 1 || day > 31 {
		return "", false
	}

	if yearText != "" {
		year, _ := strconv.Atoi(yearText)
		if year < 100 {
			year += 2000
		}
		return buildDate(year, month, day)
	}

	if m := explicitYearRe.FindString(fullText); m != "" {
		year, _ := strconv.Atoi(m)
		return buildDate(year, month, day)
	}

	return buildDate(InferYear(month, day, ref), month, day)
}

// InferYear resolves the year of a year-less date: whichever of the
// reference year and its neighbors places the candidate within six months
// of the reference instant wins. The reference year is tried first, with
// inclusive bounds, so that ties and dates landing exactly on the
// six-month boundary resolve toward the current year.
func InferYear(month time.Month, day int, ref time.Time) int {
	lo, hi := ref.AddDate(0, -6, 0), ref.AddDate(0, 6, 0)

	current := time.Date(ref.Year(), month, day, 0, 0, 0, 0, time.UTC)
	if !current.Before(lo) && !current.After(hi) {
		return ref.Year()
	}
	for _, year := range []int{ref.Year() - 1, ref.Year() + 1} {
		cand := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		if cand.After(lo) && cand.Before(hi) {
			return year
		}
	}
	return ref.Year()
}

// buildDate validates and formats a calendar date. Dates that don't exist
// (February 31st) roll forward under time.Date; rejecting any roll keeps
// "no match" honest instead of inventing a nearby date.
func buildDate(year int, month time.Month, day int) (string, bool) {
	if day < 1 || day > 31 || month < time.January || month > time.December {
		return "", false
	}
	if year < 1900 || year > 2200 {
		return "", false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != month {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

// ParseClock converts common start-time spellings ("2pm", "2:30 PM",
// "14:00", "7 pm") to 24-hour HH:MM. Returns ok=false when the text holds
// no recognizable clock time.
func ParseClock(text string) (string, bool) {
	for _, m := range clockRe.FindAllStringSubmatch(text, -1) {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		meridiem := strings.ToLower(m[3])

		// A bare number with no meridiem and no minutes is a run number
		// or a date fragment, not a time.
		if meridiem == "" && m[2] == "" {
			continue
		}
		switch meridiem {
		case "pm":
			if hour < 12 {
				hour += 12
			}
		case "am":
			if hour == 12 {
				hour = 0
			}
		}
		if hour > 23 || minute > 59 {
			continue
		}
		return fmt.Sprintf("%02d:%02d", hour, minute), true
	}
	return "", false
}
