// Package extract holds the pure text heuristics shared by every source
// adapter: civil date resolution, time-of-day resolution, postcode and
// venue extraction, and kennel tag resolution. Nothing in this package
// does I/O; every function is deterministic given its inputs, which is
// what keeps the parser fleet testable.
package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"onon-backend/lib/timezone"
)

type Locale int

const (
	// day-before-month ambiguity resolution, the default
	LocaleUK Locale = iota
	LocaleUS
)

// DefaultRolloverDays is how far in the past a year-less date may land
// before we assume the source meant next year. Sources list upcoming
// trails; "5th January" scraped in March is never last January.
const DefaultRolloverDays = 45

type DateOptions struct {
	// Reference anchors year inference; zero value means now in UK time.
	Reference    time.Time
	Locale       Locale
	RolloverDays int
}

var monthNames = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

func parseMonthName(text string) (time.Month, bool) {
	text = strings.ToLower(text)
	if len(text) < 3 {
		return 0, false
	}
	for i, month := range monthNames {
		if strings.HasPrefix(month, text) {
			return time.January + time.Month(i), true
		}
	}
	return 0, false
}

func validDate(year int, month time.Month, day int) bool {
	if month < time.January || month > time.December || day < 1 {
		return false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && t.Month() == month && t.Day() == day
}

func formatDate(year int, month time.Month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, int(month), day)
}

// two-digit years are century-inferred: <50 is 2000s, anything else 1900s
func expandYear(year int) int {
	if year >= 100 {
		return year
	}
	if year < 50 {
		return year + 2000
	}
	return year + 1900
}

var (
	isoDateRegex   = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	slashDateRegex = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{2,4})\b`)
	dotDateRegex   = regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.(\d{2,4})\b`)
	dayMonthRegex  = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?([a-z]{3,9})\b(?:,?\s+(\d{4}))?`)
	monthDayRegex  = regexp.MustCompile(`(?i)\b([a-z]{3,9})\s+(\d{1,2})(?:st|nd|rd|th)?\b(?:,?\s+(\d{4}))?`)
)

// ResolveDate hunts for a calendar date anywhere inside free text (a
// table cell, an event title, a paragraph) and returns it as YYYY-MM-DD.
// Formats are tried most to least specific; the first candidate that
// survives validation wins. A canonical YYYY-MM-DD input resolves to
// itself.
func ResolveDate(text string, opts DateOptions) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	ref := opts.Reference
	if ref.IsZero() {
		ref = timezone.Now()
	}
	rollover := opts.RolloverDays
	if rollover <= 0 {
		rollover = DefaultRolloverDays
	}

	if m := isoDateRegex.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if validDate(year, time.Month(month), day) {
			return formatDate(year, time.Month(month), day), true
		}
	}

	if m := slashDateRegex.FindStringSubmatch(text); m != nil {
		first, _ := strconv.Atoi(m[1])
		second, _ := strconv.Atoi(m[2])
		year := expandYear(mustAtoi(m[3]))

		day, month := first, second
		if opts.Locale == LocaleUS {
			day, month = second, first
		}
		if !validDate(year, time.Month(month), day) && validDate(year, time.Month(day), month) {
			// the source wrote the other order; only one reading is a real date
			day, month = month, day
		}
		if validDate(year, time.Month(month), day) {
			return formatDate(year, time.Month(month), day), true
		}
	}

	if m := dotDateRegex.FindStringSubmatch(text); m != nil {
		// the dotted form shows up on US-convention pages as M.DD.YY
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year := expandYear(mustAtoi(m[3]))
		if !validDate(year, time.Month(month), day) && validDate(year, time.Month(day), month) {
			day, month = month, day
		}
		if validDate(year, time.Month(month), day) {
			return formatDate(year, time.Month(month), day), true
		}
	}

	for _, m := range dayMonthRegex.FindAllStringSubmatch(text, -1) {
		day, _ := strconv.Atoi(m[1])
		month, ok := parseMonthName(m[2])
		if !ok {
			continue
		}
		if m[3] != "" {
			year := mustAtoi(m[3])
			if validDate(year, month, day) {
				return formatDate(year, month, day), true
			}
			continue
		}
		if date, ok := inferYear(ref, rollover, month, day); ok {
			return date, true
		}
	}

	for _, m := range monthDayRegex.FindAllStringSubmatch(text, -1) {
		month, ok := parseMonthName(m[1])
		if !ok {
			continue
		}
		day, _ := strconv.Atoi(m[2])
		if m[3] != "" {
			year := mustAtoi(m[3])
			if validDate(year, month, day) {
				return formatDate(year, month, day), true
			}
			continue
		}
		if date, ok := inferYear(ref, rollover, month, day); ok {
			return date, true
		}
	}

	return "", false
}

// inferYear places a year-less day/month in the reference year, bumping
// to the next year when the candidate has already drifted more than the
// rollover threshold into the past.
func inferYear(ref time.Time, rolloverDays int, month time.Month, day int) (string, bool) {
	year := ref.Year()
	if !validDate(year, month, day) {
		// leap-day listing seen in an off year
		if !validDate(year+1, month, day) {
			return "", false
		}
		year++
	}
	candidate := time.Date(year, month, day, 0, 0, 0, 0, ref.Location())
	if candidate.Before(ref.AddDate(0, 0, -rolloverDays)) {
		year++
		if !validDate(year, month, day) {
			return "", false
		}
	}
	return formatDate(year, month, day), true
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
