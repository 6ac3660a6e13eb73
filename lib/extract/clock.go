package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	noonRegex     = regexp.MustCompile(`(?i)\b(?:12\s+)?noon\b`)
	midnightRegex = regexp.MustCompile(`(?i)\bmidnight\b`)
	clockRegex    = regexp.MustCompile(`(?i)\b(\d{1,2})(?:[:.](\d{2}))?\s*(?:(am|pm)\b|(a\.m\.|p\.m\.))?`)
)

// ResolveClockTime finds a start time in free text and returns it in
// 24-hour HH:MM form. "Noon" is a literal special case rather than an
// input to 12-hour arithmetic, because sources write "12 Noon" and
// "Noon" interchangeably. A canonical HH:MM input resolves to itself.
func ResolveClockTime(text string) (string, bool) {
	if noonRegex.MatchString(text) {
		return "12:00", true
	}
	if midnightRegex.MatchString(text) {
		return "00:00", true
	}

	for _, m := range clockRegex.FindAllStringSubmatch(text, -1) {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		meridiem := strings.ToLower(m[3])
		if meridiem == "" {
			meridiem = strings.ToLower(strings.ReplaceAll(m[4], ".", ""))
		}

		// a bare number with no minutes and no meridiem is more likely a
		// run number or a day than a time
		if m[2] == "" && meridiem == "" {
			continue
		}
		if minute > 59 {
			continue
		}

		switch meridiem {
		case "pm":
			if hour < 1 || hour > 12 {
				continue
			}
			if hour != 12 {
				hour += 12
			}
		case "am":
			if hour < 1 || hour > 12 {
				continue
			}
			if hour == 12 {
				hour = 0
			}
		default:
			if hour > 23 {
				continue
			}
		}

		return fmt.Sprintf("%02d:%02d", hour, minute), true
	}

	return "", false
}
