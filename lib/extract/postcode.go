package extract

import (
	"regexp"
	"strings"

	"onon-backend/lib/textutil"
)

var postcodeRegex = regexp.MustCompile(`(?i)\b([A-Z]{1,2}\d[A-Z\d]?)\s?(\d[A-Z]{2})\b`)

// venue nouns that mark a cell as "probably the meeting place" when no
// postcode is present
var venueNouns = []string{
	"pub", "inn", "hotel", "tavern", "arms", "bar", "brewery",
	"station", "church", "hall", "green", "common", "park",
	"car park", "carpark", "cross", "bridge",
}

// ExtractPostcode pulls a UK-style postcode out of free text and
// canonicalizes it to uppercase with a single separating space, so the
// same postcode extracted from two sources compares equal.
func ExtractPostcode(text string) (string, bool) {
	m := postcodeRegex.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.ToUpper(m[1]) + " " + strings.ToUpper(m[2]), true
}

// SelectVenue picks the most trustworthy location cell out of a row.
// A cell carrying a postcode wins over a cell that merely sounds like a
// venue; a correctly-addressed but oddly-named venue beats a
// postcode-less match on name alone.
func SelectVenue(cells []string) (location string, postcode string) {
	for _, cell := range cells {
		if pc, ok := ExtractPostcode(cell); ok {
			return textutil.CollapseSpace(cell), pc
		}
	}
	for _, cell := range cells {
		lowered := strings.ToLower(cell)
		for _, noun := range venueNouns {
			if containsWord(lowered, noun) {
				return textutil.CollapseSpace(cell), ""
			}
		}
	}
	return "", ""
}

func containsWord(haystack, word string) bool {
	idx := 0
	for {
		i := strings.Index(haystack[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		startOk := start == 0 || !isWordByte(haystack[start-1])
		endOk := end == len(haystack) || !isWordByte(haystack[end])
		if startOk && endOk {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
