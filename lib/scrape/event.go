package scrape

import (
	"fmt"
	"regexp"
	"time"
)

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// RawEvent is the canonical unit every adapter produces: one upcoming
// (or recent) trail as seen at a single source, not yet deduplicated or
// tied to a canonical kennel record. The field set is a wire contract
// consumed by the downstream resolution step; adding fields is safe,
// renaming or removing is a breaking change.
type RawEvent struct {
	// civil date of the run in the source's locale, always YYYY-MM-DD
	Date string `json:"date"`
	// free-text kennel identifier as seen in the source, opaque until
	// resolved downstream
	KennelTag string `json:"kennelTag"`

	RunNumber   *int   `json:"runNumber,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Hares       string `json:"hares,omitempty"`
	Location    string `json:"location,omitempty"`
	LocationURL string `json:"locationUrl,omitempty"`
	StartTime   string `json:"startTime,omitempty"`
	SourceURL   string `json:"sourceUrl,omitempty"`
}

// NewRawEvent is the only way a RawEvent comes into existence: a record
// with a partial or invalid date is never constructed, it becomes a
// parse error carrying whatever fields did extract.
func NewRawEvent(date, kennelTag string) (RawEvent, error) {
	if !isoDate.MatchString(date) {
		return RawEvent{}, fmt.Errorf("date %q is not YYYY-MM-DD", date)
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return RawEvent{}, fmt.Errorf("date %q is not a real calendar date", date)
	}
	if kennelTag == "" {
		return RawEvent{}, fmt.Errorf("kennel tag must not be empty")
	}
	return RawEvent{Date: date, KennelTag: kennelTag}, nil
}

// InWindow reports whether the event's date falls inside
// [ref-days, ref+days]. Events outside the configured window are
// dropped silently, they are neither errors nor results.
func (e RawEvent) InWindow(ref time.Time, days int) bool {
	d, err := time.Parse("2006-01-02", e.Date)
	if err != nil {
		return false
	}
	lo := ref.AddDate(0, 0, -days)
	hi := ref.AddDate(0, 0, days)
	return !d.Before(truncateDay(lo)) && !d.After(hi)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// PartialEvent carries whatever fields were successfully extracted from
// a candidate item before extraction failed, so a human can complete
// the record by hand instead of losing the information entirely.
type PartialEvent struct {
	Date      string `json:"date,omitempty"`
	KennelTag string `json:"kennelTag,omitempty"`
	RunNumber *int   `json:"runNumber,omitempty"`
	Title     string `json:"title,omitempty"`
	Hares     string `json:"hares,omitempty"`
	Location  string `json:"location,omitempty"`
	StartTime string `json:"startTime,omitempty"`
}

// Empty reports whether nothing at all was extracted.
func (p PartialEvent) Empty() bool {
	return p == PartialEvent{}
}
