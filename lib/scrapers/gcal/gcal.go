// Package gcal ingests Google-Calendar-style event feeds. Several
// kennels often share one calendar and distinguish themselves only by
// naming conventions in event titles, so the kennel tag override chain
// does real work here.
package gcal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"onon-backend/lib/extract"
	"onon-backend/lib/fetch"
	"onon-backend/lib/htmlutil"
	"onon-backend/lib/scrape"
	"onon-backend/lib/timezone"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/gcal")

const SourceType = "gcal"

// EnvAPIKey supplies the calendar API key when the source config does
// not carry one. Its absence is a fatal configuration error, distinct
// from a recoverable fetch error.
const EnvAPIKey = "GCAL_API_KEY"

func init() {
	scrape.Register(SourceType, Adapter{})
}

type Config struct {
	DefaultTag string            `json:"defaultTag"`
	Kennels    extract.TagConfig `json:"kennels,omitempty"`
	APIKey     string            `json:"apiKey,omitempty"`
}

type Adapter struct {
	// Client overrides the default outbound client; tests use it to
	// serve canned responses
	Client *resty.Client
}

type eventsPage struct {
	Items         []calendarEvent `json:"items"`
	NextPageToken string          `json:"nextPageToken"`
}

type calendarEvent struct {
	Status      string        `json:"status"`
	Summary     string        `json:"summary"`
	Description string        `json:"description"`
	Location    string        `json:"location"`
	HTMLLink    string        `json:"htmlLink"`
	Start       calendarStamp `json:"start"`
}

type calendarStamp struct {
	// all-day events carry a bare date
	Date     string `json:"date"`
	DateTime string `json:"dateTime"`
}

func (a Adapter) Fetch(ctx context.Context, src scrape.Source, opts scrape.Options) (scrape.Result, error) {
	ctx, span := tracer.Start(ctx, "gcal:Fetch")
	defer span.End()

	cfg, err := scrape.DecodeConfig[Config](src)
	if err != nil {
		return scrape.Result{}, err
	}
	if cfg.DefaultTag == "" {
		return scrape.Result{}, fmt.Errorf("source %q: defaultTag is required", src.Name)
	}
	custom, err := extract.CompileTagConfig(cfg.Kennels)
	if err != nil {
		return scrape.Result{}, fmt.Errorf("source %q: %w", src.Name, err)
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(EnvAPIKey)
	}
	if apiKey == "" {
		return scrape.Result{}, fmt.Errorf("source %q: calendar api key missing (set apiKey or %s)", src.Name, EnvAPIKey)
	}

	client := a.Client
	if client == nil {
		client = fetch.NewClient(fetch.Options{TracerName: "scrapers/gcal/http"})
	}

	rec := scrape.NewRecorder()
	now := timezone.Now()
	days := opts.WindowDays()

	var events []scrape.RawEvent
	itemIndex := 0
	skippedCancelled := 0
	pageToken := ""
	pages := 0
	started := time.Now()

	for {
		pages++
		res, err := client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"key":          apiKey,
				"singleEvents": "true",
				"orderBy":      "startTime",
				"timeMin":      now.AddDate(0, 0, -days).Format(time.RFC3339),
				"timeMax":      now.AddDate(0, 0, days).Format(time.RFC3339),
			}).
			SetQueryParam("pageToken", pageToken).
			Get(src.URL)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "fetch failed")
			rec.AddFetchError(scrape.FetchError{URL: src.URL, Message: err.Error()})
			break
		}
		if res.IsError() {
			rec.AddFetchError(scrape.FetchError{
				URL:     src.URL,
				Status:  res.StatusCode(),
				Message: fmt.Sprintf("unexpected status %d", res.StatusCode()),
			})
			break
		}

		var page eventsPage
		if err := json.Unmarshal(res.Body(), &page); err != nil {
			rec.AddFetchError(scrape.FetchError{
				URL:     src.URL,
				Status:  res.StatusCode(),
				Message: fmt.Sprintf("unparseable response: %s", err),
			})
			break
		}

		for _, item := range page.Items {
			if item.Status == "cancelled" {
				skippedCancelled++
				continue
			}
			event, perr := convertEvent(itemIndex, item, custom, cfg.DefaultTag)
			itemIndex++
			if perr != nil {
				rec.AddParseError(*perr)
				continue
			}
			if !event.InWindow(now, days) {
				continue
			}
			events = append(events, *event)
		}

		pageToken = page.NextPageToken
		if pageToken == "" || ctx.Err() != nil {
			break
		}
	}

	rec.SetDiagnostic("fetch_ms", time.Since(started).Milliseconds())
	rec.SetDiagnostic("pages_fetched", pages)
	rec.SetDiagnostic("items_found", itemIndex)
	rec.SetDiagnostic("skipped_cancelled", skippedCancelled)
	rec.SetDiagnostic("events_parsed", len(events))

	// no markup, no structural fingerprint; the API's shape is versioned
	return rec.Result(events, ""), nil
}

var civilStampRegex = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})T(\d{2}:\d{2})`)

// localCivil reads the calendar's own local date and wall-clock time
// lexically out of a timezone-qualified timestamp. Converting through
// UTC would shift evening events across the calendar-day boundary.
func localCivil(stamp calendarStamp) (date, clock string, ok bool) {
	if stamp.Date != "" {
		return stamp.Date, "", true
	}
	m := civilStampRegex.FindStringSubmatch(stamp.DateTime)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

func convertEvent(
	index int,
	item calendarEvent,
	custom *extract.TagResolver,
	defaultTag string,
) (*scrape.RawEvent, *scrape.ParseError) {
	partial := scrape.PartialEvent{Title: strings.TrimSpace(item.Summary)}

	description := htmlutil.Strip(item.Description)

	date, clock, ok := localCivil(item.Start)
	partial.Date = date
	partial.StartTime = clock

	hares := haresFromDescription(description)
	partial.Hares = hares
	partial.Location = strings.TrimSpace(item.Location)

	tag := extract.ResolveKennelTag(item.Summary+" "+description, custom, extract.Builtin(defaultTag))
	partial.KennelTag = tag

	if !ok {
		return nil, &scrape.ParseError{
			Index:   index,
			Section: "items",
			Message: "event has no usable start timestamp",
			RawText: item.Summary,
			Partial: &partial,
		}
	}

	event, err := scrape.NewRawEvent(date, tag)
	if err != nil {
		return nil, &scrape.ParseError{
			Index:   index,
			Section: "items",
			Message: err.Error(),
			RawText: item.Summary,
			Partial: &partial,
		}
	}
	event.Title = partial.Title
	event.Description = description
	event.Hares = hares
	event.Location = partial.Location
	event.StartTime = clock
	event.SourceURL = item.HTMLLink
	return &event, nil
}

var haresLineRegex = regexp.MustCompile(`(?i)\bhares?\s*[:\-]\s*([^.;|\n]+)`)

func haresFromDescription(description string) string {
	m := haresLineRegex.FindStringSubmatch(description)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
