// Package hashspace ingests event-platform sources that expose both a
// JSON API and a public listing page. The API is preferred; kennels on
// free plans have it disabled, so an API failure of the right shape
// falls back to scraping the listing.
package hashspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"onon-backend/lib/extract"
	"onon-backend/lib/fetch"
	"onon-backend/lib/htmlutil"
	"onon-backend/lib/scrape"
	"onon-backend/lib/structhash"
	"onon-backend/lib/textutil"
	"onon-backend/lib/timezone"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("scrapers/hashspace")

const SourceType = "hashspace"

// MaxPages caps API pagination the same way the document adapters cap
// link-following.
const MaxPages = 3

func init() {
	scrape.Register(SourceType, Adapter{})
}

type Config struct {
	DefaultTag string            `json:"defaultTag"`
	Kennels    extract.TagConfig `json:"kennels,omitempty"`
	Locale     extract.Locale    `json:"locale,omitempty"`
	// APIURL is the JSON endpoint; empty means the kennel has no API
	// plan and we go straight to the listing page.
	APIURL string `json:"apiUrl,omitempty"`
	APIKey string `json:"apiKey,omitempty"`
}

type Adapter struct {
	// Client overrides the default outbound client; tests use it to
	// serve canned responses
	Client *resty.Client
}

type apiPage struct {
	Events []apiEvent `json:"events"`
	// HasMore signals another page is available via page=N+1
	HasMore bool `json:"hasMore"`
}

type apiEvent struct {
	Withdrawn   bool   `json:"withdrawn"`
	Name        string `json:"name"`
	Number      *int   `json:"number"`
	Description string `json:"description"`
	Hares       string `json:"hares"`
	Venue       string `json:"venue"`
	VenueURL    string `json:"venueUrl"`
	StartsAt    string `json:"startsAt"`
	URL         string `json:"url"`
}

func (a Adapter) Fetch(ctx context.Context, src scrape.Source, opts scrape.Options) (scrape.Result, error) {
	ctx, span := tracer.Start(ctx, "hashspace:Fetch")
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
	builtin := extract.Builtin(cfg.DefaultTag)

	client := a.Client
	if client == nil {
		client = fetch.NewClient(fetch.Options{TracerName: "scrapers/hashspace/http"})
	}

	rec := scrape.NewRecorder()
	now := timezone.Now()
	days := opts.WindowDays()
	started := time.Now()

	if cfg.APIURL != "" && cfg.APIKey != "" {
		events, retriable := a.fetchAPI(ctx, client, cfg, rec, custom, builtin, now, days)
		if !retriable {
			rec.SetDiagnostic("leg", "api")
			rec.SetDiagnostic("events_parsed", len(events))
			rec.SetDiagnostic("fetch_ms", time.Since(started).Milliseconds())
			return rec.Result(events, ""), nil
		}
		span.SetAttributes(attribute.Bool("api_fallback", true))
	}

	// fallback: scrape the public listing page
	events, hash := a.fetchListing(ctx, client, src, cfg, rec, custom, builtin, now, days)
	rec.SetDiagnostic("leg", "listing")
	rec.SetDiagnostic("events_parsed", len(events))
	rec.SetDiagnostic("fetch_ms", time.Since(started).Milliseconds())
	return rec.Result(events, hash), nil
}

// fetchAPI walks the JSON endpoint. retriable reports that the listing
// page should be tried instead: the endpoint is disabled or the
// credential was refused, which on this platform is a plan restriction
// rather than an outage.
func (a Adapter) fetchAPI(
	ctx context.Context,
	client *resty.Client,
	cfg Config,
	rec *scrape.Recorder,
	custom *extract.TagResolver,
	builtin extract.TagResolver,
	now time.Time,
	days int,
) (events []scrape.RawEvent, retriable bool) {
	index := 0
	for page := 1; page <= MaxPages; page++ {
		res, err := client.R().
			SetContext(ctx).
			SetHeader("Authorization", "Bearer "+cfg.APIKey).
			SetQueryParam("page", strconv.Itoa(page)).
			Get(cfg.APIURL)
		if err != nil {
			rec.AddFetchError(scrape.FetchError{URL: cfg.APIURL, Message: err.Error()})
			return events, false
		}
		switch res.StatusCode() {
		case 401, 403, 404:
			return nil, true
		}
		if res.IsError() {
			rec.AddFetchError(scrape.FetchError{
				URL:     cfg.APIURL,
				Status:  res.StatusCode(),
				Message: fmt.Sprintf("unexpected status %d", res.StatusCode()),
			})
			return events, false
		}

		var body apiPage
		if err := json.Unmarshal(res.Body(), &body); err != nil {
			rec.AddFetchError(scrape.FetchError{
				URL:     cfg.APIURL,
				Status:  res.StatusCode(),
				Message: fmt.Sprintf("unparseable response: %s", err),
			})
			return events, false
		}

		for _, item := range body.Events {
			if item.Withdrawn {
				continue
			}
			event, perr := convertAPIEvent(index, item, custom, builtin)
			index++
			if perr != nil {
				rec.AddParseError(*perr)
				continue
			}
			if !event.InWindow(now, days) {
				continue
			}
			events = append(events, *event)
		}

		if !body.HasMore || ctx.Err() != nil {
			break
		}
	}
	rec.SetDiagnostic("items_found", index)
	return events, false
}

var apiStampRegex = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})(?:T(\d{2}:\d{2}))?`)

func convertAPIEvent(
	index int,
	item apiEvent,
	custom *extract.TagResolver,
	builtin extract.TagResolver,
) (*scrape.RawEvent, *scrape.ParseError) {
	description := htmlutil.Strip(item.Description)
	tag := extract.ResolveKennelTag(item.Name+" "+description, custom, builtin)

	partial := scrape.PartialEvent{
		Title:     strings.TrimSpace(item.Name),
		KennelTag: tag,
		RunNumber: item.Number,
		Hares:     strings.TrimSpace(item.Hares),
		Location:  strings.TrimSpace(item.Venue),
	}

	m := apiStampRegex.FindStringSubmatch(item.StartsAt)
	if m == nil {
		return nil, &scrape.ParseError{
			Index:   index,
			Section: "events",
			Message: fmt.Sprintf("unusable startsAt %q", item.StartsAt),
			RawText: item.Name,
			Partial: &partial,
		}
	}
	partial.Date = m[1]
	partial.StartTime = m[2]

	event, err := scrape.NewRawEvent(m[1], tag)
	if err != nil {
		return nil, &scrape.ParseError{
			Index:   index,
			Section: "events",
			Message: err.Error(),
			RawText: item.Name,
			Partial: &partial,
		}
	}
	event.Title = partial.Title
	event.RunNumber = item.Number
	event.Description = description
	event.Hares = partial.Hares
	event.Location = partial.Location
	event.LocationURL = item.VenueURL
	event.StartTime = m[2]
	event.SourceURL = item.URL
	return &event, nil
}

func (a Adapter) fetchListing(
	ctx context.Context,
	client *resty.Client,
	src scrape.Source,
	cfg Config,
	rec *scrape.Recorder,
	custom *extract.TagResolver,
	builtin extract.TagResolver,
	now time.Time,
	days int,
) (events []scrape.RawEvent, hash string) {
	body, status, err := fetch.Get(ctx, client, src.URL)
	if err != nil {
		rec.AddFetchError(scrape.FetchError{URL: src.URL, Status: status, Message: err.Error()})
		return nil, ""
	}
	hash = structhash.Fingerprint(body)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		rec.AddFetchError(scrape.FetchError{URL: src.URL, Status: status, Message: err.Error()})
		return nil, hash
	}

	dateOpts := extract.DateOptions{Reference: now, Locale: cfg.Locale}
	items := selectItems(doc, dateOpts, rec)
	rec.SetDiagnostic("items_found", items.Length())

	items.Each(func(i int, item *goquery.Selection) {
		event, perr := parseItem(i, item, custom, builtin, dateOpts)
		if perr != nil {
			rec.AddParseError(*perr)
			return
		}
		if event == nil || !event.InWindow(now, days) {
			return
		}
		events = append(events, *event)
	})
	return events, hash
}

// selectItems mirrors the document adapters' strategy ladder: the
// platform's own class names first, generic structure after.
func selectItems(doc *goquery.Document, dateOpts extract.DateOptions, rec *scrape.Recorder) *goquery.Selection {
	sel := doc.Find("div.hs-event, li.hs-event")
	if sel.Length() > 0 {
		rec.SetDiagnostic("selector_strategy", "platform")
		return sel
	}
	sel = doc.Find("article").FilterFunction(func(_ int, s *goquery.Selection) bool {
		_, ok := extract.ResolveDate(s.Text(), dateOpts)
		return ok
	})
	rec.SetDiagnostic("selector_strategy", "article")
	return sel
}

func parseItem(
	index int,
	item *goquery.Selection,
	custom *extract.TagResolver,
	builtin extract.TagResolver,
	dateOpts extract.DateOptions,
) (*scrape.RawEvent, *scrape.ParseError) {
	text := textutil.CollapseSpace(item.Text())
	if text == "" {
		return nil, nil
	}

	tag := extract.ResolveKennelTag(text, custom, builtin)
	title := textutil.CollapseSpace(item.Find("h1, h2, h3, .hs-title").First().Text())

	// child elements act as cells so one label cannot swallow the rest
	// of the item
	cells := childTexts(item)
	if len(cells) == 0 {
		cells = splitFragments(text)
	}

	partial := scrape.PartialEvent{Title: title, KennelTag: tag}
	for _, cell := range cells {
		if m := haresLabelRegex.FindStringSubmatch(cell); m != nil {
			partial.Hares = strings.TrimSpace(m[1])
			break
		}
	}
	if location, _ := extract.SelectVenue(cells); location != "" && location != title {
		partial.Location = location
	}
	if clock, ok := extract.ResolveClockTime(text); ok {
		partial.StartTime = clock
	}

	date, ok := extract.ResolveDate(text, dateOpts)
	if !ok {
		return nil, &scrape.ParseError{
			Index:   index,
			Section: "listing",
			Message: "no date found in listing item",
			RawText: text,
			Partial: &partial,
		}
	}
	partial.Date = date

	event, err := scrape.NewRawEvent(date, tag)
	if err != nil {
		return nil, &scrape.ParseError{
			Index:   index,
			Section: "listing",
			Message: err.Error(),
			RawText: text,
			Partial: &partial,
		}
	}
	event.Title = title
	event.Hares = partial.Hares
	event.Location = partial.Location
	event.StartTime = partial.StartTime
	if href, ok := item.Find("a[href*='maps']").First().Attr("href"); ok {
		event.LocationURL = href
	}
	return &event, nil
}

func childTexts(item *goquery.Selection) []string {
	var out []string
	item.Children().Each(func(_ int, child *goquery.Selection) {
		if text := textutil.CollapseSpace(child.Text()); text != "" {
			out = append(out, text)
		}
	})
	return out
}

func splitFragments(text string) []string {
	var out []string
	for _, fragment := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '|' || r == ';' || r == '\n'
	}) {
		fragment = strings.TrimSpace(fragment)
		if fragment != "" {
			out = append(out, fragment)
		}
	}
	return out
}

var haresLabelRegex = regexp.MustCompile(`(?i)\bhares?\s*[:\-]\s*([^.;|]+)`)
