// Package trailmaster scrapes card-style event listings: one card per
// trail with a heading, a date line, hares and an on-after somewhere in
// the body, and a "next page" link at the bottom.
package trailmaster

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"onon-backend/lib/extract"
	"onon-backend/lib/fetch"
	"onon-backend/lib/safeurl"
	"onon-backend/lib/scrape"
	"onon-backend/lib/structhash"
	"onon-backend/lib/textutil"
	"onon-backend/lib/timezone"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/trailmaster")

const SourceType = "trailmaster"

// MaxPages caps how many "next page" links one invocation follows.
// Listing sites rarely keep more than a season of upcoming trails, and
// a bad next-link loop must not turn into an unbounded crawl.
const MaxPages = 3

func init() {
	scrape.Register(SourceType, Adapter{})
}

type Config struct {
	DefaultTag       string            `json:"defaultTag"`
	Kennels          extract.TagConfig `json:"kennels,omitempty"`
	Locale           string            `json:"locale,omitempty"`
	CloudflareBypass bool              `json:"cloudflareBypass,omitempty"`
}

type Adapter struct {
	// Client overrides the default outbound client; tests use it to
	// serve canned pages
	Client *resty.Client
}

func (a Adapter) Fetch(ctx context.Context, src scrape.Source, opts scrape.Options) (scrape.Result, error) {
	ctx, span := tracer.Start(ctx, "trailmaster:Fetch")
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
	locale := extract.LocaleUK
	if strings.EqualFold(cfg.Locale, "us") {
		locale = extract.LocaleUS
	}

	client := a.Client
	if client == nil {
		client = fetch.NewClient(fetch.Options{
			CloudflareBypass: cfg.CloudflareBypass,
			TracerName:       "scrapers/trailmaster/http",
		})
	}

	rec := scrape.NewRecorder()
	now := timezone.Now()
	dateOpts := extract.DateOptions{Reference: now, Locale: locale}

	var events []scrape.RawEvent
	var hash string
	itemIndex := 0

	pageURL := src.URL
	started := time.Now()
	for page := 1; page <= MaxPages && pageURL != ""; page++ {
		// pagination links come out of fetched markup, never trust them
		if err := safeurl.Validate(pageURL); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "unsafe pagination link")
			rec.AddFetchError(scrape.FetchError{URL: pageURL, Message: err.Error()})
			break
		}

		body, status, err := fetch.Get(ctx, client, pageURL)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "fetch failed")
			rec.AddFetchError(scrape.FetchError{URL: pageURL, Status: status, Message: err.Error()})
			// a later page failing must not discard pages already parsed
			break
		}

		if page == 1 {
			hash = structhash.Fingerprint(body)
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			rec.AddFetchError(scrape.FetchError{URL: pageURL, Status: status, Message: fmt.Sprintf("unparseable markup: %s", err)})
			break
		}

		cards, strategy := selectCards(doc, dateOpts)
		rec.SetDiagnostic("selector_strategy", strategy)
		rec.SetDiagnostic("pages_fetched", page)

		for _, card := range cards {
			event, perr := parseCard(itemIndex, card, dateOpts, custom, cfg.DefaultTag, pageURL)
			itemIndex++
			if perr != nil {
				rec.AddParseError(*perr)
				continue
			}
			if event == nil {
				continue
			}
			if !event.InWindow(now, opts.WindowDays()) {
				continue
			}
			events = append(events, *event)
		}

		pageURL = nextPageURL(doc, pageURL)

		// each page depends on parsing the previous one, so this is the
		// place to notice the caller gave up
		if ctx.Err() != nil {
			rec.AddFetchError(scrape.FetchError{URL: pageURL, Message: ctx.Err().Error()})
			break
		}
	}
	rec.SetDiagnostic("fetch_ms", time.Since(started).Milliseconds())
	rec.SetDiagnostic("cards_found", itemIndex)
	rec.SetDiagnostic("events_parsed", len(events))

	return rec.Result(events, hash), nil
}

func selectCards(doc *goquery.Document, dateOpts extract.DateOptions) ([]*goquery.Selection, string) {
	var cards []*goquery.Selection

	doc.Find("div.event-card").Each(func(_ int, s *goquery.Selection) {
		cards = append(cards, s)
	})
	if len(cards) > 0 {
		return cards, "class"
	}

	doc.Find("article").Each(func(_ int, s *goquery.Selection) {
		cards = append(cards, s)
	})
	if len(cards) > 0 {
		return cards, "structural"
	}

	doc.Find("div, li").Each(func(_ int, s *goquery.Selection) {
		if s.Children().Length() > 0 {
			return
		}
		if _, ok := extract.ResolveDate(s.Text(), dateOpts); ok {
			cards = append(cards, s)
		}
	})
	return cards, "text"
}

func parseCard(
	index int,
	card *goquery.Selection,
	dateOpts extract.DateOptions,
	custom *extract.TagResolver,
	defaultTag string,
	pageURL string,
) (*scrape.RawEvent, *scrape.ParseError) {
	text := textutil.CollapseSpace(card.Text())
	if text == "" {
		return nil, nil
	}

	partial := scrape.PartialEvent{}

	title := textutil.CollapseSpace(card.Find("h1, h2, h3").First().Text())
	partial.Title = title

	dateText := textutil.CollapseSpace(card.Find(".event-date, time").First().Text())
	date, dateOk := extract.ResolveDate(dateText, dateOpts)
	if !dateOk {
		date, dateOk = extract.ResolveDate(text, dateOpts)
	}
	partial.Date = date

	if start, ok := extract.ResolveClockTime(text); ok {
		partial.StartTime = start
	}

	hares := findLabelled(text, "hares")
	if hares == "" {
		hares = findLabelled(text, "hare")
	}
	partial.Hares = hares

	location := textutil.CollapseSpace(card.Find(".event-venue").First().Text())
	if location == "" {
		// treat sentence fragments as venue candidates
		location, _ = extract.SelectVenue(strings.FieldsFunc(text, func(r rune) bool {
			return r == '.' || r == '|' || r == ';' || r == '\n'
		}))
	}
	partial.Location = location

	if number, ok := runNumberFromTitle(title); ok {
		partial.RunNumber = &number
	}

	tag := extract.ResolveKennelTag(title+" "+text, custom, extract.Builtin(defaultTag))
	partial.KennelTag = tag

	if !dateOk {
		return nil, &scrape.ParseError{
			Index:   index,
			Section: "cards",
			Message: "no resolvable date in card",
			RawText: text,
			Partial: &partial,
		}
	}

	event, err := scrape.NewRawEvent(date, tag)
	if err != nil {
		return nil, &scrape.ParseError{
			Index:   index,
			Section: "cards",
			Message: err.Error(),
			RawText: text,
			Partial: &partial,
		}
	}
	event.Title = title
	event.Hares = hares
	event.Location = location
	event.StartTime = partial.StartTime
	event.RunNumber = partial.RunNumber
	event.SourceURL = pageURL
	if onAfter := findLabelled(text, "on-after"); onAfter != "" {
		event.Description = "On-After: " + onAfter
	}
	if href, ok := card.Find("a[href*='maps']").First().Attr("href"); ok {
		event.LocationURL = href
	}
	return &event, nil
}

// findLabelled pulls the value out of an inline "Label: value" run,
// stopping at the next sentence break.
func findLabelled(text, label string) string {
	lowered := strings.ToLower(text)
	idx := strings.Index(lowered, label+":")
	if idx < 0 {
		return ""
	}
	rest := text[idx+len(label)+1:]
	if cut := strings.IndexAny(rest, ".;|"); cut >= 0 {
		rest = rest[:cut]
	}
	return textutil.CollapseSpace(rest)
}

var runNumberPrefixes = []string{"run #", "run ", "trail #", "#"}

func runNumberFromTitle(title string) (int, bool) {
	lowered := strings.ToLower(title)
	for _, prefix := range runNumberPrefixes {
		idx := strings.Index(lowered, prefix)
		if idx < 0 {
			continue
		}
		rest := lowered[idx+len(prefix):]
		end := 0
		for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
			end++
		}
		if end == 0 {
			continue
		}
		n, err := strconv.Atoi(rest[:end])
		if err != nil || n <= 0 {
			continue
		}
		return n, true
	}
	return 0, false
}

// nextPageURL resolves the listing's next link against the current
// page; relative links are the norm.
func nextPageURL(doc *goquery.Document, current string) string {
	href, ok := doc.Find("a[rel='next']").First().Attr("href")
	if !ok {
		href, ok = doc.Find(".pagination a.next").First().Attr("href")
	}
	if !ok || href == "" {
		return ""
	}
	base, err := url.Parse(current)
	if err != nil {
		return ""
	}
	next, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(next).String()
}
