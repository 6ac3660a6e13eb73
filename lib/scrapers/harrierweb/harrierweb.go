// Package harrierweb scrapes regional kennel directories rendered as an
// HTML table: one row per trail with date, run number, hares and venue
// in no reliably fixed column order.
package harrierweb

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"onon-backend/lib/extract"
	"onon-backend/lib/fetch"
	"onon-backend/lib/scrape"
	"onon-backend/lib/structhash"
	"onon-backend/lib/textutil"
	"onon-backend/lib/timezone"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/harrierweb")

const SourceType = "harrierweb"

func init() {
	scrape.Register(SourceType, Adapter{})
}

type Config struct {
	// tag applied when nothing in a row matches a kennel convention
	DefaultTag string `json:"defaultTag"`
	// optional per-source pattern override, takes precedence over the
	// built-in conventions
	Kennels extract.TagConfig `json:"kennels,omitempty"`
	Locale  string            `json:"locale,omitempty"`
	// some directories sit behind cloudflare's browser check
	CloudflareBypass bool `json:"cloudflareBypass,omitempty"`
}

type Adapter struct {
	// Client overrides the default outbound client; tests use it to
	// serve canned pages
	Client *resty.Client
}

func (a Adapter) Fetch(ctx context.Context, src scrape.Source, opts scrape.Options) (scrape.Result, error) {
	ctx, span := tracer.Start(ctx, "harrierweb:Fetch")
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

	rec := scrape.NewRecorder()
	client := a.Client
	if client == nil {
		client = fetch.NewClient(fetch.Options{
			CloudflareBypass: cfg.CloudflareBypass,
			TracerName:       "scrapers/harrierweb/http",
		})
	}

	started := time.Now()
	body, status, err := fetch.Get(ctx, client, src.URL)
	rec.SetDiagnostic("fetch_ms", time.Since(started).Milliseconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		rec.AddFetchError(scrape.FetchError{URL: src.URL, Status: status, Message: err.Error()})
		return rec.Result(nil, ""), nil
	}

	hash := structhash.Fingerprint(body)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "html parse failed")
		rec.AddFetchError(scrape.FetchError{URL: src.URL, Status: status, Message: fmt.Sprintf("unparseable markup: %s", err)})
		return rec.Result(nil, hash), nil
	}

	rows, strategy := selectRows(doc)
	rec.SetDiagnostic("rows_found", len(rows))
	rec.SetDiagnostic("selector_strategy", strategy)

	now := timezone.Now()
	dateOpts := extract.DateOptions{Reference: now, Locale: locale}

	var events []scrape.RawEvent
	for i, row := range rows {
		event, perr := parseRow(i, row, dateOpts, custom, cfg.DefaultTag, src.URL)
		if perr != nil {
			rec.AddParseError(*perr)
			continue
		}
		if event == nil {
			// header or blank row, conserved in rows_found only
			continue
		}
		if !event.InWindow(now, opts.WindowDays()) {
			continue
		}
		events = append(events, *event)
	}
	rec.SetDiagnostic("events_parsed", len(events))

	return rec.Result(events, hash), nil
}

// selectRows tries selector strategies in order, the next only when the
// previous yielded nothing: the site's own row class, any table row
// with enough cells, then a plain text filter over list items.
func selectRows(doc *goquery.Document) ([]*goquery.Selection, string) {
	var rows []*goquery.Selection

	doc.Find("table.runlist tr").Each(func(_ int, s *goquery.Selection) {
		rows = append(rows, s)
	})
	if len(rows) > 0 {
		return rows, "class"
	}

	doc.Find("table tr").Each(func(_ int, s *goquery.Selection) {
		if s.Find("td").Length() >= 3 {
			rows = append(rows, s)
		}
	})
	if len(rows) > 0 {
		return rows, "structural"
	}

	doc.Find("li, p").Each(func(_ int, s *goquery.Selection) {
		if _, ok := extract.ResolveDate(s.Text(), extract.DateOptions{Reference: timezone.Now()}); ok {
			rows = append(rows, s)
		}
	})
	return rows, "text"
}

var headerWords = []string{"date", "run", "hare", "venue", "kennel", "when", "where"}

func isHeaderRow(cells []string, rowText string) bool {
	if len(cells) == 0 {
		return false
	}
	matched := 0
	for _, c := range cells {
		if textutil.MatchName(c, headerWords) {
			matched++
		}
	}
	if _, hasDate := extract.ResolveDate(rowText, extract.DateOptions{Reference: timezone.Now()}); hasDate {
		return false
	}
	return matched >= 2
}

// parseRow returns (nil, nil) for rows that carry no content at all, an
// event for well-formed rows and a parse error otherwise. The error
// carries whatever fields did extract so a human can finish the job.
func parseRow(
	index int,
	row *goquery.Selection,
	dateOpts extract.DateOptions,
	custom *extract.TagResolver,
	defaultTag string,
	sourceURL string,
) (*scrape.RawEvent, *scrape.ParseError) {
	var cells []string
	row.Find("td, th").Each(func(_ int, s *goquery.Selection) {
		cells = append(cells, textutil.CollapseSpace(s.Text()))
	})
	rowText := textutil.CollapseSpace(row.Text())
	if len(cells) == 0 {
		// text-strategy candidates have no cells, treat the whole
		// element as one
		cells = []string{rowText}
	}

	if rowText == "" {
		return nil, nil
	}
	if isHeaderRow(cells, rowText) {
		return nil, nil
	}

	partial := scrape.PartialEvent{}

	date, dateOk := "", false
	dateCell := -1
	for i, c := range cells {
		if d, ok := extract.ResolveDate(c, dateOpts); ok {
			date, dateOk = d, true
			dateCell = i
			break
		}
	}
	partial.Date = date

	runNumber := findRunNumber(cells, dateCell)
	partial.RunNumber = runNumber

	location, _ := extract.SelectVenue(cells)
	partial.Location = location

	if start, ok := extract.ResolveClockTime(rowText); ok {
		partial.StartTime = start
	}

	hares := findHares(cells, rowText)
	partial.Hares = hares

	tag := extract.ResolveKennelTag(rowText, custom, extract.Builtin(defaultTag))
	partial.KennelTag = tag

	if !dateOk {
		return nil, &scrape.ParseError{
			Index:   index,
			Section: "rows",
			Message: "no resolvable date in row",
			RawText: rowText,
			Partial: &partial,
		}
	}

	event, err := scrape.NewRawEvent(date, tag)
	if err != nil {
		return nil, &scrape.ParseError{
			Index:   index,
			Section: "rows",
			Message: err.Error(),
			RawText: rowText,
			Partial: &partial,
		}
	}
	event.RunNumber = runNumber
	event.Hares = hares
	event.Location = location
	event.StartTime = partial.StartTime
	event.SourceURL = sourceURL
	if href, ok := row.Find("a[href]").First().Attr("href"); ok && strings.Contains(href, "maps") {
		event.LocationURL = href
	}
	return &event, nil
}

// a cell that is nothing but a smallish integer is the kennel's own run
// sequence number
func findRunNumber(cells []string, dateCell int) *int {
	for i, c := range cells {
		if i == dateCell {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(c), "#"))
		if err != nil || n <= 0 || n > 100000 {
			continue
		}
		return &n
	}
	return nil
}

var hareLabels = []string{"hare", "hares"}

func findHares(cells []string, rowText string) string {
	for _, c := range cells {
		lowered := strings.ToLower(c)
		for _, label := range hareLabels {
			prefix := label + ":"
			if strings.HasPrefix(lowered, prefix) {
				return textutil.CollapseSpace(c[len(prefix):])
			}
		}
	}
	// inline "Hares: X and Y" convention inside a bigger cell
	idx := strings.Index(strings.ToLower(rowText), "hares:")
	if idx >= 0 {
		rest := rowText[idx+len("hares:"):]
		if cut := strings.IndexAny(rest, ".;|"); cut >= 0 {
			rest = rest[:cut]
		}
		return textutil.CollapseSpace(rest)
	}
	return ""
}
