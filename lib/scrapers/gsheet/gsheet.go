// Package gsheet ingests published spreadsheets. Small kennels keep
// their run list in a shared sheet and publish it as CSV, which makes
// this the simplest adapter and also the one with the least structure
// to lean on: every field comes out of a configured column index.
package gsheet

import (
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"onon-backend/lib/extract"
	"onon-backend/lib/fetch"
	"onon-backend/lib/scrape"
	"onon-backend/lib/textutil"
	"onon-backend/lib/timezone"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("scrapers/gsheet")

const SourceType = "gsheet"

func init() {
	scrape.Register(SourceType, Adapter{})
}

// Columns maps sheet columns to event fields by zero-based index. Date
// is the only required column; leaving an optional column out of the
// config disables it. Pointers distinguish "column 0" from "not
// configured".
type Columns struct {
	Date   *int `json:"date"`
	Kennel *int `json:"kennel,omitempty"`
	Run    *int `json:"run,omitempty"`
	Hares  *int `json:"hares,omitempty"`
	Venue  *int `json:"venue,omitempty"`
	Time   *int `json:"time,omitempty"`
	Title  *int `json:"title,omitempty"`
}

type Config struct {
	DefaultTag string            `json:"defaultTag"`
	Kennels    extract.TagConfig `json:"kennels,omitempty"`
	Locale     extract.Locale    `json:"locale,omitempty"`
	Columns    Columns           `json:"columns"`
	// HeaderRows rows are skipped before data starts; defaults to 1
	HeaderRows *int `json:"headerRows,omitempty"`
}

// validate catches misconfigured column maps at the boundary so a
// shifted sheet fails loudly instead of producing garbage events.
func (c Config) validate() error {
	if c.DefaultTag == "" {
		return fmt.Errorf("defaultTag is required")
	}
	if c.Columns.Date == nil {
		return fmt.Errorf("columns.date is required")
	}
	optional := map[string]*int{
		"date":   c.Columns.Date,
		"kennel": c.Columns.Kennel,
		"run":    c.Columns.Run,
		"hares":  c.Columns.Hares,
		"venue":  c.Columns.Venue,
		"time":   c.Columns.Time,
		"title":  c.Columns.Title,
	}
	for name, index := range optional {
		if index != nil && *index < 0 {
			return fmt.Errorf("columns.%s index %d is invalid", name, *index)
		}
	}
	return nil
}

type Adapter struct {
	// Client overrides the default outbound client; tests use it to
	// serve canned responses
	Client *resty.Client
}

func (a Adapter) Fetch(ctx context.Context, src scrape.Source, opts scrape.Options) (scrape.Result, error) {
	ctx, span := tracer.Start(ctx, "gsheet:Fetch")
	defer span.End()

	cfg, err := scrape.DecodeConfig[Config](src)
	if err != nil {
		return scrape.Result{}, err
	}
	if err := cfg.validate(); err != nil {
		return scrape.Result{}, fmt.Errorf("source %q: %w", src.Name, err)
	}
	custom, err := extract.CompileTagConfig(cfg.Kennels)
	if err != nil {
		return scrape.Result{}, fmt.Errorf("source %q: %w", src.Name, err)
	}
	builtin := extract.Builtin(cfg.DefaultTag)

	client := a.Client
	if client == nil {
		client = fetch.NewClient(fetch.Options{TracerName: "scrapers/gsheet/http"})
	}

	rec := scrape.NewRecorder()
	now := timezone.Now()
	days := opts.WindowDays()
	started := time.Now()

	body, status, err := fetch.Get(ctx, client, src.URL)
	if err != nil {
		rec.AddFetchError(scrape.FetchError{URL: src.URL, Status: status, Message: err.Error()})
		rec.SetDiagnostic("fetch_ms", time.Since(started).Milliseconds())
		return rec.Result(nil, ""), nil
	}

	reader := csv.NewReader(strings.NewReader(string(body)))
	// published sheets pad short rows; tolerate ragged ones
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		rec.AddFetchError(scrape.FetchError{
			URL:     src.URL,
			Status:  status,
			Message: fmt.Sprintf("unparseable csv: %s", err),
		})
		rec.SetDiagnostic("fetch_ms", time.Since(started).Milliseconds())
		return rec.Result(nil, ""), nil
	}

	headerRows := 1
	if cfg.HeaderRows != nil {
		headerRows = *cfg.HeaderRows
	}

	dateOpts := extract.DateOptions{Reference: now, Locale: cfg.Locale}
	var events []scrape.RawEvent
	dataRows := 0
	for i, row := range rows {
		if i < headerRows {
			continue
		}
		if blankRow(row) {
			continue
		}
		dataRows++
		event, perr := convertRow(i, row, cfg, custom, builtin, dateOpts)
		if perr != nil {
			rec.AddParseError(*perr)
			continue
		}
		if !event.InWindow(now, days) {
			continue
		}
		events = append(events, *event)
	}

	rec.SetDiagnostic("rows_found", dataRows)
	rec.SetDiagnostic("events_parsed", len(events))
	rec.SetDiagnostic("fetch_ms", time.Since(started).Milliseconds())
	return rec.Result(events, ""), nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func column(row []string, index *int) string {
	if index == nil || *index >= len(row) {
		return ""
	}
	return textutil.CollapseSpace(row[*index])
}

func convertRow(
	index int,
	row []string,
	cfg Config,
	custom *extract.TagResolver,
	builtin extract.TagResolver,
	dateOpts extract.DateOptions,
) (*scrape.RawEvent, *scrape.ParseError) {
	tagText := column(row, cfg.Columns.Kennel)
	if tagText == "" {
		tagText = strings.Join(row, " ")
	}
	tag := extract.ResolveKennelTag(tagText, custom, builtin)

	partial := scrape.PartialEvent{
		KennelTag: tag,
		Title:     column(row, cfg.Columns.Title),
		Hares:     column(row, cfg.Columns.Hares),
		Location:  column(row, cfg.Columns.Venue),
	}
	if raw := column(row, cfg.Columns.Run); raw != "" {
		if n, err := strconv.Atoi(strings.TrimPrefix(raw, "#")); err == nil {
			partial.RunNumber = &n
		}
	}
	if raw := column(row, cfg.Columns.Time); raw != "" {
		if clock, ok := extract.ResolveClockTime(raw); ok {
			partial.StartTime = clock
		}
	}

	rawDate := column(row, cfg.Columns.Date)
	date, ok := extract.ResolveDate(rawDate, dateOpts)
	if !ok {
		return nil, &scrape.ParseError{
			Index:   index,
			Section: "rows",
			Message: fmt.Sprintf("no date in column %d (%q)", *cfg.Columns.Date, rawDate),
			RawText: strings.Join(row, ", "),
			Partial: &partial,
		}
	}
	partial.Date = date

	event, err := scrape.NewRawEvent(date, tag)
	if err != nil {
		return nil, &scrape.ParseError{
			Index:   index,
			Section: "rows",
			Message: err.Error(),
			RawText: strings.Join(row, ", "),
			Partial: &partial,
		}
	}
	event.Title = partial.Title
	event.RunNumber = partial.RunNumber
	event.Hares = partial.Hares
	event.Location = partial.Location
	event.StartTime = partial.StartTime
	return &event, nil
}
