package scrape

import (
	"fmt"

	"onon-backend/lib/textutil"

	"github.com/mazen160/go-random"
)

// MaxRawSnippet bounds the raw-text excerpt attached to a parse error.
const MaxRawSnippet = 2000

// FetchError is a transport-tier failure: the network died or the
// server answered with a non-success status. One on the first request
// short-circuits the invocation; one on a later paginated page is
// appended without discarding pages already parsed.
type FetchError struct {
	URL     string `json:"url"`
	Status  int    `json:"status,omitempty"`
	Message string `json:"message"`
}

func (e FetchError) String() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d: %s", e.URL, e.Status, e.Message)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Message)
}

// ParseError is an item-tier failure: one candidate row/card/entry did
// not yield a valid record. It never aborts the batch.
type ParseError struct {
	// position of the candidate in source document order
	Index   int    `json:"index"`
	Section string `json:"section,omitempty"`
	Message string `json:"message"`
	// offending raw text, truncated to MaxRawSnippet
	RawText string        `json:"rawText,omitempty"`
	Partial *PartialEvent `json:"partialData,omitempty"`
}

func (e ParseError) String() string {
	if e.Section != "" {
		return fmt.Sprintf("parse item %d (%s): %s", e.Index, e.Section, e.Message)
	}
	return fmt.Sprintf("parse item %d: %s", e.Index, e.Message)
}

// ErrorDetails is the structured diagnostics tier; the flat Errors list
// on Result is the legacy summary channel rendered from it.
type ErrorDetails struct {
	Fetch []FetchError `json:"fetch,omitempty"`
	Parse []ParseError `json:"parse,omitempty"`
}

// Result is one adapter invocation's output. It is always returned,
// never thrown, for recoverable conditions; only fatal configuration
// problems travel on the Adapter.Fetch error return.
type Result struct {
	// source document order; sources may reorder between fetches
	Events []RawEvent `json:"events"`
	// human-readable summaries, one per error detail
	Errors       []string      `json:"errors"`
	ErrorDetails *ErrorDetails `json:"errorDetails,omitempty"`
	// structural fingerprint of page one, empty when the fetch never
	// produced markup
	StructureHash string `json:"structureHash,omitempty"`
	// observability-only counters, no contractual schema
	Diagnostics map[string]any `json:"diagnosticContext,omitempty"`
}

// Recorder accumulates errors and diagnostics through a parse pass. It
// is an explicit value threaded through the loop and merged, not a
// shared mutable collection; two goroutines each get their own and the
// parent merges.
type Recorder struct {
	fetch []FetchError
	parse []ParseError
	diag  map[string]any
}

func NewRecorder() *Recorder {
	diag := map[string]any{}
	if id, err := random.String(8); err == nil {
		diag["invocation_id"] = id
	}
	return &Recorder{diag: diag}
}

func (r *Recorder) AddFetchError(e FetchError) {
	r.fetch = append(r.fetch, e)
}

func (r *Recorder) AddParseError(e ParseError) {
	e.RawText = textutil.Truncate(e.RawText, MaxRawSnippet)
	if e.Partial != nil && e.Partial.Empty() {
		e.Partial = nil
	}
	r.parse = append(r.parse, e)
}

func (r *Recorder) SetDiagnostic(key string, value any) {
	r.diag[key] = value
}

func (r *Recorder) HasFetchErrors() bool {
	return len(r.fetch) > 0
}

func (r *Recorder) ParseErrorCount() int {
	return len(r.parse)
}

// Merge folds a child recorder (a sub-page, a concurrent branch) into
// this one. Child diagnostics win on key collision except the
// invocation id, which belongs to the parent.
func (r *Recorder) Merge(child *Recorder) {
	r.fetch = append(r.fetch, child.fetch...)
	r.parse = append(r.parse, child.parse...)
	for k, v := range child.diag {
		if k == "invocation_id" {
			continue
		}
		r.diag[k] = v
	}
}

// Result assembles the invocation's output. ErrorDetails is present
// only if at least one error occurred.
func (r *Recorder) Result(events []RawEvent, structureHash string) Result {
	if events == nil {
		events = []RawEvent{}
	}
	res := Result{
		Events:        events,
		Errors:        []string{},
		StructureHash: structureHash,
		Diagnostics:   r.diag,
	}
	if len(r.fetch) > 0 || len(r.parse) > 0 {
		res.ErrorDetails = &ErrorDetails{Fetch: r.fetch, Parse: r.parse}
		for _, e := range r.fetch {
			res.Errors = append(res.Errors, e.String())
		}
		for _, e := range r.parse {
			res.Errors = append(res.Errors, e.String())
		}
	}
	return res
}
