package scrape

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewRawEvent(t *testing.T) {
	e, err := NewRawEvent("2026-02-19", "LH3")
	require.NoError(t, err)
	require.Equal(t, "2026-02-19", e.Date)
	require.Equal(t, "LH3", e.KennelTag)
}

func TestNewRawEventRejectsBadDates(t *testing.T) {
	for _, date := range []string{
		"", "19/02/2026", "2026-2-19", "2026-02-31", "19th February", "2026-13-01",
	} {
		_, err := NewRawEvent(date, "LH3")
		require.Error(t, err, date)
	}

	_, err := NewRawEvent("2026-02-19", "")
	require.Error(t, err)
}

func TestInWindow(t *testing.T) {
	ref := time.Date(2026, 2, 1, 15, 30, 0, 0, time.UTC)

	in, _ := NewRawEvent("2026-03-01", "LH3")
	require.True(t, in.InWindow(ref, 90))

	past, _ := NewRawEvent("2025-12-20", "LH3")
	require.True(t, past.InWindow(ref, 90))

	farFuture, _ := NewRawEvent("2026-06-01", "LH3")
	require.False(t, farFuture.InWindow(ref, 90))

	farPast, _ := NewRawEvent("2025-09-01", "LH3")
	require.False(t, farPast.InWindow(ref, 90))
}

func TestDecodeConfig(t *testing.T) {
	type cfg struct {
		DefaultTag string `json:"defaultTag"`
		MaxPages   int    `json:"maxPages"`
	}

	src := Source{
		Name:   "richmond",
		Type:   "harrierweb",
		Config: map[string]any{"defaultTag": "RH3", "maxPages": 2},
	}
	got, err := DecodeConfig[cfg](src)
	require.NoError(t, err)
	require.Equal(t, cfg{DefaultTag: "RH3", MaxPages: 2}, got)

	src.Config = map[string]any{"defaultTag": "RH3", "unexpected": true}
	_, err = DecodeConfig[cfg](src)
	require.Error(t, err)

	src.Config = nil
	got, err = DecodeConfig[cfg](src)
	require.NoError(t, err)
	require.Equal(t, cfg{}, got)
}

func TestRecorderConservesCounts(t *testing.T) {
	rec := NewRecorder()
	var events []RawEvent

	candidates := []string{"good", "bad", "good", "bad", "bad"}
	for i, c := range candidates {
		if c == "good" {
			e, err := NewRawEvent("2026-02-19", "LH3")
			require.NoError(t, err)
			events = append(events, e)
			continue
		}
		rec.AddParseError(ParseError{Index: i, Message: "no resolvable date", RawText: c})
	}

	res := rec.Result(events, "abc123")
	require.Len(t, res.Events, 2)
	require.NotNil(t, res.ErrorDetails)
	require.Len(t, res.ErrorDetails.Parse, 3)
	require.Len(t, res.Errors, 3)
	require.Equal(t, len(candidates), len(res.Events)+len(res.ErrorDetails.Parse))
}

func TestRecorderTruncatesRawText(t *testing.T) {
	rec := NewRecorder()
	long := make([]byte, MaxRawSnippet*2)
	for i := range long {
		long[i] = 'x'
	}
	rec.AddParseError(ParseError{Index: 0, Message: "boom", RawText: string(long)})

	res := rec.Result(nil, "")
	require.Len(t, res.ErrorDetails.Parse[0].RawText, MaxRawSnippet)
}

func TestRecorderNoErrorsMeansNoDetails(t *testing.T) {
	rec := NewRecorder()
	res := rec.Result(nil, "")
	require.Nil(t, res.ErrorDetails)
	require.Empty(t, res.Errors)
	require.NotNil(t, res.Events)
}

func TestRecorderMerge(t *testing.T) {
	parent := NewRecorder()
	parent.SetDiagnostic("pages_fetched", 1)

	child := NewRecorder()
	child.AddFetchError(FetchError{URL: "https://example.com/page/2", Status: 503, Message: "unexpected status 503"})
	child.AddParseError(ParseError{Index: 4, Message: "empty row"})
	child.SetDiagnostic("rows_found", 12)

	parent.Merge(child)
	res := parent.Result(nil, "")
	require.Len(t, res.ErrorDetails.Fetch, 1)
	require.Len(t, res.ErrorDetails.Parse, 1)
	require.Equal(t, 12, res.Diagnostics["rows_found"])
	require.Equal(t, 1, res.Diagnostics["pages_fetched"])
}

func TestRegistryDispatch(t *testing.T) {
	_, err := ForType("definitely-not-registered")
	require.Error(t, err)
}

type stubAdapter struct {
	result Result
	err    error
	delay  time.Duration
}

func (s stubAdapter) Fetch(ctx context.Context, _ Source, _ Options) (Result, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	return s.result, s.err
}

func TestFetchAllPreservesOrder(t *testing.T) {
	event, err := NewRawEvent("2026-02-19", "LH3")
	require.NoError(t, err)

	Register("fanout-slow", stubAdapter{
		delay:  20 * time.Millisecond,
		result: Result{Events: []RawEvent{event}},
	})
	Register("fanout-fast", stubAdapter{
		result: Result{Errors: []string{"fetch https://example.com: unexpected status 503"}},
	})
	Register("fanout-broken", stubAdapter{err: errors.New("defaultTag is required")})

	sources := []Source{
		{Name: "a", Type: "fanout-slow"},
		{Name: "b", Type: "fanout-broken"},
		{Name: "c", Type: "fanout-fast"},
		{Name: "d", Type: "never-registered"},
	}
	out := FetchAll(context.Background(), sources, Options{})
	require.Len(t, out, 4)

	// results come back in input order even though the slow source
	// finishes last
	require.Equal(t, "a", out[0].Source.Name)
	require.NoError(t, out[0].Err)
	require.Len(t, out[0].Result.Events, 1)

	require.ErrorContains(t, out[1].Err, "defaultTag")

	require.NoError(t, out[2].Err)
	require.Len(t, out[2].Result.Errors, 1)

	require.ErrorContains(t, out[3].Err, "no adapter registered")
}
