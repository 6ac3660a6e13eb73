package resolve

import (
	"context"
	"errors"
	"testing"

	"onon-backend/lib/scrape"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func registry() *RegistryResolver {
	return NewRegistryResolver([]Kennel{
		{Tag: "WLH3", Name: "West London Hash House Harriers", Aliases: []string{"West London H3"}},
		{Tag: "LH3", Name: "London Hash House Harriers"},
	})
}

func event(tag, date string) scrape.RawEvent {
	e, err := scrape.NewRawEvent(date, tag)
	if err != nil {
		panic(err)
	}
	return e
}

func sourceResult(name string, events ...scrape.RawEvent) scrape.SourceResult {
	return scrape.SourceResult{
		Source: scrape.Source{Name: name},
		Result: scrape.Result{Events: events},
	}
}

func TestResolveTagAliases(t *testing.T) {
	r := registry()
	require.Equal(t, "WLH3", r.resolveTag("WLH3"))
	require.Equal(t, "WLH3", r.resolveTag("west london h3"))
	require.Equal(t, "WLH3", r.resolveTag("West London Hash House Harriers"))
}

func TestResolveTagFuzzy(t *testing.T) {
	r := registry()
	// misspelling close enough to an alias
	require.Equal(t, "WLH3", r.resolveTag("West London H3!"))
	// nothing nearby: tag passes through untouched
	require.Equal(t, "Sydney H3", r.resolveTag("Sydney H3"))
}

func TestResolveMergesDuplicates(t *testing.T) {
	sparse := event("WLH3", "2026-09-09")
	sparse.Location = "The Dove"

	rich := event("West London H3", "2026-09-09")
	rich.Title = "Run 2141"
	rich.Hares = "Speedy"
	rich.Location = "The Dove, W6 9TA"
	rich.StartTime = "19:15"

	out, err := registry().Resolve(context.Background(), []scrape.SourceResult{
		sourceResult("site", sparse),
		sourceResult("calendar", rich),
	})
	require.NoError(t, err)
	require.Len(t, out, 1)

	got := out[0]
	require.Equal(t, "WLH3", got.Kennel)
	require.Equal(t, "Run 2141", got.Event.Title)
	require.Equal(t, "Speedy", got.Event.Hares)
	require.Equal(t, "The Dove, W6 9TA", got.Event.Location)
	require.Equal(t, "19:15", got.Event.StartTime)
	require.Equal(t, []string{"site", "calendar"}, got.Sources)
}

func TestResolveKeepsDistinctRuns(t *testing.T) {
	out, err := registry().Resolve(context.Background(), []scrape.SourceResult{
		sourceResult("site",
			event("WLH3", "2026-09-09"),
			event("WLH3", "2026-09-16"),
			event("LH3", "2026-09-09"),
		),
	})
	require.NoError(t, err)

	type run struct {
		Kennel string
		Date   string
	}
	var got []run
	for _, c := range out {
		got = append(got, run{Kennel: c.Kennel, Date: c.Event.Date})
	}
	// sorted by date, then kennel
	diff := cmp.Diff([]run{
		{Kennel: "LH3", Date: "2026-09-09"},
		{Kennel: "WLH3", Date: "2026-09-09"},
		{Kennel: "WLH3", Date: "2026-09-16"},
	}, got)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestResolveSkipsFailedSources(t *testing.T) {
	out, err := registry().Resolve(context.Background(), []scrape.SourceResult{
		{Source: scrape.Source{Name: "broken"}, Err: errors.New("bad config")},
		sourceResult("site", event("LH3", "2026-09-09")),
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, []string{"site"}, out[0].Sources)
}

func TestResolveSimilarityFloor(t *testing.T) {
	r := registry()
	r.SetSimilarity(1)
	// with fuzzy matching disabled a near-miss stays raw
	require.Equal(t, "West London H3!", r.resolveTag("West London H3!"))
}
