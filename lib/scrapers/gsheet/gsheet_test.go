package gsheet

import (
	"context"
	"fmt"
	"testing"

	"onon-backend/lib/scrape"
	"onon-backend/lib/scrapers/scrapertest"
	"onon-backend/lib/timezone"

	"github.com/stretchr/testify/require"
)

const sheetURL = "https://sheets.example.com/export?format=csv&id=abc123"

func source(config map[string]any) scrape.Source {
	return scrape.Source{Name: "LH3 sheet", Type: SourceType, URL: sheetURL, Config: config}
}

func config() map[string]any {
	return map[string]any{
		"defaultTag": "LH3",
		"columns": map[string]any{
			"date":  0,
			"run":   1,
			"hares": 2,
			"venue": 3,
			"time":  4,
		},
	}
}

func adapter(body string) (Adapter, *scrapertest.Transport) {
	transport := &scrapertest.Transport{Responses: map[string]scrapertest.Response{
		"/export": {Body: body},
	}}
	return Adapter{Client: scrapertest.Client(transport)}, transport
}

func upcoming(days int) string {
	return timezone.Now().AddDate(0, 0, days).Format("02/01/2006")
}

func isoUpcoming(days int) string {
	return timezone.Now().AddDate(0, 0, days).Format("2006-01-02")
}

func TestFetchParsesRows(t *testing.T) {
	body := fmt.Sprintf(
		"Date,Run,Hares,Venue,Time\n"+
			"%s,#1895,Mudlark & Compass,\"The Grapes pub, E14 8BP\",7:15pm\n"+
			"%s,1896,,TBA,\n",
		upcoming(7), upcoming(14))

	a, _ := adapter(body)
	res, err := a.Fetch(context.Background(), source(config()), scrape.Options{})
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	require.Len(t, res.Events, 2)

	first := res.Events[0]
	require.Equal(t, isoUpcoming(7), first.Date)
	require.Equal(t, "LH3", first.KennelTag)
	require.NotNil(t, first.RunNumber)
	require.Equal(t, 1895, *first.RunNumber)
	require.Equal(t, "Mudlark & Compass", first.Hares)
	require.Equal(t, "The Grapes pub, E14 8BP", first.Location)
	require.Equal(t, "19:15", first.StartTime)

	second := res.Events[1]
	require.NotNil(t, second.RunNumber)
	require.Equal(t, 1896, *second.RunNumber)
	require.Empty(t, second.StartTime)

	require.Equal(t, 2, res.Diagnostics["rows_found"])
}

func TestFetchConservesRows(t *testing.T) {
	body := fmt.Sprintf(
		"Date,Run,Hares,Venue,Time\n"+
			"%s,1897,Bouncer,The Ship,7pm\n"+
			"TBC,1898,,The Crown,\n"+
			",,,,\n"+
			"%s,1899,,The Anchor,\n",
		upcoming(7), upcoming(21))

	a, _ := adapter(body)
	res, err := a.Fetch(context.Background(), source(config()), scrape.Options{})
	require.NoError(t, err)

	// blank rows are ignored; every surviving row is an event or a
	// parse error
	require.Equal(t, 3, res.Diagnostics["rows_found"])
	require.Len(t, res.Events, 2)
	require.Len(t, res.ErrorDetails.Parse, 1)

	perr := res.ErrorDetails.Parse[0]
	require.Contains(t, perr.Message, "no date")
	require.NotNil(t, perr.Partial)
	require.Equal(t, "The Crown", perr.Partial.Location)
}

func TestFetchKennelColumnOverridesDefault(t *testing.T) {
	cfg := config()
	cfg["columns"] = map[string]any{"date": 0, "kennel": 1}
	cfg["kennels"] = map[string]any{
		"patterns": []map[string]any{
			{"pattern": "(?i)full\\s*moon", "tag": "LFMH3"},
		},
	}
	body := fmt.Sprintf(
		"Date,Kennel\n%s,Full Moon\n%s,\n",
		upcoming(7), upcoming(14))

	a, _ := adapter(body)
	res, err := a.Fetch(context.Background(), source(cfg), scrape.Options{})
	require.NoError(t, err)
	require.Len(t, res.Events, 2)
	require.Equal(t, "LFMH3", res.Events[0].KennelTag)
	require.Equal(t, "LH3", res.Events[1].KennelTag)
}

func TestFetchWindowFilter(t *testing.T) {
	body := fmt.Sprintf(
		"Date\n%s\n%s\n",
		upcoming(7), upcoming(120))
	cfg := map[string]any{
		"defaultTag": "LH3",
		"columns":    map[string]any{"date": 0},
	}

	a, _ := adapter(body)
	res, err := a.Fetch(context.Background(), source(cfg), scrape.Options{Days: 30})
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	require.Equal(t, isoUpcoming(7), res.Events[0].Date)
}

func TestFetchMissingDateColumnIsFatal(t *testing.T) {
	a, _ := adapter("Date\n")
	_, err := a.Fetch(context.Background(), source(map[string]any{
		"defaultTag": "LH3",
		"columns":    map[string]any{"run": 1},
	}), scrape.Options{})
	require.ErrorContains(t, err, "columns.date")
}

func TestFetchNegativeColumnIsFatal(t *testing.T) {
	a, _ := adapter("Date\n")
	_, err := a.Fetch(context.Background(), source(map[string]any{
		"defaultTag": "LH3",
		"columns":    map[string]any{"date": 0, "venue": -2},
	}), scrape.Options{})
	require.ErrorContains(t, err, "columns.venue")
}

func TestFetchHTTPErrorIsRecoverable(t *testing.T) {
	transport := &scrapertest.Transport{Responses: map[string]scrapertest.Response{
		"/export": {Status: 500, Body: "boom"},
	}}
	a := Adapter{Client: scrapertest.Client(transport)}
	res, err := a.Fetch(context.Background(), source(config()), scrape.Options{})
	require.NoError(t, err)
	require.Empty(t, res.Events)
	require.Len(t, res.ErrorDetails.Fetch, 1)
	require.Equal(t, 500, res.ErrorDetails.Fetch[0].Status)
}
