package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func ref(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

func TestResolveDate(t *testing.T) {
	reference := ref(2026, time.February, 1)

	for input, want := range map[string]string{
		"19th February 2026":           "2026-02-19",
		"19/02/2026":                   "2026-02-19",
		"Wednesday 19th February 2026": "2026-02-19",
		"Wed 19 Feb 2026":              "2026-02-19",
		"1st of March 2026":            "2026-03-01",
		"February 19, 2026":            "2026-02-19",
		"Run 1234 - 19/02/26":          "2026-02-19",
		"2026-02-19":                   "2026-02-19",
		"4.4.26":                       "2026-04-04",
		"12.25.26":                     "2026-12-25",
	} {
		got, ok := ResolveDate(input, DateOptions{Reference: reference})
		require.True(t, ok, input)
		require.Equal(t, want, got, input)
	}
}

func TestResolveDateNoMatch(t *testing.T) {
	reference := ref(2026, time.February, 1)

	for _, input := range []string{
		"",
		"TBA",
		"19th Flob 2026",
		"see website for details",
		"31/02/2026",
	} {
		_, ok := ResolveDate(input, DateOptions{Reference: reference})
		require.False(t, ok, input)
	}
}

func TestResolveDateLocale(t *testing.T) {
	reference := ref(2026, time.June, 1)

	got, ok := ResolveDate("03/07/2026", DateOptions{Reference: reference, Locale: LocaleUK})
	require.True(t, ok)
	require.Equal(t, "2026-07-03", got)

	got, ok = ResolveDate("03/07/2026", DateOptions{Reference: reference, Locale: LocaleUS})
	require.True(t, ok)
	require.Equal(t, "2026-03-07", got)

	// only one reading is a real date, locale should not matter
	got, ok = ResolveDate("19/02/2026", DateOptions{Reference: reference, Locale: LocaleUS})
	require.True(t, ok)
	require.Equal(t, "2026-02-19", got)
}

func TestResolveDateYearInference(t *testing.T) {
	got, ok := ResolveDate("5th March", DateOptions{Reference: ref(2026, time.February, 1)})
	require.True(t, ok)
	require.Equal(t, "2026-03-05", got)

	// more than 45 days in the past at the current year means next year
	got, ok = ResolveDate("5th January", DateOptions{Reference: ref(2026, time.March, 1)})
	require.True(t, ok)
	require.Equal(t, "2027-01-05", got)

	// a recent date within the rollover window stays in the current year
	got, ok = ResolveDate("20th February", DateOptions{Reference: ref(2026, time.March, 1)})
	require.True(t, ok)
	require.Equal(t, "2026-02-20", got)
}

func TestResolveDateTwoDigitYearCentury(t *testing.T) {
	reference := ref(2026, time.February, 1)

	got, ok := ResolveDate("19/02/26", DateOptions{Reference: reference})
	require.True(t, ok)
	require.Equal(t, "2026-02-19", got)

	got, ok = ResolveDate("19/02/99", DateOptions{Reference: reference})
	require.True(t, ok)
	require.Equal(t, "1999-02-19", got)
}

func TestResolveDateIdempotent(t *testing.T) {
	reference := ref(2026, time.February, 1)

	first, ok := ResolveDate("Sun 15 Mar", DateOptions{Reference: reference})
	require.True(t, ok)
	second, ok := ResolveDate(first, DateOptions{Reference: reference})
	require.True(t, ok)
	require.Equal(t, first, second)
}
