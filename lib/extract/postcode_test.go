package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractPostcode(t *testing.T) {
	for input, want := range map[string]string{
		"The Sun Inn, Richmond, TW9 1TH near the river": "TW9 1TH",
		"tw9 1th":           "TW9 1TH",
		"SW1A1AA":           "SW1A 1AA",
		"meet at EC2M 7PY.": "EC2M 7PY",
		"M1 1AE":            "M1 1AE",
	} {
		got, ok := ExtractPostcode(input)
		require.True(t, ok, input)
		require.Equal(t, want, got, input)
	}
}

func TestExtractPostcodeNoMatch(t *testing.T) {
	for _, input := range []string{
		"The Pub, Richmond",
		"",
		"run number 1234",
	} {
		_, ok := ExtractPostcode(input)
		require.False(t, ok, input)
	}
}

func TestExtractPostcodeIdempotent(t *testing.T) {
	first, ok := ExtractPostcode("the green, sw13 0nr, barnes")
	require.True(t, ok)
	second, ok := ExtractPostcode(first)
	require.True(t, ok)
	require.Equal(t, first, second)
}

func TestSelectVenuePrefersPostcode(t *testing.T) {
	location, postcode := SelectVenue([]string{
		"Run 1234",
		"The Old Oak",
		"Strange name without nouns, TW10 6RP",
	})
	require.Equal(t, "Strange name without nouns, TW10 6RP", location)
	require.Equal(t, "TW10 6RP", postcode)
}

func TestSelectVenueFallsBackToNouns(t *testing.T) {
	location, postcode := SelectVenue([]string{
		"Run 1234",
		"The Sun Inn, Richmond",
	})
	require.Equal(t, "The Sun Inn, Richmond", location)
	require.Equal(t, "", postcode)
}

func TestSelectVenueNothing(t *testing.T) {
	location, postcode := SelectVenue([]string{"1234", "TBA"})
	require.Equal(t, "", location)
	require.Equal(t, "", postcode)
}
