package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCollapseSpace(t *testing.T) {
	require.Equal(t, "The Sun Inn, Richmond", CollapseSpace("  The Sun\n Inn,\t\tRichmond "))
	require.Equal(t, "", CollapseSpace(" \n\t "))
}

func TestNormalizeName(t *testing.T) {
	require.Equal(t, "westlondonh3", NormalizeName("  West London\nH3 "))
}

func TestMatchName(t *testing.T) {
	require.True(t, MatchName("Date / Time", []string{"date", "when"}))
	require.False(t, MatchName("Run 1892", []string{"date", "when"}))
}
