package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuiltinTagResolver(t *testing.T) {
	builtin := Builtin("LH3")

	for input, want := range map[string]string{
		"West London run 1234":          "WLH3",
		"City of London pub crawl":      "CLH3",
		"full moon trail from the Sun":  "LFMH3",
		"Barnes hash, Sunday 11am":      "BH3",
		"WLH3 #200 anniversary":         "WLH3",
		"no convention in this title":   "LH3",
		"London Hash from Angel, 7pm":   "LH3",
		"CLH3 w/ on-after at the Lamb":  "CLH3",
	} {
		require.Equal(t, want, ResolveKennelTag(input, nil, builtin), input)
	}
}

func TestTagResolverOrderMatters(t *testing.T) {
	// "West London" must win over the bare "London Hash" convention
	builtin := Builtin("XX")
	tag, ok := builtin.Resolve("West London hash 1234")
	require.True(t, ok)
	require.Equal(t, "WLH3", tag)
}

func TestCompileTagConfig(t *testing.T) {
	custom, err := CompileTagConfig(TagConfig{
		Patterns: []TagPatternConfig{
			{Pattern: `(?i)\briverside\b`, Tag: "RVH3"},
		},
		Default: "SH3",
	})
	require.NoError(t, err)
	require.NotNil(t, custom)

	builtin := Builtin("LH3")

	// config pattern beats everything
	require.Equal(t, "RVH3", ResolveKennelTag("Riverside trail no. 9", custom, builtin))
	// config default beats the built-in list
	require.Equal(t, "SH3", ResolveKennelTag("West London run", custom, builtin))
}

func TestCompileTagConfigWithoutDefaultFallsThrough(t *testing.T) {
	custom, err := CompileTagConfig(TagConfig{
		Patterns: []TagPatternConfig{
			{Pattern: `(?i)\briverside\b`, Tag: "RVH3"},
		},
	})
	require.NoError(t, err)

	builtin := Builtin("LH3")
	require.Equal(t, "WLH3", ResolveKennelTag("West London run", custom, builtin))
	require.Equal(t, "LH3", ResolveKennelTag("nothing matches", custom, builtin))
}

func TestCompileTagConfigErrors(t *testing.T) {
	_, err := CompileTagConfig(TagConfig{
		Patterns: []TagPatternConfig{{Pattern: `([`, Tag: "X"}},
	})
	require.Error(t, err)

	_, err = CompileTagConfig(TagConfig{
		Patterns: []TagPatternConfig{{Pattern: `ok`, Tag: ""}},
	})
	require.Error(t, err)

	empty, err := CompileTagConfig(TagConfig{})
	require.NoError(t, err)
	require.Nil(t, empty)
}
