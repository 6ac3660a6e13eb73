package extract

import (
	"fmt"
	"regexp"
)

// TagPattern maps a free-text convention onto a canonical kennel tag.
type TagPattern struct {
	Pattern *regexp.Regexp
	Tag     string
}

// TagResolver tests an ordered pattern list against free text, most
// specific first; the first match wins. The kennel tag stays opaque here,
// resolution to a canonical kennel record happens downstream.
type TagResolver struct {
	patterns   []TagPattern
	defaultTag string
}

func NewTagResolver(patterns []TagPattern, defaultTag string) TagResolver {
	return TagResolver{patterns: patterns, defaultTag: defaultTag}
}

func (r TagResolver) Resolve(text string) (string, bool) {
	for _, p := range r.patterns {
		if p.Pattern.MatchString(text) {
			return p.Tag, true
		}
	}
	return "", false
}

func (r TagResolver) DefaultTag() string {
	return r.defaultTag
}

// builtin conventions observed across UK listings; longer, more specific
// phrasings sit above the abbreviations they contain
var builtinTagPatterns = []TagPattern{
	{regexp.MustCompile(`(?i)\bwest\s+london\b`), "WLH3"},
	{regexp.MustCompile(`(?i)\bcity\s+of\s+london\b`), "CLH3"},
	{regexp.MustCompile(`(?i)\bfull\s*moon\b`), "LFMH3"},
	{regexp.MustCompile(`(?i)\bbarnes\b`), "BH3"},
	{regexp.MustCompile(`(?i)\bwlh3\b`), "WLH3"},
	{regexp.MustCompile(`(?i)\bclh3\b`), "CLH3"},
	{regexp.MustCompile(`(?i)\blh3\b`), "LH3"},
	{regexp.MustCompile(`(?i)\blondon\s+hash\b`), "LH3"},
}

// Builtin returns the built-in tag resolver carrying a per-source
// default for text nothing matches.
func Builtin(defaultTag string) TagResolver {
	return NewTagResolver(builtinTagPatterns, defaultTag)
}

// TagConfig is the adapter-config form of a pattern list. One fetch
// endpoint (a shared calendar, typically) may serve several kennels
// distinguished only by naming conventions in event titles, so sources
// can carry their own list that takes precedence over the built-ins.
type TagConfig struct {
	Patterns []TagPatternConfig `json:"patterns"`
	Default  string             `json:"default"`
}

type TagPatternConfig struct {
	Pattern string `json:"pattern"`
	Tag     string `json:"tag"`
}

// CompileTagConfig validates a config-supplied pattern list at the
// adapter boundary. A malformed regex is a configuration error, reported
// before any fetch happens.
func CompileTagConfig(cfg TagConfig) (*TagResolver, error) {
	if len(cfg.Patterns) == 0 && cfg.Default == "" {
		return nil, nil
	}
	patterns := make([]TagPattern, 0, len(cfg.Patterns))
	for i, p := range cfg.Patterns {
		if p.Tag == "" {
			return nil, fmt.Errorf("kennel pattern %d: tag must not be empty", i)
		}
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("kennel pattern %d (%q): %w", i, p.Pattern, err)
		}
		patterns = append(patterns, TagPattern{Pattern: re, Tag: p.Tag})
	}
	r := NewTagResolver(patterns, cfg.Default)
	return &r, nil
}

// ResolveKennelTag applies the two-level override chain: the source's
// own pattern list, then its configured default, then the built-in list,
// then the built-in resolver's per-source default.
func ResolveKennelTag(text string, custom *TagResolver, builtin TagResolver) string {
	if custom != nil {
		if tag, ok := custom.Resolve(text); ok {
			return tag
		}
		if custom.defaultTag != "" {
			return custom.defaultTag
		}
	}
	if tag, ok := builtin.Resolve(text); ok {
		return tag
	}
	return builtin.defaultTag
}
