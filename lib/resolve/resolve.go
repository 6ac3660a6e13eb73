// Package resolve turns per-source raw events into a deduplicated
// canonical list. Sources disagree about kennel spelling and about how
// much they know per run, so resolution is two jobs: mapping loose
// kennel tags onto a registry, and merging observations of the same
// run into one record.
package resolve

import (
	"context"
	"sort"

	"onon-backend/lib/scrape"
	"onon-backend/lib/textutil"

	"github.com/antzucaro/matchr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("resolve")

// Kennel is one registry entry. Tag is the canonical short code every
// resolved event carries; aliases cover the spellings sources use.
type Kennel struct {
	Tag     string   `json:"tag"`
	Name    string   `json:"name,omitempty"`
	Aliases []string `json:"aliases,omitempty"`
}

// CanonicalEvent is one run after deduplication: the merged view of
// every source that observed it.
type CanonicalEvent struct {
	Kennel string `json:"kennel"`
	Event  scrape.RawEvent `json:"event"`
	// Sources lists the names of the sources that observed this run
	Sources []string `json:"sources"`
}

type Resolver interface {
	Resolve(ctx context.Context, results []scrape.SourceResult) ([]CanonicalEvent, error)
}

// DefaultSimilarity is the Jaro-Winkler floor below which a raw tag is
// treated as an unknown kennel rather than a misspelling.
const DefaultSimilarity = 0.9

// RegistryResolver is the in-memory reference implementation. It holds
// the whole kennel registry and resolves against it with exact alias
// matching first, fuzzy matching second.
type RegistryResolver struct {
	kennels    []Kennel
	similarity float64
	// normalized alias -> canonical tag
	aliases map[string]string
}

func NewRegistryResolver(kennels []Kennel) *RegistryResolver {
	r := &RegistryResolver{
		kennels:    kennels,
		similarity: DefaultSimilarity,
		aliases:    map[string]string{},
	}
	for _, k := range kennels {
		r.aliases[normalize(k.Tag)] = k.Tag
		if k.Name != "" {
			r.aliases[normalize(k.Name)] = k.Tag
		}
		for _, alias := range k.Aliases {
			r.aliases[normalize(alias)] = k.Tag
		}
	}
	return r
}

// SetSimilarity overrides the fuzzy-match floor; 1 disables fuzzy
// matching entirely.
func (r *RegistryResolver) SetSimilarity(floor float64) {
	r.similarity = floor
}

func normalize(s string) string {
	return textutil.NormalizeName(s)
}

// resolveTag maps a raw source tag onto a canonical one. Unknown tags
// pass through unchanged: an event from a kennel the registry has not
// heard of is still an event.
func (r *RegistryResolver) resolveTag(raw string) string {
	key := normalize(raw)
	if tag, ok := r.aliases[key]; ok {
		return tag
	}

	var bestTag string
	var bestScore float64
	for alias, tag := range r.aliases {
		score := matchr.JaroWinkler(key, alias, false)
		if score > bestScore {
			bestScore = score
			bestTag = tag
		}
	}
	if bestScore >= r.similarity {
		return bestTag
	}
	return raw
}

func (r *RegistryResolver) Resolve(ctx context.Context, results []scrape.SourceResult) ([]CanonicalEvent, error) {
	_, span := tracer.Start(ctx, "Resolve")
	defer span.End()

	type key struct {
		kennel string
		date   string
	}
	merged := map[key]*CanonicalEvent{}
	var order []key

	for _, sr := range results {
		if sr.Err != nil {
			continue
		}
		for _, event := range sr.Result.Events {
			kennel := r.resolveTag(event.KennelTag)
			k := key{kennel: kennel, date: event.Date}

			existing, ok := merged[k]
			if !ok {
				merged[k] = &CanonicalEvent{
					Kennel:  kennel,
					Event:   event,
					Sources: []string{sr.Source.Name},
				}
				order = append(order, k)
				continue
			}
			existing.Event = mergeEvents(existing.Event, event)
			existing.Sources = appendUnique(existing.Sources, sr.Source.Name)
		}
	}

	out := make([]CanonicalEvent, 0, len(order))
	for _, k := range order {
		out = append(out, *merged[k])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Event.Date != out[j].Event.Date {
			return out[i].Event.Date < out[j].Event.Date
		}
		return out[i].Kennel < out[j].Kennel
	})

	span.SetAttributes(
		attribute.Int("events_in", countEvents(results)),
		attribute.Int("events_out", len(out)),
	)
	return out, nil
}

// mergeEvents fills a's gaps from b. For fields both carry, the longer
// value wins on the theory that the richer source knows more.
func mergeEvents(a, b scrape.RawEvent) scrape.RawEvent {
	if a.RunNumber == nil {
		a.RunNumber = b.RunNumber
	}
	a.Title = richer(a.Title, b.Title)
	a.Description = richer(a.Description, b.Description)
	a.Hares = richer(a.Hares, b.Hares)
	a.Location = richer(a.Location, b.Location)
	if a.LocationURL == "" {
		a.LocationURL = b.LocationURL
	}
	if a.StartTime == "" {
		a.StartTime = b.StartTime
	}
	if a.SourceURL == "" {
		a.SourceURL = b.SourceURL
	}
	return a
}

func richer(a, b string) string {
	if len(b) > len(a) {
		return b
	}
	return a
}

func appendUnique(list []string, item string) []string {
	for _, existing := range list {
		if existing == item {
			return list
		}
	}
	return append(list, item)
}

func countEvents(results []scrape.SourceResult) int {
	n := 0
	for _, sr := range results {
		n += len(sr.Result.Events)
	}
	return n
}
