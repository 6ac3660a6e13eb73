// Package scrape defines the contract between the orchestrator and the
// fleet of source adapters: the Source configuration entity, the
// RawEvent wire type, the two-tier error model and the Adapter
// interface every source implementation satisfies.
package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Source is a configured external origin: a URL, an adapter type and an
// adapter-specific config blob. Owned by configuration, consumed
// read-only here.
type Source struct {
	Name   string         `json:"name"`
	Type   string         `json:"type"`
	URL    string         `json:"url"`
	Config map[string]any `json:"config,omitempty"`
}

// DecodeConfig validates a source's loosely-typed config blob against
// an adapter's typed config struct, once, at the boundary. Adapters
// fail fast with a descriptive configuration error instead of
// duck-typing shapes inside parse loops.
func DecodeConfig[T any](src Source) (T, error) {
	var out T
	if src.Config == nil {
		return out, nil
	}
	raw, err := json.Marshal(src.Config)
	if err != nil {
		return out, fmt.Errorf("source %q: config is not serializable: %w", src.Name, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("source %q: invalid config: %w", src.Name, err)
	}
	return out, nil
}

// DefaultDays bounds how far forward and backward from now events are
// considered in-window when the caller does not say.
const DefaultDays = 90

type Options struct {
	Days int
}

func (o Options) WindowDays() int {
	if o.Days <= 0 {
		return DefaultDays
	}
	return o.Days
}

// Adapter is the contract every source implementation satisfies. A
// Result is always returned for recoverable conditions (network or HTTP
// failure, individual item parse failure); the error return is reserved
// for fatal configuration problems such as a missing credential or a
// malformed config blob.
type Adapter interface {
	Fetch(ctx context.Context, src Source, opts Options) (Result, error)
}

// Registry maps source types onto adapters. Built-in adapters register
// themselves from init; the orchestration boundary selects once by
// source type and no adapter knows about any other.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

var defaultRegistry = &Registry{adapters: map[string]Adapter{}}

func Register(sourceType string, adapter Adapter) {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	if _, exists := defaultRegistry.adapters[sourceType]; exists {
		panic(fmt.Sprintf("adapter for source type %q registered twice", sourceType))
	}
	defaultRegistry.adapters[sourceType] = adapter
}

func ForType(sourceType string) (Adapter, error) {
	defaultRegistry.mu.RLock()
	defer defaultRegistry.mu.RUnlock()
	adapter, ok := defaultRegistry.adapters[sourceType]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for source type %q", sourceType)
	}
	return adapter, nil
}

func Types() []string {
	defaultRegistry.mu.RLock()
	defer defaultRegistry.mu.RUnlock()
	types := make([]string, 0, len(defaultRegistry.adapters))
	for t := range defaultRegistry.adapters {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
