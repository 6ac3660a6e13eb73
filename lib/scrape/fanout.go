package scrape

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SourceResult pairs a source with the outcome of one fetch pass over
// it. Err carries an adapter's fatal configuration error; recoverable
// conditions live inside Result.
type SourceResult struct {
	Source Source
	Result Result
	Err    error
}

// FetchAll runs every source's adapter concurrently and returns the
// outcomes in input order. One misconfigured or slow source never
// hides the others' results.
func FetchAll(ctx context.Context, sources []Source, opts Options) []SourceResult {
	out := make([]SourceResult, len(sources))

	wg := sync.WaitGroup{}
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			out[i] = fetchOne(ctx, src, opts)
		}(i, src)
	}
	wg.Wait()

	return out
}

func fetchOne(ctx context.Context, src Source, opts Options) SourceResult {
	adapter, err := ForType(src.Type)
	if err != nil {
		slog.ErrorContext(ctx, "no adapter for source", "source", src.Name, "type", src.Type)
		return SourceResult{Source: src, Err: err}
	}

	started := time.Now()
	result, err := adapter.Fetch(ctx, src, opts)
	if err != nil {
		slog.ErrorContext(ctx, "source fetch failed", "source", src.Name, "err", err)
		return SourceResult{Source: src, Err: err}
	}

	slog.InfoContext(ctx, "source fetched",
		"source", src.Name,
		"events", len(result.Events),
		"errors", len(result.Errors),
		"duration", time.Since(started),
	)
	return SourceResult{Source: src, Result: result}
}
