package building

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/NERVsystems/osmbuildings/pkg/osm"
	"github.com/NERVsystems/osmbuildings/pkg/resolver"
)

// DefaultConcurrency bounds ResolveAll when no limit is given
const DefaultConcurrency = 4

// Result is the outcome of one reconstruction in a batch
type Result struct {
	Ref      osm.ElementRef
	Building *Building
	Err      error
}

// ResolveAll reconstructs refs in parallel, at most concurrency at a time.
// Every building gets its own store; a failure affects only its own Result.
// Results are in the order of refs.
func ResolveAll(ctx context.Context, f resolver.Fetcher, refs []osm.ElementRef, cfg Config, concurrency int) []Result {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	results := make([]Result, len(refs))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, ref := range refs {
		g.Go(func() error {
			results[i].Ref = ref
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Building, results[i].Err = Fetch(ctx, f, ref, cfg)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
