package redact

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wudi/redactkit/coords"
	"github.com/wudi/redactkit/document"
)

// RedactPages applies the redactor to independent pages concurrently.
// Pages share no mutable engine state, so parallelism is safe as long as
// no page appears twice in the slice. The first error cancels the rest.
func (r *Redactor) RedactPages(ctx context.Context, pages []*document.Page, regionsByPage map[int][]coords.Rect) (map[int]*Result, error) {
	g, ctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	results := make(map[int]*Result, len(pages))

	for _, page := range pages {
		regions := regionsByPage[page.Index]
		if len(regions) == 0 {
			continue
		}
		g.Go(func() error {
			res, err := r.RedactRegions(ctx, page, regions)
			if err != nil {
				return err
			}
			mu.Lock()
			results[page.Index] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
