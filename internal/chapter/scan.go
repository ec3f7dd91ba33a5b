package chapter

import (
	"context"
	"fmt"

	"github.com/gyaneshwarpardhi/storyloom/internal/story"
)

// Scanned is the reconciled node set of one chapter.
type Scanned struct {
	Name  Name
	Title string
	Nodes []*story.Node
}

// Scan resolves and reconciles every named chapter on a pool of workers.
// Results are returned in the order of names. The first failure aborts the scan.
func Scan(ctx context.Context, r Resolver, names []Name, workers int, opts story.Options) ([]Scanned, error) {
	if len(names) == 0 {
		return nil, nil
	}
	if workers < 1 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool := newWorkerPool[Name, Scanned](ctx, workers, len(names), func(ctx context.Context, n Name) (Scanned, error) {
		if err := ctx.Err(); err != nil {
			return Scanned{}, err
		}
		doc, err := r.Resolve(n.String())
		if err != nil {
			return Scanned{}, err
		}
		res, err := story.ParseAndReconcile(doc, nil, opts)
		if err != nil {
			return Scanned{}, fmt.Errorf("reconcile %s: %w", n, err)
		}
		return Scanned{Name: n, Title: doc.Title, Nodes: res.Nodes}, nil
	})

	results := make(chan jobResult[Name, Scanned], len(names))
	for _, n := range names {
		// Queue capacity equals len(names), so Submit never fails here.
		pool.Submit(n, results)
	}

	byName := make(map[Name]Scanned, len(names))
	var firstErr error
	for range names {
		select {
		case res := <-results:
			if res.err != nil && firstErr == nil {
				firstErr = fmt.Errorf("scan %s: %w", res.payload, res.err)
				cancel()
			}
			byName[res.payload] = res.value
		case <-ctx.Done():
			if firstErr == nil {
				firstErr = ctx.Err()
			}
		}
		if firstErr != nil {
			break
		}
	}
	cancel()
	pool.Drain()
	if firstErr != nil {
		return nil, firstErr
	}

	out := make([]Scanned, len(names))
	for i, n := range names {
		out[i] = byName[n]
	}
	return out, nil
}
