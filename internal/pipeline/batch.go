package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tutorlane/lesson-cli/internal/document"
	"github.com/tutorlane/lesson-cli/internal/model"
)

// BatchItem ties one document path to its run result.
type BatchItem struct {
	Path    string            `json:"path"`
	Outcome *model.RunOutcome `json:"outcome,omitempty"`
	Err     error             `json:"-"`
	Error   string            `json:"error,omitempty"`
}

// RunBatch publishes several documents concurrently. Paths resolving to
// the same document identity are collapsed to one run, since two
// concurrent runs against one manifest would race. Individual failures
// do not abort the batch.
func (p *Pipeline) RunBatch(ctx context.Context, paths []string, flags model.PublishFlags, concurrency int) []BatchItem {
	if concurrency <= 0 {
		concurrency = 4
	}

	// Collapse duplicate documents, keeping first occurrence order.
	seen := make(map[string]bool, len(paths))
	unique := make([]string, 0, len(paths))
	for _, path := range paths {
		id := document.IDFromPath(path)
		if seen[id] {
			zap.L().Warn("duplicate document in batch, skipping", zap.String("path", path))
			continue
		}
		seen[id] = true
		unique = append(unique, path)
	}

	zap.L().Info("batch starting",
		zap.Int("documents", len(unique)),
		zap.Int("concurrency", concurrency),
	)

	items := make([]BatchItem, len(unique))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, path := range unique {
		g.Go(func() error {
			f := flags
			f.DocumentPath = path

			outcome, err := p.Run(gctx, f)
			item := BatchItem{Path: path, Outcome: outcome, Err: err}
			if err != nil {
				item.Error = err.Error()
				zap.L().Error("batch document failed", zap.String("path", path), zap.Error(err))
			}

			mu.Lock()
			items[i] = item
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	succeeded, failed := 0, 0
	for _, item := range items {
		if item.Err != nil {
			failed++
		} else {
			succeeded++
		}
	}
	zap.L().Info("batch complete", zap.Int("succeeded", succeeded), zap.Int("failed", failed))

	return items
}
