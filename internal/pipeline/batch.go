// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/guideline-engine/pkg/types"
)

// BatchSummary holds the outcome of a batch run.
type BatchSummary struct {
	Parsed  int `json:"parsed"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Total returns the number of documents processed.
func (s BatchSummary) Total() int {
	return s.Parsed + s.Skipped + s.Failed
}

// HasFailures reports whether any document failed.
func (s BatchSummary) HasFailures() bool {
	return s.Failed > 0
}

// ProcessBatch processes docs on a bounded worker pool, printing one status
// line per document to w and a summary at the end. A failing document never
// stops the batch. Documents whose charts artifact already exists are
// skipped unless opts.Force is set. Cancelling ctx stops the documents not
// yet started; they are not counted.
func ProcessBatch(ctx context.Context, docs []types.DocumentConfig, opts Options, w io.Writer) BatchSummary {
	opts = opts.withDefaults()

	var (
		mu      sync.Mutex
		summary BatchSummary
	)
	report := func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, format, args...)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for _, cfg := range docs {
		cfg := Normalize(cfg)
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if !opts.Force && exists(filepath.Join(ArtifactDir(cfg, opts), ChartsFile)) {
				report("skipped %s (artifacts exist)\n", cfg.Name)
				mu.Lock()
				summary.Skipped++
				mu.Unlock()
				return nil
			}
			out, err := ProcessDocument(gctx, cfg, opts)
			if err != nil {
				report("failed  %s: %v\n", cfg.Name, err)
				opts.Logger.Error("document failed", "doc", cfg.Name, "error", err)
				mu.Lock()
				summary.Failed++
				mu.Unlock()
				return nil
			}
			report("parsed  %s (%d charts, %d rows)\n", cfg.Name, len(out.Result.Charts), out.Result.RowCount())
			mu.Lock()
			summary.Parsed++
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	fmt.Fprintf(w, "\nBatch summary: %d parsed, %d skipped, %d failed (total: %d)\n",
		summary.Parsed, summary.Skipped, summary.Failed, summary.Total())
	return summary
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
