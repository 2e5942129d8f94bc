// Package prefetch keeps the catalog cache warm: it loads the roster and
// every product sheet at startup, then refetches them all on a fixed
// interval so requests rarely pay the network cost.
package prefetch

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alexcomrie/Garden-Club/internal/catalog"
)

// Catalog abstracts the cache operations the worker drives.
type Catalog interface {
	LoadBusinesses(ctx context.Context) ([]catalog.Business, error)
	Refresh(ctx context.Context) ([]catalog.Business, error)
	LoadProducts(ctx context.Context, sheetURL string) (*catalog.ProductGroups, error)
	RefreshProducts(ctx context.Context, sheetURL string) (*catalog.ProductGroups, error)
}

// Worker periodically refreshes the business roster and prefetches each
// business's product sheet with bounded concurrency.
type Worker struct {
	catalog     Catalog
	interval    time.Duration
	concurrency int
	logger      *slog.Logger
}

// NewWorker creates a Worker. If interval is <= 0 it defaults to 30 minutes.
func NewWorker(cat Catalog, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &Worker{
		catalog:     cat,
		interval:    interval,
		concurrency: 4,
		logger:      slog.Default(),
	}
}

// Warm populates the cache tiers without forcing a refetch: persisted data
// satisfies it, so a restart does not hammer the sheets.
func (w *Worker) Warm(ctx context.Context) error {
	businesses, err := w.catalog.LoadBusinesses(ctx)
	if err != nil {
		return err
	}
	w.prefetchSheets(ctx, businesses, w.catalog.LoadProducts)
	return nil
}

// Run refreshes on the configured interval until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.logger.Error("scheduled catalog refresh failed", "error", err)
			}
		}
	}
}

// RunOnce forces one full refresh: roster first, then every product sheet.
func (w *Worker) RunOnce(ctx context.Context) error {
	businesses, err := w.catalog.Refresh(ctx)
	if err != nil {
		return err
	}
	w.prefetchSheets(ctx, businesses, w.catalog.RefreshProducts)
	return nil
}

// prefetchSheets loads each business's sheet through load. Individual sheet
// failures are logged, not fatal: one bad sheet must not starve the rest.
func (w *Worker) prefetchSheets(ctx context.Context, businesses []catalog.Business, load func(context.Context, string) (*catalog.ProductGroups, error)) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	for _, b := range businesses {
		if b.ProductSheetURL == "" {
			continue
		}
		g.Go(func() error {
			if _, err := load(ctx, b.ProductSheetURL); err != nil {
				w.logger.Warn("prefetching product sheet", "business_id", b.ID, "error", err)
			}
			return nil
		})
	}
	g.Wait()
}
