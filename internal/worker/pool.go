// Package worker fans the gathered URL list out over a pool of extraction
// workers, each owning its own rendering session.
package worker

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/recipeharvest/crawler/internal/metrics"
	"github.com/recipeharvest/crawler/internal/scraper"
)

// SessionFactory creates one rendering session. Each worker calls it exactly
// once and owns the returned session exclusively.
type SessionFactory func(ctx context.Context) (scraper.Session, error)

// Config controls pool behavior.
type Config struct {
	Concurrency int
}

// Status is a snapshot of the pool's progress counters.
type Status struct {
	Total     int64 `json:"total"`
	Processed int64 `json:"processed"`
	Written   int64 `json:"written"`
	Skipped   int64 `json:"skipped"`
	Failed    int64 `json:"failed"`
}

// Pool processes item URLs: render, extract, persist. Per-page failures are
// counted and skipped; a persistence-backend failure cancels the whole run.
type Pool struct {
	factory   SessionFactory
	extractor *scraper.Extractor
	gateway   *scraper.Gateway
	cfg       Config
	logger    *zap.Logger

	total     atomic.Int64
	processed atomic.Int64
	written   atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64

	fatalOnce sync.Once
	fatalErr  error
}

// New constructs a Pool.
func New(factory SessionFactory, extractor *scraper.Extractor, gateway *scraper.Gateway, cfg Config, logger *zap.Logger) *Pool {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		factory:   factory,
		extractor: extractor,
		gateway:   gateway,
		cfg:       cfg,
		logger:    logger,
	}
}

// Snapshot returns the current progress counters.
func (p *Pool) Snapshot() Status {
	return Status{
		Total:     p.total.Load(),
		Processed: p.processed.Load(),
		Written:   p.written.Load(),
		Skipped:   p.skipped.Load(),
		Failed:    p.failed.Load(),
	}
}

// Run splits urls into disjoint contiguous slices, one per worker, and blocks
// until every worker finishes or a fatal persistence error cancels the run.
// In-flight records complete before workers observe the cancellation.
func (p *Pool) Run(ctx context.Context, urls []string) (Status, error) {
	p.total.Store(int64(len(urls)))
	if len(urls) == 0 {
		return p.Snapshot(), nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := p.cfg.Concurrency
	if workers > len(urls) {
		workers = len(urls)
	}

	var wg sync.WaitGroup
	for _, slice := range splitSlices(urls, workers) {
		wg.Add(1)
		go func(slice []string) {
			defer wg.Done()
			p.runWorker(runCtx, cancel, slice)
		}(slice)
	}
	wg.Wait()

	if p.fatalErr != nil {
		return p.Snapshot(), p.fatalErr
	}
	return p.Snapshot(), ctx.Err()
}

func (p *Pool) runWorker(ctx context.Context, cancel context.CancelFunc, urls []string) {
	session, err := p.factory(ctx)
	if err != nil {
		p.fail(cancel, err)
		return
	}
	defer func() {
		if cerr := session.Close(context.Background()); cerr != nil {
			p.logger.Warn("session close failed", zap.Error(cerr))
		}
	}()

	for _, url := range urls {
		if ctx.Err() != nil {
			return
		}
		p.processURL(ctx, cancel, session, url)
	}
}

func (p *Pool) processURL(ctx context.Context, cancel context.CancelFunc, session scraper.Session, url string) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()
	p.processed.Add(1)

	doc, err := session.Navigate(ctx, url)
	if err != nil {
		p.failed.Add(1)
		p.logger.Warn("detail page render failed", zap.String("url", url), zap.Error(err))
		return
	}

	rec := p.extractor.Extract(doc, url)
	_, inserted, err := p.gateway.Persist(ctx, rec)
	if err != nil {
		// The sink itself is broken; continuing would silently drop rows.
		p.logger.Error("record persistence failed", zap.String("url", url), zap.Error(err))
		p.fail(cancel, err)
		return
	}
	if inserted {
		p.written.Add(1)
	} else {
		p.skipped.Add(1)
	}
	p.logger.Debug("record processed",
		zap.String("url", url), zap.String("sku", rec.SKU), zap.Bool("written", inserted))
}

func (p *Pool) fail(cancel context.CancelFunc, err error) {
	p.fatalOnce.Do(func() {
		p.fatalErr = err
	})
	cancel()
}

// splitSlices divides urls into n disjoint contiguous slices whose sizes
// differ by at most one.
func splitSlices(urls []string, n int) [][]string {
	out := make([][]string, 0, n)
	size := len(urls) / n
	rem := len(urls) % n
	start := 0
	for i := 0; i < n; i++ {
		end := start + size
		if i < rem {
			end++
		}
		if start < end {
			out = append(out, urls[start:end])
		}
		start = end
	}
	return out
}
