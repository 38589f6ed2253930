package scraper

import (
	"context"

	"go.uber.org/zap"

	"github.com/recipeharvest/crawler/internal/metrics"
)

// DefaultItemCap bounds the number of item URLs gathered in one run.
const DefaultItemCap = 1000

// Orchestrator drives the whole-site traversal: discovered categories are
// walked in order and their item URLs concatenated until the item cap is
// passed.
type Orchestrator struct {
	walker  *Walker
	itemCap int
	logger  *zap.Logger
}

// NewOrchestrator creates an Orchestrator. A non-positive itemCap falls back
// to DefaultItemCap.
func NewOrchestrator(walker *Walker, itemCap int, logger *zap.Logger) *Orchestrator {
	if itemCap <= 0 {
		itemCap = DefaultItemCap
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{walker: walker, itemCap: itemCap, logger: logger}
}

// CollectURLs walks each category in discovery order and returns every item
// URL found, in page-traversal order within a category. The cap is advisory
// and checked only at category boundaries: once the running total exceeds it
// no further category is walked, but the category that pushed past it keeps
// its full contribution. The result may therefore land over the cap by up to
// one category's worth of items.
func (o *Orchestrator) CollectURLs(ctx context.Context, categories []CategoryLink) ([]string, error) {
	metrics.ObserveCategories(len(categories))
	var urls []string
	for _, category := range categories {
		if err := ctx.Err(); err != nil {
			return urls, err
		}
		before := len(urls)
		if err := o.walker.Walk(ctx, category.URL, func(u string) {
			urls = append(urls, u)
		}); err != nil {
			return urls, err
		}
		o.logger.Info("category walked",
			zap.String("category", category.URL),
			zap.Int("items", len(urls)-before),
			zap.Int("total", len(urls)),
		)
		if len(urls) > o.itemCap {
			o.logger.Info("item cap reached", zap.Int("cap", o.itemCap), zap.Int("total", len(urls)))
			break
		}
	}
	metrics.ObserveURLs(len(urls))
	return urls, nil
}
