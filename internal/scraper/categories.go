package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Discoverer enumerates category entry points from the site's index page.
type Discoverer struct {
	sel    Selectors
	logger *zap.Logger
}

// NewDiscoverer creates a Discoverer.
func NewDiscoverer(sel Selectors, logger *zap.Logger) *Discoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{sel: sel, logger: logger}
}

// Discover returns one CategoryLink per resolvable slot in the index page's
// category list, in listing order. A slot without an anchor (the site has
// letters with no recipes) is skipped silently.
func (d *Discoverer) Discover(doc *goquery.Document) []CategoryLink {
	var links []CategoryLink
	doc.Find(d.sel.CategorySlot).Each(func(_ int, slot *goquery.Selection) {
		anchor := slot.Find("a").First()
		if anchor.Length() == 0 {
			return
		}
		href, ok := anchor.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			return
		}
		links = append(links, CategoryLink{URL: href})
	})
	d.logger.Info("categories discovered", zap.Int("count", len(links)))
	return links
}
