package scraper

import (
	"context"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/recipeharvest/crawler/internal/metrics"
)

// Walker enumerates every listing page of one category and emits the item
// URLs it finds, in page-traversal order. It drives a single Session and is
// not safe for concurrent use.
type Walker struct {
	session Session
	sel     Selectors
	logger  *zap.Logger
}

// NewWalker creates a Walker bound to the given session.
func NewWalker(session Session, sel Selectors, logger *zap.Logger) *Walker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Walker{session: session, sel: sel, logger: logger}
}

// Walk renders the category entry page, determines the page count, and pages
// through the listing via the "next" control, calling emit for every item URL
// in order. A page that fails to render, click, or extract contributes
// nothing and the walk continues; only context cancellation stops it early.
func (w *Walker) Walk(ctx context.Context, entryURL string, emit func(url string)) error {
	doc, err := w.session.Navigate(ctx, entryURL)
	if err != nil {
		metrics.ObservePageWalk("failed")
		w.logger.Warn("category entry render failed", zap.String("url", entryURL), zap.Error(err))
		return nil
	}
	w.emitItems(doc, entryURL, emit)

	pages := pageCount(doc, w.sel.NextControl)
	for page := 1; page < pages; page++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.session.Click(ctx, w.sel.NextControl); err != nil {
			metrics.ObservePageWalk("failed")
			w.logger.Warn("next page dispatch failed",
				zap.String("category", entryURL), zap.Int("page", page+1), zap.Error(err))
			continue
		}
		doc, err := w.session.Document(ctx)
		if err != nil {
			metrics.ObservePageWalk("failed")
			w.logger.Warn("listing page render failed",
				zap.String("category", entryURL), zap.Int("page", page+1), zap.Error(err))
			continue
		}
		w.emitItems(doc, entryURL, emit)
	}
	return nil
}

// emitItems extracts every item URL from one listing page. Each item is one
// anchor one level below the container's direct children; an item whose
// anchor does not resolve is skipped.
func (w *Walker) emitItems(doc *goquery.Document, category string, emit func(string)) {
	count := 0
	container := doc.Find(w.sel.ItemContainer).First()
	container.Children().Each(func(_ int, item *goquery.Selection) {
		anchor := item.Find("a").First()
		if anchor.Length() == 0 {
			return
		}
		href, ok := anchor.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			return
		}
		emit(href)
		count++
	})
	metrics.ObservePageWalk("ok")
	w.logger.Debug("listing page extracted", zap.String("category", category), zap.Int("items", count))
}

// pageCount reads the total page count from the numbered link immediately
// before the "next" control. When the control or number is missing or
// unparsable the category is treated as a single page.
func pageCount(doc *goquery.Document, nextSelector string) int {
	next := doc.Find(nextSelector).First()
	if next.Length() == 0 {
		return 1
	}
	for node := closestSlot(next); node.Length() > 0; node = node.Prev() {
		anchor := node
		if !node.Is("a") {
			anchor = node.Find("a").Last()
		}
		if anchor.Length() == 0 {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimSpace(anchor.Text())); err == nil && n > 0 {
			return n
		}
	}
	return 1
}

// closestSlot returns the sibling chain start for the next control: the
// control itself when it has siblings, otherwise its parent slot.
func closestSlot(next *goquery.Selection) *goquery.Selection {
	if prev := next.Prev(); prev.Length() > 0 {
		return prev
	}
	return next.Parent().Prev()
}
