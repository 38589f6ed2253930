package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/recipeharvest/crawler/internal/metrics"
)

// Extractor pulls recipe fields out of a rendered detail page. Every field is
// extracted independently: a missing element leaves that field empty and the
// remaining fields untouched.
type Extractor struct {
	sel    Selectors
	logger *zap.Logger
}

// NewExtractor creates an Extractor using the given selectors.
func NewExtractor(sel Selectors, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{sel: sel, logger: logger}
}

// Extract builds a RecipeRecord from the document. The record always carries
// recipeURL and a fresh v4 UUID; everything else is best effort.
func (e *Extractor) Extract(doc *goquery.Document, recipeURL string) RecipeRecord {
	rec := RecipeRecord{
		RecipeURL:   recipeURL,
		Ingredients: []string{},
	}

	if name, ok := e.text(doc, e.sel.Name); ok {
		rec.Name = strings.ReplaceAll(name, "'", "")
		rec.SKU = DeriveSKU(rec.Name)
	} else {
		e.miss(recipeURL, "name")
	}

	if desc, ok := e.text(doc, e.sel.Description); ok {
		rec.Description = strings.ReplaceAll(desc, "'", "")
	} else {
		e.miss(recipeURL, "description")
	}

	if cookTime, ok := e.text(doc, e.sel.CookTime); ok {
		rec.Time = cookTime
	} else {
		e.miss(recipeURL, "time")
	}

	if src, ok := e.attr(doc, e.sel.Image, "src"); ok {
		rec.ImageURL = src
	} else {
		e.miss(recipeURL, "image_url")
	}

	rec.Ingredients = e.ingredients(doc)
	if len(rec.Ingredients) == 0 {
		e.miss(recipeURL, "ingredients")
	}

	id, err := NewRecordID()
	if err != nil {
		// crypto/rand failure; the record is still produced.
		e.logger.Warn("uuid generation failed", zap.String("url", recipeURL), zap.Error(err))
	}
	rec.UUID = id

	return rec
}

// ingredients walks the grouped ingredient lists ("for the filling", "for the
// icing", ...), uppercases every resolved entry, and deduplicates preserving
// first-seen order. Unresolvable entries are skipped.
func (e *Extractor) ingredients(doc *goquery.Document) []string {
	out := []string{}
	seen := map[string]struct{}{}

	wrap := doc.Find(e.sel.IngredientsWrap).First()
	if wrap.Length() == 0 {
		return out
	}
	wrap.ChildrenFiltered(e.sel.IngredientGroup).Each(func(_ int, group *goquery.Selection) {
		group.ChildrenFiltered(e.sel.IngredientItem).Each(func(_ int, item *goquery.Selection) {
			anchor := item.ChildrenFiltered("a").First()
			if anchor.Length() == 0 {
				return
			}
			value := strings.ToUpper(strings.TrimSpace(anchor.Text()))
			if value == "" {
				return
			}
			if _, dup := seen[value]; dup {
				return
			}
			seen[value] = struct{}{}
			out = append(out, value)
		})
	})
	return out
}

func (e *Extractor) text(doc *goquery.Document, selector string) (string, bool) {
	if selector == "" {
		return "", false
	}
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", false
	}
	value := strings.TrimSpace(sel.Text())
	return value, value != ""
}

func (e *Extractor) attr(doc *goquery.Document, selector, name string) (string, bool) {
	if selector == "" {
		return "", false
	}
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", false
	}
	value, ok := sel.Attr(name)
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

func (e *Extractor) miss(url, field string) {
	metrics.ObserveFieldMiss(field)
	e.logger.Debug("field not present", zap.String("url", url), zap.String("field", field))
}
