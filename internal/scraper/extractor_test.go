package scraper

import (
	"testing"

	goUUID "github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const applePiePage = `<html><body>
<h1 class="gel-trafalgar content-title__text">Apple Pie</h1>
<p class="recipe-description__text">Grandma's classic pie.</p>
<div class="gel-layout__item gel-1/4 recipe-leading-info__side-bar"><div>
  <div><p>Prep</p><p>30 mins</p></div>
  <div><p>Cook</p><p>1 hour</p></div>
</div></div>
<div class="recipe-media__image responsive-image-container__16/9">
  <img src="https://cdn.example.com/apple-pie.jpg"/>
</div>
<div class="recipe-ingredients-wrapper">
  <ul>
    <li><a href="/foods/apple">Apples</a></li>
    <li><a href="/foods/sugar">sugar</a></li>
    <li>no anchor here</li>
  </ul>
  <ul>
    <li><a href="/foods/sugar">Sugar</a></li>
    <li><a href="/foods/butter">Butter</a></li>
  </ul>
</div>
</body></html>`

func TestExtractFullPage(t *testing.T) {
	t.Parallel()

	doc, err := parseHTML(applePiePage)
	require.NoError(t, err)

	e := NewExtractor(DefaultSelectors(), nil)
	rec := e.Extract(doc, "https://food.example.com/recipes/apple_pie_1")

	require.Equal(t, "https://food.example.com/recipes/apple_pie_1", rec.RecipeURL)
	require.Equal(t, "Apple Pie", rec.Name)
	require.Equal(t, "APPLE-PIE", rec.SKU)
	require.Equal(t, "Grandmas classic pie.", rec.Description)
	require.Equal(t, "1 hour", rec.Time)
	require.Equal(t, "https://cdn.example.com/apple-pie.jpg", rec.ImageURL)
	require.Equal(t, []string{"APPLES", "SUGAR", "BUTTER"}, rec.Ingredients)

	parsed, err := goUUID.Parse(rec.UUID)
	require.NoError(t, err)
	require.Equal(t, goUUID.Version(4), parsed.Version())
}

func TestExtractMissingDescriptionLeavesSiblingsIntact(t *testing.T) {
	t.Parallel()

	page := `<html><body>
<h1 class="content-title__text">Banana Bread</h1>
<div class="recipe-media__image"><img src="https://cdn.example.com/bb.jpg"/></div>
<div class="recipe-ingredients-wrapper"><ul><li><a>Bananas</a></li></ul></div>
</body></html>`
	doc, err := parseHTML(page)
	require.NoError(t, err)

	rec := NewExtractor(DefaultSelectors(), nil).Extract(doc, "https://food.example.com/recipes/bb")

	require.Empty(t, rec.Description)
	require.Equal(t, "Banana Bread", rec.Name)
	require.Equal(t, "BANANA-BREAD", rec.SKU)
	require.Equal(t, "https://cdn.example.com/bb.jpg", rec.ImageURL)
	require.Equal(t, []string{"BANANAS"}, rec.Ingredients)
	require.NotEmpty(t, rec.UUID)
}

func TestExtractEmptyPageStillProducesRecord(t *testing.T) {
	t.Parallel()

	doc, err := parseHTML(`<html><body><p>nothing here</p></body></html>`)
	require.NoError(t, err)

	rec := NewExtractor(DefaultSelectors(), nil).Extract(doc, "https://food.example.com/recipes/bare")

	require.Equal(t, "https://food.example.com/recipes/bare", rec.RecipeURL)
	require.Empty(t, rec.Name)
	require.Empty(t, rec.SKU)
	require.Empty(t, rec.Ingredients)
	require.NotEmpty(t, rec.UUID)
}

func TestIngredientDedupIsCaseInsensitiveAndOrdered(t *testing.T) {
	t.Parallel()

	page := `<html><body><div class="recipe-ingredients-wrapper">
<ul>
  <li><a>Plain flour</a></li>
  <li><a>BUTTER</a></li>
</ul>
<ul>
  <li><a>butter</a></li>
  <li><a>plain FLOUR</a></li>
  <li><a>Eggs</a></li>
</ul>
</div></body></html>`
	doc, err := parseHTML(page)
	require.NoError(t, err)

	rec := NewExtractor(DefaultSelectors(), nil).Extract(doc, "https://food.example.com/recipes/x")
	require.Equal(t, []string{"PLAIN FLOUR", "BUTTER", "EGGS"}, rec.Ingredients)

	// Dedup is idempotent: no pair of entries is equal under case folding.
	seen := map[string]bool{}
	for _, ing := range rec.Ingredients {
		require.False(t, seen[ing], "duplicate ingredient %q", ing)
		seen[ing] = true
	}
}

func TestExtractStripsApostrophesFromName(t *testing.T) {
	t.Parallel()

	page := `<html><body><h1 class="content-title__text">Mum's Shepherd's Pie</h1></body></html>`
	doc, err := parseHTML(page)
	require.NoError(t, err)

	rec := NewExtractor(DefaultSelectors(), nil).Extract(doc, "https://food.example.com/recipes/sp")
	require.Equal(t, "Mums Shepherds Pie", rec.Name)
	require.Equal(t, "MUMS-SHEPHERDS-PIE", rec.SKU)
}
