package scraper

// RecipeRecord holds everything extracted from one recipe detail page.
// Every field except RecipeURL and UUID may be empty; an empty value means the
// source page did not expose that field, which is an expected state rather
// than an error.
type RecipeRecord struct {
	UUID            string   `json:"uuid"`
	SKU             string   `json:"sku,omitempty"`
	Name            string   `json:"name,omitempty"`
	Description     string   `json:"description,omitempty"`
	Ingredients     []string `json:"ingredients"`
	Time            string   `json:"time,omitempty"`
	ImageURL        string   `json:"image_url,omitempty"`
	ImageStorageURL string   `json:"image_storage_url,omitempty"`
	RecipeURL       string   `json:"recipe_url"`
}

// CategoryLink is a discovered category entry point.
type CategoryLink struct {
	URL string `json:"url"`
}

// Selectors carries the CSS locators for every element the pipeline touches.
// They are configuration so a markup change is a config edit, not a rebuild.
type Selectors struct {
	CategorySlot    string `mapstructure:"category_slot"`
	ItemContainer   string `mapstructure:"item_container"`
	NextControl     string `mapstructure:"next_control"`
	Name            string `mapstructure:"name"`
	Description     string `mapstructure:"description"`
	CookTime        string `mapstructure:"cook_time"`
	Image           string `mapstructure:"image"`
	IngredientsWrap string `mapstructure:"ingredients_wrap"`
	IngredientGroup string `mapstructure:"ingredient_group"`
	IngredientItem  string `mapstructure:"ingredient_item"`
	CookieDismiss   string `mapstructure:"cookie_dismiss"`
}

// DefaultSelectors returns the locators for the BBC Food recipe site.
func DefaultSelectors() Selectors {
	return Selectors{
		CategorySlot:    "ul.az-keyboard__list > li",
		ItemContainer:   "div.promo-collection__container > div",
		NextControl:     `span[aria-label="Next"]`,
		Name:            "h1.content-title__text",
		Description:     "p.recipe-description__text",
		CookTime:        "div.recipe-leading-info__side-bar > div > div:nth-child(2) > p:nth-child(2)",
		Image:           "div.recipe-media__image img",
		IngredientsWrap: "div.recipe-ingredients-wrapper",
		IngredientGroup: "ul",
		IngredientItem:  "li",
		CookieDismiss:   "#bbccookies-continue-button",
	}
}

// RunReport summarizes a finished crawl for the operator.
type RunReport struct {
	Categories     int `json:"categories"`
	URLs           int `json:"urls"`
	RecordsWritten int `json:"records_written"`
	RecordsSkipped int `json:"records_skipped"`
	PagesFailed    int `json:"pages_failed"`
}
