// Package main hosts the recipecrawler entrypoint.
//
// Architecture overview:
//   - Discovery: the A-Z index page is fetched over plain HTTP with the
//     Colly-based client and parsed with goquery into category links.
//   - URL gathering: a single Chromedp render session walks every category's
//     listing pages, clicking through pagination and collecting recipe URLs
//     until the configured item cap is passed at a category boundary.
//   - Extraction & persistence: a fixed worker pool splits the URL list into
//     contiguous slices; each worker opens its own render session, extracts a
//     record per page, and hands it to the persistence gateway, which uploads
//     the recipe image, writes staging and cloud JSON snapshots, inserts the
//     row when absent, and publishes a record-persisted event.
//   - Plumbing: Viper populates config from a YAML file and RECIPE_* env
//     vars; zap provides structured logging; Prometheus counters are exported
//     on /metrics alongside /healthz and /progress when the status server is
//     enabled.
//
// Operational notes:
//   - Per-page failures (unreachable pages, missing fields, image or event
//     errors) are logged and skipped; only a database failure aborts the run.
//   - Re-running against the same site is idempotent: existing rows are never
//     updated, and blob snapshots are overwritten in place.
//   - Run locally: go run ./cmd/recipecrawler crawl --config config.yaml.
package main
