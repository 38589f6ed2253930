// Package scraper implements the recipe crawl pipeline: category discovery,
// listing pagination, per-page field extraction, and idempotent persistence.
package scraper
