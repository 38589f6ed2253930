package scraper

import (
	"context"
	"io"

	"github.com/PuerkitoBio/goquery"
)

// Session is a single browser session owned exclusively by one goroutine.
// Navigate and Document block until the page has rendered (or the session's
// navigation timeout expires) and return a snapshot of the live DOM.
type Session interface {
	// Navigate loads url and returns the rendered document.
	Navigate(ctx context.Context, url string) (*goquery.Document, error)
	// Click dispatches a programmatic click on the first element matching
	// selector, bypassing native interactability checks.
	Click(ctx context.Context, selector string) error
	// Document waits for the current page to settle and snapshots it again.
	Document(ctx context.Context) (*goquery.Document, error)
	Close(ctx context.Context) error
}

// BlobStore writes an artifact under a key and returns its stored location.
// Re-uploading the same key overwrites the previous object.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// RecordStore persists recipe rows keyed by recipe URL.
type RecordStore interface {
	// EnsureTable creates the records table when it does not exist yet.
	EnsureTable(ctx context.Context) error
	// InsertIfAbsent writes the record unless a row with the same recipe
	// URL already exists. It reports whether a row was inserted. Existing
	// rows are never updated.
	InsertIfAbsent(ctx context.Context, rec RecipeRecord) (bool, error)
}

// ImageFetcher downloads raw image bytes.
type ImageFetcher interface {
	Bytes(ctx context.Context, url string) ([]byte, error)
}

// Publisher pushes per-record completion events to a message bus.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}
