package scraper

import (
	"context"
	"time"
)

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// DetailFetcher extracts enrichment fields from a publication detail page.
// A nil result with a non-nil error means the whole detail page is lost;
// the listing extractor degrades to the listing-only record.
type DetailFetcher interface {
	Extract(ctx context.Context, detailURL string) (*DetailFields, error)
}

// SnapshotStore persists the yearly snapshot and reports the existing item
// count to support the skip-if-present policy.
type SnapshotStore interface {
	ExistingCount(year int) (int, error)
	Write(year int, snapshot Snapshot) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}

// Page is the result of a successful fetch.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Body       []byte
}
