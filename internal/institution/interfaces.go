package institution

import (
	"context"

	"github.com/PuerkitoBio/goquery"
)

// Store persists institution records in an append-only table. Append
// does not enforce uniqueness; callers check Exists first. A single
// crawl owns the store for its duration (single-writer assumption).
type Store interface {
	EnsureInitialized() error
	Exists(id string) (bool, error)
	ReadAll() ([]Record, error)
	Append(rec Record) error
}

// Fetcher retrieves a page and parses it into a navigable document.
// Any network, HTTP-status, or parse failure is reported as an error;
// callers treat a failed fetch as an absent subtree and skip it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// Scraper drives the district → category → institution walk and returns
// the resulting catalog, optionally filtered by district codes.
type Scraper interface {
	Run(ctx context.Context, refresh bool, districtCodes []string) ([]Record, RunSummary, error)
}
