// Package store is the persistence boundary for canonical posts: an
// incremental sqlite store for the live service and a flat versioned
// snapshot for the static export. Both expose URL-keyed
// insert-if-absent semantics; merge and eviction policy lives in the feed
// package, not here.
package store

import (
	"context"
	"time"

	"github.com/jykim1011/community-blog/internal/crawler"
)

// SaveResult reports the outcome of one upsert batch.
type SaveResult struct {
	Saved   int
	Skipped int
}

// ListQuery selects a page of posts.
type ListQuery struct {
	Page    int
	Limit   int
	SiteKey string
	Search  string
}

// Pagination describes the page a ListPosts call returned.
type Pagination struct {
	Page    int
	Limit   int
	Total   int
	HasMore bool
}

// Site is a crawled platform's directory entry.
type Site struct {
	Key           string     `json:"name"`
	DisplayName   string     `json:"displayName"`
	BaseURL       string     `json:"url"`
	LastCrawledAt *time.Time `json:"lastCrawledAt"`
}

// Store is the live-service persistence contract.
type Store interface {
	// UpsertPosts inserts posts absent by URL and skips the rest, lazily
	// creating unknown Site records.
	UpsertPosts(ctx context.Context, posts []crawler.Post) (SaveResult, error)

	// ListPosts returns one page of posts, newest first.
	ListPosts(ctx context.Context, q ListQuery) ([]crawler.Post, Pagination, error)

	// ListSites returns the site directory.
	ListSites(ctx context.Context) ([]Site, error)

	// TouchSite records a successful crawl of a site, creating the record if
	// needed.
	TouchSite(ctx context.Context, key, displayName, baseURL string, at time.Time) error

	// DeleteOlderThan evicts posts fetched before the cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// Close releases the underlying resources.
	Close() error
}
