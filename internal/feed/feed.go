// Package feed owns merge and eviction decisions for the aggregated post
// feed. It is pure: deterministic given identical inputs and reference time,
// no I/O.
package feed

import (
	"sort"
	"time"

	"github.com/jykim1011/community-blog/internal/crawler"
)

// Default retention bounds.
const (
	DefaultMaxPosts = 1000
	DefaultMaxAge   = 72 * time.Hour

	DefaultMinViewCount    = 100
	DefaultMinCommentCount = 5
	DefaultMinLikeCount    = 10

	// safetyValveSize is the fallback feed size when the popularity filter
	// would otherwise empty a non-empty input.
	safetyValveSize = 100
)

// Thresholds is the OR-combined popularity floor used in snapshot mode.
type Thresholds struct {
	MinViewCount    int
	MinCommentCount int
	MinLikeCount    int
}

// DefaultThresholds returns the stock popularity floor.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinViewCount:    DefaultMinViewCount,
		MinCommentCount: DefaultMinCommentCount,
		MinLikeCount:    DefaultMinLikeCount,
	}
}

// Options bounds one merge pass.
type Options struct {
	Now      time.Time
	MaxPosts int
	MaxAge   time.Duration
	// Popularity enables the engagement floor (snapshot mode). Nil disables
	// it (live mode).
	Popularity *Thresholds
}

// Merge combines freshly crawled posts with a prior snapshot: URL-keyed
// dedup with incoming posts winning ties, age eviction on FetchedAt, the
// optional popularity floor, newest-first ordering, and the size cap.
func Merge(incoming, existing []crawler.Post, opts Options) []crawler.Post {
	if opts.MaxPosts <= 0 {
		opts.MaxPosts = DefaultMaxPosts
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	merged := dedupByURL(incoming, existing)
	merged = filterByAge(merged, opts.Now, opts.MaxAge)
	if opts.Popularity != nil {
		merged = filterByPopularity(merged, *opts.Popularity)
	}

	// Newest first; stable so equal fetch times keep merge order.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].FetchedAt.After(merged[j].FetchedAt)
	})

	if len(merged) > opts.MaxPosts {
		merged = merged[:opts.MaxPosts]
	}
	return merged
}

// dedupByURL keeps the first occurrence of each URL over incoming then
// existing, so a re-crawled post keeps its fresh field values.
func dedupByURL(incoming, existing []crawler.Post) []crawler.Post {
	seen := make(map[string]struct{}, len(incoming)+len(existing))
	merged := make([]crawler.Post, 0, len(incoming)+len(existing))
	for _, posts := range [][]crawler.Post{incoming, existing} {
		for _, post := range posts {
			if _, dup := seen[post.URL]; dup {
				continue
			}
			seen[post.URL] = struct{}{}
			merged = append(merged, post)
		}
	}
	return merged
}

func filterByAge(posts []crawler.Post, now time.Time, maxAge time.Duration) []crawler.Post {
	cutoff := now.Add(-maxAge)
	kept := posts[:0]
	for _, post := range posts {
		if post.FetchedAt.After(cutoff) {
			kept = append(kept, post)
		}
	}
	return kept
}

// filterByPopularity keeps posts clearing any one engagement threshold. If
// that would empty a non-empty feed the filter is replaced by the top posts
// by view count, so one quiet crawl window cannot produce an empty feed.
func filterByPopularity(posts []crawler.Post, t Thresholds) []crawler.Post {
	kept := make([]crawler.Post, 0, len(posts))
	for _, post := range posts {
		if post.ViewCount >= t.MinViewCount ||
			post.CommentCount >= t.MinCommentCount ||
			post.LikeCount >= t.MinLikeCount {
			kept = append(kept, post)
		}
	}
	if len(kept) > 0 || len(posts) == 0 {
		return kept
	}

	fallback := make([]crawler.Post, len(posts))
	copy(fallback, posts)
	sort.SliceStable(fallback, func(i, j int) bool {
		return fallback[i].ViewCount > fallback[j].ViewCount
	})
	if len(fallback) > safetyValveSize {
		fallback = fallback[:safetyValveSize]
	}
	return fallback
}
