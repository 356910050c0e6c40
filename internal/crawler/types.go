package crawler

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Post is the canonical record produced by every adapter, independent of the
// source board's markup. URL is the natural key; FetchedAt is authoritative
// for retention.
type Post struct {
	Title        string    `json:"title"`
	Author       string    `json:"author"`
	URL          string    `json:"url"`
	SiteKey      string    `json:"site"`
	Thumbnail    string    `json:"thumbnail,omitempty"`
	ViewCount    int       `json:"viewCount"`
	CommentCount int       `json:"commentCount"`
	LikeCount    int       `json:"likeCount"`
	Category     string    `json:"category,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	FetchedAt    time.Time `json:"fetchedAt"`
}

// AnonymousAuthor is the placeholder used when a board does not expose authors.
const AnonymousAuthor = "익명"

// Crawler is the contract every site adapter implements. Crawl is total: all
// internal failures are logged and the subset of posts parsed so far is
// returned, possibly empty.
type Crawler interface {
	SiteKey() string
	DisplayName() string
	BaseURL() string
	Crawl(ctx context.Context) []Post
}

// FieldFunc customizes extraction of a single field from a listing row.
type FieldFunc func(s *goquery.Selection) string

// SkipFunc reports whether a listing row should be ignored (pinned, notice,
// ad rows).
type SkipFunc func(s *goquery.Selection) bool

// ElementRemoval defines elements to remove from a selection before
// extracting text
type ElementRemoval struct {
	Selector    string // Selector to find elements to remove
	ApplyToPath string // The field to apply this to (e.g., "title", "time")
}

// PagingMode selects how a board numbers its listing pages.
type PagingMode int

const (
	// PagingSingle boards expose one hot-post listing page.
	PagingSingle PagingMode = iota
	// PagingQuery boards take an integer page number in a query parameter.
	PagingQuery
	// PagingOffset boards take a row offset, page*(page size).
	PagingOffset
)

// Paging describes a board's pagination scheme.
type Paging struct {
	Mode      PagingMode
	Param     string // query parameter name
	PageSize  int    // offset mode: offset = (page-1)*PageSize
	BareFirst bool   // page 1 uses the bare board URL
}

// Selectors contains CSS selectors for the fields of one listing row.
type Selectors struct {
	Row         string
	SkipClasses []string
	Skip        SkipFunc
	Title       string
	TitleAttr   bool // prefer the title attribute over the text
	Link        string
	Author      string
	Views       string
	Comments    string
	Likes       string
	Thumbnail   string
	Category    string
	Time        string
	TimeAttr    string // prefer this attribute on the time cell
}

// ResolveConfig describes a board whose listing rows point at an interstitial
// redirect page that must itself be fetched to obtain the real article URL
// and, preferably, title.
type ResolveConfig struct {
	// Limit caps how many rows are resolved per crawl.
	Limit int
	// Concurrency caps simultaneous resolution fetches.
	Concurrency int
	// TitleSelectors are tried in order on the destination page.
	TitleSelectors []string
}

// SiteConfig is the declarative description of one board consumed by the
// generic BoardCrawler.
type SiteConfig struct {
	Key            string
	DisplayName    string
	BaseURL        string
	BoardURL       string
	Paging         Paging
	Pages          int           // page ceiling; 0 means single page
	Delay          time.Duration // inter-page delay
	Headers        map[string]string
	Selectors      Selectors
	Handlers       map[string]FieldFunc // per-field custom extractors
	RemoveElements []ElementRemoval
	DateFormats    []string // site-specific absolute layouts, tried first
	Resolve        *ResolveConfig
}
