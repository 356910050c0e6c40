package crawler

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jykim1011/community-blog/helpers"
	"github.com/jykim1011/community-blog/logger"
	apperr "github.com/jykim1011/community-blog/pkg/errors"
	"github.com/jykim1011/community-blog/services/cache"
)

// Options tunes walker behavior shared by every adapter.
type Options struct {
	// PageLimit caps pagination for multi-page boards; 0 keeps each site's
	// configured ceiling.
	PageLimit int
	// RateLimitWait is slept before retrying a 429'd page.
	RateLimitWait time.Duration
	// Cache records a per-site cooldown after a 429 so concurrent crawl paths
	// back off together. Optional.
	Cache cache.CacheService
	// Cooldown is how long the per-site block is held in the cache.
	Cooldown time.Duration
}

const defaultRateLimitWait = 10 * time.Second

// BoardCrawler drives one board through the paginating fetch-parse loop
// described by its SiteConfig. Adapters hold no state across calls and are
// safe for concurrent invocation.
type BoardCrawler struct {
	cfg           SiteConfig
	rateLimitWait time.Duration
	cacheSvc      cache.CacheService
	cooldown      time.Duration
	log           *logger.Logger

	// fetchFunc is replaced in tests to feed inline HTML.
	fetchFunc func(url string) (io.Reader, error)
	// now is replaced in tests for deterministic timestamps.
	now func() time.Time
}

// NewBoardCrawler creates an adapter for one declarative site configuration.
func NewBoardCrawler(cfg SiteConfig, opts Options) *BoardCrawler {
	if opts.PageLimit > 0 && cfg.Pages > 1 {
		cfg.Pages = opts.PageLimit
	}
	wait := opts.RateLimitWait
	if wait <= 0 {
		wait = defaultRateLimitWait
	}
	c := &BoardCrawler{
		cfg:           cfg,
		rateLimitWait: wait,
		cacheSvc:      opts.Cache,
		cooldown:      opts.Cooldown,
		log:           logger.ForSite(cfg.Key),
		now:           time.Now,
	}
	c.fetchFunc = func(url string) (io.Reader, error) {
		return helpers.FetchPage(cfg.Key, url, cfg.Headers)
	}
	return c
}

// SiteKey returns the unique key the adapter is registered under.
func (c *BoardCrawler) SiteKey() string { return c.cfg.Key }

// DisplayName returns the human-readable site name.
func (c *BoardCrawler) DisplayName() string { return c.cfg.DisplayName }

// BaseURL returns the site root.
func (c *BoardCrawler) BaseURL() string { return c.cfg.BaseURL }

// Crawl walks the board's listing pages and returns the parsed posts. It
// never fails from the caller's perspective: transport errors, rate limits,
// missing pages, and malformed rows all degrade to returning whatever subset
// parsed cleanly.
func (c *BoardCrawler) Crawl(ctx context.Context) []Post {
	if c.blocked() {
		c.log.Warn().Msg("Site is in rate-limit cooldown, skipping crawl")
		return nil
	}

	pages := c.cfg.Pages
	if pages <= 0 {
		pages = 1
	}

	var all []Post
	for page := 1; page <= pages; {
		pageURL := c.pageURL(page)
		posts, err := c.crawlPage(pageURL)
		if err != nil {
			switch {
			case apperr.IsRateLimit(err):
				c.block()
				c.log.Warn().Int("page", page).Dur("wait", c.rateLimitWait).Msg("Rate limited, retrying same page")
				if !sleepCtx(ctx, c.rateLimitWait) {
					return c.finish(ctx, all)
				}
				continue // same page number, no retry counter
			case apperr.IsNotFound(err):
				c.log.Debug().Int("page", page).Msg("Page not found, no more content")
				return c.finish(ctx, all)
			default:
				c.log.Error().Err(err).Int("page", page).Msg("Crawl aborted, keeping pages fetched so far")
				return c.finish(ctx, all)
			}
		}

		if len(posts) == 0 {
			c.log.Debug().Int("page", page).Msg("Empty page, stopping")
			return c.finish(ctx, all)
		}

		all = append(all, posts...)
		page++
		if page <= pages && !sleepCtx(ctx, c.cfg.Delay) {
			break
		}
	}

	return c.finish(ctx, all)
}

// finish runs the optional indirection-resolution stage.
func (c *BoardCrawler) finish(ctx context.Context, posts []Post) []Post {
	if c.cfg.Resolve == nil || len(posts) == 0 {
		return posts
	}
	resolved := c.resolvePosts(ctx, posts)
	c.log.Info().Int("resolved", len(resolved)).Int("listed", len(posts)).Msg("Resolved interstitial links")
	return resolved
}

// pageURL renders the board URL for a 1-based page number.
func (c *BoardCrawler) pageURL(page int) string {
	p := c.cfg.Paging
	if p.Mode == PagingSingle || (page == 1 && p.BareFirst) {
		return c.cfg.BoardURL
	}

	sep := "?"
	if strings.Contains(c.cfg.BoardURL, "?") {
		sep = "&"
	}

	value := page
	if p.Mode == PagingOffset {
		value = (page - 1) * p.PageSize
	}
	return fmt.Sprintf("%s%s%s=%d", c.cfg.BoardURL, sep, p.Param, value)
}

// crawlPage fetches and parses a single listing page.
func (c *BoardCrawler) crawlPage(pageURL string) ([]Post, error) {
	body, err := c.fetchFunc(pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, apperr.NewParse(c.cfg.Key, "failed to parse listing HTML", err)
	}

	now := c.now()
	var posts []Post
	doc.Find(c.cfg.Selectors.Row).Each(func(i int, s *goquery.Selection) {
		post := c.parseRow(s, pageURL, now)
		if post != nil {
			posts = append(posts, *post)
		}
	})
	return posts, nil
}

// parseRow turns one listing row into a Post, or nil when the row is a
// notice/ad or lacks the required fields. Malformed rows never abort the
// page.
func (c *BoardCrawler) parseRow(s *goquery.Selection, pageURL string, now time.Time) *Post {
	sel := c.cfg.Selectors

	for _, class := range sel.SkipClasses {
		if s.HasClass(class) {
			return nil
		}
	}
	if sel.Skip != nil && sel.Skip(s) {
		return nil
	}

	title := c.extractTitle(s)
	if title == "" {
		return nil
	}

	link := c.extractField(s, "link", "")
	if link == "" {
		href := ""
		if sel.Link == "" {
			href, _ = s.Attr("href")
		} else if linkSel := s.Find(sel.Link).First(); linkSel.Length() > 0 {
			href, _ = linkSel.Attr("href")
		}
		link = href
	}
	link = helpers.AbsoluteURL(pageURL, link)
	if link == "" {
		return nil
	}

	author := c.extractField(s, "author", sel.Author)
	if author == "" {
		author = AnonymousAuthor
	}

	timeText := c.extractTime(s)

	return &Post{
		Title:        title,
		Author:       author,
		URL:          link,
		SiteKey:      c.cfg.Key,
		Thumbnail:    c.extractThumbnail(s, pageURL),
		ViewCount:    helpers.ParseCount(c.extractField(s, "views", sel.Views)),
		CommentCount: helpers.ParseCount(c.extractField(s, "comments", sel.Comments)),
		LikeCount:    helpers.ParseCount(c.extractField(s, "likes", sel.Likes)),
		Category:     c.extractField(s, "category", sel.Category),
		CreatedAt:    ParsePostTime(timeText, c.cfg.DateFormats, now),
		FetchedAt:    now,
	}
}

// extractField applies the custom handler for a field when one is configured,
// otherwise reads the selector's cleaned text.
func (c *BoardCrawler) extractField(s *goquery.Selection, path, selector string) string {
	if handler, ok := c.cfg.Handlers[path]; ok && handler != nil {
		return strings.TrimSpace(handler(s))
	}
	if selector == "" {
		return ""
	}
	fieldSel := s.Find(selector).First()
	if fieldSel.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(c.cleanSelection(fieldSel, path).Text())
}

func (c *BoardCrawler) extractTitle(s *goquery.Selection) string {
	if handler, ok := c.cfg.Handlers["title"]; ok && handler != nil {
		return helpers.CollapseSpaces(handler(s))
	}

	titleSel := s.Find(c.cfg.Selectors.Title).First()
	if titleSel.Length() == 0 {
		return ""
	}
	clean := c.cleanSelection(titleSel, "title")
	if c.cfg.Selectors.TitleAttr {
		if attr, exists := clean.Attr("title"); exists && attr != "" {
			return helpers.CollapseSpaces(attr)
		}
	}
	return helpers.CollapseSpaces(clean.Text())
}

func (c *BoardCrawler) extractTime(s *goquery.Selection) string {
	sel := c.cfg.Selectors
	if handler, ok := c.cfg.Handlers["time"]; ok && handler != nil {
		return strings.TrimSpace(handler(s))
	}
	if sel.Time == "" {
		return ""
	}
	timeSel := s.Find(sel.Time).First()
	if timeSel.Length() == 0 {
		return ""
	}
	if sel.TimeAttr != "" {
		if attr, exists := timeSel.Attr(sel.TimeAttr); exists && strings.TrimSpace(attr) != "" {
			return strings.TrimSpace(attr)
		}
	}
	return strings.TrimSpace(c.cleanSelection(timeSel, "time").Text())
}

// extractThumbnail prefers data-src over src to catch lazy-loaded images.
func (c *BoardCrawler) extractThumbnail(s *goquery.Selection, pageURL string) string {
	if c.cfg.Selectors.Thumbnail == "" {
		return ""
	}
	thumbSel := s.Find(c.cfg.Selectors.Thumbnail).First()
	if thumbSel.Length() == 0 {
		return ""
	}
	src, exists := thumbSel.Attr("data-src")
	if !exists || strings.TrimSpace(src) == "" {
		src, _ = thumbSel.Attr("src")
	}
	if strings.TrimSpace(src) == "" {
		return ""
	}
	return helpers.AbsoluteURL(pageURL, src)
}

// cleanSelection removes configured elements from a selection before getting
// text, on a clone so the original document is untouched.
func (c *BoardCrawler) cleanSelection(sel *goquery.Selection, path string) *goquery.Selection {
	removals := c.cfg.RemoveElements
	if len(removals) == 0 {
		return sel
	}
	clone := sel.Clone()
	for _, removal := range removals {
		if removal.ApplyToPath == path {
			clone.Find(removal.Selector).Remove()
		}
	}
	return clone
}

// blocked reports whether a prior 429 put this site into cooldown.
func (c *BoardCrawler) blocked() bool {
	if c.cacheSvc == nil {
		return false
	}
	_, err := c.cacheSvc.Get(c.blockKey())
	return err == nil
}

// block records the rate-limit cooldown so the rotation loop and an on-demand
// crawl-all back off from the same site together.
func (c *BoardCrawler) block() {
	if c.cacheSvc == nil || c.cooldown <= 0 {
		return
	}
	value := []byte(strconv.Itoa(int(c.cooldown / time.Second)))
	if err := c.cacheSvc.Set(c.blockKey(), value, c.cooldown); err != nil {
		c.log.Warn().Err(err).Msg("Failed to record rate-limit cooldown")
	}
}

func (c *BoardCrawler) blockKey() string {
	return c.cfg.Key + "_rate_limited"
}

// sleepCtx sleeps for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
