package crawler

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/jykim1011/community-blog/helpers"
	apperr "github.com/jykim1011/community-blog/pkg/errors"
)

// Matches the JS redirect an interstitial hit-counter page emits instead of a
// Location header.
var jsRedirectRe = regexp.MustCompile(`location\.href\s*=\s*['"]([^'"]+)['"]`)

const defaultResolveConcurrency = 20

// resolvePosts replaces each post's interstitial URL with the real article
// URL, fetching the destination page to recover the real title where
// possible. Resolutions run with bounded concurrency and one failure drops
// only that post.
func (c *BoardCrawler) resolvePosts(ctx context.Context, posts []Post) []Post {
	rc := c.cfg.Resolve

	limit := rc.Limit
	if limit <= 0 || limit > len(posts) {
		limit = len(posts)
	}
	concurrency := rc.Concurrency
	if concurrency <= 0 {
		concurrency = defaultResolveConcurrency
	}

	results := make([]*Post, limit)
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i := 0; i < limit; i++ {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(i int, post Post) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			resolved, err := c.resolveOne(post)
			if err != nil {
				c.log.Debug().Err(err).Str("url", post.URL).Msg("Dropping post, resolution failed")
				return
			}
			results[i] = resolved
		}(i, posts[i])
	}
	wg.Wait()

	resolved := make([]Post, 0, limit)
	for _, p := range results {
		if p != nil {
			resolved = append(resolved, *p)
		}
	}
	return resolved
}

// resolveOne follows one interstitial page to its destination.
func (c *BoardCrawler) resolveOne(post Post) (*Post, error) {
	body, err := c.fetchFunc(post.URL)
	if err != nil {
		return nil, apperr.NewResolve(c.cfg.Key, "failed to fetch interstitial page", err)
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, apperr.NewResolve(c.cfg.Key, "failed to parse interstitial page", err)
	}

	html, err := doc.Html()
	if err != nil {
		return nil, apperr.NewResolve(c.cfg.Key, "failed to render interstitial page", err)
	}
	m := jsRedirectRe.FindStringSubmatch(html)
	if m == nil {
		return nil, apperr.NewResolve(c.cfg.Key, "no redirect target on interstitial page", nil)
	}

	realURL := helpers.AbsoluteURL(post.URL, m[1])
	if realURL == "" {
		return nil, apperr.NewResolve(c.cfg.Key, "unusable redirect target", nil)
	}
	post.URL = realURL

	// The destination title is preferred over the listing one, but failing to
	// fetch it keeps the post.
	if title := c.fetchArticleTitle(realURL); title != "" {
		post.Title = title
	}
	return &post, nil
}

// fetchArticleTitle extracts the title from the destination article page,
// trying the configured selectors and falling back to the document title.
func (c *BoardCrawler) fetchArticleTitle(articleURL string) string {
	body, err := c.fetchFunc(articleURL)
	if err != nil {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return ""
	}

	for _, sel := range c.cfg.Resolve.TitleSelectors {
		if title := helpers.CollapseSpaces(doc.Find(sel).First().Text()); title != "" {
			return title
		}
	}

	title := doc.Find("title").First().Text()
	if idx := strings.Index(title, "-"); idx > 0 {
		title = title[:idx]
	}
	return helpers.CollapseSpaces(title)
}
