package crawler

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"

	apperr "github.com/jykim1011/community-blog/pkg/errors"
)

func testSiteConfig() SiteConfig {
	return SiteConfig{
		Key:         "testboard",
		DisplayName: "Test Board",
		BaseURL:     "https://board.example.com",
		BoardURL:    "https://board.example.com/list",
		Paging:      Paging{Mode: PagingQuery, Param: "page"},
		Pages:       3,
		Selectors: Selectors{
			Row:         "tr.row",
			SkipClasses: []string{"notice"},
			Title:       "a.subject",
			Link:        "a.subject",
			Author:      ".author",
			Views:       ".views",
			Comments:    ".comments",
			Likes:       ".likes",
			Time:        ".time",
		},
	}
}

// listingPage renders a board page with n ordinary rows. Row IDs are prefixed
// so rows from different pages get distinct URLs.
func listingPage(prefix string, n int) string {
	var b strings.Builder
	b.WriteString("<table>")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, `
			<tr class="row">
				<td><a class="subject" href="/post/%s-%d">Post %s-%d</a></td>
				<td class="author">writer%d</td>
				<td class="views">1,%03d</td>
				<td class="comments">%d</td>
				<td class="likes">%d</td>
				<td class="time">3분 전</td>
			</tr>`, prefix, i, prefix, i, i, i, i, i)
	}
	b.WriteString("</table>")
	return b.String()
}

// scriptedFetch replays a fixed sequence of responses and records every URL
// requested.
type scriptedFetch struct {
	urls      []string
	responses []func() (io.Reader, error)
}

func (f *scriptedFetch) fetch(url string) (io.Reader, error) {
	f.urls = append(f.urls, url)
	if len(f.responses) == 0 {
		return nil, apperr.NewNotFound("testboard", url)
	}
	next := f.responses[0]
	f.responses = f.responses[1:]
	return next()
}

func htmlResponse(html string) func() (io.Reader, error) {
	return func() (io.Reader, error) { return strings.NewReader(html), nil }
}

func errResponse(err error) func() (io.Reader, error) {
	return func() (io.Reader, error) { return nil, err }
}

func newTestCrawler(cfg SiteConfig, fetch *scriptedFetch) *BoardCrawler {
	c := NewBoardCrawler(cfg, Options{RateLimitWait: time.Millisecond})
	c.fetchFunc = fetch.fetch
	c.now = func() time.Time { return time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestBoardCrawler_StopsOnEmptyPage(t *testing.T) {
	fetch := &scriptedFetch{responses: []func() (io.Reader, error){
		htmlResponse(listingPage("p1", 20)),
		htmlResponse(listingPage("p2", 20)),
		htmlResponse(listingPage("p3", 0)),
	}}
	cfg := testSiteConfig()
	cfg.Pages = 5
	c := newTestCrawler(cfg, fetch)

	posts := c.Crawl(context.Background())

	assert.Len(t, posts, 40)
	// The third page came back empty, so pages four and five are never
	// requested.
	assert.Equal(t, []string{
		"https://board.example.com/list?page=1",
		"https://board.example.com/list?page=2",
		"https://board.example.com/list?page=3",
	}, fetch.urls)
}

func TestBoardCrawler_RetriesSamePageAfterRateLimit(t *testing.T) {
	fetch := &scriptedFetch{responses: []func() (io.Reader, error){
		errResponse(apperr.NewRateLimit("testboard", "")),
		htmlResponse(listingPage("p1", 20)),
	}}
	cfg := testSiteConfig()
	cfg.Pages = 1
	c := newTestCrawler(cfg, fetch)

	posts := c.Crawl(context.Background())

	assert.Len(t, posts, 20)
	assert.Equal(t, []string{
		"https://board.example.com/list?page=1",
		"https://board.example.com/list?page=1",
	}, fetch.urls)
}

func TestBoardCrawler_RepeatedRateLimitKeepsRetrying(t *testing.T) {
	fetch := &scriptedFetch{responses: []func() (io.Reader, error){
		errResponse(apperr.NewRateLimit("testboard", "")),
		errResponse(apperr.NewRateLimit("testboard", "")),
		htmlResponse(listingPage("p1", 20)),
	}}
	cfg := testSiteConfig()
	cfg.Pages = 1
	c := newTestCrawler(cfg, fetch)

	posts := c.Crawl(context.Background())

	assert.Len(t, posts, 20, "backoff never gives up on its own")
	assert.Equal(t, []string{
		"https://board.example.com/list?page=1",
		"https://board.example.com/list?page=1",
		"https://board.example.com/list?page=1",
	}, fetch.urls, "every retry targets the same page")
}

func TestBoardCrawler_NotFoundStopsCleanly(t *testing.T) {
	fetch := &scriptedFetch{responses: []func() (io.Reader, error){
		htmlResponse(listingPage("p1", 15)),
		errResponse(apperr.NewNotFound("testboard", "https://board.example.com/list?page=2")),
	}}
	c := newTestCrawler(testSiteConfig(), fetch)

	posts := c.Crawl(context.Background())

	assert.Len(t, posts, 15)
	assert.Len(t, fetch.urls, 2)
}

func TestBoardCrawler_AbortKeepsPartialResults(t *testing.T) {
	fetch := &scriptedFetch{responses: []func() (io.Reader, error){
		htmlResponse(listingPage("p1", 10)),
		errResponse(apperr.NewNetwork("testboard", "connection reset", nil)),
	}}
	c := newTestCrawler(testSiteConfig(), fetch)

	posts := c.Crawl(context.Background())

	assert.Len(t, posts, 10)
}

func TestBoardCrawler_SkipsWhileInCooldown(t *testing.T) {
	mockCache := NewMockCacheService()
	mockCache.Set("testboard_rate_limited", []byte("300"), time.Minute)

	fetch := &scriptedFetch{responses: []func() (io.Reader, error){
		htmlResponse(listingPage("p1", 20)),
	}}
	cfg := testSiteConfig()
	c := NewBoardCrawler(cfg, Options{
		RateLimitWait: time.Millisecond,
		Cache:         mockCache,
		Cooldown:      5 * time.Minute,
	})
	c.fetchFunc = fetch.fetch

	posts := c.Crawl(context.Background())

	assert.Empty(t, posts)
	assert.Empty(t, fetch.urls, "a cooled-down site must not touch the network")
}

func TestBoardCrawler_RateLimitRecordsCooldown(t *testing.T) {
	mockCache := NewMockCacheService()
	fetch := &scriptedFetch{responses: []func() (io.Reader, error){
		errResponse(apperr.NewRateLimit("testboard", "")),
		htmlResponse(listingPage("p1", 5)),
	}}
	cfg := testSiteConfig()
	cfg.Pages = 1
	c := NewBoardCrawler(cfg, Options{
		RateLimitWait: time.Millisecond,
		Cache:         mockCache,
		Cooldown:      5 * time.Minute,
	})
	c.fetchFunc = fetch.fetch

	c.Crawl(context.Background())

	_, err := mockCache.Get("testboard_rate_limited")
	assert.NoError(t, err, "a 429 must leave a cooldown record")
}

func TestBoardCrawler_ParsesRowFields(t *testing.T) {
	html := `<table>
		<tr class="row notice">
			<td><a class="subject" href="/notice/1">Pinned notice</a></td>
		</tr>
		<tr class="row">
			<td><a class="subject" href="/post/42">  Hot   post  </a></td>
			<td class="author">홍길동</td>
			<td class="views">12,345</td>
			<td class="comments">[37]</td>
			<td class="likes">8</td>
			<td class="time">14:05</td>
		</tr>
		<tr class="row">
			<td><a class="subject" href="/post/43">No author post</a></td>
			<td class="views">200</td>
			<td class="time"></td>
		</tr>
		<tr class="row">
			<td><span class="subject">Row without a link</span></td>
		</tr>
	</table>`
	fetch := &scriptedFetch{responses: []func() (io.Reader, error){htmlResponse(html)}}
	cfg := testSiteConfig()
	cfg.Pages = 1
	c := newTestCrawler(cfg, fetch)

	posts := c.Crawl(context.Background())

	assert.Len(t, posts, 2, "notice and link-less rows are skipped")

	first := posts[0]
	assert.Equal(t, "Hot post", first.Title)
	assert.Equal(t, "https://board.example.com/post/42", first.URL)
	assert.Equal(t, "홍길동", first.Author)
	assert.Equal(t, 12345, first.ViewCount)
	assert.Equal(t, 37, first.CommentCount)
	assert.Equal(t, 8, first.LikeCount)
	assert.Equal(t, "testboard", first.SiteKey)
	assert.Equal(t, time.Date(2026, 1, 10, 14, 5, 0, 0, time.UTC), first.CreatedAt)
	assert.Equal(t, time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC), first.FetchedAt)

	second := posts[1]
	assert.Equal(t, AnonymousAuthor, second.Author)
	assert.Equal(t, second.FetchedAt, second.CreatedAt, "empty time text defaults to fetch time")
}

func TestBoardCrawler_ThumbnailPrefersDataSrc(t *testing.T) {
	html := `<table>
		<tr class="row">
			<td><a class="subject" href="/post/1">Lazy image</a>
				<img class="thumb" src="/img/placeholder.gif" data-src="/img/real.jpg"></td>
		</tr>
		<tr class="row">
			<td><a class="subject" href="/post/2">Eager image</a>
				<img class="thumb" src="//cdn.example.com/img/eager.jpg"></td>
		</tr>
	</table>`
	fetch := &scriptedFetch{responses: []func() (io.Reader, error){htmlResponse(html)}}
	cfg := testSiteConfig()
	cfg.Pages = 1
	cfg.Selectors.Thumbnail = "img.thumb"
	c := newTestCrawler(cfg, fetch)

	posts := c.Crawl(context.Background())

	assert.Len(t, posts, 2)
	assert.Equal(t, "https://board.example.com/img/real.jpg", posts[0].Thumbnail)
	assert.Equal(t, "https://cdn.example.com/img/eager.jpg", posts[1].Thumbnail)
}

func TestBoardCrawler_CustomHandlersAndRemovals(t *testing.T) {
	html := `<table>
		<tr class="row">
			<td><a class="subject"><span class="cat">[유머]</span> Actual title</a></td>
			<td class="author">writer</td>
		</tr>
	</table>`
	fetch := &scriptedFetch{responses: []func() (io.Reader, error){htmlResponse(html)}}
	cfg := testSiteConfig()
	cfg.Pages = 1
	cfg.RemoveElements = []ElementRemoval{{Selector: "span.cat", ApplyToPath: "title"}}
	cfg.Handlers = map[string]FieldFunc{
		"link": func(s *goquery.Selection) string { return "/post/via-handler" },
	}
	c := newTestCrawler(cfg, fetch)

	posts := c.Crawl(context.Background())

	assert.Len(t, posts, 1)
	assert.Equal(t, "Actual title", posts[0].Title)
	assert.Equal(t, "https://board.example.com/post/via-handler", posts[0].URL)
}

func TestBoardCrawler_PageURLModes(t *testing.T) {
	testCases := []struct {
		name     string
		paging   Paging
		boardURL string
		page     int
		expected string
	}{
		{
			name:     "single page boards always use the board url",
			paging:   Paging{Mode: PagingSingle},
			boardURL: "https://a.example.com/hot",
			page:     3,
			expected: "https://a.example.com/hot",
		},
		{
			name:     "query paging appends the page parameter",
			paging:   Paging{Mode: PagingQuery, Param: "page"},
			boardURL: "https://a.example.com/board",
			page:     2,
			expected: "https://a.example.com/board?page=2",
		},
		{
			name:     "query paging joins with ampersand when a query exists",
			paging:   Paging{Mode: PagingQuery, Param: "page"},
			boardURL: "https://a.example.com/board?id=hot",
			page:     2,
			expected: "https://a.example.com/board?id=hot&page=2",
		},
		{
			name:     "bare first page omits the parameter",
			paging:   Paging{Mode: PagingQuery, Param: "page", BareFirst: true},
			boardURL: "https://a.example.com/board",
			page:     1,
			expected: "https://a.example.com/board",
		},
		{
			name:     "offset paging multiplies by the page size",
			paging:   Paging{Mode: PagingOffset, Param: "po", PageSize: 20},
			boardURL: "https://a.example.com/board?od=T31",
			page:     3,
			expected: "https://a.example.com/board?od=T31&po=40",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testSiteConfig()
			cfg.BoardURL = tc.boardURL
			cfg.Paging = tc.paging
			c := NewBoardCrawler(cfg, Options{})
			assert.Equal(t, tc.expected, c.pageURL(tc.page))
		})
	}
}
