package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jykim1011/community-blog/internal/crawler"
	"github.com/jykim1011/community-blog/internal/feed"
	"github.com/jykim1011/community-blog/services/publisher"
	"github.com/jykim1011/community-blog/services/scheduler"
	"github.com/jykim1011/community-blog/services/store"
)

// This HTML mimics a community board hot-post listing page
const testListingHTML = `
<!DOCTYPE html>
<html>
<head>
    <title>Test Board</title>
</head>
<body>
    <table>
        <tr class="row notice">
            <td><a class="subject" href="/notice/1">공지사항</a></td>
        </tr>
        <tr class="row">
            <td><a class="subject" href="/post/1">첫 번째 인기글</a></td>
            <td class="author">글쓴이1</td>
            <td class="views">1,234</td>
            <td class="comments">12</td>
            <td class="likes">34</td>
            <td class="time">3분 전</td>
        </tr>
        <tr class="row">
            <td><a class="subject" href="/post/2">두 번째 인기글</a></td>
            <td class="author">글쓴이2</td>
            <td class="views">567</td>
            <td class="comments">8</td>
            <td class="likes">9</td>
            <td class="time">2시간 전</td>
        </tr>
    </table>
</body>
</html>
`

func testBoardServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(testListingHTML))
	}))
	t.Cleanup(server.Close)
	return server
}

func testBoardCrawler(server *httptest.Server) crawler.Crawler {
	return crawler.NewBoardCrawler(crawler.SiteConfig{
		Key:         "testboard",
		DisplayName: "테스트보드",
		BaseURL:     server.URL,
		BoardURL:    server.URL + "/board",
		Selectors: crawler.Selectors{
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
	}, crawler.Options{RateLimitWait: time.Millisecond})
}

// TestCrawlToStore exercises the whole live pipeline: a real HTTP fetch
// against a local server, HTML parsing, and persistence into sqlite through
// one scheduler tick.
func TestCrawlToStore(t *testing.T) {
	server := testBoardServer(t)
	c := testBoardCrawler(server)

	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "feed.db"))
	require.NoError(t, err)
	defer st.Close()

	sched := scheduler.New(crawler.NewRegistry(c), st, publisher.Noop{}, scheduler.Options{
		Interval:   time.Minute,
		MaxPostAge: 72 * time.Hour,
	})

	ctx := context.Background()
	assert.True(t, sched.Tick(ctx))

	posts, pg, err := st.ListPosts(ctx, store.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, pg.Total, "the notice row is skipped")
	assert.Equal(t, "첫 번째 인기글", posts[0].Title)
	assert.Equal(t, 1234, posts[0].ViewCount)

	sites, err := st.ListSites(ctx)
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.NotNil(t, sites[0].LastCrawledAt)

	// A second tick over the same listing saves nothing new.
	assert.True(t, sched.Tick(ctx))
	_, pg, err = st.ListPosts(ctx, store.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, pg.Total)
}

// TestCrawlToSnapshot exercises the static-export path: crawl, merge through
// the feed engine, write and re-read the flat snapshot files.
func TestCrawlToSnapshot(t *testing.T) {
	server := testBoardServer(t)
	c := testBoardCrawler(server)

	posts := c.Crawl(context.Background())
	require.Len(t, posts, 2)

	thresholds := feed.DefaultThresholds()
	snapshot := store.NewSnapshot(t.TempDir(), feed.Options{Popularity: &thresholds})

	site := store.SiteInfo{Key: c.SiteKey(), DisplayName: c.DisplayName(), BaseURL: c.BaseURL()}
	require.NoError(t, snapshot.Write(posts, []store.SiteInfo{site}, []store.SiteInfo{site}, time.Now()))

	read := snapshot.ReadPosts()
	assert.Len(t, read, 2, "both posts clear the popularity floor")
	assert.Equal(t, "첫 번째 인기글", read[0].Title)

	sites := snapshot.ReadSites()
	require.Len(t, sites, 1)
	assert.Equal(t, "testboard", sites[0].Key)
}
