package crawler

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	apperr "github.com/jykim1011/community-blog/pkg/errors"
)

// urlKeyedFetch serves responses by requested URL, concurrency-safe since
// resolution fans out.
type urlKeyedFetch struct {
	mu        sync.Mutex
	responses map[string]string
	errors    map[string]error
	calls     map[string]int
}

func newURLKeyedFetch() *urlKeyedFetch {
	return &urlKeyedFetch{
		responses: make(map[string]string),
		errors:    make(map[string]error),
		calls:     make(map[string]int),
	}
}

func (f *urlKeyedFetch) fetch(url string) (io.Reader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[url]++
	if err, ok := f.errors[url]; ok {
		return nil, err
	}
	if html, ok := f.responses[url]; ok {
		return strings.NewReader(html), nil
	}
	return nil, apperr.NewNotFound("testboard", url)
}

func resolveTestCrawler(fetch *urlKeyedFetch) *BoardCrawler {
	cfg := testSiteConfig()
	cfg.Resolve = &ResolveConfig{
		Limit:          20,
		Concurrency:    4,
		TitleSelectors: []string{"#article_title"},
	}
	c := NewBoardCrawler(cfg, Options{RateLimitWait: time.Millisecond})
	c.fetchFunc = fetch.fetch
	return c
}

func interstitialPage(target string) string {
	return fmt.Sprintf(`<html><body><script>
		setTimeout(function() { location.href = '%s'; }, 100);
	</script></body></html>`, target)
}

func TestResolvePosts_FollowsJSRedirect(t *testing.T) {
	fetch := newURLKeyedFetch()
	fetch.responses["https://board.example.com/hit.php?id=1"] = interstitialPage("/article/1")
	fetch.responses["https://board.example.com/article/1"] =
		`<html><head><title>fallback - board</title></head>
		 <body><h1 id="article_title">  Real   article title </h1></body></html>`

	c := resolveTestCrawler(fetch)
	posts := c.resolvePosts(context.Background(), []Post{
		{Title: "listing title", URL: "https://board.example.com/hit.php?id=1"},
	})

	assert.Len(t, posts, 1)
	assert.Equal(t, "https://board.example.com/article/1", posts[0].URL)
	assert.Equal(t, "Real article title", posts[0].Title)
}

func TestResolvePosts_FallsBackToDocumentTitle(t *testing.T) {
	fetch := newURLKeyedFetch()
	fetch.responses["https://board.example.com/hit.php?id=2"] = interstitialPage("/article/2")
	fetch.responses["https://board.example.com/article/2"] =
		`<html><head><title>Article two - Test Board</title></head><body></body></html>`

	c := resolveTestCrawler(fetch)
	posts := c.resolvePosts(context.Background(), []Post{
		{Title: "listing title", URL: "https://board.example.com/hit.php?id=2"},
	})

	assert.Len(t, posts, 1)
	assert.Equal(t, "Article two", posts[0].Title)
}

func TestResolvePosts_KeepsListingTitleWhenArticleUnreachable(t *testing.T) {
	fetch := newURLKeyedFetch()
	fetch.responses["https://board.example.com/hit.php?id=3"] = interstitialPage("/article/3")
	fetch.errors["https://board.example.com/article/3"] = apperr.NewNetwork("testboard", "timeout", nil)

	c := resolveTestCrawler(fetch)
	posts := c.resolvePosts(context.Background(), []Post{
		{Title: "listing title", URL: "https://board.example.com/hit.php?id=3"},
	})

	assert.Len(t, posts, 1)
	assert.Equal(t, "https://board.example.com/article/3", posts[0].URL)
	assert.Equal(t, "listing title", posts[0].Title)
}

func TestResolvePosts_IsolatesFailures(t *testing.T) {
	fetch := newURLKeyedFetch()
	fetch.responses["https://board.example.com/hit.php?id=ok"] = interstitialPage("/article/ok")
	fetch.responses["https://board.example.com/article/ok"] = "<html><title>OK</title></html>"
	fetch.errors["https://board.example.com/hit.php?id=down"] = apperr.NewNetwork("testboard", "refused", nil)
	fetch.responses["https://board.example.com/hit.php?id=blank"] = "<html><body>no redirect here</body></html>"

	c := resolveTestCrawler(fetch)
	posts := c.resolvePosts(context.Background(), []Post{
		{Title: "ok", URL: "https://board.example.com/hit.php?id=ok"},
		{Title: "down", URL: "https://board.example.com/hit.php?id=down"},
		{Title: "blank", URL: "https://board.example.com/hit.php?id=blank"},
	})

	assert.Len(t, posts, 1)
	assert.Equal(t, "https://board.example.com/article/ok", posts[0].URL)
}

func TestResolvePosts_HonorsLimit(t *testing.T) {
	fetch := newURLKeyedFetch()
	var input []Post
	for i := 1; i <= 30; i++ {
		hit := fmt.Sprintf("https://board.example.com/hit.php?id=%d", i)
		article := fmt.Sprintf("https://board.example.com/article/%d", i)
		fetch.responses[hit] = interstitialPage(fmt.Sprintf("/article/%d", i))
		fetch.responses[article] = "<html><title>t</title></html>"
		input = append(input, Post{Title: "t", URL: hit})
	}

	c := resolveTestCrawler(fetch)
	posts := c.resolvePosts(context.Background(), input)

	assert.Len(t, posts, 20, "resolution is capped at the configured limit")
}
