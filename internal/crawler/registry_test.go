package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func namedCrawler(key string) Crawler {
	return NewBoardCrawler(SiteConfig{
		Key:         key,
		DisplayName: key,
		BaseURL:     "https://" + key + ".example.com",
		BoardURL:    "https://" + key + ".example.com/board",
	}, Options{})
}

func TestRegistry_PreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry(namedCrawler("zeta"), namedCrawler("alpha"), namedCrawler("mid"))

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, r.Keys())
	assert.Equal(t, 3, r.Len())

	all := r.All()
	assert.Len(t, all, 3)
	assert.Equal(t, "zeta", all[0].SiteKey())
	assert.Equal(t, "mid", all[2].SiteKey())
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry(namedCrawler("alpha"))

	c, ok := r.Get("alpha")
	assert.True(t, ok)
	assert.Equal(t, "alpha", c.SiteKey())

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_DuplicateKeyReplacesEarlier(t *testing.T) {
	first := namedCrawler("dup")
	second := NewBoardCrawler(SiteConfig{
		Key:         "dup",
		DisplayName: "Replacement",
		BaseURL:     "https://dup.example.com",
	}, Options{})

	r := NewRegistry(first, second)

	assert.Equal(t, 1, r.Len())
	c, _ := r.Get("dup")
	assert.Equal(t, "Replacement", c.DisplayName())
}
