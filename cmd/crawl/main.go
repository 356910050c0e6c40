// Command crawl runs a one-shot snapshot crawl: it fetches the selected
// sites, merges the results into the flat-file snapshot under the data
// directory, and exits. With no arguments every registered site is crawled.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jykim1011/community-blog/config"
	"github.com/jykim1011/community-blog/internal/crawler"
	"github.com/jykim1011/community-blog/internal/feed"
	"github.com/jykim1011/community-blog/logger"
	"github.com/jykim1011/community-blog/services/cache"
	"github.com/jykim1011/community-blog/services/store"
)

func main() {
	godotenv.Load()
	logger.Init()

	rootCmd := &cobra.Command{
		Use:   "crawl [site...]",
		Short: "Crawl community sites into the flat-file snapshot",
		Long: `Fetches hot posts from the given community sites (all registered
sites when none are named), merges them into posts.json and sites.json
under the data directory, and exits.`,
		Args:          validateSiteArgs,
		RunE:          runCrawl,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func validateSiteArgs(_ *cobra.Command, args []string) error {
	known := make(map[string]bool)
	for _, cfg := range crawler.SiteConfigs() {
		known[cfg.Key] = true
	}
	for _, arg := range args {
		if !known[arg] {
			keys := make([]string, 0, len(known))
			for key := range known {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			return fmt.Errorf("unknown site %q, valid sites: %s", arg, strings.Join(keys, ", "))
		}
	}
	return nil
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	registry := crawler.CreateRegistry(crawler.Options{
		PageLimit:     cfg.PageLimit,
		RateLimitWait: cfg.RateLimitWait,
		Cache:         cache.NewMemoryService(),
		Cooldown:      cfg.RequestCooldown,
	})

	selected, err := selectCrawlers(registry, args)
	if err != nil {
		return err
	}

	log := logger.ForComponent("crawl")
	log.Info().
		Int("sites", len(selected)).
		Str("data_dir", cfg.DataDir).
		Msg("Starting snapshot crawl")

	posts, crawled := crawlSites(ctx, selected)

	thresholds := feed.Thresholds{
		MinViewCount:    cfg.MinViewCount,
		MinCommentCount: cfg.MinCommentCount,
		MinLikeCount:    cfg.MinLikeCount,
	}
	snapshot := store.NewSnapshot(cfg.DataDir, feed.Options{
		MaxPosts:   cfg.MaxPosts,
		MaxAge:     cfg.MaxPostAge,
		Popularity: &thresholds,
	})

	if err := snapshot.Write(posts, crawled, registeredSites(registry), time.Now()); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	log.Info().Int("crawled_posts", len(posts)).Msg("Snapshot crawl finished")
	return nil
}

func selectCrawlers(registry *crawler.Registry, args []string) ([]crawler.Crawler, error) {
	if len(args) == 0 {
		return registry.All(), nil
	}
	selected := make([]crawler.Crawler, 0, len(args))
	for _, key := range args {
		c, ok := registry.Get(key)
		if !ok {
			return nil, fmt.Errorf("unknown site %q", key)
		}
		selected = append(selected, c)
	}
	return selected, nil
}

// crawlSites fans out over the selected adapters. Each site is isolated: one
// site failing or returning nothing does not affect the others.
func crawlSites(ctx context.Context, crawlers []crawler.Crawler) ([]crawler.Post, []store.SiteInfo) {
	var (
		mu      sync.Mutex
		posts   []crawler.Post
		crawled []store.SiteInfo
		wg      sync.WaitGroup
	)
	for _, c := range crawlers {
		wg.Add(1)
		go func(c crawler.Crawler) {
			defer wg.Done()
			sitePosts := c.Crawl(ctx)
			mu.Lock()
			defer mu.Unlock()
			posts = append(posts, sitePosts...)
			crawled = append(crawled, store.SiteInfo{
				Key:         c.SiteKey(),
				DisplayName: c.DisplayName(),
				BaseURL:     c.BaseURL(),
			})
		}(c)
	}
	wg.Wait()
	return posts, crawled
}

func registeredSites(registry *crawler.Registry) []store.SiteInfo {
	all := registry.All()
	sites := make([]store.SiteInfo, 0, len(all))
	for _, c := range all {
		sites = append(sites, store.SiteInfo{
			Key:         c.SiteKey(),
			DisplayName: c.DisplayName(),
			BaseURL:     c.BaseURL(),
		})
	}
	return sites
}
