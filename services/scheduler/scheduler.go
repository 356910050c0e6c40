// Package scheduler rotates through the registered site adapters, crawling
// one site per tick so a single slow or blocked site cannot starve the rest.
// A tick that arrives while the previous crawl is still running is dropped
// without advancing the rotation.
package scheduler

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jykim1011/community-blog/internal/crawler"
	"github.com/jykim1011/community-blog/logger"
	"github.com/jykim1011/community-blog/services/publisher"
	"github.com/jykim1011/community-blog/services/store"
)

// Options configures the rotation scheduler.
type Options struct {
	// Interval is the tick period between site crawls.
	Interval time.Duration

	// WarmupDelay is how long to wait before the first crawl so the process
	// can settle after start.
	WarmupDelay time.Duration

	// MaxPostAge bounds retention; posts fetched earlier than now minus
	// MaxPostAge are evicted after each crawl.
	MaxPostAge time.Duration
}

// Scheduler crawls one site per tick in registration order.
type Scheduler struct {
	registry *crawler.Registry
	store    store.Store
	pub      publisher.Publisher
	opts     Options
	log      *logger.Logger
	now      func() time.Time

	mu           sync.Mutex
	currentIndex int
	running      bool
}

// New builds a scheduler over the given registry and persistence.
func New(registry *crawler.Registry, st store.Store, pub publisher.Publisher, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.MaxPostAge <= 0 {
		opts.MaxPostAge = 72 * time.Hour
	}
	return &Scheduler{
		registry: registry,
		store:    st,
		pub:      pub,
		opts:     opts,
		log:      logger.ForScheduler(),
		now:      time.Now,
	}
}

// Start runs the rotation loop until the context is cancelled. The first
// crawl happens after the warmup delay, subsequent crawls on every interval
// tick.
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info().
		Int("sites", s.registry.Len()).
		Dur("interval", s.opts.Interval).
		Dur("warmup", s.opts.WarmupDelay).
		Msg("Scheduler starting")

	select {
	case <-ctx.Done():
		return
	case <-time.After(s.opts.WarmupDelay):
	}
	s.Tick(ctx)

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Scheduler stopping")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick crawls the next site in rotation. If a previous tick is still running
// the call returns false immediately without touching the network or the
// rotation position.
func (s *Scheduler) Tick(ctx context.Context) bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Warn().Msg("Previous crawl still running, skipping tick")
		return false
	}
	s.running = true
	index := s.currentIndex
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.currentIndex++
		s.running = false
		s.mu.Unlock()
	}()

	crawlers := s.registry.All()
	if len(crawlers) == 0 {
		return false
	}
	s.crawlSite(ctx, crawlers[index%len(crawlers)])
	return true
}

// CrawlAll crawls every registered site concurrently, each site isolated
// from the others' failures.
func (s *Scheduler) CrawlAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, c := range s.registry.All() {
		wg.Add(1)
		go func(c crawler.Crawler) {
			defer wg.Done()
			s.crawlSite(ctx, c)
		}(c)
	}
	wg.Wait()
}

func (s *Scheduler) crawlSite(ctx context.Context, c crawler.Crawler) {
	start := s.now()
	posts := c.Crawl(ctx)

	log := s.log.WithField("site", c.SiteKey())
	if len(posts) == 0 {
		log.Info().Msg("Crawl returned no posts")
		return
	}

	result, err := s.store.UpsertPosts(ctx, posts)
	if err != nil {
		log.Error().Err(err).Msg("Failed to save posts")
		return
	}
	log.Info().
		Int("crawled", len(posts)).
		Int("saved", result.Saved).
		Int("skipped", result.Skipped).
		Dur("took", s.now().Sub(start)).
		Msg("Crawl finished")

	if result.Saved > 0 {
		s.publish(c.SiteKey(), posts)
	}

	if err := s.store.TouchSite(ctx, c.SiteKey(), c.DisplayName(), c.BaseURL(), s.now()); err != nil {
		log.Error().Err(err).Msg("Failed to record crawl time")
	}

	cutoff := s.now().Add(-s.opts.MaxPostAge)
	if deleted, err := s.store.DeleteOlderThan(ctx, cutoff); err != nil {
		log.Error().Err(err).Msg("Failed to evict old posts")
	} else if deleted > 0 {
		log.Info().Int64("deleted", deleted).Msg("Evicted old posts")
	}
}

func (s *Scheduler) publish(siteKey string, posts []crawler.Post) {
	message, err := json.Marshal(posts)
	if err != nil {
		s.log.Error().Err(err).Str("site", siteKey).Msg("Failed to marshal posts for publishing")
		return
	}
	if err := s.pub.Publish(siteKey, message); err != nil {
		s.log.Error().Err(err).Str("site", siteKey).Msg("Failed to publish posts")
		return
	}
	if err := s.pub.TrimStream(); err != nil {
		s.log.Error().Err(err).Str("site", siteKey).Msg("Failed to trim stream")
	}
}

// CurrentIndex reports the rotation position.
func (s *Scheduler) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentIndex
}

// Running reports whether a crawl is in flight.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// markRunning flips the in-flight flag; tests use it to simulate an
// overlapping tick.
func (s *Scheduler) markRunning(v bool) {
	s.mu.Lock()
	s.running = v
	s.mu.Unlock()
}
