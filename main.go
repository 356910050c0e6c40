package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/jykim1011/community-blog/config"
	"github.com/jykim1011/community-blog/internal/crawler"
	"github.com/jykim1011/community-blog/logger"
	"github.com/jykim1011/community-blog/services/cache"
	"github.com/jykim1011/community-blog/services/publisher"
	"github.com/jykim1011/community-blog/services/scheduler"
	"github.com/jykim1011/community-blog/services/store"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Dur("crawl_interval", cfg.CrawlInterval).
		Str("db_path", cfg.DBPath).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize services
	st, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer st.Close()

	cacheService := newCacheService(&cfg)
	pub := newPublisher(ctx, &cfg)
	defer pub.Close()

	// Create site adapters
	registry := crawler.CreateRegistry(crawler.Options{
		PageLimit:     cfg.PageLimit,
		RateLimitWait: cfg.RateLimitWait,
		Cache:         cacheService,
		Cooldown:      cfg.RequestCooldown,
	})
	if registry.Len() == 0 {
		log.Fatal().Msg("No site adapters were created")
	}
	log.Info().
		Int("site_count", registry.Len()).
		Msg("Created site adapters")

	// Create and start the rotation scheduler
	sched := scheduler.New(registry, st, pub, scheduler.Options{
		Interval:    cfg.CrawlInterval,
		WarmupDelay: cfg.WarmupDelay,
		MaxPostAge:  cfg.MaxPostAge,
	})

	// SIGUSR1 triggers an immediate crawl of every site, bypassing the
	// rotation.
	crawlAllChan := make(chan os.Signal, 1)
	signal.Notify(crawlAllChan, syscall.SIGUSR1)
	go func() {
		for range crawlAllChan {
			log.Info().Msg("Received SIGUSR1, crawling all sites")
			sched.CrawlAll(ctx)
		}
	}()

	done := make(chan struct{})
	go func() {
		sched.Start(ctx)
		close(done)
	}()

	// Wait for shutdown signal or scheduler exit
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
		cancel()
		<-done
	case <-done:
	}

	log.Info().Msg("Shutting down gracefully...")
}

// newCacheService picks memcache when an address is configured and the
// in-process cache otherwise.
func newCacheService(cfg *config.Config) cache.CacheService {
	if cfg.MemcacheAddr == "" {
		logger.Info("Using in-memory rate-limit cache")
		return cache.NewMemoryService()
	}
	logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
	return cache.NewMemcacheService(cfg.MemcacheAddr)
}

// newPublisher picks the Redis stream publisher when an address is configured
// and a no-op publisher otherwise.
func newPublisher(ctx context.Context, cfg *config.Config) publisher.Publisher {
	if cfg.RedisAddr == "" {
		return publisher.Noop{}
	}
	logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
		cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	return publisher.NewRedisPublisher(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream, cfg.RedisStreamMaxLen)
}
