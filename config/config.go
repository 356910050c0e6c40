package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	// Live-service persistence (sqlite)
	DBPath string

	// Static-export persistence (flat snapshot files)
	DataDir string

	// Scheduler configuration
	CrawlInterval time.Duration
	WarmupDelay   time.Duration

	// Pagination walker
	PageLimit       int
	RateLimitWait   time.Duration
	RequestCooldown time.Duration

	// Retention
	MaxPosts        int
	MaxPostAge      time.Duration
	MinViewCount    int
	MinCommentCount int
	MinLikeCount    int

	// Rate-limit cooldown cache; empty address selects the in-memory cache
	MemcacheAddr string

	// Optional Redis stream publisher; empty address disables publishing
	RedisAddr         string
	RedisDB           int
	RedisStream       string
	RedisStreamMaxLen int

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() Config {
	crawlInterval, _ := strconv.Atoi(getEnv("CRAWL_INTERVAL_SECONDS", "300"))
	warmupDelay, _ := strconv.Atoi(getEnv("WARMUP_DELAY_SECONDS", "10"))
	pageLimit, _ := strconv.Atoi(getEnv("PAGE_LIMIT", "5"))
	rateLimitWait, _ := strconv.Atoi(getEnv("RATE_LIMIT_WAIT_SECONDS", "10"))
	cooldown, _ := strconv.Atoi(getEnv("REQUEST_COOLDOWN_SECONDS", "300"))
	maxPosts, _ := strconv.Atoi(getEnv("MAX_POSTS", "1000"))
	maxAgeHours, _ := strconv.Atoi(getEnv("MAX_AGE_HOURS", "72"))
	minViews, _ := strconv.Atoi(getEnv("MIN_VIEW_COUNT", "100"))
	minComments, _ := strconv.Atoi(getEnv("MIN_COMMENT_COUNT", "5"))
	minLikes, _ := strconv.Atoi(getEnv("MIN_LIKE_COUNT", "10"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	redisStreamMaxLen, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAXLEN", "1000"))

	return Config{
		DBPath:            getEnv("DB_PATH", "data/feed.db"),
		DataDir:           getEnv("DATA_DIR", "data"),
		CrawlInterval:     time.Duration(crawlInterval) * time.Second,
		WarmupDelay:       time.Duration(warmupDelay) * time.Second,
		PageLimit:         pageLimit,
		RateLimitWait:     time.Duration(rateLimitWait) * time.Second,
		RequestCooldown:   time.Duration(cooldown) * time.Second,
		MaxPosts:          maxPosts,
		MaxPostAge:        time.Duration(maxAgeHours) * time.Hour,
		MinViewCount:      minViews,
		MinCommentCount:   minComments,
		MinLikeCount:      minLikes,
		MemcacheAddr:      getEnv("MEMCACHE_ADDR", ""),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisDB:           redisDB,
		RedisStream:       getEnv("REDIS_STREAM", "hotposts"),
		RedisStreamMaxLen: redisStreamMaxLen,
		Environment:       getEnv("FEED_ENVIRONMENT", "development"),
	}
}

// Validate checks that the configuration is usable
func (c Config) Validate() error {
	if c.CrawlInterval <= 0 {
		return fmt.Errorf("crawl interval must be positive, got %s", c.CrawlInterval)
	}
	if c.PageLimit <= 0 {
		return fmt.Errorf("page limit must be positive, got %d", c.PageLimit)
	}
	if c.MaxPosts <= 0 {
		return fmt.Errorf("max posts must be positive, got %d", c.MaxPosts)
	}
	if c.MaxPostAge <= 0 {
		return fmt.Errorf("max post age must be positive, got %s", c.MaxPostAge)
	}
	if c.DBPath == "" {
		return fmt.Errorf("db path must not be empty")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
