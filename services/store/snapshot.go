package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jykim1011/community-blog/internal/crawler"
	"github.com/jykim1011/community-blog/internal/feed"
	"github.com/jykim1011/community-blog/logger"
)

const (
	postsFile = "posts.json"
	sitesFile = "sites.json"
)

// SiteInfo names a registered site for the snapshot directory.
type SiteInfo struct {
	Key         string
	DisplayName string
	BaseURL     string
}

// Snapshot maintains the flat-file export: posts.json and sites.json under a
// data directory. A missing or corrupt file reads as empty so the first crawl
// bootstraps the snapshot.
type Snapshot struct {
	dataDir string
	opts    feed.Options
	log     *logger.Logger
}

// NewSnapshot prepares a snapshot rooted at dataDir with the given merge
// policy.
func NewSnapshot(dataDir string, opts feed.Options) *Snapshot {
	return &Snapshot{
		dataDir: dataDir,
		opts:    opts,
		log:     logger.ForComponent("snapshot"),
	}
}

// ReadPosts loads the current snapshot posts.
func (s *Snapshot) ReadPosts() []crawler.Post {
	var posts []crawler.Post
	s.readJSON(postsFile, &posts)
	return posts
}

// ReadSites loads the current snapshot site directory.
func (s *Snapshot) ReadSites() []Site {
	var sites []Site
	s.readJSON(sitesFile, &sites)
	return sites
}

func (s *Snapshot) readJSON(name string, v interface{}) {
	path := filepath.Join(s.dataDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("file", name).Msg("Cannot read snapshot file, starting empty")
		}
		return
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.log.Warn().Err(err).Str("file", name).Msg("Corrupt snapshot file, starting empty")
	}
}

// Write merges freshly crawled posts into the snapshot and refreshes the site
// directory. crawled holds the sites that produced posts this run; registered
// holds every known site so the directory stays complete even for sites that
// have never been crawled.
func (s *Snapshot) Write(incoming []crawler.Post, crawled, registered []SiteInfo, now time.Time) error {
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	opts := s.opts
	opts.Now = now
	merged := feed.Merge(incoming, s.ReadPosts(), opts)
	if err := s.writeJSON(postsFile, merged); err != nil {
		return err
	}

	sites := mergeSites(s.ReadSites(), crawled, registered, now)
	if err := s.writeJSON(sitesFile, sites); err != nil {
		return err
	}

	s.log.Info().
		Int("posts", len(merged)).
		Int("sites", len(sites)).
		Msg("Snapshot written")
	return nil
}

func (s *Snapshot) writeJSON(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(s.dataDir, name), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// mergeSites folds the just-crawled sites and the full registry into the
// existing directory. A crawled site gets its LastCrawledAt stamped; a
// registered-but-never-crawled site appears with a nil timestamp.
func mergeSites(existing []Site, crawled, registered []SiteInfo, now time.Time) []Site {
	byKey := make(map[string]Site, len(existing))
	for _, site := range existing {
		byKey[site.Key] = site
	}
	for _, info := range registered {
		if _, ok := byKey[info.Key]; !ok {
			byKey[info.Key] = Site{Key: info.Key, DisplayName: info.DisplayName, BaseURL: info.BaseURL}
		}
	}
	for _, info := range crawled {
		at := now
		byKey[info.Key] = Site{
			Key:           info.Key,
			DisplayName:   info.DisplayName,
			BaseURL:       info.BaseURL,
			LastCrawledAt: &at,
		}
	}

	sites := make([]Site, 0, len(byKey))
	for _, site := range byKey {
		sites = append(sites, site)
	}
	sort.Slice(sites, func(i, j int) bool { return sites[i].Key < sites[j].Key })
	return sites
}
