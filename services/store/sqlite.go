package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "embed"

	_ "modernc.org/sqlite"

	"github.com/jykim1011/community-blog/internal/crawler"
	apperr "github.com/jykim1011/community-blog/pkg/errors"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// SQLiteStore implements Store on an embedded sqlite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies the
// schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, apperr.NewConfiguration("db path is required", nil)
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("apply schema: %w", err)
	}

	var versionStr string
	err = tx.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&versionStr)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := tx.ExecContext(ctx, "INSERT INTO metadata(key, value) VALUES('schema_version', ?)", strconv.Itoa(schemaVersion)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert schema version: %w", err)
		}
		return tx.Commit()
	}
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("read schema version: %w", err)
	}

	version, err := strconv.Atoi(versionStr)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("parse schema version: %w", err)
	}
	if version > schemaVersion {
		_ = tx.Rollback()
		return fmt.Errorf("database schema version %d is newer than supported %d", version, schemaVersion)
	}
	return tx.Commit()
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// UpsertPosts inserts posts absent by URL; already-known URLs are skipped.
// Unknown sites are created lazily with a best-effort display name so a post
// never dangles.
func (s *SQLiteStore) UpsertPosts(ctx context.Context, posts []crawler.Post) (SaveResult, error) {
	var result SaveResult
	if len(posts) == 0 {
		return result, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, apperr.NewStorage("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, post := range posts {
		// Placeholder row only; TouchSite fills in the real display name and
		// base URL after a successful crawl.
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sites(key, display_name, base_url) VALUES(?, ?, '')
			 ON CONFLICT(key) DO NOTHING`,
			post.SiteKey, post.SiteKey,
		); err != nil {
			return SaveResult{}, apperr.NewStorage("ensure site", err)
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO posts(url, site_key, title, author, thumbnail,
			                   view_count, comment_count, like_count, category,
			                   created_at, fetched_at)
			 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(url) DO NOTHING`,
			post.URL, post.SiteKey, post.Title, post.Author, post.Thumbnail,
			post.ViewCount, post.CommentCount, post.LikeCount, post.Category,
			formatTime(post.CreatedAt), formatTime(post.FetchedAt),
		)
		if err != nil {
			return SaveResult{}, apperr.NewStorage("insert post", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return SaveResult{}, apperr.NewStorage("rows affected", err)
		}
		if affected > 0 {
			result.Saved++
		} else {
			result.Skipped++
		}
	}

	if err := tx.Commit(); err != nil {
		return SaveResult{}, apperr.NewStorage("commit", err)
	}
	return result, nil
}

// ListPosts returns one page, ordered by site-reported publish time, newest
// first.
func (s *SQLiteStore) ListPosts(ctx context.Context, q ListQuery) ([]crawler.Post, Pagination, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}

	where := "WHERE 1=1"
	args := []interface{}{}
	if q.SiteKey != "" {
		where += " AND site_key = ?"
		args = append(args, q.SiteKey)
	}
	if q.Search != "" {
		where += " AND title LIKE ?"
		args = append(args, "%"+q.Search+"%")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts "+where, args...).Scan(&total); err != nil {
		return nil, Pagination{}, apperr.NewStorage("count posts", err)
	}

	offset := (q.Page - 1) * q.Limit
	rows, err := s.db.QueryContext(ctx,
		`SELECT url, site_key, title, author, thumbnail,
		        view_count, comment_count, like_count, category,
		        created_at, fetched_at
		 FROM posts `+where+`
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		append(args, q.Limit, offset)...,
	)
	if err != nil {
		return nil, Pagination{}, apperr.NewStorage("query posts", err)
	}
	defer rows.Close()

	var posts []crawler.Post
	for rows.Next() {
		var p crawler.Post
		var createdAt, fetchedAt string
		if err := rows.Scan(&p.URL, &p.SiteKey, &p.Title, &p.Author, &p.Thumbnail,
			&p.ViewCount, &p.CommentCount, &p.LikeCount, &p.Category,
			&createdAt, &fetchedAt); err != nil {
			return nil, Pagination{}, apperr.NewStorage("scan post", err)
		}
		p.CreatedAt = parseTime(createdAt)
		p.FetchedAt = parseTime(fetchedAt)
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, Pagination{}, apperr.NewStorage("iterate posts", err)
	}

	return posts, Pagination{
		Page:    q.Page,
		Limit:   q.Limit,
		Total:   total,
		HasMore: offset+len(posts) < total,
	}, nil
}

// ListSites returns the site directory ordered by key.
func (s *SQLiteStore) ListSites(ctx context.Context) ([]Site, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key, display_name, base_url, last_crawled_at FROM sites ORDER BY key")
	if err != nil {
		return nil, apperr.NewStorage("query sites", err)
	}
	defer rows.Close()

	var sites []Site
	for rows.Next() {
		var site Site
		var lastCrawled sql.NullString
		if err := rows.Scan(&site.Key, &site.DisplayName, &site.BaseURL, &lastCrawled); err != nil {
			return nil, apperr.NewStorage("scan site", err)
		}
		if lastCrawled.Valid {
			t := parseTime(lastCrawled.String)
			site.LastCrawledAt = &t
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

// TouchSite records a successful crawl, creating the Site record when absent
// and refreshing its display name otherwise.
func (s *SQLiteStore) TouchSite(ctx context.Context, key, displayName, baseURL string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sites(key, display_name, base_url, last_crawled_at)
		 VALUES(?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		     display_name = excluded.display_name,
		     base_url = excluded.base_url,
		     last_crawled_at = excluded.last_crawled_at`,
		key, displayName, baseURL, formatTime(at))
	if err != nil {
		return apperr.NewStorage("touch site", err)
	}
	return nil
}

// DeleteOlderThan evicts posts fetched before the cutoff.
func (s *SQLiteStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM posts WHERE fetched_at < ?", formatTime(cutoff))
	if err != nil {
		return 0, apperr.NewStorage("delete old posts", err)
	}
	return res.RowsAffected()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
