package store

import (
	"context"
	"fmt"
	"strings"
)

// Table names. TableLegacy predates per-runner attribution and only
// exists in older deployments.
const (
	TablePosts  = "posts"
	TableLegacy = "data"
)

// DateLayout is the calendar-day format used for date_posted values.
// Lexicographic order on this layout matches chronological order.
const DateLayout = "2006-01-02"

// Post is one delivered status update. The (DatePosted, Runner) pair
// is unique: at most one post per runner per calendar day.
type Post struct {
	DatePosted string `json:"date_posted" yaml:"date_posted"`
	Runner     string `json:"runner" yaml:"runner"`
	Text       string `json:"text" yaml:"text"`
}

// RunnerStats aggregates post history for one runner.
type RunnerStats struct {
	Runner     string `json:"runner" yaml:"runner"`
	Posts      int    `json:"posts" yaml:"posts"`
	LastPosted string `json:"last_posted" yaml:"last_posted"`
}

// PostedSince reports whether the runner has a post record dated
// strictly after the given day. A missing posts table is a clean
// "never posted", not an error; it appears on fresh deployments before
// the first record is written.
func (s *Store) PostedSince(ctx context.Context, runner, sinceDay string) (bool, error) {
	rows, err := s.Select(ctx,
		fmt.Sprintf(`SELECT date_posted FROM %s WHERE runner = ? AND date_posted > ? LIMIT 1`, TablePosts),
		runner, sinceDay)
	if err != nil {
		if isMissingTable(err) {
			return false, nil
		}
		return false, err
	}
	return len(rows) > 0, nil
}

// RecordPost upserts a post record. Creates the posts table on first
// use.
func (s *Store) RecordPost(ctx context.Context, p Post) error {
	row := map[string]any{
		"date_posted": p.DatePosted,
		"text":        p.Text,
		"runner":      p.Runner,
	}
	return s.Save(ctx, []string{"date_posted", "runner"}, []map[string]any{row}, TablePosts)
}

// RecentPosts returns up to limit post records, newest first.
func (s *Store) RecentPosts(ctx context.Context, limit int) ([]Post, error) {
	rows, err := s.Select(ctx,
		fmt.Sprintf(`SELECT date_posted, runner, text FROM %s ORDER BY date_posted DESC, runner ASC LIMIT ?`, TablePosts),
		limit)
	if err != nil {
		if isMissingTable(err) {
			return nil, nil
		}
		return nil, err
	}
	posts := make([]Post, 0, len(rows))
	for _, r := range rows {
		posts = append(posts, Post{
			DatePosted: asString(r["date_posted"]),
			Runner:     asString(r["runner"]),
			Text:       asString(r["text"]),
		})
	}
	return posts, nil
}

// PostStats returns per-runner post counts and last-posted dates,
// sorted by runner name.
func (s *Store) PostStats(ctx context.Context) ([]RunnerStats, error) {
	rows, err := s.Select(ctx, fmt.Sprintf(
		`SELECT runner, COUNT(*) AS posts, MAX(date_posted) AS last_posted
		 FROM %s GROUP BY runner ORDER BY runner`, TablePosts))
	if err != nil {
		if isMissingTable(err) {
			return nil, nil
		}
		return nil, err
	}
	stats := make([]RunnerStats, 0, len(rows))
	for _, r := range rows {
		stats = append(stats, RunnerStats{
			Runner:     asString(r["runner"]),
			Posts:      int(asInt(r["posts"])),
			LastPosted: asString(r["last_posted"]),
		})
	}
	return stats, nil
}

// ensurePostsTable creates the posts table and its composite unique
// key even when there are no rows to write.
func (s *Store) ensurePostsTable(ctx context.Context) error {
	if _, err := s.Execute(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s ("date_posted" TEXT NOT NULL, "text" TEXT, "runner" TEXT NOT NULL)`,
		quote(TablePosts))); err != nil {
		return err
	}
	_, err := s.Execute(ctx, fmt.Sprintf(
		`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s ("date_posted", "runner")`,
		quote(TablePosts+"_pk"), quote(TablePosts)))
	return err
}

func isMissingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func asInt(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
