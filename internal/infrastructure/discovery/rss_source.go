// Package discovery finds scrapeable article URLs in RSS feeds and the
// arXiv search API.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"

	"newsdesk/internal/domain"
	"newsdesk/internal/ports"
)

// RSSSource fetches one feed at a time and keeps only recent entries.
type RSSSource struct {
	parser  *gofeed.Parser
	timeout time.Duration
	recency time.Duration
	logger  *slog.Logger
}

var _ ports.FeedSource = (*RSSSource)(nil)

// NewRSSSource builds a feed source with the given per-feed timeout and
// recency window. Entries without a parseable date are kept.
func NewRSSSource(timeout, recency time.Duration, userAgent string, logger *slog.Logger) *RSSSource {
	parser := gofeed.NewParser()
	if userAgent != "" {
		parser.UserAgent = userAgent
	}
	return &RSSSource{
		parser:  parser,
		timeout: timeout,
		recency: recency,
		logger:  logger,
	}
}

// Fetch downloads and parses one feed, returning its fresh entries.
func (s *RSSSource) Fetch(ctx context.Context, feedURL string) ([]domain.FeedEntry, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	parsed, err := s.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	source := parsed.Title
	if source == "" {
		source = hostOf(feedURL)
	}

	cutoff := time.Time{}
	if s.recency > 0 {
		cutoff = time.Now().Add(-s.recency)
	}

	entries := make([]domain.FeedEntry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		link := item.Link
		if link == "" {
			link = item.GUID
		}
		if link == "" {
			continue
		}

		var published *time.Time
		if item.PublishedParsed != nil {
			published = item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			published = item.UpdatedParsed
		}
		// an undated entry cannot be proven stale, keep it
		if published != nil && !cutoff.IsZero() && published.Before(cutoff) {
			continue
		}

		title := item.Title
		if title == "" {
			title = link
		}

		entries = append(entries, domain.FeedEntry{
			Title:       title,
			URL:         link,
			Source:      source,
			PublishedAt: published,
		})
	}

	s.debug("feed fetched", "feed", feedURL, "items", len(parsed.Items), "fresh", len(entries))
	return entries, nil
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}

func (s *RSSSource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
