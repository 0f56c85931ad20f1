package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"newsdesk/internal/domain"
	"newsdesk/internal/ports"
)

// Discoverer walks the configured feed list (and optionally the paper
// API) and turns the results into one deduplicated URL batch. A broken
// feed never aborts the pass; it is tallied and reported.
type Discoverer struct {
	feeds  ports.FeedList
	rss    ports.FeedSource
	papers ports.PaperSource
	delay  time.Duration
	logger *slog.Logger
}

// NewDiscoverer wires the feed list with both sources.
func NewDiscoverer(feeds ports.FeedList, rss ports.FeedSource, papers ports.PaperSource, delay time.Duration, logger *slog.Logger) *Discoverer {
	return &Discoverer{
		feeds:  feeds,
		rss:    rss,
		papers: papers,
		delay:  delay,
		logger: logger,
	}
}

// Preview fetches every configured feed and returns per-feed results
// without touching storage or jobs.
func (d *Discoverer) Preview(ctx context.Context) ([]domain.FeedResult, error) {
	report, err := d.run(ctx, false, domain.PaperQuery{})
	if err != nil {
		return nil, err
	}
	return report.FeedResults, nil
}

// Discover runs a full pass: all feeds, plus papers when requested.
func (d *Discoverer) Discover(ctx context.Context, includePapers bool, pq domain.PaperQuery) (domain.DiscoveryReport, error) {
	return d.run(ctx, includePapers, pq)
}

func (d *Discoverer) run(ctx context.Context, includePapers bool, pq domain.PaperQuery) (domain.DiscoveryReport, error) {
	var report domain.DiscoveryReport

	feedURLs, err := d.feeds.URLs(ctx)
	if err != nil {
		return report, fmt.Errorf("load feed list: %w", err)
	}

	seen := map[string]struct{}{}
	for i, feedURL := range feedURLs {
		if i > 0 && d.delay > 0 {
			select {
			case <-time.After(d.delay):
			case <-ctx.Done():
				return report, ctx.Err()
			}
		}

		result := domain.FeedResult{FeedURL: feedURL}
		entries, err := d.rss.Fetch(ctx, feedURL)
		if err != nil {
			result.Err = err.Error()
			report.FeedsFailed++
			d.warn("feed failed", "feed", feedURL, "error", err)
		} else {
			result.Entries = entries
			report.FeedsOK++
			for _, e := range entries {
				if _, dup := seen[e.URL]; dup {
					continue
				}
				seen[e.URL] = struct{}{}
				report.URLs = append(report.URLs, e.URL)
			}
		}
		report.FeedResults = append(report.FeedResults, result)
	}

	if includePapers && d.papers != nil {
		papers, err := d.papers.Search(ctx, pq)
		if err != nil {
			// papers are an optional extra on top of the feed pass
			report.PapersErr = err.Error()
			d.warn("paper search failed", "error", err)
		} else {
			report.Papers = papers
			for _, p := range papers {
				if _, dup := seen[p.URL]; dup {
					continue
				}
				seen[p.URL] = struct{}{}
				report.URLs = append(report.URLs, p.URL)
			}
		}
	}

	d.debug("discovery pass done",
		"feeds_ok", report.FeedsOK,
		"feeds_failed", report.FeedsFailed,
		"papers", len(report.Papers),
		"urls", len(report.URLs))
	return report, nil
}

func (d *Discoverer) warn(msg string, args ...interface{}) {
	if d.logger != nil {
		d.logger.Warn(msg, args...)
	}
}

func (d *Discoverer) debug(msg string, args ...interface{}) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}
