package ports

import (
	"context"
	"time"

	"newsdesk/internal/domain"
)

// ArticleStore persists scraped articles and answers URL dedup lookups.
type ArticleStore interface {
	ExistsByURLs(ctx context.Context, urls []string) (map[string]bool, error)
	Create(ctx context.Context, article domain.Article) (string, error)
}

// JobStore owns every scraping job from creation to retention eviction.
// Reads return deep-copied snapshots; mutation goes through the
// transition methods, which enforce the status graph.
type JobStore interface {
	Create(ctx context.Context, job *domain.ScrapingJob) error
	Get(ctx context.Context, jobID string) (domain.ScrapingJob, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.ScrapingJob, error)
	Start(ctx context.Context, jobID string) error
	RecordOutcome(ctx context.Context, jobID string, outcome domain.URLOutcome) error
	Complete(ctx context.Context, jobID string) error
	Fail(ctx context.Context, jobID string, reason string) error
	Cancel(ctx context.Context, jobID, userID string) (bool, error)
	Delete(ctx context.Context, jobID, userID string) error
}

// FeedSource fetches and parses one RSS feed into entries.
type FeedSource interface {
	Fetch(ctx context.Context, feedURL string) ([]domain.FeedEntry, error)
}

// PaperSource queries an academic paper search API.
type PaperSource interface {
	Search(ctx context.Context, q domain.PaperQuery) ([]domain.Paper, error)
}

// PageFetcher downloads one HTML page.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*domain.Page, error)
}

// Scraper turns one article URL into extracted page content.
type Scraper interface {
	Scrape(ctx context.Context, pageURL string) (domain.PageContent, error)
}

// Discoverer runs one discovery pass over feeds and, optionally, papers.
type Discoverer interface {
	Preview(ctx context.Context) ([]domain.FeedResult, error)
	Discover(ctx context.Context, includePapers bool, pq domain.PaperQuery) (domain.DiscoveryReport, error)
}

// Summarizer generates short article summaries via an external model.
type Summarizer interface {
	Summarize(ctx context.Context, article domain.Article) (string, error)
}

// Notifier streams run digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when the daily discovery tick executes.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

// ScheduleStore persists per-user daily discovery settings.
type ScheduleStore interface {
	Save(ctx context.Context, cfg domain.ScheduleConfig) error
	Get(ctx context.Context, userID string) (domain.ScheduleConfig, error)
	Delete(ctx context.Context, userID string) error
	ListEnabled(ctx context.Context) ([]domain.ScheduleConfig, error)
}

// FeedList reads and rewrites the newline-delimited RSS feed list.
type FeedList interface {
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, text string) (int, error)
	URLs(ctx context.Context) ([]string, error)
}
