package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"newsdesk/internal/domain"
	"newsdesk/internal/infrastructure/scrape"
	"newsdesk/internal/ports"
	"newsdesk/internal/tagging"
)

// Runner executes scraping jobs, one goroutine per job. Every job
// mutation after creation flows through the runner, so cancellation only
// has to interrupt a single loop.
type Runner struct {
	jobs       ports.JobStore
	articles   ports.ArticleStore
	scraper    ports.Scraper
	summarizer ports.Summarizer
	politeness time.Duration
	logger     *slog.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewRunner wires the job executor. summarizer may be nil.
func NewRunner(jobs ports.JobStore, articles ports.ArticleStore, scraper ports.Scraper,
	summarizer ports.Summarizer, politeness time.Duration, logger *slog.Logger) *Runner {
	return &Runner{
		jobs:       jobs,
		articles:   articles,
		scraper:    scraper,
		summarizer: summarizer,
		politeness: politeness,
		logger:     logger,
		cancels:    make(map[string]context.CancelFunc),
	}
}

// Launch starts the job's worker goroutine.
func (r *Runner) Launch(jobID string) {
	ctx, cancel := context.WithCancel(context.Background())

	r.mu.Lock()
	r.cancels[jobID] = cancel
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			r.mu.Lock()
			delete(r.cancels, jobID)
			r.mu.Unlock()
			cancel()
		}()
		r.run(ctx, jobID)
	}()
}

// Interrupt wakes the job's worker out of its politeness pause. The
// caller is expected to have already moved the job to a terminal state.
func (r *Runner) Interrupt(jobID string) {
	r.mu.Lock()
	cancel, ok := r.cancels[jobID]
	r.mu.Unlock()
	if ok {
		cancel()
	}
}

// Shutdown interrupts every running job and waits for the workers,
// bounded by ctx.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	for _, cancel := range r.cancels {
		cancel()
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) run(ctx context.Context, jobID string) {
	job, err := r.jobs.Get(ctx, jobID)
	if err != nil {
		r.logger.Error("job vanished before start", "job_id", jobID, "error", err)
		return
	}
	log := r.logger.With("job_id", jobID, "user", job.UserID)

	if err := r.jobs.Start(ctx, jobID); err != nil {
		// cancelled while still pending
		log.Debug("job not started", "error", err)
		return
	}
	log.Info("job started", "urls", len(job.URLs))

	for i, pageURL := range job.URLs {
		if i > 0 && r.politeness > 0 {
			select {
			case <-time.After(r.politeness):
			case <-ctx.Done():
			}
		}
		if ctx.Err() != nil {
			log.Info("job interrupted", "processed", i)
			return
		}

		outcome := r.processURL(ctx, &job, pageURL)
		if err := r.jobs.RecordOutcome(ctx, jobID, outcome); err != nil {
			// the job reached a terminal state underneath us
			log.Debug("outcome dropped", "url", pageURL, "error", err)
			return
		}
		if outcome.Kind == domain.OutcomeFailed {
			log.Warn("url failed", "url", pageURL, "reason", outcome.Reason)
		}
	}

	if err := r.jobs.Complete(ctx, jobID); err != nil {
		log.Debug("completion lost to cancellation", "error", err)
		return
	}
	log.Info("job completed")
}

// processURL settles one URL. Scrape, persistence and summarizer errors
// all collapse into outcomes; nothing a single URL does can abort the job.
func (r *Runner) processURL(ctx context.Context, job *domain.ScrapingJob, pageURL string) domain.URLOutcome {
	content, err := r.scraper.Scrape(ctx, pageURL)
	if err != nil {
		return domain.URLOutcome{URL: pageURL, Kind: domain.OutcomeFailed, Reason: scrape.Reason(err)}
	}

	article := r.buildArticle(job, content)

	if r.summarizer != nil {
		if summary, err := r.summarizer.Summarize(ctx, article); err != nil {
			r.logger.Debug("summary skipped", "url", pageURL, "error", err)
		} else if summary != "" {
			article.Summary = summary
		}
	}

	// a store write that already began should finish even if the job
	// gets cancelled at this very moment
	id, err := r.articles.Create(context.WithoutCancel(ctx), article)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateURL) {
			if job.SkipDuplicates {
				return domain.URLOutcome{URL: pageURL, Kind: domain.OutcomeSkipped}
			}
			return domain.URLOutcome{URL: pageURL, Kind: domain.OutcomeFailed, Reason: "article already exists"}
		}
		return domain.URLOutcome{URL: pageURL, Kind: domain.OutcomeFailed, Reason: scrape.Reason(err)}
	}

	return domain.URLOutcome{URL: pageURL, Kind: domain.OutcomeCompleted, ArticleID: id}
}

func (r *Runner) buildArticle(job *domain.ScrapingJob, content domain.PageContent) domain.Article {
	title := content.Title
	if title == "" {
		title = content.URL
	}

	article := domain.Article{
		Title:       title,
		Content:     content.Body,
		URL:         content.URL,
		Source:      content.SiteName,
		Summary:     content.Description,
		PublishedAt: content.PublishedAt,
		ScrapedAt:   time.Now(),
		CreatedBy:   job.UserID,
	}
	if job.AutoTag {
		article.Tags = tagging.ForPage(content.URL, title, content.Body, content.Keywords)
	}
	return article
}
