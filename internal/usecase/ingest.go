package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"newsdesk/internal/domain"
	"newsdesk/internal/infrastructure/scrape"
	"newsdesk/internal/ports"
	"newsdesk/internal/tagging"
	"newsdesk/internal/urlparse"
)

// SubmitRequest is one batch of URLs pasted by a user.
type SubmitRequest struct {
	UserID         string
	Text           string
	AutoTag        bool
	SkipDuplicates bool
}

// SubmitResult reports what the submission turned into.
type SubmitResult struct {
	JobID            string
	Valid            []string
	Invalid          []urlparse.InvalidLine
	Duplicates       []string
	Skipped          []string
	Total            int
	EstimatedSeconds int
}

// ParseReport is the synchronous answer to a parse-only request.
// Existing lists valid URLs that are already in the article store.
type ParseReport struct {
	Valid            []string
	Invalid          []urlparse.InvalidLine
	Duplicates       []string
	Existing         []string
	Lines            int
	EstimatedSeconds int
}

// PreviewResult is the dry-run scrape of one URL.
type PreviewResult struct {
	URL           string
	Title         string
	Description   string
	SiteName      string
	SuggestedTags []string
	IsDuplicate   bool
	Error         string
}

// previewTimeout bounds the single-URL preview fetch; previews back an
// interactive form and cannot afford the full fetch budget.
const previewTimeout = 15 * time.Second

// Ingestor turns pasted URL batches into scraping jobs and answers
// questions about them.
type Ingestor struct {
	articles   ports.ArticleStore
	jobs       ports.JobStore
	runner     *Runner
	scraper    ports.Scraper
	politeness time.Duration
	logger     *slog.Logger
}

// NewIngestor wires the submission front of the scraping pipeline.
func NewIngestor(articles ports.ArticleStore, jobs ports.JobStore, runner *Runner,
	scraper ports.Scraper, politeness time.Duration, logger *slog.Logger) *Ingestor {
	return &Ingestor{
		articles:   articles,
		jobs:       jobs,
		runner:     runner,
		scraper:    scraper,
		politeness: politeness,
		logger:     logger,
	}
}

// DryRun classifies pasted text without creating a job.
func (in *Ingestor) DryRun(ctx context.Context, text string) (ParseReport, error) {
	parsed := urlparse.Parse(text)
	report := ParseReport{
		Valid:      parsed.Valid,
		Invalid:    parsed.Invalid,
		Duplicates: parsed.Duplicates,
		Lines:      parsed.Lines,
	}
	if len(parsed.Valid) == 0 {
		return report, domain.ErrNoValidURLs
	}

	if known, err := in.articles.ExistsByURLs(ctx, parsed.Valid); err != nil {
		in.logger.Warn("duplicate lookup failed", "error", err)
	} else if len(known) > 0 {
		for _, u := range parsed.Valid {
			if known[u] {
				report.Existing = append(report.Existing, u)
			}
		}
	}
	report.EstimatedSeconds = int(urlparse.EstimateDuration(
		len(parsed.Valid)-len(report.Existing), in.politeness) / time.Second)
	return report, nil
}

// Preview scrapes one URL on a short leash and reports what an article
// built from it would look like. Fetch problems land in the Error field;
// only a malformed URL is an error.
func (in *Ingestor) Preview(ctx context.Context, pageURL string) (PreviewResult, error) {
	if !urlparse.IsValid(pageURL) {
		return PreviewResult{}, domain.ErrNoValidURLs
	}

	res := PreviewResult{URL: pageURL}
	if known, err := in.articles.ExistsByURLs(ctx, []string{pageURL}); err != nil {
		in.logger.Warn("duplicate lookup failed", "error", err)
	} else {
		res.IsDuplicate = known[pageURL]
	}

	cctx, cancel := context.WithTimeout(ctx, previewTimeout)
	defer cancel()
	content, err := in.scraper.Scrape(cctx, pageURL)
	if err != nil {
		res.Error = scrape.Reason(err)
		return res, nil
	}

	res.Title = content.Title
	res.Description = content.Description
	res.SiteName = content.SiteName
	res.SuggestedTags = tagging.ForPage(pageURL, content.Title, content.Body, content.Keywords)
	return res, nil
}

// Submit validates the pasted text, drops already-scraped URLs when asked
// to, creates the job and launches its worker.
func (in *Ingestor) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	parsed := urlparse.Parse(req.Text)
	if len(parsed.Valid) == 0 {
		return SubmitResult{Invalid: parsed.Invalid, Duplicates: parsed.Duplicates}, domain.ErrNoValidURLs
	}

	toFetch := parsed.Valid
	var skipped []string
	if req.SkipDuplicates {
		known, err := in.articles.ExistsByURLs(ctx, parsed.Valid)
		if err != nil {
			// the insert path still dedupes, a failed lookup only
			// costs wasted fetches
			in.logger.Warn("duplicate lookup failed", "error", err)
		} else if len(known) > 0 {
			toFetch = nil
			for _, u := range parsed.Valid {
				if known[u] {
					skipped = append(skipped, u)
				} else {
					toFetch = append(toFetch, u)
				}
			}
		}
	}

	if len(toFetch) == 0 {
		return SubmitResult{
			Valid:      parsed.Valid,
			Invalid:    parsed.Invalid,
			Duplicates: parsed.Duplicates,
			Skipped:    skipped,
		}, domain.ErrNoNewURLs
	}

	job := domain.ScrapingJob{
		ID:             uuid.NewString(),
		UserID:         req.UserID,
		URLs:           toFetch,
		AutoTag:        req.AutoTag,
		SkipDuplicates: req.SkipDuplicates,
		SkippedURLs:    skipped,
	}
	if err := in.jobs.Create(ctx, &job); err != nil {
		return SubmitResult{}, err
	}

	in.runner.Launch(job.ID)
	in.logger.Info("job submitted", "job_id", job.ID, "user", req.UserID,
		"urls", len(toFetch), "skipped", len(skipped))

	return SubmitResult{
		JobID:            job.ID,
		Valid:            parsed.Valid,
		Invalid:          parsed.Invalid,
		Duplicates:       parsed.Duplicates,
		Skipped:          skipped,
		Total:            len(toFetch),
		EstimatedSeconds: int(urlparse.EstimateDuration(len(toFetch), in.politeness) / time.Second),
	}, nil
}

// Job returns one of the user's jobs.
func (in *Ingestor) Job(ctx context.Context, jobID, userID string) (domain.ScrapingJob, error) {
	job, err := in.jobs.Get(ctx, jobID)
	if err != nil {
		return domain.ScrapingJob{}, err
	}
	if job.UserID != userID {
		return domain.ScrapingJob{}, domain.ErrJobNotFound
	}
	return job, nil
}

// Jobs lists the user's jobs, newest first.
func (in *Ingestor) Jobs(ctx context.Context, userID string, limit, offset int) ([]domain.ScrapingJob, error) {
	return in.jobs.ListByUser(ctx, userID, limit, offset)
}

// Cancel stops a job. It reports false when the job had already finished
// on its own.
func (in *Ingestor) Cancel(ctx context.Context, jobID, userID string) (bool, error) {
	ok, err := in.jobs.Cancel(ctx, jobID, userID)
	if err != nil {
		return false, err
	}
	if ok {
		in.runner.Interrupt(jobID)
		in.logger.Info("job cancelled", "job_id", jobID, "user", userID)
	}
	return ok, nil
}

// Delete removes a finished job from the user's history.
func (in *Ingestor) Delete(ctx context.Context, jobID, userID string) error {
	return in.jobs.Delete(ctx, jobID, userID)
}
