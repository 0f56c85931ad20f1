package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"newsdesk/internal/domain"
	"newsdesk/internal/infrastructure/jobstore"
	"newsdesk/internal/ports"
)

type fakeArticles struct {
	mu       sync.Mutex
	existing map[string]bool
	dupOn    map[string]bool
	created  []domain.Article
}

func (f *fakeArticles) ExistsByURLs(_ context.Context, urls []string) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]bool)
	for _, u := range urls {
		if f.existing[u] {
			out[u] = true
		}
	}
	return out, nil
}

func (f *fakeArticles) Create(_ context.Context, article domain.Article) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dupOn[article.URL] {
		return "", domain.ErrDuplicateURL
	}
	f.created = append(f.created, article)
	return fmt.Sprintf("art-%d", len(f.created)), nil
}

func (f *fakeArticles) createdURLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	urls := make([]string, len(f.created))
	for i, a := range f.created {
		urls[i] = a.URL
	}
	return urls
}

// fakeScraper serves canned content. failOn URLs error, blockOn URLs
// park until the job context dies, release unblocks every waiter.
type fakeScraper struct {
	mu      sync.Mutex
	failOn  map[string]bool
	blockOn map[string]bool
	release chan struct{}
	reached chan string
	scraped []string
}

func (f *fakeScraper) Scrape(ctx context.Context, pageURL string) (domain.PageContent, error) {
	if f.reached != nil {
		f.reached <- pageURL
	}

	f.mu.Lock()
	blocked := f.blockOn[pageURL]
	f.mu.Unlock()
	if blocked {
		select {
		case <-f.release:
		case <-ctx.Done():
			return domain.PageContent{}, ctx.Err()
		}
	}

	f.mu.Lock()
	f.scraped = append(f.scraped, pageURL)
	failed := f.failOn[pageURL]
	f.mu.Unlock()

	if failed {
		return domain.PageContent{}, errors.New("connection refused")
	}
	return domain.PageContent{
		URL:         pageURL,
		Title:       "Title of " + pageURL,
		Description: "Short description.",
		Body:        "Long article text about kubernetes clusters.",
	}, nil
}

func (f *fakeScraper) sawURL(pageURL string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.scraped {
		if u == pageURL {
			return true
		}
	}
	return false
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestIngestor(articles ports.ArticleStore, scraper ports.Scraper) (*Ingestor, *jobstore.Memory) {
	store := jobstore.NewMemory(0)
	logger := discardLogger()
	runner := NewRunner(store, articles, scraper, nil, 0, logger)
	return NewIngestor(articles, store, runner, scraper, 0, logger), store
}

func waitTerminal(t *testing.T, store *jobstore.Memory, jobID string) domain.ScrapingJob {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		job, err := store.Get(context.Background(), jobID)
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		if job.Status.Terminal() {
			return job
		}
		if time.Now().After(deadline) {
			t.Fatalf("job %s stuck in %s", jobID, job.Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSubmitRunsJobToCompletion(t *testing.T) {
	t.Parallel()

	articles := &fakeArticles{}
	scraper := &fakeScraper{}
	ing, store := newTestIngestor(articles, scraper)

	res, err := ing.Submit(context.Background(), SubmitRequest{
		UserID:  "u1",
		Text:    "https://a.example/1\n- https://b.example/2\nhttps://c.example/3",
		AutoTag: true,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.JobID == "" || res.Total != 3 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.EstimatedSeconds != 6 {
		t.Fatalf("estimated seconds = %d", res.EstimatedSeconds)
	}

	job := waitTerminal(t, store, res.JobID)
	if job.Status != domain.JobCompleted {
		t.Fatalf("status = %s, error = %q", job.Status, job.Error)
	}
	if job.Progress != 3 || job.Total != 3 {
		t.Fatalf("progress %d/%d", job.Progress, job.Total)
	}
	if len(job.CompletedURLs) != 3 || len(job.CreatedArticles) != 3 {
		t.Fatalf("completed=%v created=%v", job.CompletedURLs, job.CreatedArticles)
	}
	if job.StartedAt == nil || job.CompletedAt == nil {
		t.Fatalf("missing timestamps: %+v", job)
	}

	articles.mu.Lock()
	defer articles.mu.Unlock()
	if len(articles.created) != 3 {
		t.Fatalf("expected 3 stored articles, got %d", len(articles.created))
	}
	first := articles.created[0]
	if first.CreatedBy != "u1" || first.Summary != "Short description." {
		t.Fatalf("unexpected article: %+v", first)
	}
	found := false
	for _, tag := range first.Tags {
		if tag == "Kubernetes" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected auto tag, got %v", first.Tags)
	}
}

func TestSubmitRejectsTextWithoutURLs(t *testing.T) {
	t.Parallel()

	ing, store := newTestIngestor(&fakeArticles{}, &fakeScraper{})

	res, err := ing.Submit(context.Background(), SubmitRequest{UserID: "u1", Text: "junk\nmore junk"})
	if !errors.Is(err, domain.ErrNoValidURLs) {
		t.Fatalf("expected ErrNoValidURLs, got %v", err)
	}
	if len(res.Invalid) != 2 {
		t.Fatalf("invalid = %v", res.Invalid)
	}

	jobs, _ := store.ListByUser(context.Background(), "u1", 10, 0)
	if len(jobs) != 0 {
		t.Fatalf("no job should exist, got %d", len(jobs))
	}
}

func TestSubmitSkipsAlreadyStoredURLs(t *testing.T) {
	t.Parallel()

	articles := &fakeArticles{existing: map[string]bool{"https://a.example/old": true}}
	scraper := &fakeScraper{}
	ing, store := newTestIngestor(articles, scraper)

	res, err := ing.Submit(context.Background(), SubmitRequest{
		UserID:         "u1",
		Text:           "https://a.example/old\nhttps://a.example/new",
		SkipDuplicates: true,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(res.Skipped) != 1 || res.Skipped[0] != "https://a.example/old" {
		t.Fatalf("skipped = %v", res.Skipped)
	}
	if res.Total != 1 {
		t.Fatalf("total = %d", res.Total)
	}

	job := waitTerminal(t, store, res.JobID)
	if job.Status != domain.JobCompleted {
		t.Fatalf("status = %s", job.Status)
	}
	if len(job.SkippedURLs) != 1 || len(job.CreatedArticles) != 1 {
		t.Fatalf("skipped=%v created=%v", job.SkippedURLs, job.CreatedArticles)
	}
	if job.Progress != 1 || job.Total != 1 {
		t.Fatalf("progress %d/%d", job.Progress, job.Total)
	}
	if scraper.sawURL("https://a.example/old") {
		t.Fatalf("stored url should not have been fetched")
	}
}

func TestSubmitAllURLsAlreadyStored(t *testing.T) {
	t.Parallel()

	articles := &fakeArticles{existing: map[string]bool{
		"https://a.example/1": true,
		"https://a.example/2": true,
	}}
	ing, store := newTestIngestor(articles, &fakeScraper{})

	res, err := ing.Submit(context.Background(), SubmitRequest{
		UserID:         "u1",
		Text:           "https://a.example/1\nhttps://a.example/2",
		SkipDuplicates: true,
	})
	if !errors.Is(err, domain.ErrNoNewURLs) {
		t.Fatalf("expected ErrNoNewURLs, got %v", err)
	}
	if len(res.Skipped) != 2 {
		t.Fatalf("skipped = %v", res.Skipped)
	}

	jobs, _ := store.ListByUser(context.Background(), "u1", 10, 0)
	if len(jobs) != 0 {
		t.Fatalf("no job should exist, got %d", len(jobs))
	}
}

func TestSubmitConflictWhileJobActive(t *testing.T) {
	t.Parallel()

	scraper := &fakeScraper{
		blockOn: map[string]bool{"https://slow.example/1": true},
		release: make(chan struct{}),
	}
	ing, store := newTestIngestor(&fakeArticles{}, scraper)

	first, err := ing.Submit(context.Background(), SubmitRequest{UserID: "u1", Text: "https://slow.example/1"})
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}

	_, err = ing.Submit(context.Background(), SubmitRequest{UserID: "u1", Text: "https://other.example/2"})
	if !errors.Is(err, domain.ErrJobConflict) {
		t.Fatalf("expected ErrJobConflict, got %v", err)
	}

	// the losing submission must not disturb the running job
	job, _ := store.Get(context.Background(), first.JobID)
	if job.Status.Terminal() {
		t.Fatalf("first job should still be active, got %s", job.Status)
	}

	close(scraper.release)
	if got := waitTerminal(t, store, first.JobID); got.Status != domain.JobCompleted {
		t.Fatalf("first job = %s", got.Status)
	}

	if _, err := ing.Submit(context.Background(), SubmitRequest{UserID: "u1", Text: "https://third.example/3"}); err != nil {
		t.Fatalf("submit after completion: %v", err)
	}
}

func TestJobCompletesDespitePerURLFailures(t *testing.T) {
	t.Parallel()

	scraper := &fakeScraper{failOn: map[string]bool{"https://bad.example/x": true}}
	articles := &fakeArticles{}
	ing, store := newTestIngestor(articles, scraper)

	res, err := ing.Submit(context.Background(), SubmitRequest{
		UserID: "u1",
		Text:   "https://good.example/1\nhttps://bad.example/x\nhttps://good.example/2",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	job := waitTerminal(t, store, res.JobID)
	if job.Status != domain.JobCompleted {
		t.Fatalf("status = %s", job.Status)
	}
	if job.Progress != 3 || job.Total != 3 {
		t.Fatalf("progress %d/%d", job.Progress, job.Total)
	}
	if len(job.FailedURLs) != 1 || job.FailedURLs[0].URL != "https://bad.example/x" {
		t.Fatalf("failed = %v", job.FailedURLs)
	}
	if job.FailedURLs[0].Reason == "" {
		t.Fatalf("failure reason must not be empty")
	}
	created := articles.createdURLs()
	if len(created) != 2 || created[0] != "https://good.example/1" || created[1] != "https://good.example/2" {
		t.Fatalf("created = %v", created)
	}
}

func TestCancelFreezesProgress(t *testing.T) {
	t.Parallel()

	scraper := &fakeScraper{
		blockOn: map[string]bool{"https://b.example/2": true},
		release: make(chan struct{}),
		reached: make(chan string, 8),
	}
	ing, store := newTestIngestor(&fakeArticles{}, scraper)

	res, err := ing.Submit(context.Background(), SubmitRequest{
		UserID: "u1",
		Text:   "https://a.example/1\nhttps://b.example/2\nhttps://c.example/3",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// first URL finishes, second is in flight
	if got := <-scraper.reached; got != "https://a.example/1" {
		t.Fatalf("first scrape = %s", got)
	}
	if got := <-scraper.reached; got != "https://b.example/2" {
		t.Fatalf("second scrape = %s", got)
	}

	ok, err := ing.Cancel(context.Background(), res.JobID, "u1")
	if err != nil || !ok {
		t.Fatalf("cancel: ok=%v err=%v", ok, err)
	}

	job := waitTerminal(t, store, res.JobID)
	if job.Status != domain.JobCancelled {
		t.Fatalf("status = %s", job.Status)
	}
	if job.Error != "User cancelled" {
		t.Fatalf("error = %q", job.Error)
	}
	if len(job.CompletedURLs) != 1 || job.Progress != 1 {
		t.Fatalf("progress frozen at %d, completed %v", job.Progress, job.CompletedURLs)
	}
	if scraper.sawURL("https://c.example/3") {
		t.Fatalf("third url must never be fetched")
	}

	// cancelling a settled job reports false
	ok, err = ing.Cancel(context.Background(), res.JobID, "u1")
	if err != nil || ok {
		t.Fatalf("second cancel: ok=%v err=%v", ok, err)
	}
}

func TestMidRunDuplicateFollowsSkipFlag(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name string
		skip bool
	}{
		{"skip", true},
		{"fail", false},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			articles := &fakeArticles{dupOn: map[string]bool{"https://dup.example/x": true}}
			ing, store := newTestIngestor(articles, &fakeScraper{})

			res, err := ing.Submit(context.Background(), SubmitRequest{
				UserID:         "u1",
				Text:           "https://dup.example/x\nhttps://ok.example/y",
				SkipDuplicates: tc.skip,
			})
			if err != nil {
				t.Fatalf("submit: %v", err)
			}

			job := waitTerminal(t, store, res.JobID)
			if job.Status != domain.JobCompleted {
				t.Fatalf("status = %s", job.Status)
			}
			if tc.skip {
				if len(job.SkippedURLs) != 1 || len(job.FailedURLs) != 0 {
					t.Fatalf("skipped=%v failed=%v", job.SkippedURLs, job.FailedURLs)
				}
			} else {
				if len(job.FailedURLs) != 1 || job.FailedURLs[0].Reason != "article already exists" {
					t.Fatalf("failed = %v", job.FailedURLs)
				}
			}
			if len(job.CreatedArticles) != 1 {
				t.Fatalf("created = %v", job.CreatedArticles)
			}
		})
	}
}

func TestJobIsScopedToItsOwner(t *testing.T) {
	t.Parallel()

	ing, store := newTestIngestor(&fakeArticles{}, &fakeScraper{})

	res, err := ing.Submit(context.Background(), SubmitRequest{UserID: "u1", Text: "https://a.example/1"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitTerminal(t, store, res.JobID)

	if _, err := ing.Job(context.Background(), res.JobID, "intruder"); !errors.Is(err, domain.ErrJobNotFound) {
		t.Fatalf("foreign get: %v", err)
	}
	if _, err := ing.Cancel(context.Background(), res.JobID, "intruder"); !errors.Is(err, domain.ErrJobNotFound) {
		t.Fatalf("foreign cancel: %v", err)
	}
	if err := ing.Delete(context.Background(), res.JobID, "intruder"); !errors.Is(err, domain.ErrJobNotFound) {
		t.Fatalf("foreign delete: %v", err)
	}
	if err := ing.Delete(context.Background(), res.JobID, "u1"); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
}

func TestDryRunReportsWithoutSideEffects(t *testing.T) {
	t.Parallel()

	articles := &fakeArticles{existing: map[string]bool{"https://a.example/old": true}}
	ing, store := newTestIngestor(articles, &fakeScraper{})

	report, err := ing.DryRun(context.Background(), "https://a.example/old\nhttps://a.example/new\nnot a url")
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if len(report.Valid) != 2 || len(report.Invalid) != 1 {
		t.Fatalf("report = %+v", report)
	}
	if len(report.Existing) != 1 || report.Existing[0] != "https://a.example/old" {
		t.Fatalf("existing = %v", report.Existing)
	}
	if report.EstimatedSeconds != 2 {
		t.Fatalf("estimated = %d", report.EstimatedSeconds)
	}

	jobs, _ := store.ListByUser(context.Background(), "u1", 10, 0)
	if len(jobs) != 0 {
		t.Fatalf("dry run created a job")
	}

	if _, err := ing.DryRun(context.Background(), "   "); !errors.Is(err, domain.ErrNoValidURLs) {
		t.Fatalf("empty dry run: %v", err)
	}
}

func TestPreviewScrapesOneURL(t *testing.T) {
	t.Parallel()

	articles := &fakeArticles{existing: map[string]bool{"https://seen.example/x": true}}
	scraper := &fakeScraper{failOn: map[string]bool{"https://bad.example/x": true}}
	ing, _ := newTestIngestor(articles, scraper)

	res, err := ing.Preview(context.Background(), "https://seen.example/x")
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if !res.IsDuplicate || res.Title == "" || res.Error != "" {
		t.Fatalf("unexpected preview: %+v", res)
	}
	if len(res.SuggestedTags) == 0 {
		t.Fatalf("expected suggested tags")
	}

	res, err = ing.Preview(context.Background(), "https://bad.example/x")
	if err != nil {
		t.Fatalf("preview of broken page: %v", err)
	}
	if res.Error == "" || res.IsDuplicate {
		t.Fatalf("unexpected preview: %+v", res)
	}

	if _, err := ing.Preview(context.Background(), "notaurl"); !errors.Is(err, domain.ErrNoValidURLs) {
		t.Fatalf("invalid preview url: %v", err)
	}
}
