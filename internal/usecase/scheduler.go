package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"newsdesk/internal/domain"
	"newsdesk/internal/ports"
)

// watchInterval paces the digest watcher's job polls.
const watchInterval = 5 * time.Second

// Scheduler wires the cron-like driver with per-user daily discovery
// runs. A user's schedule fires at most once per calendar day even
// though the driver ticks every minute.
type Scheduler struct {
	driver     ports.Scheduler
	schedules  ports.ScheduleStore
	discoverer ports.Discoverer
	ingestor   *Ingestor
	notifier   ports.Notifier
	logger     *slog.Logger

	mu      sync.Mutex
	lastRun map[string]string

	watchEvery time.Duration
}

// NewScheduler returns a helper to start/stop the recurring discovery
// runs. notifier may be nil; digests are then skipped.
func NewScheduler(driver ports.Scheduler, schedules ports.ScheduleStore, discoverer ports.Discoverer,
	ingestor *Ingestor, notifier ports.Notifier, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		driver:     driver,
		schedules:  schedules,
		discoverer: discoverer,
		ingestor:   ingestor,
		notifier:   notifier,
		logger:     logger,
		lastRun:    make(map[string]string),
		watchEvery: watchInterval,
	}
}

// Start registers the tick loop with the provided scheduler driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.Tick(ctx, trigger)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

// Tick runs every enabled schedule whose time of day has passed and that
// has not run yet today. One user's failure never reaches another's run.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	if s.schedules == nil {
		return
	}

	configs, err := s.schedules.ListEnabled(ctx)
	if err != nil {
		s.logger.Error("listing schedules failed", "error", err)
		return
	}

	for _, sc := range configs {
		if !sc.DueAt(now) || !s.markRun(sc.UserID, now) {
			continue
		}
		s.runScheduled(ctx, sc)
	}
}

// RunNow triggers the user's discovery pipeline immediately, with the
// stored schedule settings or defaults when none are saved. It does not
// consume the user's scheduled slot for the day.
func (s *Scheduler) RunNow(ctx context.Context, userID string) (SubmitResult, error) {
	sc, err := s.schedules.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrScheduleNotFound) {
			return SubmitResult{}, err
		}
		sc = domain.ScheduleConfig{UserID: userID, AutoTag: true, SkipDuplicates: true}
	}
	return s.trigger(ctx, sc)
}

// SaveSchedule validates and persists the user's daily run settings.
func (s *Scheduler) SaveSchedule(ctx context.Context, cfg domain.ScheduleConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.UpdatedAt = time.Now()
	return s.schedules.Save(ctx, cfg)
}

// GetSchedule returns the user's stored settings.
func (s *Scheduler) GetSchedule(ctx context.Context, userID string) (domain.ScheduleConfig, error) {
	return s.schedules.Get(ctx, userID)
}

// DeleteSchedule removes the user's stored settings.
func (s *Scheduler) DeleteSchedule(ctx context.Context, userID string) error {
	return s.schedules.Delete(ctx, userID)
}

// markRun claims the user's run for now's calendar day. The claim is
// taken before the run starts, so a slow run cannot fire twice.
func (s *Scheduler) markRun(userID string, now time.Time) bool {
	day := now.Format("2006-01-02")

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRun[userID] == day {
		return false
	}
	s.lastRun[userID] = day
	return true
}

func (s *Scheduler) runScheduled(ctx context.Context, sc domain.ScheduleConfig) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled run panicked", "user", sc.UserID, "panic", r)
		}
	}()

	_, err := s.trigger(ctx, sc)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNoNewURLs):
		s.logger.Info("nothing new to scrape", "user", sc.UserID)
	case errors.Is(err, domain.ErrJobConflict):
		s.logger.Warn("active job blocked the scheduled run", "user", sc.UserID)
	default:
		s.logger.Error("scheduled run failed", "user", sc.UserID, "error", err)
	}
}

// trigger is the discovery-to-job pipeline shared by scheduled ticks and
// the manual run endpoint.
func (s *Scheduler) trigger(ctx context.Context, sc domain.ScheduleConfig) (SubmitResult, error) {
	report, err := s.discoverer.Discover(ctx, sc.IncludePapers, domain.PaperQuery{
		Categories: sc.PaperCategories,
		MaxResults: sc.PaperMaxResults,
	})
	if err != nil {
		return SubmitResult{}, fmt.Errorf("discover: %w", err)
	}
	if len(report.URLs) == 0 {
		return SubmitResult{}, domain.ErrNoNewURLs
	}

	res, err := s.ingestor.Submit(ctx, SubmitRequest{
		UserID:         sc.UserID,
		Text:           strings.Join(report.URLs, "\n"),
		AutoTag:        sc.AutoTag,
		SkipDuplicates: sc.SkipDuplicates,
	})
	if err != nil {
		return res, err
	}

	s.logger.Info("discovery job submitted", "user", sc.UserID, "job_id", res.JobID,
		"urls", res.Total, "feeds_ok", report.FeedsOK, "feeds_failed", report.FeedsFailed,
		"papers", len(report.Papers))
	s.watch(ctx, sc.UserID, res.JobID, report)
	return res, nil
}

// watch waits for the submitted job to settle, then publishes the digest.
func (s *Scheduler) watch(ctx context.Context, userID, jobID string, report domain.DiscoveryReport) {
	if s.notifier == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(s.watchEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			job, err := s.ingestor.Job(ctx, jobID, userID)
			if err != nil {
				s.logger.Warn("digest watch lost the job", "job_id", jobID, "error", err)
				return
			}
			if !job.Status.Terminal() {
				continue
			}

			if err := s.notifier.PublishDigest(ctx, buildDigest(job, report)); err != nil {
				s.logger.Warn("digest publish failed", "job_id", jobID, "error", err)
			}
			return
		}
	}()
}

func buildDigest(job domain.ScrapingJob, report domain.DiscoveryReport) string {
	line := fmt.Sprintf("Daily scrape %s for %s: %d new, %d failed, %d skipped of %d urls.",
		job.Status, job.UserID, len(job.CreatedArticles), len(job.FailedURLs),
		len(job.SkippedURLs), job.Total)
	if report.FeedsFailed > 0 {
		line += fmt.Sprintf(" Feeds: %d ok, %d broken.", report.FeedsOK, report.FeedsFailed)
	}
	if len(report.Papers) > 0 {
		line += fmt.Sprintf(" Papers found: %d.", len(report.Papers))
	}
	if report.PapersErr != "" {
		line += " Paper search failed."
	}
	return line
}
