// Package app wires configuration into the running service: storage,
// the scraping pipeline, the HTTP API and the daily scheduler.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	"newsdesk/internal/config"
	"newsdesk/internal/domain"
	"newsdesk/internal/infrastructure/discovery"
	"newsdesk/internal/infrastructure/feedfile"
	"newsdesk/internal/infrastructure/jobstore"
	"newsdesk/internal/infrastructure/llm"
	"newsdesk/internal/infrastructure/scheduler"
	"newsdesk/internal/infrastructure/scrape"
	"newsdesk/internal/infrastructure/storage"
	"newsdesk/internal/infrastructure/telegram"
	"newsdesk/internal/logging"
	"newsdesk/internal/ports"
	"newsdesk/internal/server"
	"newsdesk/internal/usecase"
)

const shutdownTimeout = 15 * time.Second

// Application owns the long-lived pieces and their lifecycle.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	db        *sql.DB
	runner    *usecase.Runner
	scheduler *usecase.Scheduler
	httpSrv   *http.Server
}

// New builds a runnable application. The database is optional: without
// a reachable Postgres the service still parses, scrapes and tracks
// jobs, it just skips persistence and storage dedup.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db := openDatabase(cfg.Database.DSN, baseLogger)
	articles := storage.NewPostgresArticles(db)
	schedules := storage.NewPostgresSchedules(db)
	jobs := jobstore.NewMemory(cfg.Jobs.RetainPerUser)
	feeds := feedfile.NewFile(cfg.Discovery.FeedsFile)

	fetcher := scrape.NewClient(cfg.Scraper.FetchTimeout(), cfg.Scraper.UserAgent, cfg.Scraper.MaxBodyBytes)
	pageScraper := scrape.NewPageScraper(fetcher, cfg.Scraper.Politeness(),
		baseLogger.With("component", "scraper"))

	var summarizer ports.Summarizer
	if cfg.ChatGPT.APIKey != "" {
		summarizer = llm.NewChatGPTClient(cfg.ChatGPT)
	}

	runner := usecase.NewRunner(jobs, articles, pageScraper, summarizer,
		cfg.Scraper.Politeness(), baseLogger.With("component", "runner"))
	ingestor := usecase.NewIngestor(articles, jobs, runner, pageScraper,
		cfg.Scraper.Politeness(), baseLogger.With("component", "ingestor"))

	rss := discovery.NewRSSSource(cfg.Discovery.FeedTimeout(), cfg.Discovery.RecencyWindow(),
		cfg.Scraper.UserAgent, baseLogger.With("component", "discovery.rss"))
	papers := discovery.NewArxivSource(cfg.Discovery.Papers.Endpoint, cfg.Discovery.FeedTimeout(),
		domain.PaperQuery{
			Categories: cfg.Discovery.Papers.Categories,
			MaxResults: cfg.Discovery.Papers.MaxResults,
			DaysBack:   cfg.Discovery.Papers.DaysBack,
		}, baseLogger.With("component", "discovery.arxiv"))
	discoverer := discovery.NewDiscoverer(feeds, rss, papers, cfg.Discovery.FeedDelay(),
		baseLogger.With("component", "discovery"))

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" && cfg.Notifications.Telegram.ChatID != "" {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	cronDriver := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location())
	sched := usecase.NewScheduler(cronDriver, schedules, discoverer, ingestor, notifier,
		baseLogger.With("component", "scheduler"))

	api := server.New(ingestor, sched, feeds, rss, papers, baseLogger.With("component", "http"))

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		db:        db,
		runner:    runner,
		scheduler: sched,
		httpSrv: &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           api.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Run starts the scheduler and the HTTP server, then blocks until ctx
// is cancelled or the server dies. Shutdown drains running jobs.
func (a *Application) Run(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", a.httpSrv.Addr)
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown requested")
	case runErr = <-errCh:
		a.logger.Error("http server stopped", "error", runErr)
	}

	a.shutdown()
	return runErr
}

func (a *Application) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.httpSrv.Shutdown(ctx); err != nil {
		a.logger.Warn("http shutdown incomplete", "error", err)
	}
	if err := a.scheduler.Stop(ctx); err != nil {
		a.logger.Warn("scheduler stop incomplete", "error", err)
	}
	if err := a.runner.Shutdown(ctx); err != nil {
		a.logger.Warn("worker shutdown incomplete", "error", err)
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("database close failed", "error", err)
		}
	}
}

// openDatabase connects to Postgres, or returns nil when the DSN is
// empty or the database is unreachable.
func openDatabase(dsn string, logger *slog.Logger) *sql.DB {
	if dsn == "" {
		logger.Warn("no database configured, articles will not be persisted")
		return nil
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.Warn("database open failed, continuing without persistence", "error", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		logger.Warn("database unreachable, continuing without persistence", "error", err)
		_ = db.Close()
		return nil
	}
	return db
}
