package scrape

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"newsdesk/internal/domain"
	"newsdesk/internal/ports"
)

// PageScraper fetches one page politely and extracts its content.
type PageScraper struct {
	fetcher ports.PageFetcher
	limiter *hostLimiter
	logger  *slog.Logger
}

var _ ports.Scraper = (*PageScraper)(nil)

// NewPageScraper wires the fetch client with shared per-host spacing.
func NewPageScraper(fetcher ports.PageFetcher, politeness time.Duration, logger *slog.Logger) *PageScraper {
	return &PageScraper{
		fetcher: fetcher,
		limiter: newHostLimiter(politeness),
		logger:  logger,
	}
}

// Scrape waits for the host's slot, then fetches and extracts. Both the
// wait and the fetch abort when ctx dies, so preview deadlines and
// shutdown drains bound the whole call.
func (s *PageScraper) Scrape(ctx context.Context, pageURL string) (domain.PageContent, error) {
	if err := s.limiter.wait(ctx, hostOf(pageURL)); err != nil {
		return domain.PageContent{}, err
	}

	page, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return domain.PageContent{}, err
	}

	content, err := Extract(page)
	if err != nil {
		return domain.PageContent{}, err
	}

	if content.Title == "" {
		s.warn("page has no title", "url", pageURL)
	}
	s.debug("page scraped", "url", pageURL, "bytes", len(page.Body), "has_title", content.Title != "")
	return content, nil
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}

func (s *PageScraper) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

func (s *PageScraper) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
