package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"newsdesk/internal/domain"
	"newsdesk/internal/ports"
)

const (
	// quality floor: papers below it are usually withdrawn stubs or listings
	minPaperAuthors    = 2
	minTitleWords      = 5
	maxFetchPerRequest = 100
)

// ArxivSource queries the arXiv export API (Atom) per category.
type ArxivSource struct {
	endpoint string
	parser   *gofeed.Parser
	timeout  time.Duration
	defaults domain.PaperQuery
	logger   *slog.Logger
}

var _ ports.PaperSource = (*ArxivSource)(nil)

// NewArxivSource wires the export API endpoint and query defaults.
func NewArxivSource(endpoint string, timeout time.Duration, defaults domain.PaperQuery, logger *slog.Logger) *ArxivSource {
	return &ArxivSource{
		endpoint: endpoint,
		parser:   gofeed.NewParser(),
		timeout:  timeout,
		defaults: defaults,
		logger:   logger,
	}
}

// Search fetches recent submissions per category, filters them to the
// requested window, drops low-quality entries, dedupes across categories
// and caps the result. A failing category is logged and skipped.
func (s *ArxivSource) Search(ctx context.Context, q domain.PaperQuery) ([]domain.Paper, error) {
	categories := q.Categories
	if len(categories) == 0 {
		categories = s.defaults.Categories
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("paper search: no categories")
	}

	maxResults := q.MaxResults
	if maxResults <= 0 {
		maxResults = s.defaults.MaxResults
	}
	daysBack := q.DaysBack
	if daysBack <= 0 {
		daysBack = s.defaults.DaysBack
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -daysBack)

	// over-fetch so the date and quality filters still leave enough
	batch := maxResults * 3
	if batch > maxFetchPerRequest {
		batch = maxFetchPerRequest
	}
	if batch < maxResults {
		batch = maxResults
	}

	seen := map[string]struct{}{}
	var papers []domain.Paper
	for _, cat := range categories {
		fetched, err := s.fetchCategory(ctx, cat, batch)
		if err != nil {
			s.warn("category fetch failed", "category", cat, "error", err)
			continue
		}
		for _, p := range fetched {
			if p.PublishedAt.Before(cutoff) {
				continue
			}
			if len(p.Authors) < minPaperAuthors || len(strings.Fields(p.Title)) < minTitleWords {
				continue
			}
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			papers = append(papers, p)
		}
	}

	sort.Slice(papers, func(i, j int) bool {
		return papers[i].PublishedAt.After(papers[j].PublishedAt)
	})
	if len(papers) > maxResults {
		papers = papers[:maxResults]
	}
	return papers, nil
}

func (s *ArxivSource) fetchCategory(ctx context.Context, category string, limit int) ([]domain.Paper, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	queryURL, err := buildQueryURL(s.endpoint, category, limit)
	if err != nil {
		return nil, err
	}

	feed, err := s.parser.ParseURLWithContext(queryURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("query arxiv: %w", err)
	}

	papers := make([]domain.Paper, 0, len(feed.Items))
	for _, item := range feed.Items {
		id := shortArxivID(item.GUID)
		if id == "" {
			id = shortArxivID(item.Link)
		}
		if id == "" {
			continue
		}

		authors := make([]string, 0, len(item.Authors))
		for _, a := range item.Authors {
			if a != nil && a.Name != "" {
				authors = append(authors, a.Name)
			}
		}

		published := time.Now().UTC()
		if item.PublishedParsed != nil {
			published = item.PublishedParsed.UTC()
		}

		papers = append(papers, domain.Paper{
			ID:          id,
			Title:       collapseSpace(item.Title),
			URL:         item.Link,
			Abstract:    collapseSpace(item.Description),
			Authors:     authors,
			Categories:  item.Categories,
			PublishedAt: published,
		})
	}

	s.debug("category fetched", "category", category, "papers", len(papers))
	return papers, nil
}

func buildQueryURL(endpoint, category string, limit int) (string, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %s: %w", endpoint, err)
	}

	query := parsed.Query()
	query.Set("search_query", "cat:"+category)
	query.Set("start", "0")
	query.Set("max_results", strconv.Itoa(limit))
	query.Set("sortBy", "submittedDate")
	query.Set("sortOrder", "descending")
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// shortArxivID turns "http://arxiv.org/abs/2501.00001v1" into "2501.00001v1".
func shortArxivID(raw string) string {
	if raw == "" {
		return ""
	}
	if idx := strings.LastIndex(raw, "/abs/"); idx >= 0 {
		return raw[idx+len("/abs/"):]
	}
	return raw
}

// collapseSpace squashes the newlines arXiv wraps titles and abstracts with.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (s *ArxivSource) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

func (s *ArxivSource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
