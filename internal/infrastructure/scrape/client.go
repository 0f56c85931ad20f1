// Package scrape fetches article pages and extracts their content.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"newsdesk/internal/domain"
	"newsdesk/internal/ports"
)

const (
	defaultFetchTimeout = 30 * time.Second
	defaultMaxBody      = 10 << 20

	// reasons stored on jobs are shown in the UI, keep them short
	maxReasonLen = 200
)

// Client performs bounded single-page fetches.
type Client struct {
	http      *http.Client
	userAgent string
	maxBody   int64
}

var _ ports.PageFetcher = (*Client)(nil)

// NewClient creates a reusable HTTP client for article pages.
func NewClient(timeout time.Duration, userAgent string, maxBody int64) *Client {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}
	if userAgent == "" {
		userAgent = "newsdesk/1.0"
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		userAgent: userAgent,
		maxBody:   maxBody,
	}
}

// Fetch downloads one page. Non-2xx responses and non-HTML payloads are
// errors; bodies larger than the cap are truncated.
func (c *Client) Fetch(ctx context.Context, pageURL string) (*domain.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return nil, fmt.Errorf("unsupported content type %q", ct)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &domain.Page{
		URL:        pageURL,
		Body:       body,
		StatusCode: resp.StatusCode,
		FetchedAt:  time.Now(),
	}, nil
}

// Reason converts a fetch or extract error into the short human-readable
// form stored on the job.
func Reason(err error) string {
	if err == nil {
		return ""
	}

	var uerr *url.Error
	if errors.As(err, &uerr) {
		if uerr.Timeout() {
			return "request timed out"
		}
		err = uerr.Err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}

	msg := err.Error()
	if len(msg) > maxReasonLen {
		msg = msg[:maxReasonLen]
	}
	return msg
}
