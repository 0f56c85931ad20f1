package domain

import "time"

// Article is the stored record a successful scrape produces, keyed by
// normalized URL (unique at the storage layer).
type Article struct {
	ID          string
	Title       string
	Content     string
	URL         string
	Source      string
	Summary     string
	Tags        []string
	PublishedAt *time.Time
	ScrapedAt   time.Time
	CreatedBy   string
}

// PageContent is the metadata extracted from one fetched article page.
// Every field except URL is optional; a missing value falls back rather
// than failing the scrape.
type PageContent struct {
	URL         string
	Title       string
	Description string
	SiteName    string
	Body        string
	Keywords    []string
	PublishedAt *time.Time
}

// Page is a fetched HTML document plus the response metadata the
// extractor chain needs.
type Page struct {
	URL        string
	Body       []byte
	StatusCode int
	FetchedAt  time.Time
}
