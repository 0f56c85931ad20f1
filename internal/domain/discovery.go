package domain

import "time"

// FeedEntry is one article link discovered in an RSS feed.
type FeedEntry struct {
	Title       string
	URL         string
	Source      string
	PublishedAt *time.Time
}

// FeedResult collects one feed's discovered entries or its failure.
// A non-empty Err means the feed was unreachable or unparsable; the
// discovery pass keeps going either way.
type FeedResult struct {
	FeedURL string
	Entries []FeedEntry
	Err     string
}

// Paper is an academic paper discovered through the paper search API.
type Paper struct {
	ID          string
	Title       string
	URL         string
	Abstract    string
	Authors     []string
	Categories  []string
	PublishedAt time.Time
}

// PaperQuery bounds one paper search pass.
type PaperQuery struct {
	Categories []string
	MaxResults int
	DaysBack   int
}

// DiscoveryReport summarizes one discovery pass across all sources.
// URLs is deduplicated and ordered feeds first, papers after. A
// non-empty PapersErr means the paper API was queried and failed; the
// feed results stand regardless.
type DiscoveryReport struct {
	URLs        []string
	FeedResults []FeedResult
	Papers      []Paper
	FeedsOK     int
	FeedsFailed int
	PapersErr   string
}
