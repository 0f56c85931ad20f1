package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func rssDocument(recent, stale time.Time) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example Tech News</title>
    <link>https://news.example</link>
    <item>
      <title>Fresh story</title>
      <link>https://news.example/fresh</link>
      <pubDate>%s</pubDate>
    </item>
    <item>
      <title>Stale story</title>
      <link>https://news.example/stale</link>
      <pubDate>%s</pubDate>
    </item>
    <item>
      <title>Undated story</title>
      <link>https://news.example/undated</link>
    </item>
    <item>
      <title>No link at all</title>
    </item>
  </channel>
</rss>`, recent.Format(time.RFC1123Z), stale.Format(time.RFC1123Z))
}

func TestRSSSourceKeepsFreshAndUndated(t *testing.T) {
	t.Parallel()

	now := time.Now()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssDocument(now.Add(-1*time.Hour), now.Add(-48*time.Hour))))
	}))
	defer server.Close()

	source := NewRSSSource(5*time.Second, 24*time.Hour, "newsdesk-test/1.0", nil)
	entries, err := source.Fetch(context.Background(), server.URL+"/feed.xml")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %+v", len(entries), entries)
	}
	if entries[0].URL != "https://news.example/fresh" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[0].Source != "Example Tech News" {
		t.Fatalf("expected channel title as source, got %q", entries[0].Source)
	}
	if entries[0].PublishedAt == nil {
		t.Fatalf("expected published date on fresh entry")
	}
	if entries[1].URL != "https://news.example/undated" {
		t.Fatalf("expected undated entry kept, got %+v", entries[1])
	}
	if entries[1].PublishedAt != nil {
		t.Fatalf("undated entry must carry no date")
	}
}

func TestRSSSourceReportsBrokenFeed(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	source := NewRSSSource(5*time.Second, 24*time.Hour, "", nil)
	if _, err := source.Fetch(context.Background(), server.URL+"/feed.xml"); err == nil {
		t.Fatalf("expected error for broken feed")
	}
}
