package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"newsdesk/internal/domain"
)

func atomEntry(id, title string, published time.Time, authors ...string) string {
	entry := fmt.Sprintf(`  <entry>
    <id>http://arxiv.org/abs/%s</id>
    <title>%s</title>
    <link href="http://arxiv.org/abs/%s" rel="alternate" type="text/html"/>
    <summary>Sample abstract text for %s.</summary>
    <published>%s</published>
    <updated>%s</updated>
    <category term="cs.AI" scheme="http://arxiv.org/schemas/atom"/>
`, id, title, id, id, published.Format(time.RFC3339), published.Format(time.RFC3339))
	for _, a := range authors {
		entry += fmt.Sprintf("    <author><name>%s</name></author>\n", a)
	}
	return entry + "  </entry>\n"
}

func atomDocument(entries ...string) string {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>ArXiv Query Results</title>
`
	for _, e := range entries {
		doc += e
	}
	return doc + "</feed>\n"
}

func TestArxivSourceFiltersAndDedupes(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	fresh := now.Add(-12 * time.Hour)
	old := now.AddDate(0, 0, -10)

	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if got := r.URL.Query().Get("search_query"); got != "cat:cs.AI" && got != "cat:cs.LG" {
			t.Errorf("unexpected search_query %q", got)
		}
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(atomDocument(
			atomEntry("2501.00001v1", "A Thorough Study of Neural Scaling Laws", fresh, "A. Author", "B. Author"),
			atomEntry("2501.00002v1", "Solo paper with enough words in title", fresh, "C. Alone"),
			atomEntry("2501.00003v1", "Too short", fresh, "D. Author", "E. Author"),
			atomEntry("2501.00004v1", "An Old Paper About Database Systems", old, "F. Author", "G. Author"),
		)))
	}))
	defer server.Close()

	source := NewArxivSource(server.URL, 5*time.Second, domain.PaperQuery{MaxResults: 20, DaysBack: 3}, nil)
	papers, err := source.Search(context.Background(), domain.PaperQuery{Categories: []string{"cs.AI", "cs.LG"}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if requests != 2 {
		t.Fatalf("expected one request per category, got %d", requests)
	}
	// only the first entry survives; the same id from the second
	// category is deduplicated
	if len(papers) != 1 {
		t.Fatalf("expected 1 paper, got %d: %+v", len(papers), papers)
	}
	p := papers[0]
	if p.ID != "2501.00001v1" {
		t.Fatalf("unexpected id: %s", p.ID)
	}
	if p.Title != "A Thorough Study of Neural Scaling Laws" {
		t.Fatalf("unexpected title: %q", p.Title)
	}
	if len(p.Authors) != 2 || p.Authors[0] != "A. Author" {
		t.Fatalf("unexpected authors: %v", p.Authors)
	}
	if len(p.Categories) == 0 || p.Categories[0] != "cs.AI" {
		t.Fatalf("unexpected categories: %v", p.Categories)
	}
}

func TestArxivSourceCapsResults(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var entries []string
		for i := 0; i < 6; i++ {
			id := fmt.Sprintf("2502.%05dv1", i)
			entries = append(entries, atomEntry(id,
				fmt.Sprintf("Another Perfectly Valid Paper Number %d", i),
				now.Add(-time.Duration(i)*time.Hour),
				"A. Author", "B. Author"))
		}
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(atomDocument(entries...)))
	}))
	defer server.Close()

	source := NewArxivSource(server.URL, 5*time.Second, domain.PaperQuery{MaxResults: 20, DaysBack: 3}, nil)
	papers, err := source.Search(context.Background(), domain.PaperQuery{Categories: []string{"cs.AI"}, MaxResults: 4})
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if len(papers) != 4 {
		t.Fatalf("expected cap at 4 papers, got %d", len(papers))
	}
	for i := 1; i < len(papers); i++ {
		if papers[i].PublishedAt.After(papers[i-1].PublishedAt) {
			t.Fatalf("papers not sorted newest first: %v", papers)
		}
	}
}

func TestShortArxivID(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"http://arxiv.org/abs/2501.00001v1": "2501.00001v1",
		"https://arxiv.org/abs/cs/0112017":  "cs/0112017",
		"2501.00001v1":                      "2501.00001v1",
		"":                                  "",
	}
	for raw, want := range cases {
		if got := shortArxivID(raw); got != want {
			t.Fatalf("shortArxivID(%q) = %q, want %q", raw, got, want)
		}
	}
}
