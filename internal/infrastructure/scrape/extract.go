package scrape

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"newsdesk/internal/domain"
)

// contentSelectors are tried in order for the article text; the first
// match with a reasonable amount of text wins.
var contentSelectors = []string{
	"article",
	`[role="main"]`,
	"main",
	".content",
	".post-content",
	".entry-content",
	".article-content",
	"#content",
	".main-content",
}

// minContentRunes guards against matching an empty wrapper div.
const minContentRunes = 100

// noiseSelector removes markup that never carries article text.
const noiseSelector = "script, style, noscript, nav, header, footer, aside, form, iframe"

// Extract runs the fallback chains over one fetched page.
func Extract(page *domain.Page) (domain.PageContent, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return domain.PageContent{}, fmt.Errorf("parse html: %w", err)
	}

	content := domain.PageContent{URL: page.URL}
	content.Title = extractTitle(doc)
	content.Description = extractDescription(doc)
	content.SiteName = extractSiteName(doc, page.URL)
	content.Keywords = extractKeywords(doc)
	content.PublishedAt = extractPublished(doc)
	// body extraction prunes the document, run it last
	content.Body = extractBody(doc)
	return content, nil
}

func extractTitle(doc *goquery.Document) string {
	if v := metaContent(doc, `meta[property="og:title"]`); v != "" {
		return v
	}
	if v := metaContent(doc, `meta[name="twitter:title"]`); v != "" {
		return v
	}
	if v := strings.TrimSpace(doc.Find("title").First().Text()); v != "" {
		return v
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

func extractDescription(doc *goquery.Document) string {
	if v := metaContent(doc, `meta[property="og:description"]`); v != "" {
		return v
	}
	return metaContent(doc, `meta[name="description"]`)
}

func extractKeywords(doc *goquery.Document) []string {
	raw := metaContent(doc, `meta[name="keywords"]`)
	if raw == "" {
		return nil
	}
	var keywords []string
	for _, kw := range strings.Split(raw, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

func extractSiteName(doc *goquery.Document, pageURL string) string {
	if v := metaContent(doc, `meta[property="og:site_name"]`); v != "" {
		return v
	}
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(u.Host, "www.")
}

func extractPublished(doc *goquery.Document) *time.Time {
	if t := publishedFromJSONLD(doc); t != nil {
		return t
	}

	for _, selector := range []string{
		`meta[property="article:published_time"]`,
		`meta[itemprop="datePublished"]`,
		`meta[name="date"]`,
		`meta[name="pubdate"]`,
		`meta[name="publish-date"]`,
	} {
		if t := parseDate(metaContent(doc, selector)); t != nil {
			return t
		}
	}

	if v, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
		return parseDate(v)
	}
	return nil
}

// publishedFromJSONLD looks for a datePublished field in any of the
// page's ld+json blocks, including @graph wrappers.
func publishedFromJSONLD(doc *goquery.Document) *time.Time {
	var found *time.Time
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var raw interface{}
		if err := json.Unmarshal([]byte(s.Text()), &raw); err != nil {
			return true
		}
		if t := datePublishedIn(raw); t != nil {
			found = t
			return false
		}
		return true
	})
	return found
}

func datePublishedIn(raw interface{}) *time.Time {
	switch v := raw.(type) {
	case map[string]interface{}:
		if s, ok := v["datePublished"].(string); ok {
			if t := parseDate(s); t != nil {
				return t
			}
		}
		if graph, ok := v["@graph"]; ok {
			return datePublishedIn(graph)
		}
	case []interface{}:
		for _, item := range v {
			if t := datePublishedIn(item); t != nil {
				return t
			}
		}
	}
	return nil
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	"January 2, 2006",
	"2 January 2006",
}

func parseDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}

func extractBody(doc *goquery.Document) string {
	doc.Find(noiseSelector).Remove()

	for _, selector := range contentSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		text := collapseText(sel.Text())
		if len([]rune(text)) >= minContentRunes {
			return text
		}
	}
	return collapseText(doc.Find("body").Text())
}

func metaContent(doc *goquery.Document, selector string) string {
	v, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(v)
}

func collapseText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
