// Package urlparse turns free-form pasted text into scrapeable URLs.
package urlparse

import (
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Extraction patterns, applied per input line. Markdown and href forms
// carry the URL in a capture group; the bare form is the whole match.
var (
	markdownPattern = regexp.MustCompile(`(?i)\[[^\]]*\]\((https?://[^)\s]+)\)`)
	hrefPattern     = regexp.MustCompile(`(?i)href=["']?(https?://[^"'>\s]+)`)
	barePattern     = regexp.MustCompile(`(?i)https?://[^\s\]>"']+`)
	bulletPrefix    = regexp.MustCompile(`^[-*+•]+\s*`)
)

// InvalidLine is a rejected input line and the reason it was rejected.
type InvalidLine struct {
	Line   string
	Reason string
}

// Result buckets one pasted batch into disjoint sets. Valid keeps first
// occurrences in input order; Duplicates records later occurrences of a
// URL already accepted within the same batch.
type Result struct {
	Valid      []string
	Invalid    []InvalidLine
	Duplicates []string
	Lines      int
}

// Parse splits text into lines, extracts the URLs each line carries and
// classifies them. Bullet markers, Markdown links and pasted HTML are
// tolerated; a line that does not resolve to an absolute http(s) URL is
// reported back as invalid. Duplicate detection compares normalized
// forms but the original spelling is what gets kept.
func Parse(text string) Result {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Result{}
	}

	lines := strings.Split(trimmed, "\n")
	res := Result{Lines: len(lines)}
	seen := make(map[string]bool)

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		candidates := extractURLs(line)
		if len(candidates) == 0 {
			res.Invalid = append(res.Invalid, InvalidLine{Line: line, Reason: "not a valid URL"})
			continue
		}

		for _, candidate := range candidates {
			key, ok := normalize(candidate)
			if !ok {
				res.Invalid = append(res.Invalid, InvalidLine{Line: candidate, Reason: "not a valid URL"})
				continue
			}
			if seen[key] {
				res.Duplicates = append(res.Duplicates, candidate)
				continue
			}
			seen[key] = true
			res.Valid = append(res.Valid, candidate)
		}
	}
	return res
}

// IsValid reports whether raw is an absolute http(s) URL with a host.
func IsValid(raw string) bool {
	_, ok := normalize(raw)
	return ok
}

// assumedPageSeconds is the rough fetch+extract time for one page.
const assumedPageSeconds = 2

// EstimateDuration predicts wall time for scraping n pages spaced by the
// politeness pause.
func EstimateDuration(n int, politeness time.Duration) time.Duration {
	if n <= 0 {
		return 0
	}
	d := time.Duration(n) * assumedPageSeconds * time.Second
	if n > 1 {
		d += time.Duration(n-1) * politeness
	}
	return d
}

// extractURLs pulls every URL candidate out of one line. The same URL
// matched by two patterns is reported once.
func extractURLs(line string) []string {
	var urls []string
	add := func(u string) {
		u = trimWrapping(u)
		for _, have := range urls {
			if have == u {
				return
			}
		}
		urls = append(urls, u)
	}

	for _, m := range markdownPattern.FindAllStringSubmatch(line, -1) {
		add(m[1])
	}
	for _, m := range hrefPattern.FindAllStringSubmatch(line, -1) {
		add(m[1])
	}
	for _, m := range barePattern.FindAllString(line, -1) {
		add(m)
	}
	if len(urls) > 0 {
		return urls
	}

	// a bulleted line whose payload is the URL itself
	stripped := bulletPrefix.ReplaceAllString(line, "")
	if IsValid(stripped) {
		urls = append(urls, stripped)
	}
	return urls
}

// trimWrapping strips punctuation commonly glued to a pasted URL. A
// closing bracket survives when the URL itself opened it.
func trimWrapping(u string) string {
	for {
		trimmed := strings.TrimRight(u, ".,;:!?'\"")
		if strings.HasSuffix(trimmed, ")") && !strings.Contains(trimmed, "(") {
			trimmed = strings.TrimSuffix(trimmed, ")")
		}
		if strings.HasSuffix(trimmed, "]") && !strings.Contains(trimmed, "[") {
			trimmed = strings.TrimSuffix(trimmed, "]")
		}
		trimmed = strings.TrimSuffix(trimmed, ">")
		if trimmed == u {
			return trimmed
		}
		u = trimmed
	}
}

// normalize returns the comparison form of raw: host lowercased and the
// trailing slash dropped from non-root paths. Path casing is preserved.
func normalize(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	u.Host = strings.ToLower(u.Host)
	if len(u.Path) > 1 {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	return u.String(), true
}
