// Package tagging derives article tags from a fixed tech vocabulary.
package tagging

import "strings"

// maxTags caps how many tags one article receives.
const maxTags = 10

// tagTerms maps lowercase substrings to canonical tags. Order matters:
// earlier terms win when the cap is reached.
var tagTerms = []struct {
	term string
	tag  string
}{
	{"kubernetes", "Kubernetes"},
	{"k8s", "Kubernetes"},
	{"docker", "Docker"},
	{"container", "Containers"},
	{"golang", "Go"},
	{"python", "Python"},
	{"javascript", "JavaScript"},
	{"typescript", "TypeScript"},
	{"rust", "Rust"},
	{"react", "React"},
	{"linux", "Linux"},
	{"windows", "Windows"},
	{"macos", "macOS"},
	{"android", "Android"},
	{"machine learning", "Machine Learning"},
	{"deep learning", "Machine Learning"},
	{"neural network", "Machine Learning"},
	{"artificial intelligence", "AI"},
	{" ai ", "AI"},
	{"llm", "LLM"},
	{"gpt", "LLM"},
	{"openai", "OpenAI"},
	{"security", "Security"},
	{"vulnerability", "Security"},
	{"exploit", "Security"},
	{"database", "Databases"},
	{"postgresql", "PostgreSQL"},
	{"postgres", "PostgreSQL"},
	{"mysql", "MySQL"},
	{"redis", "Redis"},
	{"aws", "AWS"},
	{"amazon web services", "AWS"},
	{"azure", "Azure"},
	{"google cloud", "Google Cloud"},
	{"cloud", "Cloud"},
	{"devops", "DevOps"},
	{"ci/cd", "DevOps"},
	{"api", "API"},
	{"microservice", "Microservices"},
	{"blockchain", "Blockchain"},
	{"quantum", "Quantum Computing"},
	{"startup", "Startups"},
	{"open source", "Open Source"},
	{"opensource", "Open Source"},
}

// ForPage tags one scraped page: vocabulary matches first, then the
// arXiv marker tags, then the page's own meta keywords, all under the
// same cap. Dedup is case-insensitive so "AI" beats a later "ai".
func ForPage(pageURL, title, body string, keywords []string) []string {
	tags := Suggest(title, body)
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		seen[strings.ToLower(t)] = struct{}{}
	}

	add := func(tag string) {
		tag = strings.TrimSpace(tag)
		if tag == "" || len(tags) >= maxTags {
			return
		}
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		tags = append(tags, tag)
	}

	lowerURL := strings.ToLower(pageURL)
	if strings.Contains(lowerURL, "arxiv.org") || strings.Contains(lowerURL, "/abs/") {
		add("arxiv")
		add("paper")
	}
	for _, kw := range keywords {
		add(kw)
	}
	return tags
}

// Suggest scans title and content for known tech terms and returns
// canonical tags, deduplicated and capped.
func Suggest(title, content string) []string {
	haystack := " " + strings.ToLower(title+" "+content) + " "

	var tags []string
	seen := make(map[string]struct{}, maxTags)
	for _, t := range tagTerms {
		if len(tags) == maxTags {
			break
		}
		if !strings.Contains(haystack, t.term) {
			continue
		}
		if _, dup := seen[t.tag]; dup {
			continue
		}
		seen[t.tag] = struct{}{}
		tags = append(tags, t.tag)
	}
	return tags
}
