package server

import (
	"net/http"
	"time"

	"newsdesk/internal/domain"
)

const feedSampleSize = 3

func (s *Server) handleGetFeeds(w http.ResponseWriter, r *http.Request) {
	text, err := s.feeds.Read(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "reading feed list failed")
		return
	}
	urls, err := s.feeds.URLs(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "reading feed list failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"text":       text,
		"feed_count": len(urls),
	})
}

func (s *Server) handlePutFeeds(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	count, err := s.feeds.Write(r.Context(), req.Text)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "writing feed list failed")
		return
	}
	s.logger.Info("feed list replaced", "user", userFrom(r), "feeds", count)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"feed_count": count})
}

// handleTestFeeds fetches each submitted feed once and reports per-feed
// reachability with a few sample entries. Nothing is persisted.
func (s *Server) handleTestFeeds(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Feeds []string `json:"feeds"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Feeds) == 0 {
		s.writeError(w, http.StatusBadRequest, "feeds is empty")
		return
	}

	type sampleEntry struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	}
	type feedCheck struct {
		Feed     string        `json:"feed"`
		Status   string        `json:"status"`
		Error    string        `json:"error,omitempty"`
		Articles int           `json:"articles"`
		Sample   []sampleEntry `json:"sample"`
	}

	results := make([]feedCheck, 0, len(req.Feeds))
	for _, feedURL := range req.Feeds {
		check := feedCheck{Feed: feedURL, Status: "ok", Sample: []sampleEntry{}}
		entries, err := s.rss.Fetch(r.Context(), feedURL)
		if err != nil {
			check.Status = "error"
			check.Error = err.Error()
		} else {
			check.Articles = len(entries)
			for _, e := range entries {
				if len(check.Sample) == feedSampleSize {
					break
				}
				check.Sample = append(check.Sample, sampleEntry{Title: e.Title, URL: e.URL})
			}
		}
		results = append(results, check)
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

func (s *Server) handleSearchPapers(w http.ResponseWriter, r *http.Request) {
	if s.papers == nil {
		s.writeError(w, http.StatusServiceUnavailable, "paper search is not configured")
		return
	}

	var req struct {
		Categories []string `json:"categories"`
		MaxResults int      `json:"max_results"`
		DaysBack   int      `json:"days_back"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	papers, err := s.papers.Search(r.Context(), domain.PaperQuery{
		Categories: req.Categories,
		MaxResults: req.MaxResults,
		DaysBack:   req.DaysBack,
	})
	if err != nil {
		s.writeError(w, http.StatusBadGateway, "paper search failed: "+err.Error())
		return
	}

	type paperResponse struct {
		ID          string    `json:"id"`
		Title       string    `json:"title"`
		URL         string    `json:"url"`
		Abstract    string    `json:"abstract"`
		Authors     []string  `json:"authors"`
		Categories  []string  `json:"categories"`
		PublishedAt time.Time `json:"published_at"`
	}
	out := make([]paperResponse, len(papers))
	for i, p := range papers {
		out[i] = paperResponse{
			ID:          p.ID,
			Title:       p.Title,
			URL:         p.URL,
			Abstract:    p.Abstract,
			Authors:     orEmpty(p.Authors),
			Categories:  orEmpty(p.Categories),
			PublishedAt: p.PublishedAt,
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"papers": out})
}
