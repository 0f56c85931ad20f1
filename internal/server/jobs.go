package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"newsdesk/internal/domain"
	"newsdesk/internal/urlparse"
	"newsdesk/internal/usecase"
)

const defaultJobsLimit = 20

type failedURLResponse struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

type invalidLineResponse struct {
	Line   string `json:"line"`
	Reason string `json:"reason"`
}

// jobResponse is the polling snapshot of one job. List fields are
// always present, so UI code never branches on null.
type jobResponse struct {
	ID              string              `json:"id"`
	Status          string              `json:"status"`
	Progress        int                 `json:"progress"`
	Total           int                 `json:"total"`
	CompletedURLs   []string            `json:"completed_urls"`
	FailedURLs      []failedURLResponse `json:"failed_urls"`
	SkippedURLs     []string            `json:"skipped_urls"`
	CreatedArticles []string            `json:"created_articles"`
	Error           string              `json:"error,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	StartedAt       *time.Time          `json:"started_at,omitempty"`
	CompletedAt     *time.Time          `json:"completed_at,omitempty"`
}

func toJobResponse(job domain.ScrapingJob) jobResponse {
	failed := make([]failedURLResponse, len(job.FailedURLs))
	for i, f := range job.FailedURLs {
		failed[i] = failedURLResponse{URL: f.URL, Reason: f.Reason}
	}
	return jobResponse{
		ID:              job.ID,
		Status:          string(job.Status),
		Progress:        job.Progress,
		Total:           job.Total,
		CompletedURLs:   orEmpty(job.CompletedURLs),
		FailedURLs:      failed,
		SkippedURLs:     orEmpty(job.SkippedURLs),
		CreatedArticles: orEmpty(job.CreatedArticles),
		Error:           job.Error,
		CreatedAt:       job.CreatedAt,
		StartedAt:       job.StartedAt,
		CompletedAt:     job.CompletedAt,
	}
}

func toInvalidLines(lines []urlparse.InvalidLine) []invalidLineResponse {
	out := make([]invalidLineResponse, len(lines))
	for i, l := range lines {
		out[i] = invalidLineResponse{Line: l.Line, Reason: l.Reason}
	}
	return out
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URLsText string `json:"urls_text"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.URLsText) == "" {
		s.writeError(w, http.StatusBadRequest, "urls_text is empty")
		return
	}

	report, err := s.ingestor.DryRun(r.Context(), req.URLsText)
	if err != nil && !errors.Is(err, domain.ErrNoValidURLs) {
		s.writeError(w, http.StatusInternalServerError, "parse failed")
		return
	}

	// zero valid URLs is a report, not an error
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid":             orEmpty(report.Valid),
		"invalid":           toInvalidLines(report.Invalid),
		"duplicates":        orEmpty(report.Duplicates),
		"existing":          orEmpty(report.Existing),
		"total_lines":       report.Lines,
		"valid_count":       len(report.Valid),
		"estimated_seconds": report.EstimatedSeconds,
	})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.ingestor.Preview(r.Context(), req.URL)
	if errors.Is(err, domain.ErrNoValidURLs) {
		s.writeError(w, http.StatusBadRequest, "not a valid URL")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "preview failed")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"url":            res.URL,
		"title":          res.Title,
		"description":    res.Description,
		"site_name":      res.SiteName,
		"suggested_tags": orEmpty(res.SuggestedTags),
		"is_duplicate":   res.IsDuplicate,
		"error":          res.Error,
	})
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URLsText       string `json:"urls_text"`
		AutoTag        bool   `json:"auto_tag"`
		SkipDuplicates bool   `json:"skip_duplicates"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.URLsText) == "" {
		s.writeError(w, http.StatusBadRequest, "urls_text is empty")
		return
	}

	user := userFrom(r)
	res, err := s.ingestor.Submit(r.Context(), usecase.SubmitRequest{
		UserID:         user,
		Text:           req.URLsText,
		AutoTag:        req.AutoTag,
		SkipDuplicates: req.SkipDuplicates,
	})
	switch {
	case errors.Is(err, domain.ErrNoValidURLs), errors.Is(err, domain.ErrNoNewURLs):
		s.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":      err.Error(),
			"invalid":    toInvalidLines(res.Invalid),
			"duplicates": orEmpty(res.Duplicates),
			"skipped":    orEmpty(res.Skipped),
		})
		return
	case errors.Is(err, domain.ErrJobConflict):
		s.writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		s.logger.Error("job submission failed", "user", user, "error", err)
		s.writeError(w, http.StatusInternalServerError, "job submission failed")
		return
	}

	job, err := s.ingestor.Job(r.Context(), res.JobID, user)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "job submission failed")
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job":               toJobResponse(job),
		"invalid":           toInvalidLines(res.Invalid),
		"duplicates":        orEmpty(res.Duplicates),
		"skipped":           orEmpty(res.Skipped),
		"estimated_seconds": res.EstimatedSeconds,
	})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultJobsLimit)
	offset := queryInt(r, "offset", 0)

	jobs, err := s.ingestor.Jobs(r.Context(), userFrom(r), limit, offset)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "listing jobs failed")
		return
	}

	out := make([]jobResponse, len(jobs))
	for i, job := range jobs {
		out[i] = toJobResponse(job)
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": out})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.ingestor.Job(r.Context(), chi.URLParam(r, "jobID"), userFrom(r))
	if errors.Is(err, domain.ErrJobNotFound) {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "fetching job failed")
		return
	}
	s.writeJSON(w, http.StatusOK, toJobResponse(job))
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	user := userFrom(r)

	cancelled, err := s.ingestor.Cancel(r.Context(), jobID, user)
	if errors.Is(err, domain.ErrJobNotFound) {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "cancel failed")
		return
	}

	job, err := s.ingestor.Job(r.Context(), jobID, user)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "cancel failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"cancelled": cancelled,
		"status":    string(job.Status),
	})
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	err := s.ingestor.Delete(r.Context(), chi.URLParam(r, "jobID"), userFrom(r))
	switch {
	case errors.Is(err, domain.ErrJobNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrJobActive):
		s.writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, "delete failed")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
