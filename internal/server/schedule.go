package server

import (
	"errors"
	"net/http"

	"newsdesk/internal/domain"
)

type scheduleRequest struct {
	Hour            int      `json:"hour"`
	Minute          int      `json:"minute"`
	Enabled         bool     `json:"enabled"`
	AutoTag         bool     `json:"auto_tag"`
	SkipDuplicates  bool     `json:"skip_duplicates"`
	IncludePapers   bool     `json:"include_papers"`
	PaperCategories []string `json:"paper_categories"`
	PaperMaxResults int      `json:"paper_max_results"`
}

func toScheduleResponse(cfg domain.ScheduleConfig) map[string]interface{} {
	return map[string]interface{}{
		"hour":              cfg.Hour,
		"minute":            cfg.Minute,
		"enabled":           cfg.Enabled,
		"auto_tag":          cfg.AutoTag,
		"skip_duplicates":   cfg.SkipDuplicates,
		"include_papers":    cfg.IncludePapers,
		"paper_categories":  orEmpty(cfg.PaperCategories),
		"paper_max_results": cfg.PaperMaxResults,
		"updated_at":        cfg.UpdatedAt,
	}
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.scheduler.GetSchedule(r.Context(), userFrom(r))
	if errors.Is(err, domain.ErrScheduleNotFound) {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "fetching schedule failed")
		return
	}
	s.writeJSON(w, http.StatusOK, toScheduleResponse(cfg))
}

func (s *Server) handlePutSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg := domain.ScheduleConfig{
		UserID:          userFrom(r),
		Hour:            req.Hour,
		Minute:          req.Minute,
		Enabled:         req.Enabled,
		AutoTag:         req.AutoTag,
		SkipDuplicates:  req.SkipDuplicates,
		IncludePapers:   req.IncludePapers,
		PaperCategories: req.PaperCategories,
		PaperMaxResults: req.PaperMaxResults,
	}
	if err := s.scheduler.SaveSchedule(r.Context(), cfg); err != nil {
		if cfg.Validate() != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, "saving schedule failed")
		return
	}
	s.writeJSON(w, http.StatusOK, toScheduleResponse(cfg))
}

func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	err := s.scheduler.DeleteSchedule(r.Context(), userFrom(r))
	if errors.Is(err, domain.ErrScheduleNotFound) {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "deleting schedule failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRunNow fires the user's discovery pipeline immediately, outside
// the daily slot.
func (s *Server) handleRunNow(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	res, err := s.scheduler.RunNow(r.Context(), user)
	switch {
	case errors.Is(err, domain.ErrNoNewURLs), errors.Is(err, domain.ErrNoValidURLs):
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"submitted": false,
			"reason":    err.Error(),
			"skipped":   orEmpty(res.Skipped),
		})
		return
	case errors.Is(err, domain.ErrJobConflict):
		s.writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		s.logger.Error("manual discovery run failed", "user", user, "error", err)
		s.writeError(w, http.StatusInternalServerError, "discovery run failed")
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"submitted":         true,
		"job_id":            res.JobID,
		"total":             res.Total,
		"skipped":           orEmpty(res.Skipped),
		"estimated_seconds": res.EstimatedSeconds,
	})
}
