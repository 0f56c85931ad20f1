package domain

import (
	"fmt"
	"time"
)

// JobStatus enumerates scraping job lifecycle states.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// jobTransitions defines the allowed status graph. Terminal states have
// no outgoing edges and are immutable.
var jobTransitions = map[JobStatus][]JobStatus{
	JobPending:   {JobRunning, JobCancelled, JobFailed},
	JobRunning:   {JobCompleted, JobFailed, JobCancelled},
	JobCompleted: {},
	JobFailed:    {},
	JobCancelled: {},
}

// ParseJobStatus validates a raw status string.
func ParseJobStatus(raw string) (JobStatus, error) {
	s := JobStatus(raw)
	if _, ok := jobTransitions[s]; !ok {
		return "", fmt.Errorf("unknown job status %q", raw)
	}
	return s, nil
}

// CanTransition reports whether moving from one status to another is allowed.
func CanTransition(from, to JobStatus) bool {
	for _, next := range jobTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return len(jobTransitions[s]) == 0
}

// Active reports whether the job still occupies its user's single active slot.
func (s JobStatus) Active() bool {
	return s == JobPending || s == JobRunning
}

// FailedURL pairs a URL with the reason its scrape failed.
type FailedURL struct {
	URL    string
	Reason string
}

// OutcomeKind classifies the terminal disposition of one URL within a job.
type OutcomeKind string

const (
	OutcomeCompleted OutcomeKind = "completed"
	OutcomeFailed    OutcomeKind = "failed"
	OutcomeSkipped   OutcomeKind = "skipped"
)

// URLOutcome records how a single URL of a running job ended up.
type URLOutcome struct {
	URL       string
	Kind      OutcomeKind
	Reason    string
	ArticleID string
}

// ScrapingJob tracks one batch scrape from submission to a terminal state.
// Progress counts every settled URL regardless of outcome, so it reaches
// Total exactly when all URLs are accounted for.
type ScrapingJob struct {
	ID              string
	UserID          string
	URLs            []string
	AutoTag         bool
	SkipDuplicates  bool
	Status          JobStatus
	Progress        int
	Total           int
	CompletedURLs   []string
	FailedURLs      []FailedURL
	SkippedURLs     []string
	CreatedArticles []string
	Error           string
	CreatedAt       time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
}

// Clone returns a deep copy safe to hand across goroutine boundaries.
func (j *ScrapingJob) Clone() ScrapingJob {
	c := *j
	c.URLs = append([]string(nil), j.URLs...)
	c.CompletedURLs = append([]string(nil), j.CompletedURLs...)
	c.FailedURLs = append([]FailedURL(nil), j.FailedURLs...)
	c.SkippedURLs = append([]string(nil), j.SkippedURLs...)
	c.CreatedArticles = append([]string(nil), j.CreatedArticles...)
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return c
}

// Apply folds one URL outcome into the job counters. It assumes the
// caller already holds whatever lock guards the job.
func (j *ScrapingJob) Apply(o URLOutcome) {
	j.Progress++
	switch o.Kind {
	case OutcomeCompleted:
		j.CompletedURLs = append(j.CompletedURLs, o.URL)
		if o.ArticleID != "" {
			j.CreatedArticles = append(j.CreatedArticles, o.ArticleID)
		}
	case OutcomeFailed:
		j.FailedURLs = append(j.FailedURLs, FailedURL{URL: o.URL, Reason: o.Reason})
	case OutcomeSkipped:
		j.SkippedURLs = append(j.SkippedURLs, o.URL)
	}
}
