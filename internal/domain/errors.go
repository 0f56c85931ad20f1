package domain

import "errors"

// Sentinel errors shared across the use-case and transport layers.
var (
	// ErrNoValidURLs means the submitted text contained nothing scrapeable.
	ErrNoValidURLs = errors.New("no valid urls in input")

	// ErrNoNewURLs means every valid URL was already stored and skipped.
	ErrNoNewURLs = errors.New("all urls already scraped")

	// ErrJobConflict means the user already has a pending or running job.
	ErrJobConflict = errors.New("a scraping job is already in progress for this user")

	// ErrJobNotFound means no job with that id exists for the caller.
	ErrJobNotFound = errors.New("scraping job not found")

	// ErrJobActive means the operation requires a terminal job.
	ErrJobActive = errors.New("scraping job is still active")

	// ErrScheduleNotFound means the user has no stored schedule.
	ErrScheduleNotFound = errors.New("schedule not found")

	// ErrDuplicateURL means an article with the same url is already stored.
	ErrDuplicateURL = errors.New("article with this url already exists")
)
