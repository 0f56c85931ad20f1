package domain

import (
	"fmt"
	"time"
)

// ScheduleConfig holds one user's daily automatic discovery settings.
// Hour and Minute are interpreted in the scheduler's timezone.
type ScheduleConfig struct {
	UserID          string
	Hour            int
	Minute          int
	Enabled         bool
	AutoTag         bool
	SkipDuplicates  bool
	IncludePapers   bool
	PaperCategories []string
	PaperMaxResults int
	UpdatedAt       time.Time
}

// Validate rejects out-of-range trigger times.
func (s ScheduleConfig) Validate() error {
	if s.Hour < 0 || s.Hour > 23 {
		return fmt.Errorf("schedule hour %d out of range 0-23", s.Hour)
	}
	if s.Minute < 0 || s.Minute > 59 {
		return fmt.Errorf("schedule minute %d out of range 0-59", s.Minute)
	}
	return nil
}

// DueAt reports whether the configured trigger time has been reached
// within the given day, at or after hour:minute.
func (s ScheduleConfig) DueAt(now time.Time) bool {
	if !s.Enabled {
		return false
	}
	return now.Hour()*60+now.Minute() >= s.Hour*60+s.Minute
}
