package schedule

import (
	"time"

	"broadrange-backend/internal/plan/domain"
)

// CompletionThreshold is the share of completed tasks a plan needs before it
// may be marked completed.
const CompletionThreshold = 0.8

// SkipStatus reports whether the user has fallen behind their schedule.
type SkipStatus struct {
	Behind     bool   `json:"behind"`
	DaysBehind int    `json:"daysBehind"`
	Since      string `json:"since,omitempty"`
}

// Progress counts completed tasks.
type Progress struct {
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
}

// ResolveSkippedDays finds the earliest incomplete task (by date) and
// compares it with today. Tasks whose date does not parse are ignored.
// A user is behind when that date is before today; daysBehind is at least 1.
func ResolveSkippedDays(tasks []domain.Task, today time.Time) SkipStatus {
	var earliest time.Time
	found := false
	for i := range tasks {
		if tasks[i].Completed {
			continue
		}
		d, ok := tasks[i].ParsedDate()
		if !ok {
			continue
		}
		if !found || d.Before(earliest) {
			earliest = d
			found = true
		}
	}

	day := CalendarDay(today)
	if !found || !earliest.Before(day) {
		return SkipStatus{}
	}

	days := DaysBetween(earliest, day)
	if days < 1 {
		days = 1
	}
	return SkipStatus{
		Behind:     true,
		DaysBehind: days,
		Since:      earliest.Format(domain.DateLayout),
	}
}

// CountProgress returns completed/total counts for tasks.
func CountProgress(tasks []domain.Task) Progress {
	p := Progress{Total: len(tasks)}
	for i := range tasks {
		if tasks[i].Completed {
			p.Completed++
		}
	}
	if p.Total > 0 {
		p.Percent = float64(p.Completed) * 100 / float64(p.Total)
	}
	return p
}

// MeetsCompletionThreshold reports whether at least 80% of tasks are done.
// A plan with no tasks never qualifies.
func MeetsCompletionThreshold(p Progress) bool {
	if p.Total == 0 {
		return false
	}
	return p.Completed*100 >= p.Total*int(CompletionThreshold*100)
}

// CalendarDay returns midnight UTC of t's calendar date in t's location.
func CalendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Locator resolves the time zone a user's calendar days are counted in.
type Locator interface {
	Location(userID string) *time.Location
}

// LocalDay returns the calendar day of now as seen in loc. A nil loc means UTC.
func LocalDay(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return CalendarDay(now.In(loc))
}

// DaysBetween returns the whole number of days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(CalendarDay(b).Sub(CalendarDay(a)).Hours() / 24)
}
