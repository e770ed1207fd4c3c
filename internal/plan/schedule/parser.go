// Package schedule turns generated schedule text into the canonical task
// list and merges regenerated schedules with existing progress. Everything
// here is pure and safe for concurrent use.
package schedule

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"broadrange-backend/internal/plan/domain"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// scheduleItem is one element of the generated JSON array. Pointers let us
// tell a missing field from an empty one.
type scheduleItem struct {
	Date                 *string `json:"date" validate:"required,calendar_date"`
	Task                 *string `json:"task" validate:"required"`
	YoutubeSearchQuery   *string `json:"youtubeSearchQuery"`
	ReferenceSearchQuery *string `json:"referenceSearchQuery"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("calendar_date", func(fl validator.FieldLevel) bool {
		_, ok := normalizeDate(fl.Field().String())
		return ok
	})
	return v
}

// ParseSchedule converts raw generator output into tasks for planID.
//
// The result is all-or-nothing: if raw is not a JSON array, or any element
// lacks a string date or task, or carries a non-string search query, the
// empty list is returned. It never returns nil and never panics.
func ParseSchedule(raw, planID string) []domain.Task {
	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elements); err != nil || elements == nil {
		return []domain.Task{}
	}

	items := make([]scheduleItem, len(elements))
	for i, element := range elements {
		if !isObject(element) {
			return []domain.Task{}
		}
		if err := json.Unmarshal(element, &items[i]); err != nil {
			return []domain.Task{}
		}
		if err := validate.Struct(items[i]); err != nil {
			return []domain.Task{}
		}
	}

	tasks := make([]domain.Task, len(items))
	for i, item := range items {
		date, _ := normalizeDate(*item.Date)
		tasks[i] = domain.Task{
			ID:                   NewTaskID(planID, date, i),
			PlanID:               planID,
			Position:             i,
			Date:                 date.Format(domain.DateLayout),
			Description:          *item.Task,
			Completed:            false,
			YoutubeSearchQuery:   deref(item.YoutubeSearchQuery),
			ReferenceSearchQuery: deref(item.ReferenceSearchQuery),
			SubTasks:             []domain.SubTask{},
			QuizAttempted:        false,
		}
	}
	return tasks
}

// NewTaskID builds the composite task id: plan id, the date as unix
// milliseconds, the zero-based position and a random suffix.
func NewTaskID(planID string, date time.Time, index int) string {
	return fmt.Sprintf("%s-%d-%d-%s", planID, date.UnixMilli(), index, shortRandom())
}

func shortRandom() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}

// normalizeDate accepts YYYY-MM-DD, or an RFC 3339 timestamp truncated to
// its calendar date, and returns midnight UTC of that date.
func normalizeDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(domain.DateLayout, s); err == nil {
		return d, true
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

func isObject(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return strings.HasPrefix(trimmed, "{")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
