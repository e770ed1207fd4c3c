package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// PlanStatus is the lifecycle state of a plan
type PlanStatus string

const (
	PlanStatusActive    PlanStatus = "active"
	PlanStatusCompleted PlanStatus = "completed"
	PlanStatusArchived  PlanStatus = "archived"
)

// Valid reports whether s is a known status.
func (s PlanStatus) Valid() bool {
	switch s {
	case PlanStatusActive, PlanStatusCompleted, PlanStatusArchived:
		return true
	}
	return false
}

// CanTransitionTo encodes the plan state machine:
// active -> completed, active -> archived, completed -> archived.
// Archived is terminal.
func (s PlanStatus) CanTransitionTo(next PlanStatus) bool {
	switch s {
	case PlanStatusActive:
		return next == PlanStatusCompleted || next == PlanStatusArchived
	case PlanStatusCompleted:
		return next == PlanStatusArchived
	}
	return false
}

// PlanParameters are the user inputs a schedule is generated from.
type PlanParameters struct {
	Subjects          string      `json:"subjects" gorm:"not null"`
	SubjectList       SubjectList `json:"subjectList" gorm:"type:jsonb"`
	DailyStudyHours   float64     `json:"dailyStudyHours" gorm:"not null"`
	StudyDurationDays int         `json:"studyDurationDays" gorm:"not null"`
	SubjectDetails    string      `json:"subjectDetails,omitempty" gorm:"type:text"`
	StartDate         string      `json:"startDate,omitempty" gorm:"size:10"`
}

// Validate checks the parameter invariants.
func (p PlanParameters) Validate() error {
	if len(ParseSubjects(p.Subjects)) == 0 {
		return fmt.Errorf("%w: subjects are required", ErrInvalidParameters)
	}
	if p.DailyStudyHours <= 0 || p.DailyStudyHours > 24 {
		return fmt.Errorf("%w: daily study hours must be between 0 and 24", ErrInvalidParameters)
	}
	if p.StudyDurationDays <= 0 {
		return fmt.Errorf("%w: study duration must be a positive number of days", ErrInvalidParameters)
	}
	if p.StartDate != "" {
		if _, err := time.Parse(DateLayout, p.StartDate); err != nil {
			return fmt.Errorf("%w: start date must be YYYY-MM-DD", ErrInvalidParameters)
		}
	}
	return nil
}

// Plan is a user's study plan and its ordered schedule.
type Plan struct {
	ID                 string         `json:"id" gorm:"primaryKey"`
	UserID             string         `json:"userId" gorm:"index;not null"`
	Name               string         `json:"name"`
	Parameters         PlanParameters `json:"parameters" gorm:"embedded"`
	Status             PlanStatus     `json:"status" gorm:"index;default:active"`
	Summary            string         `json:"summary,omitempty" gorm:"type:text"`
	Tasks              []Task         `json:"tasks" gorm:"foreignKey:PlanID;constraint:OnDelete:CASCADE"`
	Reflection         datatypes.JSON `json:"reflection,omitempty"`
	ReplanCount        int            `json:"replanCount" gorm:"default:0"`
	LastMissedNoticeOn string         `json:"-" gorm:"size:10"`
	CompletedAt        *time.Time     `json:"completedAt,omitempty"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}

func (Plan) TableName() string { return "study_plans" }

// TransitionTo moves the plan to next if the state machine allows it.
func (p *Plan) TransitionTo(next PlanStatus, now time.Time) error {
	if !p.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, next)
	}
	p.Status = next
	if next == PlanStatusCompleted {
		p.CompletedAt = &now
	}
	p.UpdatedAt = now
	return nil
}

// Reflection is the cached retrospective generated for a completed plan.
type Reflection struct {
	Summary      string    `json:"summary"`
	Strengths    []string  `json:"strengths"`
	Improvements []string  `json:"improvements"`
	GeneratedAt  time.Time `json:"generatedAt"`
}

// SubjectPriority is one entry of the subjects field, e.g. "Math (3)".
type SubjectPriority struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"`
}

// SubjectList is stored as a JSON column.
type SubjectList []SubjectPriority

func (s SubjectList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *SubjectList) Scan(value interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	case nil:
		*s = SubjectList{}
		return nil
	default:
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, s)
}
