package domain

import "time"

// DateLayout is the calendar-date format used for every task date.
const DateLayout = "2006-01-02"

// Task is one scheduled study session for one calendar date.
type Task struct {
	ID                   string     `json:"id" gorm:"primaryKey"`
	PlanID               string     `json:"-" gorm:"index;not null"`
	Position             int        `json:"-" gorm:"not null"`
	Date                 string     `json:"date" gorm:"size:10;not null"`
	Description          string     `json:"task" gorm:"column:task;not null"`
	Completed            bool       `json:"completed" gorm:"default:false"`
	YoutubeSearchQuery   string     `json:"youtubeSearchQuery,omitempty"`
	ReferenceSearchQuery string     `json:"referenceSearchQuery,omitempty"`
	SubTasks             []SubTask  `json:"subTasks" gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
	QuizScore            *int       `json:"quizScore,omitempty"`
	QuizAttempted        bool       `json:"quizAttempted" gorm:"default:false"`
	Notes                string     `json:"notes,omitempty"`
	CompletedAt          *time.Time `json:"completedAt,omitempty"`
}

func (Task) TableName() string { return "study_tasks" }

// SubTask is a user-authored checklist item under a task.
type SubTask struct {
	ID        string `json:"id" gorm:"primaryKey"`
	TaskID    string `json:"-" gorm:"index;not null"`
	Position  int    `json:"-"`
	Text      string `json:"text" gorm:"not null"`
	Completed bool   `json:"completed" gorm:"default:false"`
}

func (SubTask) TableName() string { return "study_subtasks" }

// ParsedDate returns the task date as midnight UTC.
func (t *Task) ParsedDate() (time.Time, bool) {
	d, err := time.Parse(DateLayout, t.Date)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// Clone returns a deep copy so callers never share sub-task slices.
func (t Task) Clone() Task {
	out := t
	out.SubTasks = make([]SubTask, len(t.SubTasks))
	copy(out.SubTasks, t.SubTasks)
	if t.QuizScore != nil {
		score := *t.QuizScore
		out.QuizScore = &score
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		out.CompletedAt = &at
	}
	return out
}
