package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// MockPlanner is a deterministic PlanGenerator for local development and
// demos without an LLM. It rotates through the subjects, one per day.
type MockPlanner struct {
	Now func() time.Time
}

func (m *MockPlanner) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *MockPlanner) GenerateSchedule(ctx context.Context, req ScheduleRequest) (*ScheduleResult, error) {
	days := req.StudyDurationDays
	if req.Replanning() && req.RemainingDays > 0 {
		days = req.RemainingDays
	}
	if days <= 0 || len(req.Subjects) == 0 {
		return &ScheduleResult{ScheduleText: "[]"}, nil
	}

	start := m.now()
	if req.StartDate != "" {
		if d, err := time.Parse("2006-01-02", req.StartDate); err == nil {
			start = d
		}
	}

	type item struct {
		Date                 string `json:"date"`
		Task                 string `json:"task"`
		YoutubeSearchQuery   string `json:"youtubeSearchQuery"`
		ReferenceSearchQuery string `json:"referenceSearchQuery"`
	}
	items := make([]item, days)
	for i := range items {
		subject := req.Subjects[i%len(req.Subjects)].Name
		items[i] = item{
			Date:                 start.AddDate(0, 0, i).Format("2006-01-02"),
			Task:                 fmt.Sprintf("Study %s for %g hours (session %d)", subject, req.DailyStudyHours, i/len(req.Subjects)+1),
			YoutubeSearchQuery:   subject + " lecture",
			ReferenceSearchQuery: subject + " notes",
		}
	}

	b, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return &ScheduleResult{
		ScheduleText: string(b),
		Summary:      fmt.Sprintf("A %d-day rotation across %d subjects.", days, len(req.Subjects)),
	}, nil
}

func (m *MockPlanner) GenerateQuiz(ctx context.Context, req QuizRequest) ([]QuizQuestion, error) {
	return []QuizQuestion{
		{
			Question:    fmt.Sprintf("Which topic did this session cover: %s?", req.Topic),
			Options:     []string{req.Topic, "None of these", "Something else", "Not sure"},
			AnswerIndex: 0,
		},
	}, nil
}

func (m *MockPlanner) GenerateReflection(ctx context.Context, req ReflectionRequest) (*ReflectionResult, error) {
	return &ReflectionResult{
		Summary:      fmt.Sprintf("You completed %d of %d sessions in %s.", req.CompletedTasks, req.TotalTasks, req.PlanName),
		Strengths:    []string{"Consistent progress"},
		Improvements: []string{"Review weaker subjects with quizzes"},
	}, nil
}
