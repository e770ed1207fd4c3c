package usecase

import (
	"context"

	"broadrange-backend/internal/plan/domain"
	"broadrange-backend/internal/plan/schedule"
	"broadrange-backend/pkg/ai"
)

// PlanUsecase defines the interface for study plan business logic
type PlanUsecase interface {
	// CreatePlan generates and stores a new plan
	CreatePlan(ctx context.Context, userID string, req CreatePlanRequest) (*domain.Plan, error)

	// GetPlan retrieves a plan by ID (with ownership check)
	GetPlan(userID, planID string) (*domain.Plan, error)

	// ListPlans retrieves the user's plans with an optional status filter
	ListPlans(userID string, status *domain.PlanStatus) ([]*domain.Plan, error)

	// ModifyPlan regenerates the schedule from changed parameters, keeping
	// progress when the new schedule has the same shape
	ModifyPlan(ctx context.Context, userID, planID string, req ModifyPlanRequest) (*domain.Plan, error)

	// Replan adapts the schedule after missed days
	Replan(ctx context.Context, userID, planID string, req ReplanRequest) (*domain.Plan, error)

	// GetScheduleStatus reports progress and missed days for a plan
	GetScheduleStatus(userID, planID string) (*ScheduleStatus, error)

	CompletePlan(ctx context.Context, userID, planID string) (*domain.Plan, error)
	ArchivePlan(userID, planID string) (*domain.Plan, error)
	DeletePlan(ctx context.Context, userID, planID string) error

	// GetReflection returns the cached reflection or queues its generation
	GetReflection(userID, planID string) (*ReflectionStatus, error)

	SetTaskCompleted(userID, taskID string, completed bool) (*domain.Task, error)
	UpdateTaskNotes(userID, taskID, notes string) (*domain.Task, error)
	AddSubTask(userID, taskID, text string) (*domain.SubTask, error)
	UpdateSubTask(userID, taskID, subID string, req SubTaskUpdateRequest) (*domain.SubTask, error)
	DeleteSubTask(userID, taskID, subID string) error

	// GenerateQuiz asks the AI for practice questions on a task. Questions are not stored.
	GenerateQuiz(ctx context.Context, userID, taskID string, questions int) ([]ai.QuizQuestion, error)

	// SubmitQuizScore records a 0..100 quiz score on a task
	SubmitQuizScore(userID, taskID string, score int) (*domain.Task, error)

	// SetIndexer sets the search index kept in step with plan tasks
	SetIndexer(indexer TaskIndexer)

	// SetReflectionWorker sets the background reflection generator
	SetReflectionWorker(worker *ReflectionWorker)

	// SetLocator sets where users' time zones come from. Without one every
	// user counts days in UTC.
	SetLocator(locator schedule.Locator)
}

// TaskIndexer keeps an external search index in step with plan tasks.
type TaskIndexer interface {
	IndexPlan(ctx context.Context, plan *domain.Plan)
	RemoveTasks(ctx context.Context, taskIDs []string)
}

type CreatePlanRequest struct {
	Name              string  `json:"name"`
	Subjects          string  `json:"subjects" binding:"required"`
	DailyStudyHours   float64 `json:"dailyStudyHours" binding:"required"`
	StudyDurationDays int     `json:"studyDurationDays" binding:"required"`
	SubjectDetails    string  `json:"subjectDetails"`
	StartDate         string  `json:"startDate"`
}

// ModifyPlanRequest represents the fields that can be updated
type ModifyPlanRequest struct {
	Name              *string  `json:"name,omitempty"`
	Subjects          *string  `json:"subjects,omitempty"`
	DailyStudyHours   *float64 `json:"dailyStudyHours,omitempty"`
	StudyDurationDays *int     `json:"studyDurationDays,omitempty"`
	SubjectDetails    *string  `json:"subjectDetails,omitempty"`
	StartDate         *string  `json:"startDate,omitempty"`
}

type ReplanRequest struct {
	// RemainingDays defaults to the days left in the original duration.
	RemainingDays int `json:"remainingDays"`
}

type SubTaskUpdateRequest struct {
	Text      *string `json:"text,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

type ScheduleStatus struct {
	PlanID      string              `json:"planId"`
	Status      domain.PlanStatus   `json:"status"`
	Today       string              `json:"today"`
	Progress    schedule.Progress   `json:"progress"`
	Skipped     schedule.SkipStatus `json:"skipped"`
	CanComplete bool                `json:"canComplete"`
}

type ReflectionStatus struct {
	Reflection *domain.Reflection `json:"reflection,omitempty"`
	Pending    bool               `json:"pending"`
}
