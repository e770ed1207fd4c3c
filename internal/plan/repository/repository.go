package repository

import (
	"broadrange-backend/internal/plan/domain"

	"gorm.io/datatypes"
)

// QuizStats aggregates a user's quiz attempts across all plans.
type QuizStats struct {
	Attempted    int64   `json:"attempted"`
	AverageScore float64 `json:"averageScore"`
}

// PlanRepository defines the interface for plan data access
type PlanRepository interface {
	// Create stores a plan together with its tasks and sub-tasks
	Create(plan *domain.Plan) error

	// FindByID finds a plan with its ordered tasks
	FindByID(id string) (*domain.Plan, error)

	// FindHeader finds the plan row only, without tasks
	FindHeader(id string) (*domain.Plan, error)

	// FindByUserID finds all plans of a user, optionally filtered by status
	FindByUserID(userID string, status *domain.PlanStatus) ([]*domain.Plan, error)

	// UpdateStatus writes status, completed_at and updated_at, and only
	// while the stored status is still from. Otherwise it returns
	// domain.ErrInvalidTransition.
	UpdateStatus(plan *domain.Plan, from domain.PlanStatus) error

	// ReplaceTasks locks the plan row, lets mutate change the plan and its
	// task list, then stores the new list in place of the old one.
	// Concurrent calls for the same plan run one after the other.
	ReplaceTasks(planID string, mutate func(plan *domain.Plan) error) (*domain.Plan, error)

	// SaveReflection caches the generated reflection on the plan
	SaveReflection(planID string, reflection datatypes.JSON) error

	// Delete deletes a plan and everything under it
	Delete(id string) error

	// FindActive returns every active plan with its tasks
	FindActive() ([]*domain.Plan, error)

	// MarkMissedNotice records the day a missed-day notice was sent
	MarkMissedNotice(planID, day string) error

	// QuizStats returns the quiz aggregates for a user
	QuizStats(userID string) (*QuizStats, error)
}

// TaskRepository defines the interface for task and sub-task data access
type TaskRepository interface {
	// FindByID finds a task with its sub-tasks
	FindByID(taskID string) (*domain.Task, error)

	// Update saves the user-editable task fields
	Update(task *domain.Task) error

	CreateSubTask(sub *domain.SubTask) error
	FindSubTask(taskID, subID string) (*domain.SubTask, error)
	UpdateSubTask(sub *domain.SubTask) error
	DeleteSubTask(taskID, subID string) error
}
