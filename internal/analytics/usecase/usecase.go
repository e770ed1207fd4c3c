package usecase

import (
	"context"

	"broadrange-backend/internal/plan/domain"
	"broadrange-backend/internal/plan/repository"
	"broadrange-backend/internal/plan/schedule"
)

// AnalyticsUsecase defines the interface for study statistics
type AnalyticsUsecase interface {
	// GetOverview aggregates progress across all of a user's plans
	GetOverview(ctx context.Context, userID string) (*Overview, error)
}

// PlanReader is the part of the plan repository analytics reads from.
type PlanReader interface {
	FindByUserID(userID string, status *domain.PlanStatus) ([]*domain.Plan, error)
	QuizStats(userID string) (*repository.QuizStats, error)
}

// Overview is the dashboard summary for one user.
type Overview struct {
	Plans          PlanCounts           `json:"plans"`
	TasksTotal     int                  `json:"tasksTotal"`
	TasksCompleted int                  `json:"tasksCompleted"`
	CompletionRate float64              `json:"completionRate"`
	DueToday       int                  `json:"dueToday"`
	CurrentStreak  int                  `json:"currentStreak"`
	Quiz           repository.QuizStats `json:"quiz"`
	Active         []ActivePlanProgress `json:"active"`
}

type PlanCounts struct {
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Archived  int `json:"archived"`
}

// ActivePlanProgress is the per-plan line of the overview.
type ActivePlanProgress struct {
	PlanID   string              `json:"planId"`
	Name     string              `json:"name"`
	Progress schedule.Progress   `json:"progress"`
	Skipped  schedule.SkipStatus `json:"skipped"`
}
