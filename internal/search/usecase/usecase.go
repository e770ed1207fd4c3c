package usecase

import (
	"context"
	"errors"

	"broadrange-backend/internal/plan/domain"
	"broadrange-backend/pkg/chroma"
)

var ErrSemanticUnavailable = errors.New("semantic search is not configured")

// SearchUsecase defines the interface for searching study tasks
type SearchUsecase interface {
	// FuzzySearch matches the query against task text, notes and sub-tasks,
	// tolerating typos
	FuzzySearch(userID, query string, limit int) ([]TaskHit, error)

	// SemanticSearch ranks tasks by embedding similarity to the query
	SemanticSearch(ctx context.Context, userID, query string, limit int) ([]TaskHit, error)

	// Reindex pushes every task of the user's plans to the vector index
	Reindex(ctx context.Context, userID string) (int, error)

	// IndexPlan and RemoveTasks keep the vector index in step with plan edits
	IndexPlan(ctx context.Context, plan *domain.Plan)
	RemoveTasks(ctx context.Context, taskIDs []string)
}

// VectorIndex is the vector store behind semantic search.
type VectorIndex interface {
	UpsertTasks(ctx context.Context, docs []chroma.TaskDocument) error
	DeleteTasks(ctx context.Context, taskIDs []string) error
	SemanticSearch(ctx context.Context, userID, query string, limit int) ([]chroma.SearchHit, error)
}

// PlanLister loads a user's plans with their tasks.
type PlanLister interface {
	FindByUserID(userID string, status *domain.PlanStatus) ([]*domain.Plan, error)
}

// TaskHit is one search result.
type TaskHit struct {
	Task       domain.Task       `json:"task"`
	PlanID     string            `json:"planId"`
	PlanName   string            `json:"planName"`
	PlanStatus domain.PlanStatus `json:"planStatus"`
	Score      float64           `json:"score"`
}
